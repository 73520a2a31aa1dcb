package config

import "time"

type ClientConfig interface {
	GetHTTPTimeout() time.Duration
	GetRefreshLead() time.Duration
	GetExpiryMargin() time.Duration
}

type Client struct{}

var _ ClientConfig = Client{}

func (Client) GetHTTPTimeout() time.Duration {
	return 30 * time.Second
}

// GetRefreshLead is how far before expiry a renewal is scheduled.
func (Client) GetRefreshLead() time.Duration {
	return 5 * time.Minute
}

// GetExpiryMargin is the window before nominal expiry in which a
// credential is already treated as expired.
func (Client) GetExpiryMargin() time.Duration {
	return 60 * time.Second
}
