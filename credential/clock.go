package credential

import "time"

// ExpiryMargin is subtracted from the computed expiry instant before
// comparison, absorbing clock skew between client and server and
// avoiding the use of a token that would expire mid-request.
const ExpiryMargin = 60 * time.Second

// Clock classifies credentials as expired or still usable.
type Clock struct {
	margin  time.Duration
	nowFunc func() time.Time
}

type ClockOption func(*Clock)

// WithNowFunc sets the now time function (primarily for testing).
func WithNowFunc(now func() time.Time) ClockOption {
	return func(c *Clock) {
		c.nowFunc = now
	}
}

// WithMargin overrides the default safety margin.
func WithMargin(margin time.Duration) ClockOption {
	return func(c *Clock) {
		c.margin = margin
	}
}

func NewClock(options ...ClockOption) *Clock {
	c := &Clock{
		margin:  ExpiryMargin,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// IsExpired reports whether cred should no longer be presented as a
// bearer credential. An explicit ExpiresAt is authoritative over any
// expiry decoded from the access token. A credential whose expiry
// cannot be determined at all is treated as expired: fail closed.
func (c *Clock) IsExpired(cred Credential) bool {
	expiry, ok := c.expiry(cred)
	if !ok {
		return true
	}
	return !c.nowFunc().Before(expiry.Add(-c.margin))
}

// TimeUntilExpiry returns the duration until cred's raw expiry instant
// (no margin applied). ok is false when no expiry can be determined.
func (c *Clock) TimeUntilExpiry(cred Credential) (time.Duration, bool) {
	expiry, ok := c.expiry(cred)
	if !ok {
		return 0, false
	}
	return expiry.Sub(c.nowFunc()), true
}

func (c *Clock) expiry(cred Credential) (time.Time, bool) {
	if cred.ExpiresAt != nil {
		return *cred.ExpiresAt, true
	}
	exp, err := decodeExpiry(cred.AccessToken)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(exp, 0), true
}
