// Package credential holds the client-side token pair and the expiry
// rules applied to it. A Credential is always replaced wholesale; no
// caller mutates its fields in place.
package credential

import "time"

// Credential is the access/refresh token pair plus the explicit expiry
// instant the server returned alongside it, when it returned one.
type Credential struct {
	AccessToken  string     `json:"access_token,omitempty"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// Empty reports whether the credential carries no tokens at all.
func (c Credential) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// Clone returns a copy that shares no pointers with the receiver.
func (c Credential) Clone() Credential {
	out := c
	if c.ExpiresAt != nil {
		t := *c.ExpiresAt
		out.ExpiresAt = &t
	}
	return out
}
