package store

import (
	"net/http"
	"net/url"
	"time"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

// CookieBackend is the transport-embedded backend: it mirrors the token
// pair into an http.CookieJar so requests made with the same jar carry
// the credential even where no other storage is available. Only the raw
// tokens fit in the cookie pair; expiry and writer metadata are not
// representable here, which downstream reads must tolerate.
type CookieBackend struct {
	jar     http.CookieJar
	baseURL *url.URL
}

var _ Backend = (*CookieBackend)(nil)

func NewCookieBackend(jar http.CookieJar, baseURL *url.URL) *CookieBackend {
	return &CookieBackend{jar: jar, baseURL: baseURL}
}

func (c *CookieBackend) Name() string { return "cookie" }

func (c *CookieBackend) Read() (*Record, error) {
	rec := Record{}
	for _, cookie := range c.jar.Cookies(c.baseURL) {
		switch cookie.Name {
		case accessTokenCookie:
			rec.Credential.AccessToken = cookie.Value
		case refreshTokenCookie:
			rec.Credential.RefreshToken = cookie.Value
		}
	}
	if rec.Credential.Empty() {
		return nil, nil
	}
	return &rec, nil
}

func (c *CookieBackend) Write(rec Record) error {
	c.jar.SetCookies(c.baseURL, []*http.Cookie{
		{Name: accessTokenCookie, Value: rec.Credential.AccessToken, Path: "/"},
		{Name: refreshTokenCookie, Value: rec.Credential.RefreshToken, Path: "/"},
	})
	return nil
}

// Clear expires both token cookies. Clearing is symmetric: the access
// and refresh slots are always removed together.
func (c *CookieBackend) Clear() error {
	expired := time.Unix(0, 0)
	c.jar.SetCookies(c.baseURL, []*http.Cookie{
		{Name: accessTokenCookie, Value: "", Path: "/", MaxAge: -1, Expires: expired},
		{Name: refreshTokenCookie, Value: "", Path: "/", MaxAge: -1, Expires: expired},
	})
	return nil
}
