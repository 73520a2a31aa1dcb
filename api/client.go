// Package api is the HTTP transport client for the authentication
// endpoints: login, token refresh, identity fetch, and logout. It shapes
// requests and classifies failures; all session state lives with the
// caller.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-session-client/credential"
	"github.com/jrsteele09/go-session-client/identity"
	"github.com/jrsteele09/go-session-client/internal/utils"
)

const (
	loginPath    = "/auth/login"
	refreshPath  = "/auth/refresh"
	identityPath = "/auth/me"
	logoutPath   = "/auth/logout"

	defaultRequestTimeout = 15 * time.Second
)

// tokenResponse is the wire shape shared by the login and refresh
// endpoints. ExpiresAt is milliseconds since the epoch.
type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresAt    *int64 `json:"expiresAt,omitempty"`
}

type identityResponse struct {
	User        *identity.User `json:"user"`
	Roles       []string       `json:"roles"`
	Permissions []string       `json:"permissions"`
	Tier        string         `json:"tier,omitempty"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Client issues authentication requests against a base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client. Sharing a client with
// a cookie jar keeps the transport-embedded credential mirror in sync.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the request logger.
func WithLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

func NewClient(baseURL string, options ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		log:        zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Login exchanges the user's credentials for a token pair.
func (c *Client) Login(ctx context.Context, identifier, secret string, remember bool) (credential.Credential, error) {
	body := map[string]any{
		"identifier": identifier,
		"secret":     secret,
		"remember":   remember,
	}

	var resp tokenResponse
	if err := c.post(ctx, loginPath, "", body, &resp); err != nil {
		return credential.Credential{}, errors.Wrap(err, "[Client.Login]")
	}
	return toCredential(resp), nil
}

// Refresh exchanges a refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (credential.Credential, error) {
	body := map[string]any{"refreshToken": refreshToken}

	var resp tokenResponse
	if err := c.post(ctx, refreshPath, "", body, &resp); err != nil {
		return credential.Credential{}, errors.Wrap(err, "[Client.Refresh]")
	}
	return toCredential(resp), nil
}

// FetchIdentity retrieves the authoritative identity record for the
// bearer credential.
func (c *Client) FetchIdentity(ctx context.Context, accessToken string) (*identity.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+identityPath, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.FetchIdentity] NewRequest")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var resp identityResponse
	if err := c.do(req, &resp); err != nil {
		return nil, errors.Wrap(err, "[Client.FetchIdentity]")
	}

	return &identity.Identity{
		User:        resp.User,
		Roles:       resp.Roles,
		Permissions: resp.Permissions,
		Tier:        identity.TierType(resp.Tier),
	}, nil
}

// Logout notifies the server that the session is ending so it can
// revoke the refresh token. Best-effort: the caller tears down local
// state regardless of the outcome.
func (c *Client) Logout(ctx context.Context, accessToken, refreshToken string) error {
	body := map[string]any{"refreshToken": refreshToken}
	if err := c.post(ctx, logoutPath, accessToken, body, nil); err != nil {
		return errors.Wrap(err, "[Client.Logout]")
	}
	return nil
}

func (c *Client) post(ctx context.Context, path, accessToken string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "Marshal")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "NewRequest")
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "httpClient.Do")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.serverError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "Decode")
	}
	return nil
}

func (c *Client) serverError(resp *http.Response) error {
	serverErr := &ServerError{StatusCode: resp.StatusCode}

	var payload errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		serverErr.Message = payload.Message
	}

	c.log.Debug().
		Int("status", resp.StatusCode).
		Str("path", resp.Request.URL.Path).
		Str("message", serverErr.Message).
		Msg("request rejected")
	return serverErr
}

func toCredential(resp tokenResponse) credential.Credential {
	cred := credential.Credential{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}
	if resp.ExpiresAt != nil {
		cred.ExpiresAt = utils.Ptr(time.UnixMilli(*resp.ExpiresAt))
	}
	return cred
}
