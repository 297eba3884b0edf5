// Package garminconnect is a minimal session-oriented client for the Garmin
// Connect web API, built for periodic read-only consumption by home
// automation software. The client owns login, session reuse, and error
// classification; polling cadence, retry policy beyond a single re-auth, and
// storage stay with the caller.
package garminconnect

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shillcollin/garminconnect/internal/httpclient"
)

// Client talks to Garmin Connect on behalf of one account. It is safe for
// concurrent use: data calls share one authenticated session and at most one
// login is in flight at a time.
type Client struct {
	opts     options
	email    string
	password string
	origin   string
	base     *http.Client
	log      zerolog.Logger

	mu      sync.Mutex
	session *session
	gen     uint64
}

// session is one authenticated span: its own cookie jar on a shallow copy of
// the base HTTP client, plus the profile identifiers scraped at login.
// Replacing the session replaces the cookies with it.
type session struct {
	http        *http.Client
	displayName string
	userName    string
	gen         uint64
	created     time.Time
}

// New builds a Client for the given account credentials. No network traffic
// happens here; the first data call logs in implicitly unless Login is
// called first.
func New(email, password string, opts ...Option) (*Client, error) {
	if err := validCredentials(email, password); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.connectURL = strings.TrimRight(o.connectURL, "/")
	o.ssoURL = strings.TrimRight(o.ssoURL, "/")
	origin, err := originOf(o.ssoURL)
	if err != nil {
		return nil, err
	}
	base := o.httpClient
	if base == nil {
		base = httpclient.New(httpclient.WithTimeout(o.timeout))
	}
	return &Client{
		opts:     o,
		email:    email,
		password: password,
		origin:   origin,
		base:     base,
		log:      o.logger,
	}, nil
}

// Login authenticates immediately, replacing any existing session, and
// returns the account user name reported by the service.
func (c *Client) Login(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess, err := c.loginLocked(ctx)
	if err != nil {
		return "", err
	}
	return sess.userName, nil
}

// Logout drops the current session and its cookies; the next data call logs
// in again. The SSO flow holds no server-side token to revoke, so this is a
// local operation.
func (c *Client) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.log.Debug().Msg("session dropped")
	}
	c.session = nil
}

// Authenticated reports whether the client currently holds a session.
func (c *Client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// DisplayName returns the profile identifier used in per-user endpoint
// paths. It is empty until the first successful login.
func (c *Client) DisplayName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.displayName
}

// ensureSession returns the current session, logging in first if there is
// none. Callers waiting on an in-flight login block here and then share its
// result.
func (c *Client) ensureSession(ctx context.Context) (*session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return c.session, nil
	}
	return c.loginLocked(ctx)
}

// refreshSession replaces the session the caller observed as rejected. When
// another caller already re-authenticated, the newer session is returned
// without a second login.
func (c *Client) refreshSession(ctx context.Context, observed uint64) (*session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil && c.session.gen != observed {
		return c.session, nil
	}
	c.session = nil
	c.log.Debug().Msg("session rejected by service, logging in again")
	return c.loginLocked(ctx)
}

func (c *Client) loginLocked(ctx context.Context) (*session, error) {
	sess, err := c.login(ctx)
	if err != nil {
		return nil, err
	}
	c.gen++
	sess.gen = c.gen
	c.session = sess
	c.log.Debug().Str("displayName", sess.displayName).Msg("session established")
	return sess, nil
}

// sessionHTTP clones the base client with its own cookie jar, so one
// session's cookies never leak into the next.
func (c *Client) sessionHTTP(jar http.CookieJar) *http.Client {
	clone := *c.base
	clone.Jar = jar
	return &clone
}

func originOf(ssoURL string) (string, error) {
	u, err := url.Parse(ssoURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", newError(ErrConfiguration, "sso url must be absolute")
	}
	return u.Scheme + "://" + u.Host, nil
}
