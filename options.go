package garminconnect

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Option configures a Client during construction.
type Option func(*options)

type options struct {
	connectURL string
	ssoURL     string
	userAgent  string
	httpClient *http.Client
	timeout    time.Duration
	logger     zerolog.Logger
}

func defaultOptions() options {
	return options{
		connectURL: "https://connect.garmin.com",
		ssoURL:     "https://sso.garmin.com/sso",
		userAgent:  defaultUserAgent,
		timeout:    30 * time.Second,
		logger:     zerolog.Nop(),
	}
}

// WithConnectURL overrides the Garmin Connect base URL.
func WithConnectURL(url string) Option {
	return func(o *options) { o.connectURL = url }
}

// WithSSOURL overrides the SSO base URL used for the login handshake.
func WithSSOURL(url string) Option {
	return func(o *options) { o.ssoURL = url }
}

// WithUserAgent overrides the User-Agent header sent on every request.
func WithUserAgent(agent string) Option {
	return func(o *options) { o.userAgent = agent }
}

// WithHTTPClient provides a custom HTTP client. Its transport and timeout are
// kept; the cookie jar is replaced on every login so sessions stay isolated.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// WithTimeout sets the request timeout of the default HTTP client. It has no
// effect when WithHTTPClient is used; per-call deadlines belong on the
// context either way.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithLogger installs the host application's logger. The client logs at
// debug level only and never logs credentials or cookie values.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}
