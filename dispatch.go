package garminconnect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// maxBodyBytes caps how much of any response is read. Data payloads and
// portal pages both stay well below it.
const maxBodyBytes = 4 << 20

// getData fetches one endpoint through the current session and decodes the
// JSON payload into out. The first rejection of the session triggers exactly
// one re-login and one retry of the same request; a second rejection
// surfaces as an authentication error. Rate limits surface immediately.
func (c *Client) getData(ctx context.Context, ep endpoint, vars map[string]string, out any) error {
	sess, err := c.ensureSession(ctx)
	if err != nil {
		return err
	}
	for attempt := 0; ; attempt++ {
		// Rebuilt per attempt: a re-login may change the display name.
		reqURL := ep.url(c.opts.connectURL, withDisplayName(vars, sess.displayName))
		c.log.Debug().Str("endpoint", ep.name).Str("url", reqURL).Msg("requesting data")

		req, err := http.NewRequestWithContext(ctx, ep.method, reqURL, nil)
		if err != nil {
			return wrapError(err, ErrUnknown)
		}
		c.setHeaders(req)
		resp, err := sess.http.Do(req)
		if err != nil {
			return connectionError(err)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()
		if err != nil {
			return connectionError(err)
		}
		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			c.log.Debug().Str("endpoint", ep.name).Msg("session expired, retrying once")
			sess, err = c.refreshSession(ctx, sess.gen)
			if err != nil {
				return err
			}
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return statusError(resp.StatusCode, resp.Header, body)
		}
		if out == nil || len(bytes.TrimSpace(body)) == 0 {
			return nil
		}
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(out); err != nil {
			return &Error{Code: ErrUnknown, Message: fmt.Sprintf("unexpected %s payload", ep.name), wrapped: err}
		}
		return nil
	}
}

// fetchPage performs one handshake request and returns the body as text.
// Non-success statuses are classified the same way data responses are.
func (c *Client) fetchPage(ctx context.Context, httpc *http.Client, method, rawURL string, body io.Reader) (string, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return "", wrapError(err, ErrUnknown)
	}
	c.setHeaders(req)
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return "", connectionError(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", connectionError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", statusError(resp.StatusCode, resp.Header, data)
	}
	return string(data), nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.opts.userAgent)
	req.Header.Set("origin", c.origin)
}

// withDisplayName copies vars with the session's display name added; the
// input map stays untouched so retries see clean state.
func withDisplayName(vars map[string]string, displayName string) map[string]string {
	out := make(map[string]string, len(vars)+1)
	for k, v := range vars {
		out[k] = v
	}
	out["displayName"] = displayName
	return out
}

// connectionError classifies a transport-level failure. A caller deadline
// expiring mid-request lands here too: from the consumer's point of view the
// service was unreachable.
func connectionError(err error) *Error {
	return &Error{Code: ErrConnection, Message: "connection error", wrapped: err}
}

// classifyStatus maps a non-success response status to an error kind. The
// mapping is part of the service contract: 401 means the session or the
// credentials were not accepted, 403 means the edge refused the request,
// 429 means rate limited.
func classifyStatus(status int) ErrorCode {
	switch status {
	case http.StatusUnauthorized:
		return ErrAuthentication
	case http.StatusForbidden:
		return ErrConnection
	case http.StatusTooManyRequests:
		return ErrTooManyRequests
	default:
		return ErrUnknown
	}
}

// statusError builds the Error for a non-success response, folding in the
// service's own message when the body carries one.
func statusError(status int, header http.Header, body []byte) *Error {
	e := &Error{Code: classifyStatus(status), Status: status}
	switch e.Code {
	case ErrAuthentication:
		e.Message = "authentication error"
	case ErrConnection:
		e.Message = "connection error"
	case ErrTooManyRequests:
		e.Message = "too many requests"
		e.RetryAfter = retryAfter(header)
	default:
		if msg := serviceMessage(body); msg != "" {
			e.Message = fmt.Sprintf("unknown API response [%d] - %s", status, msg)
		} else {
			e.Message = fmt.Sprintf("unknown API response [%d]", status)
		}
	}
	return e
}

// serviceMessage pulls the "message" field Garmin error bodies usually
// carry; absence is fine.
func serviceMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Message
}

// retryAfter parses a Retry-After header as delay seconds, falling back to
// the HTTP-date form.
func retryAfter(header http.Header) time.Duration {
	v := header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
