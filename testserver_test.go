package garminconnect

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	testEmail       = "smoke@example.com"
	testPassword    = "hunter2"
	testDisplayName = "profile-1234"
	testUserName    = "gauge@example.com"

	devicesPath = "/device-service/deviceregistration/devices"
)

func settingsPathFor(deviceID string) string {
	return "/device-service/deviceservice/device-info/settings/" + deviceID
}

func summaryPathFor(displayName string) string {
	return "/usersummary-service/usersummary/daily/" + displayName
}

func hydrationPathFor(date string) string {
	return "/usersummary-service/usersummary/hydration/daily/" + date
}

// fakeGarmin is an in-process stand-in for the SSO and Connect hosts. Login
// mints session cookies versioned by login count; raising minSession
// declares older sessions expired, which is how tests drive the re-auth
// path deterministically.
type fakeGarmin struct {
	t  *testing.T
	ts *httptest.Server

	mu          sync.Mutex
	requests    int            // every request on either host
	logins      int            // signin POSTs that issued a ticket
	minSession  int            // data calls with an older session cookie get 401
	failLogin   int            // non-zero: signin POST returns this status
	failData    int            // non-zero: data calls return this status
	omitTicket  bool           // signin POST succeeds but serves no ticket URL
	omitProfile bool           // ticket page carries no social profile blob
	rateLimit   bool           // data calls return 429
	brokenJSON  bool           // data calls return unparsable bodies
	retryAfter  string         // Retry-After header for 429 responses
	dataDelay   time.Duration  // slows data responses down
	profile     map[string]string
	data        map[string]any // canned payload per proxy path
	hits        map[string]int // proxy path -> request count
	lastURI     map[string]string
}

func newFakeGarmin(t *testing.T) *fakeGarmin {
	f := &fakeGarmin{
		t:          t,
		minSession: 1,
		profile:    map[string]string{"displayName": testDisplayName, "userName": testUserName},
		data:       map[string]any{},
		hits:       map[string]int{},
		lastURI:    map[string]string{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/sso/signin", f.handleSignin)
	mux.HandleFunc("/sso/embed", f.handleTicket)
	mux.HandleFunc("/proxy/", f.handleData)
	f.ts = httptest.NewTLSServer(mux)
	t.Cleanup(f.ts.Close)
	return f
}

// client builds a Client wired to the fake hosts.
func (f *fakeGarmin) client(t *testing.T, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithConnectURL(f.ts.URL),
		WithSSOURL(f.ts.URL + "/sso"),
		WithHTTPClient(f.ts.Client()),
	}, opts...)
	c, err := New(testEmail, testPassword, opts...)
	require.NoError(t, err)
	return c
}

// configure mutates fake state under its lock.
func (f *fakeGarmin) configure(fn func(*fakeGarmin)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeGarmin) set(path string, payload any) {
	f.configure(func(g *fakeGarmin) { g.data[path] = payload })
}

// expireSessions declares every session issued so far invalid; the next
// login mints an acceptable one again.
func (f *fakeGarmin) expireSessions() {
	f.configure(func(g *fakeGarmin) { g.minSession = g.logins + 1 })
}

func (f *fakeGarmin) loginCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins
}

func (f *fakeGarmin) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func (f *fakeGarmin) hitCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeGarmin) lastRequestURI(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastURI[path]
}

func (f *fakeGarmin) handleSignin(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	if got := r.Header.Get("origin"); got != f.ts.URL {
		f.t.Errorf("origin header = %q, want %q", got, f.ts.URL)
	}
	if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "Mozilla/5.0 ") {
		f.t.Errorf("unexpected user agent %q", ua)
	}
	if r.URL.Query().Get("clientId") != "GarminConnect" {
		f.t.Errorf("signin query missing clientId: %s", r.URL.RawQuery)
	}
	switch r.Method {
	case http.MethodGet:
		http.SetCookie(w, &http.Cookie{Name: "CASTGC", Value: "widget-csrf", Path: "/"})
		fmt.Fprint(w, "<html>signin widget</html>")
	case http.MethodPost:
		if f.failLogin != 0 {
			if f.failLogin == http.StatusTooManyRequests && f.retryAfter != "" {
				w.Header().Set("Retry-After", f.retryAfter)
			}
			w.WriteHeader(f.failLogin)
			return
		}
		if _, err := r.Cookie("CASTGC"); err != nil {
			f.t.Error("signin POST arrived without the widget cookie")
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := r.ParseForm(); err != nil {
			f.t.Errorf("parse signin form: %v", err)
		}
		if r.PostFormValue("username") != testEmail || r.PostFormValue("password") != testPassword {
			f.t.Error("credentials did not round-trip")
		}
		if r.PostFormValue("embed") != "true" || r.PostFormValue("_eventId") != "submit" {
			f.t.Errorf("unexpected signin form: %v", r.PostForm)
		}
		if f.omitTicket {
			fmt.Fprint(w, "<html>signin widget</html>")
			return
		}
		f.logins++
		// Escaped the way the portal inlines it into JSON.
		ticketURL := strings.ReplaceAll(f.ts.URL+"/sso/embed?ticket=ST-"+strconv.Itoa(f.logins), "/", `\/`)
		fmt.Fprintf(w, `<script>var response_url = "%s";</script>`, ticketURL)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeGarmin) handleTicket(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	ticket := r.URL.Query().Get("ticket")
	if !strings.HasPrefix(ticket, "ST-") {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "SESSIONID", Value: strings.TrimPrefix(ticket, "ST-"), Path: "/"})
	if f.omitProfile {
		fmt.Fprint(w, "<html>welcome</html>")
		return
	}
	blob, _ := json.Marshal(f.profile)
	fmt.Fprintf(w, "<html><script>window.VIEWER_SOCIAL_PROFILE = JSON.parse(%q);</script></html>", string(blob))
}

func (f *fakeGarmin) handleData(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	delay := f.dataDelay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	path := strings.TrimPrefix(r.URL.Path, "/proxy")
	f.hits[path]++
	f.lastURI[path] = r.URL.RequestURI()

	if f.failData != 0 {
		w.WriteHeader(f.failData)
		return
	}
	version := 0
	if cookie, err := r.Cookie("SESSIONID"); err == nil {
		version, _ = strconv.Atoi(cookie.Value)
	}
	if version < f.minSession {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if f.rateLimit {
		if f.retryAfter != "" {
			w.Header().Set("Retry-After", f.retryAfter)
		}
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}
	if f.brokenJSON {
		fmt.Fprint(w, "{not json")
		return
	}
	payload, ok := f.data[path]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"no such resource"}`)
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		f.t.Errorf("encode payload for %s: %v", path, err)
	}
}
