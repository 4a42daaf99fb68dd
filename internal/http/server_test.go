package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/secretkeeper/internal/auth"
	"github.com/secretkeeper/internal/config"
	"github.com/secretkeeper/internal/constants"
	"github.com/secretkeeper/internal/db"
	"github.com/secretkeeper/internal/domain"
	"github.com/secretkeeper/internal/logger"
	"github.com/secretkeeper/internal/session"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// testClock is a settable clock shared by the server and the test
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeProvider stands in for Google
type fakeProvider struct {
	identity *domain.Identity
	err      error
	codes    []string
}

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/o/oauth2/auth?state=" + url.QueryEscape(state)
}

func (p *fakeProvider) Exchange(_ context.Context, code string) (*domain.Identity, error) {
	p.codes = append(p.codes, code)
	if p.err != nil {
		return nil, p.err
	}
	return p.identity, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Session:     config.SessionConfig{Secret: "test-secret"},
	}
}

type testEnv struct {
	server   *Server
	database *db.DB
	clock    *testClock
	http     *httptest.Server
}

// setupTestServer starts the full router over a temp SQLite database
func setupTestServer(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	database, err := db.Init(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	clock := &testClock{now: time.Now().UTC()}
	opts = append([]Option{
		WithLogger(logger.Discard()),
		WithClock(clock.Now),
		WithPasswordHasher(auth.NewHasher(bcrypt.MinCost)),
	}, opts...)

	server := NewServer(testConfig(), database, opts...)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{server: server, database: database, clock: clock, http: ts}
}

// browser is an HTTP client with a cookie jar that does not follow redirects
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func (e *testEnv) newBrowser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New() error = %v", err)
	}
	return &browser{
		t:    t,
		base: e.http.URL,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) get(path string) (*http.Response, string) {
	b.t.Helper()
	resp, err := b.client.Get(b.base + path)
	if err != nil {
		b.t.Fatalf("GET %s error = %v", path, err)
	}
	return resp, readBody(b.t, resp)
}

func (b *browser) post(path string, form url.Values) (*http.Response, string) {
	b.t.Helper()
	resp, err := b.client.PostForm(b.base+path, form)
	if err != nil {
		b.t.Fatalf("POST %s error = %v", path, err)
	}
	return resp, readBody(b.t, resp)
}

func (b *browser) sessionToken() string {
	u, _ := url.Parse(b.base)
	for _, c := range b.client.Jar.Cookies(u) {
		if c.Name == constants.SessionCookieName {
			return c.Value
		}
	}
	return ""
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func credentials(email, password string) url.Values {
	return url.Values{"username": {email}, "password": {password}}
}

func assertRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want 302", resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); got != location {
		t.Fatalf("Location = %q, want %q", got, location)
	}
}

func TestRegisterAndLoginScenario(t *testing.T) {
	env := setupTestServer(t)
	b := env.newBrowser(t)

	resp, _ := b.post("/register", credentials("a@x.com", "p1"))
	assertRedirect(t, resp, "/secrets")

	resp, body := b.post("/register", credentials("a@x.com", "p2"))
	if resp.StatusCode != http.StatusBadRequest || body != "User already exists" {
		t.Fatalf("duplicate register = %d %q", resp.StatusCode, body)
	}

	fresh := env.newBrowser(t)
	resp, _ = fresh.post("/login", credentials("a@x.com", "p1"))
	assertRedirect(t, resp, "/secrets")
	resp, _ = fresh.get("/secrets")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /secrets after login = %d, want 200", resp.StatusCode)
	}

	other := env.newBrowser(t)
	resp, _ = other.post("/login", credentials("a@x.com", "p2"))
	assertRedirect(t, resp, "/login")
	if other.sessionToken() != "" {
		t.Error("failed login set a session cookie")
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := setupTestServer(t)
	b := env.newBrowser(t)
	b.post("/register", credentials("a@x.com", "p1"))

	tests := []struct {
		name string
		form url.Values
	}{
		{name: "wrong password", form: credentials("a@x.com", "nope")},
		{name: "unknown email", form: credentials("nobody@x.com", "p1")},
		{name: "missing password", form: url.Values{"username": {"a@x.com"}}},
		{name: "missing username", form: url.Values{"password": {"p1"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.newBrowser(t).post("/login", tt.form)
			assertRedirect(t, resp, "/login")
			if strings.Contains(body, "not found") || strings.Contains(body, "password") {
				t.Errorf("response reveals failure reason: %q", body)
			}
		})
	}
}

func TestProtectedRoutesRedirectAnonymous(t *testing.T) {
	env := setupTestServer(t)
	b := env.newBrowser(t)

	resp, _ := b.get("/secrets")
	assertRedirect(t, resp, "/login")
	resp, _ = b.get("/submit")
	assertRedirect(t, resp, "/login")
	resp, _ = b.post("/submit", url.Values{"secret": {"s"}})
	assertRedirect(t, resp, "/login")
}

func TestPublicPagesRender(t *testing.T) {
	env := setupTestServer(t)
	b := env.newBrowser(t)

	for _, path := range []string{"/", "/login", "/register"} {
		resp, body := b.get(path)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
		if !strings.Contains(body, "<html") {
			t.Errorf("GET %s did not render a page", path)
		}
		if strings.Contains(body, "/auth/google") {
			t.Errorf("GET %s offers Google sign-in while it is disabled", path)
		}
	}
}

func TestSubmitAndReadSecret(t *testing.T) {
	env := setupTestServer(t)
	b := env.newBrowser(t)
	b.post("/register", credentials("a@x.com", "p1"))

	resp, body := b.get("/secrets")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `<p class="secret-text"></p>`) {
		t.Fatalf("new account secrets page = %d, body %q", resp.StatusCode, body)
	}

	resp, _ = b.get("/submit")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /submit = %d", resp.StatusCode)
	}

	for _, secret := range []string{"first secret", "second secret", "second secret"} {
		resp, _ = b.post("/submit", url.Values{"secret": {secret}})
		assertRedirect(t, resp, "/secrets")
	}

	_, body = b.get("/secrets")
	if !strings.Contains(body, "second secret") || strings.Contains(body, "first secret") {
		t.Errorf("secrets page does not show the last written value: %q", body)
	}

	resp, _ = b.post("/submit", url.Values{"secret": {"<script>alert(1)</script>"}})
	assertRedirect(t, resp, "/secrets")
	_, body = b.get("/secrets")
	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Error("secret rendered without escaping")
	}
}

func TestSecretsAreIsolatedPerUser(t *testing.T) {
	env := setupTestServer(t)

	alice := env.newBrowser(t)
	alice.post("/register", credentials("a@x.com", "p1"))
	alice.post("/submit", url.Values{"secret": {"alice-only"}})

	bob := env.newBrowser(t)
	bob.post("/register", credentials("b@x.com", "p1"))
	_, body := bob.get("/secrets")
	if strings.Contains(body, "alice-only") {
		t.Error("one user's secret leaked to another")
	}
}

func TestSessionCookieAttributes(t *testing.T) {
	env := setupTestServer(t)
	b := env.newBrowser(t)

	resp, _ := b.post("/register", credentials("a@x.com", "p1"))

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == constants.SessionCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("no session cookie set")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie must be httpOnly")
	}
	if cookie.Secure {
		t.Error("session cookie must not be Secure by default")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want Lax", cookie.SameSite)
	}
	if cookie.MaxAge != 900 {
		t.Errorf("MaxAge = %d, want 900", cookie.MaxAge)
	}
	if cookie.Path != "/" {
		t.Errorf("Path = %q, want /", cookie.Path)
	}
}

func TestSessionExpiresAfterFifteenMinutes(t *testing.T) {
	env := setupTestServer(t)
	b := env.newBrowser(t)
	b.post("/register", credentials("a@x.com", "p1"))

	env.clock.Advance(14*time.Minute + 59*time.Second)
	resp, _ := b.get("/secrets")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("session ended early: %d", resp.StatusCode)
	}

	env.clock.Advance(time.Second)
	resp, _ = b.get("/secrets")
	assertRedirect(t, resp, "/login")
	if b.sessionToken() != "" {
		t.Error("expired session cookie was not cleared")
	}
}

func TestLogout(t *testing.T) {
	env := setupTestServer(t)
	b := env.newBrowser(t)
	b.post("/register", credentials("a@x.com", "p1"))
	token := b.sessionToken()
	if token == "" {
		t.Fatal("no session after register")
	}

	resp, _ := b.get("/logout")
	assertRedirect(t, resp, "/")

	resp, _ = b.get("/secrets")
	assertRedirect(t, resp, "/login")

	// Replaying the old cookie does not resurrect the session
	req, _ := http.NewRequest(http.MethodGet, env.http.URL+"/secrets", nil)
	req.AddCookie(&http.Cookie{Name: constants.SessionCookieName, Value: token})
	replay, err := (&http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}).Do(req)
	if err != nil {
		t.Fatalf("replay request error = %v", err)
	}
	replay.Body.Close()
	assertRedirect(t, replay, "/login")

	// Logging out while anonymous is harmless
	resp, _ = env.newBrowser(t).get("/logout")
	assertRedirect(t, resp, "/")
}

func TestLoginReplacesExistingSession(t *testing.T) {
	env := setupTestServer(t)
	b := env.newBrowser(t)
	b.post("/register", credentials("a@x.com", "p1"))
	first := b.sessionToken()

	b.post("/login", credentials("a@x.com", "p1"))
	if b.sessionToken() == first {
		t.Fatal("login reused the previous session token")
	}

	user, err := env.server.Sessions().Deserialize(context.Background(), first)
	if err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}
	if user != nil {
		t.Error("previous session still valid after login")
	}
}

func TestDanglingSessionIsAnonymous(t *testing.T) {
	env := setupTestServer(t)
	b := env.newBrowser(t)
	b.post("/register", credentials("a@x.com", "p1"))

	if _, err := env.database.Exec("DELETE FROM users WHERE email = $1", "a@x.com"); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	resp, _ := b.get("/secrets")
	assertRedirect(t, resp, "/login")
}

func TestTamperedCookieIsAnonymous(t *testing.T) {
	env := setupTestServer(t)
	b := env.newBrowser(t)
	b.post("/register", credentials("a@x.com", "p1"))
	token := b.sessionToken()

	req, _ := http.NewRequest(http.MethodGet, env.http.URL+"/secrets", nil)
	req.AddCookie(&http.Cookie{Name: constants.SessionCookieName, Value: token + "x"})
	resp, err := (&http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}).Do(req)
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	resp.Body.Close()
	assertRedirect(t, resp, "/login")
}

func TestRegisterValidation(t *testing.T) {
	env := setupTestServer(t)

	tests := []struct {
		name string
		form url.Values
	}{
		{name: "missing username", form: url.Values{"password": {"p1"}}},
		{name: "missing password", form: url.Values{"username": {"a@x.com"}}},
		{name: "password too long", form: credentials("a@x.com", strings.Repeat("x", 73))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.newBrowser(t).post("/register", tt.form)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (%q)", resp.StatusCode, body)
			}
		})
	}
}

func TestGoogleNotConfigured(t *testing.T) {
	env := setupTestServer(t)
	b := env.newBrowser(t)

	for _, path := range []string{"/auth/google", "/auth/google/secrets?code=x&state=y"} {
		resp, body := b.get(path)
		if resp.StatusCode != http.StatusNotFound || body != constants.MsgGoogleNotConfigured {
			t.Errorf("GET %s = %d %q", path, resp.StatusCode, body)
		}
	}
}

// googleLogin walks the browser through the federated flow and returns the
// callback response
func googleLogin(t *testing.T, b *browser, tamperState bool) *http.Response {
	t.Helper()

	resp, _ := b.get("/auth/google")
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("GET /auth/google = %d, want 302", resp.StatusCode)
	}
	consent, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		t.Fatalf("invalid consent URL: %v", err)
	}
	state := consent.Query().Get("state")
	if state == "" {
		t.Fatal("consent URL carries no state")
	}
	if tamperState {
		state += "-forged"
	}

	resp, _ = b.get("/auth/google/secrets?code=auth-code&state=" + url.QueryEscape(state))
	return resp
}

func TestGoogleLoginProvisionsAccount(t *testing.T) {
	provider := &fakeProvider{identity: &domain.Identity{
		Provider: "google", Subject: "1", Email: "g@x.com", EmailVerified: true,
	}}
	env := setupTestServer(t, WithIdentityProvider(provider))
	b := env.newBrowser(t)

	_, body := b.get("/login")
	if !strings.Contains(body, "/auth/google") {
		t.Error("login page does not offer Google sign-in")
	}

	resp := googleLogin(t, b, false)
	assertRedirect(t, resp, "/secrets")
	if len(provider.codes) != 1 || provider.codes[0] != "auth-code" {
		t.Errorf("provider saw codes %v", provider.codes)
	}

	resp, _ = b.get("/secrets")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /secrets = %d", resp.StatusCode)
	}

	user, err := env.database.FindUserByEmail(context.Background(), "g@x.com")
	if err != nil || user == nil {
		t.Fatalf("federated user not provisioned: %v", err)
	}
	if user.Password != constants.FederatedCredential {
		t.Errorf("credential = %q, want federated placeholder", user.Password)
	}

	// The placeholder credential never works for password login
	resp, _ = env.newBrowser(t).post("/login", credentials("g@x.com", "google"))
	assertRedirect(t, resp, "/login")

	// A second federated login reuses the account
	again := env.newBrowser(t)
	assertRedirect(t, googleLogin(t, again, false), "/secrets")
	var count int
	env.database.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	if count != 1 {
		t.Errorf("users = %d, want 1", count)
	}
}

func TestGoogleLoginTakesOverLocalAccount(t *testing.T) {
	provider := &fakeProvider{identity: &domain.Identity{
		Provider: "google", Email: "a@x.com", EmailVerified: true,
	}}
	env := setupTestServer(t, WithIdentityProvider(provider))

	local := env.newBrowser(t)
	local.post("/register", credentials("a@x.com", "p1"))
	local.post("/submit", url.Values{"secret": {"local secret"}})

	federated := env.newBrowser(t)
	assertRedirect(t, googleLogin(t, federated, false), "/secrets")
	_, body := federated.get("/secrets")
	if !strings.Contains(body, "local secret") {
		t.Error("federated login did not resolve to the existing local account")
	}

	// The local password keeps working
	resp, _ := env.newBrowser(t).post("/login", credentials("a@x.com", "p1"))
	assertRedirect(t, resp, "/secrets")
}

func TestGoogleCallbackRejections(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
		tamper   bool
	}{
		{
			name:     "state mismatch",
			provider: &fakeProvider{identity: &domain.Identity{Email: "g@x.com", EmailVerified: true}},
			tamper:   true,
		},
		{
			name:     "exchange refused",
			provider: &fakeProvider{err: domain.WrapIdentityRejected("invalid_grant")},
		},
		{
			name:     "provider unreachable",
			provider: &fakeProvider{err: domain.WrapNetworkOperation("exchange", errors.New("dial tcp"))},
		},
		{
			name:     "unverified email",
			provider: &fakeProvider{identity: &domain.Identity{Email: "g@x.com"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestServer(t, WithIdentityProvider(tt.provider))
			b := env.newBrowser(t)

			assertRedirect(t, googleLogin(t, b, tt.tamper), "/login")
			if b.sessionToken() != "" {
				t.Error("rejected federated login set a session cookie")
			}
		})
	}
}

func TestGoogleCallbackWithoutStateCookie(t *testing.T) {
	provider := &fakeProvider{identity: &domain.Identity{Email: "g@x.com", EmailVerified: true}}
	env := setupTestServer(t, WithIdentityProvider(provider))

	resp, _ := env.newBrowser(t).get("/auth/google/secrets?code=c&state=anything")
	assertRedirect(t, resp, "/login")
	if len(provider.codes) != 0 {
		t.Error("code exchanged without a matching state")
	}

	resp, _ = env.newBrowser(t).get("/auth/google/secrets?error=access_denied")
	assertRedirect(t, resp, "/login")
}

func TestSensitivePagesAreNotCached(t *testing.T) {
	env := setupTestServer(t)
	b := env.newBrowser(t)

	resp, _ := b.get("/login")
	if got := resp.Header.Get("Cache-Control"); !strings.Contains(got, "no-store") {
		t.Errorf("Cache-Control = %q", got)
	}
	if resp.Header.Get("X-Frame-Options") != "DENY" {
		t.Error("missing security headers")
	}
}

func TestHealth(t *testing.T) {
	env := setupTestServer(t)

	resp, body := env.newBrowser(t).get("/api/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		t.Fatalf("invalid JSON %q: %v", body, err)
	}
	if payload["status"] != "healthy" {
		t.Errorf("status = %q", payload["status"])
	}
}

// setupMockServer builds a server over sqlmock for store failure paths
func setupMockServer(t *testing.T) (*Server, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	server := NewServer(testConfig(), db.Wrap(sqlDB, db.DialectPostgres),
		WithLogger(logger.Discard()),
		WithPasswordHasher(auth.NewHasher(bcrypt.MinCost)),
	)
	return server, mock
}

func serve(server *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	return w
}

func formRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestStoreFailures(t *testing.T) {
	t.Run("register", func(t *testing.T) {
		server, mock := setupMockServer(t)
		mock.ExpectQuery("INSERT INTO users").WillReturnError(errors.New("db down"))

		w := serve(server, formRequest("/register", credentials("a@x.com", "p1")))
		if w.Code != http.StatusInternalServerError || w.Body.String() != constants.MsgRegistrationFailed {
			t.Errorf("got %d %q", w.Code, w.Body.String())
		}
	})

	t.Run("login", func(t *testing.T) {
		server, mock := setupMockServer(t)
		mock.ExpectQuery("SELECT .* FROM users WHERE email").WillReturnError(errors.New("db down"))

		w := serve(server, formRequest("/login", credentials("a@x.com", "p1")))
		if w.Code != http.StatusInternalServerError {
			t.Errorf("got %d %q", w.Code, w.Body.String())
		}
	})

	t.Run("session create", func(t *testing.T) {
		server, mock := setupMockServer(t)
		rows := sqlmock.NewRows([]string{"id", "email", "password", "secret", "created_at"}).
			AddRow("u-1", "a@x.com", "hash", nil, time.Now())
		mock.ExpectQuery("INSERT INTO users").WillReturnRows(rows)
		mock.ExpectExec("INSERT INTO sessions").WillReturnError(errors.New("db down"))

		w := serve(server, formRequest("/register", credentials("a@x.com", "p1")))
		if w.Code != http.StatusInternalServerError || w.Body.String() != constants.MsgSessionLoginFailed {
			t.Errorf("got %d %q", w.Code, w.Body.String())
		}
	})

	t.Run("session load", func(t *testing.T) {
		server, mock := setupMockServer(t)

		// Mint a valid token with the same secret against a real store
		database, err := db.Init(filepath.Join(t.TempDir(), "mint.db"))
		if err != nil {
			t.Fatalf("Failed to initialize database: %v", err)
		}
		defer database.Close()
		user, _ := database.InsertUser(context.Background(), "a@x.com", "hash")
		minter := session.NewManager(database, database, session.Options{Secret: "test-secret"}, logger.Discard())
		token, _, err := minter.Serialize(context.Background(), user)
		if err != nil {
			t.Fatalf("Serialize() error = %v", err)
		}

		mock.ExpectQuery("SELECT .* FROM sessions").WillReturnError(errors.New("db down"))

		req := httptest.NewRequest(http.MethodGet, "/secrets", nil)
		req.AddCookie(&http.Cookie{Name: constants.SessionCookieName, Value: token})
		w := serve(server, req)
		if w.Code != http.StatusInternalServerError || w.Body.String() != constants.MsgServerError {
			t.Errorf("got %d %q", w.Code, w.Body.String())
		}
	})

	t.Run("health", func(t *testing.T) {
		server, mock := setupMockServer(t)
		mock.ExpectPing().WillReturnError(errors.New("db down"))

		w := serve(server, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("got %d", w.Code)
		}
	})
}

func TestRequestBodyLimit(t *testing.T) {
	env := setupTestServer(t)

	big := credentials("a@x.com", strings.Repeat("x", constants.MaxFormBodySize))
	w := serve(env.server, formRequest("/register", big))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

// chunkedFormRequest builds a POST whose length is unknown up front
func chunkedFormRequest(path string, parts ...io.Reader) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, io.MultiReader(parts...))
	req.ContentLength = -1
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestOversizedChunkedSubmitKeepsSecret(t *testing.T) {
	env := setupTestServer(t)
	b := env.newBrowser(t)
	b.post("/register", credentials("a@x.com", "p1"))
	resp, _ := b.post("/submit", url.Values{"secret": {"keep-me"}})
	assertRedirect(t, resp, "/secrets")

	req := chunkedFormRequest("/submit",
		strings.NewReader("secret="),
		strings.NewReader(strings.Repeat("x", 2*constants.MaxFormBodySize)),
	)
	req.AddCookie(&http.Cookie{Name: constants.SessionCookieName, Value: b.sessionToken()})

	w := serve(env.server, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}

	user, err := env.database.FindUserByEmail(context.Background(), "a@x.com")
	if err != nil || user == nil {
		t.Fatalf("FindUserByEmail() = %v, %v", user, err)
	}
	if got := user.SecretValue(); got != "keep-me" {
		t.Errorf("secret = %q after a rejected body, want keep-me", got)
	}
}

func TestOversizedChunkedRegisterIsRejected(t *testing.T) {
	env := setupTestServer(t)

	w := serve(env.server, chunkedFormRequest("/register",
		strings.NewReader("password=p1&username="),
		strings.NewReader(strings.Repeat("a", 2*constants.MaxFormBodySize)),
	))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413 (%q)", w.Code, w.Body.String())
	}

	var count int
	env.database.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	if count != 0 {
		t.Errorf("users = %d, want 0", count)
	}
}

func TestSubmitWithoutSecretField(t *testing.T) {
	env := setupTestServer(t)
	b := env.newBrowser(t)
	b.post("/register", credentials("a@x.com", "p1"))
	b.post("/submit", url.Values{"secret": {"keep-me"}})

	resp, _ := b.post("/submit", url.Values{"other": {"x"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}

	// An explicitly empty secret is a valid overwrite
	resp, _ = b.post("/submit", url.Values{"secret": {""}})
	assertRedirect(t, resp, "/secrets")

	user, _ := env.database.FindUserByEmail(context.Background(), "a@x.com")
	if user.SecretValue() != "" {
		t.Errorf("secret = %q, want empty", user.SecretValue())
	}
}

// vanishedUserAccounts reports the caller's account as gone
type vanishedUserAccounts struct {
	domain.AccountService
}

func (vanishedUserAccounts) Secret(context.Context, string) (string, error) {
	return "", domain.ErrUserNotFound
}

func TestSecretsPageWhenAccountVanishes(t *testing.T) {
	env := setupTestServer(t)
	b := env.newBrowser(t)
	b.post("/register", credentials("a@x.com", "p1"))

	env.server.accounts = vanishedUserAccounts{AccountService: env.server.accounts}

	req := httptest.NewRequest(http.MethodGet, "/secrets", nil)
	req.AddCookie(&http.Cookie{Name: constants.SessionCookieName, Value: b.sessionToken()})
	w := serve(env.server, req)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/login" {
		t.Errorf("got %d %q, want 302 /login", w.Code, w.Header().Get("Location"))
	}
}
