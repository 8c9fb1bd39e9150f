package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"cmaxbonds/internal/metrics"
	"cmaxbonds/internal/middleware"
	"cmaxbonds/internal/repository"
	"cmaxbonds/internal/service"
	"cmaxbonds/internal/usecase"
	"cmaxbonds/pkg/logger"
)

const testCode = "123456"

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

type testServer struct {
	t   *testing.T
	srv *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.Nop()
	rec := metrics.New()

	users := repository.NewUserJSONRepository(filepath.Join(t.TempDir(), "users.json"))
	resets := repository.NewResetMemoryStore(time.Now)
	accounts := usecase.NewAccountService(users, resets, 10*time.Minute, log, rec,
		usecase.WithCodeGenerator(func() (string, error) { return testCode, nil }),
	)
	if err := accounts.EnsureDefaultUsers(context.Background()); err != nil {
		t.Fatalf("EnsureDefaultUsers: %v", err)
	}

	catalog := service.DefaultBondCatalog()
	bonds := usecase.NewBondService(
		catalog,
		service.NewPricingService(catalog, service.WithSeed(7)),
		service.NewRecommendationService(time.Date(2022, 11, 16, 0, 0, 0, 0, time.UTC)),
		rec,
	)

	e, err := NewServer(ServerDeps{
		Accounts:       accounts,
		Admin:          usecase.NewAdminService(users, log, rec),
		Bonds:          bonds,
		Auth:           middleware.NewAuth("test-secret", time.Hour, users),
		ExposeCode:     true,
		StreamInterval: 20 * time.Millisecond,
		Logger:         log,
		Metrics:        rec,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return &testServer{t: t, srv: srv}
}

// client returns a cookie-keeping client that does not follow redirects
func (s *testServer) client() *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (s *testServer) do(c *http.Client, method, path string, body io.Reader, contentType string) *http.Response {
	s.t.Helper()
	req, err := http.NewRequest(method, s.srv.URL+path, body)
	if err != nil {
		s.t.Fatalf("new request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.Do(req)
	if err != nil {
		s.t.Fatalf("%s %s: %v", method, path, err)
	}
	s.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *testServer) get(c *http.Client, path string) *http.Response {
	return s.do(c, http.MethodGet, path, nil, "")
}

func (s *testServer) postForm(c *http.Client, path string, form url.Values) *http.Response {
	return s.do(c, http.MethodPost, path, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

func (s *testServer) postJSON(c *http.Client, path, body string) *http.Response {
	return s.do(c, http.MethodPost, path, strings.NewReader(body), "application/json")
}

// login opens an API session on c
func (s *testServer) login(c *http.Client, username, password string) {
	s.t.Helper()
	resp := s.postJSON(c, "/api/auth/login", `{"username":"`+username+`","password":"`+password+`"}`)
	if resp.StatusCode != http.StatusOK {
		s.t.Fatalf("login %s: status %d", username, resp.StatusCode)
	}
}

func decode(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return env
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	resp := s.get(s.client(), "/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if env := decode(t, resp); !env.Success {
		t.Error("success = false")
	}
}

func TestAPILogin(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"valid", `{"username":"usuario1","password":"user123"}`, http.StatusOK},
		{"wrong password", `{"username":"usuario1","password":"nope"}`, http.StatusUnauthorized},
		{"unknown user", `{"username":"ghost","password":"user123"}`, http.StatusUnauthorized},
		{"missing fields", `{}`, http.StatusBadRequest},
		{"malformed", `{"username":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.postJSON(s.client(), "/api/auth/login", tt.body)
			if resp.StatusCode != tt.wantCode {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantCode)
			}
			env := decode(t, resp)
			if env.Success != (tt.wantCode == http.StatusOK) {
				t.Errorf("success = %v", env.Success)
			}
			if tt.wantCode != http.StatusOK {
				return
			}

			var data struct {
				Token string `json:"token"`
				User  struct {
					Username string `json:"username"`
					Role     string `json:"role"`
					Password string `json:"password"`
				} `json:"user"`
			}
			if err := json.Unmarshal(env.Data, &data); err != nil {
				t.Fatalf("decode data: %v", err)
			}
			if data.Token == "" || data.User.Username != "usuario1" || data.User.Role != "user" {
				t.Errorf("unexpected login data %s", env.Data)
			}
			if data.User.Password != "" {
				t.Error("password leaked in login response")
			}
		})
	}
}

func TestBondRoutesRequireSession(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/bonds", "/api/bond/CMAX-2022-001", "/api/realtime/CMAX-2022-001"} {
		resp := s.get(s.client(), path)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", path, resp.StatusCode)
		}
		if env := decode(t, resp); env.Success {
			t.Errorf("%s: success = true", path)
		}
	}
}

func TestGetBond(t *testing.T) {
	s := newTestServer(t)
	c := s.client()
	s.login(c, "usuario1", "user123")

	resp := s.get(c, "/api/bond/CMAX-2022-001")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var snapshot struct {
		Bond struct {
			ID string `json:"id"`
		} `json:"bond_info"`
		History struct {
			Labels       []string  `json:"labels"`
			Prices       []float64 `json:"prices"`
			CurrentPrice float64   `json:"current_price"`
		} `json:"history"`
		Recommendation struct {
			Action string `json:"recommendation"`
			Reason string `json:"reason"`
		} `json:"recommendation"`
	}
	if err := json.Unmarshal(decode(t, resp).Data, &snapshot); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if snapshot.Bond.ID != "CMAX-2022-001" {
		t.Errorf("bond id = %q", snapshot.Bond.ID)
	}
	if len(snapshot.History.Prices) != 24 || len(snapshot.History.Labels) != 24 {
		t.Errorf("history has %d prices and %d labels, want 24", len(snapshot.History.Prices), len(snapshot.History.Labels))
	}
	if snapshot.History.CurrentPrice != snapshot.History.Prices[len(snapshot.History.Prices)-1] {
		t.Error("current price is not the last point")
	}
	switch snapshot.Recommendation.Action {
	case "SELL", "HOLD", "BUY_MORE":
	default:
		t.Errorf("recommendation = %q", snapshot.Recommendation.Action)
	}

	resp = s.get(c, "/api/bond/NOPE")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown bond status = %d, want 404", resp.StatusCode)
	}
	if env := decode(t, resp); env.Success || env.Message == "" {
		t.Errorf("unknown bond envelope = %+v", env)
	}
}

func TestListBonds(t *testing.T) {
	s := newTestServer(t)
	c := s.client()
	s.login(c, "usuario1", "user123")

	var bonds []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(decode(t, s.get(c, "/api/bonds")).Data, &bonds); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(bonds) != 2 || bonds[0].ID != "CMAX-2022-001" || bonds[1].ID != "CMAX-2022-002" {
		t.Errorf("bonds = %+v", bonds)
	}
}

func TestGetRealtime(t *testing.T) {
	s := newTestServer(t)
	c := s.client()
	s.login(c, "usuario1", "user123")

	tests := []struct {
		query      string
		wantPeriod string
		wantPoints int
	}{
		{"", "24h", 24},
		{"?period=24h", "24h", 24},
		{"?period=7d", "7d", 7},
		{"?period=1m", "1m", 15},
		{"?period=1y", "24h", 24},
	}

	for _, tt := range tests {
		t.Run(tt.wantPeriod+tt.query, func(t *testing.T) {
			resp := s.get(c, "/api/realtime/CMAX-2022-002"+tt.query)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}

			var view struct {
				Quote struct {
					CurrentPrice float64 `json:"current_price"`
					Period       string  `json:"period"`
					History      struct {
						Hours  []string  `json:"hours"`
						Prices []float64 `json:"prices"`
					} `json:"history_24h"`
				} `json:"realtime_data"`
			}
			if err := json.Unmarshal(decode(t, resp).Data, &view); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if view.Quote.Period != tt.wantPeriod {
				t.Errorf("period = %q, want %q", view.Quote.Period, tt.wantPeriod)
			}
			if len(view.Quote.History.Prices) != tt.wantPoints {
				t.Errorf("points = %d, want %d", len(view.Quote.History.Prices), tt.wantPoints)
			}
			// 962.75 +/- 0.5%
			if p := view.Quote.CurrentPrice; p < 957.93 || p > 967.57 {
				t.Errorf("current price %.2f outside the realtime band", p)
			}
		})
	}

	if resp := s.get(c, "/api/realtime/NOPE?period=7d"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown bond status = %d, want 404", resp.StatusCode)
	}
}

func TestPages(t *testing.T) {
	s := newTestServer(t)
	c := s.client()

	expectRedirect := func(resp *http.Response, location string) {
		t.Helper()
		if resp.StatusCode != http.StatusFound {
			t.Fatalf("status = %d, want 302", resp.StatusCode)
		}
		if got := resp.Header.Get("Location"); !strings.HasPrefix(got, location) {
			t.Fatalf("Location = %q, want %q", got, location)
		}
	}

	expectRedirect(s.get(c, "/"), "/login")
	expectRedirect(s.get(c, "/dashboard"), "/login")

	if resp := s.get(c, "/login"); resp.StatusCode != http.StatusOK {
		t.Fatalf("login page status = %d", resp.StatusCode)
	}

	expectRedirect(s.postForm(c, "/login", url.Values{"username": {"usuario1"}, "password": {"bad"}}), "/login?error=")
	expectRedirect(s.postForm(c, "/login", url.Values{"username": {"usuario1"}, "password": {"user123"}}), "/dashboard")

	expectRedirect(s.get(c, "/"), "/dashboard")
	expectRedirect(s.get(c, "/login"), "/dashboard")

	resp := s.get(c, "/dashboard")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"usuario1", "CMAX-2022-001", "Bono CMAX Verde 2022"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("dashboard does not mention %q", want)
		}
	}
	if strings.Contains(string(body), `href="/admin/users"`) {
		t.Error("dashboard links the admin page for a regular user")
	}

	expectRedirect(s.get(c, "/logout"), "/login")
	expectRedirect(s.get(c, "/dashboard"), "/login")
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)

	user := s.client()
	s.login(user, "usuario1", "user123")
	for _, path := range []string{"/api/admin/users", "/admin/users"} {
		if resp := s.get(user, path); resp.StatusCode != http.StatusForbidden {
			t.Errorf("%s as user: status = %d, want 403", path, resp.StatusCode)
		}
	}

	admin := s.client()
	s.login(admin, "admin", "admin123")

	resp := s.get(admin, "/admin/users")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin page status = %d", resp.StatusCode)
	}

	addUser := func(form url.Values) *http.Response {
		return s.postForm(admin, "/admin/add-user", form)
	}

	resp = addUser(url.Values{"username": {"trader"}, "password": {"secret1"}, "email": {"trader@cmax.com"}})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add user status = %d", resp.StatusCode)
	}
	var created struct {
		Role string `json:"role"`
	}
	if err := json.Unmarshal(decode(t, resp).Data, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Role != "user" {
		t.Errorf("default role = %q, want user", created.Role)
	}

	resp = addUser(url.Values{"username": {"trader"}, "password": {"secret1"}, "email": {"t@cmax.com"}})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate add status = %d, want 409", resp.StatusCode)
	}
	if env := decode(t, resp); env.Message != "user already exists" {
		t.Errorf("duplicate add message = %q, want %q", env.Message, "user already exists")
	}

	resp = addUser(url.Values{"username": {"other"}, "password": {"secret1"}, "email": {"not-an-email"}, "role": {"root"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid add status = %d, want 400", resp.StatusCode)
	}
	var fieldErrs []ValidationError
	if err := json.Unmarshal(decode(t, resp).Error, &fieldErrs); err != nil {
		t.Fatalf("decode errors: %v", err)
	}
	if len(fieldErrs) != 2 {
		t.Errorf("got %d field errors, want 2: %+v", len(fieldErrs), fieldErrs)
	}

	// the new user can log in right away
	s.login(s.client(), "trader", "secret1")

	var list struct {
		Users []struct {
			Username string `json:"username"`
		} `json:"users"`
		Count int `json:"count"`
	}
	if err := json.Unmarshal(decode(t, s.get(admin, "/api/admin/users")).Data, &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Count != 3 {
		t.Errorf("count = %d, want 3", list.Count)
	}

	if resp := s.get(admin, "/admin/delete-user/admin"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("self delete status = %d, want 400", resp.StatusCode)
	}
	if resp := s.get(admin, "/admin/delete-user/ghost"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown delete status = %d, want 400", resp.StatusCode)
	}

	resp = s.get(admin, "/admin/delete-user/trader")
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/admin/users" {
		t.Fatalf("delete status = %d location = %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp = s.do(admin, http.MethodDelete, "/api/admin/users/usuario1", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("api delete status = %d", resp.StatusCode)
	}
	// deleting again fails with the bare domain message
	resp = s.do(admin, http.MethodDelete, "/api/admin/users/usuario1", nil, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("second delete status = %d, want 400", resp.StatusCode)
	}
	if env := decode(t, resp); env.Message != "cannot delete user" {
		t.Errorf("second delete message = %q, want %q", env.Message, "cannot delete user")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	s := newTestServer(t)
	c := s.client()

	resp := s.postForm(c, "/forgot-password", url.Values{"username": {"ghost"}})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown user status = %d, want 404", resp.StatusCode)
	}
	if env := decode(t, resp); env.Message != "user not found" {
		t.Errorf("unknown user message = %q, want %q", env.Message, "user not found")
	}

	resp = s.postForm(c, "/forgot-password", url.Values{"username": {"usuario1"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("forgot status = %d", resp.StatusCode)
	}
	if env := decode(t, resp); !strings.Contains(env.Message, testCode) {
		t.Errorf("message %q does not expose the code", env.Message)
	}

	expectFailure := func(resp *http.Response, message string) {
		t.Helper()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", resp.StatusCode)
		}
		if env := decode(t, resp); env.Success || !strings.Contains(env.Message, message) {
			t.Fatalf("envelope = %+v, want message %q", env, message)
		}
	}

	expectFailure(s.postForm(c, "/reset-password", url.Values{"new_password": {"newpass1"}}), "verification required")
	expectFailure(s.postForm(c, "/verify-code", url.Values{"code": {"654321"}}), "incorrect code")

	if resp := s.postForm(c, "/verify-code", url.Values{"code": {testCode}}); resp.StatusCode != http.StatusOK {
		t.Fatalf("verify status = %d", resp.StatusCode)
	}
	if resp := s.postForm(c, "/reset-password", url.Values{"new_password": {"newpass1"}}); resp.StatusCode != http.StatusOK {
		t.Fatalf("reset status = %d", resp.StatusCode)
	}

	// the session is consumed
	expectFailure(s.postForm(c, "/reset-password", url.Values{"new_password": {"again123"}}), "verification required")

	if resp := s.postJSON(s.client(), "/api/auth/login", `{"username":"usuario1","password":"user123"}`); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("old password status = %d, want 401", resp.StatusCode)
	}
	s.login(s.client(), "usuario1", "newpass1")
}

func TestVerifyCodeWithoutResetSession(t *testing.T) {
	s := newTestServer(t)

	resp := s.postForm(s.client(), "/verify-code", url.Values{"code": {testCode}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if env := decode(t, resp); env.Message != "code expired" {
		t.Errorf("message = %q, want %q", env.Message, "code expired")
	}

	resp = s.postForm(s.client(), "/verify-code", url.Values{"code": {"12ab"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed code status = %d, want 400", resp.StatusCode)
	}
}

func TestRealtimeStream(t *testing.T) {
	s := newTestServer(t)
	c := s.client()

	resp := s.postJSON(c, "/api/auth/login", `{"username":"usuario1","password":"user123"}`)
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(decode(t, resp).Data, &login); err != nil {
		t.Fatalf("decode login: %v", err)
	}

	wsBase := "ws" + strings.TrimPrefix(s.srv.URL, "http")
	header := http.Header{"Authorization": {"Bearer " + login.Token}}

	if _, resp, err := websocket.DefaultDialer.Dial(wsBase+"/ws/realtime/CMAX-2022-001", nil); err == nil {
		t.Fatal("dial without a session succeeded")
	} else if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("dial without a session: %v", err)
	}

	if _, resp, err := websocket.DefaultDialer.Dial(wsBase+"/ws/realtime/NOPE", header); err == nil {
		t.Fatal("dial for an unknown bond succeeded")
	} else if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("dial unknown bond: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsBase+"/ws/realtime/CMAX-2022-001?period=7d", header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	for i := 0; i < 3; i++ {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg struct {
			Success bool `json:"success"`
			Data    struct {
				Quote struct {
					Period  string `json:"period"`
					History struct {
						Prices []float64 `json:"prices"`
					} `json:"history_24h"`
				} `json:"realtime_data"`
			} `json:"data"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read message %d: %v", i, err)
		}
		if !msg.Success || msg.Data.Quote.Period != "7d" || len(msg.Data.Quote.History.Prices) != 7 {
			t.Fatalf("message %d = %+v", i, msg)
		}
	}
}
