package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aluiziolira/go-books-api/config"
	"github.com/aluiziolira/go-books-api/dataset"
	"github.com/aluiziolira/go-books-api/predict"
)

func login(t *testing.T, srv *httptest.Server, username, password string) tokenPair {
	t.Helper()
	var pair tokenPair
	postJSON(t, srv, "/api/v1/auth/login", "", loginRequest{
		Username: username,
		Password: password,
	}, http.StatusOK, &pair)
	return pair
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t, sampleRows)

	pair := login(t, srv, "admin", "s3cret")
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("token pair incomplete: %+v", pair)
	}

	postJSON(t, srv, "/api/v1/auth/login", "", loginRequest{
		Username: "admin",
		Password: "wrong",
	}, http.StatusUnauthorized, nil)

	postJSON(t, srv, "/api/v1/auth/login", "", loginRequest{}, http.StatusUnauthorized, nil)
}

func TestLoginDisabledWithoutAdminUser(t *testing.T) {
	silverDir := t.TempDir()
	store := dataset.NewStore(dataset.NewLoader(silverDir))
	handler := NewHandler(store, predict.NewIntake(t.TempDir()), NewAuth(config.AuthConfig{
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}), NewMetrics())
	srv := httptest.NewServer(NewRouter(handler))
	t.Cleanup(srv.Close)

	postJSON(t, srv, "/api/v1/auth/login", "", loginRequest{
		Username: "admin",
		Password: "anything",
	}, http.StatusUnauthorized, nil)
}

func TestRefresh(t *testing.T) {
	srv := newTestServer(t, sampleRows)
	pair := login(t, srv, "admin", "s3cret")

	var refreshed tokenPair
	postJSON(t, srv, "/api/v1/auth/refresh", pair.RefreshToken, nil, http.StatusOK, &refreshed)
	if refreshed.AccessToken == "" {
		t.Fatalf("refresh returned no access token")
	}

	// Access tokens are not accepted on the refresh endpoint.
	postJSON(t, srv, "/api/v1/auth/refresh", pair.AccessToken, nil, http.StatusUnauthorized, nil)
	postJSON(t, srv, "/api/v1/auth/refresh", "not-a-token", nil, http.StatusUnauthorized, nil)
}

func TestAdminEndpointsRequireAccessToken(t *testing.T) {
	srv := newTestServer(t, sampleRows)
	pair := login(t, srv, "admin", "s3cret")

	postJSON(t, srv, "/api/v1/admin/reload", "", nil, http.StatusUnauthorized, nil)
	postJSON(t, srv, "/api/v1/admin/reload", pair.RefreshToken, nil, http.StatusUnauthorized, nil)

	var reloaded struct {
		Status string `json:"status"`
		Rows   int    `json:"rows"`
	}
	postJSON(t, srv, "/api/v1/admin/reload", pair.AccessToken, nil, http.StatusOK, &reloaded)
	if reloaded.Status != "reloaded" || reloaded.Rows != 3 {
		t.Fatalf("reload response = %+v", reloaded)
	}

	var trigger struct {
		Msg string `json:"msg"`
	}
	postJSON(t, srv, "/api/v1/scraping/trigger", pair.AccessToken, nil, http.StatusAccepted, &trigger)
	if trigger.Msg == "" {
		t.Fatalf("trigger response missing message")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	auth := NewAuth(testAuthConfig)
	auth.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	stale, err := auth.issue("admin", "access", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	srv := newTestServer(t, sampleRows)
	postJSON(t, srv, "/api/v1/admin/reload", stale, nil, http.StatusUnauthorized, nil)
}

func TestTokenSignedWithOtherSecretRejected(t *testing.T) {
	other := NewAuth(config.AuthConfig{
		AdminUser: "admin", AdminPass: "s3cret", JWTSecret: "different",
		AccessTTL: time.Minute, RefreshTTL: time.Hour,
	})
	forged, err := other.issue("admin", "access", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	srv := newTestServer(t, sampleRows)
	postJSON(t, srv, "/api/v1/admin/reload", forged, nil, http.StatusUnauthorized, nil)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "bearer", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "missing header", header: "", want: ""},
		{name: "wrong scheme", header: "Basic abc", want: ""},
		{name: "scheme only", header: "Bearer", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if got := bearerToken(r); got != tt.want {
				t.Fatalf("bearerToken(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}
