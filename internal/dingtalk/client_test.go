package dingtalk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/canteen-service/internal/config"
	apperrors "github.com/spec-kit/canteen-service/pkg/util"
)

type fakeGateway struct {
	tokenCalls   atomic.Int64
	token        string
	expiresIn    int64
	tokenErrCode int
	userID       string
}

func (g *fakeGateway) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/gettoken", func(w http.ResponseWriter, r *http.Request) {
		g.tokenCalls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errcode":      g.tokenErrCode,
			"errmsg":       "ok",
			"access_token": g.token,
			"expires_in":   g.expiresIn,
		})
	})
	mux.HandleFunc("/user/getuserinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") != g.token {
			_ = json.NewEncoder(w).Encode(map[string]any{"errcode": 40014, "errmsg": "invalid token"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"errcode": 0, "errmsg": "ok", "userid": g.userID})
	})
	mux.HandleFunc("/user/get", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errcode": 0,
			"errmsg":  "ok",
			"userid":  r.URL.Query().Get("userid"),
			"name":    "Wang Wei",
			"avatar":  "/avatar.png",
		})
	})
	return mux
}

func newTestClient(t *testing.T, gateway *fakeGateway) (*Client, func(time.Duration)) {
	t.Helper()
	server := httptest.NewServer(gateway.handler())
	t.Cleanup(server.Close)

	client := NewClient(config.DingTalkConfig{
		AppKey:                   "key",
		AppSecret:                "secret",
		BaseURL:                  server.URL,
		HTTPTimeoutSeconds:       5,
		TokenSafetyMarginSeconds: 300,
	}, zap.NewNop())

	current := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return current }
	advance := func(d time.Duration) { current = current.Add(d) }
	return client, advance
}

func TestAccessTokenCached(t *testing.T) {
	gateway := &fakeGateway{token: "tok-1", expiresIn: 7200}
	client, _ := newTestClient(t, gateway)

	for i := 0; i < 3; i++ {
		token, err := client.AccessToken(context.Background())
		if err != nil {
			t.Fatalf("AccessToken returned error: %v", err)
		}
		if token != "tok-1" {
			t.Fatalf("expected tok-1, got %q", token)
		}
	}
	if calls := gateway.tokenCalls.Load(); calls != 1 {
		t.Errorf("expected a single gateway fetch, got %d", calls)
	}
}

func TestAccessTokenRefreshAppliesSafetyMargin(t *testing.T) {
	gateway := &fakeGateway{token: "tok-1", expiresIn: 7200}
	client, advance := newTestClient(t, gateway)

	if _, err := client.AccessToken(context.Background()); err != nil {
		t.Fatalf("AccessToken returned error: %v", err)
	}

	// 7200s lifetime minus the 300s margin: still cached one second before
	advance(6899 * time.Second)
	if _, err := client.AccessToken(context.Background()); err != nil {
		t.Fatalf("AccessToken returned error: %v", err)
	}
	if calls := gateway.tokenCalls.Load(); calls != 1 {
		t.Fatalf("token refreshed before margin expiry, calls=%d", calls)
	}

	gateway.token = "tok-2"
	advance(2 * time.Second)
	token, err := client.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("AccessToken returned error: %v", err)
	}
	if token != "tok-2" {
		t.Errorf("expected refreshed token tok-2, got %q", token)
	}
	if calls := gateway.tokenCalls.Load(); calls != 2 {
		t.Errorf("expected exactly one refresh, calls=%d", calls)
	}
}

func TestAccessTokenGatewayError(t *testing.T) {
	gateway := &fakeGateway{tokenErrCode: 40089, expiresIn: 7200}
	client, _ := newTestClient(t, gateway)

	_, err := client.AccessToken(context.Background())
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "UPSTREAM_ERROR" {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestResolveLoginCode(t *testing.T) {
	gateway := &fakeGateway{token: "tok-1", expiresIn: 7200, userID: "u42"}
	client, _ := newTestClient(t, gateway)

	userID, err := client.ResolveLoginCode(context.Background(), "code")
	if err != nil {
		t.Fatalf("ResolveLoginCode returned error: %v", err)
	}
	if userID != "u42" {
		t.Errorf("expected u42, got %q", userID)
	}
}

func TestResolveLoginCodeEmptyUserID(t *testing.T) {
	gateway := &fakeGateway{token: "tok-1", expiresIn: 7200, userID: ""}
	client, _ := newTestClient(t, gateway)

	_, err := client.ResolveLoginCode(context.Background(), "stale-code")
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.HTTPStatus != 401 {
		t.Fatalf("expected unauthorized error for empty userid, got %v", err)
	}
}

func TestFetchUserProfile(t *testing.T) {
	gateway := &fakeGateway{token: "tok-1", expiresIn: 7200}
	client, _ := newTestClient(t, gateway)

	profile, err := client.FetchUserProfile(context.Background(), "u42")
	if err != nil {
		t.Fatalf("FetchUserProfile returned error: %v", err)
	}
	if profile.UserID != "u42" || profile.Name != "Wang Wei" || profile.Avatar != "/avatar.png" {
		t.Errorf("unexpected profile: %+v", profile)
	}
}
