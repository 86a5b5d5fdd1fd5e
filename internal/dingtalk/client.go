package dingtalk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/canteen-service/internal/config"
	apperrors "github.com/spec-kit/canteen-service/pkg/util"
)

// UserProfile is the subset of the gateway's user detail used by the service.
type UserProfile struct {
	UserID string `json:"userid"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// tokenCache is the single-slot bearer credential cache. It is ephemeral and
// rebuilt from the gateway whenever the cached value is missing or expired.
type tokenCache struct {
	mu        sync.Mutex
	value     string
	expiresAt time.Time
}

func (c *tokenCache) get(now time.Time) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.value == "" || !now.Before(c.expiresAt) {
		return "", false
	}
	return c.value, true
}

// set overwrites the slot unconditionally; with concurrent refreshes the last
// successful fetch wins.
func (c *tokenCache) set(value string, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = value
	c.expiresAt = expiresAt
}

// Client talks to the DingTalk open API. All calls carry a bounded timeout
// via the underlying http.Client.
type Client struct {
	cfg        config.DingTalkConfig
	httpClient *http.Client
	logger     *zap.Logger
	tokens     *tokenCache
	now        func() time.Time
}

// NewClient constructs a gateway client.
func NewClient(cfg config.DingTalkConfig, logger *zap.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout()},
		logger:     logger,
		tokens:     &tokenCache{},
		now:        time.Now,
	}
}

type tokenResponse struct {
	ErrCode     int    `json:"errcode"`
	ErrMsg      string `json:"errmsg"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// AccessToken returns a valid bearer token, fetching a fresh one from the
// gateway only when the cached token is absent or expired. The cached expiry
// carries the configured safety margin subtracted from the provider's stated
// lifetime.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	now := c.now()
	if token, ok := c.tokens.get(now); ok {
		return token, nil
	}

	body, err := c.get(ctx, "/gettoken", url.Values{
		"appkey":    {c.cfg.AppKey},
		"appsecret": {c.cfg.AppSecret},
	})
	if err != nil {
		return "", apperrors.NewUpstreamError("failed to obtain access token", err)
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", apperrors.NewUpstreamError("failed to obtain access token", err)
	}
	if resp.ErrCode != 0 || resp.AccessToken == "" {
		return "", apperrors.NewUpstreamError("failed to obtain access token",
			fmt.Errorf("gateway errcode %d: %s", resp.ErrCode, resp.ErrMsg))
	}

	lifetime := time.Duration(resp.ExpiresIn)*time.Second - c.cfg.TokenSafetyMargin()
	c.tokens.set(resp.AccessToken, now.Add(lifetime))
	c.logger.Info("refreshed gateway access token", zap.Int64("expires_in", resp.ExpiresIn))
	return resp.AccessToken, nil
}

type userInfoResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
	UserID  string `json:"userid"`
}

// ResolveLoginCode exchanges a login code for the external user id. An empty
// user id means the code is invalid or expired.
func (c *Client) ResolveLoginCode(ctx context.Context, code string) (string, error) {
	body, err := c.ResolveLoginCodeRaw(ctx, code)
	if err != nil {
		return "", err
	}
	var resp userInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", apperrors.NewUpstreamError("failed to resolve login code", err)
	}
	if resp.ErrCode != 0 {
		return "", apperrors.NewUpstreamError("failed to resolve login code",
			fmt.Errorf("gateway errcode %d: %s", resp.ErrCode, resp.ErrMsg))
	}
	if resp.UserID == "" {
		return "", apperrors.NewUnauthorized("user verification failed")
	}
	return resp.UserID, nil
}

// ResolveLoginCodeRaw returns the gateway's user info response body verbatim
// for the passthrough endpoint.
func (c *Client) ResolveLoginCodeRaw(ctx context.Context, code string) (json.RawMessage, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	body, err := c.get(ctx, "/user/getuserinfo", url.Values{
		"access_token": {token},
		"code":         {code},
	})
	if err != nil {
		return nil, apperrors.NewUpstreamError("failed to resolve login code", err)
	}
	return body, nil
}

// FetchUserProfile returns the display name and avatar for a user id.
func (c *Client) FetchUserProfile(ctx context.Context, userID string) (*UserProfile, error) {
	body, err := c.FetchUserProfileRaw(ctx, userID)
	if err != nil {
		return nil, err
	}
	var profile UserProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, apperrors.NewUpstreamError("failed to fetch user profile", err)
	}
	if profile.UserID == "" {
		profile.UserID = userID
	}
	return &profile, nil
}

// FetchUserProfileRaw returns the gateway's user detail response body verbatim
// for the passthrough endpoint.
func (c *Client) FetchUserProfileRaw(ctx context.Context, userID string) (json.RawMessage, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	body, err := c.get(ctx, "/user/get", url.Values{
		"access_token": {token},
		"userid":       {userID},
	})
	if err != nil {
		return nil, apperrors.NewUpstreamError("failed to fetch user profile", err)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := c.cfg.BaseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d for %s", resp.StatusCode, path)
	}
	return io.ReadAll(resp.Body)
}
