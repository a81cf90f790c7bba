package gigachat

import (
	"context"
	"sync"
	"time"

	"plate-recipe-api/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// expiryMargin is how long before the lease's own deadline the token
// stops being treated as usable.
const expiryMargin = 30 * time.Second

// Lease is a cached, time-bounded access token from the OAuth endpoint.
type Lease struct {
	Token     string
	ExpiresAt time.Time
}

func (l Lease) usable(now time.Time, margin time.Duration) bool {
	return l.Token != "" && now.Add(margin).Before(l.ExpiresAt)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	// GigaChat returns expires_at as epoch milliseconds; other OAuth
	// backends return expires_in as relative seconds. Both normalize
	// to an absolute deadline.
	ExpiresAt int64 `json:"expires_at"`
	ExpiresIn int64 `json:"expires_in"`
}

// LeaseManager owns the process-wide credential lease. Refresh happens
// under the mutex, so concurrent requests needing a token coalesce into
// a single outbound OAuth call instead of racing.
type LeaseManager struct {
	client  *resty.Client
	authKey string
	scope   string
	margin  time.Duration

	mu    sync.Mutex
	lease Lease
}

// NewLeaseManager creates a lease manager talking to the given OAuth
// endpoint with a Basic authorization key.
func NewLeaseManager(oauthURL, authKey, scope string, timeout time.Duration) *LeaseManager {
	client := resty.New().
		SetBaseURL(oauthURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetHeader("Accept", "application/json")

	return &LeaseManager{
		client:  client,
		authKey: authKey,
		scope:   scope,
		margin:  expiryMargin,
	}
}

// Token returns a usable access token, refreshing the lease when it is
// absent or within the expiry margin.
func (m *LeaseManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lease.usable(time.Now(), m.margin) {
		return m.lease.Token, nil
	}

	lease, err := m.fetch(ctx)
	if err != nil {
		return "", err
	}
	m.lease = lease

	common.LogInfo("credential lease refreshed",
		zap.Time("expires_at", lease.ExpiresAt),
	)
	return lease.Token, nil
}

// Invalidate drops the cached lease if it still carries the given
// token. A lease already replaced by a concurrent refresh is left
// alone.
func (m *LeaseManager) Invalidate(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lease.Token == token {
		m.lease = Lease{}
	}
}

func (m *LeaseManager) fetch(ctx context.Context) (Lease, error) {
	if m.authKey == "" {
		return Lease{}, newError(KindAuthentication, "GIGACHAT_AUTH_KEY is empty")
	}

	var token tokenResponse
	resp, err := m.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Basic "+m.authKey).
		SetHeader("RqUID", common.GenerateUUID()).
		SetFormData(map[string]string{"scope": m.scope}).
		SetResult(&token).
		Post("")
	if err != nil {
		return Lease{}, newError(KindTransient, "oauth request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return Lease{}, newError(classifyStatus(resp.StatusCode()),
			"oauth endpoint returned HTTP %d: %s", resp.StatusCode(), resp.String())
	}
	if token.AccessToken == "" {
		return Lease{}, newError(KindMalformed, "oauth response without access_token")
	}

	expiresAt, err := normalizeExpiry(token, time.Now())
	if err != nil {
		return Lease{}, err
	}
	return Lease{Token: token.AccessToken, ExpiresAt: expiresAt}, nil
}

func normalizeExpiry(token tokenResponse, now time.Time) (time.Time, error) {
	switch {
	case token.ExpiresAt > 0:
		return time.UnixMilli(token.ExpiresAt), nil
	case token.ExpiresIn > 0:
		return now.Add(time.Duration(token.ExpiresIn) * time.Second), nil
	default:
		return time.Time{}, newError(KindMalformed, "oauth response without expires_at or expires_in")
	}
}
