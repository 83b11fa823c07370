package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kovrenik/sessionguard/session"
)

const (
	// VerifyPath is the backend endpoint that revalidates a bearer token.
	VerifyPath = "/api/auth/verify"
	// LogoutPath is the best-effort server-side logout endpoint.
	LogoutPath = "/api/auth/logout"

	maxBodyBytes = 1 << 20
)

// ErrBaseURLRequired is returned by [NewClient] when no endpoint is set.
var ErrBaseURLRequired = errors.New("verify: base URL required")

// ErrTokenExpired marks tokens rejected offline by JWT inspection.
var ErrTokenExpired = errors.New("verify: token expired")

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxAttempts = 3
	defaultRetryStep   = time.Second
)

// Options configures a [Client]. Zero values fall back to defaults; only
// BaseURL is mandatory.
type Options struct {
	// BaseURL of the marketplace backend, without trailing slash.
	BaseURL string
	// HTTPClient overrides the transport; defaults to a fresh http.Client.
	HTTPClient *http.Client
	// Timeout bounds each individual attempt. The original gate had no
	// timeout and could hang in "checking" forever; here it is mandatory.
	Timeout time.Duration
	// MaxAttempts is the total attempt budget on network-level failures.
	MaxAttempts int
	// RetryStep scales the linear backoff: attempt n sleeps n×RetryStep.
	RetryStep time.Duration
	// InspectJWT enables the offline expiry pre-check for JWT-shaped
	// tokens. Opaque tokens always go to the server.
	InspectJWT bool
	Logger     *slog.Logger
}

// Client validates bearer tokens against the backend verify endpoint.
// It is safe for concurrent use.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	timeout     time.Duration
	maxAttempts int
	retryStep   time.Duration
	inspectJWT  bool
	logger      *slog.Logger

	group singleflight.Group

	// test seams
	sleep func(context.Context, time.Duration) error
	now   func() time.Time
}

// NewClient creates a Client from opts.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, ErrBaseURLRequired
	}
	c := &Client{
		baseURL:     opts.BaseURL,
		httpClient:  opts.HTTPClient,
		timeout:     opts.Timeout,
		maxAttempts: opts.MaxAttempts,
		retryStep:   opts.RetryStep,
		inspectJWT:  opts.InspectJWT,
		logger:      opts.Logger,
		sleep:       sleepCtx,
		now:         time.Now,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = defaultMaxAttempts
	}
	if c.retryStep <= 0 {
		c.retryStep = defaultRetryStep
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// Validate checks token against the verify endpoint. Network-level failures
// are retried with linear backoff; server rejections are final. Concurrent
// calls for the same token share one request and one outcome.
func (c *Client) Validate(ctx context.Context, token string) Result {
	if token == "" {
		return Result{Status: StatusRejected}
	}
	if c.inspectJWT && tokenExpired(token, c.now()) {
		return Result{Status: StatusRejected, Err: ErrTokenExpired}
	}

	v, _, _ := c.group.Do(token, func() (any, error) {
		return c.validateWithRetry(ctx, token), nil
	})
	res, ok := v.(Result)
	if !ok {
		return Result{Status: StatusNetworkError, Err: errors.New("verify: internal result type")}
	}
	return res
}

func (c *Client) validateWithRetry(ctx context.Context, token string) Result {
	var last Result
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		last = c.attempt(ctx, token)
		last.Attempts = attempt
		if last.Status != StatusNetworkError {
			return last
		}
		if attempt == c.maxAttempts {
			break
		}
		delay := time.Duration(attempt) * c.retryStep
		c.logger.Debug("verify: transient failure, backing off",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.Any("error", last.Err))
		if err := c.sleep(ctx, delay); err != nil {
			last.Err = err
			return last
		}
	}
	return last
}

func (c *Client) attempt(ctx context.Context, token string) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+VerifyPath, nil)
	if err != nil {
		return Result{Status: StatusRejected, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{Status: StatusNetworkError, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{Status: StatusRejected, Err: fmt.Errorf("verify: endpoint status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Result{Status: StatusNetworkError, Err: err}
	}

	user, err := decodeVerifyBody(body)
	if err != nil {
		return Result{Status: StatusRejected, Err: err}
	}
	return Result{Status: StatusOK, User: user}
}

// Logout tells the backend to drop the token. Best effort: failures are
// logged and swallowed, local logout proceeds regardless.
func (c *Client) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+LogoutPath, nil)
	if err != nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("verify: server-side logout failed", slog.Any("error", err))
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	_ = resp.Body.Close()
}

type verifyBody struct {
	Success bool `json:"success"`
	Data    struct {
		User struct {
			ID    any    `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	} `json:"data"`
}

func decodeVerifyBody(body []byte) (*session.UserSession, error) {
	var parsed verifyBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("verify: malformed body: %w", err)
	}
	if !parsed.Success {
		return nil, errors.New("verify: body without success=true")
	}
	id := stringifyID(parsed.Data.User.ID)
	if id == "" {
		return nil, errors.New("verify: body without user id")
	}
	role, err := session.ParseRole(parsed.Data.User.Role)
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	return &session.UserSession{
		ID:    id,
		Name:  parsed.Data.User.Name,
		Email: parsed.Data.User.Email,
		Role:  role,
	}, nil
}

// stringifyID tolerates the backend sending ids as JSON numbers or strings.
func stringifyID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return fmt.Sprintf("%.0f", id)
	case json.Number:
		return id.String()
	default:
		return ""
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
