package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-faster/errors"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// ClientConfig holds settings for the provider HTTP client.
type ClientConfig struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// verifyResponse mirrors the provider's transaction-verify payload.
type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status  string     `json:"status"`
		Amount  int64      `json:"amount"`
		Channel string     `json:"channel"`
		PaidAt  *time.Time `json:"paid_at"`
	} `json:"data"`
}

var _ Verifier = (*Client)(nil)

// Client verifies payment references against the provider's
// transaction-verify endpoint. Calls run behind a circuit breaker so a
// flapping provider degrades to fast ErrProviderUnreachable failures
// instead of piling up blocked requests.
type Client struct {
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*verifyResponse]
	baseURL string
	secret  string
	lg      *zap.Logger
}

// NewClient creates a provider verification client.
func NewClient(cfg ClientConfig, lg *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[*verifyResponse](gobreaker.Settings{
		Name:        "payment-provider",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			lg.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		http:    &http.Client{Timeout: timeout},
		breaker: breaker,
		baseURL: cfg.BaseURL,
		secret:  cfg.SecretKey,
		lg:      lg,
	}
}

// Verify looks up the transaction for the given reference and checks that
// the provider reports a successful charge within AmountTolerance of the
// expected amount. Transport failures, timeouts, provider 5xx responses and
// an open breaker all map to ErrProviderUnreachable.
func (c *Client) Verify(ctx context.Context, reference string, expectedMinorUnits int64) (*Verification, error) {
	resp, err := c.breaker.Execute(func() (*verifyResponse, error) {
		return c.fetch(ctx, reference)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, errors.Wrap(ErrProviderUnreachable, "circuit open")
		}
		return nil, err
	}

	if !resp.Status || resp.Data.Status != "success" {
		c.lg.Info("payment not successful",
			zap.String("reference", reference),
			zap.String("provider_status", resp.Data.Status),
		)
		return nil, ErrNotSuccessful
	}

	diff := resp.Data.Amount - expectedMinorUnits
	if diff < 0 {
		diff = -diff
	}
	if diff > AmountTolerance {
		return nil, &AmountMismatchError{
			Reference: reference,
			Expected:  expectedMinorUnits,
			Paid:      resp.Data.Amount,
		}
	}

	return &Verification{
		Reference: reference,
		Amount:    resp.Data.Amount,
		Channel:   resp.Data.Channel,
		PaidAt:    resp.Data.PaidAt,
	}, nil
}

// fetch performs the HTTP round trip. Only infrastructure failures return
// errors here, so business outcomes (declined charges, mismatched amounts)
// never trip the breaker.
func (c *Client) fetch(ctx context.Context, reference string) (*verifyResponse, error) {
	endpoint := c.baseURL + "/transaction/verify/" + url.PathEscape(reference)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build verify request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(ErrProviderUnreachable, "verify %s: %v", reference, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, errors.Wrapf(ErrProviderUnreachable, "provider returned %d", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		// Unknown reference: the charge never completed on the provider side.
		return &verifyResponse{}, nil
	case resp.StatusCode != http.StatusOK:
		return nil, errors.Wrapf(ErrProviderUnreachable, "unexpected provider status %d", resp.StatusCode)
	}

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "decode verify response")
	}
	return &body, nil
}
