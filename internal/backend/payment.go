package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sony/gobreaker/v2"

	"github.com/quyennx102/storefront-bff/internal/domain"
)

// PaymentClient requests payment-session URLs from the external wallet
// providers. Each provider has its own initiation endpoint and names the
// redirect URL field differently. Calls run through a circuit breaker so a
// misbehaving provider fails fast instead of holding checkout requests for
// the full transport timeout.
type PaymentClient struct {
	momoURL    string
	zalopayURL string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[string]
	logger     *slog.Logger
}

func NewPaymentClient(momoURL, zalopayURL string, httpClient *http.Client, logger *slog.Logger) *PaymentClient {
	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name: "payment-initiation",
	})

	return &PaymentClient{
		momoURL:    momoURL,
		zalopayURL: zalopayURL,
		httpClient: httpClient,
		breaker:    breaker,
		logger:     logger,
	}
}

type createSessionRequest struct {
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
}

// CreateSession asks the provider matching method for a hosted checkout
// page URL for the given order.
func (p *PaymentClient) CreateSession(ctx context.Context, method domain.PaymentMethod, orderID string, amount int64) (string, error) {
	var initiationURL, urlField string
	switch method {
	case domain.PaymentMomo:
		initiationURL = p.momoURL + "/create"
		urlField = "payUrl"
	case domain.PaymentZaloPay:
		initiationURL = p.zalopayURL + "/create"
		urlField = "order_url"
	default:
		return "", fmt.Errorf("payment method %q has no session provider", method)
	}

	return p.breaker.Execute(func() (string, error) {
		return p.requestSession(ctx, initiationURL, urlField, orderID, amount)
	})
}

func (p *PaymentClient) requestSession(ctx context.Context, initiationURL, urlField, orderID string, amount int64) (string, error) {
	data, err := json.Marshal(createSessionRequest{OrderID: orderID, Amount: amount})
	if err != nil {
		return "", fmt.Errorf("marshal session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, initiationURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return "", readAPIError(resp)
	}

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode session response: %w", err)
	}

	var redirectURL string
	raw, ok := payload[urlField]
	if !ok || json.Unmarshal(raw, &redirectURL) != nil || redirectURL == "" {
		return "", fmt.Errorf("provider response missing %s field", urlField)
	}

	p.logger.Info("payment session created", "order_id", orderID, "url_field", urlField)
	return redirectURL, nil
}
