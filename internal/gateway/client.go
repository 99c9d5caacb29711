package gateway

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Config holds the aggregator connection settings.
type Config struct {
	BaseURL  string
	APIToken string
	MemberID string
	// FetchTimeout bounds bill enquiries, which are read-only and quick.
	// PayTimeout bounds recharge and bill payment, which the provider
	// processes more slowly.
	FetchTimeout time.Duration
	PayTimeout   time.Duration
}

const (
	defaultFetchTimeout = 15 * time.Second
	defaultPayTimeout   = 30 * time.Second
)

// Client is the HTTP implementation of Aggregator.
type Client struct {
	cfg     Config
	http    *http.Client
	logger  *slog.Logger
	observe func(op string, d time.Duration)
}

// NewClient builds an aggregator client. observe, when non-nil, receives the
// latency of every outbound call.
func NewClient(cfg Config, logger *slog.Logger, observe func(op string, d time.Duration)) *Client {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.PayTimeout <= 0 {
		cfg.PayTimeout = defaultPayTimeout
	}
	return &Client{cfg: cfg, http: &http.Client{}, logger: logger, observe: observe}
}

// Recharge submits a prepaid recharge.
func (c *Client) Recharge(ctx context.Context, req RechargeRequest) (Outcome, error) {
	params := c.baseParams()
	params.Set("orderid", req.MerchantRef)
	params.Set("number", req.Number)
	params.Set("opcode", req.OperatorCode)
	params.Set("amount", req.Amount.String())
	if req.Circle != "" {
		params.Set("circle", req.Circle)
	}
	return c.call(ctx, "recharge", "/api/recharge", params, c.cfg.PayTimeout)
}

// BillFetch retrieves outstanding bill details for a consumer.
func (c *Client) BillFetch(ctx context.Context, req BillFetchRequest) (Outcome, error) {
	params := c.baseParams()
	params.Set("orderid", req.MerchantRef)
	params.Set("number", req.ConsumerID)
	params.Set("mobile", req.PayerMobile)
	params.Set("opcode", req.BillerCode)
	if req.SubDivision != "" {
		params.Set("subdiv", req.SubDivision)
	}
	return c.call(ctx, "bill_fetch", "/api/bill/fetch", params, c.cfg.FetchTimeout)
}

// BillPay settles a previously fetched bill.
func (c *Client) BillPay(ctx context.Context, req BillPayRequest) (Outcome, error) {
	params := c.baseParams()
	params.Set("orderid", req.MerchantRef)
	params.Set("number", req.ConsumerID)
	params.Set("mobile", req.PayerMobile)
	params.Set("opcode", req.BillerCode)
	params.Set("amount", req.Amount.String())
	if req.OrderID != "" {
		params.Set("opid", req.OrderID)
	}
	if req.SubDivision != "" {
		params.Set("subdiv", req.SubDivision)
	}
	return c.call(ctx, "bill_pay", "/api/bill/pay", params, c.cfg.PayTimeout)
}

func (c *Client) baseParams() url.Values {
	params := url.Values{}
	params.Set("api_token", c.cfg.APIToken)
	params.Set("member_id", c.cfg.MemberID)
	params.Set("format", "json")
	return params
}

// call performs the outbound request and normalizes whatever comes back.
// Any transport-level failure is wrapped as ErrOutcomeUnknown: once the
// request may have left this process, the provider-side effect is unknown.
func (c *Client) call(ctx context.Context, op, path string, params url.Values, timeout time.Duration) (Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := c.cfg.BaseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Outcome{}, fmt.Errorf("build %s request: %w", op, err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if c.observe != nil {
		c.observe(op, elapsed)
	}
	if err != nil {
		c.logger.Warn("aggregator call failed", "op", op, "elapsed", elapsed, "error", err)
		return Outcome{}, fmt.Errorf("%s: %v: %w", op, err, ErrOutcomeUnknown)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Warn("aggregator body unreadable", "op", op, "error", err)
		return Outcome{}, fmt.Errorf("%s: read body: %w", op, ErrOutcomeUnknown)
	}

	out, err := Normalize(body)
	if err != nil {
		c.logger.Warn("aggregator body undecodable", "op", op, "body_len", len(body))
		return Outcome{}, err
	}

	c.logger.Info("aggregator responded", "op", op, "success", out.Success, "elapsed", elapsed)
	return out, nil
}
