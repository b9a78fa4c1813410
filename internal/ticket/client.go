package ticket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/helpdesk/internal/config"
	"github.com/ashureev/helpdesk/internal/errx"
)

const (
	submitPath      = "/get_support"
	maxResponseBody = 1 << 20
)

// NotConfiguredText is shown when no ticket endpoint is configured.
const NotConfiguredText = "Ticket submission is not configured. Set `TICKET_API_URL` to enable it."

// Client submits incidents to the ticket-creation endpoint.
type Client struct {
	cfg        config.TicketConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a ticket client. httpClient and logger may be nil.
func NewClient(cfg config.TicketConfig, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, httpClient: httpClient, logger: logger}
}

// Enabled reports whether an endpoint is configured.
func (c *Client) Enabled() bool {
	return c.cfg.URL != ""
}

// File builds a request from text, submits it and interprets the reply. The Result
// always carries displayable text, also when an error is returned.
func (c *Client) File(ctx context.Context, text string, o Overrides) (Result, error) {
	if !c.Enabled() {
		return Result{Text: NotConfiguredText}, errx.Configuration("ticket endpoint not configured")
	}

	req := BuildRequest(text, c.cfg, o)
	body, status, err := c.Submit(ctx, req)
	if err != nil {
		return Result{Text: GenericFailureText}, err
	}

	res := Interpret(body)
	if status < 200 || status > 299 {
		c.logger.Warn("ticket request rejected", "status", status)
		return res, errx.TicketRequest(status, string(body), nil)
	}

	c.logger.Info("ticket submitted",
		"success", res.Success,
		"incident_number", res.IncidentNumber,
		"category", req.IncidentCategory,
	)
	return res, nil
}

// Submit posts req and returns the raw reply and status. Only transport failures are
// returned as errors.
func (c *Client) Submit(ctx context.Context, req Request) ([]byte, int, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, 0, errx.TicketRequest(0, "", fmt.Errorf("encode ticket request: %w", err))
	}

	url := strings.TrimRight(c.cfg.URL, "/") + submitPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, errx.TicketRequest(0, "", fmt.Errorf("build ticket request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("ticket request failed", "error", err)
		return nil, 0, errx.TicketRequest(0, "", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, resp.StatusCode, errx.TicketRequest(resp.StatusCode, "", fmt.Errorf("read ticket response: %w", err))
	}
	return body, resp.StatusCode, nil
}
