package payment

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader is the HTTP header carrying the webhook signature.
const SignatureHeader = "Payment-Signature"

// EventCheckoutCompleted is the event type delivered when a hosted checkout
// session has been paid.
const EventCheckoutCompleted = "checkout.session.completed"

// DefaultTolerance bounds how old a webhook timestamp may be before the
// event is rejected as a replay.
const DefaultTolerance = 5 * time.Minute

// ErrInvalidSignature is returned when a webhook payload fails verification.
// Callers must not act on the event in any way when they see this.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Config holds the gateway connection and webhook settings.
type Config struct {
	APIURL        string // base URL of the gateway REST API
	APIKey        string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

// Client talks to the hosted-checkout payment gateway.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a new gateway client.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// LineItem is one purchasable line of a checkout session. UnitAmount is in
// minor currency units (cents).
type LineItem struct {
	Name       string `json:"name"`
	Image      string `json:"image,omitempty"`
	UnitAmount int64  `json:"unit_amount"`
	Quantity   int    `json:"quantity"`
}

// SessionParams describes the checkout session to create. Metadata is opaque
// to the gateway and echoed back verbatim on the completion event.
type SessionParams struct {
	LineItems []LineItem
	Metadata  map[string]string
}

// Session is a hosted checkout session as the gateway reports it.
type Session struct {
	ID          string            `json:"id"`
	URL         string            `json:"url"`
	AmountTotal int64             `json:"amount_total,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Event is a webhook event envelope.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object Session `json:"object"`
	} `json:"data"`
}

type sessionResponse struct {
	Session
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// CreateCheckoutSession creates a hosted checkout session and returns it.
// The caller redirects the customer to Session.URL.
func (c *Client) CreateCheckoutSession(params SessionParams) (*Session, error) {
	if c.cfg.APIURL == "" || c.cfg.APIKey == "" {
		return nil, fmt.Errorf("payment gateway is not configured")
	}

	payload := map[string]interface{}{
		"mode":        "payment",
		"line_items":  params.LineItems,
		"success_url": c.cfg.SuccessURL,
		"cancel_url":  c.cfg.CancelURL,
		"metadata":    params.Metadata,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(c.cfg.APIURL, "/")+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach payment gateway: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("payment gateway error (%d): %s", resp.StatusCode, string(respBody))
	}

	var sr sessionResponse
	if err := json.Unmarshal(respBody, &sr); err != nil {
		return nil, fmt.Errorf("failed to parse gateway response: %w", err)
	}
	if sr.Error != nil {
		return nil, fmt.Errorf("payment gateway error: %s", sr.Error.Message)
	}
	if sr.URL == "" {
		return nil, fmt.Errorf("payment gateway returned empty checkout URL")
	}
	return &sr.Session, nil
}

// ComputeSignature builds the value of the signature header for payload at
// the given timestamp: "t=<unix>,v1=<hex hmac-sha256 of "<unix>.<payload>">".
func ComputeSignature(payload []byte, secret string, ts time.Time) string {
	unix := strconv.FormatInt(ts.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(unix))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", unix, hex.EncodeToString(mac.Sum(nil)))
}

// ConstructEvent verifies the signature header against the raw payload and,
// if valid and within tolerance, unmarshals the event. Any verification
// failure comes back wrapping ErrInvalidSignature.
func (c *Client) ConstructEvent(payload []byte, sigHeader string) (*Event, error) {
	return constructEvent(payload, sigHeader, c.cfg.WebhookSecret, DefaultTolerance, time.Now())
}

func constructEvent(payload []byte, sigHeader, secret string, tolerance time.Duration, now time.Time) (*Event, error) {
	if sigHeader == "" {
		return nil, fmt.Errorf("%w: missing signature header", ErrInvalidSignature)
	}

	var ts time.Time
	var signature []byte
	for _, part := range strings.Split(sigHeader, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			unix, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: malformed timestamp", ErrInvalidSignature)
			}
			ts = time.Unix(unix, 0)
		case "v1":
			sig, err := hex.DecodeString(kv[1])
			if err != nil {
				return nil, fmt.Errorf("%w: malformed signature", ErrInvalidSignature)
			}
			signature = sig
		}
	}
	if ts.IsZero() || signature == nil {
		return nil, fmt.Errorf("%w: incomplete signature header", ErrInvalidSignature)
	}

	if diff := now.Sub(ts); diff > tolerance || diff < -tolerance {
		return nil, fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
	}

	unix := strconv.FormatInt(ts.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(unix))
	mac.Write([]byte("."))
	mac.Write(payload)
	if !hmac.Equal(signature, mac.Sum(nil)) {
		return nil, ErrInvalidSignature
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to parse webhook event: %w", err)
	}
	return &event, nil
}
