package gmedchain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ksred/gmedchain-web/internal/metrics"
)

var (
	ErrUnexpectedStatus  = errors.New("unexpected status code")
	ErrMalformedResponse = errors.New("malformed response")
)

// maxErrorBody bounds how much of a failed GET response ends up in an error
const maxErrorBody = 4 << 10

// Config holds the settings for talking to a node
type Config struct {
	// BaseURL is the API root, e.g. http://localhost:10009/api/gmedchain/
	BaseURL    string
	HTTPClient *http.Client
}

// Client talks to the gmedchain node REST API
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient creates a node client. A nil HTTPClient gets one without a
// timeout; requests are bounded only by their context.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	base := cfg.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return &Client{
		baseURL: base,
		http:    httpClient,
		logger:  log.With().Str("component", "gmedchain_client").Logger(),
	}
}

// Me returns this node's identity
func (c *Client) Me(ctx context.Context) (string, error) {
	var resp meResponse
	if err := c.getJSON(ctx, "me", &resp); err != nil {
		return "", err
	}
	return resp.Me, nil
}

// Peers returns the identities of the other participants
func (c *Client) Peers(ctx context.Context) ([]string, error) {
	var resp peersResponse
	if err := c.getJSON(ctx, "peers", &resp); err != nil {
		return nil, err
	}
	return resp.Peers, nil
}

// Orders returns every order state in the node's vault, newest first
func (c *Client) Orders(ctx context.Context) ([]OrderState, error) {
	return c.getStates(ctx, "orders")
}

// MyOrders returns the order states where this node is the buyer, newest first
func (c *Client) MyOrders(ctx context.Context) ([]OrderState, error) {
	return c.getStates(ctx, "my-orders")
}

// CreateOrder posts the form to create-order. Any HTTP response, success or
// not, is returned as a Message; only transport failures return an error.
func (c *Client) CreateOrder(ctx context.Context, form OrderForm) (Message, error) {
	return c.postForm(ctx, "create-order", form.Encode())
}

// UpdateStatus moves the order identified by linearID through t.
func (c *Client) UpdateStatus(ctx context.Context, t Transition, linearID string) (Message, error) {
	return c.postForm(ctx, t.Endpoint, t.encode(linearID))
}

// Status reports node liveness
func (c *Client) Status(ctx context.Context) (string, error) {
	return c.getText(ctx, "status")
}

// ServerTime returns the node clock in UTC as the node formats it
func (c *Client) ServerTime(ctx context.Context) (string, error) {
	return c.getText(ctx, "servertime")
}

func (c *Client) getStates(ctx context.Context, endpoint string) ([]OrderState, error) {
	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	states, err := decodeStates(resp.Body)
	if err != nil {
		metrics.NodeRequests.WithLabelValues(endpoint, metrics.OutcomeDecode).Inc()
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	metrics.NodeRequests.WithLabelValues(endpoint, metrics.OutcomeOK).Inc()
	return states, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.NodeRequests.WithLabelValues(endpoint, metrics.OutcomeDecode).Inc()
		return fmt.Errorf("%s: %w: %v", endpoint, ErrMalformedResponse, err)
	}
	metrics.NodeRequests.WithLabelValues(endpoint, metrics.OutcomeOK).Inc()
	return nil
}

func (c *Client) getText(ctx context.Context, endpoint string) (string, error) {
	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.NodeRequests.WithLabelValues(endpoint, metrics.OutcomeTransport).Inc()
		return "", fmt.Errorf("%s: failed to read response body: %w", endpoint, err)
	}
	metrics.NodeRequests.WithLabelValues(endpoint, metrics.OutcomeOK).Inc()
	return strings.TrimSpace(string(body)), nil
}

// get issues a GET and returns the response only for 200 OK. The caller
// closes the body.
func (c *Client) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.NodeRequests.WithLabelValues(endpoint, metrics.OutcomeTransport).Inc()
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		metrics.NodeRequests.WithLabelValues(endpoint, metrics.OutcomeHTTPError).Inc()
		return nil, fmt.Errorf("%s: %w %d: %s", endpoint, ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return resp, nil
}

func (c *Client) postForm(ctx context.Context, endpoint, body string) (Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, strings.NewReader(body))
	if err != nil {
		return Message{}, err
	}
	req.Header.Set("Content-Type", FormContentType)

	c.logger.Debug().Str("endpoint", endpoint).Str("body", body).Msg("posting command")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.NodeRequests.WithLabelValues(endpoint, metrics.OutcomeTransport).Inc()
		return Message{}, fmt.Errorf("%s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.NodeRequests.WithLabelValues(endpoint, metrics.OutcomeTransport).Inc()
		return Message{}, fmt.Errorf("%s: failed to read response body: %w", endpoint, err)
	}

	msg := Message{StatusCode: resp.StatusCode, Data: string(data)}
	outcome := metrics.OutcomeOK
	if !msg.OK() {
		outcome = metrics.OutcomeHTTPError
	}
	metrics.NodeRequests.WithLabelValues(endpoint, outcome).Inc()

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Str("response", msg.Data).
		Msg("command response")

	return msg, nil
}
