package deliveryclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	defaultUserAgent = "WebhookHub/1.0"

	connectTimeout = 5 * time.Second
	// headerTimeout caps the wait for the first response header only; a body
	// that stalls after headers is cut off by requestTimeout, which bounds
	// the whole exchange.
	headerTimeout  = 15 * time.Second
	requestTimeout = 30 * time.Second

	// Failure messages embed at most this much of the response body.
	maxBodyExcerpt = 512
)

// Client posts delivery payloads to destination endpoints. One client is
// shared per worker process; the transport reuses connections across
// deliveries to the same host.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

type Option func(*Client)

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

func New(opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: connectTimeout,
				}).DialContext,
				ResponseHeaderTimeout: headerTimeout,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
			},
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Result is the outcome of one delivery attempt. Exactly one of the two
// shapes occurs: Success true with a 2xx StatusCode, or Success false with
// Message set and StatusCode nil when no response was received.
type Result struct {
	Success    bool
	StatusCode *int
	Message    string
	Retryable  bool
}

// Post sends the payload verbatim as JSON. It never returns an error;
// every outcome, transport failures included, is classified into a Result.
func (c *Client) Post(ctx context.Context, targetURL string, payload []byte) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(payload))
	if err != nil {
		return Result{Message: fmt.Sprintf("invalid_request: %s", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{
			Message:   fmt.Sprintf("%s: %s", classifyNetworkError(err), err),
			Retryable: true,
		}
	}
	defer func() {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	status := resp.StatusCode
	if status >= 200 && status < 300 {
		return Result{Success: true, StatusCode: &status}
	}

	message := fmt.Sprintf("HTTP %d", status)
	if excerpt := readBodyExcerpt(resp.Body); excerpt != "" {
		message = fmt.Sprintf("HTTP %d: %s", status, excerpt)
	}
	return Result{
		StatusCode: &status,
		Message:    message,
		Retryable:  status == http.StatusTooManyRequests || status >= 500,
	}
}

// Close releases idle connections. In-flight requests are unaffected.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func readBodyExcerpt(body io.Reader) string {
	buf := make([]byte, maxBodyExcerpt)
	n, _ := io.ReadFull(body, buf)
	return strings.ToValidUTF8(string(buf[:n]), "")
}

// classifyNetworkError returns a stable error code for a transport-level
// failure. All of these are retryable; the destination may come back.
//
// Error codes and their meanings:
//   - dns_error:           domain doesn't exist or DNS lookup failed
//   - connection_refused:  server not running or rejecting connections
//   - connection_reset:    connection was dropped by the server
//   - network_unreachable: network path to destination is unavailable
//   - timeout:             request took too long (I/O timeout or context deadline)
//   - tls_error:           TLS/SSL certificate or handshake failure
//   - redirect_error:      too many redirects
//   - network_error:       other network-related failures (catch-all)
func classifyNetworkError(err error) string {
	if err == nil {
		return "unknown"
	}

	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "no such host"):
		return "dns_error"
	case strings.Contains(errStr, "connection refused"):
		return "connection_refused"
	case strings.Contains(errStr, "connection reset"):
		return "connection_reset"
	case strings.Contains(errStr, "network is unreachable"):
		return "network_unreachable"
	case strings.Contains(errStr, "i/o timeout"):
		return "timeout"
	case strings.Contains(errStr, "context deadline exceeded"):
		return "timeout"
	case strings.Contains(errStr, "Client.Timeout exceeded"):
		return "timeout"
	case strings.Contains(errStr, "tls:") || strings.Contains(errStr, "x509:"):
		return "tls_error"
	case strings.Contains(errStr, "too many redirects") || strings.Contains(errStr, "stopped after"):
		return "redirect_error"
	default:
		return "network_error"
	}
}
