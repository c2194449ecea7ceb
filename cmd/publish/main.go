// Command publish signs a payload and sends it through the ingest endpoint,
// the way a real sender would. Useful for manual testing against a local
// WebhookHub.
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/webhookhub/webhookhub/internal/signature"
)

var (
	serverURL      = flag.String("server", "http://localhost:8080", "WebhookHub base URL")
	sourceName     = flag.String("source", "", "Source name to publish through (required)")
	secret         = flag.String("secret", "", "HMAC secret for the source (required)")
	eventType      = flag.String("type", "", "Event type (required)")
	data           = flag.String("data", "", "Payload JSON; @file reads from a file, - reads stdin")
	idempotencyKey = flag.String("idempotency-key", "", "Optional X-Idempotency-Key header")
	correlationID  = flag.String("correlation-id", "", "Optional X-Correlation-Id header")
)

func main() {
	flag.Parse()

	if *sourceName == "" || *secret == "" || *eventType == "" {
		fmt.Fprintln(os.Stderr, "source, secret, and type are required")
		flag.Usage()
		os.Exit(2)
	}

	body, err := readPayload(*data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading payload: %s\n", err)
		os.Exit(1)
	}

	url := fmt.Sprintf("%s/ingest/%s?type=%s", strings.TrimSuffix(*serverURL, "/"), *sourceName, *eventType)
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(string(body)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "building request: %s\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", signature.Sign(*secret, body))
	if *idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", *idempotencyKey)
	}
	if *correlationID != "" {
		req.Header.Set("X-Correlation-Id", *correlationID)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "request failed: %s\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("%s\n%s\n", resp.Status, respBody)
	if resp.StatusCode >= 300 {
		os.Exit(1)
	}
}

func readPayload(data string) ([]byte, error) {
	switch {
	case data == "":
		return []byte("{}"), nil
	case data == "-":
		return io.ReadAll(os.Stdin)
	case strings.HasPrefix(data, "@"):
		return os.ReadFile(strings.TrimPrefix(data, "@"))
	default:
		return []byte(data), nil
	}
}
