// Command seed fills a running WebhookHub with generated sources,
// destinations, and optionally signed events, for load and demo purposes.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/webhookhub/webhookhub/internal/signature"
)

var (
	serverURL       = flag.String("server", "http://localhost:8080", "WebhookHub base URL")
	numSources      = flag.Int("sources", 5, "Number of sources to create")
	numDestinations = flag.Int("destinations", 20, "Number of destinations to create")
	maxRules        = flag.Int("max-rules", 3, "Maximum rules per destination")
	numEvents       = flag.Int("events", 0, "Number of signed events to publish after seeding")
	targetBase      = flag.String("target-base", "http://localhost:5555/webhook", "Base URL destinations point at")
	concurrency     = flag.Int("concurrency", 10, "Number of concurrent workers")
	verbose         = flag.Bool("verbose", false, "Enable verbose output")
	skipConfirm     = flag.Bool("yes", false, "Skip confirmation prompt")
)

var eventTypes = []string{
	"user.created",
	"user.updated",
	"user.deleted",
	"order.created",
	"order.completed",
	"invoice.paid",
	"invoice.failed",
	"subscription.renewed",
}

type seedStats struct {
	mu                  sync.Mutex
	sourcesCreated      int
	destinationsCreated int
	eventsPublished     int
	errors              []string
}

func (s *seedStats) addSource() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sourcesCreated++
}

func (s *seedStats) addDestination() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destinationsCreated++
}

func (s *seedStats) addEvent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventsPublished++
}

func (s *seedStats) addError(err string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, err)
}

type seededSource struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Secret string `json:"hmac_secret"`
}

func main() {
	flag.Parse()

	gofakeit.Seed(time.Now().UnixNano())

	fmt.Printf("=== WebhookHub Seeder ===\n")
	fmt.Printf("Server: %s\n", *serverURL)
	fmt.Printf("Sources: %d, destinations: %d (1-%d rules each)\n", *numSources, *numDestinations, *maxRules)
	if *numEvents > 0 {
		fmt.Printf("Events to publish: %d\n", *numEvents)
	}
	fmt.Printf("Concurrency: %d workers\n\n", *concurrency)

	if !*skipConfirm {
		fmt.Printf("Continue? (y/N): ")
		var response string
		fmt.Scanln(&response)
		if !strings.EqualFold(response, "y") && !strings.EqualFold(response, "yes") {
			fmt.Println("Operation cancelled.")
			return
		}
		fmt.Println()
	}

	client := &http.Client{Timeout: 30 * time.Second}

	fmt.Println("Checking server health...")
	if err := checkHealth(client); err != nil {
		fmt.Printf("health check failed: %v\n", err)
		fmt.Printf("\nPlease ensure the WebhookHub server is running at %s\n", *serverURL)
		os.Exit(1)
	}
	fmt.Println("Server is healthy.")

	stats := &seedStats{}

	// Sources come first; destinations need their names for rules, events
	// need their secrets for signing.
	sources := make([]seededSource, 0, *numSources)
	for i := 0; i < *numSources; i++ {
		source, err := createSource(client)
		if err != nil {
			stats.addError(fmt.Sprintf("create source: %v", err))
			continue
		}
		stats.addSource()
		sources = append(sources, source)
		if *verbose {
			fmt.Printf("created source %s (%s)\n", source.Name, source.ID)
		}
	}
	if len(sources) == 0 {
		fmt.Println("no sources created, aborting")
		os.Exit(1)
	}

	runPool(*numDestinations, func() {
		if err := createDestination(client, sources); err != nil {
			stats.addError(fmt.Sprintf("create destination: %v", err))
			return
		}
		stats.addDestination()
	})

	if *numEvents > 0 {
		runPool(*numEvents, func() {
			if err := publishEvent(client, sources[rand.Intn(len(sources))]); err != nil {
				stats.addError(fmt.Sprintf("publish event: %v", err))
				return
			}
			stats.addEvent()
		})
	}

	fmt.Printf("\n=== Seeding Complete ===\n")
	fmt.Printf("Sources created: %d\n", stats.sourcesCreated)
	fmt.Printf("Destinations created: %d\n", stats.destinationsCreated)
	if *numEvents > 0 {
		fmt.Printf("Events published: %d\n", stats.eventsPublished)
	}
	if len(stats.errors) > 0 {
		fmt.Printf("Errors encountered: %d\n", len(stats.errors))
		if *verbose {
			for _, err := range stats.errors {
				fmt.Printf("  - %s\n", err)
			}
		}
		os.Exit(1)
	}
}

// runPool runs n invocations of fn across the configured worker count.
func runPool(n int, fn func()) {
	jobs := make(chan struct{}, n)
	var wg sync.WaitGroup
	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				fn()
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- struct{}{}
	}
	close(jobs)
	wg.Wait()
}

func checkHealth(client *http.Client) error {
	resp, err := client.Get(*serverURL + "/healthz")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthz returned %s", resp.Status)
	}
	return nil
}

func createSource(client *http.Client) (seededSource, error) {
	name := fmt.Sprintf("%s-%s", strings.ToLower(gofakeit.Word()), gofakeit.LetterN(6))

	var source seededSource
	if err := postJSON(client, "/api/v1/sources", map[string]any{"name": name}, &source); err != nil {
		return seededSource{}, err
	}
	return source, nil
}

func createDestination(client *http.Client, sources []seededSource) error {
	name := fmt.Sprintf("%s-%s", strings.ToLower(gofakeit.BuzzWord()), gofakeit.LetterN(6))
	name = strings.ReplaceAll(name, " ", "-")

	// The rule set is unique per (source, type) pair, so draw without
	// replacement.
	type pair struct{ source, eventType string }
	seen := make(map[pair]bool)
	rules := []map[string]string{}
	numRules := rand.Intn(*maxRules) + 1
	for len(rules) < numRules {
		p := pair{
			source:    sources[rand.Intn(len(sources))].Name,
			eventType: eventTypes[rand.Intn(len(eventTypes))],
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		rules = append(rules, map[string]string{
			"source_name": p.source,
			"event_type":  p.eventType,
		})
	}

	body := map[string]any{
		"name":       name,
		"target_url": fmt.Sprintf("%s/%s", strings.TrimSuffix(*targetBase, "/"), gofakeit.UUID()),
		"rules":      rules,
	}
	return postJSON(client, "/api/v1/destinations", body, nil)
}

func publishEvent(client *http.Client, source seededSource) error {
	payload, err := json.Marshal(map[string]any{
		"id":     gofakeit.UUID(),
		"name":   gofakeit.Name(),
		"email":  gofakeit.Email(),
		"amount": gofakeit.Price(1, 500),
	})
	if err != nil {
		return err
	}

	eventType := eventTypes[rand.Intn(len(eventTypes))]
	url := fmt.Sprintf("%s/ingest/%s?type=%s", *serverURL, source.Name, eventType)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", signature.Sign(source.Secret, payload))

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ingest returned %s: %s", resp.Status, body)
	}
	return nil
}

func postJSON(client *http.Client, path string, body any, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := client.Post(*serverURL+path, "application/json", bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s returned %s: %s", path, resp.Status, respBody)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
