package testinfra

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/webhookhub/webhookhub/internal/mockdest"
	"github.com/webhookhub/webhookhub/internal/util/testutil"
)

var mockServerOnce sync.Once

// GetMockServer returns the base URL of a shared mock destination endpoint,
// starting one on a random port the first time it is asked for.
func GetMockServer(t *testing.T) string {
	cfg := ReadConfig()
	if cfg.MockServerURL == "" {
		mockServerOnce.Do(func() {
			startMockServer(cfg)
		})
	}
	return cfg.MockServerURL
}

func startMockServer(cfg *Config) {
	port := testutil.RandomPortNumber()
	cfg.MockServerURL = fmt.Sprintf("http://localhost:%d", port)
	go func() {
		server := mockdest.New(mockdest.Config{Port: port})
		if err := server.Run(context.Background()); err != nil {
			panic(err)
		}
	}()
}
