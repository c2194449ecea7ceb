package mockdest

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

type Config struct {
	Port int
}

type Server struct {
	config Config
	store  RequestStore
}

func New(config Config) *Server {
	return &Server{
		config: config,
		store:  NewRequestStore(),
	}
}

func (s *Server) Store() RequestStore {
	return s.store
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: NewRouter(s.store),
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}
