package testinfra

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/spf13/viper"
	"github.com/webhookhub/webhookhub/internal/util/testutil"
)

var (
	suiteCounter int64
	suiteCleanup sync.Once
	cfgSync      sync.Once
	cfg          *Config
)

// Config points integration tests at shared infrastructure. With TESTINFRA
// set in .env.test the URLs name externally managed services; otherwise
// containers are started on demand and torn down when the last suite ends.
type Config struct {
	TestInfra     bool
	PostgresURL   string
	RabbitMQURL   string
	MockServerURL string
	cleanupFns    []func()
}

func initConfig() {
	projectRoot, err := findProjectRoot()
	if err != nil {
		panic(err)
	}

	v := viper.New()
	v.AutomaticEnv()

	// Allow override via environment variable
	configFile := os.Getenv("TEST_CONFIG_FILE")
	if configFile == "" {
		configFile = ".env.test"
	}

	v.SetConfigFile(filepath.Join(projectRoot, configFile))
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		panic(err)
	}

	if v.GetBool("TESTINFRA") {
		rabbitmqURL := v.GetString("TEST_RABBITMQ_URL")
		if !strings.Contains(rabbitmqURL, "amqp://") {
			rabbitmqURL = "amqp://guest:guest@" + rabbitmqURL
		}
		cfg = &Config{
			TestInfra:     true,
			PostgresURL:   v.GetString("TEST_POSTGRES_URL"),
			RabbitMQURL:   rabbitmqURL,
			MockServerURL: v.GetString("TEST_MOCK_SERVER_URL"),
		}
		return
	}

	cfg = &Config{
		TestInfra:   false,
		PostgresURL: "",
		RabbitMQURL: "",
	}
}

func ReadConfig() *Config {
	cfgSync.Do(initConfig)
	return cfg
}

func Start(t *testing.T) func() {
	testutil.CheckIntegrationTest(t)
	atomic.AddInt64(&suiteCounter, 1)
	return func() {
		if atomic.AddInt64(&suiteCounter, -1) == 0 {
			suiteCleanup.Do(func() {
				if cfg != nil && cfg.cleanupFns != nil {
					for _, fn := range cfg.cleanupFns {
						if fn != nil {
							fn()
						}
					}
				}
			})
		}
	}
}

func findProjectRoot() (string, error) {
	// Start from the current working directory
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	// Traverse up the directory tree until the project root is found
	for {
		if _, err := os.Stat(filepath.Join(dir, ".env.test")); err == nil {
			return dir, nil
		}
		parentDir := filepath.Dir(dir)
		if parentDir == dir {
			break
		}
		dir = parentDir
	}

	return "", os.ErrNotExist
}
