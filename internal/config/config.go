package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"github.com/webhookhub/webhookhub/internal/idgen"
	"github.com/webhookhub/webhookhub/internal/mqinfra"
	"github.com/webhookhub/webhookhub/internal/mqs"
	"gopkg.in/yaml.v3"
)

const (
	Namespace = "WebhookHub"
)

func getConfigLocations() []string {
	return []string{
		// Relative paths
		".env",
		".webhookhub.yaml",
		"config/webhookhub.yaml",
		"config/webhookhub/config.yaml",
		"config/webhookhub/.env",

		// Container-friendly absolute paths
		"/config/webhookhub.yaml",
		"/config/webhookhub/config.yaml",
		"/config/webhookhub/.env",
	}
}

type Config struct {
	Service  string `yaml:"service" env:"SERVICE" desc:"Service role to run: 'api', 'delivery', or 'all' (default)." required:"N"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" desc:"Log level: debug, info, warn, error, fatal. Default: info." required:"N"`
	AuditLog bool   `yaml:"audit_log" env:"AUDIT_LOG" desc:"If true, emits audit entries for notable domain events." required:"N"`

	OpenTelemetry *OpenTelemetryConfig `yaml:"open_telemetry"`

	// API
	APIPort int    `yaml:"api_port" env:"API_PORT" desc:"Port for the ingest + admin HTTP server. Default: 8080." required:"N"`
	GinMode string `yaml:"gin_mode" env:"GIN_MODE" desc:"Gin mode: debug, release, test. Default: release." required:"N"`

	// Infrastructure
	Postgres *PostgresConfig `yaml:"postgres"`
	RabbitMQ *RabbitMQConfig `yaml:"rabbitmq"`

	// Connection pools
	IngestPoolSize int `yaml:"ingest_pool_size" env:"INGEST_POOL_SIZE" desc:"Max PostgreSQL connections for the API process. Default: 10." required:"N"`
	WorkerPoolSize int `yaml:"worker_pool_size" env:"WORKER_POOL_SIZE" desc:"Max PostgreSQL connections for the delivery worker. Default: 5, matching the consumer prefetch." required:"N"`

	// Delivery
	DeliveryMaxConcurrency int   `yaml:"delivery_max_concurrency" env:"DELIVERY_MAX_CONCURRENCY" desc:"Concurrent delivery attempts per worker; doubles as the AMQP prefetch count. Default: 5." required:"N"`
	MaxAttempts            int   `yaml:"max_attempts" env:"MAX_ATTEMPTS" desc:"Attempts before a delivery is parked as DEAD. Stamped into new delivery rows. Default: 5." required:"N"`
	RetrySchedule          []int `yaml:"retry_schedule" env:"RETRY_SCHEDULE" envSeparator:"," desc:"Retry delays in seconds, indexed by failed attempt; the last entry repeats. Default: 30,120,600,1800." required:"N"`

	// ID generation
	IDTemplates IDTemplateConfig `yaml:"id_templates"`

	DisableTelemetry bool   `yaml:"disable_telemetry" env:"DISABLE_TELEMETRY" desc:"If true, disables anonymous usage telemetry." required:"N"`
	SentryDSN        string `yaml:"sentry_dsn" env:"SENTRY_DSN" desc:"Sentry DSN for error reporting. Empty disables Sentry." required:"N"`

	configPath string
	validated  bool
}

func (c *Config) initDefaults() {
	c.LogLevel = "info"
	c.APIPort = 8080
	c.GinMode = "release"
	c.Postgres = &PostgresConfig{}
	c.RabbitMQ = &RabbitMQConfig{
		Exchange:           "webhookhub",
		DeliveryQueue:      "webhookhub.deliveries",
		RetryQueue:         "deliveries.retry.q",
		DeadLetterExchange: "deliveries.dlx",
		DeadLetterQueue:    "deliveries.dlq",
		RoutingKey:         "delivery",
		MessageTTLSeconds:  1800,
	}
	c.OpenTelemetry = &OpenTelemetryConfig{}
	c.IngestPoolSize = 10
	c.WorkerPoolSize = 5
	c.DeliveryMaxConcurrency = 5
	c.MaxAttempts = 5
	c.RetrySchedule = []int{30, 120, 600, 1800}
}

func (c *Config) parseConfigFile(flagPath string, osInterface OSInterface) error {
	// Get config file path from flag or env
	configPath := flagPath
	if envPath := osInterface.Getenv("CONFIG"); envPath != "" {
		if configPath != "" && configPath != envPath {
			return fmt.Errorf("conflicting config paths: flag=%s env=%s", configPath, envPath)
		}
		configPath = envPath
	}

	// If no explicit config path, try default locations
	if configPath == "" {
		for _, loc := range getConfigLocations() {
			if _, err := osInterface.Stat(loc); err == nil {
				configPath = loc
				break
			}
		}
	}

	if configPath == "" {
		return nil
	}

	data, err := osInterface.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	c.configPath = configPath

	// Parse based on file extension
	if strings.HasSuffix(strings.ToLower(configPath), ".env") {
		envMap, err := godotenv.UnmarshalBytes(data)
		if err != nil {
			return fmt.Errorf("error loading .env file: %w", err)
		}
		if err := env.ParseWithOptions(c, env.Options{
			Environment: envMap,
		}); err != nil {
			return fmt.Errorf("error parsing .env file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("error parsing yaml config: %w", err)
		}
	}
	return nil
}

func (c *Config) parseEnvVariables(osInterface OSInterface) error {
	if err := env.ParseWithOptions(c, env.Options{
		Environment: environMap(osInterface.Environ()),
	}); err != nil {
		return fmt.Errorf("error parsing environment variables: %w", err)
	}
	return nil
}

func environMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		if i := strings.IndexByte(kv, '='); i > 0 {
			m[kv[:i]] = kv[i+1:]
		}
	}
	return m
}

func Parse(flags Flags) (*Config, error) {
	return ParseWithOS(flags, defaultOS)
}

func ParseWithOS(flags Flags, osInterface OSInterface) (*Config, error) {
	var config Config

	// Initialize defaults
	config.initDefaults()

	// Parse config file
	if err := config.parseConfigFile(flags.Config, osInterface); err != nil {
		return nil, err
	}

	// Parse environment variables (highest priority)
	if err := config.parseEnvVariables(osInterface); err != nil {
		return nil, err
	}

	// Validate configuration
	if err := config.Validate(flags); err != nil {
		return nil, err
	}

	return &config, nil
}

// ConfigFilePath returns the resolved config file path, or "" when
// configuration came entirely from the environment.
func (c *Config) ConfigFilePath() string {
	return c.configPath
}

// RetryBackoffSchedule converts the configured schedule to durations.
func (c *Config) RetryBackoffSchedule() []time.Duration {
	schedule := make([]time.Duration, 0, len(c.RetrySchedule))
	for _, seconds := range c.RetrySchedule {
		schedule = append(schedule, time.Duration(seconds)*time.Second)
	}
	return schedule
}

type PostgresConfig struct {
	URL      string `yaml:"url" env:"DB_URL" desc:"PostgreSQL URL carrying host, port, and database (e.g. postgres://db:5432/webhookhub). Credentials come from DB_USER and DB_PASSWORD." required:"Y"`
	User     string `yaml:"user" env:"DB_USER" desc:"PostgreSQL user." required:"Y"`
	Password string `yaml:"password" env:"DB_PASSWORD" desc:"PostgreSQL password." required:"Y"`
}

// ConnString merges the credentials into the configured URL.
func (c *PostgresConfig) ConnString() string {
	parsed, err := url.Parse(c.URL)
	if err != nil || parsed.Host == "" {
		return c.URL
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "postgres"
	}
	parsed.User = url.UserPassword(c.User, c.Password)
	return parsed.String()
}

type RabbitMQConfig struct {
	Host     string `yaml:"host" env:"RABBITMQ_HOST" desc:"RabbitMQ host." required:"Y"`
	Port     int    `yaml:"port" env:"RABBITMQ_PORT" desc:"RabbitMQ port." required:"Y"`
	User     string `yaml:"user" env:"RABBITMQ_USER" desc:"RabbitMQ user." required:"Y"`
	Password string `yaml:"password" env:"RABBITMQ_PASSWORD" desc:"RabbitMQ password." required:"Y"`
	VHost    string `yaml:"vhost" env:"RABBITMQ_VHOST" desc:"RabbitMQ virtual host." required:"Y"`

	Exchange           string `yaml:"exchange" env:"RABBITMQ_EXCHANGE" desc:"Direct exchange delivery jobs are published to. Default: webhookhub." required:"N"`
	DeliveryQueue      string `yaml:"delivery_queue" env:"RABBITMQ_DELIVERY_QUEUE" desc:"Main delivery queue. Default: webhookhub.deliveries." required:"N"`
	RetryQueue         string `yaml:"retry_queue" env:"RABBITMQ_RETRY_QUEUE" desc:"Consumer-less holding queue for delayed retries. Default: deliveries.retry.q." required:"N"`
	DeadLetterExchange string `yaml:"dead_letter_exchange" env:"RABBITMQ_DEAD_LETTER_EXCHANGE" desc:"Fanout exchange for poisoned messages. Default: deliveries.dlx." required:"N"`
	DeadLetterQueue    string `yaml:"dead_letter_queue" env:"RABBITMQ_DEAD_LETTER_QUEUE" desc:"Parking-lot queue bound to the dead letter exchange. Default: deliveries.dlq." required:"N"`
	RoutingKey         string `yaml:"routing_key" env:"RABBITMQ_ROUTING_KEY" desc:"Routing key for delivery jobs. Default: delivery." required:"N"`
	MessageTTLSeconds  int    `yaml:"message_ttl_seconds" env:"RABBITMQ_MESSAGE_TTL_SECONDS" desc:"Queue-level TTL for the main delivery queue, in seconds. Default: 1800." required:"N"`
}

// URL assembles the AMQP URI. A vhost of "/" maps to the default vhost.
func (c *RabbitMQConfig) URL() string {
	vhost := ""
	if c.VHost != "" && c.VHost != "/" {
		vhost = "/" + url.PathEscape(strings.TrimPrefix(c.VHost, "/"))
	}
	return fmt.Sprintf("amqp://%s@%s:%d%s",
		url.UserPassword(c.User, c.Password).String(), c.Host, c.Port, vhost)
}

// ToQueueConfig returns the queue facade configuration for delivery jobs.
func (c *Config) ToQueueConfig() *mqs.QueueConfig {
	return &mqs.QueueConfig{
		RabbitMQ: &mqs.RabbitMQConfig{
			ServerURL:  c.RabbitMQ.URL(),
			Exchange:   c.RabbitMQ.Exchange,
			Queue:      c.RabbitMQ.DeliveryQueue,
			RoutingKey: c.RabbitMQ.RoutingKey,
			Prefetch:   c.DeliveryMaxConcurrency,
		},
	}
}

// ToInfraConfig returns the broker topology both roles declare at startup.
func (c *Config) ToInfraConfig() *mqinfra.Config {
	return &mqinfra.Config{
		ServerURL:          c.RabbitMQ.URL(),
		Exchange:           c.RabbitMQ.Exchange,
		DeliveryQueue:      c.RabbitMQ.DeliveryQueue,
		RetryQueue:         c.RabbitMQ.RetryQueue,
		DeadLetterExchange: c.RabbitMQ.DeadLetterExchange,
		DeadLetterQueue:    c.RabbitMQ.DeadLetterQueue,
		RoutingKey:         c.RabbitMQ.RoutingKey,
		MessageTTL:         time.Duration(c.RabbitMQ.MessageTTLSeconds) * time.Second,
	}
}

// IDTemplateConfig is the configuration for ID generation templates
type IDTemplateConfig struct {
	Event       string `yaml:"event" env:"ID_TEMPLATE_EVENT" desc:"Go template for event IDs. Available functions: uuidv4, uuidv7, nanoid. Default: 'evt_{{uuidv4}}'" required:"N"`
	Delivery    string `yaml:"delivery" env:"ID_TEMPLATE_DELIVERY" desc:"Go template for delivery IDs. Default: 'dlv_{{uuidv4}}'" required:"N"`
	Source      string `yaml:"source" env:"ID_TEMPLATE_SOURCE" desc:"Go template for source IDs. Default: 'src_{{uuidv4}}'" required:"N"`
	Destination string `yaml:"destination" env:"ID_TEMPLATE_DESTINATION" desc:"Go template for destination IDs. Default: 'dst_{{uuidv4}}'" required:"N"`
	Rule        string `yaml:"rule" env:"ID_TEMPLATE_RULE" desc:"Go template for destination rule IDs. Default: 'rul_{{uuidv4}}'" required:"N"`
}

func (c IDTemplateConfig) ToConfig() idgen.IDTemplateConfig {
	return idgen.IDTemplateConfig{
		Event:       c.Event,
		Delivery:    c.Delivery,
		Source:      c.Source,
		Destination: c.Destination,
		Rule:        c.Rule,
	}
}
