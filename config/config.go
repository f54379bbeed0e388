package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFileEnvName = "EXPLORER_CONFIG_FILE"
	envPrefix         = "EXPLORER"
)

const (
	SourceFile = "file"
	SourceHTTP = "http"
	SourceSQL  = "sql"

	StateMemory = "memory"
	StateRedis  = "redis"
	StateSQL    = "sql"
	StateKafka  = "kafka"
)

type catalog struct {
	Source       string        `mapstructure:"source"`
	SourcePath   string        `mapstructure:"source_path"`
	SourceURL    string        `mapstructure:"source_url"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	DefaultTheme string        `mapstructure:"default_theme"`
}

type state struct {
	Backend     string `mapstructure:"backend"`
	RedisAddr   string `mapstructure:"redis_addr"`
	RedisPrefix string `mapstructure:"redis_prefix"`
}

type httpConfig struct {
	RateLimit      int           `mapstructure:"rate_limit"`
	RateWindow     time.Duration `mapstructure:"rate_window"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxSessions    int           `mapstructure:"max_sessions"`
}

type tlsConfig struct {
	CA   string `mapstructure:"ca"`
	Cert string `mapstructure:"cert"`
	Key  string `mapstructure:"key"`
}

func (t tlsConfig) Enabled() bool {
	return t.CA != "" || t.Cert != "" || t.Key != ""
}

type consumers struct {
	ProductSaverGroup string `mapstructure:"product_saver_group"`
	StateGroup        string `mapstructure:"state_group"`
}

type topics struct {
	Products     string `mapstructure:"products"`
	ClientEvents string `mapstructure:"client_events"`
	StateStream  string `mapstructure:"state_stream"`
}

type broker struct {
	SeedBrokers        []string  `mapstructure:"seed_brokers"`
	SchemaRegistryURLs []string  `mapstructure:"schema_registry_urls"`
	TLS                tlsConfig `mapstructure:"tls"`
	Topics             topics    `mapstructure:"topics"`
	Consumers          consumers `mapstructure:"consumers"`
}

// Enabled reports whether the broker is configured. Without it the
// ingestion and client events are off.
func (b broker) Enabled() bool {
	return len(b.SeedBrokers) != 0
}

type Config struct {
	LogLevel       slog.Level `mapstructure:"log_level"`
	HTTPServerAddr string     `mapstructure:"http_server_addr"`
	SQLDB          string     `mapstructure:"sql_db"`
	Catalog        catalog    `mapstructure:"catalog"`
	State          state      `mapstructure:"state"`
	HTTP           httpConfig `mapstructure:"http"`
	Broker         broker     `mapstructure:"broker"`
}

func Load() Config {
	cfg, err := load(getConfigFilepath())
	if err != nil {
		die(err)
	}
	return cfg
}

func load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	err := v.UnmarshalExact(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("http_server_addr", ":8080")
	v.SetDefault("sql_db", "")

	v.SetDefault("catalog.source", SourceFile)
	v.SetDefault("catalog.source_path", "assets/products.json")
	v.SetDefault("catalog.source_url", "")
	v.SetDefault("catalog.fetch_timeout", "10s")
	v.SetDefault("catalog.default_theme", "light")

	v.SetDefault("state.backend", StateMemory)
	v.SetDefault("state.redis_addr", "localhost:6379")
	v.SetDefault("state.redis_prefix", "explorer:")

	v.SetDefault("http.rate_limit", 100)
	v.SetDefault("http.rate_window", "1m")
	v.SetDefault("http.request_timeout", "5s")
	v.SetDefault("http.max_sessions", 10000)

	v.SetDefault("broker.seed_brokers", []string{})
	v.SetDefault("broker.schema_registry_urls", []string{})
	v.SetDefault("broker.tls.ca", "")
	v.SetDefault("broker.tls.cert", "")
	v.SetDefault("broker.tls.key", "")
	v.SetDefault("broker.topics.products", "products")
	v.SetDefault("broker.topics.client_events", "client-events")
	v.SetDefault("broker.topics.state_stream", "session-state")
	v.SetDefault("broker.consumers.product_saver_group", "product-saver")
	v.SetDefault("broker.consumers.state_group", "session-state")
}

func (c Config) validate() error {
	switch c.Catalog.Source {
	case SourceFile:
		if c.Catalog.SourcePath == "" {
			return fmt.Errorf("catalog.source_path is required for %q source", SourceFile)
		}
	case SourceHTTP:
		if c.Catalog.SourceURL == "" {
			return fmt.Errorf("catalog.source_url is required for %q source", SourceHTTP)
		}
	case SourceSQL:
		if c.SQLDB == "" {
			return fmt.Errorf("sql_db is required for %q source", SourceSQL)
		}
	default:
		return fmt.Errorf("unknown catalog.source %q", c.Catalog.Source)
	}

	switch c.Catalog.DefaultTheme {
	case "light", "dark":
	default:
		return fmt.Errorf("unknown catalog.default_theme %q", c.Catalog.DefaultTheme)
	}

	switch c.State.Backend {
	case StateMemory, StateRedis:
	case StateSQL:
		if c.SQLDB == "" {
			return fmt.Errorf("sql_db is required for %q state", StateSQL)
		}
	case StateKafka:
		if !c.Broker.Enabled() {
			return fmt.Errorf("broker.seed_brokers is required for %q state", StateKafka)
		}
	default:
		return fmt.Errorf("unknown state.backend %q", c.State.Backend)
	}

	if c.HTTP.MaxSessions < 1 {
		return fmt.Errorf("http.max_sessions must be positive, got %d", c.HTTP.MaxSessions)
	}

	if c.Broker.Enabled() && len(c.Broker.SchemaRegistryURLs) == 0 {
		return fmt.Errorf("broker.schema_registry_urls is required with seed brokers")
	}
	return nil
}

func getConfigFilepath() string {
	cmdLine := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	arg := cmdLine.String("config", "", "config file")
	_ = cmdLine.Parse(os.Args[1:])
	env, ok := os.LookupEnv(configFileEnvName)
	if ok {
		return env
	}
	return *arg
}

func die(err error) {
	fmt.Printf("failed to load config: %v\n", err)
	os.Exit(2)
}

func (c Config) Print() {
	tamplate := `
	General:
	LogLevel=%q
	HTTPServerAddr=%q
	SQLDB=%t

	Catalog:
	Source=%q
	SourcePath=%q
	SourceURL=%q
	FetchTimeout=%s
	DefaultTheme=%q

	State:
	Backend=%q
	RedisAddr=%q
	RedisPrefix=%q

	HTTP:
	RateLimit=%d
	RateWindow=%s
	RequestTimeout=%s
	MaxSessions=%d

	BrokerConfig:
	SeedBrokers=%q
	SchemaRegistryURLs=%q
	TLS=%t
	Topics:
		Products=%q
		ClientEvents=%q
		StateStream=%q
	Consumers:
		ProductSaverGroup=%q
		StateGroup=%q

`
	fmt.Println("Loaded config:")
	fmt.Printf(
		strings.TrimLeft(tamplate, "\n"),
		c.LogLevel,
		c.HTTPServerAddr,
		c.SQLDB != "",
		c.Catalog.Source,
		c.Catalog.SourcePath,
		c.Catalog.SourceURL,
		c.Catalog.FetchTimeout,
		c.Catalog.DefaultTheme,
		c.State.Backend,
		c.State.RedisAddr,
		c.State.RedisPrefix,
		c.HTTP.RateLimit,
		c.HTTP.RateWindow,
		c.HTTP.RequestTimeout,
		c.HTTP.MaxSessions,
		c.Broker.SeedBrokers,
		c.Broker.SchemaRegistryURLs,
		c.Broker.TLS.Enabled(),
		c.Broker.Topics.Products,
		c.Broker.Topics.ClientEvents,
		c.Broker.Topics.StateStream,
		c.Broker.Consumers.ProductSaverGroup,
		c.Broker.Consumers.StateGroup,
	)
}
