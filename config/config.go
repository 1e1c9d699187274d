// Package config centralises runtime configuration for the connector.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Duc-Dopaminne-1/hummingbot/errs"
	"github.com/Duc-Dopaminne-1/hummingbot/internal/schema"
)

// Duration decodes YAML duration strings such as "10s" alongside plain
// integer nanosecond values.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	text := strings.TrimSpace(node.Value)
	if text == "" {
		*d = 0
		return nil
	}
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		*d = Duration(n)
		return nil
	}
	dur, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("invalid duration %q", node.Value)
	}
	*d = Duration(dur)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Credentials captures API credentials used for authenticated requests.
type Credentials struct {
	APIKey     string `yaml:"apiKey"`
	APISecret  string `yaml:"apiSecret"`
	Passphrase string `yaml:"passphrase"`
}

// TelemetryConfig configures OTLP metric export.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlpEndpoint"`
	ServiceName  string `yaml:"serviceName"`
}

// Settings contains the connector configuration tree loaded from defaults,
// an optional YAML file, and environment overrides.
type Settings struct {
	RESTBaseURL  string        `yaml:"restBaseUrl"`
	WebsocketURL string        `yaml:"websocketUrl"`
	Credentials  Credentials   `yaml:"credentials"`
	TradingPairs []string      `yaml:"tradingPairs"`
	Trading      bool          `yaml:"tradingEnabled"`
	HTTPTimeout  Duration      `yaml:"httpTimeout"`

	// Poll cadence: the full pass always runs; the light pass runs only while
	// in-flight orders exist.
	LightPollInterval Duration `yaml:"lightPollInterval"`
	FullPollInterval  Duration `yaml:"fullPollInterval"`

	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// Default returns the default connector configuration.
func Default() Settings {
	return Settings{
		RESTBaseURL:       "https://api.bitget.com",
		WebsocketURL:      "wss://ws.bitget.com/spot/v1/stream",
		Credentials:       Credentials{APIKey: "", APISecret: "", Passphrase: ""},
		TradingPairs:      nil,
		Trading:           true,
		HTTPTimeout:       Duration(10 * time.Second),
		LightPollInterval: Duration(10 * time.Second),
		FullPollInterval:  Duration(60 * time.Second),
		Telemetry:         TelemetryConfig{OTLPEndpoint: "", ServiceName: "bitget-connector"},
	}
}

// Load builds Settings from defaults, the optional YAML file at path, and
// environment overrides, in that precedence order.
func Load(path string) (Settings, error) {
	cfg := Default()

	path = strings.TrimSpace(path)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("BITGET_CONNECTOR_CONFIG"))
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Settings{}, fmt.Errorf("unmarshal config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Settings{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Settings) {
	if v := strings.TrimSpace(os.Getenv("BITGET_API_KEY")); v != "" {
		cfg.Credentials.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("BITGET_API_SECRET")); v != "" {
		cfg.Credentials.APISecret = v
	}
	if v := strings.TrimSpace(os.Getenv("BITGET_PASSPHRASE")); v != "" {
		cfg.Credentials.Passphrase = v
	}
	if v := strings.TrimSpace(os.Getenv("BITGET_TRADING_PAIRS")); v != "" {
		pairs := strings.Split(v, ",")
		out := make([]string, 0, len(pairs))
		for _, pair := range pairs {
			pair = strings.ToUpper(strings.TrimSpace(pair))
			if pair != "" {
				out = append(out, pair)
			}
		}
		cfg.TradingPairs = out
	}
	if v := strings.TrimSpace(os.Getenv("BITGET_TRADING_ENABLED")); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Trading = enabled
		}
	}
	if v := strings.TrimSpace(os.Getenv("BITGET_REST_URL")); v != "" {
		cfg.RESTBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("BITGET_WS_URL")); v != "" {
		cfg.WebsocketURL = v
	}
	if v := strings.TrimSpace(os.Getenv("OTLP_ENDPOINT")); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
	}
}

// Validate performs pre-flight semantic validation on the configuration.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.RESTBaseURL) == "" {
		return errs.New("config", errs.CodeConfiguration, errs.WithMessage("rest base url required"))
	}
	if strings.TrimSpace(s.WebsocketURL) == "" {
		return errs.New("config", errs.CodeConfiguration, errs.WithMessage("websocket url required"))
	}
	if s.Trading {
		if strings.TrimSpace(s.Credentials.APIKey) == "" ||
			strings.TrimSpace(s.Credentials.APISecret) == "" ||
			strings.TrimSpace(s.Credentials.Passphrase) == "" {
			return errs.New("config", errs.CodeConfiguration,
				errs.WithMessage("api key, secret, and passphrase required when trading is enabled"))
		}
	}
	for _, pair := range s.TradingPairs {
		if err := schema.ValidatePair(pair); err != nil {
			return err
		}
	}
	if s.LightPollInterval <= 0 || s.FullPollInterval <= 0 {
		return errs.New("config", errs.CodeConfiguration, errs.WithMessage("poll intervals must be positive"))
	}
	if s.LightPollInterval > s.FullPollInterval {
		return errs.New("config", errs.CodeConfiguration,
			errs.WithMessage("light poll interval must not exceed full poll interval"))
	}
	return nil
}
