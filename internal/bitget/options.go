package bitget

import (
	"net/http"
	"strings"
	"time"

	"github.com/Duc-Dopaminne-1/hummingbot/internal/schema"
)

// Options configure the connector.
type Options struct {
	APIKey       string
	APISecret    string
	Passphrase   string
	TradingPairs []string

	RESTBaseURL  string
	WebsocketURL string

	HTTPTimeout       time.Duration
	LightPollInterval time.Duration
	FullPollInterval  time.Duration
	TerminalGrace     time.Duration

	// HTTPClient overrides the default client, used by tests.
	HTTPClient *http.Client
	// Sink receives domain events. Defaults to a no-op sink.
	Sink schema.EventSink
	// LocalClock overrides the wall clock, used by tests.
	LocalClock func() time.Time
}

func withDefaults(in Options) Options {
	if strings.TrimSpace(in.RESTBaseURL) == "" {
		in.RESTBaseURL = defaultRESTBaseURL
	}
	if strings.TrimSpace(in.WebsocketURL) == "" {
		in.WebsocketURL = defaultWebsocketURL
	}
	if in.HTTPTimeout <= 0 {
		in.HTTPTimeout = defaultHTTPTimeout
	}
	if in.LightPollInterval <= 0 {
		in.LightPollInterval = defaultLightPoll
	}
	if in.FullPollInterval <= 0 {
		in.FullPollInterval = defaultFullPoll
	}
	if in.TerminalGrace <= 0 {
		in.TerminalGrace = defaultTerminalGrace
	}
	if in.Sink == nil {
		in.Sink = schema.NopSink{}
	}
	if in.LocalClock == nil {
		in.LocalClock = time.Now
	}
	if in.HTTPClient == nil {
		in.HTTPClient = &http.Client{Timeout: in.HTTPTimeout}
	}
	return in
}
