// Command connector runs the Bitget spot exchange connector.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Duc-Dopaminne-1/hummingbot/config"
	"github.com/Duc-Dopaminne-1/hummingbot/errs"
	"github.com/Duc-Dopaminne-1/hummingbot/internal/bitget"
	"github.com/Duc-Dopaminne-1/hummingbot/internal/observability"
	"github.com/Duc-Dopaminne-1/hummingbot/lib/telemetry"
)

const (
	defaultConfigPath        = "config/connector.yaml"
	connectorLoggerPrefix    = "connector "
	startupTimeout           = 30 * time.Second
	telemetryShutdownTimeout = 5 * time.Second
)

func main() {
	cfgPath := parseFlags()
	ctx, cancel := newSignalContext()
	defer cancel()

	logger := newConnectorLogger()

	configPath := resolveConfigPath(cfgPath)
	if configPath == "" {
		logger.Printf("configuration file not found, using defaults")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	logger.Printf("configuration initialised: pairs=%d trading=%t", len(cfg.TradingPairs), cfg.Trading)

	meterProvider, telemetryShutdown, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		logger.Fatalf("initialize telemetry: %v", err)
	}
	observability.SetMetrics(telemetry.NewMetrics(meterProvider))
	observability.SetLogger(newStdLogger(logger))

	connector, err := bitget.NewConnector(bitget.Options{
		APIKey:            cfg.Credentials.APIKey,
		APISecret:         cfg.Credentials.APISecret,
		Passphrase:        cfg.Credentials.Passphrase,
		TradingPairs:      cfg.TradingPairs,
		RESTBaseURL:       cfg.RESTBaseURL,
		WebsocketURL:      cfg.WebsocketURL,
		HTTPTimeout:       cfg.HTTPTimeout.Std(),
		LightPollInterval: cfg.LightPollInterval.Std(),
		FullPollInterval:  cfg.FullPollInterval.Std(),
	})
	if err != nil {
		logger.Fatalf("build connector: %v", err)
	}

	startCtx, startCancel := context.WithTimeout(ctx, startupTimeout)
	err = connector.Start(startCtx)
	startCancel()
	if err != nil {
		if errs.IsFatal(err) {
			logger.Fatalf("connector down, unrecoverable: %v", err)
		}
		logger.Fatalf("start connector: %v", err)
	}
	logger.Printf("connector running")

	<-ctx.Done()
	logger.Printf("shutdown signal received")

	connector.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
	if err := telemetryShutdown(shutdownCtx); err != nil {
		logger.Printf("telemetry shutdown: %v", err)
	}
	shutdownCancel()
	logger.Printf("connector stopped")
}

func parseFlags() string {
	cfgPath := flag.String("config", "", fmt.Sprintf("Path to connector configuration file (default: %s)", defaultConfigPath))
	flag.Parse()
	return *cfgPath
}

// resolveConfigPath prefers the flag, then the default path when it exists.
// Returning empty lets the loader fall back to defaults and environment.
func resolveConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

func newSignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newConnectorLogger() *log.Logger {
	return log.New(os.Stdout, connectorLoggerPrefix, log.LstdFlags|log.Lmicroseconds)
}

// stdLogger adapts the process logger onto the observability interface.
type stdLogger struct {
	logger *log.Logger
}

func newStdLogger(logger *log.Logger) *stdLogger {
	return &stdLogger{logger: logger}
}

func (l *stdLogger) Debug(msg string, fields ...observability.Field) { l.print("DEBUG", msg, fields) }
func (l *stdLogger) Info(msg string, fields ...observability.Field)  { l.print("INFO", msg, fields) }
func (l *stdLogger) Warn(msg string, fields ...observability.Field)  { l.print("WARN", msg, fields) }
func (l *stdLogger) Error(msg string, fields ...observability.Field) { l.print("ERROR", msg, fields) }

func (l *stdLogger) print(level, msg string, fields []observability.Field) {
	if len(fields) == 0 {
		l.logger.Printf("%s %s", level, msg)
		return
	}
	line := msg
	for _, field := range fields {
		line += fmt.Sprintf(" %s=%v", field.Key, field.Value)
	}
	l.logger.Printf("%s %s", level, line)
}
