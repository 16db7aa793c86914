package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/alvaroaleman/tasmota_exporter/internal"
	"github.com/alvaroaleman/tasmota_exporter/internal/config"
)

func main() {
	var configFile string
	cmd := &cobra.Command{
		Use:          "tasmota_exporter",
		Short:        "Writes Tasmota smart plug telemetry from MQTT into InfluxDB",
		Long:         "Writes Tasmota smart plug telemetry from MQTT into InfluxDB. Configuration is read from the environment (INFLUXDB_*, MQTT_*, BASE_TOPIC, LOGLEVEL, TIMEZONE).",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
	}
	cmd.Flags().StringVar(&configFile, "config-file", os.Getenv("CONFIG_FILE"), "Optional YAML configuration file, environment variables take precedence")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile, os.LookupEnv)
		if err != nil {
			return err
		}
		log, err := setupLogger(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to configure logger: %w", err)
		}
		defer func() { _ = log.Sync() }()
		return internal.Run(cfg, log)
	}
	if err := cmd.Execute(); err != nil {
		fmt.Printf("error executing command: %v\n", err)
		os.Exit(1)
	}
}

func setupLogger(logLevel string) (*zap.Logger, error) {
	var level zapcore.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = zap.DebugLevel
	case "info":
		level = zap.InfoLevel
	case "warn", "warning":
		level = zap.WarnLevel
	case "error":
		level = zap.ErrorLevel
	case "dpanic":
		level = zap.DPanicLevel
	case "panic":
		level = zap.PanicLevel
	case "fatal", "critical":
		level = zap.FatalLevel
	default:
		return nil, fmt.Errorf("unknown log level: %s", logLevel)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stdout"}
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder

	return cfg.Build()
}
