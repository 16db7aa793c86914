package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/alvaroaleman/tasmota_exporter/internal/collector"
	"github.com/alvaroaleman/tasmota_exporter/internal/config"
	"github.com/alvaroaleman/tasmota_exporter/internal/dispatcher"
	"github.com/alvaroaleman/tasmota_exporter/internal/influxdb"
	"github.com/alvaroaleman/tasmota_exporter/internal/transport"
)

const (
	shutdownTimeout = 5 * time.Second

	// sampleDeviceTime has the shape of a Tasmota "Time" value.
	sampleDeviceTime = "2021-01-01T00:00:00"
)

func Run(cfg config.Config, log *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("Tasmota MQTT InfluxDB exporter started", cfg.Fields()...)

	if err := validateTimezone(cfg.Timezone); err != nil {
		return err
	}

	collector := collector.New()
	registry := prometheus.NewRegistry()
	if err := registry.Register(collector); err != nil {
		return fmt.Errorf("failed to register collector: %w", err)
	}

	influx := influxdb.Connect(ctx, cfg.InfluxDB, log)
	defer influx.Close()
	log.Info("InfluxDB client initialised", zap.String("url", influxdb.ServerURL(cfg.InfluxDB)))

	d := dispatcher.New(log, dispatcher.Options{
		BaseTopic: cfg.BaseTopic,
		Timezone:  cfg.Timezone,
	}, influx, collector)

	transport.SetLogger(log)
	client := transport.NewClient(transport.Options{
		Host:     cfg.MQTT.Host,
		Port:     cfg.MQTT.Port,
		ClientID: cfg.MQTT.ClientID,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
	}, d, log)

	log.Info("Attempting to connect to MQTT server", zap.String("broker", cfg.MQTT.Host), zap.Int("port", cfg.MQTT.Port))
	if connected, err := connectMQTT(ctx, client, log); err != nil || !connected {
		return err
	}
	defer transport.Disconnect(client)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: cfg.MetricsAddress, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Info("Starting HTTP server", zap.String("address", cfg.MetricsAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
			cancel()
			return
		}
		log.Info("HTTP server shut down")
	}()

	<-ctx.Done()
	log.Info("Signal received, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}

	return nil
}

// validateTimezone rejects a TIMEZONE suffix that would make every point's
// timestamp unparseable.
func validateTimezone(timezone string) error {
	if _, err := influxdb.ParseTimestamp(sampleDeviceTime + timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", timezone, err)
	}
	return nil
}

// connectMQTT waits for the first MQTT connection. A shutdown signal received
// while still connecting is not an error.
func connectMQTT(ctx context.Context, client pahomqtt.Client, log *zap.Logger) (bool, error) {
	if err := transport.Connect(ctx, client); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("Shutdown requested before connecting to MQTT server")
			return false, nil
		}
		return false, err
	}
	return true, nil
}
