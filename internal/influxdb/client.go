package influxdb

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"

	"github.com/alvaroaleman/tasmota_exporter/internal/config"
	"github.com/alvaroaleman/tasmota_exporter/internal/tasmota"
)

const pingTimeout = 5 * time.Second

// pointWriter is the subset of api.WriteAPIBlocking used for writes.
type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// Client writes Records to an InfluxDB 1.x database through the v2 client's
// compatibility endpoints. Writes are synchronous and never retried.
type Client struct {
	client influxdb2.Client
	writer pointWriter
}

func ServerURL(cfg config.InfluxDB) string {
	scheme := "http"
	if cfg.SSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port)
}

// Connect creates the client used for the lifetime of the process. An
// unreachable server is only logged, the first write will surface it again.
func Connect(ctx context.Context, cfg config.InfluxDB, log *zap.Logger) *Client {
	opts := influxdb2.DefaultOptions()
	if cfg.SSL {
		// #nosec G402 -- skipping verification is an explicit operator choice
		opts.SetTLSConfig(&tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: cfg.NoVerifySSL,
		})
	}

	// InfluxDB 1.x accepts "username:password" as token and "database" as bucket.
	client := influxdb2.NewClientWithOptions(
		ServerURL(cfg),
		fmt.Sprintf("%s:%s", cfg.Username, cfg.Password),
		opts,
	)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if ok, err := client.Ping(pingCtx); err != nil || !ok {
		log.Warn("InfluxDB not reachable yet", zap.String("url", ServerURL(cfg)), zap.Error(err))
	}

	return &Client{
		client: client,
		writer: client.WriteAPIBlocking("", cfg.Database),
	}
}

// Write sends all records in a single request.
func (c *Client) Write(ctx context.Context, records ...tasmota.Record) error {
	points := make([]*write.Point, 0, len(records))
	for _, r := range records {
		p, err := toPoint(r)
		if err != nil {
			return err
		}
		points = append(points, p)
	}

	if err := c.writer.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// timestampLayouts are tried in order. The last one has no offset and is
// read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999Z07",
	"2006-01-02T15:04:05.999999999",
}

// ParseTimestamp parses a device time with the configured timezone suffix
// appended. Extended (+01:00), basic (+0100) and hour-only (+01) offsets are
// accepted, as is no suffix at all.
func ParseTimestamp(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range timestampLayouts {
		ts, err := time.Parse(layout, s)
		if err == nil {
			return ts, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q: %w", ErrInvalidTimestamp, s, firstErr)
}

func toPoint(r tasmota.Record) (*write.Point, error) {
	ts, err := ParseTimestamp(r.Timestamp)
	if err != nil {
		return nil, err
	}
	return write.NewPoint(r.Measurement, r.Tags, r.Fields, ts), nil
}
