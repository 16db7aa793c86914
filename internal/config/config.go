package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"sigs.k8s.io/yaml"
)

type Config struct {
	InfluxDB       InfluxDB `json:"influxdb"`
	MQTT           MQTT     `json:"mqtt"`
	BaseTopic      string   `json:"baseTopic"`
	LogLevel       string   `json:"logLevel"`
	Timezone       string   `json:"timezone"`
	MetricsAddress string   `json:"metricsAddress"`
}

type InfluxDB struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Database    string `json:"database"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	SSL         bool   `json:"ssl"`
	NoVerifySSL bool   `json:"noVerifySSL"`
}

type MQTT struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	ClientID string `json:"clientID"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

func Default() Config {
	return Config{
		InfluxDB: InfluxDB{
			Port: 8086,
		},
		MQTT: MQTT{
			Port:     1883,
			ClientID: "tasmota_exporter",
		},
		LogLevel:       "INFO",
		Timezone:       "Z",
		MetricsAddress: ":8080",
	}
}

// Load builds the configuration from the defaults, the optional YAML file at
// path and finally the environment. Every missing or invalid value is
// reported in the returned error.
func Load(path string, lookup LookupFunc) (Config, error) {
	cfg := Default()
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.UnmarshalStrict(content, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	}

	e := env{lookup: lookup}
	e.str(&cfg.InfluxDB.Host, "INFLUXDB_HOST")
	e.integer(&cfg.InfluxDB.Port, "INFLUXDB_PORT")
	e.str(&cfg.InfluxDB.Database, "INFLUXDB_DB")
	e.str(&cfg.InfluxDB.Username, "INFLUXDB_USER")
	e.str(&cfg.InfluxDB.Password, "INFLUXDB_PASSWORD")
	e.boolean(&cfg.InfluxDB.SSL, "INFLUXDB_SSL")
	e.boolean(&cfg.InfluxDB.NoVerifySSL, "INFLUXDB_NO_VERIFY_SSL")
	e.str(&cfg.MQTT.Host, "MQTT_HOST")
	e.integer(&cfg.MQTT.Port, "MQTT_PORT")
	e.str(&cfg.MQTT.ClientID, "MQTT_CLIENT_ID")
	e.str(&cfg.MQTT.Username, "MQTT_USERNAME")
	e.str(&cfg.MQTT.Password, "MQTT_PASSWORD")
	e.str(&cfg.BaseTopic, "BASE_TOPIC")
	e.str(&cfg.LogLevel, "LOGLEVEL")
	e.str(&cfg.Timezone, "TIMEZONE")
	e.str(&cfg.MetricsAddress, "METRICS_ADDRESS")

	errs := e.errs
	required := []struct {
		key   string
		value string
	}{
		{"INFLUXDB_HOST", cfg.InfluxDB.Host},
		{"INFLUXDB_DB", cfg.InfluxDB.Database},
		{"INFLUXDB_USER", cfg.InfluxDB.Username},
		{"INFLUXDB_PASSWORD", cfg.InfluxDB.Password},
		{"MQTT_HOST", cfg.MQTT.Host},
		{"BASE_TOPIC", cfg.BaseTopic},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.key))
		}
	}
	if cfg.InfluxDB.Port <= 0 || cfg.InfluxDB.Port > 65535 {
		errs = append(errs, fmt.Errorf("INFLUXDB_PORT out of range: %d", cfg.InfluxDB.Port))
	}
	if cfg.MQTT.Port <= 0 || cfg.MQTT.Port > 65535 {
		errs = append(errs, fmt.Errorf("MQTT_PORT out of range: %d", cfg.MQTT.Port))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Fields returns the configuration as log fields, without secrets.
func (c Config) Fields() []zap.Field {
	return []zap.Field{
		zap.String("influxdb_host", c.InfluxDB.Host),
		zap.Int("influxdb_port", c.InfluxDB.Port),
		zap.String("influxdb_db", c.InfluxDB.Database),
		zap.String("influxdb_user", c.InfluxDB.Username),
		zap.String("influxdb_password", "REDACTED"),
		zap.Bool("influxdb_ssl", c.InfluxDB.SSL),
		zap.Bool("influxdb_no_verify_ssl", c.InfluxDB.NoVerifySSL),
		zap.String("mqtt_host", c.MQTT.Host),
		zap.Int("mqtt_port", c.MQTT.Port),
		zap.String("mqtt_client_id", c.MQTT.ClientID),
		zap.String("mqtt_user", c.MQTT.Username),
		zap.String("base_topic", c.BaseTopic),
		zap.String("log_level", c.LogLevel),
		zap.String("timezone", c.Timezone),
		zap.String("metrics_address", c.MetricsAddress),
	}
}

type env struct {
	lookup LookupFunc
	errs   []error
}

func (e *env) str(target *string, key string) {
	if v, ok := e.lookup(key); ok {
		*target = v
	}
}

func (e *env) integer(target *int, key string) {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s is not an integer: %q", key, v))
		return
	}
	*target = n
}

// boolean follows the exporter's historic rule: only "true" in any case is true.
func (e *env) boolean(target *bool, key string) {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return
	}
	*target = strings.EqualFold(v, "true")
}
