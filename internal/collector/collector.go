package collector

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

func New() *Collector {
	return &Collector{
		data: map[metricName]map[string]map[string]float64{
			metricNameMessages:      {},
			metricNameDecodeErrors:  {},
			metricNamePointsWritten: {},
			metricNameWriteErrors:   {},
			metricNameDropped:       {},
		},
	}
}

type metricName string

const (
	metricPrefix            metricName = "tasmota_"
	metricNameMessages      metricName = metricPrefix + "messages_total"
	metricNameDecodeErrors  metricName = metricPrefix + "decode_errors_total"
	metricNamePointsWritten metricName = metricPrefix + "points_written_total"
	metricNameWriteErrors   metricName = metricPrefix + "write_errors_total"
	metricNameDropped       metricName = metricPrefix + "dropped_messages_total"
)

var help = map[metricName]string{
	metricNameMessages:      "Messages received per device and kind",
	metricNameDecodeErrors:  "Telemetry payloads that could not be decoded",
	metricNamePointsWritten: "Points written to InfluxDB",
	metricNameWriteErrors:   "Failed InfluxDB writes",
	metricNameDropped:       "Messages dropped because of an unexpected topic",
}

type Collector struct {
	// data maps metricName -> device -> kind -> value
	data     map[metricName]map[string]map[string]float64
	dataLock sync.Mutex
}

func (c *Collector) IncMessages(device, kind string) {
	c.inc(metricNameMessages, device, kind)
}

func (c *Collector) IncDecodeErrors(device, kind string) {
	c.inc(metricNameDecodeErrors, device, kind)
}

func (c *Collector) IncPointsWritten(device, kind string) {
	c.inc(metricNamePointsWritten, device, kind)
}

func (c *Collector) IncWriteErrors(device, kind string) {
	c.inc(metricNameWriteErrors, device, kind)
}

func (c *Collector) IncDropped(device, kind string) {
	c.inc(metricNameDropped, device, kind)
}

func (c *Collector) inc(name metricName, device string, kind string) {
	c.dataLock.Lock()
	defer c.dataLock.Unlock()
	if c.data[name] == nil {
		c.data[name] = make(map[string]map[string]float64, 1)
	}
	if c.data[name][device] == nil {
		c.data[name][device] = make(map[string]float64, 1)
	}
	c.data[name][device][kind]++
}

func desc(name metricName) *prometheus.Desc {
	return prometheus.NewDesc(string(name), help[name], []string{"device", "kind"}, nil)
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.dataLock.Lock()
	defer c.dataLock.Unlock()
	for metricName := range c.data {
		ch <- desc(metricName)
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.dataLock.Lock()
	defer c.dataLock.Unlock()

	for metricName, devices := range c.data {
		for device, kinds := range devices {
			for kind, value := range kinds {
				ch <- prometheus.MustNewConstMetric(
					desc(metricName),
					prometheus.CounterValue, value, device, kind,
				)
			}
		}
	}
}
