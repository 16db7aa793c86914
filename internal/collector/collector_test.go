package collector

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// collect returns descriptor -> "device/kind" -> value.
func collect(t *testing.T, c *Collector) map[string]map[string]float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 100)
	c.Collect(ch)
	close(ch)

	out := map[string]map[string]float64{}
	for m := range ch {
		var pb dto.Metric
		if err := m.Write(&pb); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		labels := map[string]string{}
		for _, l := range pb.GetLabel() {
			labels[l.GetName()] = l.GetValue()
		}
		name := m.Desc().String()
		if out[name] == nil {
			out[name] = map[string]float64{}
		}
		out[name][labels["device"]+"/"+labels["kind"]] = pb.GetCounter().GetValue()
	}
	return out
}

func TestCollector(t *testing.T) {
	c := New()
	c.IncMessages("plug1", "SENSOR")
	c.IncMessages("plug1", "SENSOR")
	c.IncMessages("plug2", "STATE")
	c.IncPointsWritten("plug1", "SENSOR")
	c.IncDropped("", "")

	got := collect(t, c)

	var messages, written, dropped map[string]float64
	for desc, values := range got {
		switch {
		case strings.Contains(desc, string(metricNameMessages)):
			messages = values
		case strings.Contains(desc, string(metricNamePointsWritten)):
			written = values
		case strings.Contains(desc, string(metricNameDropped)):
			dropped = values
		}
	}

	if messages["plug1/SENSOR"] != 2 || messages["plug2/STATE"] != 1 {
		t.Errorf("messages = %v", messages)
	}
	if written["plug1/SENSOR"] != 1 {
		t.Errorf("points written = %v", written)
	}
	if dropped["/"] != 1 {
		t.Errorf("dropped = %v", dropped)
	}
}

func TestCollector_Describe(t *testing.T) {
	ch := make(chan *prometheus.Desc, 10)
	New().Describe(ch)
	close(ch)

	n := 0
	for range ch {
		n++
	}
	if n != 5 {
		t.Errorf("Describe() sent %d descriptors, want 5", n)
	}
}

func TestCollector_Register(t *testing.T) {
	if err := prometheus.NewRegistry().Register(New()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
}
