package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/alvaroaleman/tasmota_exporter/internal/collector"
	"github.com/alvaroaleman/tasmota_exporter/internal/tasmota"
	"github.com/alvaroaleman/tasmota_exporter/internal/transport"
)

// Sink receives the records produced from telemetry messages.
type Sink interface {
	Write(ctx context.Context, records ...tasmota.Record) error
}

type Options struct {
	BaseTopic string
	Timezone  string
}

// MalformedTopicError is returned for topics that are not of the form
// <BaseTopic><device>/<kind>.
type MalformedTopicError struct {
	Topic  string
	Reason string
}

func (e *MalformedTopicError) Error() string {
	return fmt.Sprintf("malformed topic %q: %s", e.Topic, e.Reason)
}

// Dispatcher routes Tasmota messages to the decoder and the sink. It
// implements transport.Handler and must not be called concurrently.
type Dispatcher struct {
	log       *zap.Logger
	opts      Options
	decoder   tasmota.Decoder
	sink      Sink
	collector *collector.Collector
}

var _ transport.Handler = &Dispatcher{}

func New(log *zap.Logger, opts Options, sink Sink, collector *collector.Collector) *Dispatcher {
	return &Dispatcher{
		log:       log,
		opts:      opts,
		decoder:   tasmota.Decoder{Timezone: opts.Timezone},
		sink:      sink,
		collector: collector,
	}
}

func (d *Dispatcher) SubscriptionTopic() string {
	return d.opts.BaseTopic + "#"
}

func (d *Dispatcher) OnConnect(sub transport.Subscriber) error {
	topic := d.SubscriptionTopic()
	d.log.Info("Subscribing", zap.String("topic", topic))
	return sub.Subscribe(topic)
}

// OnMessage is the transport callback. Whatever happens to one message is
// logged here and never reaches the transport loop.
func (d *Dispatcher) OnMessage(topic string, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Recovered from panic while handling message",
				zap.String("topic", topic),
				zap.Any("panic", r),
			)
		}
	}()

	d.log.Debug("Received message", zap.String("topic", topic), zap.ByteString("payload", payload))

	err := d.Handle(context.Background(), topic, payload)
	if err == nil {
		return
	}

	var malformed *MalformedTopicError
	if errors.As(err, &malformed) {
		d.log.Warn("Dropping message", zap.Error(err), zap.ByteString("payload", payload))
		return
	}
	d.log.Error("Failed to process message", zap.String("topic", topic), zap.Error(err))
}

// Handle processes a single message and returns the reason it was not
// written, if it should have been.
func (d *Dispatcher) Handle(ctx context.Context, topic string, payload []byte) error {
	device, kind, err := ParseTopic(d.opts.BaseTopic, topic)
	if err != nil {
		d.collector.IncDropped("", "")
		return err
	}
	d.collector.IncMessages(device, string(kind))

	switch kind {
	case tasmota.KindSensor, tasmota.KindState:
		d.log.Info("New telemetry message", zap.String("kind", string(kind)), zap.String("device", device))
		record, err := d.decoder.Decode(device, kind, payload)
		if err != nil {
			d.collector.IncDecodeErrors(device, string(kind))
			return fmt.Errorf("device %s: %w", device, err)
		}
		if err := d.sink.Write(ctx, record); err != nil {
			d.collector.IncWriteErrors(device, string(kind))
			return fmt.Errorf("device %s: writing %s point: %w", device, record.Measurement, err)
		}
		d.collector.IncPointsWritten(device, string(kind))
	case tasmota.KindLWT:
		d.log.Info("Power socket reports", zap.String("device", device), zap.String("status", string(payload)))
	default:
		d.log.Warn("Unexpected topic", zap.String("topic", topic), zap.ByteString("payload", payload))
	}

	return nil
}

// ParseTopic strips baseTopic from topic and splits the rest into the device
// and the message kind at the first slash.
func ParseTopic(baseTopic, topic string) (string, tasmota.Kind, error) {
	subtopic, found := strings.CutPrefix(topic, baseTopic)
	if !found {
		return "", "", &MalformedTopicError{Topic: topic, Reason: fmt.Sprintf("missing prefix %q", baseTopic)}
	}
	device, kind, found := strings.Cut(subtopic, "/")
	switch {
	case !found:
		return "", "", &MalformedTopicError{Topic: topic, Reason: "no kind after device"}
	case device == "":
		return "", "", &MalformedTopicError{Topic: topic, Reason: "empty device"}
	case kind == "":
		return "", "", &MalformedTopicError{Topic: topic, Reason: "empty kind"}
	}
	return device, tasmota.Kind(kind), nil
}
