package tasmota

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type Kind string

const (
	KindSensor Kind = "SENSOR"
	KindState  Kind = "STATE"
	KindLWT    Kind = "LWT"
)

const (
	MeasurementSensor = "sensor"
	MeasurementState  = "state"

	TagDevice = "power_socket"
	TagKind   = "topic"

	FieldUptime = "Uptime"
)

// Record is a single normalized point, built fresh for every telemetry message.
type Record struct {
	Timestamp   string
	Measurement string
	Tags        map[string]string
	Fields      map[string]interface{}
}

// Decoder turns SENSOR and STATE payloads into Records. Timezone is appended
// verbatim to the device reported time.
type Decoder struct {
	Timezone string
}

type sensorPayload struct {
	Time   *string                `json:"Time"`
	Energy map[string]interface{} `json:"ENERGY"`
}

type statePayload struct {
	Time   *string `json:"Time"`
	Uptime *string `json:"Uptime"`
}

func (d Decoder) Decode(device string, kind Kind, payload []byte) (Record, error) {
	var (
		timestamp   string
		measurement string
		fields      map[string]interface{}
	)

	switch kind {
	case KindSensor:
		var p sensorPayload
		if err := unmarshal(payload, &p); err != nil {
			return Record{}, &DecodeError{Kind: kind, Err: err}
		}
		if p.Time == nil {
			return Record{}, &DecodeError{Kind: kind, Field: "Time", Err: ErrMissingField}
		}
		if len(p.Energy) == 0 {
			return Record{}, &DecodeError{Kind: kind, Field: "ENERGY", Err: ErrMissingField}
		}
		timestamp, measurement = *p.Time, MeasurementSensor
		fields = make(map[string]interface{}, len(p.Energy))
		for k, v := range p.Energy {
			fields[k] = fieldValue(v)
		}
	case KindState:
		var p statePayload
		if err := unmarshal(payload, &p); err != nil {
			return Record{}, &DecodeError{Kind: kind, Err: err}
		}
		if p.Time == nil {
			return Record{}, &DecodeError{Kind: kind, Field: "Time", Err: ErrMissingField}
		}
		if p.Uptime == nil {
			return Record{}, &DecodeError{Kind: kind, Field: FieldUptime, Err: ErrMissingField}
		}
		uptime, err := ParseUptime(*p.Uptime)
		if err != nil {
			return Record{}, &DecodeError{Kind: kind, Field: FieldUptime, Err: err}
		}
		timestamp, measurement = *p.Time, MeasurementState
		fields = map[string]interface{}{FieldUptime: uptime}
	default:
		return Record{}, &UnsupportedKindError{Kind: kind}
	}

	return Record{
		Timestamp:   timestamp + d.Timezone,
		Measurement: measurement,
		Tags: map[string]string{
			TagDevice: device,
			TagKind:   string(kind),
		},
		Fields: fields,
	}, nil
}

func unmarshal(payload []byte, target interface{}) error {
	if !json.Valid(payload) {
		return ErrMalformedJSON
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedJSON, err)
	}
	return nil
}

// fieldValue keeps integral JSON numbers as int64 and everything else numeric
// as float64 so that the sink sees the type the device sent.
func fieldValue(v interface{}) interface{} {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
