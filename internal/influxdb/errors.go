package influxdb

import "errors"

var (
	// ErrInvalidTimestamp indicates a record whose timestamp is not RFC3339.
	ErrInvalidTimestamp = errors.New("influxdb: invalid timestamp")

	// ErrWriteFailed indicates the server rejected or did not receive a write.
	ErrWriteFailed = errors.New("influxdb: write failed")
)
