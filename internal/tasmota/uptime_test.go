package tasmota

import (
	"errors"
	"testing"
)

func TestParseUptime(t *testing.T) {
	testCases := []struct {
		in   string
		want int64
	}{
		{in: "0T01:00:00", want: 3600},
		{in: "1T00:00:10", want: 86410},
		{in: "0T00:01:01", want: 61},
		{in: "0T00:00:00", want: 0},
		{in: "0T23:59:59", want: 86399},
		{in: "12T03:04:05", want: 12*86400 + 3*3600 + 4*60 + 5},
		{in: "36500T00:00:00", want: 36500 * 86400},
		{in: "0T1:2:3", want: 3723},
		{in: "2T9:05:7", want: 2*86400 + 9*3600 + 5*60 + 7},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseUptime(tc.in)
			if err != nil {
				t.Fatalf("ParseUptime(%q) error = %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ParseUptime(%q) = %d, want %d", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseUptime_Invalid(t *testing.T) {
	for _, in := range []string{
		"",
		"01:00:00",
		"xT01:00:00",
		"-1T01:00:00",
		"1.5T01:00:00",
		"0T24:00:00",
		"0T00:60:00",
		"0T00:00:60",
		"0T01:00",
		"0T01:00:00.5",
		"0Tab:cd:ef",
		"0T:00:00",
		"0T001:00:00",
		"0T+1:00:00",
		"0T01:00:00:00",
		"0T 1:00:00",
		"106751991167301T00:00:00",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseUptime(in)
			if !errors.Is(err, ErrMalformedUptime) {
				t.Errorf("ParseUptime(%q) error = %v, want ErrMalformedUptime", in, err)
			}
		})
	}
}
