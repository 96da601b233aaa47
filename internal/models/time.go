package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Time is a provider timestamp in milliseconds since the Unix epoch.
type Time int64

const timeLayout = "2006-01-02 15:04:05"

// NewTime wraps a millisecond timestamp
func NewTime(ms int64) Time {
	return Time(ms)
}

// TimeFrom converts a time.Time, truncating to milliseconds
func TimeFrom(t time.Time) Time {
	return Time(t.UnixMilli())
}

// Now returns the current time
func Now() Time {
	return TimeFrom(time.Now())
}

// Milliseconds returns the raw epoch value
func (t Time) Milliseconds() int64 {
	return int64(t)
}

// Time returns the value as a UTC time.Time
func (t Time) Time() time.Time {
	return time.UnixMilli(int64(t)).UTC()
}

func (t Time) IsFuture() bool {
	return int64(t) > time.Now().UnixMilli()
}

func (t Time) IsPast() bool {
	return int64(t) < time.Now().UnixMilli()
}

func (t Time) Equals(other Time) bool {
	return t == other
}

func (t Time) Before(other Time) bool {
	return t < other
}

func (t Time) After(other Time) bool {
	return t > other
}

// String formats the timestamp as a UTC date time string
func (t Time) String() string {
	return t.Time().Format(timeLayout)
}

func (t Time) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(t), 10)), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string, as providers use both.
func (t *Time) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}

	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid millisecond timestamp %q: %w", string(data), err)
	}
	*t = Time(ms)
	return nil
}
