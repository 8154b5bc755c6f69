package action

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Error kinds returned by the limit factories and JSON decoders.
// Match with errors.Is.
var (
	// ErrInvalidArgument marks a limit value outside its allowed range.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMalformedValue marks a wire value that is not a valid encoding
	// of a limit (wrong JSON type, fractional number, or out of range).
	ErrMalformedValue = errors.New("malformed value")
)

// Memory limit bounds, in megabytes.
const (
	MinMemoryMB = 128
	MaxMemoryMB = 512
	StdMemoryMB = 256
)

// Execution time limit bounds, in milliseconds.
const (
	MinDurationMS = 100
	MaxDurationMS = 300000
	StdDurationMS = 60000
)

// Log volume limit bounds, in megabytes.
const (
	MinLogMB = 0
	MaxLogMB = 10
	StdLogMB = 10
)

// MemoryLimit is the maximum memory, in megabytes, an action is permitted
// to use. Instances are immutable and always hold a value in
// [MinMemoryMB, MaxMemoryMB]; construction goes through NewMemoryLimit or
// DefaultMemoryLimit, so an in-range value can be assumed everywhere.
// On the wire a MemoryLimit is a bare JSON integer, e.g. 256.
type MemoryLimit struct {
	megabytes int
}

// DefaultMemoryLimit returns the platform default of StdMemoryMB.
func DefaultMemoryLimit() MemoryLimit {
	return MemoryLimit{megabytes: StdMemoryMB}
}

// NewMemoryLimit validates mb against [MinMemoryMB, MaxMemoryMB] and returns
// the limit. Out-of-range values fail with ErrInvalidArgument.
func NewMemoryLimit(mb int) (MemoryLimit, error) {
	if mb < MinMemoryMB {
		return MemoryLimit{}, fmt.Errorf("%w: memory limit %d MB is below the minimum of %d MB", ErrInvalidArgument, mb, MinMemoryMB)
	}
	if mb > MaxMemoryMB {
		return MemoryLimit{}, fmt.Errorf("%w: memory limit %d MB is above the maximum of %d MB", ErrInvalidArgument, mb, MaxMemoryMB)
	}
	return MemoryLimit{megabytes: mb}, nil
}

// Megabytes returns the limit value in megabytes.
func (m MemoryLimit) Megabytes() int {
	return m.megabytes
}

// MarshalJSON emits the limit as a bare JSON integer. It never fails.
func (m MemoryLimit) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(m.megabytes)), nil
}

// UnmarshalJSON decodes a bare JSON number into a validated limit.
// Non-numbers and fractional numbers fail with ErrMalformedValue; in-range
// whole numbers delegate to NewMemoryLimit, whose bound-violation message is
// forwarded under ErrMalformedValue.
func (m *MemoryLimit) UnmarshalJSON(data []byte) error {
	f, err := decodeWholeNumber(data, "memory limit")
	if err != nil {
		return err
	}
	limit, err := NewMemoryLimit(int(f))
	if err != nil {
		if errors.Is(err, ErrInvalidArgument) {
			return fmt.Errorf("%w: %w", ErrMalformedValue, err)
		}
		return fmt.Errorf("%w: memory limit malformed", ErrMalformedValue)
	}
	*m = limit
	return nil
}

// TimeLimit is the maximum wall-clock time, in milliseconds, a single
// action invocation may run. Same construction and wire contract as
// MemoryLimit, over [MinDurationMS, MaxDurationMS].
type TimeLimit struct {
	millis int
}

// DefaultTimeLimit returns the platform default of StdDurationMS.
func DefaultTimeLimit() TimeLimit {
	return TimeLimit{millis: StdDurationMS}
}

// NewTimeLimit validates ms against [MinDurationMS, MaxDurationMS] and
// returns the limit. Out-of-range values fail with ErrInvalidArgument.
func NewTimeLimit(ms int) (TimeLimit, error) {
	if ms < MinDurationMS {
		return TimeLimit{}, fmt.Errorf("%w: time limit %d ms is below the minimum of %d ms", ErrInvalidArgument, ms, MinDurationMS)
	}
	if ms > MaxDurationMS {
		return TimeLimit{}, fmt.Errorf("%w: time limit %d ms is above the maximum of %d ms", ErrInvalidArgument, ms, MaxDurationMS)
	}
	return TimeLimit{millis: ms}, nil
}

// Milliseconds returns the limit value in milliseconds.
func (t TimeLimit) Milliseconds() int {
	return t.millis
}

// Duration returns the limit as a time.Duration.
func (t TimeLimit) Duration() time.Duration {
	return time.Duration(t.millis) * time.Millisecond
}

// MarshalJSON emits the limit as a bare JSON integer. It never fails.
func (t TimeLimit) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(t.millis)), nil
}

// UnmarshalJSON decodes a bare JSON number into a validated limit.
func (t *TimeLimit) UnmarshalJSON(data []byte) error {
	f, err := decodeWholeNumber(data, "time limit")
	if err != nil {
		return err
	}
	limit, err := NewTimeLimit(int(f))
	if err != nil {
		if errors.Is(err, ErrInvalidArgument) {
			return fmt.Errorf("%w: %w", ErrMalformedValue, err)
		}
		return fmt.Errorf("%w: time limit malformed", ErrMalformedValue)
	}
	*t = limit
	return nil
}

// LogLimit is the maximum log volume, in megabytes, a single action
// invocation may produce. Same construction and wire contract as
// MemoryLimit, over [MinLogMB, MaxLogMB].
type LogLimit struct {
	megabytes int
}

// DefaultLogLimit returns the platform default of StdLogMB.
func DefaultLogLimit() LogLimit {
	return LogLimit{megabytes: StdLogMB}
}

// NewLogLimit validates mb against [MinLogMB, MaxLogMB] and returns the
// limit. Out-of-range values fail with ErrInvalidArgument.
func NewLogLimit(mb int) (LogLimit, error) {
	if mb < MinLogMB {
		return LogLimit{}, fmt.Errorf("%w: log limit %d MB is below the minimum of %d MB", ErrInvalidArgument, mb, MinLogMB)
	}
	if mb > MaxLogMB {
		return LogLimit{}, fmt.Errorf("%w: log limit %d MB is above the maximum of %d MB", ErrInvalidArgument, mb, MaxLogMB)
	}
	return LogLimit{megabytes: mb}, nil
}

// Megabytes returns the limit value in megabytes.
func (l LogLimit) Megabytes() int {
	return l.megabytes
}

// MarshalJSON emits the limit as a bare JSON integer. It never fails.
func (l LogLimit) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(l.megabytes)), nil
}

// UnmarshalJSON decodes a bare JSON number into a validated limit.
func (l *LogLimit) UnmarshalJSON(data []byte) error {
	f, err := decodeWholeNumber(data, "log limit")
	if err != nil {
		return err
	}
	limit, err := NewLogLimit(int(f))
	if err != nil {
		if errors.Is(err, ErrInvalidArgument) {
			return fmt.Errorf("%w: %w", ErrMalformedValue, err)
		}
		return fmt.Errorf("%w: log limit malformed", ErrMalformedValue)
	}
	*l = limit
	return nil
}

// decodeWholeNumber parses data as a JSON value and requires it to be a
// number with zero fractional part. 256.0 is accepted, 256.5 and "256"
// are not. The whole-number check runs before any range check.
func decodeWholeNumber(data []byte, what string) (float64, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, fmt.Errorf("%w: %s is not valid JSON: %v", ErrMalformedValue, what, err)
	}
	f, ok := raw.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be a JSON number, got %s", ErrMalformedValue, what, jsonTypeName(raw))
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %s must be a whole number, got %v", ErrMalformedValue, what, f)
	}
	// Guard the float-to-int conversion; conversion of an out-of-range
	// float is implementation-defined in Go.
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s %v is out of integer range", ErrMalformedValue, what, f)
	}
	return f, nil
}

// jsonTypeName names the JSON type of a value decoded into any.
func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "number"
	}
}
