// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package logging

import (
	"fmt"
	"log/slog"
	"strings"
)

// Format selects how log records are rendered.
type Format string

const (
	FormatCompact Format = "compact"
	FormatPretty  Format = "pretty"
	FormatJSON    Format = "json"
)

// UnknownValueError
type UnknownValueError struct {
	Kind  string
	Value string
}

// Error implements the [builtin.error] interface.
func (e UnknownValueError) Error() string {
	return fmt.Sprintf("invalid %s: '%s'", e.Kind, e.Value)
}

// ParseFormat is case insensitive.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCompact, FormatPretty, FormatJSON:
		return f, nil
	default:
		return "", UnknownValueError{Kind: "log format", Value: s}
	}
}

// UnmarshalText implements the [encoding.TextUnmarshaler] interface.
func (f *Format) UnmarshalText(b []byte) error {
	v, err := ParseFormat(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

func (f Format) valid() bool {
	_, err := ParseFormat(string(f))
	return err == nil
}

// LevelTrace is more verbose than [slog.LevelDebug].
const LevelTrace = slog.LevelDebug - 4

// ParseLevel accepts trace, debug, info, warn, warning and error in any
// case, as well as anything [slog.Level.UnmarshalText] understands.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "warning":
		return slog.LevelWarn, nil
	}

	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(strings.TrimSpace(s)))
	if err != nil {
		return 0, UnknownValueError{Kind: "log level", Value: s}
	}
	return lvl, nil
}

// SpanEvents selects which span lifecycle events are logged.
type SpanEvents uint8

const (
	SpanEventsNew SpanEvents = 1 << iota
	SpanEventsClose

	SpanEventsNone SpanEvents = 0
	SpanEventsFull            = SpanEventsNew | SpanEventsClose
)

// Has reports whether every event in o is enabled in e.
func (e SpanEvents) Has(o SpanEvents) bool {
	return e&o == o
}

// ParseSpanEvents parses a '|' separated list such as "NEW|CLOSE".
// Each entry may optionally be prefixed with "FMT::" and matching is
// case insensitive. An empty string disables span events.
func ParseSpanEvents(s string) (SpanEvents, error) {
	var events SpanEvents
	for _, part := range strings.Split(s, "|") {
		part = strings.ToUpper(strings.TrimSpace(part))
		part = strings.TrimPrefix(part, "FMT::")
		switch part {
		case "", "NONE":
		case "NEW":
			events |= SpanEventsNew
		case "CLOSE":
			events |= SpanEventsClose
		case "FULL", "ACTIVE":
			events |= SpanEventsFull
		default:
			return 0, UnknownValueError{Kind: "span events", Value: s}
		}
	}
	return events, nil
}

// Rotation is the time based policy used to roll over the log file.
type Rotation string

const (
	RotationNever    Rotation = "never"
	RotationMinutely Rotation = "minutely"
	RotationHourly   Rotation = "hourly"
	RotationDaily    Rotation = "daily"
)

// ParseRotation is case insensitive. An empty string means never.
func ParseRotation(s string) (Rotation, error) {
	switch r := Rotation(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return RotationNever, nil
	case RotationNever, RotationMinutely, RotationHourly, RotationDaily:
		return r, nil
	default:
		return "", UnknownValueError{Kind: "rotation", Value: s}
	}
}

// UnmarshalText implements the [encoding.TextUnmarshaler] interface.
func (r *Rotation) UnmarshalText(b []byte) error {
	v, err := ParseRotation(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// schedule returns the cron spec for r, or "" if r never rotates.
func (r Rotation) schedule() string {
	switch r {
	case RotationMinutely:
		return "@every 1m"
	case RotationHourly:
		return "@hourly"
	case RotationDaily:
		return "@daily"
	default:
		return ""
	}
}
