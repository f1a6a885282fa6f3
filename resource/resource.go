// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package resource builds the immutable service identity which is attached
// to every span, metric and log record a process emits.
package resource

import (
	"errors"
	"strings"
	"sync"

	"github.com/z5labs/beacon"

	"go.opentelemetry.io/otel/attribute"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// ErrEmptyServiceName
var ErrEmptyServiceName = errors.New("service name must not be empty")

// Descriptor is the service name plus an ordered, key unique set of
// attributes. A Descriptor is never mutated after [Build] returns it
// and may be shared freely between goroutines.
type Descriptor struct {
	serviceName string
	attrs       []attribute.KeyValue

	once sync.Once
	res  *sdkresource.Resource
}

// Build validates serviceName and deduplicates attrs. When a key is
// repeated the last value wins but the key keeps the position where it
// first appeared.
func Build(serviceName string, attrs ...attribute.KeyValue) (*Descriptor, error) {
	if serviceName == "" {
		return nil, beacon.InvalidConfigError{
			Field: "service_name",
			Cause: ErrEmptyServiceName,
		}
	}

	index := make(map[attribute.Key]int, len(attrs))
	deduped := make([]attribute.KeyValue, 0, len(attrs))
	for _, kv := range attrs {
		if !kv.Valid() {
			return nil, beacon.InvalidConfigError{
				Field: "attributes",
				Cause: InvalidAttributeError{Entry: string(kv.Key)},
			}
		}
		i, ok := index[kv.Key]
		if ok {
			deduped[i] = kv
			continue
		}
		index[kv.Key] = len(deduped)
		deduped = append(deduped, kv)
	}

	d := &Descriptor{
		serviceName: serviceName,
		attrs:       deduped,
	}
	return d, nil
}

// ServiceName returns the name exactly as it was given to [Build].
func (d *Descriptor) ServiceName() string {
	return d.serviceName
}

// Attributes returns a copy of the deduplicated attributes in order.
func (d *Descriptor) Attributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, len(d.attrs))
	copy(attrs, d.attrs)
	return attrs
}

// Value looks up a single attribute value by key.
func (d *Descriptor) Value(key string) (attribute.Value, bool) {
	for _, kv := range d.attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

// Resource returns the OpenTelemetry representation of the descriptor.
// It is built on first use and the same instance is returned afterwards
// so tracer, meter and logger providers all share it.
func (d *Descriptor) Resource() *sdkresource.Resource {
	d.once.Do(func() {
		kvs := make([]attribute.KeyValue, 0, len(d.attrs)+1)
		kvs = append(kvs, semconv.ServiceName(d.serviceName))
		for _, kv := range d.attrs {
			if kv.Key == semconv.ServiceNameKey {
				continue
			}
			kvs = append(kvs, kv)
		}
		d.res = sdkresource.NewWithAttributes(semconv.SchemaURL, kvs...)
	})
	return d.res
}

// InvalidAttributeError
type InvalidAttributeError struct {
	Entry string
}

// Error implements the [builtin.error] interface.
func (e InvalidAttributeError) Error() string {
	return "invalid attribute: '" + e.Entry + "'"
}

// ParseAttributes parses a comma separated list of key=value pairs, e.g.
// "environment=prod,region=us-west". Whitespace around entries, keys and
// values is trimmed and empty entries are skipped. An entry without an
// '=' or with an empty key or value is rejected.
func ParseAttributes(s string) ([]attribute.KeyValue, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var attrs []attribute.KeyValue
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		k, v, ok := strings.Cut(entry, "=")
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			return nil, beacon.InvalidConfigError{
				Field: "attributes",
				Cause: InvalidAttributeError{Entry: entry},
			}
		}
		attrs = append(attrs, attribute.String(k, v))
	}
	return attrs, nil
}
