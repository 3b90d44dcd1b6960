package tracebucket

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a traced client.
type Option func(*config)

type config struct {
	propagators propagation.TextMapPropagator
	tp          trace.TracerProvider
	attrs       []attribute.KeyValue
}

// WithPropagators sets the propagators [Client.Inject] writes trace context
// with. A nil value leaves the global propagators in place.
func WithPropagators(propagators propagation.TextMapPropagator) Option {
	return func(cfg *config) {
		if propagators != nil {
			cfg.propagators = propagators
		}
	}
}

// WithTracerProvider sets where spans are sent. A nil value leaves the
// global provider in place.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(cfg *config) {
		if provider != nil {
			cfg.tp = provider
		}
	}
}

// WithAttributes adds attributes to every span, for example to tell apart
// two clients for the same scheme. It may be given more than once.
func WithAttributes(attrs ...attribute.KeyValue) Option {
	return func(cfg *config) {
		cfg.attrs = append(cfg.attrs, attrs...)
	}
}
