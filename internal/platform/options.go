package platform

import (
	"log/slog"

	"github.com/aretw0/odm/pkg/discriminator"
	"github.com/aretw0/odm/pkg/enum"
)

// options holds the internal configuration for a mapper.
type options struct {
	logger *slog.Logger
	strict bool
	millis bool
	types  *discriminator.Registry
	enums  *enum.Registry
}

// Option defines a functional option for configuring the mapper.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{}
}

// WithLogger sets the logger used by the mapper and its registries.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStrictNames rejects mapped types where two persisted fields share a
// document name. By default a warning is logged and the last field wins.
func WithStrictNames(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// WithMillisecondPrecision keeps milliseconds when storing time.Time values.
// By default dates are truncated to whole seconds.
func WithMillisecondPrecision(enabled bool) Option {
	return func(o *options) {
		o.millis = enabled
	}
}

// WithRegistry shares a discriminator registry between mappers.
func WithRegistry(r *discriminator.Registry) Option {
	return func(o *options) {
		o.types = r
	}
}

// WithEnums shares an enum registry between mappers.
func WithEnums(r *enum.Registry) Option {
	return func(o *options) {
		o.enums = r
	}
}
