package platform

import (
	"log/slog"
	"sync"

	"github.com/aretw0/odm/pkg/discriminator"
	"github.com/aretw0/odm/pkg/mapper"
	"github.com/aretw0/odm/pkg/schema"
)

// New builds a mapper from the given options.
//
//	m := platform.New(platform.WithStrictNames(true))
func New(opts ...Option) *mapper.Mapper {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	types := o.types
	if types == nil {
		types = discriminator.NewRegistry(logger)
	}

	return mapper.New(mapper.Config{
		Logger:               logger,
		Fields:               schema.New(logger, o.strict),
		Types:                types,
		Enums:                o.enums,
		MillisecondPrecision: o.millis,
	})
}

var (
	defaultMu     sync.RWMutex
	defaultMapper *mapper.Mapper
)

// Default returns the process-wide mapper, creating it on first use.
func Default() *mapper.Mapper {
	defaultMu.RLock()
	m := defaultMapper
	defaultMu.RUnlock()
	if m != nil {
		return m
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultMapper == nil {
		defaultMapper = New()
	}
	return defaultMapper
}

// SetDefault replaces the process-wide mapper. Registrations made on the
// previous one are not carried over.
func SetDefault(m *mapper.Mapper) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultMapper = m
}
