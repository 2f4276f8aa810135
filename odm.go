package odm

import (
	"log/slog"
	"reflect"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/aretw0/odm/internal/platform"
	"github.com/aretw0/odm/pkg/core"
	"github.com/aretw0/odm/pkg/discriminator"
	"github.com/aretw0/odm/pkg/enum"
	"github.com/aretw0/odm/pkg/mapper"
	"github.com/aretw0/odm/pkg/typed"
)

// --- Types ---

// Mapper is a public alias for the mapper engine.
type Mapper = mapper.Mapper

// Repository is a public alias for the typed repository.
type Repository[T any] = typed.Repository[T]

// Collection is the storage contract used by repositories.
type Collection = core.Collection

// Serializable, Unserializable and Enum are the capabilities a type can
// implement to take over its own representation.
type (
	Serializable   = core.Serializable
	Unserializable = core.Unserializable
	Enum           = core.Enum
)

// --- Errors ---

var (
	ErrUnsupportedValue          = core.ErrUnsupportedValue
	ErrUnresolvableDiscriminator = core.ErrUnresolvableDiscriminator
	ErrUnmatchedEnum             = core.ErrUnmatchedEnum
	ErrCyclicStructure           = core.ErrCyclicStructure
	ErrNameCollision             = core.ErrNameCollision
	ErrTypeMismatch              = core.ErrTypeMismatch
	ErrInvalidTarget             = core.ErrInvalidTarget
	ErrNotFound                  = core.ErrNotFound
)

// --- Configuration ---

// Option defines a functional option for configuring a Mapper.
type Option = platform.Option

// WithLogger sets the logger for the mapper.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithStrictNames rejects types where two persisted fields share a document name.
func WithStrictNames(strict bool) Option {
	return platform.WithStrictNames(strict)
}

// WithMillisecondPrecision keeps milliseconds when storing dates.
func WithMillisecondPrecision(enabled bool) Option {
	return platform.WithMillisecondPrecision(enabled)
}

// WithRegistry shares a discriminator registry.
func WithRegistry(r *discriminator.Registry) Option {
	return platform.WithRegistry(r)
}

// WithEnums shares an enum registry.
func WithEnums(r *enum.Registry) Option {
	return platform.WithEnums(r)
}

// --- Factory ---

// New creates a Mapper.
func New(opts ...Option) *Mapper {
	return platform.New(opts...)
}

// Default returns the process-wide Mapper used by the package-level functions.
func Default() *Mapper {
	return platform.Default()
}

// SetDefault replaces the process-wide Mapper.
func SetDefault(m *Mapper) {
	platform.SetDefault(m)
}

// NewRepository creates a typed repository over coll using the default Mapper.
func NewRepository[T any](coll Collection) *Repository[T] {
	return typed.NewRepository[T](coll, Default())
}

// --- Registration ---

// Register makes T available under name for discriminator maps and type= tags.
func Register[T any](name string) error {
	return discriminator.Register[T](Default().Types(), name)
}

// Abstract attaches a discriminator map to T: the value of property selects
// one of the registered type names.
func Abstract[T any](property string, types map[string]string) error {
	return discriminator.Abstract[T](Default().Types(), property, types)
}

// RegisterEnum declares the choices of an enum type.
func RegisterEnum[E Enum](choices ...E) {
	enum.Register(Default().Enums(), choices...)
}

// --- Operations ---

// ToDocument converts a mapped value into a document.
func ToDocument(v any) (bson.D, error) {
	return Default().ToDocument(v)
}

// FromDocument builds a T from a document.
func FromDocument[T any](data any) (T, error) {
	return mapper.FromDocument[T](Default(), data)
}

// Decode populates target from a document.
func Decode(data any, target any) error {
	return Default().Decode(data, target)
}

// SerializeValue converts any supported value to its document form.
func SerializeValue(v any) (any, error) {
	return Default().SerializeValue(v)
}

// DeserializeValue converts a document value back, guided by hint.
func DeserializeValue(v any, hint reflect.Type) (any, error) {
	return Default().DeserializeValue(v, hint)
}
