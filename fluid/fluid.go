/*
Package fluid instantiates the generic storage engine for fluids.

PURPOSE:
  Fluids are measured in droplets. A bucket is 81000 droplets, which divides
  evenly into bottles, ingots and nuggets. Tanks have no per-fluid limit: a
  slot's capacity is its configured droplet count.

DISPLAY AMOUNTS:
  People think in buckets. Buckets and FromBuckets convert between droplets
  and decimal bucket counts without floating point error; conversions from
  buckets truncate to whole droplets.

SEE ALSO:
  - item/: The item instantiation
  - generic/variant.go: Kind and Variant
*/
package fluid

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/machine-storage/generic"
)

// Droplet constants.
const (
	Bucket generic.Amount = 81000
	Bottle generic.Amount = 27000
	Ingot  generic.Amount = 9000
	Nugget generic.Amount = 1000
)

var bucketDecimal = decimal.NewFromInt(int64(Bucket))

// Buckets converts droplets to buckets.
func Buckets(droplets generic.Amount) decimal.Decimal {
	return decimal.NewFromInt(int64(droplets)).Div(bucketDecimal)
}

// FromBuckets converts buckets to whole droplets.
func FromBuckets(buckets decimal.Decimal) (generic.Amount, error) {
	if buckets.IsNegative() {
		return 0, &generic.ArgumentError{Field: "buckets", Reason: fmt.Sprintf("must not be negative, got %s", buckets)}
	}
	return generic.Amount(buckets.Mul(bucketDecimal).IntPart()), nil
}

// ParseBuckets parses a decimal bucket count such as "1.5".
func ParseBuckets(s string) (generic.Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, &generic.ArgumentError{Field: "buckets", Reason: err.Error()}
	}
	return FromBuckets(d)
}

// FormatBuckets renders droplets as buckets with up to three decimals.
func FormatBuckets(droplets generic.Amount) string {
	return Buckets(droplets).Truncate(3).String() + " B"
}

// =============================================================================
// FLUID TYPES
// =============================================================================

// Type is a fluid type. A nil *Type is the blank fluid.
type Type struct {
	ID      string
	Name    string
	Gaseous bool
	// Colour is the ARGB tint used when rendering tanks.
	Colour uint32
}

func (t *Type) String() string {
	if t == nil {
		return "empty"
	}
	return t.ID
}

// Registry holds the known fluid types.
type Registry struct {
	types *generic.Registry[*Type]
}

func NewRegistry() *Registry {
	return &Registry{types: generic.NewRegistry[*Type]("fluid")}
}

// Register adds a fluid type.
func (r *Registry) Register(t Type) (*Type, error) {
	if t.ID == "" {
		return nil, &generic.ArgumentError{Field: "id", Reason: "must not be empty"}
	}
	if t.Name == "" {
		t.Name = t.ID
	}
	registered := &t
	if _, err := r.types.Register(t.ID, registered); err != nil {
		return nil, err
	}
	return registered, nil
}

func (r *Registry) MustRegister(t Type) *Type {
	registered, err := r.Register(t)
	if err != nil {
		panic(err)
	}
	return registered
}

func (r *Registry) Get(id string) (*Type, error) {
	return r.types.ByID(id)
}

func (r *Registry) IDs() []string { return r.types.IDs() }

var _ generic.Kind[*Type] = (*Registry)(nil)

func (r *Registry) Name() string      { return "fluid" }
func (r *Registry) ID(t *Type) string { return t.ID }

func (r *Registry) Lookup(id string) (*Type, bool) {
	if id == "" {
		return nil, false
	}
	t, err := r.types.ByID(id)
	return t, err == nil
}

// SlotCapacity is the configured capacity; fluids do not stack-limit.
func (r *Registry) SlotCapacity(_ *Type, capacity generic.Amount) generic.Amount {
	return capacity
}

// Defaults registers the fluids the bundled machine definitions use.
func Defaults(r *Registry) error {
	for _, t := range []Type{
		{ID: "water", Colour: 0xff3f76e4},
		{ID: "lava", Colour: 0xffd96415},
		{ID: "oxygen", Gaseous: true, Colour: 0xffdbe9ff},
	} {
		if _, err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// STORAGE ALIASES
// =============================================================================

type (
	Variant        = generic.Variant[*Type]
	Filter         = generic.Filter[*Type]
	Slot           = generic.Slot[*Type]
	Storage        = generic.Storage[*Type]
	StorageBuilder = generic.StorageBuilder[*Type]
)

func Of(t *Type) Variant { return generic.Of(t) }

func NewStorageBuilder(r *Registry) *StorageBuilder {
	return generic.NewStorageBuilder[*Type](r)
}

func Accept(types ...*Type) Filter {
	return generic.AcceptResources(types...)
}
