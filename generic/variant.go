package generic

import "fmt"

// =============================================================================
// KIND - What the engine needs to know about a resource family
// =============================================================================

// Kind describes a family of resources such as items or fluids. R is the
// resource type; its zero value is the blank resource.
type Kind[R comparable] interface {
	// Name is the family name used in errors and logs ("item", "fluid").
	Name() string
	// ID returns the persisted identifier of a non-blank resource.
	ID(resource R) string
	// Lookup resolves a persisted identifier.
	Lookup(id string) (R, bool)
	// SlotCapacity returns how much of resource fits in a slot whose
	// configured capacity is capacity.
	SlotCapacity(resource R, capacity Amount) Amount
}

// =============================================================================
// VARIANT - Immutable resource identity
// =============================================================================

// Variant is an immutable (resource, tag) pair. The zero Variant is blank.
type Variant[R comparable] struct {
	resource R
	tag      Compound
}

// NewVariant creates a variant. The tag is copied; an empty tag is dropped.
func NewVariant[R comparable](resource R, tag Compound) Variant[R] {
	v := Variant[R]{resource: resource}
	if len(tag) > 0 && !v.IsBlank() {
		v.tag = tag.Copy()
	}
	return v
}

// Of returns the untagged variant of resource.
func Of[R comparable](resource R) Variant[R] {
	return Variant[R]{resource: resource}
}

// Blank returns the blank variant.
func Blank[R comparable]() Variant[R] {
	return Variant[R]{}
}

func (v Variant[R]) Resource() R { return v.resource }

// Tag returns a copy of the tag, or nil when untagged.
func (v Variant[R]) Tag() Compound { return v.tag.Copy() }

func (v Variant[R]) HasTag() bool { return len(v.tag) > 0 }

func (v Variant[R]) IsBlank() bool {
	var zero R
	return v.resource == zero
}

// IsOf reports whether v holds resource, ignoring the tag.
func (v Variant[R]) IsOf(resource R) bool {
	return v.resource == resource
}

// Equal reports whether both the resource and the tag match.
func (v Variant[R]) Equal(other Variant[R]) bool {
	return v.resource == other.resource && v.tag.Equal(other.tag)
}

func (v Variant[R]) String() string {
	if v.IsBlank() {
		return "blank"
	}
	if v.HasTag() {
		return fmt.Sprintf("%v%v", v.resource, map[string]any(v.tag))
	}
	return fmt.Sprint(v.resource)
}

// =============================================================================
// FILTER
// =============================================================================

// Filter decides whether a slot accepts a variant. Filters are never asked
// about the blank variant.
type Filter[R comparable] func(Variant[R]) bool

// AcceptAll is the default filter.
func AcceptAll[R comparable]() Filter[R] {
	return func(Variant[R]) bool { return true }
}

// RejectAll accepts nothing, for output-only slots.
func RejectAll[R comparable]() Filter[R] {
	return func(Variant[R]) bool { return false }
}

// AcceptResources accepts any variant of the listed resources.
func AcceptResources[R comparable](resources ...R) Filter[R] {
	set := make(map[R]struct{}, len(resources))
	for _, r := range resources {
		set[r] = struct{}{}
	}
	return func(v Variant[R]) bool {
		_, ok := set[v.resource]
		return ok
	}
}

// Not inverts a filter.
func Not[R comparable](f Filter[R]) Filter[R] {
	return func(v Variant[R]) bool { return !f(v) }
}
