/*
Package machine builds machines on top of the storage engine.

PURPOSE:
  A machine owns an item storage, a fluid storage and an energy pool, plus a
  configuration that decides what the outside world may do with them: which
  block face exposes which resource in which direction, who may open the
  machine, and how it reacts to redstone.

KEY CONCEPTS:
  Face:          One of the six block faces, relative to the machine's front.
  ResourceType:  What a face exposes (nothing, energy, items, fluids, any).
  IOFace:        A face's resource type, flow and optional slot selection.
  Configuration: IO faces, security, redstone activation and status.
  Type:          The shared definition machines are instantiated from.
  World:         The set of live machines and the automation links between
                 them, ticked on a fixed interval.

TRANSACTIONS:
  Every tick of a machine runs in one root transaction. The machine's
  behaviour and its outgoing links either all commit or all roll back.

SEE ALSO:
  - generic/: The storage engine
  - factory/: Machine type definitions from YAML/JSON
  - store/: Store implementations for machine records
*/
package machine

import (
	"fmt"
	"strings"

	"github.com/warp/machine-storage/generic"
)

// =============================================================================
// FACE
// =============================================================================

// Face is a block face relative to the machine's front.
type Face uint8

const (
	FaceFront Face = iota
	FaceBack
	FaceLeft
	FaceRight
	FaceTop
	FaceBottom
)

// Faces lists every face in ordinal order.
var Faces = [6]Face{FaceFront, FaceBack, FaceLeft, FaceRight, FaceTop, FaceBottom}

var faceNames = [6]string{"front", "back", "left", "right", "top", "bottom"}

func (f Face) String() string {
	if int(f) < len(faceNames) {
		return faceNames[f]
	}
	return fmt.Sprintf("face(%d)", f)
}

// Opposite returns the face pointing the other way.
func (f Face) Opposite() Face {
	switch f {
	case FaceFront:
		return FaceBack
	case FaceBack:
		return FaceFront
	case FaceLeft:
		return FaceRight
	case FaceRight:
		return FaceLeft
	case FaceTop:
		return FaceBottom
	default:
		return FaceTop
	}
}

func ParseFace(s string) (Face, error) {
	for i, name := range faceNames {
		if strings.EqualFold(s, name) {
			return Face(i), nil
		}
	}
	return 0, &generic.ArgumentError{Field: "face", Reason: fmt.Sprintf("unknown face %q", s)}
}

// =============================================================================
// RESOURCE TYPE
// =============================================================================

// ResourceType is what a face exposes. Ordinals are persisted.
type ResourceType uint8

const (
	ResourceNone ResourceType = iota
	ResourceEnergy
	ResourceItem
	ResourceFluid
	ResourceAny
)

var resourceTypeNames = [...]string{"none", "energy", "item", "fluid", "any"}

func (t ResourceType) String() string {
	if int(t) < len(resourceTypeNames) {
		return resourceTypeNames[t]
	}
	return fmt.Sprintf("resource(%d)", t)
}

// WillAccept reports whether a face configured as t exposes other.
func (t ResourceType) WillAccept(other ResourceType) bool {
	return t != ResourceNone && (t == other || t == ResourceAny)
}

// MatchesSlots reports whether t refers to slotted storage.
func (t ResourceType) MatchesSlots() bool {
	return t == ResourceItem || t == ResourceFluid
}

// MatchesGroups reports whether a selection may be applied to t.
func (t ResourceType) MatchesGroups() bool {
	return t != ResourceNone && t != ResourceEnergy
}

func ParseResourceType(s string) (ResourceType, error) {
	for i, name := range resourceTypeNames {
		if strings.EqualFold(s, name) {
			return ResourceType(i), nil
		}
	}
	return 0, &generic.ArgumentError{Field: "resource", Reason: fmt.Sprintf("unknown resource type %q", s)}
}

// ResourceTypeFromOrdinal decodes a persisted ordinal.
func ResourceTypeFromOrdinal(ordinal int) (ResourceType, bool) {
	if ordinal < 0 || ordinal >= len(resourceTypeNames) {
		return ResourceNone, false
	}
	return ResourceType(ordinal), true
}
