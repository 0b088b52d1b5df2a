package machine

import (
	"fmt"
	"strings"

	"github.com/warp/machine-storage/generic"
)

// =============================================================================
// REDSTONE
// =============================================================================

// RedstoneActivation decides how redstone power gates a machine.
type RedstoneActivation uint8

const (
	// RedstoneIgnore always runs.
	RedstoneIgnore RedstoneActivation = iota
	// RedstoneLow runs only while unpowered.
	RedstoneLow
	// RedstoneHigh runs only while powered.
	RedstoneHigh
)

var redstoneNames = [...]string{"ignore", "low", "high"}

func (r RedstoneActivation) String() string {
	if int(r) < len(redstoneNames) {
		return redstoneNames[r]
	}
	return "ignore"
}

// IsActive reports whether the machine may run given its power state.
func (r RedstoneActivation) IsActive(powered bool) bool {
	switch r {
	case RedstoneLow:
		return !powered
	case RedstoneHigh:
		return powered
	default:
		return true
	}
}

func ParseRedstoneActivation(s string) (RedstoneActivation, error) {
	for i, name := range redstoneNames {
		if strings.EqualFold(s, name) {
			return RedstoneActivation(i), nil
		}
	}
	return 0, &generic.ArgumentError{Field: "redstone", Reason: fmt.Sprintf("unknown activation %q", s)}
}

// =============================================================================
// IO FACES
// =============================================================================

// IOFace is the configuration of one face. The zero value exposes nothing.
type IOFace struct {
	Type      ResourceType
	Flow      generic.Flow
	Selection generic.Selection
}

// NewIOFace configures a face without a selection.
func NewIOFace(t ResourceType, flow generic.Flow) IOFace {
	return IOFace{Type: t, Flow: flow}
}

// WithSelection restricts the face to a slot or group. Selections only apply
// to slotted resources; energy faces ignore them.
func (f IOFace) WithSelection(sel generic.Selection) IOFace {
	if !f.Type.MatchesGroups() {
		sel = generic.Selection{}
	}
	f.Selection = sel
	return f
}

func (f IOFace) IsDisabled() bool { return f.Type == ResourceNone }

func (f IOFace) Save() generic.Compound {
	c := generic.Compound{
		"Resource": int64(f.Type),
		"Flow":     int64(f.Flow),
	}
	if f.Selection.IsSet() {
		c["Selection"] = f.Selection.Save()
	}
	return c
}

// LoadIOFace decodes a face. Unknown ordinals disable the face; a missing or
// malformed selection means no restriction.
func LoadIOFace(c generic.Compound) IOFace {
	t, ok := ResourceTypeFromOrdinal(int(c.Int64("Resource")))
	if !ok {
		return IOFace{}
	}
	flow, ok := generic.FlowFromOrdinal(int(c.Int64("Flow")))
	if !ok {
		return IOFace{}
	}
	return NewIOFace(t, flow).WithSelection(generic.LoadSelection(c.Compound("Selection")))
}

// IOConfig holds the six face configurations.
type IOConfig [6]IOFace

func (c *IOConfig) Get(face Face) IOFace { return c[face] }

func (c *IOConfig) Set(face Face, io IOFace) { c[face] = io }

func (c *IOConfig) Save() generic.Compound {
	out := make(generic.Compound, len(c))
	for _, face := range Faces {
		out[faceKey(face)] = c[face].Save()
	}
	return out
}

func (c *IOConfig) Load(tag generic.Compound) {
	for _, face := range Faces {
		c[face] = LoadIOFace(tag.Compound(faceKey(face)))
	}
}

func faceKey(f Face) string {
	name := f.String()
	return strings.ToUpper(name[:1]) + name[1:]
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// Configuration is everything about a machine that is not its contents.
type Configuration struct {
	IO       IOConfig
	Security Security
	Redstone RedstoneActivation
	Status   *Status
}

// Save encodes the configuration. The status is stored as its position in
// domain, -1 when unset.
func (c *Configuration) Save(domain *StatusDomain) generic.Compound {
	return generic.Compound{
		"Configuration": c.IO.Save(),
		"Security":      c.Security.Save(),
		"Redstone":      int64(c.Redstone),
		"Status":        int64(domain.IndexOf(c.Status)),
	}
}

func (c *Configuration) Load(tag generic.Compound, domain *StatusDomain) {
	c.IO.Load(tag.Compound("Configuration"))
	c.Security.Load(tag.Compound("Security"))
	c.Redstone = RedstoneIgnore
	if r := tag.Int64("Redstone"); r >= 0 && r < int64(len(redstoneNames)) {
		c.Redstone = RedstoneActivation(r)
	}
	c.Status = domain.At(int(tag.Int64Or("Status", -1)))
}
