package machine

import (
	"github.com/warp/machine-storage/generic"
)

// StatusType classifies a status for display and for deciding whether the
// machine counts as running.
type StatusType uint8

const (
	StatusWorking StatusType = iota
	StatusPartiallyWorking
	StatusMissingResource
	StatusMissingFluids
	StatusMissingEnergy
	StatusMissingItems
	StatusOutputFull
	StatusOther
)

// IsActive reports whether a machine with this status is producing.
func (t StatusType) IsActive() bool {
	return t == StatusWorking || t == StatusPartiallyWorking
}

// Status is a named machine state. Statuses are compared by pointer.
type Status struct {
	ID   string
	Name string
	Type StatusType
}

func (s *Status) String() string {
	if s == nil {
		return "none"
	}
	return s.ID
}

// Common statuses.
var (
	StatusActive          = &Status{ID: "active", Name: "Active", Type: StatusWorking}
	StatusIdle            = &Status{ID: "idle", Name: "Idle", Type: StatusMissingResource}
	StatusNotEnoughEnergy = &Status{ID: "not_enough_energy", Name: "Not Enough Energy", Type: StatusMissingEnergy}
	StatusInvalidRecipe   = &Status{ID: "invalid_recipe", Name: "Invalid Recipe", Type: StatusMissingItems}
	StatusOutputBlocked   = &Status{ID: "output_full", Name: "Output Full", Type: StatusOutputFull}
	StatusCapacitorFull   = &Status{ID: "capacitor_full", Name: "Capacitor Full", Type: StatusOutputFull}
	StatusDisabled        = &Status{ID: "disabled", Name: "Disabled", Type: StatusOther}
)

// CommonStatuses returns the built-in statuses keyed by id.
func CommonStatuses() map[string]*Status {
	out := make(map[string]*Status)
	for _, s := range []*Status{
		StatusActive, StatusIdle, StatusNotEnoughEnergy, StatusInvalidRecipe,
		StatusOutputBlocked, StatusCapacitorFull, StatusDisabled,
	} {
		out[s.ID] = s
	}
	return out
}

// StatusDomain is the ordered set of statuses a machine type can report.
// Positions are persisted and synced; a nil status is encoded as -1.
type StatusDomain struct {
	statuses *generic.Registry[*Status]
}

// NewStatusDomain creates a domain. Order fixes the encoding.
func NewStatusDomain(statuses ...*Status) (*StatusDomain, error) {
	ids := make([]string, len(statuses))
	for i, s := range statuses {
		ids[i] = s.ID
	}
	d := &StatusDomain{statuses: generic.NewRegistryWithTable[*Status]("status", ids)}
	for _, s := range statuses {
		if _, err := d.statuses.Register(s.ID, s); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *StatusDomain) Len() int { return d.statuses.Len() }

// Contains reports whether s belongs to the domain. nil always does.
func (d *StatusDomain) Contains(s *Status) bool {
	if s == nil {
		return true
	}
	got, err := d.statuses.ByID(s.ID)
	return err == nil && got == s
}

// IndexOf returns the encoding of s, -1 for nil or foreign statuses.
func (d *StatusDomain) IndexOf(s *Status) int {
	if s == nil || !d.Contains(s) {
		return -1
	}
	i, _ := d.statuses.Ordinal(s.ID)
	return i
}

// At decodes an index. Out-of-range values decode to nil.
func (d *StatusDomain) At(index int) *Status {
	s, _ := d.statuses.ByOrdinal(index)
	return s
}

// ByID resolves a status id within the domain.
func (d *StatusDomain) ByID(id string) (*Status, error) {
	return d.statuses.ByID(id)
}

// IDs lists the domain in encoding order.
func (d *StatusDomain) IDs() []string { return d.statuses.IDs() }
