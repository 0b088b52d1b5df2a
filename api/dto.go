/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types keep the
  engine's types (variants, transactions, selections) out of the wire
  contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

FLUID AMOUNTS:
  Fluid amounts are reported both in droplets (exact) and in buckets as a
  decimal string ("0.25"). Requests may give either.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shopspring/decimal"
	"github.com/warp/machine-storage/fluid"
	"github.com/warp/machine-storage/generic"
	"github.com/warp/machine-storage/item"
	"github.com/warp/machine-storage/machine"
)

// =============================================================================
// TYPES
// =============================================================================

// TypeDTO describes a machine type.
type TypeDTO struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	ItemSlots      int      `json:"item_slots"`
	FluidSlots     int      `json:"fluid_slots"`
	EnergyCapacity int64    `json:"energy_capacity"`
	Statuses       []string `json:"statuses"`
}

func toTypeDTO(t *machine.Type) TypeDTO {
	return TypeDTO{
		ID:             t.ID,
		Name:           t.Name,
		ItemSlots:      t.Items.Size(),
		FluidSlots:     t.Fluids.Size(),
		EnergyCapacity: int64(t.Energy.Capacity),
		Statuses:       t.Statuses.IDs(),
	}
}

// =============================================================================
// MACHINES
// =============================================================================

// MachineDTO is the full state of a machine.
type MachineDTO struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Status   string             `json:"status"`
	Progress int64              `json:"progress"`
	Powered  bool               `json:"powered"`
	Redstone string             `json:"redstone"`
	Access   string             `json:"access"`
	Owner    string             `json:"owner,omitempty"`
	Energy   EnergyDTO          `json:"energy"`
	Items    []ItemSlotDTO      `json:"items"`
	Fluids   []FluidSlotDTO     `json:"fluids"`
	Faces    map[string]FaceDTO `json:"faces"`
	Links    []LinkDTO          `json:"links,omitempty"`
}

type EnergyDTO struct {
	Amount   int64 `json:"amount"`
	Capacity int64 `json:"capacity"`
}

// ItemSlotDTO is one item slot. Item is empty for an empty slot.
type ItemSlotDTO struct {
	Index    int    `json:"index"`
	Group    string `json:"group"`
	Item     string `json:"item,omitempty"`
	Count    int64  `json:"count"`
	Capacity int64  `json:"capacity"`
}

// FluidSlotDTO is one fluid slot.
type FluidSlotDTO struct {
	Index    int             `json:"index"`
	Group    string          `json:"group"`
	Fluid    string          `json:"fluid,omitempty"`
	Droplets int64           `json:"droplets"`
	Buckets  decimal.Decimal `json:"buckets"`
	Capacity decimal.Decimal `json:"capacity_buckets"`
}

// FaceDTO is the configuration of one face. Group and Slot are exclusive.
type FaceDTO struct {
	Resource string `json:"resource"`
	Flow     string `json:"flow"`
	Group    *int   `json:"group,omitempty"`
	Slot     *int   `json:"slot,omitempty"`
}

// CreateMachineRequest is the request to create a machine.
type CreateMachineRequest struct {
	Type string `json:"type"`
}

func toMachineDTO(m *machine.Machine, links []machine.Link) MachineDTO {
	cfg := m.Config()
	dto := MachineDTO{
		ID:       m.ID().String(),
		Type:     m.Type().ID,
		Status:   m.Status().String(),
		Progress: m.Progress(),
		Powered:  m.Powered(),
		Redstone: cfg.Redstone.String(),
		Access:   cfg.Security.AccessLevel().String(),
		Energy: EnergyDTO{
			Amount:   int64(m.Energy().Amount()),
			Capacity: int64(m.Energy().Capacity()),
		},
		Items:  []ItemSlotDTO{},
		Fluids: []FluidSlotDTO{},
		Faces:  make(map[string]FaceDTO, len(machine.Faces)),
	}
	if cfg.Security.HasOwner() {
		dto.Owner = cfg.Security.Owner().String()
	}

	items := m.Items()
	for _, slot := range items.Slots() {
		s := ItemSlotDTO{
			Index:    slot.Index(),
			Group:    items.GroupOf(slot.Index()).Type().ID,
			Count:    int64(slot.Amount()),
			Capacity: int64(slot.RealCapacity()),
		}
		if !slot.IsEmpty() {
			s.Item = slot.Resource().ID
		}
		dto.Items = append(dto.Items, s)
	}

	fluids := m.Fluids()
	for _, slot := range fluids.Slots() {
		s := FluidSlotDTO{
			Index:    slot.Index(),
			Group:    fluids.GroupOf(slot.Index()).Type().ID,
			Droplets: int64(slot.Amount()),
			Buckets:  fluid.Buckets(slot.Amount()),
			Capacity: fluid.Buckets(slot.Capacity()),
		}
		if !slot.IsEmpty() {
			s.Fluid = slot.Resource().ID
		}
		dto.Fluids = append(dto.Fluids, s)
	}

	for _, face := range machine.Faces {
		dto.Faces[face.String()] = toFaceDTO(cfg.IO.Get(face))
	}
	for _, l := range links {
		if l.From == m.ID() {
			dto.Links = append(dto.Links, toLinkDTO(l))
		}
	}
	return dto
}

func toFaceDTO(io machine.IOFace) FaceDTO {
	dto := FaceDTO{Resource: io.Type.String(), Flow: io.Flow.String()}
	switch {
	case io.Selection.IsGroup():
		index := io.Selection.Index()
		dto.Group = &index
	case io.Selection.IsSlot():
		index := io.Selection.Index()
		dto.Slot = &index
	}
	return dto
}

func (f FaceDTO) toIOFace() (machine.IOFace, error) {
	resource, err := machine.ParseResourceType(f.Resource)
	if err != nil {
		return machine.IOFace{}, err
	}
	flow := generic.FlowBoth
	if f.Flow != "" {
		if flow, err = generic.ParseFlow(f.Flow); err != nil {
			return machine.IOFace{}, err
		}
	}
	io := machine.NewIOFace(resource, flow)
	switch {
	case f.Group != nil && f.Slot != nil:
		return machine.IOFace{}, &generic.ArgumentError{Field: "selection", Reason: "group and slot are mutually exclusive"}
	case f.Group != nil:
		if *f.Group < 0 {
			return machine.IOFace{}, &generic.ArgumentError{Field: "group", Reason: "must not be negative"}
		}
		io = io.WithSelection(generic.SelectGroup(*f.Group))
	case f.Slot != nil:
		if *f.Slot < 0 {
			return machine.IOFace{}, &generic.ArgumentError{Field: "slot", Reason: "must not be negative"}
		}
		io = io.WithSelection(generic.SelectSlot(*f.Slot))
	}
	return io, nil
}

// =============================================================================
// TRANSFERS
// =============================================================================

// TransferRequest inserts into or extracts from a face. ID names the item
// or fluid and is ignored for energy. Fluids take Buckets when Amount is
// zero.
type TransferRequest struct {
	Resource string           `json:"resource"`
	ID       string           `json:"id,omitempty"`
	Amount   int64            `json:"amount,omitempty"`
	Buckets  *decimal.Decimal `json:"buckets,omitempty"`
	Simulate bool             `json:"simulate,omitempty"`
}

// TransferResponse reports how much moved. Buckets is set for fluids.
type TransferResponse struct {
	Moved     int64            `json:"moved"`
	Buckets   *decimal.Decimal `json:"buckets,omitempty"`
	Simulated bool             `json:"simulated"`
}

func newTransferResponse(moved generic.Amount, resource machine.ResourceType, simulated bool) TransferResponse {
	resp := TransferResponse{Moved: int64(moved), Simulated: simulated}
	if resource == machine.ResourceFluid {
		b := fluid.Buckets(moved)
		resp.Buckets = &b
	}
	return resp
}

// amount resolves the requested quantity for resource.
func (r TransferRequest) amount(resource machine.ResourceType) (generic.Amount, error) {
	if r.Amount < 0 {
		return 0, &generic.ArgumentError{Field: "amount", Reason: "must not be negative"}
	}
	if r.Amount == 0 && r.Buckets != nil && resource == machine.ResourceFluid {
		return fluid.FromBuckets(*r.Buckets)
	}
	return generic.Amount(r.Amount), nil
}

func itemVariant(types *machine.Types, id string) (item.Variant, error) {
	t, err := types.Items().Get(id)
	if err != nil {
		return item.Variant{}, err
	}
	return item.Of(t), nil
}

func fluidVariant(types *machine.Types, id string) (fluid.Variant, error) {
	t, err := types.Fluids().Get(id)
	if err != nil {
		return fluid.Variant{}, err
	}
	return fluid.Of(t), nil
}

// =============================================================================
// LINKS
// =============================================================================

// LinkDTO is an automation link between two machine faces.
type LinkDTO struct {
	ID       string `json:"id"`
	From     string `json:"from"`
	FromFace string `json:"from_face"`
	To       string `json:"to"`
	ToFace   string `json:"to_face"`
	Resource string `json:"resource"`
	Max      int64  `json:"max"`
}

// LinkRequest creates a link. Faces default to front.
type LinkRequest struct {
	From     string `json:"from"`
	FromFace string `json:"from_face"`
	To       string `json:"to"`
	ToFace   string `json:"to_face"`
	Resource string `json:"resource"`
	Max      int64  `json:"max"`
}

func toLinkDTO(l machine.Link) LinkDTO {
	return LinkDTO{
		ID:       l.ID.String(),
		From:     l.From.String(),
		FromFace: l.FromFace.String(),
		To:       l.To.String(),
		ToFace:   l.ToFace.String(),
		Resource: l.Resource.String(),
		Max:      int64(l.Max),
	}
}

func (r LinkRequest) toLink() (machine.Link, error) {
	from, err := parseID("from", r.From)
	if err != nil {
		return machine.Link{}, err
	}
	to, err := parseID("to", r.To)
	if err != nil {
		return machine.Link{}, err
	}
	l := machine.Link{From: from, To: to, Max: generic.Amount(r.Max)}
	if r.FromFace != "" {
		if l.FromFace, err = machine.ParseFace(r.FromFace); err != nil {
			return machine.Link{}, err
		}
	}
	if r.ToFace != "" {
		if l.ToFace, err = machine.ParseFace(r.ToFace); err != nil {
			return machine.Link{}, err
		}
	}
	if l.Resource, err = machine.ParseResourceType(r.Resource); err != nil {
		return machine.Link{}, err
	}
	return l, nil
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
