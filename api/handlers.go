/*
handlers.go - HTTP API handlers for the machine world

PURPOSE:
  Exposes a running machine.World via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the world.

ENDPOINTS:
  Types:
    GET    /api/types                              List machine types

  Machines:
    GET    /api/machines                           List machines
    POST   /api/machines                           Create machine {type}
    GET    /api/machines/{id}                      Machine state
    DELETE /api/machines/{id}                      Remove machine
    PUT    /api/machines/{id}/faces/{face}         Configure a face
    POST   /api/machines/{id}/faces/{face}/insert  Push resources into a face
    POST   /api/machines/{id}/faces/{face}/extract Pull resources from a face
    POST   /api/machines/{id}/save                 Persist now

  Links:
    GET    /api/links                              List links
    POST   /api/links                              Create link
    DELETE /api/links/{id}                         Remove link

  World:
    POST   /api/tick                               Advance one tick

TRANSFERS:
  Insert and extract go through the face's exposed view, so they obey the
  face's flow, selection and each slot's external access exactly like an
  automation partner would. With "simulate" the transfer runs in a
  transaction that is always rolled back.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, disabled faces
  - 404: Machine, type, item or fluid not found
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warp/machine-storage/generic"
	"github.com/warp/machine-storage/machine"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	World  *machine.World
	logger *zap.Logger
}

// NewHandler creates a handler over world. A nil logger discards output.
func NewHandler(world *machine.World, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{World: world, logger: logger}
}

// =============================================================================
// TYPE HANDLERS
// =============================================================================

// ListTypes returns every machine type, sorted by id.
func (h *Handler) ListTypes(w http.ResponseWriter, r *http.Request) {
	types := h.World.Types().All()
	dtos := make([]TypeDTO, len(types))
	for i, t := range types {
		dtos[i] = toTypeDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// MACHINE HANDLERS
// =============================================================================

// ListMachines returns every machine in creation order.
func (h *Handler) ListMachines(w http.ResponseWriter, r *http.Request) {
	links := h.World.Links()
	dtos := []MachineDTO{}
	for _, id := range h.World.IDs() {
		err := h.World.Do(id, func(m *machine.Machine) error {
			dtos = append(dtos, toMachineDTO(m, links))
			return nil
		})
		if err != nil {
			// removed between IDs and Do
			continue
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateMachine creates a machine of the requested type.
func (h *Handler) CreateMachine(w http.ResponseWriter, r *http.Request) {
	var req CreateMachineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Type == "" {
		writeError(w, http.StatusBadRequest, "type is required", nil)
		return
	}

	m, err := h.World.Create(req.Type)
	if err != nil {
		h.fail(w, "Failed to create machine", err)
		return
	}

	var dto MachineDTO
	if err := h.World.Do(m.ID(), func(m *machine.Machine) error {
		dto = toMachineDTO(m, nil)
		return nil
	}); err != nil {
		h.fail(w, "Failed to read machine", err)
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

// GetMachine returns one machine.
func (h *Handler) GetMachine(w http.ResponseWriter, r *http.Request) {
	id, err := machineID(r)
	if err != nil {
		h.fail(w, "Invalid machine id", err)
		return
	}

	links := h.World.Links()
	var dto MachineDTO
	if err := h.World.Do(id, func(m *machine.Machine) error {
		dto = toMachineDTO(m, links)
		return nil
	}); err != nil {
		h.fail(w, "Machine not found", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// DeleteMachine removes a machine and its links.
func (h *Handler) DeleteMachine(w http.ResponseWriter, r *http.Request) {
	id, err := machineID(r)
	if err != nil {
		h.fail(w, "Invalid machine id", err)
		return
	}
	if err := h.World.Remove(id); err != nil {
		h.fail(w, "Failed to remove machine", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetFace replaces the configuration of one face.
func (h *Handler) SetFace(w http.ResponseWriter, r *http.Request) {
	id, err := machineID(r)
	if err != nil {
		h.fail(w, "Invalid machine id", err)
		return
	}
	face, err := machine.ParseFace(chi.URLParam(r, "face"))
	if err != nil {
		h.fail(w, "Invalid face", err)
		return
	}

	var req FaceDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	io, err := req.toIOFace()
	if err != nil {
		h.fail(w, "Invalid face configuration", err)
		return
	}

	if err := h.World.Do(id, func(m *machine.Machine) error {
		m.SetFace(face, io)
		return nil
	}); err != nil {
		h.fail(w, "Failed to configure face", err)
		return
	}
	writeJSON(w, http.StatusOK, toFaceDTO(io))
}

// Insert pushes resources into a face.
func (h *Handler) Insert(w http.ResponseWriter, r *http.Request) {
	h.transfer(w, r, true)
}

// Extract pulls resources out of a face.
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	h.transfer(w, r, false)
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request, insert bool) {
	id, err := machineID(r)
	if err != nil {
		h.fail(w, "Invalid machine id", err)
		return
	}
	face, err := machine.ParseFace(chi.URLParam(r, "face"))
	if err != nil {
		h.fail(w, "Invalid face", err)
		return
	}

	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	resource, err := machine.ParseResourceType(req.Resource)
	if err != nil || (!resource.MatchesSlots() && resource != machine.ResourceEnergy) {
		writeError(w, http.StatusBadRequest, "resource must be item, fluid or energy", err)
		return
	}
	amount, err := req.amount(resource)
	if err != nil {
		h.fail(w, "Invalid amount", err)
		return
	}

	var moved generic.Amount
	err = h.World.Do(id, func(m *machine.Machine) error {
		var err error
		moved, err = h.move(m, face, resource, req, amount, insert)
		return err
	})
	if err != nil {
		h.fail(w, "Transfer failed", err)
		return
	}

	h.logger.Debug("face transfer",
		zap.String("machine_id", id.String()),
		zap.Stringer("face", face),
		zap.Stringer("resource", resource),
		zap.Bool("insert", insert),
		zap.Bool("simulate", req.Simulate),
		zap.Int64("moved", int64(moved)))
	writeJSON(w, http.StatusOK, newTransferResponse(moved, resource, req.Simulate))
}

// move runs one transfer against m's exposed view. It must be called with
// the world lock held.
func (h *Handler) move(m *machine.Machine, face machine.Face, resource machine.ResourceType, req TransferRequest, amount generic.Amount, insert bool) (generic.Amount, error) {
	types := h.World.Types()
	disabled := fmt.Errorf("%w: %s face of %s", machine.ErrFaceDisabled, face, m.ID())

	var op func(tx *generic.Transaction) (generic.Amount, error)
	switch resource {
	case machine.ResourceItem:
		view, ok := m.ExposedItems(face)
		if !ok {
			return 0, disabled
		}
		v, err := itemVariant(types, req.ID)
		if err != nil {
			return 0, err
		}
		op = func(tx *generic.Transaction) (generic.Amount, error) {
			if insert {
				return view.Insert(v, amount, tx)
			}
			return view.Extract(v, amount, tx)
		}
	case machine.ResourceFluid:
		view, ok := m.ExposedFluids(face)
		if !ok {
			return 0, disabled
		}
		v, err := fluidVariant(types, req.ID)
		if err != nil {
			return 0, err
		}
		op = func(tx *generic.Transaction) (generic.Amount, error) {
			if insert {
				return view.Insert(v, amount, tx)
			}
			return view.Extract(v, amount, tx)
		}
	default:
		view, ok := m.ExposedEnergy(face)
		if !ok {
			return 0, disabled
		}
		op = func(tx *generic.Transaction) (generic.Amount, error) {
			if insert {
				return view.Insert(amount, tx)
			}
			return view.Extract(amount, tx)
		}
	}

	tx := generic.OpenTransaction()
	defer tx.Close()
	moved, err := op(tx)
	if err != nil {
		return 0, err
	}
	if !req.Simulate {
		tx.Commit()
	}
	return moved, nil
}

// SaveMachine persists one machine immediately.
func (h *Handler) SaveMachine(w http.ResponseWriter, r *http.Request) {
	id, err := machineID(r)
	if err != nil {
		h.fail(w, "Invalid machine id", err)
		return
	}
	if err := h.World.Save(r.Context(), id); err != nil {
		h.fail(w, "Failed to save machine", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"saved": id.String()})
}

// =============================================================================
// LINK HANDLERS
// =============================================================================

// ListLinks returns every link.
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	links := h.World.Links()
	dtos := make([]LinkDTO, len(links))
	for i, l := range links {
		dtos[i] = toLinkDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateLink connects two machine faces.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	l, err := req.toLink()
	if err != nil {
		h.fail(w, "Invalid link", err)
		return
	}
	l, err = h.World.AddLink(l)
	if err != nil {
		h.fail(w, "Failed to create link", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLinkDTO(l))
}

// DeleteLink removes a link.
func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	id, err := parseID("id", chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "Invalid link id", err)
		return
	}
	if !h.World.RemoveLink(id) {
		writeError(w, http.StatusNotFound, "Link not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// WORLD HANDLERS
// =============================================================================

// Tick advances the world by one tick.
func (h *Handler) Tick(w http.ResponseWriter, r *http.Request) {
	if err := h.World.Tick(r.Context()); err != nil {
		h.fail(w, "Tick failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"ticks": h.World.Ticks()})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// fail maps err to a status code and writes it.
func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(message, zap.Error(err))
	}
	writeError(w, status, message, err)
}

func statusFor(err error) int {
	switch {
	case machine.IsNotFound(err):
		return http.StatusNotFound
	case machine.IsClientError(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func machineID(r *http.Request) (uuid.UUID, error) {
	return parseID("id", chi.URLParam(r, "id"))
}

func parseID(field, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, &generic.ArgumentError{Field: field, Reason: fmt.Sprintf("invalid id %q", s)}
	}
	return id, nil
}
