package availability

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/tutorbook/tutorbook/internal/rest"
	"github.com/tutorbook/tutorbook/pkg/grid"
	"github.com/tutorbook/tutorbook/pkg/person"
	"github.com/tutorbook/tutorbook/pkg/timeslot"
)

const maxCalendarSize = 1 << 20

// PersonReader resolves the person named in a request path.
type PersonReader interface {
	GetByUid(ctx context.Context, uid string) (person.Person, error)
}

type Handler struct {
	service Service
	people  PersonReader
}

func NewHandler(service Service, people PersonReader) *Handler {
	return &Handler{service: service, people: people}
}

// GetMine godoc
// @Summary Get my availability
// @Description Slots are returned in the order they were declared
// @Tags Availability
// @Produce json
// @Success 200 {array} timeslot.Record
// @Failure 403 {string} string "Person not found"
// @Router /api/availability [get]
// @Security XUserId
func (h *Handler) GetMine(w http.ResponseWriter, r *http.Request) {
	availability, err := h.service.GetMine(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, availability.Records())
}

// Replace godoc
// @Summary Replace my availability
// @Description Stores the declared slots. An UNTIL ending before its own slot is moved to the slot end.
// @Tags Availability
// @Accept json
// @Produce json
// @Param slots body []timeslot.Record true "Declared slots"
// @Success 200 {array} timeslot.Record
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 403 {string} string "Person not found"
// @Router /api/availability [put]
// @Security XUserId
func (h *Handler) Replace(w http.ResponseWriter, r *http.Request) {
	var availability timeslot.Availability
	if err := json.NewDecoder(r.Body).Decode(&availability); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	stored, err := h.service.Replace(r.Context(), availability)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, stored.Records())
}

// GetFor godoc
// @Summary Get availability of a person
// @Tags Availability
// @Produce json
// @Param personUid path string true "Person UID"
// @Success 200 {array} timeslot.Record
// @Failure 404 {string} string "Person not found"
// @Router /api/availability/{personUid} [get]
// @Security XUserId
func (h *Handler) GetFor(w http.ResponseWriter, r *http.Request) {
	p, ok := h.personFromPath(w, r)
	if !ok {
		return
	}
	availability, err := h.service.GetFor(r.Context(), p.Id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, availability.Records())
}

// ExportICS godoc
// @Summary Export availability as iCalendar
// @Tags Availability
// @Produce text/calendar
// @Param personUid path string true "Person UID"
// @Success 200 {string} string "VCALENDAR"
// @Failure 404 {string} string "Person not found"
// @Router /api/availability/{personUid}/ics [get]
// @Security XUserId
func (h *Handler) ExportICS(w http.ResponseWriter, r *http.Request) {
	p, ok := h.personFromPath(w, r)
	if !ok {
		return
	}
	ics, err := h.service.ExportICS(r.Context(), p)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="availability.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(ics); err != nil {
		log.Errorf("failed to write calendar: %v", err)
	}
}

// ImportICS godoc
// @Summary Replace my availability from an iCalendar file
// @Tags Availability
// @Accept text/calendar
// @Produce json
// @Success 200 {array} timeslot.Record
// @Failure 400 {object} rest.ErrorResponse "Invalid calendar"
// @Router /api/availability/ics [put]
// @Security XUserId
func (h *Handler) ImportICS(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCalendarSize))
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Could not read calendar", err.Error())
		return
	}
	stored, err := h.service.ImportICS(r.Context(), body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, stored.Records())
}

// SlotFromGrid godoc
// @Summary Convert a grid selection into a slot
// @Description Positions and heights are snapped to 15 minute steps of the current week
// @Tags Availability
// @Accept json
// @Produce json
// @Param cell body grid.Cell true "Grid cell"
// @Success 200 {object} timeslot.Record
// @Failure 400 {object} rest.ErrorResponse "Invalid cell"
// @Router /api/availability/grid [post]
// @Security XUserId
func (h *Handler) SlotFromGrid(w http.ResponseWriter, r *http.Request) {
	var cell grid.Cell
	if err := json.NewDecoder(r.Body).Decode(&cell); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	slot, err := h.service.SlotFromGrid(r.Context(), cell)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, slot)
}

// GridOf godoc
// @Summary Project a slot onto the weekly grid
// @Tags Availability
// @Accept json
// @Produce json
// @Param slot body timeslot.Record true "Slot"
// @Success 200 {object} grid.Cell
// @Failure 400 {object} rest.ErrorResponse "Invalid slot"
// @Router /api/availability/position [post]
// @Security XUserId
func (h *Handler) GridOf(w http.ResponseWriter, r *http.Request) {
	var slot timeslot.Timeslot
	if err := json.NewDecoder(r.Body).Decode(&slot); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	cell, err := h.service.GridOf(r.Context(), slot)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, cell)
}

func (h *Handler) personFromPath(w http.ResponseWriter, r *http.Request) (person.Person, bool) {
	p, err := h.people.GetByUid(r.Context(), mux.Vars(r)["personUid"])
	if err != nil {
		if errors.Is(err, person.ErrPersonNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return person.Person{}, false
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return person.Person{}, false
	}
	return p, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, person.ErrNoPerson):
		http.Error(w, "person not found", http.StatusForbidden)
	case errors.Is(err, ErrInvalidRecurrence):
		rest.WriteError(w, http.StatusBadRequest, "Invalid recurrence rule", err.Error())
	case errors.Is(err, ErrInvalidCalendar):
		rest.WriteError(w, http.StatusBadRequest, "Invalid calendar", err.Error())
	case errors.Is(err, timeslot.ErrInvalidInterval):
		rest.WriteError(w, http.StatusBadRequest, "Invalid slot", err.Error())
	case errors.Is(err, grid.ErrEmptySlot), errors.Is(err, grid.ErrInvalidColumnWidth):
		rest.WriteError(w, http.StatusBadRequest, "Invalid grid cell", err.Error())
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
