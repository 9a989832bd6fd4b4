package search

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/tutorbook/tutorbook/internal/rest"
	"github.com/tutorbook/tutorbook/pkg/person"
	"github.com/tutorbook/tutorbook/pkg/timeslot"
)

type PersonReader interface {
	GetByUid(ctx context.Context, uid string) (person.Person, error)
	GetMany(ctx context.Context, ids []int) ([]person.Person, error)
}

type AvailablePersonDTO struct {
	Uid  string `json:"uid"`
	Name string `json:"name"`
}

var (
	fromParam = rest.TimeParam{Name: "from", Required: true}
	toParam   = rest.TimeParam{Name: "to", Required: true}
)

type Handler struct {
	store  WindowStore
	people PersonReader
}

func NewHandler(store WindowStore, people PersonReader) *Handler {
	return &Handler{store: store, people: people}
}

// Available godoc
// @Summary Find people available for a whole range
// @Description Returns the people with a single open window, after bookings, covering the range
// @Tags Search
// @Produce json
// @Param from query string true "Range start, epoch milliseconds or RFC3339"
// @Param to query string true "Range end, epoch milliseconds or RFC3339"
// @Success 200 {array} AvailablePersonDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid range"
// @Router /api/search/available [get]
// @Security XUserId
func (h *Handler) Available(w http.ResponseWriter, r *http.Request) {
	from, err := fromParam.Decode(r.URL.Query())
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid from (date) format", err.Error())
		return
	}
	to, err := toParam.Decode(r.URL.Query())
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid to (date) format", err.Error())
		return
	}
	if !to.After(from) {
		rest.WriteError(w, http.StatusBadRequest, "Invalid range", "to must be after from")
		return
	}

	ids, err := h.store.PeopleAvailable(r.Context(), from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	people, err := h.people.GetMany(r.Context(), ids)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	dtos := make([]AvailablePersonDTO, 0, len(people))
	for _, p := range people {
		dtos = append(dtos, AvailablePersonDTO{Uid: p.Uid, Name: p.Name})
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

// Windows godoc
// @Summary Get the open windows of a person
// @Tags Search
// @Produce json
// @Param personUid path string true "Person UID"
// @Success 200 {array} timeslot.Window
// @Failure 404 {string} string "Person not found"
// @Router /api/search/windows/{personUid} [get]
// @Security XUserId
func (h *Handler) Windows(w http.ResponseWriter, r *http.Request) {
	p, err := h.people.GetByUid(r.Context(), mux.Vars(r)["personUid"])
	if err != nil {
		if errors.Is(err, person.ErrPersonNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	windows, err := h.store.Windows(r.Context(), p.Id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if windows == nil {
		windows = []timeslot.Window{}
	}
	rest.WriteJSON(w, http.StatusOK, windows)
}
