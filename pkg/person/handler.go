package person

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/tutorbook/tutorbook/internal/rest"
)

type PersonDTO struct {
	Uid      string      `json:"uid"`
	Name     string      `json:"name"`
	Settings SettingsDTO `json:"settings"`
}

type SettingsDTO struct {
	Timezone     string `json:"timezone"`
	WeekStartDay string `json:"weekStartDay"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Create godoc
// @Summary Register a person
// @Tags Person
// @Accept json
// @Produce json
// @Param person body PersonDTO true "Person"
// @Success 201 {object} PersonDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Router /api/person [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var dto PersonDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	log.Tracef("Creating person: %+v", dto)

	created, err := h.service.Create(r.Context(), dtoToPerson(dto))
	if err != nil {
		if errors.Is(err, ErrPersonDataInvalid) {
			rest.WriteError(w, http.StatusBadRequest, "Invalid person data", err.Error())
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, personToDTO(created))
}

// Current godoc
// @Summary Get current person
// @Tags Person
// @Produce json
// @Success 200 {object} PersonDTO
// @Failure 403 {string} string "Person not found"
// @Router /api/person/current [get]
// @Security XUserId
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	current, err := h.service.Current(r.Context())
	if err != nil {
		if errors.Is(err, ErrNoPerson) {
			http.Error(w, "person not found", http.StatusForbidden)
			return
		}
		if errors.Is(err, ErrPersonNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	rest.WriteJSON(w, http.StatusOK, personToDTO(current))
}

// UpdateCurrent godoc
// @Summary Update current person
// @Tags Person
// @Accept json
// @Produce json
// @Param person body PersonDTO true "Person"
// @Success 200 {object} PersonDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Router /api/person/current [put]
// @Security XUserId
func (h *Handler) UpdateCurrent(w http.ResponseWriter, r *http.Request) {
	var dto PersonDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}

	updated, err := h.service.UpdateCurrent(r.Context(), dtoToPerson(dto))
	if err != nil {
		switch {
		case errors.Is(err, ErrPersonDataInvalid):
			rest.WriteError(w, http.StatusBadRequest, "Invalid person data", err.Error())
		case errors.Is(err, ErrNoPerson):
			http.Error(w, "person not found", http.StatusForbidden)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	log.Debugf("Updated person: %+v", updated)
	rest.WriteJSON(w, http.StatusOK, personToDTO(updated))
}

// List godoc
// @Summary List people
// @Tags Person
// @Produce json
// @Success 200 {array} PersonDTO
// @Router /api/person [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	people, err := h.service.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	dtos := make([]PersonDTO, 0, len(people))
	for _, p := range people {
		dtos = append(dtos, personToDTO(p))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

// Get godoc
// @Summary Get a person by UID
// @Tags Person
// @Produce json
// @Param personUid path string true "Person UID"
// @Success 200 {object} PersonDTO
// @Failure 404 {string} string "Not Found"
// @Router /api/person/{personUid} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetByUid(r.Context(), mux.Vars(r)["personUid"])
	if err != nil {
		if errors.Is(err, ErrPersonNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	rest.WriteJSON(w, http.StatusOK, personToDTO(p))
}

// Delete godoc
// @Summary Delete a person
// @Tags Person
// @Param personUid path string true "Person UID"
// @Success 204 "No Content"
// @Failure 404 {string} string "Not Found"
// @Router /api/person/{personUid} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetByUid(r.Context(), mux.Vars(r)["personUid"])
	if err != nil {
		if errors.Is(err, ErrPersonNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	log.Debug("Deleting person with id: ", p.Id)
	if err := h.service.Delete(r.Context(), p.Id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func personToDTO(p Person) PersonDTO {
	return PersonDTO{
		Uid:  p.Uid,
		Name: p.Name,
		Settings: SettingsDTO{
			Timezone:     p.Settings.Timezone,
			WeekStartDay: strings.ToLower(p.Settings.WeekFirstDay.String()),
		},
	}
}

func dtoToPerson(dto PersonDTO) Person {
	return Person{
		Uid:  dto.Uid,
		Name: dto.Name,
		Settings: Settings{
			Timezone:     dto.Settings.Timezone,
			WeekFirstDay: ParseWeekday(dto.Settings.WeekStartDay),
		},
	}
}
