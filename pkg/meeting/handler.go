package meeting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/tutorbook/tutorbook/internal/rest"
	"github.com/tutorbook/tutorbook/pkg/matching"
	"github.com/tutorbook/tutorbook/pkg/person"
	"github.com/tutorbook/tutorbook/pkg/timeslot"
)

type MeetingDTO struct {
	Uid          string            `json:"uid,omitempty"`
	CreatorUid   string            `json:"creatorUid,omitempty"`
	AttendeeUids []string          `json:"attendeeUids"`
	Time         timeslot.Timeslot `json:"time"`
	Notes        string            `json:"notes"`
}

type OccurrenceDTO struct {
	MeetingUid   string            `json:"meetingUid"`
	AttendeeUids []string          `json:"attendeeUids"`
	Time         timeslot.Timeslot `json:"time"`
	Notes        string            `json:"notes"`
}

type UnavailableDTO struct {
	Error        string   `json:"error"`
	AttendeeUids []string `json:"attendeeUids"`
	Names        []string `json:"names"`
}

type HandlerPersonReader interface {
	GetByUid(ctx context.Context, uid string) (person.Person, error)
	GetMany(ctx context.Context, ids []int) ([]person.Person, error)
}

var (
	fromParam = rest.TimeParam{Name: "from", Required: true}
	toParam   = rest.TimeParam{Name: "to", Required: true}
)

type Handler struct {
	service Service
	people  HandlerPersonReader
}

func NewHandler(service Service, people HandlerPersonReader) *Handler {
	return &Handler{service: service, people: people}
}

// Create godoc
// @Summary Book a meeting
// @Description The current person is always an attendee. Under the strict policy a booking outside any attendee's availability is rejected.
// @Tags Meeting
// @Accept json
// @Produce json
// @Param meeting body MeetingDTO true "Meeting"
// @Success 201 {object} MeetingDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 403 {string} string "Person not found"
// @Failure 409 {object} UnavailableDTO "Attendees not available"
// @Router /api/meeting [post]
// @Security XUserId
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var dto MeetingDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	log.Tracef("Booking meeting: %+v", dto)

	attendeeIds := make([]int, 0, len(dto.AttendeeUids))
	for _, uid := range dto.AttendeeUids {
		p, err := h.people.GetByUid(r.Context(), uid)
		if err != nil {
			if errors.Is(err, person.ErrPersonNotFound) {
				rest.WriteError(w, http.StatusBadRequest, "Unknown attendee", uid)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		attendeeIds = append(attendeeIds, p.Id)
	}

	created, err := h.service.Create(r.Context(), Meeting{
		AttendeeIds: attendeeIds,
		Time:        dto.Time,
		Notes:       dto.Notes,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response, err := h.toDTO(r.Context(), created)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, response)
}

// List godoc
// @Summary List my meetings
// @Description Recurring meetings are expanded into the instances overlapping the range
// @Tags Meeting
// @Produce json
// @Param from query string true "Range start, epoch milliseconds or RFC3339"
// @Param to query string true "Range end, epoch milliseconds or RFC3339"
// @Success 200 {array} OccurrenceDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid range"
// @Failure 403 {string} string "Person not found"
// @Router /api/meeting [get]
// @Security XUserId
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
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

	occurrences, err := h.service.ListMine(r.Context(), from, to)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	uids, err := h.uidsOf(r.Context(), occurrences)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	dtos := make([]OccurrenceDTO, 0, len(occurrences))
	for _, o := range occurrences {
		dtos = append(dtos, OccurrenceDTO{
			MeetingUid:   o.Meeting.Uid,
			AttendeeUids: mapIds(o.Meeting.AttendeeIds, uids),
			Time:         o.Time,
			Notes:        o.Meeting.Notes,
		})
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

// Get godoc
// @Summary Get a meeting
// @Tags Meeting
// @Produce json
// @Param meetingUid path string true "Meeting UID"
// @Success 200 {object} MeetingDTO
// @Failure 404 {string} string "Not Found"
// @Router /api/meeting/{meetingUid} [get]
// @Security XUserId
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.Get(r.Context(), mux.Vars(r)["meetingUid"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response, err := h.toDTO(r.Context(), m)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	rest.WriteJSON(w, http.StatusOK, response)
}

// Cancel godoc
// @Summary Cancel a meeting
// @Tags Meeting
// @Param meetingUid path string true "Meeting UID"
// @Success 204 "No Content"
// @Failure 404 {string} string "Not Found"
// @Router /api/meeting/{meetingUid} [delete]
// @Security XUserId
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Cancel(r.Context(), mux.Vars(r)["meetingUid"]); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var unavailable *matching.UnavailableError
	switch {
	case errors.As(err, &unavailable):
		people, lookupErr := h.people.GetMany(r.Context(), unavailable.PersonIds)
		if lookupErr != nil {
			http.Error(w, lookupErr.Error(), http.StatusInternalServerError)
			return
		}
		uids := make([]string, 0, len(people))
		for _, p := range people {
			uids = append(uids, p.Uid)
		}
		rest.WriteJSON(w, http.StatusConflict, UnavailableDTO{
			Error:        "Attendees are not available at the requested time",
			AttendeeUids: uids,
			Names:        unavailable.Names,
		})
	case errors.Is(err, person.ErrNoPerson):
		http.Error(w, "person not found", http.StatusForbidden)
	case errors.Is(err, ErrMeetingNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidRecurrence):
		rest.WriteError(w, http.StatusBadRequest, "Invalid recurrence rule", err.Error())
	case errors.Is(err, ErrUnknownAttendee):
		rest.WriteError(w, http.StatusBadRequest, "Unknown attendee", err.Error())
	case errors.Is(err, ErrInvalidRange):
		rest.WriteError(w, http.StatusBadRequest, "Invalid range", err.Error())
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) toDTO(ctx context.Context, m Meeting) (MeetingDTO, error) {
	uids, err := h.uidsOf(ctx, []Occurrence{{Meeting: m}})
	if err != nil {
		return MeetingDTO{}, err
	}
	return MeetingDTO{
		Uid:          m.Uid,
		CreatorUid:   uids[m.CreatorId],
		AttendeeUids: mapIds(m.AttendeeIds, uids),
		Time:         m.Time,
		Notes:        m.Notes,
	}, nil
}

// uidsOf resolves every creator and attendee id of the occurrences in one lookup.
func (h *Handler) uidsOf(ctx context.Context, occurrences []Occurrence) (map[int]string, error) {
	seen := make(map[int]bool)
	var ids []int
	for _, o := range occurrences {
		for _, id := range append([]int{o.Meeting.CreatorId}, o.Meeting.AttendeeIds...) {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	people, err := h.people.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	uids := make(map[int]string, len(people))
	for _, p := range people {
		uids[p.Id] = p.Uid
	}
	return uids, nil
}

func mapIds(ids []int, uids map[int]string) []string {
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if uid, ok := uids[id]; ok {
			result = append(result, uid)
		}
	}
	return result
}
