package meeting

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutorbook/tutorbook/pkg/matching"
	"github.com/tutorbook/tutorbook/pkg/person"
	"github.com/tutorbook/tutorbook/pkg/timeslot"
)

func setupHandlerTest(t *testing.T, policy matching.Policy) (fixture, func(p person.Person, req *http.Request) *httptest.ResponseRecorder) {
	f := setupService(t, policy)
	handler := NewHandler(f.service, f.people)
	router := mux.NewRouter()
	router.HandleFunc("/api/meeting", handler.Create).Methods("POST")
	router.HandleFunc("/api/meeting", handler.List).Methods("GET")
	router.HandleFunc("/api/meeting/{meetingUid}", handler.Get).Methods("GET")
	router.HandleFunc("/api/meeting/{meetingUid}", handler.Cancel).Methods("DELETE")

	serve := func(p person.Person, req *http.Request) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req.WithContext(person.WithPerson(req.Context(), p)))
		return w
	}
	return f, serve
}

func meetingBody(t *testing.T, dto MeetingDTO) *bytes.Reader {
	body, err := json.Marshal(dto)
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func TestHandler_Create(t *testing.T) {
	t.Run("should book and describe attendees by uid", func(t *testing.T) {
		// given
		f, serve := setupHandlerTest(t, matching.Policy{})
		dto := MeetingDTO{
			AttendeeUids: []string{f.tutor.Uid},
			Time:         timeslot.MustNew(monday(9, 0), monday(10, 0)),
			Notes:        "reading",
		}

		// when
		w := serve(f.student, httptest.NewRequest(http.MethodPost, "/api/meeting", meetingBody(t, dto)))

		// then
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var created MeetingDTO
		require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
		assert.NotEmpty(t, created.Uid)
		assert.Equal(t, f.student.Uid, created.CreatorUid)
		assert.Equal(t, []string{f.tutor.Uid, f.student.Uid}, created.AttendeeUids)
		assert.True(t, dto.Time.Equal(created.Time))
	})

	t.Run("should answer 409 with the unavailable attendees", func(t *testing.T) {
		// given
		f, serve := setupHandlerTest(t, matching.Policy{Strict: true})
		f.availability.Set(f.student.Id, timeslot.Availability{timeslot.MustNew(monday(8, 0), monday(12, 0))})
		dto := MeetingDTO{
			AttendeeUids: []string{f.tutor.Uid},
			Time:         timeslot.MustNew(monday(9, 0), monday(10, 0)),
		}

		// when
		w := serve(f.student, httptest.NewRequest(http.MethodPost, "/api/meeting", meetingBody(t, dto)))

		// then
		require.Equal(t, http.StatusConflict, w.Code)
		var conflict UnavailableDTO
		require.NoError(t, json.NewDecoder(w.Body).Decode(&conflict))
		assert.Equal(t, []string{f.tutor.Uid}, conflict.AttendeeUids)
		assert.Equal(t, []string{"Tutor"}, conflict.Names)
	})

	t.Run("should answer 400 for an unknown attendee", func(t *testing.T) {
		f, serve := setupHandlerTest(t, matching.Policy{})
		dto := MeetingDTO{AttendeeUids: []string{"ghost"}, Time: timeslot.MustNew(monday(9, 0), monday(10, 0))}

		w := serve(f.student, httptest.NewRequest(http.MethodPost, "/api/meeting", meetingBody(t, dto)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_List(t *testing.T) {
	t.Run("should list instances in the range", func(t *testing.T) {
		// given
		f, serve := setupHandlerTest(t, matching.Policy{})
		daily, err := timeslot.NewRecurring(monday(9, 0), monday(10, 0), "RRULE:FREQ=DAILY;COUNT=3", nil)
		require.NoError(t, err)
		created, err := f.service.Create(f.as(f.tutor), Meeting{AttendeeIds: []int{f.student.Id}, Time: daily})
		require.NoError(t, err)
		from := strconv.FormatInt(monday(0, 0).UnixMilli(), 10)
		to := monday(0, 0).AddDate(0, 0, 2).Format(time.RFC3339)

		// when
		w := serve(f.student, httptest.NewRequest(http.MethodGet, "/api/meeting?from="+from+"&to="+to, nil))

		// then
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var occurrences []OccurrenceDTO
		require.NoError(t, json.NewDecoder(w.Body).Decode(&occurrences))
		require.Len(t, occurrences, 2)
		for _, o := range occurrences {
			assert.Equal(t, created.Uid, o.MeetingUid)
			assert.False(t, o.Time.IsRecurring())
		}
		assert.True(t, occurrences[0].Time.From().Equal(monday(9, 0)))
	})

	t.Run("should answer 400 without a range", func(t *testing.T) {
		f, serve := setupHandlerTest(t, matching.Policy{})

		w := serve(f.student, httptest.NewRequest(http.MethodGet, "/api/meeting?from=123", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_Cancel(t *testing.T) {
	t.Run("should cancel for an attendee and hide from others", func(t *testing.T) {
		// given
		f, serve := setupHandlerTest(t, matching.Policy{})
		created, err := f.service.Create(f.as(f.tutor), Meeting{AttendeeIds: []int{f.student.Id},
			Time: timeslot.MustNew(monday(9, 0), monday(10, 0))})
		require.NoError(t, err)

		// when
		outsider := serve(f.carol, httptest.NewRequest(http.MethodDelete, "/api/meeting/"+created.Uid, nil))
		attendee := serve(f.student, httptest.NewRequest(http.MethodDelete, "/api/meeting/"+created.Uid, nil))
		again := serve(f.student, httptest.NewRequest(http.MethodGet, "/api/meeting/"+created.Uid, nil))

		// then
		assert.Equal(t, http.StatusNotFound, outsider.Code)
		assert.Equal(t, http.StatusNoContent, attendee.Code)
		assert.Equal(t, http.StatusNotFound, again.Code)
	})
}
