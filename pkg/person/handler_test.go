package person

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandler(t *testing.T) (*mux.Router, *RepositoryStub) {
	service, repo := setupService(t)
	handler := NewHandler(service)
	router := mux.NewRouter()
	router.HandleFunc("/api/person", handler.Create).Methods("POST")
	router.HandleFunc("/api/person", handler.List).Methods("GET")
	router.HandleFunc("/api/person/current", handler.Current).Methods("GET")
	router.HandleFunc("/api/person/current", handler.UpdateCurrent).Methods("PUT")
	router.HandleFunc("/api/person/{personUid}", handler.Get).Methods("GET")
	router.HandleFunc("/api/person/{personUid}", handler.Delete).Methods("DELETE")
	return router, repo
}

func TestHandler_Create(t *testing.T) {
	t.Run("should create a person and return it", func(t *testing.T) {
		// given
		router, _ := setupHandler(t)
		body, _ := json.Marshal(PersonDTO{Uid: "ada", Name: "Ada", Settings: SettingsDTO{Timezone: "UTC", WeekStartDay: "monday"}})

		// when
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/person", bytes.NewReader(body)))

		// then
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var created PersonDTO
		require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
		assert.Equal(t, "ada", created.Uid)
		assert.Equal(t, "Ada", created.Name)
		assert.Equal(t, "monday", created.Settings.WeekStartDay)
	})

	t.Run("should answer 400 for a malformed body", func(t *testing.T) {
		router, _ := setupHandler(t)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/person", bytes.NewBufferString("{")))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_Current(t *testing.T) {
	t.Run("should answer 403 without a person in context", func(t *testing.T) {
		router, _ := setupHandler(t)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/person/current", nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("should return the person from context", func(t *testing.T) {
		// given
		router, repo := setupHandler(t)
		id, err := repo.Create(context.Background(), Person{Uid: "ada", Name: "Ada"})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/api/person/current", nil)
		req = req.WithContext(WithPerson(req.Context(), Person{Id: id, Uid: "ada", Name: "Ada"}))

		// when
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		// then
		require.Equal(t, http.StatusOK, w.Code)
		var current PersonDTO
		require.NoError(t, json.NewDecoder(w.Body).Decode(&current))
		assert.Equal(t, "ada", current.Uid)
	})
}

func TestHandler_GetAndDelete(t *testing.T) {
	t.Run("should answer 404 for an unknown uid", func(t *testing.T) {
		router, _ := setupHandler(t)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/person/ghost", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("should delete an existing person", func(t *testing.T) {
		// given
		router, repo := setupHandler(t)
		_, err := repo.Create(context.Background(), Person{Uid: "ada", Name: "Ada"})
		require.NoError(t, err)

		// when
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/person/ada", nil))

		// then
		assert.Equal(t, http.StatusNoContent, w.Code)
		_, err = repo.GetByUid(context.Background(), "ada")
		assert.ErrorIs(t, err, ErrPersonNotFound)
	})
}
