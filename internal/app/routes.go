package app

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// People
	r.HandleFunc("/api/person", deps.PersonHandler.Create).Methods("POST")
	r.HandleFunc("/api/person", deps.PersonHandler.List).Methods("GET")
	r.HandleFunc("/api/person/current", deps.PersonHandler.Current).Methods("GET")
	r.HandleFunc("/api/person/current", deps.PersonHandler.UpdateCurrent).Methods("PUT")
	r.HandleFunc("/api/person/{personUid}", deps.PersonHandler.Get).Methods("GET")
	r.HandleFunc("/api/person/{personUid}", deps.PersonHandler.Delete).Methods("DELETE")

	// Availability
	r.HandleFunc("/api/availability", deps.AvailabilityHandler.GetMine).Methods("GET")
	r.HandleFunc("/api/availability", deps.AvailabilityHandler.Replace).Methods("PUT")
	r.HandleFunc("/api/availability/ics", deps.AvailabilityHandler.ImportICS).Methods("PUT")
	r.HandleFunc("/api/availability/grid", deps.AvailabilityHandler.SlotFromGrid).Methods("POST")
	r.HandleFunc("/api/availability/position", deps.AvailabilityHandler.GridOf).Methods("POST")
	r.HandleFunc("/api/availability/{personUid}", deps.AvailabilityHandler.GetFor).Methods("GET")
	r.HandleFunc("/api/availability/{personUid}/ics", deps.AvailabilityHandler.ExportICS).Methods("GET")

	// Meetings
	r.HandleFunc("/api/meeting", deps.MeetingHandler.Create).Methods("POST")
	r.HandleFunc("/api/meeting", deps.MeetingHandler.List).Methods("GET")
	r.HandleFunc("/api/meeting/{meetingUid}", deps.MeetingHandler.Get).Methods("GET")
	r.HandleFunc("/api/meeting/{meetingUid}", deps.MeetingHandler.Cancel).Methods("DELETE")

	// Search
	r.HandleFunc("/api/search/available", deps.SearchHandler.Available).Methods("GET")
	r.HandleFunc("/api/search/windows/{personUid}", deps.SearchHandler.Windows).Methods("GET")
}
