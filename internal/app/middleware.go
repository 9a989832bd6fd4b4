package app

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/tutorbook/tutorbook/pkg/person"
)

// SetupMiddleware wires all HTTP middlewares for the application.
func SetupMiddleware(r *mux.Router, deps *Dependencies) {
	r.Use(personFromHeader(deps.PersonService))
}

// personFromHeader loads the person named by the X-User-Id header into the
// request context. Requests without the header pass through anonymously.
func personFromHeader(people person.Service) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			uid := req.Header.Get("X-User-Id")
			ctx := req.Context()

			if uid != "" {
				p, err := people.GetByUid(ctx, uid)
				if err != nil {
					if errors.Is(err, person.ErrPersonNotFound) {
						log.Debugf("person not found: %s", uid)
						http.Error(w, "person not found", http.StatusForbidden)
						return
					}
					log.Errorf("failed to get person: %v", err)
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}
				log.Tracef("person found: %s", p.Uid)
				ctx = person.WithPerson(ctx, p)
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}
