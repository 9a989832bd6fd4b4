package app

import (
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/tutorbook/tutorbook/internal/config"
	"github.com/tutorbook/tutorbook/internal/event_bus"
	"github.com/tutorbook/tutorbook/internal/utils"
	"github.com/tutorbook/tutorbook/pkg/availability"
	"github.com/tutorbook/tutorbook/pkg/matching"
	"github.com/tutorbook/tutorbook/pkg/meeting"
	"github.com/tutorbook/tutorbook/pkg/person"
	"github.com/tutorbook/tutorbook/pkg/recurrence"
	"github.com/tutorbook/tutorbook/pkg/search"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Clock    utils.Clock
	EventBus *event_bus.EventBus
	Resolver *recurrence.Resolver
	Matcher  *matching.Matcher

	PersonService person.Service
	PersonHandler *person.Handler

	AvailabilityService availability.Service
	AvailabilityHandler *availability.Handler

	MeetingService meeting.Service
	MeetingHandler *meeting.Handler

	WindowStore   search.WindowStore
	SearchIndexer *search.Indexer
	Refresher     *search.Refresher
	SearchHandler *search.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *pgxpool.Pool, redisClient *redis.Client, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.Clock = &utils.SystemClock{}
	deps.EventBus = event_bus.NewEventBus()
	deps.Resolver = recurrence.NewResolver(recurrence.NewRRuleExpander(cfg.Scheduling.MaxOccurrences))
	deps.Matcher = matching.NewMatcher(deps.Resolver, matching.Policy{Strict: cfg.Scheduling.Strict})
	log.Infof("scheduling: horizon %s, strict %t", cfg.Scheduling.Horizon, cfg.Scheduling.Strict)

	personService := person.NewService(person.NewRepository(db))
	deps.PersonService = personService
	deps.PersonHandler = person.NewHandler(personService)

	availabilityService := availability.NewService(
		availability.NewRepository(db),
		deps.Resolver,
		deps.EventBus,
		deps.Clock,
		cfg.Scheduling.ColumnWidth,
	)
	deps.AvailabilityService = availabilityService
	deps.AvailabilityHandler = availability.NewHandler(availabilityService, personService)

	meetingService := meeting.NewService(
		meeting.NewRepository(db),
		personService,
		availabilityService,
		deps.Matcher,
		deps.Resolver,
		deps.EventBus,
		deps.Clock,
	)
	deps.MeetingService = meetingService
	deps.MeetingHandler = meeting.NewHandler(meetingService, personService)

	deps.WindowStore = search.NewRedisWindowStore(redisClient, cfg.Redis.Prefix)
	deps.SearchIndexer = search.NewIndexer(
		availabilityService,
		meetingService,
		deps.WindowStore,
		deps.Matcher,
		deps.Clock,
		cfg.Scheduling.Horizon,
	)
	deps.SearchIndexer.Subscribe(deps.EventBus)
	deps.Refresher = search.NewRefresher(deps.SearchIndexer, personService)
	deps.SearchHandler = search.NewHandler(deps.WindowStore, personService)

	return deps
}
