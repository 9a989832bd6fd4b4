package search

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"github.com/tutorbook/tutorbook/pkg/person"
)

const DefaultRefreshSchedule = "*/15 * * * *"

type PersonLister interface {
	List(ctx context.Context) ([]person.Person, error)
}

// Refresher reindexes everyone on a cron schedule, so the horizon moves with
// time and windows that ended leave the index.
type Refresher struct {
	indexer *Indexer
	people  PersonLister
	cron    *cron.Cron
}

func NewRefresher(indexer *Indexer, people PersonLister) *Refresher {
	return &Refresher{indexer: indexer, people: people}
}

func (r *Refresher) RefreshAll(ctx context.Context) error {
	people, err := r.people.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list people to reindex: %w", err)
	}
	ids := make([]int, 0, len(people))
	for _, p := range people {
		ids = append(ids, p.Id)
	}
	if err := r.indexer.reindexAll(ctx, ids); err != nil {
		return err
	}
	log.Debugf("refreshed search index for %d people", len(ids))
	return nil
}

// Start runs RefreshAll on schedule until Stop. An empty schedule uses
// DefaultRefreshSchedule.
func (r *Refresher) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultRefreshSchedule
	}
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := r.RefreshAll(ctx); err != nil {
			log.Errorf("search index refresh failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	r.cron = c
	c.Start()
	log.Infof("search index refresh scheduled: %s", schedule)
	return nil
}

// Stop waits for a running refresh to finish.
func (r *Refresher) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}
