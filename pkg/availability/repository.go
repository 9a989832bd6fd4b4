package availability

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/tutorbook/tutorbook/internal/database"
	"github.com/tutorbook/tutorbook/pkg/timeslot"
)

type Repository interface {
	WithTransaction(ctx context.Context, fn func(repo Repository) error) error
	// GetAvailability returns the person's slots in the order they were declared.
	GetAvailability(ctx context.Context, personId int) (timeslot.Availability, error)
	ReplaceAvailability(ctx context.Context, personId int, availability timeslot.Availability) error
}

type repositoryImpl struct {
	db *pgxpool.Pool
	tx pgx.Tx
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) getQueryer() database.Queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *repositoryImpl) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}
	return database.InTransaction(ctx, r.db, func(tx pgx.Tx) error {
		return fn(&repositoryImpl{db: r.db, tx: tx})
	})
}

func (r *repositoryImpl) GetAvailability(ctx context.Context, personId int) (timeslot.Availability, error) {
	query := `SELECT from_ms, to_ms, recur, exdates
			  FROM availability_slot
			  WHERE person_id = $1
			  ORDER BY position`
	rows, err := r.getQueryer().Query(ctx, query, personId)
	if err != nil {
		log.Errorf("failed to query availability of person %d: %v", personId, err)
		return nil, err
	}
	defer rows.Close()

	availability := timeslot.Availability{}
	for rows.Next() {
		var record timeslot.Record
		var recur *string
		if err := rows.Scan(&record.From, &record.To, &recur, &record.ExDates); err != nil {
			return nil, err
		}
		if recur != nil {
			record.Recur = *recur
		}
		slot, err := timeslot.FromRecord(record)
		if err != nil {
			return nil, fmt.Errorf("could not read availability slot of person %d: %w", personId, err)
		}
		availability = append(availability, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return availability, nil
}

// ReplaceAvailability deletes every stored slot of the person and inserts the
// given ones. Callers wrap it in WithTransaction to make the swap atomic.
func (r *repositoryImpl) ReplaceAvailability(ctx context.Context, personId int, availability timeslot.Availability) error {
	if _, err := r.getQueryer().Exec(ctx, `DELETE FROM availability_slot WHERE person_id = $1`, personId); err != nil {
		log.Errorf("failed to clear availability of person %d: %v", personId, err)
		return err
	}
	if len(availability) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `INSERT INTO availability_slot (person_id, position, from_ms, to_ms, recur, exdates)
			  VALUES ($1, $2, $3, $4, $5, $6)`
	for position, record := range availability.Records() {
		var recur *string
		if record.Recur != "" {
			recur = &record.Recur
		}
		exDates := record.ExDates
		if exDates == nil {
			exDates = []int64{}
		}
		batch.Queue(query, personId, position, record.From, record.To, recur, exDates)
	}
	results := r.sendBatch(ctx, batch)
	defer results.Close()
	for range availability {
		if _, err := results.Exec(); err != nil {
			log.Errorf("failed to insert availability of person %d: %v", personId, err)
			return err
		}
	}
	return nil
}

func (r *repositoryImpl) sendBatch(ctx context.Context, batch *pgx.Batch) pgx.BatchResults {
	if r.tx != nil {
		return r.tx.SendBatch(ctx, batch)
	}
	return r.db.SendBatch(ctx, batch)
}
