package meeting

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/tutorbook/tutorbook/internal/database"
	"github.com/tutorbook/tutorbook/pkg/timeslot"
)

var ErrMeetingNotFound = errors.New("meeting not found")

type Repository interface {
	WithTransaction(ctx context.Context, fn func(repo Repository) error) error
	Create(ctx context.Context, m Meeting) error
	Get(ctx context.Context, uid string) (Meeting, error)
	Delete(ctx context.Context, uid string) error
	// ListFor returns every meeting the person attends, ordered by start.
	ListFor(ctx context.Context, personId int) ([]Meeting, error)
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

func (r *repositoryImpl) Create(ctx context.Context, m Meeting) error {
	record := m.Time.ToRecord()
	var recur *string
	if record.Recur != "" {
		recur = &record.Recur
	}
	exDates := record.ExDates
	if exDates == nil {
		exDates = []int64{}
	}

	query := `INSERT INTO meeting (uid, creator_id, from_ms, to_ms, recur, exdates, notes, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.getQueryer().Exec(ctx, query, m.Uid, m.CreatorId, record.From, record.To, recur, exDates, m.Notes, m.CreatedAt)
	if err != nil {
		log.Errorf("failed to create meeting: %v", err)
		return err
	}
	for _, personId := range m.AttendeeIds {
		_, err := r.getQueryer().Exec(ctx,
			`INSERT INTO meeting_attendee (meeting_uid, person_id) VALUES ($1, $2)`, m.Uid, personId)
		if err != nil {
			log.Errorf("failed to add attendee %d to meeting %s: %v", personId, m.Uid, err)
			return err
		}
	}
	return nil
}

const selectMeeting = `SELECT m.uid, m.creator_id, m.from_ms, m.to_ms, m.recur, m.exdates, m.notes, m.created_at,
		ARRAY(SELECT a.person_id FROM meeting_attendee a WHERE a.meeting_uid = m.uid ORDER BY a.person_id)
	FROM meeting m`

func scanMeeting(row pgx.Row) (Meeting, error) {
	var m Meeting
	var record timeslot.Record
	var recur *string
	err := row.Scan(&m.Uid, &m.CreatorId, &record.From, &record.To, &recur, &record.ExDates, &m.Notes, &m.CreatedAt, &m.AttendeeIds)
	if err != nil {
		return Meeting{}, err
	}
	if recur != nil {
		record.Recur = *recur
	}
	m.Time, err = timeslot.FromRecord(record)
	if err != nil {
		return Meeting{}, fmt.Errorf("could not read time of meeting %s: %w", m.Uid, err)
	}
	return m, nil
}

func (r *repositoryImpl) Get(ctx context.Context, uid string) (Meeting, error) {
	m, err := scanMeeting(r.getQueryer().QueryRow(ctx, selectMeeting+` WHERE m.uid = $1`, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		return Meeting{}, fmt.Errorf("%w: %s", ErrMeetingNotFound, uid)
	} else if err != nil {
		log.Errorf("failed to get meeting %s: %v", uid, err)
		return Meeting{}, err
	}
	return m, nil
}

func (r *repositoryImpl) Delete(ctx context.Context, uid string) error {
	result, err := r.getQueryer().Exec(ctx, `DELETE FROM meeting WHERE uid = $1`, uid)
	if err != nil {
		log.Errorf("failed to delete meeting %s: %v", uid, err)
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrMeetingNotFound, uid)
	}
	return nil
}

func (r *repositoryImpl) ListFor(ctx context.Context, personId int) ([]Meeting, error) {
	query := selectMeeting + `
	WHERE EXISTS (SELECT 1 FROM meeting_attendee a WHERE a.meeting_uid = m.uid AND a.person_id = $1)
	ORDER BY m.from_ms, m.uid`
	rows, err := r.getQueryer().Query(ctx, query, personId)
	if err != nil {
		log.Errorf("failed to list meetings of person %d: %v", personId, err)
		return nil, err
	}
	defer rows.Close()

	meetings := make([]Meeting, 0)
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return meetings, nil
}
