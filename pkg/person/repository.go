package person

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrPersonNotFound = errors.New("person not found")

type Repository interface {
	Create(ctx context.Context, p Person) (int, error)
	Get(ctx context.Context, id int) (Person, error)
	GetByUid(ctx context.Context, uid string) (Person, error)
	// GetMany returns the people with the given ids; unknown ids are skipped.
	GetMany(ctx context.Context, ids []int) ([]Person, error)
	Update(ctx context.Context, p Person) (Person, error)
	Delete(ctx context.Context, id int) error
	List(ctx context.Context) ([]Person, error)
}

type repositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repositoryImpl{db: db}
}

const selectPerson = `SELECT id, uid, name, timezone, week_first_day FROM person`

func scanPerson(row pgx.Row) (Person, error) {
	var p Person
	var weekFirstDay int
	err := row.Scan(&p.Id, &p.Uid, &p.Name, &p.Settings.Timezone, &weekFirstDay)
	if err != nil {
		return Person{}, err
	}
	p.Settings.WeekFirstDay = weekdayOf(weekFirstDay)
	return p, nil
}

func (r *repositoryImpl) Create(ctx context.Context, p Person) (int, error) {
	query := `INSERT INTO person (uid, name, timezone, week_first_day) VALUES ($1, $2, $3, $4) RETURNING id`
	timezone := p.Settings.Timezone
	if timezone == "" {
		timezone = "UTC"
	}
	var id int
	err := r.db.QueryRow(ctx, query, p.Uid, p.Name, timezone, int(p.Settings.WeekFirstDay)).Scan(&id)
	if err != nil {
		log.Errorf("failed to create person: %v", err)
		return 0, err
	}
	return id, nil
}

func (r *repositoryImpl) Get(ctx context.Context, id int) (Person, error) {
	p, err := scanPerson(r.db.QueryRow(ctx, selectPerson+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Person{}, fmt.Errorf("%w: id %d", ErrPersonNotFound, id)
	} else if err != nil {
		log.Errorf("failed to get person: %v", err)
		return Person{}, err
	}
	return p, nil
}

func (r *repositoryImpl) GetByUid(ctx context.Context, uid string) (Person, error) {
	p, err := scanPerson(r.db.QueryRow(ctx, selectPerson+` WHERE uid = $1`, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		log.Debugf("person with uid %s not found", uid)
		return Person{}, fmt.Errorf("%w: uid %s", ErrPersonNotFound, uid)
	} else if err != nil {
		log.Errorf("failed to get person: %v", err)
		return Person{}, err
	}
	return p, nil
}

func (r *repositoryImpl) GetMany(ctx context.Context, ids []int) ([]Person, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.list(ctx, selectPerson+` WHERE id = ANY($1) ORDER BY id`, ids)
}

func (r *repositoryImpl) Update(ctx context.Context, p Person) (Person, error) {
	query := `UPDATE person SET name = $1, timezone = $2, week_first_day = $3 WHERE id = $4`
	result, err := r.db.Exec(ctx, query, p.Name, p.Settings.Timezone, int(p.Settings.WeekFirstDay), p.Id)
	if err != nil {
		return Person{}, err
	}
	if result.RowsAffected() == 0 {
		log.Info("no rows affected of updating person")
		return Person{}, fmt.Errorf("%w: id %d", ErrPersonNotFound, p.Id)
	}
	return r.Get(ctx, p.Id)
}

func (r *repositoryImpl) Delete(ctx context.Context, id int) error {
	result, err := r.db.Exec(ctx, `DELETE FROM person WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", ErrPersonNotFound, id)
	}
	return nil
}

func (r *repositoryImpl) List(ctx context.Context) ([]Person, error) {
	return r.list(ctx, selectPerson+` ORDER BY id`)
}

func (r *repositoryImpl) list(ctx context.Context, query string, args ...any) ([]Person, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		log.Errorf("failed to list people: %v", err)
		return nil, err
	}
	defer rows.Close()

	people := make([]Person, 0, 10)
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			log.Errorf("failed to scan person: %v", err)
			return nil, err
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return people, nil
}

func weekdayOf(n int) time.Weekday {
	if n < int(time.Sunday) || n > int(time.Saturday) {
		return time.Monday
	}
	return time.Weekday(n)
}
