package meeting

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/tutorbook/tutorbook/internal/test_utils"
	"github.com/tutorbook/tutorbook/pkg/timeslot"
)

var pgContainer *postgres.PostgresContainer
var openDb func() *pgxpool.Pool

func TestMain(m *testing.M) {
	pgContainer, openDb = test_utils.TestWithDB()
	code := m.Run()
	if err := testcontainers.TerminateContainer(pgContainer); err != nil {
		log.Errorf("failed to terminate container: %s", err)
	}
	os.Exit(code)
}

type repositoryFixture struct {
	ctx     context.Context
	repo    Repository
	tutor   int
	student int
}

func setupTestRepository(t *testing.T) repositoryFixture {
	ctx := context.Background()
	db := openDb()
	t.Cleanup(func() {
		db.Close()
		require.NoError(t, pgContainer.Restore(ctx))
	})
	return repositoryFixture{
		ctx:     ctx,
		repo:    NewRepository(db),
		tutor:   test_utils.InsertPerson(t, ctx, db, "Tutor"),
		student: test_utils.InsertPerson(t, ctx, db, "Student"),
	}
}

func TestRepositoryImpl_CreateAndGet(t *testing.T) {
	t.Run("should store a recurring meeting with its attendees", func(t *testing.T) {
		// given
		f := setupTestRepository(t)
		slot, err := timeslot.NewRecurring(monday(16, 0), monday(17, 0), "RRULE:FREQ=WEEKLY;COUNT=10",
			[]time.Time{monday(16, 0).AddDate(0, 0, 14)})
		require.NoError(t, err)
		m := Meeting{
			Uid:         uuid.NewString(),
			CreatorId:   f.student,
			AttendeeIds: []int{f.tutor, f.student},
			Time:        slot,
			Notes:       "geometry",
			CreatedAt:   now,
		}

		// when
		err = f.repo.Create(f.ctx, m)
		require.NoError(t, err)
		stored, err := f.repo.Get(f.ctx, m.Uid)

		// then
		require.NoError(t, err)
		assert.Equal(t, m.Uid, stored.Uid)
		assert.Equal(t, m.CreatorId, stored.CreatorId)
		assert.Equal(t, m.AttendeeIds, stored.AttendeeIds)
		assert.Equal(t, m.Notes, stored.Notes)
		assert.True(t, m.CreatedAt.Equal(stored.CreatedAt))
		assert.True(t, m.Time.Equal(stored.Time), "got %s", stored.Time)
	})

	t.Run("should report a missing meeting", func(t *testing.T) {
		f := setupTestRepository(t)

		_, err := f.repo.Get(f.ctx, "missing")

		assert.ErrorIs(t, err, ErrMeetingNotFound)
	})
}

func TestRepositoryImpl_ListFor(t *testing.T) {
	t.Run("should list meetings of an attendee ordered by start", func(t *testing.T) {
		// given
		f := setupTestRepository(t)
		later := Meeting{Uid: "b", CreatorId: f.student, AttendeeIds: []int{f.tutor, f.student},
			Time: timeslot.MustNew(monday(14, 0), monday(15, 0)), CreatedAt: now}
		earlier := Meeting{Uid: "a", CreatorId: f.tutor, AttendeeIds: []int{f.tutor},
			Time: timeslot.MustNew(monday(9, 0), monday(10, 0)), CreatedAt: now}
		require.NoError(t, f.repo.Create(f.ctx, later))
		require.NoError(t, f.repo.Create(f.ctx, earlier))

		// when
		tutorMeetings, err := f.repo.ListFor(f.ctx, f.tutor)
		require.NoError(t, err)
		studentMeetings, err := f.repo.ListFor(f.ctx, f.student)
		require.NoError(t, err)

		// then
		require.Len(t, tutorMeetings, 2)
		assert.Equal(t, "a", tutorMeetings[0].Uid)
		assert.Equal(t, "b", tutorMeetings[1].Uid)
		require.Len(t, studentMeetings, 1)
		assert.Equal(t, "b", studentMeetings[0].Uid)
	})
}

func TestRepositoryImpl_Delete(t *testing.T) {
	t.Run("should delete a meeting and its attendees", func(t *testing.T) {
		f := setupTestRepository(t)
		m := Meeting{Uid: "a", CreatorId: f.tutor, AttendeeIds: []int{f.tutor},
			Time: timeslot.MustNew(monday(9, 0), monday(10, 0)), CreatedAt: now}
		require.NoError(t, f.repo.Create(f.ctx, m))

		require.NoError(t, f.repo.Delete(f.ctx, m.Uid))

		meetings, err := f.repo.ListFor(f.ctx, f.tutor)
		require.NoError(t, err)
		assert.Empty(t, meetings)
		assert.ErrorIs(t, f.repo.Delete(f.ctx, m.Uid), ErrMeetingNotFound)
	})

	t.Run("should roll back a failed transaction", func(t *testing.T) {
		f := setupTestRepository(t)
		m := Meeting{Uid: "a", CreatorId: f.tutor, AttendeeIds: []int{f.tutor, 4242},
			Time: timeslot.MustNew(monday(9, 0), monday(10, 0)), CreatedAt: now}

		err := f.repo.WithTransaction(f.ctx, func(tx Repository) error {
			return tx.Create(f.ctx, m)
		})

		assert.Error(t, err)
		_, err = f.repo.Get(f.ctx, m.Uid)
		assert.ErrorIs(t, err, ErrMeetingNotFound)
	})
}
