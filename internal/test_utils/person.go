package test_utils

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// InsertPerson stores a bare person row and returns its id, for repository tests
// whose tables reference person.
func InsertPerson(t *testing.T, ctx context.Context, db *pgxpool.Pool, name string) int {
	t.Helper()
	var id int
	err := db.QueryRow(ctx,
		`INSERT INTO person (uid, name) VALUES ($1, $2) RETURNING id`,
		uuid.NewString(), name,
	).Scan(&id)
	require.NoError(t, err)
	return id
}
