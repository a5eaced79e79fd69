package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderPostgres_FindByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewReaderPostgres(db)
	ctx := context.Background()
	signup := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT email, signup_date, is_premium FROM readers WHERE email = \\$1").
			WithArgs("a@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"email", "signup_date", "is_premium"}).
				AddRow("a@example.com", signup, true))

		rd, err := repo.FindByEmail(ctx, "a@example.com")

		require.NoError(t, err)
		assert.Equal(t, signup, rd.SignupDate)
		assert.True(t, rd.IsPremium)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM readers").
			WithArgs("nobody@example.com").
			WillReturnError(sql.ErrNoRows)

		rd, err := repo.FindByEmail(ctx, "nobody@example.com")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, rd)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
