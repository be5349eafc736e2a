package roster

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockResidentDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *ResidentRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewResidentRepository(db)

	return db, mock, repo
}

func TestListResidents_Success(t *testing.T) {
	db, mock, repo := setupMockResidentDB(t)
	defer db.Close()

	id1 := uuid.New().String()
	id2 := uuid.New().String()

	rows := sqlmock.NewRows([]string{
		"id", "name", "contact", "email", "notify_email", "notify_sms", "notify_push",
	}).
		AddRow(id1, "Ana Reyes", "+639171234567", "ana@example.com", true, true, false).
		AddRow(id2, "Ben Santos", nil, nil, false, false, true)

	mock.ExpectQuery(`SELECT`).WillReturnRows(rows)

	residents, err := repo.ListResidents(context.Background())

	require.NoError(t, err)
	require.Len(t, residents, 2)

	assert.Equal(t, id1, residents[0].ID)
	assert.Equal(t, "Ana Reyes", residents[0].Name)
	assert.Equal(t, "+639171234567", residents[0].Contact)
	assert.Equal(t, "ana@example.com", residents[0].Email)
	assert.True(t, residents[0].Preferences.Email)
	assert.True(t, residents[0].Preferences.SMS)
	assert.False(t, residents[0].Preferences.Push)

	// Optional addresses come back empty, not broken
	assert.Equal(t, "", residents[1].Contact)
	assert.Equal(t, "", residents[1].Email)
	assert.True(t, residents[1].Preferences.Push)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListResidents_Empty(t *testing.T) {
	db, mock, repo := setupMockResidentDB(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"id", "name", "contact", "email", "notify_email", "notify_sms", "notify_push",
	})

	mock.ExpectQuery(`SELECT`).WillReturnRows(rows)

	residents, err := repo.ListResidents(context.Background())

	require.NoError(t, err)
	assert.Empty(t, residents)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListResidents_QueryError(t *testing.T) {
	db, mock, repo := setupMockResidentDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WillReturnError(errors.New("connection refused"))

	residents, err := repo.ListResidents(context.Background())

	assert.Error(t, err)
	assert.Nil(t, residents)
	assert.Contains(t, err.Error(), "failed to query residents")

	require.NoError(t, mock.ExpectationsWereMet())
}
