package importjob_test

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/clover/internal/repositories/importjob"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func getTestDB(t *testing.T) database.DB {
	dbHost := os.Getenv("TEST_DB_HOST")
	if dbHost == "" {
		t.Skip("Requires running database - set TEST_DB_HOST")
	}
	dbUser := os.Getenv("TEST_DB_USER")
	if dbUser == "" {
		dbUser = "postgres"
	}
	dbPass := os.Getenv("TEST_DB_PASSWORD")
	dbName := os.Getenv("TEST_DB_NAME")
	if dbName == "" {
		dbName = "clover_test"
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s sslmode=disable", dbHost, dbUser, dbPass, dbName)
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return database.NewDatabaseInstance(db, getTestLogger())
}

func TestRepository_CreateAndGet(t *testing.T) {
	db := getTestDB(t)
	repo := importjob.NewRepository(db, getTestLogger())
	ctx := context.Background()
	tenant := uuid.New().String()

	job, err := repo.Create(ctx, tenant, "clients.csv", 42)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQueued, job.Status)
	assert.Equal(t, 42, job.TotalRows)

	got, err := repo.Get(ctx, tenant, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, "clients.csv", got.Filename)
}

func TestRepository_GetNotFound(t *testing.T) {
	db := getTestDB(t)
	repo := importjob.NewRepository(db, getTestLogger())

	_, err := repo.Get(context.Background(), uuid.New().String(), uuid.New().String())
	require.True(t, httperror.IsHTTPError(err))
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}

func TestRepository_GetIsTenantScoped(t *testing.T) {
	db := getTestDB(t)
	repo := importjob.NewRepository(db, getTestLogger())
	ctx := context.Background()

	job, err := repo.Create(ctx, uuid.New().String(), "clients.csv", 1)
	require.NoError(t, err)

	_, err = repo.Get(ctx, uuid.New().String(), job.ID)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}

func TestRepository_TransitionStatus(t *testing.T) {
	db := getTestDB(t)
	repo := importjob.NewRepository(db, getTestLogger())
	ctx := context.Background()
	tenant := uuid.New().String()

	job, err := repo.Create(ctx, tenant, "clients.csv", 1)
	require.NoError(t, err)

	ok, err := repo.TransitionStatus(ctx, tenant, job.ID, models.JobStatusQueued, models.JobStatusPreviewed)
	require.NoError(t, err)
	assert.True(t, ok)

	// the same conditional transition loses the second time
	ok, err = repo.TransitionStatus(ctx, tenant, job.ID, models.JobStatusQueued, models.JobStatusPreviewed)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.Get(ctx, tenant, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPreviewed, got.Status)
}

func TestRepository_Finalize(t *testing.T) {
	db := getTestDB(t)
	repo := importjob.NewRepository(db, getTestLogger())
	ctx := context.Background()
	tenant := uuid.New().String()

	job, err := repo.Create(ctx, tenant, "clients.csv", 3)
	require.NoError(t, err)

	result := &models.ImportResult{SuccessCount: 2, ErrorCount: 1, SkippedCount: 0}
	require.NoError(t, repo.Finalize(ctx, tenant, job.ID, models.JobStatusCompleted, result, nil))

	got, err := repo.Get(ctx, tenant, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, 2, got.SuccessCount)
	assert.Equal(t, 1, got.ErrorCount)
	assert.NotNil(t, got.CompletedAt)
	assert.Nil(t, got.Error)
}

func TestRepository_List(t *testing.T) {
	db := getTestDB(t)
	repo := importjob.NewRepository(db, getTestLogger())
	ctx := context.Background()
	tenant := uuid.New().String()

	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, tenant, fmt.Sprintf("batch-%d.csv", i), i)
		require.NoError(t, err)
	}

	jobs, total, err := repo.List(ctx, tenant, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, jobs, 2)

	jobs, _, err = repo.List(ctx, tenant, 2, 2)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}
