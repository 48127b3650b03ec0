package client_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/clover/internal/repositories/client"
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

func TestRepository_CreateComputesMatchKeys(t *testing.T) {
	db := getTestDB(t)
	repo := client.NewRepository(db, getTestLogger())
	ctx := context.Background()
	tenant := uuid.New().String()

	created, err := repo.Create(ctx, tenant, models.ClientFields{
		Name:          "Jane Doe",
		PersonalEmail: "JANE@Example.com",
		CellularPhone: "(555) 123-4567",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, created.TimesImported)

	found, err := repo.FindByNormalizedEmailOrPhone(ctx, tenant, "jane@example.com", "")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)

	found, err = repo.FindByNormalizedEmailOrPhone(ctx, tenant, "", "5551234567")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)
}

func TestRepository_FindNoMatchReturnsNil(t *testing.T) {
	db := getTestDB(t)
	repo := client.NewRepository(db, getTestLogger())

	found, err := repo.FindByNormalizedEmailOrPhone(context.Background(), uuid.New().String(), "nobody@example.com", "")
	require.NoError(t, err)
	assert.Nil(t, found)

	found, err = repo.FindByNormalizedEmailOrPhone(context.Background(), uuid.New().String(), "", "")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRepository_FindReturnsEarliestCreated(t *testing.T) {
	db := getTestDB(t)
	repo := client.NewRepository(db, getTestLogger())
	ctx := context.Background()
	tenant := uuid.New().String()

	first, err := repo.Create(ctx, tenant, models.ClientFields{Name: "Jane One", PersonalEmail: "dup@example.com"})
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	_, err = repo.Create(ctx, tenant, models.ClientFields{Name: "Jane Two", PersonalEmail: "dup@example.com"})
	require.NoError(t, err)

	found, err := repo.FindByNormalizedEmailOrPhone(ctx, tenant, "dup@example.com", "")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)
}

func TestRepository_FindIsTenantScoped(t *testing.T) {
	db := getTestDB(t)
	repo := client.NewRepository(db, getTestLogger())
	ctx := context.Background()

	_, err := repo.Create(ctx, uuid.New().String(), models.ClientFields{Name: "Jane", PersonalEmail: "scoped@example.com"})
	require.NoError(t, err)

	found, err := repo.FindByNormalizedEmailOrPhone(ctx, uuid.New().String(), "scoped@example.com", "")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRepository_UpdateMergesAndBumpsCounter(t *testing.T) {
	db := getTestDB(t)
	repo := client.NewRepository(db, getTestLogger())
	ctx := context.Background()
	tenant := uuid.New().String()

	created, err := repo.Create(ctx, tenant, models.ClientFields{
		Name:          "Jane Doe",
		PersonalEmail: "jane@example.com",
		WorkPhone:     "(555) 999-8888",
	})
	require.NoError(t, err)

	updated, err := repo.Update(ctx, tenant, created.ID, models.ClientFields{
		Name:          "Jane A. Doe",
		CellularPhone: "(555) 123-4567",
	})
	require.NoError(t, err)

	assert.Equal(t, "Jane A. Doe", updated.Name)
	assert.Equal(t, "jane@example.com", updated.PersonalEmail)
	assert.Equal(t, "(555) 999-8888", updated.WorkPhone)
	assert.Equal(t, "(555) 123-4567", updated.CellularPhone)
	assert.Equal(t, 2, updated.TimesImported)

	// the new cellular number becomes the match key
	found, err := repo.FindByNormalizedEmailOrPhone(ctx, tenant, "", "5551234567")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)
}
