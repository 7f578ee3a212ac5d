package repository_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/contacts/internal/database"
	"github.com/jask/contacts/internal/database/repository"
)

func openRepo(t *testing.T) (*repository.ContactRepo, *sql.DB) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "contacts.db"), database.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db, nil))
	return repository.NewContactRepo(db), db
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestContactRepoRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)
	repo, _ := openRepo(t)

	id, err := repo.Insert(ctx, "Ana López", "555-1111")
	require.NoError(t, err)
	require.Equal(t, int64(1), id)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []repository.Contact{{ID: id, Name: "Ana López", Phone: "555-1111"}}, list)

	n, err := repo.Update(ctx, repository.Contact{ID: id, Name: "Ana López", Phone: "555-9999"})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	list, err = repo.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []repository.Contact{{ID: id, Name: "Ana López", Phone: "555-9999"}}, list)

	n, err = repo.Delete(ctx, id)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	list, err = repo.List(ctx)
	require.NoError(t, err)
	require.NotNil(t, list)
	require.Empty(t, list)
}

func TestContactRepoMissingID(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)
	repo, _ := openRepo(t)

	n, err := repo.Update(ctx, repository.Contact{ID: 42, Name: "Nobody", Phone: "0"})
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = repo.Delete(ctx, 42)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestContactRepoListOrderedByName(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)
	repo, _ := openRepo(t)

	for _, name := range []string{"Beto", "Ana", "Carla"} {
		_, err := repo.Insert(ctx, name, "555")
		require.NoError(t, err)
	}

	list, err := repo.List(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(list))
	for _, c := range list {
		names = append(names, c.Name)
	}
	require.Equal(t, []string{"Ana", "Beto", "Carla"}, names)
}

func TestContactRepoCollationIgnoresCaseAtPrimaryLevel(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)
	repo, _ := openRepo(t)

	// binary ordering would put every upper-case name first
	for _, name := range []string{"beto", "Carla", "ana", "Ángel"} {
		_, err := repo.Insert(ctx, name, "555")
		require.NoError(t, err)
	}

	list, err := repo.List(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(list))
	for _, c := range list {
		names = append(names, c.Name)
	}
	require.Equal(t, []string{"ana", "Ángel", "beto", "Carla"}, names)
}

func TestContactRepoDeleteAllTwice(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)
	repo, _ := openRepo(t)

	for _, name := range []string{"Ana", "Beto"} {
		_, err := repo.Insert(ctx, name, "555")
		require.NoError(t, err)
	}

	n, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	n, err = repo.DeleteAll(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestContactRepoIDsNeverReused(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)
	repo, _ := openRepo(t)

	first, err := repo.Insert(ctx, "Ana", "1")
	require.NoError(t, err)
	_, err = repo.Delete(ctx, first)
	require.NoError(t, err)

	second, err := repo.Insert(ctx, "Beto", "2")
	require.NoError(t, err)
	require.Greater(t, second, first)
}

func TestContactRepoInsertFailureIsWrapped(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)
	repo, db := openRepo(t)
	require.NoError(t, db.Close())

	_, err := repo.Insert(ctx, "Ana", "1")
	require.ErrorIs(t, err, repository.ErrWriteFailed)
}
