package repository

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/marketplace-backend/internal/db"
	"github.com/ignatzorin/marketplace-backend/internal/models"
)

// Тесты этого файла идут на живой PostgreSQL из TEST_DATABASE_URL.
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL не задан")
	}

	ctx := context.Background()
	conn, err := db.NewPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	migrations, err := db.MigrationsFS("")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(ctx, conn, migrations))
	return conn
}

// testTree создаёт категории и удаляет их после теста.
type testTree struct {
	repo *CategoryRepository
	ids  []uuid.UUID
}

func newTestTree(t *testing.T) *testTree {
	tree := &testTree{repo: NewCategoryRepository(openTestDB(t))}
	t.Cleanup(func() {
		_, _ = tree.repo.db.Exec(`UPDATE categories SET parent_id = NULL WHERE id = ANY($1)`, pq.Array(tree.ids))
		_, _ = tree.repo.db.Exec(`DELETE FROM categories WHERE id = ANY($1)`, pq.Array(tree.ids))
	})
	return tree
}

func (tr *testTree) add(t *testing.T, parentID *uuid.UUID) *models.Category {
	t.Helper()
	c := &models.Category{Slug: "test-" + uuid.NewString(), ParentID: parentID}
	require.NoError(t, tr.repo.Create(context.Background(), c))
	tr.ids = append(tr.ids, c.ID)
	return c
}

func TestCategoryRepository_ConcurrentCrossMoves(t *testing.T) {
	tree := newTestTree(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		a := tree.add(t, nil)
		b := tree.add(t, nil)
		a.ParentID, b.ParentID = &b.ID, &a.ID

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for j, c := range []*models.Category{a, b} {
			wg.Add(1)
			go func(j int, c *models.Category) {
				defer wg.Done()
				errs[j] = tree.repo.Update(ctx, c)
			}(j, c)
		}
		wg.Wait()

		failed := 0
		for _, err := range errs {
			if err != nil {
				assert.ErrorIs(t, err, ErrCategoryCycle)
				failed++
			}
		}
		require.Equal(t, 1, failed, "ровно один перенос должен быть отклонён")

		for _, id := range []uuid.UUID{a.ID, b.ID} {
			stored, err := tree.repo.GetByID(ctx, id)
			require.NoError(t, err)
			if stored.ParentID == nil {
				continue
			}
			cycle, err := leadsTo(ctx, tree.repo.db, *stored.ParentID, id)
			require.NoError(t, err)
			assert.False(t, cycle)
		}
	}
}

func TestCategoryRepository_DeleteCountsUnderLock(t *testing.T) {
	tree := newTestTree(t)
	parent := tree.add(t, nil)
	child := tree.add(t, &parent.ID)

	var seen models.CategoryDeleteState
	_, err := tree.repo.Delete(context.Background(), parent.ID, func(state models.CategoryDeleteState) (models.CategoryDeletePlan, error) {
		seen = state
		return models.CategoryDeletePlan{}, ErrCategoryInUse
	})
	assert.ErrorIs(t, err, ErrCategoryInUse)
	assert.Equal(t, 1, seen.Children)

	stored, err := tree.repo.GetByID(context.Background(), child.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ParentID)
	assert.Equal(t, parent.ID, *stored.ParentID)
}
