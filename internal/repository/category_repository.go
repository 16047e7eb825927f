package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/repository/common"
)

var (
	// ErrCategoryNotFound возвращается, когда категория не найдена.
	ErrCategoryNotFound = fmt.Errorf("category: %w", common.ErrNotFound)
	// ErrCategorySlugTaken - нарушен уникальный индекс categories_slug_key.
	ErrCategorySlugTaken = fmt.Errorf("category slug: %w", common.ErrAlreadyExists)
	// ErrCategoryParentNotFound - родитель удалён до записи.
	ErrCategoryParentNotFound = fmt.Errorf("category parent: %w", common.ErrNotFound)
	// ErrCategoryCycle - новый родитель лежит в поддереве категории.
	ErrCategoryCycle = errors.New("category parent chain leads back to the category")
	// ErrCategoryInUse - на категорию остались ссылки, удаление отклонено базой.
	ErrCategoryInUse = errors.New("category is still referenced")
)

const (
	categoryColumns   = `id, slug, name, description, parent_id, created_at, updated_at`
	categoryOrder     = ` ORDER BY name NULLS LAST, slug`
	categorySlugIndex = "categories_slug_key"
	categoryParentFK  = "categories_parent_id_fkey"
	// categoryTreeLock сериализует переносы и удаления внутри дерева.
	categoryTreeLock = "categories:tree"
	// maxTreeDepth ограничивает рекурсию на случай петли в данных.
	maxTreeDepth = 64
)

// CategoryRepository отвечает за таблицу categories.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository создаёт экземпляр репозитория.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create вставляет категорию и заполняет ID и временные метки.
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	query := `
		INSERT INTO categories (slug, name, description, parent_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		category.Slug, category.Name, category.Description, category.ParentID,
	).Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err, categorySlugIndex) {
			return ErrCategorySlugTaken
		}
		if common.IsForeignKeyViolation(err, categoryParentFK) {
			return ErrCategoryParentNotFound
		}
		return fmt.Errorf("category repository: create %w", err)
	}
	return nil
}

// GetByID возвращает категорию по идентификатору.
func (r *CategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	err := r.db.GetContext(ctx, &category, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("category repository: get by id %w", err)
	}
	return &category, nil
}

// GetBySlug возвращает категорию по slug.
func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	err := r.db.GetContext(ctx, &category, `SELECT `+categoryColumns+` FROM categories WHERE slug = $1`, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("category repository: get by slug %w", err)
	}
	return &category, nil
}

// ExistsBySlug проверяет, занят ли slug другой категорией.
func (r *CategoryRepository) ExistsBySlug(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM categories WHERE slug = $1)`
	args := []interface{}{slug}
	if excludeID != nil {
		query = `SELECT EXISTS(SELECT 1 FROM categories WHERE slug = $1 AND id <> $2)`
		args = append(args, *excludeID)
	}

	exists, err := common.Exists(ctx, r.db, query, args...)
	if err != nil {
		return false, fmt.Errorf("category repository: exists by slug %w", err)
	}
	return exists, nil
}

// List возвращает категории по фильтру: корневые, дочерние или все.
func (r *CategoryRepository) List(ctx context.Context, filter models.CategoryFilter) ([]models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories`
	var args []interface{}

	switch {
	case filter.RootsOnly:
		query += ` WHERE parent_id IS NULL`
	case filter.ParentID != nil:
		query += ` WHERE parent_id = $1`
		args = append(args, *filter.ParentID)
	}
	query += categoryOrder

	categories := []models.Category{}
	if err := r.db.SelectContext(ctx, &categories, query, args...); err != nil {
		return nil, fmt.Errorf("category repository: list %w", err)
	}
	return categories, nil
}

// ListByIDs возвращает категории с указанными идентификаторами.
func (r *CategoryRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Category, error) {
	categories := []models.Category{}
	if len(ids) == 0 {
		return categories, nil
	}
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = ANY($1)` + categoryOrder
	if err := r.db.SelectContext(ctx, &categories, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("category repository: list by ids %w", err)
	}
	return categories, nil
}

// ListChildren возвращает прямых потомков сразу для нескольких родителей.
func (r *CategoryRepository) ListChildren(ctx context.Context, parentIDs []uuid.UUID) ([]models.Category, error) {
	children := []models.Category{}
	if len(parentIDs) == 0 {
		return children, nil
	}
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE parent_id = ANY($1)` + categoryOrder
	if err := r.db.SelectContext(ctx, &children, query, pq.Array(parentIDs)); err != nil {
		return nil, fmt.Errorf("category repository: list children %w", err)
	}
	return children, nil
}

// ListDescendants возвращает всех потомков категории плоским списком.
func (r *CategoryRepository) ListDescendants(ctx context.Context, id uuid.UUID) ([]models.Category, error) {
	query := `
		WITH RECURSIVE tree AS (
			SELECT ` + categoryColumns + `, 1 AS depth
			FROM categories WHERE parent_id = $1
			UNION ALL
			SELECT c.id, c.slug, c.name, c.description, c.parent_id, c.created_at, c.updated_at, t.depth + 1
			FROM categories c
			JOIN tree t ON c.parent_id = t.id
			WHERE t.depth < $2
		)
		SELECT DISTINCT ON (id) ` + categoryColumns + ` FROM tree ORDER BY id, depth
	`
	descendants := []models.Category{}
	if err := r.db.SelectContext(ctx, &descendants, query, id, maxTreeDepth); err != nil {
		return nil, fmt.Errorf("category repository: list descendants %w", err)
	}
	return descendants, nil
}

// Search ищет подстроку без учёта регистра в названии, описании и slug.
func (r *CategoryRepository) Search(ctx context.Context, term string) ([]models.Category, error) {
	pattern := "%" + common.EscapeLike(strings.ToLower(term)) + "%"
	query := `
		SELECT ` + categoryColumns + ` FROM categories
		WHERE LOWER(COALESCE(name, '')) LIKE $1 ESCAPE '\'
		   OR LOWER(COALESCE(description, '')) LIKE $1 ESCAPE '\'
		   OR slug LIKE $1 ESCAPE '\'
	` + categoryOrder

	categories := []models.Category{}
	if err := r.db.SelectContext(ctx, &categories, query, pattern); err != nil {
		return nil, fmt.Errorf("category repository: search %w", err)
	}
	return categories, nil
}

// Update сохраняет изменяемые поля категории целиком.
//
// При смене родителя запись идёт под блокировкой дерева, а цепочка предков
// нового родителя перечитывается в той же транзакции: параллельные переносы
// не могут замкнуть цикл.
func (r *CategoryRepository) Update(ctx context.Context, category *models.Category) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if category.ParentID != nil {
			if err := common.LockXact(ctx, tx, categoryTreeLock); err != nil {
				return fmt.Errorf("category repository: update %w", err)
			}
			cycle, err := leadsTo(ctx, tx, *category.ParentID, category.ID)
			if err != nil {
				return err
			}
			if cycle {
				return ErrCategoryCycle
			}
		}

		query := `
			UPDATE categories
			SET slug = $2, name = $3, description = $4, parent_id = $5, updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at
		`
		err := tx.QueryRowxContext(ctx, query,
			category.ID, category.Slug, category.Name, category.Description, category.ParentID,
		).Scan(&category.UpdatedAt)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				return ErrCategoryNotFound
			case common.IsUniqueViolation(err, categorySlugIndex):
				return ErrCategorySlugTaken
			case common.IsForeignKeyViolation(err, categoryParentFK):
				return ErrCategoryParentNotFound
			}
			return fmt.Errorf("category repository: update %w", err)
		}
		return nil
	})
}

// leadsTo сообщает, встречается ли target в цепочке from -> parent -> ...
// Слишком длинная цепочка тоже считается циклом.
func leadsTo(ctx context.Context, tx sqlx.QueryerContext, from, target uuid.UUID) (bool, error) {
	query := `
		WITH RECURSIVE chain AS (
			SELECT id, parent_id, 1 AS depth FROM categories WHERE id = $1
			UNION ALL
			SELECT c.id, c.parent_id, ch.depth + 1
			FROM categories c
			JOIN chain ch ON c.id = ch.parent_id
			WHERE ch.depth < $3
		)
		SELECT COALESCE(BOOL_OR(id = $2) OR MAX(depth) >= $3, FALSE) FROM chain
	`
	var found bool
	if err := sqlx.GetContext(ctx, tx, &found, query, from, target, maxTreeDepth); err != nil {
		return false, fmt.Errorf("category repository: parent chain %w", err)
	}
	return found, nil
}

// Delete удаляет категорию в одной транзакции. Строка категории блокируется,
// потомки и услуги считаются под блокировкой, decide по этим данным
// возвращает план или ошибку. Ошибка decide откатывает транзакцию и
// возвращается как есть. Результат - состояние категории перед удалением.
func (r *CategoryRepository) Delete(ctx context.Context, id uuid.UUID, decide models.CategoryDeleteDecision) (*models.Category, error) {
	var deleted *models.Category
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := common.LockXact(ctx, tx, categoryTreeLock); err != nil {
			return fmt.Errorf("category repository: delete %w", err)
		}

		var state models.CategoryDeleteState
		err := tx.GetContext(ctx, &state.Category,
			`SELECT `+categoryColumns+` FROM categories WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrCategoryNotFound
			}
			return fmt.Errorf("category repository: lock category %w", err)
		}
		if err := tx.GetContext(ctx, &state.Children,
			`SELECT COUNT(*) FROM categories WHERE parent_id = $1`, id); err != nil {
			return fmt.Errorf("category repository: count children %w", err)
		}
		if err := tx.GetContext(ctx, &state.Services,
			`SELECT COUNT(*) FROM services WHERE category_id = $1`, id); err != nil {
			return fmt.Errorf("category repository: count services %w", err)
		}

		plan, err := decide(state)
		if err != nil {
			return err
		}

		if state.Children > 0 {
			if _, err := tx.ExecContext(ctx,
				`UPDATE categories SET parent_id = $2, updated_at = NOW() WHERE parent_id = $1`,
				id, plan.NewParentID,
			); err != nil {
				return fmt.Errorf("category repository: reparent children %w", err)
			}
		}
		if plan.ServiceTargetID != nil {
			if _, err := tx.ExecContext(ctx,
				`UPDATE services SET category_id = $2, updated_at = NOW() WHERE category_id = $1`,
				id, *plan.ServiceTargetID,
			); err != nil {
				return fmt.Errorf("category repository: reassign services %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id); err != nil {
			if common.IsForeignKeyViolation(err, "") {
				return ErrCategoryInUse
			}
			return fmt.Errorf("category repository: delete %w", err)
		}
		deleted = &state.Category
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
