package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/marketplace-backend/internal/cache"
	"github.com/ignatzorin/marketplace-backend/internal/logger"
	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/slug"
	"github.com/ignatzorin/marketplace-backend/internal/repository"
	"github.com/ignatzorin/marketplace-backend/internal/validation"
)

// maxCategoryDepth ограничивает обход цепочки родителей.
const maxCategoryDepth = 64

// CategoryRepository описывает хранилище дерева категорий.
type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	GetBySlug(ctx context.Context, slug string) (*models.Category, error)
	ExistsBySlug(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error)
	List(ctx context.Context, filter models.CategoryFilter) ([]models.Category, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Category, error)
	ListChildren(ctx context.Context, parentIDs []uuid.UUID) ([]models.Category, error)
	ListDescendants(ctx context.Context, id uuid.UUID) ([]models.Category, error)
	Search(ctx context.Context, term string) ([]models.Category, error)
	// Update при смене родителя повторяет проверку цикла под блокировкой
	// дерева и возвращает repository.ErrCategoryCycle.
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id uuid.UUID, decide models.CategoryDeleteDecision) (*models.Category, error)
}

// CategoryServiceLister подгружает услуги для includeServices.
type CategoryServiceLister interface {
	ListByCategoryIDs(ctx context.Context, categoryIDs []uuid.UUID) ([]models.Service, error)
}

// CategoryService управляет деревом категорий.
type CategoryService struct {
	repo     CategoryRepository
	services CategoryServiceLister
	cache    readCache
	log      *logrus.Entry
}

// NewCategoryService создаёт сервис категорий. store может быть nil.
func NewCategoryService(repo CategoryRepository, services CategoryServiceLister, store cache.Cache, cacheTTL time.Duration) *CategoryService {
	log := logger.WithComponent("category_service")
	return &CategoryService{
		repo:     repo,
		services: services,
		cache:    newReadCache(store, cacheTTL, log),
		log:      log,
	}
}

// Create создаёт категорию.
func (s *CategoryService) Create(ctx context.Context, in models.CreateCategoryInput) (*models.Category, error) {
	in.Slug = strings.TrimSpace(in.Slug)
	in.Name = trimOptional(in.Name)
	if err := validation.ValidateCreateCategory(in); err != nil {
		return nil, invalid(err)
	}

	if in.ParentID != nil {
		if _, err := s.repo.GetByID(ctx, *in.ParentID); err != nil {
			return nil, s.parentError(err, *in.ParentID)
		}
	}

	if err := s.ensureSlugFree(ctx, in.Slug, nil); err != nil {
		return nil, err
	}

	category := &models.Category{
		Slug:        in.Slug,
		Name:        in.Name,
		Description: in.Description,
		ParentID:    in.ParentID,
	}
	if err := s.repo.Create(ctx, category); err != nil {
		switch {
		case errors.Is(err, repository.ErrCategorySlugTaken):
			return nil, slugConflict(in.Slug)
		case errors.Is(err, repository.ErrCategoryParentNotFound):
			return nil, s.parentError(err, *in.ParentID)
		}
		return nil, apperror.FromStore(err)
	}

	s.cache.invalidate(ctx, cache.PrefixCategories)
	s.log.WithFields(logrus.Fields{"category_id": category.ID, "slug": category.Slug}).Info("категория создана")
	return category, nil
}

// GetByID возвращает категорию или nil, если её нет.
func (s *CategoryService) GetByID(ctx context.Context, id uuid.UUID, opts models.CategoryOptions) (*models.Category, error) {
	category, err := s.repo.GetByID(ctx, id)
	return s.loadOne(ctx, category, err, opts)
}

// GetBySlug возвращает категорию по slug или nil, если её нет.
func (s *CategoryService) GetBySlug(ctx context.Context, slugValue string, opts models.CategoryOptions) (*models.Category, error) {
	category, err := s.repo.GetBySlug(ctx, strings.TrimSpace(slugValue))
	return s.loadOne(ctx, category, err, opts)
}

func (s *CategoryService) loadOne(ctx context.Context, category *models.Category, err error, opts models.CategoryOptions) (*models.Category, error) {
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, nil
		}
		return nil, apperror.FromStore(err)
	}

	list := []models.Category{*category}
	if err := s.attach(ctx, list, opts); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// List возвращает категории по фильтру.
func (s *CategoryService) List(ctx context.Context, filter models.CategoryFilter) ([]models.Category, error) {
	key := listCacheKey(filter)
	cacheable := !filter.IncludeServices
	if cacheable {
		var cached []models.Category
		if s.cache.get(ctx, key, &cached) {
			return cached, nil
		}
	}

	categories, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperror.FromStore(err)
	}
	if err := s.attach(ctx, categories, filter.CategoryOptions); err != nil {
		return nil, err
	}

	if cacheable {
		s.cache.set(ctx, key, categories)
	}
	return categories, nil
}

// GetRoots возвращает корневые категории.
func (s *CategoryService) GetRoots(ctx context.Context, opts models.CategoryOptions) ([]models.Category, error) {
	return s.List(ctx, models.CategoryFilter{RootsOnly: true, CategoryOptions: opts})
}

// Search ищет категории по подстроке (не короче двух символов).
func (s *CategoryService) Search(ctx context.Context, term string, opts models.CategoryOptions) ([]models.Category, error) {
	term, err := validation.NormalizeSearchTerm(term)
	if err != nil {
		return nil, invalid(err)
	}

	categories, err := s.repo.Search(ctx, term)
	if err != nil {
		return nil, apperror.FromStore(err)
	}
	if err := s.attach(ctx, categories, opts); err != nil {
		return nil, err
	}
	return categories, nil
}

// Update применяет частичное изменение категории.
func (s *CategoryService) Update(ctx context.Context, id uuid.UUID, patch models.CategoryPatch) (*models.Category, error) {
	if patch.IsEmpty() {
		return nil, apperror.ErrEmptyPatch
	}
	if patch.Slug != nil {
		trimmed := strings.TrimSpace(*patch.Slug)
		patch.Slug = &trimmed
	}
	patch.Name = trimOptional(patch.Name)
	if err := validation.ValidateCategoryPatch(patch); err != nil {
		return nil, invalid(err)
	}

	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, apperror.ErrCategoryNotFound
		}
		return nil, apperror.FromStore(err)
	}

	if patch.Slug != nil && *patch.Slug != category.Slug {
		if err := s.ensureSlugFree(ctx, *patch.Slug, &id); err != nil {
			return nil, err
		}
		category.Slug = *patch.Slug
	}
	if patch.Name != nil {
		category.Name = patch.Name
	}
	if patch.Description != nil {
		category.Description = patch.Description
	}
	switch {
	case patch.ClearParent:
		category.ParentID = nil
	case patch.ParentID != nil:
		if err := s.checkParent(ctx, id, *patch.ParentID); err != nil {
			return nil, err
		}
		parentID := *patch.ParentID
		category.ParentID = &parentID
	}

	if err := s.repo.Update(ctx, category); err != nil {
		switch {
		case errors.Is(err, repository.ErrCategorySlugTaken):
			return nil, slugConflict(category.Slug)
		case errors.Is(err, repository.ErrCategoryCycle):
			return nil, apperror.CircularReference("категория не может быть потомком самой себя")
		case errors.Is(err, repository.ErrCategoryParentNotFound):
			return nil, apperror.NotFound("родительская категория %s не найдена", *category.ParentID)
		case errors.Is(err, repository.ErrCategoryNotFound):
			return nil, apperror.ErrCategoryNotFound
		}
		return nil, apperror.FromStore(err)
	}

	s.cache.invalidate(ctx, cache.PrefixCategories)
	return category, nil
}

// Delete удаляет категорию и возвращает её последнее состояние.
//
// Без force категория с дочерними категориями или услугами не удаляется.
// С force дочерние категории переходят к родителю удаляемой (или становятся
// корневыми), услуги переносятся в родительскую категорию. Корневую
// категорию с услугами удалить нельзя: переносить услуги некуда.
func (s *CategoryService) Delete(ctx context.Context, id uuid.UUID, opts models.DeleteCategoryOptions) (*models.Category, error) {
	var state models.CategoryDeleteState
	deleted, err := s.repo.Delete(ctx, id, func(locked models.CategoryDeleteState) (models.CategoryDeletePlan, error) {
		state = locked
		return planCategoryDelete(locked, opts)
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrCategoryNotFound):
			return nil, apperror.ErrCategoryNotFound
		case errors.Is(err, repository.ErrCategoryInUse):
			return nil, apperror.Conflict("на категорию появились новые ссылки, повторите удаление")
		}
		return nil, apperror.FromStore(err)
	}

	s.cache.invalidate(ctx, cache.PrefixCategories, cache.PrefixServices)
	s.log.WithFields(logrus.Fields{
		"category_id":    id,
		"force":          opts.Force,
		"moved_children": state.Children,
		"moved_services": state.Services,
	}).Info("категория удалена")
	return deleted, nil
}

// planCategoryDelete решает, можно ли удалить категорию, и куда перенести
// её потомков и услуги.
func planCategoryDelete(state models.CategoryDeleteState, opts models.DeleteCategoryOptions) (models.CategoryDeletePlan, error) {
	if !opts.Force {
		if state.Children > 0 {
			return models.CategoryDeletePlan{}, apperror.Conflict("нельзя удалить категорию с дочерними категориями")
		}
		if state.Services > 0 {
			return models.CategoryDeletePlan{}, apperror.Conflict("нельзя удалить категорию с услугами (%d)", state.Services)
		}
	}

	plan := models.CategoryDeletePlan{NewParentID: state.Category.ParentID}
	if state.Services > 0 {
		if state.Category.ParentID == nil {
			return models.CategoryDeletePlan{}, apperror.Conflict("нельзя удалить корневую категорию с услугами: их некуда перенести")
		}
		plan.ServiceTargetID = state.Category.ParentID
	}
	return plan, nil
}

// GetHierarchy возвращает предков (от корня), саму категорию и дерево потомков.
func (s *CategoryService) GetHierarchy(ctx context.Context, id uuid.UUID) (*models.CategoryHierarchy, error) {
	self, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, nil
		}
		return nil, apperror.FromStore(err)
	}

	ancestors, err := s.ancestors(ctx, self)
	if err != nil {
		return nil, err
	}

	flat, err := s.repo.ListDescendants(ctx, id)
	if err != nil {
		return nil, apperror.FromStore(err)
	}

	return &models.CategoryHierarchy{
		Ancestors:   ancestors,
		Self:        *self,
		Descendants: buildTree(id, flat),
	}, nil
}

// SuggestSlug предлагает slug для названия категории.
func (s *CategoryService) SuggestSlug(name string) (string, error) {
	suggestion := slug.From(name)
	if suggestion == "" {
		return "", apperror.Validation("из названия %q нельзя получить slug", name)
	}
	return suggestion, nil
}

// checkParent проверяет, что новый родитель существует и не является
// потомком категории id. Обход идёт вверх по parent_id.
func (s *CategoryService) checkParent(ctx context.Context, id, parentID uuid.UUID) error {
	visited := make(map[uuid.UUID]struct{}, 8)
	current := &parentID

	for depth := 0; current != nil; depth++ {
		if *current == id {
			return apperror.CircularReference("категория не может быть потомком самой себя")
		}
		if _, seen := visited[*current]; seen || depth >= maxCategoryDepth {
			return apperror.CircularReference("в цепочке родителей категории обнаружен цикл")
		}
		visited[*current] = struct{}{}

		node, err := s.repo.GetByID(ctx, *current)
		if err != nil {
			if depth == 0 {
				return s.parentError(err, parentID)
			}
			if errors.Is(err, repository.ErrCategoryNotFound) {
				return nil
			}
			return apperror.FromStore(err)
		}
		current = node.ParentID
	}
	return nil
}

// ancestors возвращает цепочку предков от корня к непосредственному родителю.
func (s *CategoryService) ancestors(ctx context.Context, self *models.Category) ([]models.Category, error) {
	chain := []models.Category{}
	visited := map[uuid.UUID]struct{}{self.ID: {}}

	for current := self.ParentID; current != nil; {
		if _, seen := visited[*current]; seen || len(chain) >= maxCategoryDepth {
			s.log.WithField("category_id", self.ID).Warn("цикл в цепочке предков, обход прерван")
			break
		}
		visited[*current] = struct{}{}

		parent, err := s.repo.GetByID(ctx, *current)
		if err != nil {
			if errors.Is(err, repository.ErrCategoryNotFound) {
				break
			}
			return nil, apperror.FromStore(err)
		}
		chain = append(chain, *parent)
		current = parent.ParentID
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// attach подгружает связи для списка категорий пакетными запросами.
func (s *CategoryService) attach(ctx context.Context, categories []models.Category, opts models.CategoryOptions) error {
	if len(categories) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(categories))
	for i := range categories {
		ids[i] = categories[i].ID
	}

	if opts.IncludeChildren {
		children, err := s.repo.ListChildren(ctx, ids)
		if err != nil {
			return apperror.FromStore(err)
		}
		byParent := make(map[uuid.UUID][]models.Category)
		for _, child := range children {
			byParent[*child.ParentID] = append(byParent[*child.ParentID], child)
		}
		for i := range categories {
			categories[i].Children = byParent[categories[i].ID]
		}
	}

	if opts.IncludeParent {
		var parentIDs []uuid.UUID
		for _, c := range categories {
			if c.ParentID != nil {
				parentIDs = append(parentIDs, *c.ParentID)
			}
		}
		parents, err := s.repo.ListByIDs(ctx, parentIDs)
		if err != nil {
			return apperror.FromStore(err)
		}
		byID := make(map[uuid.UUID]models.Category, len(parents))
		for _, p := range parents {
			byID[p.ID] = p
		}
		for i := range categories {
			if categories[i].ParentID == nil {
				continue
			}
			if parent, ok := byID[*categories[i].ParentID]; ok {
				categories[i].Parent = &parent
			}
		}
	}

	if opts.IncludeServices && s.services != nil {
		services, err := s.services.ListByCategoryIDs(ctx, ids)
		if err != nil {
			return apperror.FromStore(err)
		}
		byCategory := make(map[uuid.UUID][]models.Service)
		for _, svc := range services {
			byCategory[svc.CategoryID] = append(byCategory[svc.CategoryID], svc)
		}
		for i := range categories {
			categories[i].Services = byCategory[categories[i].ID]
		}
	}
	return nil
}

func (s *CategoryService) ensureSlugFree(ctx context.Context, slugValue string, excludeID *uuid.UUID) error {
	taken, err := s.repo.ExistsBySlug(ctx, slugValue, excludeID)
	if err != nil {
		return apperror.FromStore(err)
	}
	if taken {
		return slugConflict(slugValue)
	}
	return nil
}

func (s *CategoryService) parentError(err error, parentID uuid.UUID) error {
	if errors.Is(err, repository.ErrCategoryNotFound) || errors.Is(err, repository.ErrCategoryParentNotFound) {
		return apperror.NotFound("родительская категория %s не найдена", parentID)
	}
	return apperror.FromStore(err)
}

// buildTree собирает вложенное дерево потомков rootID из плоского списка.
func buildTree(rootID uuid.UUID, flat []models.Category) []models.Category {
	byParent := make(map[uuid.UUID][]models.Category, len(flat))
	for _, c := range flat {
		if c.ParentID != nil {
			byParent[*c.ParentID] = append(byParent[*c.ParentID], c)
		}
	}

	visited := map[uuid.UUID]struct{}{rootID: {}}
	var build func(parentID uuid.UUID) []models.Category
	build = func(parentID uuid.UUID) []models.Category {
		nodes := byParent[parentID]
		if len(nodes) == 0 {
			return []models.Category{}
		}
		result := make([]models.Category, 0, len(nodes))
		for _, node := range nodes {
			if _, seen := visited[node.ID]; seen {
				continue
			}
			visited[node.ID] = struct{}{}
			node.Children = build(node.ID)
			result = append(result, node)
		}
		sort.SliceStable(result, func(i, j int) bool {
			return categorySortKey(result[i]) < categorySortKey(result[j])
		})
		return result
	}
	return build(rootID)
}

func categorySortKey(c models.Category) string {
	if c.Name != nil {
		return strings.ToLower(*c.Name) + "\x00" + c.Slug
	}
	return "\uffff" + c.Slug
}

func listCacheKey(filter models.CategoryFilter) string {
	scope := "all"
	switch {
	case filter.RootsOnly:
		scope = "roots"
	case filter.ParentID != nil:
		scope = "parent=" + filter.ParentID.String()
	}
	return cacheKey(cache.PrefixCategories+"list:", scope, filter.IncludeChildren, filter.IncludeParent)
}

func slugConflict(slugValue string) error {
	return apperror.Conflict("slug %q уже занят другой категорией", slugValue)
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	return &trimmed
}
