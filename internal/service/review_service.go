package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/marketplace-backend/internal/cache"
	"github.com/ignatzorin/marketplace-backend/internal/goroutine"
	"github.com/ignatzorin/marketplace-backend/internal/logger"
	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/pagination"
	"github.com/ignatzorin/marketplace-backend/internal/repository"
	"github.com/ignatzorin/marketplace-backend/internal/validation"
)

const defaultNotifyTimeout = 5 * time.Second

// ReviewRepository описывает хранилище отзывов.
type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	Update(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	GetByPair(ctx context.Context, reviewerID, revieweeID uuid.UUID) (*models.Review, error)
	ListByReviewer(ctx context.Context, reviewerID uuid.UUID, limit, offset int) ([]models.Review, int, error)
	ListByReviewee(ctx context.Context, revieweeID uuid.UUID, limit, offset int) ([]models.Review, int, error)
	RatingDistribution(ctx context.Context, targetID uuid.UUID) (map[int]int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ServiceLookup - чтение услуги по ID.
type ServiceLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Service, error)
}

// ReviewNotifier получает событие о новом отзыве. Вызывается после записи,
// ошибки не влияют на результат Submit.
type ReviewNotifier interface {
	ReviewCreated(ctx context.Context, review models.Review) error
}

// ReviewService принимает отзывы и считает по ним рейтинг.
type ReviewService struct {
	repo          ReviewRepository
	users         UserLookup
	services      ServiceLookup
	notifier      ReviewNotifier
	notifyTimeout time.Duration
	cache         readCache
	log           *logrus.Entry
}

// NewReviewService создаёт сервис отзывов. notifier и store могут быть nil.
func NewReviewService(repo ReviewRepository, users UserLookup, services ServiceLookup, notifier ReviewNotifier, store cache.Cache, cacheTTL, notifyTimeout time.Duration) *ReviewService {
	if notifyTimeout <= 0 {
		notifyTimeout = defaultNotifyTimeout
	}
	log := logger.WithComponent("review_service")
	return &ReviewService{
		repo:          repo,
		users:         users,
		services:      services,
		notifier:      notifier,
		notifyTimeout: notifyTimeout,
		cache:         newReadCache(store, cacheTTL, log),
		log:           log,
	}
}

// Submit создаёт отзыв или обновляет существующий отзыв той же пары
// (reviewer, reviewee). На пару хранится не более одного отзыва.
func (s *ReviewService) Submit(ctx context.Context, in models.SubmitReviewInput) (*models.ReviewResult, error) {
	if err := validation.ValidateReview(in); err != nil {
		return nil, invalid(err)
	}
	if in.ReviewerID == in.RevieweeID {
		return nil, apperror.Validation("нельзя оставить отзыв самому себе")
	}

	if _, err := s.users.GetByID(ctx, in.RevieweeID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.NotFound("пользователь %s не найден", in.RevieweeID)
		}
		return nil, apperror.FromStore(err)
	}

	if in.ServiceID != nil {
		service, err := s.services.GetByID(ctx, *in.ServiceID)
		if err != nil {
			if errors.Is(err, repository.ErrServiceNotFound) {
				return nil, apperror.NotFound("услуга %s не найдена", *in.ServiceID)
			}
			return nil, apperror.FromStore(err)
		}
		if service.ProviderID != in.RevieweeID {
			return nil, apperror.Validation("услуга %s не принадлежит получателю отзыва", service.ID)
		}
	}

	existing, err := s.repo.GetByPair(ctx, in.ReviewerID, in.RevieweeID)
	if err != nil {
		return nil, apperror.FromStore(err)
	}
	if existing != nil {
		return s.overwrite(ctx, existing, in)
	}

	review := &models.Review{
		ReviewerID: in.ReviewerID,
		RevieweeID: in.RevieweeID,
		ServiceID:  in.ServiceID,
		Rating:     in.Rating,
		Comment:    in.Comment,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		if !errors.Is(err, repository.ErrReviewExists) {
			return nil, apperror.FromStore(err)
		}
		// Параллельный submit той же пары успел создать запись.
		existing, err := s.repo.GetByPair(ctx, in.ReviewerID, in.RevieweeID)
		if err != nil {
			return nil, apperror.FromStore(err)
		}
		if existing == nil {
			return nil, apperror.Internal(err)
		}
		return s.overwrite(ctx, existing, in)
	}

	s.invalidateStats(ctx, review.RevieweeID, review.ServiceID)
	s.notifyCreated(*review)
	return &models.ReviewResult{Review: review, IsUpdate: false}, nil
}

func (s *ReviewService) overwrite(ctx context.Context, review *models.Review, in models.SubmitReviewInput) (*models.ReviewResult, error) {
	previousService := review.ServiceID

	review.Rating = in.Rating
	review.Comment = in.Comment
	if in.ServiceID != nil {
		review.ServiceID = in.ServiceID
	}
	if err := s.repo.Update(ctx, review); err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, apperror.ErrReviewNotFound
		}
		return nil, apperror.FromStore(err)
	}

	s.invalidateStats(ctx, review.RevieweeID, review.ServiceID, previousService)
	return &models.ReviewResult{Review: review, IsUpdate: true}, nil
}

// StatsFor считает количество, среднее и распределение оценок для
// пользователя или услуги. В распределении всегда есть ключи 1..5.
func (s *ReviewService) StatsFor(ctx context.Context, targetID uuid.UUID) (*models.ReviewStats, error) {
	key := cache.PrefixStats + targetID.String()
	var cached models.ReviewStats
	if s.cache.get(ctx, key, &cached) {
		return &cached, nil
	}

	distribution, err := s.repo.RatingDistribution(ctx, targetID)
	if err != nil {
		return nil, apperror.FromStore(err)
	}

	stats := computeStats(distribution)
	s.cache.set(ctx, key, stats)
	return stats, nil
}

// computeStats: среднее - точное среднее оценок, округлённое до одного знака.
func computeStats(distribution map[int]int) *models.ReviewStats {
	stats := &models.ReviewStats{Distribution: make(map[int]int, models.MaxRating)}

	var sum int
	for rating := models.MinRating; rating <= models.MaxRating; rating++ {
		count := distribution[rating]
		stats.Distribution[rating] = count
		stats.Count += count
		sum += rating * count
	}

	if stats.Count > 0 {
		stats.Average = math.Round(float64(sum)/float64(stats.Count)*10) / 10
	}
	return stats
}

// ListGiven возвращает отзывы, оставленные пользователем.
func (s *ReviewService) ListGiven(ctx context.Context, userID uuid.UUID, page, limit int) (*models.ReviewPage, error) {
	params := pagination.New(page, limit)
	reviews, total, err := s.repo.ListByReviewer(ctx, userID, params.Limit, params.Offset())
	if err != nil {
		return nil, apperror.FromStore(err)
	}
	return &models.ReviewPage{Reviews: reviews, Meta: pagination.NewMeta(params, total)}, nil
}

// ListReceived возвращает отзывы о пользователе.
func (s *ReviewService) ListReceived(ctx context.Context, userID uuid.UUID, page, limit int) (*models.ReviewPage, error) {
	params := pagination.New(page, limit)
	reviews, total, err := s.repo.ListByReviewee(ctx, userID, params.Limit, params.Offset())
	if err != nil {
		return nil, apperror.FromStore(err)
	}
	return &models.ReviewPage{Reviews: reviews, Meta: pagination.NewMeta(params, total)}, nil
}

// GetByID возвращает отзыв или NotFoundError.
func (s *ReviewService) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, apperror.ErrReviewNotFound
		}
		return nil, apperror.FromStore(err)
	}
	return review, nil
}

// Delete удаляет отзыв. Удалить можно только свой отзыв.
func (s *ReviewService) Delete(ctx context.Context, reviewID, requesterID uuid.UUID) error {
	review, err := s.GetByID(ctx, reviewID)
	if err != nil {
		return err
	}
	if review.ReviewerID != requesterID {
		return apperror.Forbidden("удалить отзыв может только его автор")
	}

	if err := s.repo.Delete(ctx, reviewID); err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return apperror.ErrReviewNotFound
		}
		return apperror.FromStore(err)
	}

	s.invalidateStats(ctx, review.RevieweeID, review.ServiceID)
	return nil
}

// notifyCreated отправляет событие в фоне с собственным таймаутом.
func (s *ReviewService) notifyCreated(review models.Review) {
	if s.notifier == nil {
		return
	}
	goroutine.SafeGoWithTimeout(s.notifyTimeout, func(ctx context.Context) {
		if err := s.notifier.ReviewCreated(ctx, review); err != nil {
			s.log.WithError(err).WithField("review_id", review.ID).Warn("не удалось отправить уведомление о новом отзыве")
		}
	})
}

func (s *ReviewService) invalidateStats(ctx context.Context, revieweeID uuid.UUID, serviceIDs ...*uuid.UUID) {
	keys := []string{cache.PrefixStats + revieweeID.String()}
	for _, id := range serviceIDs {
		if id != nil {
			keys = append(keys, cache.PrefixStats+id.String())
		}
	}
	s.cache.invalidate(ctx, keys...)
}
