package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
	"github.com/ignatzorin/marketplace-backend/internal/repository"
)

type mockNotificationRepo struct {
	mock.Mock
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	args := m.Called(ctx, n)
	if args.Error(0) == nil {
		n.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockNotificationRepo) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly, limit, offset)
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *mockNotificationRepo) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	return m.Called(ctx, id, userID).Error(0)
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type fakeBroadcaster struct {
	sent map[uuid.UUID][][]byte
}

func (b *fakeBroadcaster) SendToUser(userID uuid.UUID, payload []byte) {
	if b.sent == nil {
		b.sent = make(map[uuid.UUID][][]byte)
	}
	b.sent[userID] = append(b.sent[userID], payload)
}

func TestNotificationService_ReviewCreated(t *testing.T) {
	repo := new(mockNotificationRepo)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil).Twice()
	hub := &fakeBroadcaster{}
	svc := NewNotificationService(repo, hub)

	review := models.Review{ID: uuid.New(), ReviewerID: uuid.New(), RevieweeID: uuid.New(), Rating: 5}
	require.NoError(t, svc.ReviewCreated(context.Background(), review))

	require.Len(t, hub.sent[review.RevieweeID], 1)
	require.Len(t, hub.sent[review.ReviewerID], 1)

	var msg struct {
		Type string        `json:"type"`
		Data models.Review `json:"data"`
	}
	require.NoError(t, json.Unmarshal(hub.sent[review.RevieweeID][0], &msg))
	assert.Equal(t, EventReviewReceived, msg.Type)
	assert.Equal(t, review.ID, msg.Data.ID)

	require.NoError(t, json.Unmarshal(hub.sent[review.ReviewerID][0], &msg))
	assert.Equal(t, EventReviewSent, msg.Type)
	repo.AssertExpectations(t)
}

func TestNotificationService_ReviewCreated_StoreError(t *testing.T) {
	repo := new(mockNotificationRepo)
	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))
	hub := &fakeBroadcaster{}
	svc := NewNotificationService(repo, hub)

	err := svc.ReviewCreated(context.Background(), models.Review{ID: uuid.New(), ReviewerID: uuid.New(), RevieweeID: uuid.New()})
	require.Error(t, err)
	assert.Empty(t, hub.sent)
}

func TestNotificationService_MarkAsRead(t *testing.T) {
	repo := new(mockNotificationRepo)
	svc := NewNotificationService(repo, nil)
	mine, foreign, userID := uuid.New(), uuid.New(), uuid.New()
	repo.On("MarkAsRead", mock.Anything, mine, userID).Return(nil)
	repo.On("MarkAsRead", mock.Anything, foreign, userID).Return(repository.ErrNotificationNotFound)

	require.NoError(t, svc.MarkAsRead(context.Background(), mine, userID))
	assert.True(t, apperror.IsNotFound(svc.MarkAsRead(context.Background(), foreign, userID)))
}

func TestNotificationService_List(t *testing.T) {
	repo := new(mockNotificationRepo)
	svc := NewNotificationService(repo, nil)
	userID := uuid.New()
	repo.On("List", mock.Anything, userID, true, 20, 0).Return([]models.Notification{{ID: uuid.New()}}, nil)
	repo.On("CountUnread", mock.Anything, userID).Return(1, nil)

	list, err := svc.List(context.Background(), userID, 0, 0, true)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	count, err := svc.CountUnread(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
