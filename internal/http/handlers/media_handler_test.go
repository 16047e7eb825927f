package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
	"github.com/ignatzorin/marketplace-backend/internal/storage"
)

type fakeImageStore struct {
	saveErr error
	saved   []string
	deleted []string
}

func (s *fakeImageStore) Save(_ context.Context, serviceID uuid.UUID, r io.Reader) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	if s.saveErr != nil {
		return "", s.saveErr
	}
	rel := serviceID.String() + "/image.png"
	s.saved = append(s.saved, rel)
	return rel, nil
}

func (s *fakeImageStore) URL(relative string) string { return "/media/" + relative }

func (s *fakeImageStore) Delete(_ context.Context, relative string) error {
	s.deleted = append(s.deleted, relative)
	return nil
}

func (s *fakeImageStore) MaxUploadBytes() int64 { return 1 << 20 }

type fakeImageAdder struct {
	err  error
	urls []string
}

func (a *fakeImageAdder) AddImage(_ context.Context, id, _ uuid.UUID, url string) (*models.Service, error) {
	if a.err != nil {
		return nil, a.err
	}
	a.urls = append(a.urls, url)
	return &models.Service{ID: id, Images: []string{url}}, nil
}

func uploadRequest(t *testing.T, target string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "image.png")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func serveUpload(t *testing.T, store ImageStore, adder ServiceImageAdder, serviceID uuid.UUID) *httptest.ResponseRecorder {
	h := NewMediaHandler(store, adder)
	r := newEngine(uuid.New())
	r.POST("/services/:id/images", h.UploadServiceImage)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "/services/"+serviceID.String()+"/images", []byte("png-bytes")))
	return w
}

func TestMediaHandler_Upload(t *testing.T) {
	store := &fakeImageStore{}
	adder := &fakeImageAdder{}
	serviceID := uuid.New()

	w := serveUpload(t, store, adder, serviceID)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"/media/" + serviceID.String() + "/image.png"}, adder.urls)
	assert.Empty(t, store.deleted)
}

func TestMediaHandler_UploadRejectedByCatalog(t *testing.T) {
	store := &fakeImageStore{}
	adder := &fakeImageAdder{err: apperror.Forbidden("услуга принадлежит другому исполнителю")}

	w := serveUpload(t, store, adder, uuid.New())

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, store.saved, store.deleted)
}

func TestMediaHandler_UploadUnsupportedType(t *testing.T) {
	store := &fakeImageStore{saveErr: storage.ErrUnsupportedType}

	w := serveUpload(t, store, &fakeImageAdder{}, uuid.New())

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMediaHandler_UploadWithoutFile(t *testing.T) {
	h := NewMediaHandler(&fakeImageStore{}, &fakeImageAdder{})
	r := newEngine(uuid.New())
	r.POST("/services/:id/images", h.UploadServiceImage)

	w := doRequest(r, http.MethodPost, "/services/"+uuid.NewString()+"/images", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStorageError(t *testing.T) {
	assert.True(t, apperror.IsValidation(storageError(storage.ErrEmptyFile)))
	assert.True(t, apperror.IsValidation(storageError(storage.ErrFileTooLarge)))
	assert.Equal(t, apperror.ErrCodeInternal, apperror.CodeOf(storageError(errors.New("disk full"))))
}
