package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
)

// sniffLen - сколько байт нужно filetype для определения типа.
const sniffLen = 262

var (
	// ErrEmptyFile - загружен пустой файл.
	ErrEmptyFile = errors.New("storage: пустой файл")
	// ErrFileTooLarge - файл больше допустимого размера.
	ErrFileTooLarge = errors.New("storage: размер файла превышает лимит")
	// ErrUnsupportedType - содержимое не является разрешённым изображением.
	ErrUnsupportedType = errors.New("storage: неподдерживаемый тип файла")
)

// Разрешённые типы изображений услуг по магическим байтам.
var allowedMIME = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// ImageStorage хранит изображения услуг в локальном каталоге.
type ImageStorage struct {
	rootPath       string
	baseURL        string
	maxUploadBytes int64
}

// NewImageStorage создаёт файловое хранилище.
func NewImageStorage(rootPath, baseURL string, maxUploadMB int64) (*ImageStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}
	return &ImageStorage{
		rootPath:       rootPath,
		baseURL:        baseURL,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}, nil
}

// MaxUploadBytes возвращает лимит размера файла.
func (s *ImageStorage) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

// Save проверяет содержимое по магическим байтам и сохраняет файл
// в каталог услуги. Возвращает путь относительно корня хранилища.
func (s *ImageStorage) Save(ctx context.Context, serviceID uuid.UUID, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("storage: чтение файла: %w", err)
	}
	if len(head) == 0 {
		return "", ErrEmptyFile
	}

	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return "", ErrUnsupportedType
	}
	if _, ok := allowedMIME[kind.MIME.Value]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, kind.MIME.Value)
	}

	dir := filepath.Join(s.rootPath, serviceID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: не удалось создать каталог услуги: %w", err)
	}

	fileName := fmt.Sprintf("%d_%s.%s", time.Now().UnixNano(), uuid.NewString()[:8], kind.Extension)
	target := filepath.Join(dir, fileName)
	temp := target + ".tmp"

	f, err := os.Create(temp)
	if err != nil {
		return "", fmt.Errorf("storage: не удалось создать файл: %w", err)
	}

	written, err := io.Copy(f, &io.LimitedReader{R: br, N: s.maxUploadBytes + 1})
	closeErr := f.Close()
	switch {
	case err != nil:
		_ = os.Remove(temp)
		return "", fmt.Errorf("storage: ошибка записи файла: %w", err)
	case written > s.maxUploadBytes:
		_ = os.Remove(temp)
		return "", ErrFileTooLarge
	case closeErr != nil:
		_ = os.Remove(temp)
		return "", fmt.Errorf("storage: ошибка закрытия файла: %w", closeErr)
	}

	if err := os.Rename(temp, target); err != nil {
		_ = os.Remove(temp)
		return "", fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	return path.Join(serviceID.String(), fileName), nil
}

// URL возвращает публичную ссылку на сохранённый файл.
func (s *ImageStorage) URL(relative string) string {
	return s.baseURL + "/" + relative
}

// Delete удаляет файл из хранилища.
func (s *ImageStorage) Delete(ctx context.Context, relative string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := filepath.Join(s.rootPath, filepath.FromSlash(path.Clean("/"+relative)))
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: не удалось удалить файл: %w", err)
	}
	return nil
}
