package common

import "errors"

// Базовые ошибки репозиториев. Конкретные ошибки оборачивают их,
// поэтому errors.Is(err, ErrNotFound) работает для любой сущности.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
)
