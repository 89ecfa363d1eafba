// Пакет service — бизнес-логика file-host: приём загрузок, выдача,
// листинг и удаление файлов поверх storage.Backend.
package service

import (
	"errors"
	"fmt"

	"github.com/bigkaa/goartstore/file-host/internal/storage"
)

// Ошибки сервисного слоя. HTTP-слой сопоставляет их со статусами
// через errors.Is.
var (
	// ErrInvalidID — идентификатор не прошёл fileid.Validate (400)
	ErrInvalidID = errors.New("некорректный идентификатор файла")
	// ErrNoFile — в multipart-форме нет части file (400)
	ErrNoFile = errors.New("файл не загружен")
	// ErrFileTooLarge — содержимое превышает FH_MAX_FILE_SIZE (413)
	ErrFileTooLarge = errors.New("файл превышает допустимый размер")
	// ErrValidation — некорректные параметры или тело запроса (400)
	ErrValidation = errors.New("некорректный запрос")
	// ErrNotFound — файл не найден (404)
	ErrNotFound = errors.New("файл не найден")
	// ErrStorageUnavailable — хранилище недоступно (500)
	ErrStorageUnavailable = errors.New("хранилище недоступно")
)

// mapStorageError переводит ошибки хранилища в ошибки сервиса,
// сохраняя исходную причину в цепочке.
func mapStorageError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	default:
		// ErrExists при свежем UUID — сбой хранилища, а не ошибка клиента
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
}
