// Пакет storage — общий контракт хранилищ файлов.
// Реализации: filestore (эфемерный диск) и docstore (PostgreSQL,
// содержимое inline в base64). Сервисы работают только через Backend
// и не различают реализации.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/bigkaa/goartstore/file-host/internal/domain/model"
)

// Ошибки хранилища. Реализации оборачивают причину через %w.
var (
	// ErrNotFound — запись с указанным id не существует
	ErrNotFound = errors.New("файл не найден")
	// ErrExists — запись с указанным id уже существует
	ErrExists = errors.New("файл уже существует")
	// ErrUnavailable — хранилище недоступно или операция ввода-вывода не удалась
	ErrUnavailable = errors.New("хранилище недоступно")
)

// PutRequest — параметры сохранения файла.
type PutRequest struct {
	// ID — проверенный идентификатор (fileid.Validate)
	ID string
	// StoredName — имя хранения (fileid.StoredName)
	StoredName string
	// OriginalName — имя от клиента, может быть пустым
	OriginalName string
	// ContentType — MIME-тип
	ContentType string
	// ExpiresAt — срок хранения, nil — без срока
	ExpiresAt *time.Time
	// Payload — содержимое файла
	Payload io.Reader
}

// ListQuery — параметры выборки списка.
type ListQuery struct {
	// Search — подстрока имени без учёта регистра; пустая — без фильтра
	Search string
	// Skip — количество пропускаемых записей
	Skip int
	// Limit — максимальное количество записей
	Limit int
}

// Backend — контракт хранилища файлов.
//
// Put атомарен: при ошибке ни содержимое, ни метаданные не видны
// последующим Get и List. Put на существующий id возвращает ErrExists.
type Backend interface {
	// Name возвращает тип хранилища (disk, document).
	Name() string
	// Put сохраняет содержимое и метаданные.
	Put(ctx context.Context, req PutRequest) (*model.FileRecord, error)
	// Get возвращает метаданные и поток содержимого.
	// Вызывающий код обязан закрыть поток.
	Get(ctx context.Context, id string) (*model.FileRecord, io.ReadCloser, error)
	// Delete удаляет файл. Повторное удаление возвращает ErrNotFound.
	Delete(ctx context.Context, id string) error
	// List возвращает страницу записей (uploadedAt по убыванию)
	// и общее количество совпадений.
	List(ctx context.Context, q ListQuery) ([]*model.FileRecord, int, error)
	// Stats возвращает статистику по всем записям, подходящим под search.
	Stats(ctx context.Context, search string) (model.Stats, error)
	// IncrementDownloads увеличивает счётчик скачиваний (best effort).
	IncrementDownloads(ctx context.Context, id string) error
	// Ping проверяет доступность хранилища.
	Ping(ctx context.Context) error
}
