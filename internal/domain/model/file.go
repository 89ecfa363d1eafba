// Пакет model — доменные модели file-host.
// FileRecord — каноническое описание сохранённого файла,
// не зависящее от типа хранилища.
package model

import (
	"time"
)

// DefaultContentType — MIME-тип по умолчанию для файлов без типа.
const DefaultContentType = "application/octet-stream"

// LocationKind — способ хранения содержимого файла.
type LocationKind string

const (
	// LocationDisk — содержимое лежит файлом на локальном диске
	LocationDisk LocationKind = "disk"
	// LocationInline — содержимое закодировано и хранится вместе с записью
	LocationInline LocationKind = "inline"
)

// PayloadLocation — место хранения содержимого. Для LocationDisk
// заполнен Path, для LocationInline Path пустой: закодированные байты
// живут в самой записи хранилища.
type PayloadLocation struct {
	Kind LocationKind
	Path string
}

// FileRecord — метаданные файла.
type FileRecord struct {
	// ID — непрозрачный идентификатор, назначается сервером
	ID string `json:"id"`

	// OriginalName — имя файла от клиента (только для отображения)
	OriginalName string `json:"name"`

	// StoredName — имя хранения: ID + расширение из OriginalName
	StoredName string `json:"stored_name"`

	// Size — точный размер содержимого в байтах
	Size int64 `json:"size"`

	// ContentType — MIME-тип
	ContentType string `json:"type"`

	// UploadedAt — момент сохранения (UTC), не меняется после записи
	UploadedAt time.Time `json:"uploaded_at"`

	// ExpiresAt — срок хранения; nil — без срока.
	// Сервис срок не применяет, только хранит и отдаёт.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// Downloads — счётчик скачиваний (best effort)
	Downloads int64 `json:"downloads"`

	// Location — место хранения содержимого, в API не отдаётся
	Location PayloadLocation `json:"-"`
}

// DisplayName возвращает имя для заголовков и отображения:
// оригинальное имя, а при его отсутствии — имя хранения.
func (r *FileRecord) DisplayName() string {
	if r.OriginalName != "" {
		return r.OriginalName
	}
	return r.StoredName
}

// Stats — агрегированная статистика по набору файлов.
type Stats struct {
	Count       int64   `json:"total"`
	TotalSize   int64   `json:"totalSize"`
	AverageSize float64 `json:"averageSize"`
}

// NewStats вычисляет статистику по количеству и суммарному размеру.
func NewStats(count, totalSize int64) Stats {
	s := Stats{Count: count, TotalSize: totalSize}
	if count > 0 {
		s.AverageSize = float64(totalSize) / float64(count)
	}
	return s
}

// Pages возвращает количество страниц: ceil(total/limit).
func Pages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
