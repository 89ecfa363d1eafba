// Пакет docstore — постоянное хранилище файлов в PostgreSQL.
//
// Каждый файл — одна запись таблицы files: все поля FileRecord плюс
// содержимое в base64. Запись создаётся одним INSERT, поэтому
// метаданные без содержимого (и наоборот) не бывают видны читателям.
// Содержимое целиком буферизуется в памяти при записи и чтении.
package docstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigkaa/goartstore/file-host/internal/domain/model"
	"github.com/bigkaa/goartstore/file-host/internal/storage"
)

// BackendName — тип хранилища в status и логах.
const BackendName = "document"

// fileColumns — столбцы таблицы files для SELECT без содержимого.
const fileColumns = `id, original_name, stored_name, size, content_type,
	uploaded_at, expires_at, downloads`

// Connector — источник пула подключений (database.Provider).
type Connector interface {
	Acquire(ctx context.Context) (*pgxpool.Pool, error)
}

// DocStore — хранилище файлов в PostgreSQL.
type DocStore struct {
	conn Connector
}

var _ storage.Backend = (*DocStore)(nil)

// New создаёт DocStore. Подключение к базе не выполняется до
// первой операции.
func New(conn Connector) *DocStore {
	return &DocStore{conn: conn}
}

// Name возвращает тип хранилища.
func (d *DocStore) Name() string { return BackendName }

// Put сохраняет метаданные и содержимое одной записью.
func (d *DocStore) Put(ctx context.Context, req storage.PutRequest) (*model.FileRecord, error) {
	data, err := io.ReadAll(req.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка чтения содержимого: %w", storage.ErrUnavailable, err)
	}

	pool, err := d.conn.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = model.DefaultContentType
	}

	rec := &model.FileRecord{
		ID:           req.ID,
		OriginalName: req.OriginalName,
		StoredName:   req.StoredName,
		Size:         int64(len(data)),
		ContentType:  contentType,
		ExpiresAt:    req.ExpiresAt,
		Location:     model.PayloadLocation{Kind: model.LocationInline},
	}

	query := `
		INSERT INTO files (id, original_name, stored_name, size, content_type, expires_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING uploaded_at, downloads`

	err = pool.QueryRow(ctx, query,
		rec.ID, rec.OriginalName, rec.StoredName, rec.Size, rec.ContentType, rec.ExpiresAt,
		base64.StdEncoding.EncodeToString(data),
	).Scan(&rec.UploadedAt, &rec.Downloads)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrExists, req.ID)
		}
		return nil, fmt.Errorf("%w: ошибка создания записи: %w", storage.ErrUnavailable, err)
	}
	rec.UploadedAt = rec.UploadedAt.UTC()
	return rec, nil
}

// Get возвращает метаданные и декодированное содержимое.
// Поток поддерживает Seek.
func (d *DocStore) Get(ctx context.Context, id string) (*model.FileRecord, io.ReadCloser, error) {
	pool, err := d.conn.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}

	query := fmt.Sprintf(`SELECT %s, payload FROM files WHERE id = $1`, fileColumns)

	var encoded string
	rec := &model.FileRecord{}
	err = pool.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.OriginalName, &rec.StoredName, &rec.Size, &rec.ContentType,
		&rec.UploadedAt, &rec.ExpiresAt, &rec.Downloads, &encoded,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
		}
		return nil, nil, fmt.Errorf("%w: ошибка получения файла: %w", storage.ErrUnavailable, err)
	}
	normalize(rec)

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: повреждённое содержимое файла %s: %w", storage.ErrUnavailable, id, err)
	}
	return rec, readSeekNopCloser{bytes.NewReader(data)}, nil
}

// Delete удаляет запись.
func (d *DocStore) Delete(ctx context.Context, id string) error {
	pool, err := d.conn.Acquire(ctx)
	if err != nil {
		return err
	}

	tag, err := pool.Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: ошибка удаления файла: %w", storage.ErrUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return nil
}

// List возвращает страницу записей (новые первыми) и общее количество
// совпадений. Поиск — подстрока original_name без учёта регистра.
func (d *DocStore) List(ctx context.Context, q storage.ListQuery) ([]*model.FileRecord, int, error) {
	pool, err := d.conn.Acquire(ctx)
	if err != nil {
		return nil, 0, err
	}

	where, args := buildSearchWhere(q.Search)
	argNum := len(args) + 1

	dataQuery := fmt.Sprintf(
		`SELECT %s FROM files %s ORDER BY uploaded_at DESC, id LIMIT $%d OFFSET $%d`,
		fileColumns, where, argNum, argNum+1,
	)
	rows, err := pool.Query(ctx, dataQuery, append(args, q.Limit, q.Skip)...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: ошибка выборки файлов: %w", storage.ErrUnavailable, err)
	}
	defer rows.Close()

	result := []*model.FileRecord{}
	for rows.Next() {
		rec := &model.FileRecord{}
		if err := rows.Scan(
			&rec.ID, &rec.OriginalName, &rec.StoredName, &rec.Size, &rec.ContentType,
			&rec.UploadedAt, &rec.ExpiresAt, &rec.Downloads,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: ошибка сканирования файла: %w", storage.ErrUnavailable, err)
		}
		normalize(rec)
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: ошибка итерации результатов: %w", storage.ErrUnavailable, err)
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM files %s`, where)
	if err := pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: ошибка подсчёта файлов: %w", storage.ErrUnavailable, err)
	}

	return result, total, nil
}

// Stats возвращает статистику по всем записям, подходящим под search.
func (d *DocStore) Stats(ctx context.Context, search string) (model.Stats, error) {
	pool, err := d.conn.Acquire(ctx)
	if err != nil {
		return model.Stats{}, err
	}

	where, args := buildSearchWhere(search)
	query := fmt.Sprintf(`SELECT COUNT(*), COALESCE(SUM(size), 0) FROM files %s`, where)

	var count, totalSize int64
	if err := pool.QueryRow(ctx, query, args...).Scan(&count, &totalSize); err != nil {
		return model.Stats{}, fmt.Errorf("%w: ошибка агрегации: %w", storage.ErrUnavailable, err)
	}
	return model.NewStats(count, totalSize), nil
}

// IncrementDownloads увеличивает счётчик скачиваний.
func (d *DocStore) IncrementDownloads(ctx context.Context, id string) error {
	pool, err := d.conn.Acquire(ctx)
	if err != nil {
		return err
	}

	tag, err := pool.Exec(ctx, `UPDATE files SET downloads = downloads + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: ошибка обновления счётчика: %w", storage.ErrUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return nil
}

// Ping проверяет подключение к PostgreSQL.
func (d *DocStore) Ping(ctx context.Context) error {
	pool, err := d.conn.Acquire(ctx)
	if err != nil {
		return err
	}
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}
	return nil
}

// buildSearchWhere строит WHERE-условие поиска по подстроке имени.
func buildSearchWhere(search string) (string, []any) {
	if search == "" {
		return "", nil
	}
	return `WHERE original_name ILIKE $1 ESCAPE '\'`, []any{"%" + escapeLike(search) + "%"}
}

// escapeLike экранирует спецсимволы шаблона LIKE.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// normalize приводит время записи к UTC.
func normalize(rec *model.FileRecord) {
	rec.UploadedAt = rec.UploadedAt.UTC()
	if rec.ExpiresAt != nil {
		t := rec.ExpiresAt.UTC()
		rec.ExpiresAt = &t
	}
	rec.Location = model.PayloadLocation{Kind: model.LocationInline}
}

// isUniqueViolation проверяет, является ли ошибка нарушением уникальности PostgreSQL.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// readSeekNopCloser — содержимое в памяти как io.ReadSeekCloser.
type readSeekNopCloser struct {
	*bytes.Reader
}

func (readSeekNopCloser) Close() error { return nil }
