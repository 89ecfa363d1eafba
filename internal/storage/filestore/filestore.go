// Пакет filestore — эфемерное хранилище файлов на локальном диске.
//
// Содержимое пишется как есть в файл {id}{.ext} в общей директории.
// Отдельного хранилища метаданных нет: имя, размер, время и тип
// восстанавливаются из атрибутов файловой системы, поэтому downloads
// и expires_at не сохраняются и отдаются значениями по умолчанию.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bigkaa/goartstore/file-host/internal/domain/fileid"
	"github.com/bigkaa/goartstore/file-host/internal/domain/model"
	"github.com/bigkaa/goartstore/file-host/internal/storage"
)

// BackendName — тип хранилища в status и логах.
const BackendName = "disk"

// tmpPattern — шаблон временных файлов; точка в начале скрывает их
// из листинга.
const tmpPattern = ".upload-*.tmp"

// FileStore — хранилище файлов на диске.
type FileStore struct {
	// dataDir — корневая директория хранения (FH_DATA_DIR)
	dataDir string
}

var _ storage.Backend = (*FileStore)(nil)

// New создаёт FileStore. Создаёт директорию, если её нет.
func New(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}
	return &FileStore{dataDir: dataDir}, nil
}

// Name возвращает тип хранилища.
func (fs *FileStore) Name() string { return BackendName }

// DataDir возвращает путь к директории данных.
func (fs *FileStore) DataDir() string { return fs.dataDir }

// Put сохраняет содержимое на диск.
//
// Паттерн: temp файл → запись → fsync → link под именем хранения.
// При ошибке temp файл удаляется, читатели его не видят. Возвращаемая
// запись содержит имя и тип из запроса; Get и List их уже не знают.
func (fs *FileStore) Put(ctx context.Context, req storage.PutRequest) (*model.FileRecord, error) {
	if !fileid.Validate(req.ID) || !fileid.Validate(req.StoredName) {
		return nil, fmt.Errorf("некорректный идентификатор %q", req.ID)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := fs.locate(req.ID); err == nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrExists, req.ID)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	fullPath := filepath.Join(fs.dataDir, req.StoredName)

	f, err := os.CreateTemp(fs.dataDir, tmpPattern)
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка создания временного файла: %w", storage.ErrUnavailable, err)
	}
	tmpPath := f.Name()

	if _, err := io.Copy(f, req.Payload); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("%w: ошибка записи данных: %w", storage.ErrUnavailable, err)
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("%w: ошибка fsync: %w", storage.ErrUnavailable, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("%w: ошибка закрытия файла: %w", storage.ErrUnavailable, err)
	}

	if err := commit(tmpPath, fullPath); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", storage.ErrExists, req.ID)
		}
		return nil, fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка получения информации о файле %s: %w", storage.ErrUnavailable, req.StoredName, err)
	}

	// Имя и тип от клиента известны только в момент загрузки
	rec := fs.record(info)
	if req.OriginalName != "" {
		rec.OriginalName = req.OriginalName
	}
	if req.ContentType != "" {
		rec.ContentType = req.ContentType
	}
	return rec, nil
}

// commit публикует временный файл под именем хранения. В отличие от
// rename, link не заменяет существующий файл: занятое имя — os.ErrExist.
// Временный файл удаляется в любом случае.
func commit(tmpPath, fullPath string) error {
	defer os.Remove(tmpPath)

	if err := os.Link(tmpPath, fullPath); err != nil {
		if errors.Is(err, os.ErrExist) {
			return err
		}
		return fmt.Errorf("ошибка публикации файла: %w", err)
	}
	return nil
}

// Get открывает файл для чтения. Возвращаемый поток — *os.File,
// поддерживает Seek для Range-запросов.
func (fs *FileStore) Get(ctx context.Context, id string) (*model.FileRecord, io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	name, err := fs.locate(id)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(filepath.Join(fs.dataDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
		}
		return nil, nil, fmt.Errorf("%w: ошибка открытия файла %s: %w", storage.ErrUnavailable, name, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("%w: ошибка получения информации о файле %s: %w", storage.ErrUnavailable, name, err)
	}
	return fs.record(info), f, nil
}

// Delete удаляет файл с диска.
func (fs *FileStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := fs.locate(id)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(fs.dataDir, name)); err != nil {
		if os.IsNotExist(err) {
			// Параллельное удаление успело раньше
			return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
		}
		return fmt.Errorf("%w: ошибка удаления файла %s: %w", storage.ErrUnavailable, name, err)
	}
	return nil
}

// List возвращает страницу файлов, отсортированных по времени
// изменения (новые первыми), и общее количество совпадений.
func (fs *FileStore) List(ctx context.Context, q storage.ListQuery) ([]*model.FileRecord, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	infos, err := fs.scan(q.Search)
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(infos, func(i, j int) bool {
		ti, tj := infos[i].ModTime(), infos[j].ModTime()
		if ti.Equal(tj) {
			return infos[i].Name() < infos[j].Name()
		}
		return ti.After(tj)
	})

	total := len(infos)
	records := []*model.FileRecord{}
	for i := q.Skip; i < total && len(records) < q.Limit; i++ {
		records = append(records, fs.record(infos[i]))
	}
	return records, total, nil
}

// Stats возвращает количество и суммарный размер подходящих файлов.
func (fs *FileStore) Stats(ctx context.Context, search string) (model.Stats, error) {
	if err := ctx.Err(); err != nil {
		return model.Stats{}, err
	}
	infos, err := fs.scan(search)
	if err != nil {
		return model.Stats{}, err
	}

	var total int64
	for _, info := range infos {
		total += info.Size()
	}
	return model.NewStats(int64(len(infos)), total), nil
}

// IncrementDownloads — счётчик скачиваний на диске не хранится.
func (fs *FileStore) IncrementDownloads(_ context.Context, _ string) error {
	return nil
}

// Ping проверяет, что директория данных существует.
func (fs *FileStore) Ping(_ context.Context) error {
	info, err := os.Stat(fs.dataDir)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s не является директорией", storage.ErrUnavailable, fs.dataDir)
	}
	return nil
}

// locate находит имя хранения по идентификатору: {id} или {id}.{ext}.
func (fs *FileStore) locate(id string) (string, error) {
	if !fileid.Validate(id) {
		return "", fmt.Errorf("некорректный идентификатор %q", id)
	}

	entries, err := os.ReadDir(fs.dataDir)
	if err != nil {
		return "", fmt.Errorf("%w: ошибка чтения директории %s: %w", storage.ErrUnavailable, fs.dataDir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if name == id || (strings.HasPrefix(name, id+".") && fileid.FromStoredName(name) == id) {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %s", storage.ErrNotFound, id)
}

// scan возвращает атрибуты сохранённых файлов, имя которых содержит
// search без учёта регистра. Скрытые и временные файлы пропускаются.
func (fs *FileStore) scan(search string) ([]os.FileInfo, error) {
	entries, err := os.ReadDir(fs.dataDir)
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка чтения директории %s: %w", storage.ErrUnavailable, fs.dataDir, err)
	}

	search = strings.ToLower(search)
	infos := make([]os.FileInfo, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if !fileid.Validate(fileid.FromStoredName(name)) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(name), search) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Файл удалён между ReadDir и Stat
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// record восстанавливает FileRecord из атрибутов файла.
func (fs *FileStore) record(info os.FileInfo) *model.FileRecord {
	name := info.Name()
	return &model.FileRecord{
		ID:           fileid.FromStoredName(name),
		OriginalName: name,
		StoredName:   name,
		Size:         info.Size(),
		ContentType:  contentTypeByName(name),
		UploadedAt:   info.ModTime().UTC(),
		Location: model.PayloadLocation{
			Kind: model.LocationDisk,
			Path: filepath.Join(fs.dataDir, name),
		},
	}
}

// contentTypeByName определяет MIME-тип по расширению имени хранения.
func contentTypeByName(name string) string {
	if ext := fileid.Extension(name); ext != "" {
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
	}
	return model.DefaultContentType
}
