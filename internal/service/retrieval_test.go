package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
)

func TestDownload_RoundTrip(t *testing.T) {
	f := newFixture(t, 1024)
	data := []byte("0123456789")
	rec := f.upload(t, "report.pdf", data)

	got, rc, err := f.retrieval.Download(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ошибка чтения содержимого: %v", err)
	}
	if !bytes.Equal(content, data) {
		t.Errorf("содержимое %q, ожидалось %q", content, data)
	}
	if got.Size != int64(len(data)) {
		t.Errorf("size = %d, ожидалось %d", got.Size, len(data))
	}
	// Дисковое хранилище не хранит исходное имя
	if got.DisplayName() != rec.StoredName {
		t.Errorf("имя = %q, ожидалось %q", got.DisplayName(), rec.StoredName)
	}
}

func TestDownload_InvalidID(t *testing.T) {
	f := newFixture(t, 1024)
	for _, id := range []string{"", "../etc/passwd", "a/b", "..", "a\\b"} {
		if _, _, err := f.retrieval.Download(context.Background(), id); !errors.Is(err, ErrInvalidID) {
			t.Errorf("Download(%q): ожидалась ErrInvalidID, получено %v", id, err)
		}
	}
}

func TestDownload_NotFound(t *testing.T) {
	f := newFixture(t, 1024)
	_, _, err := f.retrieval.Download(context.Background(), "0f8fad5b-d9cb-469f-a165-70867728950e")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидалась ErrNotFound, получено %v", err)
	}
}

// TestRemove_Twice проверяет, что повторное удаление возвращает ErrNotFound.
func TestRemove_Twice(t *testing.T) {
	f := newFixture(t, 1024)
	rec := f.upload(t, "a.txt", []byte("x"))

	if err := f.retrieval.Remove(context.Background(), rec.ID); err != nil {
		t.Fatalf("первое удаление: %v", err)
	}
	if err := f.retrieval.Remove(context.Background(), rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("второе удаление: ожидалась ErrNotFound, получено %v", err)
	}
	if _, _, err := f.retrieval.Download(context.Background(), rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("после удаления: ожидалась ErrNotFound, получено %v", err)
	}
	if err := f.retrieval.Remove(context.Background(), "../x"); !errors.Is(err, ErrInvalidID) {
		t.Errorf("ожидалась ErrInvalidID, получено %v", err)
	}
}

func TestList_Pagination(t *testing.T) {
	f := newFixture(t, 1024)
	for i := 0; i < 5; i++ {
		f.upload(t, "f.txt", []byte("abc"))
	}

	tests := []struct {
		name      string
		page      int
		limit     int
		wantFiles int
		wantPages int
	}{
		{"первая страница", 1, 2, 2, 3},
		{"последняя страница", 3, 2, 1, 3},
		{"за пределами страниц", 4, 2, 0, 3},
		{"всё на одной странице", 1, 10, 5, 1},
		{"по одному", 5, 1, 1, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.retrieval.List(context.Background(), ListParams{Page: tt.page, Limit: tt.limit})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(res.Files) != tt.wantFiles {
				t.Errorf("файлов %d, ожидалось %d", len(res.Files), tt.wantFiles)
			}
			if len(res.Files) > tt.limit {
				t.Errorf("файлов больше limit: %d > %d", len(res.Files), tt.limit)
			}
			if res.Total != 5 || res.Pages != tt.wantPages {
				t.Errorf("total=%d pages=%d, ожидалось total=5 pages=%d", res.Total, res.Pages, tt.wantPages)
			}
			if res.Files == nil {
				t.Error("список файлов не должен быть nil")
			}
		})
	}
}

func TestList_InvalidParams(t *testing.T) {
	f := newFixture(t, 1024)

	tests := []ListParams{
		{Page: 0, Limit: 10},
		{Page: -1, Limit: 10},
		{Page: 1, Limit: 0},
		{Page: 1, Limit: 101},
		{Page: 1 << 30, Limit: 100},
	}
	for _, p := range tests {
		if _, err := f.retrieval.List(context.Background(), p); !errors.Is(err, ErrValidation) {
			t.Errorf("List(%+v): ожидалась ErrValidation, получено %v", p, err)
		}
	}
}

// TestList_SearchAndStats проверяет, что статистика считается
// только по записям, подходящим под поиск.
func TestList_SearchAndStats(t *testing.T) {
	f := newFixture(t, 1024)
	f.upload(t, "a.pdf", []byte("abc"))
	f.upload(t, "b.pdf", []byte("abcde"))
	f.upload(t, "c.png", []byte("z"))

	res, err := f.retrieval.List(context.Background(), ListParams{Page: 1, Limit: 10, Search: "PDF"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.Total != 2 || len(res.Files) != 2 {
		t.Fatalf("total=%d files=%d, ожидалось 2", res.Total, len(res.Files))
	}
	for _, rec := range res.Files {
		if !strings.HasSuffix(rec.StoredName, ".pdf") {
			t.Errorf("в результат попал %q", rec.StoredName)
		}
	}
	if res.Stats.Count != 2 || res.Stats.TotalSize != 8 || res.Stats.AverageSize != 4 {
		t.Errorf("stats = %+v, ожидалось {2 8 4}", res.Stats)
	}

	all, err := f.retrieval.List(context.Background(), ListParams{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if all.Stats.Count != 3 || all.Stats.TotalSize != 9 {
		t.Errorf("stats без поиска = %+v, ожидалось 3 файла и 9 байт", all.Stats)
	}
}

// TestList_StatsInvalidatedOnChange проверяет сброс кэша статистики
// после загрузки и удаления.
func TestList_StatsInvalidatedOnChange(t *testing.T) {
	f := newFixture(t, 1024)
	ctx := context.Background()
	f.upload(t, "a.txt", []byte("abc"))

	res, err := f.retrieval.List(ctx, ListParams{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.Stats.Count != 1 {
		t.Fatalf("count = %d, ожидалось 1", res.Stats.Count)
	}
	if f.cache.Len() != 1 {
		t.Fatalf("кэш должен содержать одну запись, содержит %d", f.cache.Len())
	}

	rec := f.upload(t, "b.txt", []byte("defg"))
	if f.cache.Len() != 0 {
		t.Errorf("кэш должен быть сброшен после загрузки")
	}
	res, _ = f.retrieval.List(ctx, ListParams{Page: 1, Limit: 10})
	if res.Stats.Count != 2 || res.Stats.TotalSize != 7 {
		t.Errorf("stats = %+v, ожидалось 2 файла и 7 байт", res.Stats)
	}

	if err := f.retrieval.Remove(ctx, rec.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	res, _ = f.retrieval.List(ctx, ListParams{Page: 1, Limit: 10})
	if res.Stats.Count != 1 {
		t.Errorf("count после удаления = %d, ожидалось 1", res.Stats.Count)
	}
}

func TestList_StorageFailure(t *testing.T) {
	f := newFixture(t, 1024)
	f.backend.listErr = errors.New("disk gone")

	_, err := f.retrieval.List(context.Background(), ListParams{Page: 1, Limit: 10})
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("ожидалась ErrStorageUnavailable, получено %v", err)
	}
}

func TestStatus(t *testing.T) {
	f := newFixture(t, 1024)
	f.upload(t, "a.txt", []byte("abc"))

	report := f.retrieval.Status(context.Background())
	if !report.StorageOK || report.Backend != "disk" {
		t.Fatalf("report = %+v, ожидалось рабочее disk-хранилище", report)
	}
	if report.Stats.Count != 1 || report.Stats.TotalSize != 3 {
		t.Errorf("stats = %+v", report.Stats)
	}
	if err := f.retrieval.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}

	if err := os.RemoveAll(f.backend.DataDir()); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	report = f.retrieval.Status(context.Background())
	if report.StorageOK || report.StorageError == "" {
		t.Errorf("report = %+v, ожидалось недоступное хранилище", report)
	}
	if err := f.retrieval.Ping(context.Background()); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("Ping: ожидалась ErrStorageUnavailable, получено %v", err)
	}
}
