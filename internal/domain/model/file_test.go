package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPages(t *testing.T) {
	tests := []struct {
		total, limit, want int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 5, 5},
		{7, 1, 7},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := Pages(tt.total, tt.limit); got != tt.want {
			t.Errorf("Pages(%d, %d) = %d, ожидалось %d", tt.total, tt.limit, got, tt.want)
		}
	}
}

func TestNewStats(t *testing.T) {
	s := NewStats(4, 10)
	if s.Count != 4 || s.TotalSize != 10 || s.AverageSize != 2.5 {
		t.Errorf("неверная статистика: %+v", s)
	}

	empty := NewStats(0, 0)
	if empty.AverageSize != 0 {
		t.Errorf("для пустого набора средний размер должен быть 0, получено %v", empty.AverageSize)
	}
}

func TestDisplayName(t *testing.T) {
	r := &FileRecord{StoredName: "abc.pdf"}
	if r.DisplayName() != "abc.pdf" {
		t.Errorf("без оригинального имени ожидалось имя хранения, получено %q", r.DisplayName())
	}
	r.OriginalName = "report.pdf"
	if r.DisplayName() != "report.pdf" {
		t.Errorf("ожидалось оригинальное имя, получено %q", r.DisplayName())
	}
}

// TestFileRecord_LocationNotSerialized проверяет, что место хранения не попадает в JSON.
func TestFileRecord_LocationNotSerialized(t *testing.T) {
	r := FileRecord{
		ID:       "id-1",
		Location: PayloadLocation{Kind: LocationDisk, Path: "/tmp/file-host/id-1"},
	}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("ошибка сериализации: %v", err)
	}
	if strings.Contains(string(data), "/tmp/file-host") {
		t.Errorf("путь хранения не должен сериализоваться: %s", data)
	}
	if strings.Contains(string(data), "expires_at") {
		t.Errorf("пустой expires_at не должен сериализоваться: %s", data)
	}
}
