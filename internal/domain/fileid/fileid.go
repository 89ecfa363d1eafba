// Пакет fileid — политика идентификаторов файлов.
//
// Идентификатор генерируется только сервером (UUID v4) и не несёт
// семантики пути. Любой идентификатор, пришедший из запроса, перед
// использованием в пути файловой системы или ключе хранилища обязан
// пройти Validate.
package fileid

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// maxExtLen — максимальная длина сохраняемого расширения (без точки).
const maxExtLen = 16

// Generate возвращает новый уникальный идентификатор файла.
func Generate() string {
	return uuid.New().String()
}

// Validate проверяет, что идентификатор безопасен для использования
// в качестве компонента пути и сегмента URL: не пустой, не содержит
// "..", разделителей пути и управляющих символов.
func Validate(id string) bool {
	if id == "" || id == "." {
		return false
	}
	if strings.Contains(id, "..") {
		return false
	}
	for _, r := range id {
		switch {
		case r == '/' || r == '\\':
			return false
		case r < 0x20 || r == 0x7f:
			return false
		}
	}
	return true
}

// StoredName формирует имя хранения: id плюс расширение из
// оригинального имени. Расширение сохраняется только если оно
// состоит из латинских букв и цифр (не длиннее 16 символов),
// иначе имя хранения равно id.
func StoredName(id, originalName string) string {
	ext := Extension(originalName)
	if ext == "" {
		return id
	}
	return id + ext
}

// Extension возвращает безопасное расширение (с точкой) из
// недоверенного имени файла или пустую строку.
func Extension(name string) string {
	// Клиенты на Windows присылают полный путь с обратными слэшами
	name = strings.ReplaceAll(name, "\\", "/")
	ext := filepath.Ext(name)
	if len(ext) < 2 || len(ext)-1 > maxExtLen {
		return ""
	}
	for _, r := range ext[1:] {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return ""
		}
	}
	return ext
}

// FromStoredName извлекает идентификатор из имени хранения
// (отбрасывает расширение).
func FromStoredName(storedName string) string {
	return strings.TrimSuffix(storedName, Extension(storedName))
}
