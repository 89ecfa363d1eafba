// Пакет multipart — разбор тела multipart/form-data без сторонних
// парсеров: чистая функция над (буфер, boundary) → части формы.
//
// Data частей ссылается на исходный буфер (без копирования), поэтому
// буфер нельзя изменять, пока используется результат Decode.
package multipart

import (
	"bytes"
	"errors"
	"fmt"
	"net/textproto"
	"net/url"
	"strings"
)

// DefaultFileContentType — тип файловой части без заголовка Content-Type.
const DefaultFileContentType = "application/octet-stream"

// ErrMalformed — нарушена структура multipart-потока.
var ErrMalformed = errors.New("некорректный multipart")

var (
	crlf        = []byte("\r\n")
	headerBreak = []byte("\r\n\r\n")
	dashes      = []byte("--")
)

// Part — одна часть формы.
type Part struct {
	// Name — имя поля из Content-Disposition
	Name string
	// Filename — имя файла (только для файловых частей)
	Filename string
	// IsFile — в Content-Disposition присутствует filename
	IsFile bool
	// ContentType — Content-Type части; для файлов по умолчанию
	// application/octet-stream
	ContentType string
	// Header — заголовки части
	Header textproto.MIMEHeader
	// Data — тело части, срез исходного буфера
	Data []byte
}

// Form — результат разбора. Для каждого имени хранится первая
// встреченная часть, повторные части с тем же именем отбрасываются.
type Form struct {
	parts []Part
	index map[string]int
}

// Len возвращает количество различных имён частей.
func (f Form) Len() int { return len(f.parts) }

// Parts возвращает части в порядке следования в потоке.
func (f Form) Parts() []Part { return f.parts }

// Get возвращает часть по имени.
func (f Form) Get(name string) (Part, bool) {
	i, ok := f.index[name]
	if !ok {
		return Part{}, false
	}
	return f.parts[i], true
}

// File возвращает файловую часть по имени.
func (f Form) File(name string) (Part, bool) {
	p, ok := f.Get(name)
	if !ok || !p.IsFile {
		return Part{}, false
	}
	return p, true
}

// Value возвращает значение обычного поля по имени.
func (f Form) Value(name string) (string, bool) {
	p, ok := f.Get(name)
	if !ok || p.IsFile {
		return "", false
	}
	return string(p.Data), true
}

// Decode разбирает буфер multipart/form-data с заданным boundary.
//
// Любое нарушение структуры (нет открывающего или закрывающего
// разделителя, часть без пустой строки между заголовками и телом,
// часть без имени) возвращает ErrMalformed, частичный результат
// не отдаётся.
func Decode(buf []byte, boundary string) (Form, error) {
	if boundary == "" {
		return Form{}, fmt.Errorf("%w: пустой boundary", ErrMalformed)
	}

	delim := []byte("--" + boundary)
	// Разделитель внутри потока всегда предваряется CRLF
	next := []byte("\r\n--" + boundary)

	start := bytes.Index(buf, delim)
	if start < 0 {
		return Form{}, fmt.Errorf("%w: не найден открывающий разделитель", ErrMalformed)
	}
	cursor := start + len(delim)

	form := Form{index: make(map[string]int)}
	for {
		rest := buf[cursor:]
		if bytes.HasPrefix(rest, dashes) {
			// Закрывающий разделитель, эпилог игнорируется
			return form, nil
		}

		skip, err := lineEnd(rest)
		if err != nil {
			return Form{}, err
		}
		cursor += skip

		end := bytes.Index(buf[cursor:], next)
		if end < 0 {
			return Form{}, fmt.Errorf("%w: не найден закрывающий разделитель", ErrMalformed)
		}

		part, err := parsePart(buf[cursor : cursor+end])
		if err != nil {
			return Form{}, err
		}
		if _, dup := form.index[part.Name]; !dup {
			form.index[part.Name] = len(form.parts)
			form.parts = append(form.parts, part)
		}

		cursor += end + len(next)
	}
}

// lineEnd возвращает длину хвоста строки разделителя: допустимые
// пробелы и табуляции, затем CRLF.
func lineEnd(b []byte) (int, error) {
	i := 0
	for i < len(b) && (b[i] == ' ' || b[i] == '\t') {
		i++
	}
	if !bytes.HasPrefix(b[i:], crlf) {
		return 0, fmt.Errorf("%w: после разделителя ожидается CRLF", ErrMalformed)
	}
	return i + len(crlf), nil
}

// parsePart разбирает сырое содержимое одной части.
func parsePart(raw []byte) (Part, error) {
	sep := bytes.Index(raw, headerBreak)
	if sep < 0 {
		return Part{}, fmt.Errorf("%w: в части нет разделителя заголовков и тела", ErrMalformed)
	}

	header, err := parseHeader(raw[:sep])
	if err != nil {
		return Part{}, err
	}

	disposition := header.Get("Content-Disposition")
	if disposition == "" {
		return Part{}, fmt.Errorf("%w: в части нет Content-Disposition", ErrMalformed)
	}
	_, params := parseDisposition(disposition)
	name := params["name"]
	if name == "" {
		return Part{}, fmt.Errorf("%w: в Content-Disposition нет name", ErrMalformed)
	}

	p := Part{
		Name:        name,
		Header:      header,
		ContentType: header.Get("Content-Type"),
		Data:        raw[sep+len(headerBreak):],
	}
	if filename, ok := dispositionFilename(params); ok {
		p.IsFile = true
		p.Filename = filename
		if p.ContentType == "" {
			p.ContentType = DefaultFileContentType
		}
	}
	return p, nil
}

// parseHeader разбирает блок строк "Name: value".
func parseHeader(block []byte) (textproto.MIMEHeader, error) {
	header := make(textproto.MIMEHeader)
	for len(block) > 0 {
		var line []byte
		if i := bytes.Index(block, crlf); i >= 0 {
			line, block = block[:i], block[i+len(crlf):]
		} else {
			line, block = block, nil
		}
		if len(line) == 0 {
			continue
		}
		colon := bytes.IndexByte(line, ':')
		if colon <= 0 {
			return nil, fmt.Errorf("%w: некорректная строка заголовка %q", ErrMalformed, line)
		}
		key := textproto.CanonicalMIMEHeaderKey(string(bytes.TrimSpace(line[:colon])))
		header.Add(key, string(bytes.TrimSpace(line[colon+1:])))
	}
	return header, nil
}

// parseDisposition разбирает значение Content-Disposition на тип
// и параметры. Имена параметров приводятся к нижнему регистру,
// значения в кавычках раскрываются с учётом экранирования.
func parseDisposition(v string) (string, map[string]string) {
	params := make(map[string]string)
	typ, rest, _ := strings.Cut(v, ";")
	typ = strings.ToLower(strings.TrimSpace(typ))

	for {
		rest = strings.TrimLeft(rest, " \t;")
		if rest == "" {
			return typ, params
		}

		eq := strings.IndexByte(rest, '=')
		semi := strings.IndexByte(rest, ';')
		if eq < 0 || (semi >= 0 && semi < eq) {
			// Параметр без значения пропускаем
			if semi < 0 {
				return typ, params
			}
			rest = rest[semi:]
			continue
		}

		key := strings.ToLower(strings.TrimSpace(rest[:eq]))
		rest = strings.TrimLeft(rest[eq+1:], " \t")

		var value string
		if strings.HasPrefix(rest, `"`) {
			value, rest = quoted(rest[1:])
		} else {
			value, rest, _ = strings.Cut(rest, ";")
			value = strings.TrimSpace(value)
		}
		if _, seen := params[key]; !seen {
			params[key] = value
		}
	}
}

// quoted читает строку в кавычках (открывающая кавычка уже пропущена)
// и возвращает значение и остаток после закрывающей кавычки.
func quoted(s string) (string, string) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			if i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			}
		case '"':
			return b.String(), s[i+1:]
		default:
			b.WriteByte(c)
		}
	}
	// Незакрытая кавычка: значение до конца строки
	return b.String(), ""
}

// dispositionFilename возвращает имя файла: filename* (RFC 5987)
// приоритетнее filename.
func dispositionFilename(params map[string]string) (string, bool) {
	if ext, ok := params["filename*"]; ok {
		if _, encoded, found := strings.Cut(ext, "''"); found {
			if name, err := url.PathUnescape(encoded); err == nil {
				return name, true
			}
		}
	}
	name, ok := params["filename"]
	return name, ok
}
