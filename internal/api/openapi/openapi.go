// Пакет openapi — встроенный OpenAPI-контракт HTTP API file-host.
// Документ отдаётся на GET /api/openapi.yaml и проверяется при старте.
package openapi

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var specYAML []byte

// ContentType — MIME-тип документа.
const ContentType = "application/yaml"

// Spec возвращает исходный YAML контракта.
func Spec() []byte {
	return specYAML
}

// Load разбирает и валидирует контракт.
func Load(ctx context.Context) (*openapi3.T, error) {
	doc, err := openapi3.NewLoader().LoadFromData(specYAML)
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора OpenAPI: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("некорректный OpenAPI: %w", err)
	}
	return doc, nil
}
