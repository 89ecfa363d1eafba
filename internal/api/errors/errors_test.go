package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		write      func(http.ResponseWriter, string)
		wantStatus int
		wantCode   string
	}{
		{"validation", ValidationError, http.StatusBadRequest, CodeValidationError},
		{"not found", NotFound, http.StatusNotFound, CodeNotFound},
		{"method", MethodNotAllowed, http.StatusMethodNotAllowed, CodeMethodNotAllowed},
		{"too large", FileTooLarge, http.StatusRequestEntityTooLarge, CodeFileTooLarge},
		{"storage", StorageUnavailable, http.StatusServiceUnavailable, CodeStorageUnavailable},
		{"internal", InternalError, http.StatusInternalServerError, CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec, "сообщение")

			if rec.Code != tt.wantStatus {
				t.Errorf("статус %d, ожидался %d", rec.Code, tt.wantStatus)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}

			var body Body
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("некорректный JSON: %v", err)
			}
			if body.Error != "сообщение" || body.Code != tt.wantCode {
				t.Errorf("тело = %+v", body)
			}
		})
	}
}
