package errhttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	itemdomain "github.com/ghuser/inventory/services/item/domain"
)

func TestWriteError_StatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"ErrItemNotFound", itemdomain.ErrItemNotFound, http.StatusNotFound},
		{"ValidationError", itemdomain.NewValidationError("sku is required"), http.StatusUnprocessableEntity},
		{"wrapped ValidationError", fmt.Errorf("create: %w", itemdomain.NewValidationError("x")), http.StatusUnprocessableEntity},
		{"ErrSignInRequired", itemdomain.ErrSignInRequired, http.StatusUnauthorized},
		{"ErrNotAuthorized", itemdomain.ErrNotAuthorized, http.StatusForbidden},
		{"ErrSlugConflict", itemdomain.ErrSlugConflict, http.StatusConflict},
		{"ErrSlugTaken", itemdomain.ErrSlugTaken, http.StatusConflict},
		{"wrapped ErrItemNotFound", fmt.Errorf("get item: %w", itemdomain.ErrItemNotFound), http.StatusNotFound},
		{"ErrStore", fmt.Errorf("%w: connection refused", itemdomain.ErrStore), http.StatusInternalServerError},
		{"unknown error", errors.New("something unexpected"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestWriteError_ValidationProblems(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, itemdomain.NewValidationError("name is required", "sku is required"))

	var body struct {
		Error    string   `json:"error"`
		Problems []string `json:"problems"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response body is not valid JSON: %v", err)
	}
	if len(body.Problems) != 2 || body.Problems[1] != "sku is required" {
		t.Fatalf("expected both problems listed, got %+v", body.Problems)
	}
}

func TestWriteError_SignInCarriesRedirect(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, itemdomain.ErrSignInRequired)

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response body is not valid JSON: %v", err)
	}
	if body["redirect"] != "/signin" {
		t.Fatalf("expected redirect to /signin, got %q", body["redirect"])
	}
}

func TestWriteError_StoreErrorIsGeneric(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, fmt.Errorf("%w: dial tcp 10.0.0.5:5432: refused", itemdomain.ErrStore))

	if strings.Contains(w.Body.String(), "10.0.0.5") {
		t.Fatalf("store details leaked into response: %s", w.Body.String())
	}
}

func TestWriteError_ContentType(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, itemdomain.ErrItemNotFound)

	ct := w.Header().Get("Content-Type")
	if !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected JSON content type, got %q", ct)
	}
}
