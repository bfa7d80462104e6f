package handlers_test

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/smartwaste/pkg/handlers"
)

func TestRespondJSON(t *testing.T) {
	tests := []struct {
		name   string
		status int
		data   any
	}{
		{"200 with map", http.StatusOK, map[string]string{"key": "value"}},
		{"201 with struct", http.StatusCreated, struct{ ID int }{ID: 42}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handlers.RespondJSON(rec, tt.status, tt.data)

			res := rec.Result()
			defer res.Body.Close()

			if res.StatusCode != tt.status {
				t.Errorf("status: got %d, want %d", res.StatusCode, tt.status)
			}
			if ct := res.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("content-type: got %s", ct)
			}

			body, _ := io.ReadAll(res.Body)
			var parsed map[string]any
			if err := json.Unmarshal(body, &parsed); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
		})
	}
}

func TestRespondError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := httptest.NewRecorder()

	handlers.RespondError(rec, logger, http.StatusConflict, errors.New("report already claimed"))

	if rec.Code != http.StatusConflict {
		t.Errorf("status: got %d, want 409", rec.Code)
	}

	var parsed map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if parsed["error"] != "report already claimed" {
		t.Errorf("error: got %q", parsed["error"])
	}
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Text string `json:"text"`
	}

	t.Run("valid", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"text":"bottles"}`))
		got, err := handlers.DecodeJSON[body](r, 1024)
		if err != nil {
			t.Fatalf("DecodeJSON() error = %v", err)
		}
		if got.Text != "bottles" {
			t.Errorf("Text = %q, want bottles", got.Text)
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"txt":"bottles"}`))
		if _, err := handlers.DecodeJSON[body](r, 1024); !errors.Is(err, handlers.ErrInvalidBody) {
			t.Errorf("DecodeJSON() error = %v, want ErrInvalidBody", err)
		}
	})

	t.Run("truncated by limit", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"text":"a long body"}`))
		if _, err := handlers.DecodeJSON[body](r, 5); !errors.Is(err, handlers.ErrInvalidBody) {
			t.Errorf("DecodeJSON() error = %v, want ErrInvalidBody", err)
		}
	})
}
