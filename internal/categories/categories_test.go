package categories_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/JaimeStill/smartwaste/internal/categories"
)

func newSystem(t *testing.T) (categories.System, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return categories.New(db, slog.New(slog.NewTextHandler(io.Discard, nil))), mock
}

func TestFallback(t *testing.T) {
	tests := []struct {
		label string
		want  int
	}{
		{"organic", 1},
		{"Recyclable", 2},
		{" HAZARDOUS ", 3},
		{"electronic", categories.UnknownID},
		{"", categories.UnknownID},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			if got := categories.Fallback(tt.label); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	lookupSQL := regexp.QuoteMeta("WHERE LOWER(wc.name) = LOWER($1)")
	columns := []string{"id", "name"}

	tests := []struct {
		name  string
		label string
		setup func(mock sqlmock.Sqlmock)
		want  int
	}{
		{
			name:  "table match",
			label: "E-Waste",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(lookupSQL).WithArgs("E-Waste").
					WillReturnRows(sqlmock.NewRows(columns).AddRow(7, "e-waste"))
			},
			want: 7,
		},
		{
			name:  "no row uses fallback",
			label: "recyclable",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(lookupSQL).WithArgs("recyclable").
					WillReturnRows(sqlmock.NewRows(columns))
			},
			want: 2,
		},
		{
			name:  "lookup failure uses fallback",
			label: "organic",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(lookupSQL).WithArgs("organic").
					WillReturnError(errors.New("connection reset"))
			},
			want: 1,
		},
		{
			name:  "unknown label",
			label: "furniture",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(lookupSQL).WithArgs("furniture").
					WillReturnRows(sqlmock.NewRows(columns))
			},
			want: categories.UnknownID,
		},
		{
			name:  "empty label skips lookup",
			label: "  ",
			setup: func(sqlmock.Sqlmock) {},
			want:  categories.UnknownID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys, mock := newSystem(t)
			tt.setup(mock)

			if got := sys.Resolve(context.Background(), tt.label); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestList(t *testing.T) {
	sys, mock := newSystem(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM public.waste_categories wc ORDER BY wc.id")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(0, "Unknown").
			AddRow(1, "Organic"))

	items, err := sys.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[1].Name != "Organic" {
		t.Errorf("got %+v", items)
	}
}

func TestFind(t *testing.T) {
	sys, mock := newSystem(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE wc.id = $1")).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	if _, err := sys.Find(context.Background(), 9); !errors.Is(err, categories.ErrNotFound) {
		t.Errorf("error: got %v, want %v", err, categories.ErrNotFound)
	}
}
