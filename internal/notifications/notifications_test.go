package notifications_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/JaimeStill/smartwaste/internal/identity"
	"github.com/JaimeStill/smartwaste/internal/notifications"
	"github.com/JaimeStill/smartwaste/pkg/pagination"
	"github.com/JaimeStill/smartwaste/pkg/routes"
)

var pageConfig = pagination.Config{DefaultPageSize: 25, MaxPageSize: 100}

func newSystem(t *testing.T) (notifications.System, sqlmock.Sqlmock) {
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
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return notifications.New(db, logger, pageConfig), mock
}

func TestMessages(t *testing.T) {
	id := uuid.MustParse("7f1d0c4e-0000-4000-8000-000000000001")

	if got := notifications.ClaimedMessage(id); got != "Your report #"+id.String()+" was claimed by a collector." {
		t.Errorf("claimed message: %q", got)
	}
	if got := notifications.CompletedMessage(id); got != "Your report #"+id.String()+" has been completed." {
		t.Errorf("completed message: %q", got)
	}
}

func TestNotify(t *testing.T) {
	user, report := uuid.New(), uuid.New()
	insertSQL := regexp.QuoteMeta("INSERT INTO public.notifications")

	tests := []struct {
		name    string
		typ     notifications.Type
		setup   func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "records row",
			typ:  notifications.TypeClaimed,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(insertSQL).
					WithArgs(user, report, "claimed", "msg").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name:    "rejects unknown type",
			typ:     notifications.Type("urgent"),
			setup:   func(sqlmock.Sqlmock) {},
			wantErr: notifications.ErrInvalidType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys, mock := newSystem(t)
			tt.setup(mock)

			err := sys.Notify(context.Background(), user, report, tt.typ, "msg")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error: got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMarkReadScopedToRecipient(t *testing.T) {
	id, user := uuid.New(), uuid.New()
	updateSQL := regexp.QuoteMeta("UPDATE public.notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2")

	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{"own notification", 1, nil},
		{"someone else's notification", 0, notifications.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys, mock := newSystem(t)
			mock.ExpectExec(updateSQL).WithArgs(id, user).WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := sys.MarkRead(context.Background(), id, user)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error: got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestHandlerUnread(t *testing.T) {
	sys, mock := newSystem(t)
	user := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM public.notifications WHERE user_id = $1 AND is_read = FALSE")).
		WithArgs(user).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	mux := http.NewServeMux()
	routes.Register(mux, sys.Handler().Routes())

	req := httptest.NewRequest(http.MethodGet, "/notifications/unread", nil)
	req = req.WithContext(identity.WithIdentity(req.Context(), identity.Identity{UserID: user, Role: identity.RoleCitizen}))
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, `"unread":3`) {
		t.Errorf("body: %s", body)
	}
}

func TestListNewestFirst(t *testing.T) {
	sys, mock := newSystem(t)
	user, report := uuid.New(), uuid.New()
	unread := false

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(user, false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY n.created_at DESC")).
		WithArgs(user, false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "report_id", "type", "message", "is_read", "created_at"}).
			AddRow(uuid.NewString(), user.String(), report.String(), "completed", "done", false, time.Now()))

	result, err := sys.List(context.Background(), user, pagination.PageRequest{}, notifications.Filters{IsRead: &unread})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(result.Data) != 1 || result.Data[0].Type != notifications.TypeCompleted {
		t.Fatalf("got %+v", result.Data)
	}
	if result.Data[0].ReportID == nil || *result.Data[0].ReportID != report {
		t.Errorf("report id: got %v, want %s", result.Data[0].ReportID, report)
	}
}
