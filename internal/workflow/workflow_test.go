package workflow_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/smartwaste/internal/categories"
	"github.com/JaimeStill/smartwaste/internal/claims"
	"github.com/JaimeStill/smartwaste/internal/classifier"
	"github.com/JaimeStill/smartwaste/internal/identity"
	"github.com/JaimeStill/smartwaste/internal/metrics"
	"github.com/JaimeStill/smartwaste/internal/notifications"
	"github.com/JaimeStill/smartwaste/internal/reports"
	"github.com/JaimeStill/smartwaste/internal/workflow"
)

type fixture struct {
	rt       *workflow.Runtime
	mem      *memory
	notifier *notifier
	citizen  uuid.UUID
}

func newFixture(c classifier.Classifier) *fixture {
	mem := newMemory()
	n := &notifier{}
	return &fixture{
		rt: &workflow.Runtime{
			Store:           mem,
			Classifier:      c,
			Categories:      categoryTable{},
			Notifier:        n,
			Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
			ClassifyTimeout: time.Second,
		},
		mem:      mem,
		notifier: n,
		citizen:  uuid.New(),
	}
}

func collector() identity.Identity {
	return identity.Identity{UserID: uuid.New(), Role: identity.RoleCollector}
}

// claimed seeds a report and claims it for a new collector.
func (f *fixture) claimed(t *testing.T) (uuid.UUID, identity.Identity, *claims.Claim) {
	t.Helper()
	reportID := f.mem.seedReport(f.citizen)
	actor := collector()
	result, err := workflow.Claim(context.Background(), f.rt, reportID, actor)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	return reportID, actor, result.Claim
}

func TestConcurrentClaimsHaveOneWinner(t *testing.T) {
	const attempts = 32

	f := newFixture(predicts("organic", 0.5))
	reg := prometheus.NewRegistry()
	f.rt.Metrics = metrics.New(reg)
	reportID := f.mem.seedReport(f.citizen)

	var (
		wins      atomic.Int32
		conflicts atomic.Int32
		winner    atomic.Value
	)

	var g errgroup.Group
	for range attempts {
		actor := collector()
		g.Go(func() error {
			_, err := workflow.Claim(context.Background(), f.rt, reportID, actor)
			switch {
			case err == nil:
				wins.Add(1)
				winner.Store(actor.UserID)
				return nil
			case errors.Is(err, workflow.ErrConflict):
				conflicts.Add(1)
				return nil
			default:
				return err
			}
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected claim error: %v", err)
	}

	if wins.Load() != 1 || conflicts.Load() != attempts-1 {
		t.Fatalf("wins=%d conflicts=%d, want 1/%d", wins.Load(), conflicts.Load(), attempts-1)
	}

	rep := f.mem.report(reportID)
	if rep.Status != reports.StatusClaimed {
		t.Errorf("report status: got %s, want claimed", rep.Status)
	}
	if !rep.AssignedTo(winner.Load().(uuid.UUID)) {
		t.Error("report should be assigned to the winning collector")
	}

	if rows := f.mem.claimsFor(reportID); len(rows) != 1 {
		t.Errorf("claim rows: got %d, want 1", len(rows))
	}

	sent := f.notifier.all()
	if len(sent) != 1 || sent[0].Type != notifications.TypeClaimed || sent[0].UserID != f.citizen {
		t.Errorf("notifications: got %+v, want one claimed notification to the citizen", sent)
	}

	expected := fmt.Sprintf(`
# HELP smartwaste_workflow_claims_total Claim attempts by outcome.
# TYPE smartwaste_workflow_claims_total counter
smartwaste_workflow_claims_total{outcome="conflict"} %d
smartwaste_workflow_claims_total{outcome="success"} 1
`, attempts-1)
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "smartwaste_workflow_claims_total"); err != nil {
		t.Error(err)
	}
}

func TestClaimRejections(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, f *fixture) (uuid.UUID, identity.Identity)
		wantErr error
	}{
		{
			name: "missing report",
			setup: func(*testing.T, *fixture) (uuid.UUID, identity.Identity) {
				return uuid.New(), collector()
			},
			wantErr: workflow.ErrNotFound,
		},
		{
			name: "citizen cannot claim",
			setup: func(_ *testing.T, f *fixture) (uuid.UUID, identity.Identity) {
				return f.mem.seedReport(f.citizen), identity.Identity{UserID: f.citizen, Role: identity.RoleCitizen}
			},
			wantErr: workflow.ErrForbidden,
		},
		{
			name: "already claimed",
			setup: func(t *testing.T, f *fixture) (uuid.UUID, identity.Identity) {
				reportID, _, _ := f.claimed(t)
				return reportID, collector()
			},
			wantErr: workflow.ErrConflict,
		},
		{
			name: "completed report stays completed",
			setup: func(t *testing.T, f *fixture) (uuid.UUID, identity.Identity) {
				reportID, actor, c := f.claimed(t)
				cmd := workflow.CompleteCommand{ClaimID: c.ID, ReportID: reportID, VerifiedText: "cans"}
				if _, err := workflow.Complete(context.Background(), f.rt, actor, cmd); err != nil {
					t.Fatalf("complete: %v", err)
				}
				return reportID, actor
			},
			wantErr: workflow.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(predicts("recyclable", 0.7))
			reportID, actor := tt.setup(t, f)
			before := len(f.notifier.all())
			claimsBefore := len(f.mem.claimsFor(reportID))
			statusBefore := f.mem.report(reportID).Status

			_, err := workflow.Claim(context.Background(), f.rt, reportID, actor)

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error: got %v, want %v", err, tt.wantErr)
			}
			if got := len(f.notifier.all()); got != before {
				t.Errorf("notifications: got %d, want %d", got, before)
			}
			if got := len(f.mem.claimsFor(reportID)); got != claimsBefore {
				t.Errorf("claim rows: got %d, want %d", got, claimsBefore)
			}
			if got := f.mem.report(reportID).Status; got != statusBefore {
				t.Errorf("status: got %s, want %s", got, statusBefore)
			}
		})
	}
}

func TestClaimSucceedsWhenNotificationFails(t *testing.T) {
	f := newFixture(predicts("organic", 0.5))
	var logs bytes.Buffer
	f.rt.Logger = slog.New(slog.NewTextHandler(&logs, nil))
	f.notifier.err = errors.New("notifications table locked")
	reportID := f.mem.seedReport(f.citizen)

	result, err := workflow.Claim(context.Background(), f.rt, reportID, collector())
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if result.Report.Status != reports.StatusClaimed {
		t.Errorf("status: got %s, want claimed", result.Report.Status)
	}
	if out := logs.String(); !strings.Contains(out, `level=WARN msg="notification failed"`) {
		t.Errorf("notification failure should log at warn, got:\n%s", out)
	}
}

func TestClaimRollsBackWhenInsertFails(t *testing.T) {
	f := newFixture(predicts("organic", 0.5))
	reportID := f.mem.seedReport(f.citizen)
	f.mem.seedActiveClaim(reportID)

	_, err := workflow.Claim(context.Background(), f.rt, reportID, collector())
	if !errors.Is(err, workflow.ErrConflict) {
		t.Fatalf("error: got %v, want %v", err, workflow.ErrConflict)
	}

	rep := f.mem.report(reportID)
	if rep.Status != reports.StatusPending || rep.CollectorID != nil || rep.AssignedAt != nil {
		t.Errorf("report should be back to pending and unassigned, got %+v", rep)
	}
	if rows := f.mem.claimsFor(reportID); len(rows) != 1 {
		t.Errorf("claim rows: got %d, want the seeded one only", len(rows))
	}
	if sent := f.notifier.all(); len(sent) != 0 {
		t.Errorf("notifications: got %+v, want none", sent)
	}
}

func TestComplete(t *testing.T) {
	f := newFixture(predicts("Recyclable", 0.92))
	reportID, actor, c := f.claimed(t)

	cmd := workflow.CompleteCommand{
		ClaimID:      c.ID,
		ReportID:     reportID,
		VerifiedText: "  found bottles and wrappers ",
	}

	result, err := workflow.Complete(context.Background(), f.rt, actor, cmd)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	if result.Degraded {
		t.Error("result should not be degraded")
	}
	if result.Category != 2 || result.Confidence != 0.92 {
		t.Errorf("category/confidence: got %d/%v, want 2/0.92", result.Category, result.Confidence)
	}
	if result.Claim.Status != claims.StatusCompleted || *result.Claim.VerifiedText != "found bottles and wrappers" {
		t.Errorf("claim: got %+v", result.Claim)
	}
	if *result.Claim.AICategoryID != 2 || *result.Claim.AIConfidence != 0.92 {
		t.Errorf("stored category/confidence: got %d/%v", *result.Claim.AICategoryID, *result.Claim.AIConfidence)
	}
	if rep := f.mem.report(reportID); rep.Status != reports.StatusCompleted || rep.CompletedAt == nil {
		t.Errorf("report: got status %s completed_at %v", rep.Status, rep.CompletedAt)
	}

	var completed []sentNotification
	for _, n := range f.notifier.all() {
		if n.Type == notifications.TypeCompleted {
			completed = append(completed, n)
		}
	}
	if len(completed) != 1 || completed[0].UserID != f.citizen || completed[0].ReportID != reportID {
		t.Errorf("completed notifications: got %+v", completed)
	}
}

func TestCompleteDegradesWhenClassifierFails(t *testing.T) {
	tests := []struct {
		name string
		c    classifier.Classifier
	}{
		{
			name: "timeout",
			c: classifierFunc(func(ctx context.Context, _ string) (classifier.Prediction, error) {
				<-ctx.Done()
				return classifier.Prediction{}, fmt.Errorf("%w: %w", classifier.ErrUnavailable, ctx.Err())
			}),
		},
		{
			name: "unreachable",
			c: classifierFunc(func(context.Context, string) (classifier.Prediction, error) {
				return classifier.Prediction{}, classifier.ErrUnavailable
			}),
		},
		{
			name: "no prediction",
			c: classifierFunc(func(context.Context, string) (classifier.Prediction, error) {
				return classifier.Prediction{}, classifier.ErrNoPrediction
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.c)
			f.rt.ClassifyTimeout = 20 * time.Millisecond
			reportID, actor, c := f.claimed(t)

			cmd := workflow.CompleteCommand{ClaimID: c.ID, ReportID: reportID, VerifiedText: "found bottles and wrappers"}
			result, err := workflow.Complete(context.Background(), f.rt, actor, cmd)
			if err != nil {
				t.Fatalf("complete: %v", err)
			}

			if !result.Degraded {
				t.Error("result should be degraded")
			}
			if result.Category != categories.UnknownID || result.Confidence != 0 {
				t.Errorf("category/confidence: got %d/%v, want unknown/0", result.Category, result.Confidence)
			}
			if f.mem.report(reportID).Status != reports.StatusCompleted {
				t.Error("report should be completed")
			}
		})
	}
}

func TestCompleteUnknownLabel(t *testing.T) {
	f := newFixture(predicts("furniture", 0.4))
	reportID, actor, c := f.claimed(t)

	cmd := workflow.CompleteCommand{ClaimID: c.ID, ReportID: reportID, VerifiedText: "old sofa"}
	result, err := workflow.Complete(context.Background(), f.rt, actor, cmd)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if result.Category != categories.UnknownID || result.Confidence != 0.4 || result.Degraded {
		t.Errorf("got category=%d confidence=%v degraded=%v", result.Category, result.Confidence, result.Degraded)
	}
}

func TestCompleteRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(t *testing.T, f *fixture, cmd *workflow.CompleteCommand, actor *identity.Identity)
		wantErr error
	}{
		{
			name: "other collector",
			mutate: func(_ *testing.T, _ *fixture, _ *workflow.CompleteCommand, actor *identity.Identity) {
				*actor = collector()
			},
			wantErr: workflow.ErrForbidden,
		},
		{
			name: "other collector with blank text",
			mutate: func(_ *testing.T, _ *fixture, cmd *workflow.CompleteCommand, actor *identity.Identity) {
				*actor = collector()
				cmd.VerifiedText = ""
			},
			wantErr: workflow.ErrForbidden,
		},
		{
			name: "citizen",
			mutate: func(_ *testing.T, f *fixture, _ *workflow.CompleteCommand, actor *identity.Identity) {
				*actor = identity.Identity{UserID: f.citizen, Role: identity.RoleCitizen}
			},
			wantErr: workflow.ErrForbidden,
		},
		{
			name: "blank verified text",
			mutate: func(_ *testing.T, _ *fixture, cmd *workflow.CompleteCommand, _ *identity.Identity) {
				cmd.VerifiedText = "   "
			},
			wantErr: workflow.ErrValidation,
		},
		{
			name: "claim on another report",
			mutate: func(_ *testing.T, f *fixture, cmd *workflow.CompleteCommand, _ *identity.Identity) {
				cmd.ReportID = f.mem.seedReport(f.citizen)
			},
			wantErr: workflow.ErrNotFound,
		},
		{
			name: "already completed",
			mutate: func(t *testing.T, f *fixture, cmd *workflow.CompleteCommand, actor *identity.Identity) {
				if _, err := workflow.Complete(context.Background(), f.rt, *actor, *cmd); err != nil {
					t.Fatalf("first completion: %v", err)
				}
			},
			wantErr: workflow.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			f := newFixture(classifierFunc(func(context.Context, string) (classifier.Prediction, error) {
				calls.Add(1)
				return classifier.Prediction{Label: "organic", Confidence: 0.8}, nil
			}))
			reportID, actor, c := f.claimed(t)
			cmd := workflow.CompleteCommand{ClaimID: c.ID, ReportID: reportID, VerifiedText: "leaves"}

			tt.mutate(t, f, &cmd, &actor)
			callsBefore := calls.Load()
			sentBefore := len(f.notifier.all())
			statusBefore := f.mem.report(reportID).Status

			_, err := workflow.Complete(context.Background(), f.rt, actor, cmd)

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error: got %v, want %v", err, tt.wantErr)
			}
			if calls.Load() != callsBefore {
				t.Error("classifier should not run for a rejected completion")
			}
			if got := len(f.notifier.all()); got != sentBefore {
				t.Errorf("notifications: got %d, want %d", got, sentBefore)
			}
			if got := f.mem.report(reportID).Status; got != statusBefore {
				t.Errorf("report status: got %s, want %s", got, statusBefore)
			}
		})
	}
}

func TestCompleteIgnoresClientCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFixture(classifierFunc(func(context.Context, string) (classifier.Prediction, error) {
		cancel()
		return classifier.Prediction{Label: "hazardous", Confidence: 0.6}, nil
	}))
	reportID, actor, c := f.claimed(t)

	cmd := workflow.CompleteCommand{ClaimID: c.ID, ReportID: reportID, VerifiedText: "paint tins"}
	result, err := workflow.Complete(ctx, f.rt, actor, cmd)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if result.Category != 3 {
		t.Errorf("category: got %d, want 3", result.Category)
	}
	if f.mem.report(reportID).Status != reports.StatusCompleted {
		t.Error("report should be completed despite client cancellation")
	}
}

func TestCompleteCleanupPhoto(t *testing.T) {
	tests := []struct {
		name         string
		failDocs     bool
		wantDocs     int
		wantWarnings int
	}{
		{"recorded", false, 1, 0},
		{"recording fails", true, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(predicts("recyclable", 0.9))
			reportID, actor, c := f.claimed(t)
			f.mem.failDocuments = tt.failDocs

			photo := "photos/2026/10/after.jpg"
			cmd := workflow.CompleteCommand{ClaimID: c.ID, ReportID: reportID, VerifiedText: "glass", CleanupPhoto: &photo}

			result, err := workflow.Complete(context.Background(), f.rt, actor, cmd)
			if err != nil {
				t.Fatalf("complete: %v", err)
			}

			if got := len(f.mem.documents()); got != tt.wantDocs {
				t.Errorf("documents: got %d, want %d", got, tt.wantDocs)
			}
			if got := len(result.Warnings); got != tt.wantWarnings {
				t.Errorf("warnings: got %v, want %d", result.Warnings, tt.wantWarnings)
			}
			if result.Claim.CleanupPhotoPath == nil || *result.Claim.CleanupPhotoPath != photo {
				t.Errorf("claim cleanup photo: got %v", result.Claim.CleanupPhotoPath)
			}
			if f.mem.report(reportID).Status != reports.StatusCompleted {
				t.Error("report should be completed")
			}
		})
	}
}

func TestView(t *testing.T) {
	f := newFixture(predicts("organic", 0.75))
	reportID, actor, c := f.claimed(t)

	photo := "photos/2026/10/after.png"
	cmd := workflow.CompleteCommand{ClaimID: c.ID, ReportID: reportID, VerifiedText: "food waste", CleanupPhoto: &photo}
	if _, err := workflow.Complete(context.Background(), f.rt, actor, cmd); err != nil {
		t.Fatalf("complete: %v", err)
	}

	tests := []struct {
		name    string
		actor   identity.Identity
		wantErr error
	}{
		{"owner citizen", identity.Identity{UserID: f.citizen, Role: identity.RoleCitizen}, nil},
		{"assigned collector", actor, nil},
		{"admin", identity.Identity{UserID: uuid.New(), Role: identity.RoleAdmin}, nil},
		{"other citizen", identity.Identity{UserID: uuid.New(), Role: identity.RoleCitizen}, workflow.ErrForbidden},
		{"other collector", collector(), workflow.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := workflow.View(context.Background(), f.rt, reportID, tt.actor)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error: got %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("view: %v", err)
			}

			if view.Claim == nil || view.Claim.ID != c.ID {
				t.Errorf("claim: got %+v", view.Claim)
			}
			if view.Category == nil || view.Category.Name != "Organic" {
				t.Errorf("category: got %+v", view.Category)
			}
			if len(view.Documents) != 1 || view.Documents[0].DocType != reports.DocCleanupPhoto {
				t.Errorf("documents: got %+v", view.Documents)
			}
		})
	}
}

func TestViewPendingReport(t *testing.T) {
	f := newFixture(predicts("organic", 0.75))
	reportID := f.mem.seedReport(f.citizen)

	view, err := workflow.View(context.Background(), f.rt, reportID, collector())
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.Claim != nil || view.Category != nil {
		t.Errorf("pending report should have no claim or category: %+v", view)
	}
}
