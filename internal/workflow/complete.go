package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/JaimeStill/smartwaste/internal/categories"
	"github.com/JaimeStill/smartwaste/internal/claims"
	"github.com/JaimeStill/smartwaste/internal/classifier"
	"github.com/JaimeStill/smartwaste/internal/identity"
	"github.com/JaimeStill/smartwaste/internal/notifications"
	"github.com/JaimeStill/smartwaste/internal/reports"
)

const (
	maxVerifiedText = 2000
	maxNotes        = 2000
)

// CompleteCommand carries a collector's completion of one claim.
type CompleteCommand struct {
	ClaimID      uuid.UUID `json:"-"`
	ReportID     uuid.UUID `json:"report_id"`
	VerifiedText string    `json:"verified_waste_text"`
	Notes        string    `json:"notes"`
	CleanupPhoto *string   `json:"cleanup_photo_path"`
}

// Validate trims the command and checks required fields.
func (c *CompleteCommand) Validate() error {
	c.VerifiedText = strings.TrimSpace(c.VerifiedText)
	c.Notes = strings.TrimSpace(c.Notes)

	if c.CleanupPhoto != nil {
		photo := strings.TrimSpace(*c.CleanupPhoto)
		if photo == "" {
			c.CleanupPhoto = nil
		} else {
			c.CleanupPhoto = &photo
		}
	}

	switch {
	case c.ReportID == uuid.Nil:
		return fmt.Errorf("%w: report_id is required", ErrValidation)
	case c.VerifiedText == "":
		return fmt.Errorf("%w: verified_waste_text is required", ErrValidation)
	case utf8.RuneCountInString(c.VerifiedText) > maxVerifiedText:
		return fmt.Errorf("%w: verified_waste_text exceeds %d characters", ErrValidation, maxVerifiedText)
	case utf8.RuneCountInString(c.Notes) > maxNotes:
		return fmt.Errorf("%w: notes exceed %d characters", ErrValidation, maxNotes)
	}
	return nil
}

// CompletionResult is the outcome of a completion. Degraded is set when
// the classifier failed and the category fell back to unknown. Warnings
// list best-effort steps that did not succeed.
type CompletionResult struct {
	Report     *reports.Report `json:"report"`
	Claim      *claims.Claim   `json:"claim"`
	Category   int             `json:"category_id"`
	Label      string          `json:"label"`
	Confidence float64         `json:"confidence"`
	Degraded   bool            `json:"degraded"`
	Warnings   []string        `json:"warnings,omitempty"`
}

// Complete records the acting collector's completion of their claim.
//
// Ownership, claim state and input are checked, in that order, before
// anything is written. The
// classifier runs before any row is touched; its failure degrades the
// category to unknown instead of failing the request. The claim and report
// transitions then commit together on a context detached from the caller,
// so a client disconnect cannot leave them half-applied.
func Complete(ctx context.Context, rt *Runtime, actor identity.Identity, cmd CompleteCommand) (*CompletionResult, error) {
	logger := rt.Logger.With(
		"workflow", "complete",
		"claim_id", cmd.ClaimID,
		"report_id", cmd.ReportID,
		"collector_id", actor.UserID,
	)

	result, err := complete(ctx, rt, logger, actor, cmd)
	rt.Metrics.Completion(outcome(err))

	if err != nil {
		logFailure(logger, "completion rejected", err)
		return nil, err
	}

	logger.Info("claim completed",
		"category_id", result.Category,
		"confidence", result.Confidence,
		"degraded", result.Degraded,
	)

	if cmd.CleanupPhoto != nil {
		_, err := rt.Store.Stores().Reports.AddDocument(
			context.WithoutCancel(ctx), cmd.ReportID, reports.DocCleanupPhoto, *cmd.CleanupPhoto,
		)
		if err != nil {
			logger.Warn("cleanup photo not recorded", "error", err)
			result.Warnings = append(result.Warnings, "cleanup photo could not be recorded")
		}
	}

	notify(
		ctx, rt, logger,
		result.Report.CitizenID, cmd.ReportID,
		notifications.TypeCompleted, notifications.CompletedMessage(cmd.ReportID),
	)

	return result, nil
}

func complete(
	ctx context.Context,
	rt *Runtime,
	logger *slog.Logger,
	actor identity.Identity,
	cmd CompleteCommand,
) (*CompletionResult, error) {
	if !actor.Is(identity.RoleCollector) {
		return nil, fmt.Errorf("%w: only collectors can complete claims", ErrForbidden)
	}
	c, err := rt.Store.Stores().Claims.GetForReport(ctx, cmd.ClaimID, cmd.ReportID)
	if err != nil {
		return nil, translate(err)
	}
	if !c.HeldBy(actor.UserID) {
		return nil, fmt.Errorf("%w: %w", ErrForbidden, claims.ErrForbidden)
	}
	if !c.Status.CanTransition(claims.StatusCompleted) {
		return nil, fmt.Errorf("%w: claim is already %s", ErrConflict, c.Status)
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	pred, degraded := classify(ctx, rt, logger, cmd.VerifiedText)

	categoryID := categories.UnknownID
	if !degraded {
		categoryID = rt.Categories.Resolve(ctx, pred.Label)
	}

	params := claims.CompleteParams{
		ClaimID:      cmd.ClaimID,
		ReportID:     cmd.ReportID,
		CollectorID:  actor.UserID,
		VerifiedText: cmd.VerifiedText,
		CategoryID:   categoryID,
		Confidence:   pred.Confidence,
		CleanupPhoto: cmd.CleanupPhoto,
		Notes:        cmd.Notes,
	}

	result := CompletionResult{
		Category:   categoryID,
		Label:      pred.Label,
		Confidence: pred.Confidence,
		Degraded:   degraded,
	}

	txCtx := context.WithoutCancel(ctx)
	err = rt.Store.InTx(txCtx, func(s Stores) error {
		claimed, err := s.Claims.MarkCompleted(txCtx, params)
		if err != nil {
			return err
		}

		rep, err := s.Reports.MarkCompleted(txCtx, cmd.ReportID, actor.UserID)
		if errors.Is(err, reports.ErrNotFound) {
			return fmt.Errorf("%w: %w", ErrConflict, err)
		}
		if err != nil {
			return err
		}

		result.Claim = claimed
		result.Report = rep
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}

	return &result, nil
}

// classify calls the classifier under the runtime's timeout. Any failure
// yields a zero prediction and degraded = true.
func classify(ctx context.Context, rt *Runtime, logger *slog.Logger, text string) (classifier.Prediction, bool) {
	if rt.ClassifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rt.ClassifyTimeout)
		defer cancel()
	}

	pred, err := rt.Classifier.Classify(ctx, text)
	if err != nil {
		logger.Warn("classification degraded to unknown", "error", err)
		return classifier.Prediction{}, true
	}
	return pred, false
}
