package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/smartwaste/internal/claims"
	"github.com/JaimeStill/smartwaste/internal/identity"
	"github.com/JaimeStill/smartwaste/internal/notifications"
	"github.com/JaimeStill/smartwaste/internal/reports"
)

// ClaimResult is the claimed report and its new claim.
type ClaimResult struct {
	Report *reports.Report `json:"report"`
	Claim  *claims.Claim   `json:"claim"`
}

// Claim assigns a pending report to the acting collector.
//
// The availability check and the transition are one conditional UPDATE;
// the claim row is inserted in the same transaction only after that update
// matched. Of any number of concurrent callers exactly one succeeds and the
// rest receive ErrConflict. The citizen is notified after commit.
func Claim(ctx context.Context, rt *Runtime, reportID uuid.UUID, actor identity.Identity) (*ClaimResult, error) {
	logger := rt.Logger.With("workflow", "claim", "report_id", reportID, "collector_id", actor.UserID)

	result, err := claim(ctx, rt, reportID, actor)
	rt.Metrics.Claim(outcome(err))

	if err != nil {
		logFailure(logger, "claim rejected", err)
		return nil, err
	}

	logger.Info("report claimed", "claim_id", result.Claim.ID)

	notify(
		ctx, rt, logger,
		result.Report.CitizenID, reportID,
		notifications.TypeClaimed, notifications.ClaimedMessage(reportID),
	)

	return result, nil
}

func claim(ctx context.Context, rt *Runtime, reportID uuid.UUID, actor identity.Identity) (*ClaimResult, error) {
	if !actor.Is(identity.RoleCollector) {
		return nil, fmt.Errorf("%w: only collectors can claim reports", ErrForbidden)
	}

	var result ClaimResult
	err := rt.Store.InTx(ctx, func(s Stores) error {
		rep, err := s.Reports.MarkClaimed(ctx, reportID, actor.UserID)
		if err != nil {
			return err
		}

		c, err := s.Claims.Insert(ctx, reportID, actor.UserID)
		if err != nil {
			return err
		}

		result = ClaimResult{Report: rep, Claim: c}
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}

	return &result, nil
}

// notify records a notification on a context detached from the request.
// Failures are logged and never returned.
func notify(
	ctx context.Context,
	rt *Runtime,
	logger *slog.Logger,
	userID, reportID uuid.UUID,
	typ notifications.Type,
	message string,
) {
	if err := rt.Notifier.Notify(context.WithoutCancel(ctx), userID, reportID, typ, message); err != nil {
		logger.Warn("notification failed", "type", typ, "user_id", userID, "error", err)
	}
}

func logFailure(logger *slog.Logger, msg string, err error) {
	if outcome(err) == "error" {
		logger.Error(msg, "error", err)
		return
	}
	logger.Info(msg, "reason", outcome(err), "error", err)
}
