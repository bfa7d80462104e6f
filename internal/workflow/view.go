package workflow

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/JaimeStill/smartwaste/internal/categories"
	"github.com/JaimeStill/smartwaste/internal/claims"
	"github.com/JaimeStill/smartwaste/internal/identity"
	"github.com/JaimeStill/smartwaste/internal/reports"
)

// ReportView is a report together with its latest claim, the resolved
// category of that claim, and any evidence documents.
type ReportView struct {
	Report    *reports.Report      `json:"report"`
	Claim     *claims.Claim        `json:"claim"`
	Category  *categories.Category `json:"category"`
	Documents []reports.Document   `json:"documents"`
}

// View loads the ReportView of a report visible to actor.
func View(ctx context.Context, rt *Runtime, reportID uuid.UUID, actor identity.Identity) (*ReportView, error) {
	s := rt.Store.Stores()

	rep, err := s.Reports.Get(ctx, reportID)
	if err != nil {
		return nil, translate(err)
	}
	if err := reports.CanView(actor, rep); err != nil {
		return nil, translate(err)
	}

	view := &ReportView{Report: rep}

	c, err := s.Claims.LatestForReport(ctx, reportID)
	switch {
	case errors.Is(err, claims.ErrNotFound):
	case err != nil:
		return nil, translate(err)
	default:
		view.Claim = c
	}

	if c != nil && c.AICategoryID != nil {
		cat, err := rt.Categories.Find(ctx, *c.AICategoryID)
		if err != nil {
			rt.Logger.Warn("category lookup failed", "category_id", *c.AICategoryID, "error", err)
		} else {
			view.Category = cat
		}
	}

	docs, err := s.Reports.Documents(ctx, reportID)
	if err != nil {
		return nil, translate(err)
	}
	view.Documents = docs

	return view, nil
}
