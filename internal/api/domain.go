package api

import (
	"github.com/JaimeStill/smartwaste/internal/categories"
	"github.com/JaimeStill/smartwaste/internal/claims"
	"github.com/JaimeStill/smartwaste/internal/classifier"
	"github.com/JaimeStill/smartwaste/internal/config"
	"github.com/JaimeStill/smartwaste/internal/notifications"
	"github.com/JaimeStill/smartwaste/internal/reports"
	"github.com/JaimeStill/smartwaste/internal/workflow"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Reports       reports.System
	Claims        claims.System
	Categories    categories.System
	Notifications notifications.System
	Workflow      *workflow.Runtime
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(cfg *config.Config, runtime *Runtime) *Domain {
	db := runtime.Database.Connection()

	reportsSystem := reports.New(db, runtime.Logger, runtime.Pagination)
	claimsSystem := claims.New(db, runtime.Logger, runtime.Pagination)
	categoriesSystem := categories.New(db, runtime.Logger)
	notificationsSystem := notifications.New(db, runtime.Logger, runtime.Pagination)

	classifierClient := classifier.New(&cfg.Classifier, runtime.Logger, runtime.Metrics)

	return &Domain{
		Reports:       reportsSystem,
		Claims:        claimsSystem,
		Categories:    categoriesSystem,
		Notifications: notificationsSystem,
		Workflow: &workflow.Runtime{
			Store:           workflow.NewStore(db),
			Classifier:      classifierClient,
			Categories:      categoriesSystem,
			Notifier:        notificationsSystem,
			Metrics:         runtime.Metrics,
			Logger:          runtime.Logger,
			ClassifyTimeout: cfg.Classifier.TimeoutDuration(),
		},
	}
}
