package workflow

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/JaimeStill/smartwaste/internal/categories"
	"github.com/JaimeStill/smartwaste/internal/claims"
	"github.com/JaimeStill/smartwaste/internal/classifier"
	"github.com/JaimeStill/smartwaste/internal/metrics"
	"github.com/JaimeStill/smartwaste/internal/notifications"
	"github.com/JaimeStill/smartwaste/internal/reports"
	"github.com/JaimeStill/smartwaste/pkg/repository"
)

// Stores is a set of stores bound to the same connection or transaction.
type Stores struct {
	Reports reports.Store
	Claims  claims.Store
}

// Store hands out Stores bound to the pool or to a single transaction.
type Store interface {
	Stores() Stores

	// InTx runs fn inside one transaction, committing when fn returns nil.
	InTx(ctx context.Context, fn func(Stores) error) error
}

// Categories resolves classifier labels and loads categories by id.
type Categories interface {
	categories.Resolver
	Find(ctx context.Context, id int) (*categories.Category, error)
}

// Runtime bundles the dependencies the workflows require. It is assembled
// by the API composition layer from infrastructure and domain systems.
type Runtime struct {
	Store      Store
	Classifier classifier.Classifier
	Categories Categories
	Notifier   notifications.Notifier
	Metrics    *metrics.Metrics
	Logger     *slog.Logger

	// ClassifyTimeout bounds the classification step of a completion.
	// Zero leaves the bound to the classifier client.
	ClassifyTimeout time.Duration
}

type sqlStore struct {
	db *sql.DB
}

// NewStore returns a Store backed by db.
func NewStore(db *sql.DB) Store {
	return &sqlStore{db: db}
}

func (s *sqlStore) Stores() Stores {
	return bind(s.db)
}

func (s *sqlStore) InTx(ctx context.Context, fn func(Stores) error) error {
	_, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, fn(bind(tx))
	})
	return err
}

func bind(db repository.DBTX) Stores {
	return Stores{
		Reports: reports.NewStore(db),
		Claims:  claims.NewStore(db),
	}
}
