package workflow_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/smartwaste/internal/categories"
	"github.com/JaimeStill/smartwaste/internal/claims"
	"github.com/JaimeStill/smartwaste/internal/classifier"
	"github.com/JaimeStill/smartwaste/internal/notifications"
	"github.com/JaimeStill/smartwaste/internal/reports"
	"github.com/JaimeStill/smartwaste/internal/workflow"
	"github.com/JaimeStill/smartwaste/pkg/pagination"
)

var errNotSupported = errors.New("not supported by memory store")

// memory is an in-process workflow.Store. Each statement locks on its own,
// so transactions interleave the way they do against Postgres and only the
// conditional updates keep two writers apart. A failed InTx replays its
// undo log.
type memory struct {
	mu      sync.Mutex
	reports map[uuid.UUID]reports.Report
	claims  map[uuid.UUID]claims.Claim
	docs    []reports.Document

	failDocuments bool
}

func newMemory() *memory {
	return &memory{
		reports: make(map[uuid.UUID]reports.Report),
		claims:  make(map[uuid.UUID]claims.Claim),
	}
}

func (m *memory) Stores() workflow.Stores {
	return m.bind(nil)
}

func (m *memory) InTx(ctx context.Context, fn func(workflow.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	log := &undoLog{}
	if err := fn(m.bind(log)); err != nil {
		m.mu.Lock()
		log.rollback()
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memory) bind(log *undoLog) workflow.Stores {
	return workflow.Stores{
		Reports: &memReports{m: m, log: log},
		Claims:  &memClaims{m: m, log: log},
	}
}

func (m *memory) lock() func() {
	m.mu.Lock()
	return m.mu.Unlock
}

// undoLog records how to revert each write of one transaction. Entries are
// added and replayed with memory.mu held. A nil log records nothing.
type undoLog struct {
	mu    sync.Mutex
	steps []func()
}

func (u *undoLog) push(step func()) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.steps = append(u.steps, step)
	u.mu.Unlock()
}

func (u *undoLog) rollback() {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i := len(u.steps) - 1; i >= 0; i-- {
		u.steps[i]()
	}
	u.steps = nil
}

func (u *undoLog) report(m *memory, id uuid.UUID) {
	prev, ok := m.reports[id]
	u.push(func() {
		if ok {
			m.reports[id] = prev
		} else {
			delete(m.reports, id)
		}
	})
}

func (u *undoLog) claim(m *memory, id uuid.UUID) {
	prev, ok := m.claims[id]
	u.push(func() {
		if ok {
			m.claims[id] = prev
		} else {
			delete(m.claims, id)
		}
	})
}

func (u *undoLog) document(m *memory, id uuid.UUID) {
	u.push(func() {
		m.docs = slices.DeleteFunc(m.docs, func(d reports.Document) bool { return d.ID == id })
	})
}

func (m *memory) seedReport(citizen uuid.UUID) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.reports[id] = reports.Report{
		ID:          id,
		CitizenID:   citizen,
		Description: "bottles and wrappers by the canal",
		Status:      reports.StatusPending,
		CreatedAt:   time.Now(),
	}
	return id
}

// seedActiveClaim inserts a claimed row without touching the report.
func (m *memory) seedActiveClaim(reportID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.claims[id] = claims.Claim{
		ID:          id,
		ReportID:    reportID,
		CollectorID: uuid.New(),
		ClaimedAt:   time.Now(),
		Status:      claims.StatusClaimed,
	}
}

func (m *memory) report(id uuid.UUID) reports.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reports[id]
}

func (m *memory) claimsFor(reportID uuid.UUID) []claims.Claim {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []claims.Claim
	for _, c := range m.claims {
		if c.ReportID == reportID {
			out = append(out, c)
		}
	}
	return out
}

func (m *memory) documents() []reports.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]reports.Document(nil), m.docs...)
}

type memReports struct {
	m   *memory
	log *undoLog
}

func (r *memReports) Get(_ context.Context, id uuid.UUID) (*reports.Report, error) {
	defer r.m.lock()()
	rep, ok := r.m.reports[id]
	if !ok {
		return nil, reports.ErrNotFound
	}
	return &rep, nil
}

func (r *memReports) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	defer r.m.lock()()
	_, ok := r.m.reports[id]
	return ok, nil
}

func (r *memReports) Insert(_ context.Context, citizenID uuid.UUID, cmd reports.SubmitCommand) (*reports.Report, error) {
	defer r.m.lock()()
	rep := reports.Report{
		ID:          uuid.New(),
		CitizenID:   citizenID,
		Description: cmd.Description,
		PhotoPath:   cmd.PhotoPath,
		Location:    cmd.Location,
		Status:      reports.StatusPending,
		CreatedAt:   time.Now(),
	}
	r.log.report(r.m, rep.ID)
	r.m.reports[rep.ID] = rep
	return &rep, nil
}

func (r *memReports) List(context.Context, pagination.PageRequest, reports.Filters) (*pagination.PageResult[reports.Report], error) {
	return nil, errNotSupported
}

func (r *memReports) MarkClaimed(_ context.Context, id, collectorID uuid.UUID) (*reports.Report, error) {
	defer r.m.lock()()
	rep, ok := r.m.reports[id]
	if !ok {
		return nil, reports.ErrNotFound
	}
	if rep.Status != reports.StatusPending || rep.CollectorID != nil {
		return nil, reports.ErrConflict
	}
	now := time.Now()
	r.log.report(r.m, id)
	rep.Status = reports.StatusClaimed
	rep.CollectorID = &collectorID
	rep.AssignedAt = &now
	r.m.reports[id] = rep
	return &rep, nil
}

func (r *memReports) MarkCompleted(_ context.Context, id, collectorID uuid.UUID) (*reports.Report, error) {
	defer r.m.lock()()
	rep, ok := r.m.reports[id]
	if !ok {
		return nil, reports.ErrNotFound
	}
	if rep.Status != reports.StatusClaimed || !rep.AssignedTo(collectorID) {
		return nil, reports.ErrConflict
	}
	now := time.Now()
	r.log.report(r.m, id)
	rep.Status = reports.StatusCompleted
	rep.CompletedAt = &now
	r.m.reports[id] = rep
	return &rep, nil
}

func (r *memReports) AddDocument(_ context.Context, reportID uuid.UUID, docType, filePath string) (*reports.Document, error) {
	defer r.m.lock()()
	if r.m.failDocuments {
		return nil, errors.New("disk full")
	}
	doc := reports.Document{
		ID:        uuid.New(),
		ReportID:  reportID,
		DocType:   docType,
		FilePath:  filePath,
		CreatedAt: time.Now(),
	}
	r.log.document(r.m, doc.ID)
	r.m.docs = append(r.m.docs, doc)
	return &doc, nil
}

func (r *memReports) Documents(_ context.Context, reportID uuid.UUID) ([]reports.Document, error) {
	defer r.m.lock()()
	var out []reports.Document
	for _, d := range r.m.docs {
		if d.ReportID == reportID {
			out = append(out, d)
		}
	}
	return out, nil
}

type memClaims struct {
	m   *memory
	log *undoLog
}

func (c *memClaims) Get(_ context.Context, id uuid.UUID) (*claims.Claim, error) {
	defer c.m.lock()()
	cl, ok := c.m.claims[id]
	if !ok {
		return nil, claims.ErrNotFound
	}
	return &cl, nil
}

func (c *memClaims) GetForReport(_ context.Context, id, reportID uuid.UUID) (*claims.Claim, error) {
	defer c.m.lock()()
	cl, ok := c.m.claims[id]
	if !ok || cl.ReportID != reportID {
		return nil, claims.ErrNotFound
	}
	return &cl, nil
}

func (c *memClaims) LatestForReport(_ context.Context, reportID uuid.UUID) (*claims.Claim, error) {
	defer c.m.lock()()
	var latest *claims.Claim
	for _, cl := range c.m.claims {
		if cl.ReportID == reportID && (latest == nil || cl.ClaimedAt.After(latest.ClaimedAt)) {
			latest = &cl
		}
	}
	if latest == nil {
		return nil, claims.ErrNotFound
	}
	return latest, nil
}

func (c *memClaims) Insert(_ context.Context, reportID, collectorID uuid.UUID) (*claims.Claim, error) {
	defer c.m.lock()()
	for _, cl := range c.m.claims {
		if cl.ReportID == reportID && cl.Status == claims.StatusClaimed {
			return nil, claims.ErrConflict
		}
	}
	cl := claims.Claim{
		ID:          uuid.New(),
		ReportID:    reportID,
		CollectorID: collectorID,
		ClaimedAt:   time.Now(),
		Status:      claims.StatusClaimed,
	}
	c.log.claim(c.m, cl.ID)
	c.m.claims[cl.ID] = cl
	return &cl, nil
}

func (c *memClaims) MarkCompleted(_ context.Context, p claims.CompleteParams) (*claims.Claim, error) {
	defer c.m.lock()()
	cl, ok := c.m.claims[p.ClaimID]
	if !ok || cl.ReportID != p.ReportID {
		return nil, claims.ErrNotFound
	}
	if cl.CollectorID != p.CollectorID || cl.Status != claims.StatusClaimed {
		return nil, claims.ErrConflict
	}
	now := time.Now()
	c.log.claim(c.m, cl.ID)
	text, notes, category, confidence := p.VerifiedText, p.Notes, p.CategoryID, p.Confidence
	cl.Status = claims.StatusCompleted
	cl.VerifiedText = &text
	cl.AICategoryID = &category
	cl.AIConfidence = &confidence
	cl.CleanupPhotoPath = p.CleanupPhoto
	cl.Notes = &notes
	cl.CompletedAt = &now
	c.m.claims[cl.ID] = cl
	return &cl, nil
}

func (c *memClaims) List(context.Context, pagination.PageRequest, claims.Filters) (*pagination.PageResult[claims.HistoryEntry], error) {
	return nil, errNotSupported
}

type sentNotification struct {
	UserID   uuid.UUID
	ReportID uuid.UUID
	Type     notifications.Type
	Message  string
}

type notifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *notifier) Notify(_ context.Context, userID, reportID uuid.UUID, typ notifications.Type, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentNotification{userID, reportID, typ, message})
	return nil
}

func (n *notifier) all() []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentNotification(nil), n.sent...)
}

type classifierFunc func(ctx context.Context, text string) (classifier.Prediction, error)

func (f classifierFunc) Classify(ctx context.Context, text string) (classifier.Prediction, error) {
	return f(ctx, text)
}

func predicts(label string, confidence float64) classifier.Classifier {
	return classifierFunc(func(context.Context, string) (classifier.Prediction, error) {
		return classifier.Prediction{Label: label, Confidence: confidence}, nil
	})
}

// categoryTable resolves labels case-insensitively through the fallback.
type categoryTable struct{}

var categoryNames = map[int]string{0: "Unknown", 1: "Organic", 2: "Recyclable", 3: "Hazardous"}

func (categoryTable) Resolve(_ context.Context, label string) int {
	return categories.Fallback(label)
}

func (categoryTable) Find(_ context.Context, id int) (*categories.Category, error) {
	name, ok := categoryNames[id]
	if !ok {
		return nil, categories.ErrNotFound
	}
	return &categories.Category{ID: id, Name: name}, nil
}
