// Package ledger owns the in-memory project collection. Every mutation
// builds a new collection, saves it through the store, and then swaps it
// in, so readers always see a whole collection.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/siteledger/internal/domain/project"
	"github.com/rpggio/siteledger/internal/store"
)

// Store persists the whole project collection.
type Store interface {
	Load(ctx context.Context) ([]project.Project, error)
	Save(ctx context.Context, projects []project.Project) error
	Clear(ctx context.Context) error
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source used for creation and completion stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator sets the generator for new record ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithSyncer sets the receiver of saved changes.
func WithSyncer(syncer Syncer) Option {
	return func(s *Service) { s.syncer = syncer }
}

// Service handles project, expense, and change order mutations.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
	syncer Syncer

	// mu serializes writers; readers use the projects pointer directly.
	mu       sync.Mutex
	projects atomic.Pointer[[]project.Project]
}

// NewService creates a ledger service with an empty collection. Call Load
// to read the stored collection.
func NewService(st Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{
		store:  st,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	empty := []project.Project{}
	s.projects.Store(&empty)
	return s
}

// Load replaces the in-memory collection with the stored one.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading projects: %w", err)
	}
	s.projects.Store(&projects)
	s.logger.Info("loaded projects", "count", len(projects))
	return nil
}

// Projects returns a copy of the collection in insertion order.
func (s *Service) Projects() []project.Project {
	current := s.snapshot()
	out := make([]project.Project, len(current))
	for i := range current {
		out[i] = current[i].Clone()
	}
	return out
}

// Project returns a copy of the project with the given id.
func (s *Service) Project(id string) (*project.Project, error) {
	current := s.snapshot()
	i := project.Find(current, id)
	if i < 0 {
		return nil, project.ErrProjectNotFound
	}
	p := current[i].Clone()
	return &p, nil
}

// ClearAll removes every project from storage and memory.
func (s *Service) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	empty := []project.Project{}
	s.projects.Store(&empty)
	s.logger.Info("cleared all projects")
	return nil
}

// CreateProject appends a new project with no expenses or change orders.
func (s *Service) CreateProject(ctx context.Context, req CreateProjectRequest) (*project.Project, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.snapshot()
	id, err := s.assignID(req.ID, func(id string) bool { return project.Find(current, id) >= 0 })
	if err != nil {
		return nil, err
	}

	proj := project.Project{
		ID:               id,
		Name:             req.Name,
		Address:          req.Address,
		Client:           req.Client,
		TotalRevenue:     req.TotalRevenue,
		ProjectStartDate: req.ProjectStartDate.UTC(),
		CreatedAt:        s.stamp(),
		IsCompleted:      false,
		Notes:            req.Notes,
		Expenses:         []project.Expense{},
		ChangeOrders:     []project.ChangeOrder{},
	}

	next := append(slices.Clone(current), proj)
	if err := s.commit(ctx, next, Change{Op: OpProjectCreate, ProjectID: id, Project: &proj}); err != nil {
		return nil, err
	}
	return cloned(proj), nil
}

// UpdateProject merges patch onto the project. An unknown id is a no-op
// and returns nil.
func (s *Service) UpdateProject(ctx context.Context, id string, patch ProjectPatch) (*project.Project, error) {
	if err := patch.validate(); err != nil {
		return nil, err
	}
	p, err := s.mutateProject(ctx, id, func(p *project.Project) (Change, error) {
		patch.apply(p, s.stamp())
		return Change{Op: OpProjectUpdate}, nil
	})
	if isNoop(err) {
		return nil, nil
	}
	return p, err
}

// CompleteProject marks the project completed now.
func (s *Service) CompleteProject(ctx context.Context, id string) (*project.Project, error) {
	completed := true
	return s.UpdateProject(ctx, id, ProjectPatch{IsCompleted: &completed})
}

// ReopenProject marks the project active and clears its completion time.
func (s *Service) ReopenProject(ctx context.Context, id string) (*project.Project, error) {
	completed := false
	return s.UpdateProject(ctx, id, ProjectPatch{IsCompleted: &completed})
}

// DeleteProject removes the project and everything it owns. It reports
// whether a project was removed.
func (s *Service) DeleteProject(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.snapshot()
	i := project.Find(current, id)
	if i < 0 {
		s.logger.Debug("delete of unknown project ignored", "project_id", id)
		return false, nil
	}

	next := slices.Delete(slices.Clone(current), i, i+1)
	if err := s.commit(ctx, next, Change{Op: OpProjectDelete, ProjectID: id}); err != nil {
		return false, err
	}
	return true, nil
}

// AddExpense appends an expense dated now to the project.
func (s *Service) AddExpense(ctx context.Context, projectID string, req CreateExpenseRequest) (*project.Expense, error) {
	if err := project.ValidateExpense(req.Category, req.Amount); err != nil {
		return nil, err
	}

	var added project.Expense
	_, err := s.mutateProject(ctx, projectID, func(p *project.Project) (Change, error) {
		id, err := s.assignID(req.ID, func(id string) bool { return p.FindExpense(id) >= 0 })
		if err != nil {
			return Change{}, err
		}
		added = project.Expense{
			ID:          id,
			Category:    req.Category,
			Subcategory: req.Subcategory,
			Amount:      req.Amount,
			Description: req.Description,
			Date:        s.stamp(),
		}
		p.Expenses = append(p.Expenses, added)
		return Change{Op: OpExpenseCreate, ItemID: id, Expense: &added}, nil
	})
	if err != nil {
		return nil, err
	}
	out := added
	return &out, nil
}

// UpdateExpense merges patch onto the expense. Unknown ids are a no-op and
// return nil.
func (s *Service) UpdateExpense(ctx context.Context, projectID, expenseID string, patch ExpensePatch) (*project.Expense, error) {
	if err := patch.validate(); err != nil {
		return nil, err
	}

	var updated project.Expense
	_, err := s.mutateProject(ctx, projectID, func(p *project.Project) (Change, error) {
		i := p.FindExpense(expenseID)
		if i < 0 {
			return Change{}, errNoChange
		}
		patch.apply(&p.Expenses[i])
		updated = p.Expenses[i]
		return Change{Op: OpExpenseUpdate, ItemID: expenseID, Expense: &updated}, nil
	})
	if isNoop(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := updated
	return &out, nil
}

// DeleteExpense removes the expense. It reports whether one was removed.
func (s *Service) DeleteExpense(ctx context.Context, projectID, expenseID string) (bool, error) {
	_, err := s.mutateProject(ctx, projectID, func(p *project.Project) (Change, error) {
		i := p.FindExpense(expenseID)
		if i < 0 {
			return Change{}, errNoChange
		}
		p.Expenses = slices.Delete(p.Expenses, i, i+1)
		return Change{Op: OpExpenseDelete, ItemID: expenseID}, nil
	})
	if isNoop(err) {
		return false, nil
	}
	return err == nil, err
}

// AddChangeOrder appends a change order dated now to the project.
func (s *Service) AddChangeOrder(ctx context.Context, projectID string, req CreateChangeOrderRequest) (*project.ChangeOrder, error) {
	if err := project.ValidateChangeOrder(req.Description, req.Amount); err != nil {
		return nil, err
	}

	var added project.ChangeOrder
	_, err := s.mutateProject(ctx, projectID, func(p *project.Project) (Change, error) {
		id, err := s.assignID(req.ID, func(id string) bool { return p.FindChangeOrder(id) >= 0 })
		if err != nil {
			return Change{}, err
		}
		added = project.ChangeOrder{
			ID:          id,
			Description: req.Description,
			Amount:      req.Amount,
			Date:        s.stamp(),
			Approved:    req.Approved,
		}
		p.ChangeOrders = append(p.ChangeOrders, added)
		return Change{Op: OpChangeOrderCreate, ItemID: id, ChangeOrder: &added}, nil
	})
	if err != nil {
		return nil, err
	}
	out := added
	return &out, nil
}

// UpdateChangeOrder merges patch onto the change order. Unknown ids are a
// no-op and return nil.
func (s *Service) UpdateChangeOrder(ctx context.Context, projectID, changeOrderID string, patch ChangeOrderPatch) (*project.ChangeOrder, error) {
	if err := patch.validate(); err != nil {
		return nil, err
	}

	var updated project.ChangeOrder
	_, err := s.mutateProject(ctx, projectID, func(p *project.Project) (Change, error) {
		i := p.FindChangeOrder(changeOrderID)
		if i < 0 {
			return Change{}, errNoChange
		}
		patch.apply(&p.ChangeOrders[i])
		updated = p.ChangeOrders[i]
		return Change{Op: OpChangeOrderUpdate, ItemID: changeOrderID, ChangeOrder: &updated}, nil
	})
	if isNoop(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := updated
	return &out, nil
}

// DeleteChangeOrder removes the change order. It reports whether one was removed.
func (s *Service) DeleteChangeOrder(ctx context.Context, projectID, changeOrderID string) (bool, error) {
	_, err := s.mutateProject(ctx, projectID, func(p *project.Project) (Change, error) {
		i := p.FindChangeOrder(changeOrderID)
		if i < 0 {
			return Change{}, errNoChange
		}
		p.ChangeOrders = slices.Delete(p.ChangeOrders, i, i+1)
		return Change{Op: OpChangeOrderDelete, ItemID: changeOrderID}, nil
	})
	if isNoop(err) {
		return false, nil
	}
	return err == nil, err
}

// errNoChange is returned by a mutation that found nothing to change.
var errNoChange = errors.New("no change")

// isNoop reports whether err means a lookup missed and nothing was saved.
func isNoop(err error) bool {
	return errors.Is(err, errNoChange) || errors.Is(err, project.ErrProjectNotFound)
}

// mutateProject applies fn to a copy of the project and commits the
// result. A missing project yields project.ErrProjectNotFound and an error
// from fn is returned as is; neither saves anything.
func (s *Service) mutateProject(ctx context.Context, id string, fn func(*project.Project) (Change, error)) (*project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.snapshot()
	i := project.Find(current, id)
	if i < 0 {
		s.logger.Debug("mutation of unknown project ignored", "project_id", id)
		return nil, project.ErrProjectNotFound
	}

	p := current[i].Clone()
	change, err := fn(&p)
	if err != nil {
		return nil, err
	}

	next := slices.Clone(current)
	next[i] = p
	change.ProjectID = id
	change.Project = cloned(p)
	if err := s.commit(ctx, next, change); err != nil {
		return nil, err
	}
	return cloned(p), nil
}

// commit saves next and makes it the current collection. On a size or
// encoding rejection nothing changes. On a failed write the collection
// becomes whatever the store restored, or stays at next when it could not
// restore.
func (s *Service) commit(ctx context.Context, next []project.Project, change Change) error {
	err := s.store.Save(ctx, next)
	if err == nil {
		s.projects.Store(&next)
		s.logger.Debug("saved projects", "op", change.Op, "project_id", change.ProjectID, "count", len(next))
		if s.syncer != nil {
			s.syncer.Publish(change)
		}
		return nil
	}

	var saveErr *store.SaveError
	if !errors.As(err, &saveErr) {
		return fmt.Errorf("saving projects: %w", err)
	}
	if saveErr.Recovered {
		restored := saveErr.Restored
		s.projects.Store(&restored)
		s.logger.Warn("save failed, rolled back to backup", "op", change.Op, "project_id", change.ProjectID, "error", err)
		return fmt.Errorf("%w: %w", ErrRolledBack, err)
	}
	s.projects.Store(&next)
	s.logger.Error("save failed, keeping unsaved changes in memory", "op", change.Op, "project_id", change.ProjectID, "error", err)
	return fmt.Errorf("%w: %w", ErrNotPersisted, err)
}

func (s *Service) snapshot() []project.Project {
	return *s.projects.Load()
}

func (s *Service) stamp() time.Time {
	return s.now().UTC()
}

// assignID returns requested when it is free, or a generated id when
// requested is empty.
func (s *Service) assignID(requested string, taken func(string) bool) (string, error) {
	if requested == "" {
		return s.newID(), nil
	}
	if taken(requested) {
		return "", project.ErrDuplicateID
	}
	return requested, nil
}

func cloned(p project.Project) *project.Project {
	out := p.Clone()
	return &out
}
