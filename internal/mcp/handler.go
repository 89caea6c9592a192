package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rpggio/siteledger/internal/domain/project"
	"github.com/rpggio/siteledger/internal/filter"
	"github.com/rpggio/siteledger/internal/ledger"
	"github.com/rpggio/siteledger/internal/stats"
)

// Method names outside the ledger mutation set.
const (
	MethodGetAll  = "projects.getAll"
	MethodStats   = "projects.stats"
	MethodFilter  = "projects.filter"
	MethodSummary = "analytics.summary"
)

// LedgerService defines the ledger operations the mirror exposes.
type LedgerService interface {
	Projects() []project.Project
	Project(id string) (*project.Project, error)
	CreateProject(ctx context.Context, req ledger.CreateProjectRequest) (*project.Project, error)
	UpdateProject(ctx context.Context, id string, patch ledger.ProjectPatch) (*project.Project, error)
	DeleteProject(ctx context.Context, id string) (bool, error)
	AddExpense(ctx context.Context, projectID string, req ledger.CreateExpenseRequest) (*project.Expense, error)
	UpdateExpense(ctx context.Context, projectID, expenseID string, patch ledger.ExpensePatch) (*project.Expense, error)
	DeleteExpense(ctx context.Context, projectID, expenseID string) (bool, error)
	AddChangeOrder(ctx context.Context, projectID string, req ledger.CreateChangeOrderRequest) (*project.ChangeOrder, error)
	UpdateChangeOrder(ctx context.Context, projectID, changeOrderID string, patch ledger.ChangeOrderPatch) (*project.ChangeOrder, error)
	DeleteChangeOrder(ctx context.Context, projectID, changeOrderID string) (bool, error)
}

type method func(ctx context.Context, params json.RawMessage) (any, error)

// Handler validates mirror requests and applies them to the ledger.
type Handler struct {
	ledger   LedgerService
	now      func() time.Time
	validate *validator.Validate
	methods  map[string]method
}

// NewHandler creates a handler. A nil now uses time.Now.
func NewHandler(svc LedgerService, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	h := &Handler{ledger: svc, now: now, validate: v}
	h.methods = map[string]method{
		MethodGetAll:                       bind(h.GetAll),
		string(ledger.OpProjectCreate):     bind(h.CreateProject),
		string(ledger.OpProjectUpdate):     bind(h.UpdateProject),
		string(ledger.OpProjectDelete):     bind(h.DeleteProject),
		string(ledger.OpExpenseCreate):     bind(h.CreateExpense),
		string(ledger.OpExpenseUpdate):     bind(h.UpdateExpense),
		string(ledger.OpExpenseDelete):     bind(h.DeleteExpense),
		string(ledger.OpChangeOrderCreate): bind(h.CreateChangeOrder),
		string(ledger.OpChangeOrderUpdate): bind(h.UpdateChangeOrder),
		string(ledger.OpChangeOrderDelete): bind(h.DeleteChangeOrder),
		MethodStats:                        bind(h.ProjectStats),
		MethodFilter:                       bind(h.Filter),
		MethodSummary:                      bind(h.Summary),
	}
	return h
}

// Handle dispatches a method call with JSON params. Errors are *APIError
// where the cause is known.
func (h *Handler) Handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	m, ok := h.methods[method]
	if !ok {
		return nil, mapError(fmt.Errorf("%w: %s", ErrUnknownMethod, method))
	}
	result, err := m(ctx, params)
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// Methods lists the method names Handle accepts.
func (h *Handler) Methods() []string {
	names := make([]string, 0, len(h.methods))
	for name := range h.methods {
		names = append(names, name)
	}
	return names
}

func bind[P any, R any](call func(context.Context, P) (R, error)) method {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var params P
		if err := decodeParams(raw, &params); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
		result, err := call(ctx, params)
		if err != nil {
			return nil, err
		}
		return result, nil
	}
}

func decodeParams(params json.RawMessage, out any) error {
	if len(bytes.TrimSpace(params)) == 0 || bytes.Equal(bytes.TrimSpace(params), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(params))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

// check runs struct validation and reports failures as an APIError listing
// each field and the rule it broke.
func (h *Handler) check(params any) error {
	err := h.validate.Struct(params)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	fields := make(map[string]string, len(verrs))
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = rule(fe)
		names = append(names, fe.Field())
	}
	return &APIError{
		Code:         CodeInvalidParams,
		Message:      "invalid params: " + strings.Join(names, ", "),
		Details:      fields,
		RecoveryHint: "Fix the listed fields",
	}
}

func rule(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

func invalidField(field, reason string) error {
	return &APIError{
		Code:         CodeInvalidParams,
		Message:      "invalid params: " + field,
		Details:      map[string]string{field: reason},
		RecoveryHint: "Fix the listed fields",
	}
}

// parseDate accepts RFC 3339 timestamps and YYYY-MM-DD dates.
func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, invalidField(field, "date")
}

func (h *Handler) GetAll(_ context.Context, _ EmptyParams) (ProjectsResponse, error) {
	return ProjectsResponse{Projects: h.ledger.Projects()}, nil
}

func (h *Handler) CreateProject(ctx context.Context, p CreateProjectParams) (ProjectResponse, error) {
	if err := h.check(p); err != nil {
		return ProjectResponse{}, err
	}
	start, err := parseDate("projectStartDate", p.ProjectStartDate)
	if err != nil {
		return ProjectResponse{}, err
	}
	created, err := h.ledger.CreateProject(ctx, ledger.CreateProjectRequest{
		ID:               p.ID,
		Name:             p.Name,
		Address:          p.Address,
		Client:           p.Client,
		TotalRevenue:     p.TotalRevenue,
		ProjectStartDate: start,
		Notes:            p.Notes,
	})
	if err != nil {
		return ProjectResponse{}, err
	}
	return ProjectResponse{Project: created}, nil
}

func (h *Handler) UpdateProject(ctx context.Context, p UpdateProjectParams) (ProjectResponse, error) {
	if err := h.check(p); err != nil {
		return ProjectResponse{}, err
	}
	patch := ledger.ProjectPatch{
		Name:         p.Name,
		Address:      p.Address,
		Client:       p.Client,
		TotalRevenue: p.TotalRevenue,
		Notes:        p.Notes,
		IsCompleted:  p.IsCompleted,
	}
	if p.ProjectStartDate != nil {
		start, err := parseDate("projectStartDate", *p.ProjectStartDate)
		if err != nil {
			return ProjectResponse{}, err
		}
		patch.ProjectStartDate = &start
	}
	updated, err := h.ledger.UpdateProject(ctx, p.ID, patch)
	if err != nil {
		return ProjectResponse{}, err
	}
	return ProjectResponse{Project: updated}, nil
}

func (h *Handler) DeleteProject(ctx context.Context, p IDParams) (DeletedResponse, error) {
	if err := h.check(p); err != nil {
		return DeletedResponse{}, err
	}
	deleted, err := h.ledger.DeleteProject(ctx, p.ID)
	return DeletedResponse{Deleted: deleted}, err
}

func (h *Handler) CreateExpense(ctx context.Context, p CreateExpenseParams) (ExpenseResponse, error) {
	if err := h.check(p); err != nil {
		return ExpenseResponse{}, err
	}
	added, err := h.ledger.AddExpense(ctx, p.ProjectID, ledger.CreateExpenseRequest{
		ID:          p.ID,
		Category:    project.Category(p.Category),
		Subcategory: p.Subcategory,
		Amount:      p.Amount,
		Description: p.Description,
	})
	if err != nil {
		return ExpenseResponse{}, err
	}
	return ExpenseResponse{Expense: added}, nil
}

func (h *Handler) UpdateExpense(ctx context.Context, p UpdateExpenseParams) (ExpenseResponse, error) {
	if err := h.check(p); err != nil {
		return ExpenseResponse{}, err
	}
	patch := ledger.ExpensePatch{
		Subcategory: p.Subcategory,
		Amount:      p.Amount,
		Description: p.Description,
	}
	if p.Category != nil {
		c := project.Category(*p.Category)
		patch.Category = &c
	}
	updated, err := h.ledger.UpdateExpense(ctx, p.ProjectID, p.ID, patch)
	if err != nil {
		return ExpenseResponse{}, err
	}
	return ExpenseResponse{Expense: updated}, nil
}

func (h *Handler) DeleteExpense(ctx context.Context, p ItemParams) (DeletedResponse, error) {
	if err := h.check(p); err != nil {
		return DeletedResponse{}, err
	}
	deleted, err := h.ledger.DeleteExpense(ctx, p.ProjectID, p.ID)
	return DeletedResponse{Deleted: deleted}, err
}

func (h *Handler) CreateChangeOrder(ctx context.Context, p CreateChangeOrderParams) (ChangeOrderResponse, error) {
	if err := h.check(p); err != nil {
		return ChangeOrderResponse{}, err
	}
	added, err := h.ledger.AddChangeOrder(ctx, p.ProjectID, ledger.CreateChangeOrderRequest{
		ID:          p.ID,
		Description: p.Description,
		Amount:      p.Amount,
		Approved:    p.Approved,
	})
	if err != nil {
		return ChangeOrderResponse{}, err
	}
	return ChangeOrderResponse{ChangeOrder: added}, nil
}

func (h *Handler) UpdateChangeOrder(ctx context.Context, p UpdateChangeOrderParams) (ChangeOrderResponse, error) {
	if err := h.check(p); err != nil {
		return ChangeOrderResponse{}, err
	}
	updated, err := h.ledger.UpdateChangeOrder(ctx, p.ProjectID, p.ID, ledger.ChangeOrderPatch{
		Description: p.Description,
		Amount:      p.Amount,
		Approved:    p.Approved,
	})
	if err != nil {
		return ChangeOrderResponse{}, err
	}
	return ChangeOrderResponse{ChangeOrder: updated}, nil
}

func (h *Handler) DeleteChangeOrder(ctx context.Context, p ItemParams) (DeletedResponse, error) {
	if err := h.check(p); err != nil {
		return DeletedResponse{}, err
	}
	deleted, err := h.ledger.DeleteChangeOrder(ctx, p.ProjectID, p.ID)
	return DeletedResponse{Deleted: deleted}, err
}

func (h *Handler) ProjectStats(_ context.Context, p IDParams) (ProjectStatsResponse, error) {
	if err := h.check(p); err != nil {
		return ProjectStatsResponse{}, err
	}
	proj, err := h.ledger.Project(p.ID)
	if err != nil {
		return ProjectStatsResponse{}, err
	}
	return ProjectStatsResponse{ProjectID: proj.ID, Stats: stats.Calculate(*proj)}, nil
}

func (h *Handler) Filter(_ context.Context, p FilterParams) (ProjectsResponse, error) {
	selected, err := h.selection(p)
	if err != nil {
		return ProjectsResponse{}, err
	}
	return ProjectsResponse{Projects: selected}, nil
}

func (h *Handler) Summary(_ context.Context, p FilterParams) (AnalyticsResponse, error) {
	selected, err := h.selection(p)
	if err != nil {
		return AnalyticsResponse{}, err
	}
	return AnalyticsResponse{
		Summary:    stats.Summarize(selected),
		Categories: stats.ByCategory(selected),
		Clients:    stats.ByClient(selected),
		Months:     stats.ByMonth(selected),
	}, nil
}

func (h *Handler) selection(p FilterParams) ([]project.Project, error) {
	if err := h.check(p); err != nil {
		return nil, err
	}
	criteria, err := filter.ParseCriteria(p.Status, p.Period, p.Client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return filter.Apply(h.ledger.Projects(), criteria, h.now()), nil
}
