package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/siteledger/internal/domain/project"
	"github.com/rpggio/siteledger/internal/ledger"
	"github.com/rpggio/siteledger/internal/storage"
	"github.com/rpggio/siteledger/internal/storage/mocks"
	"github.com/rpggio/siteledger/internal/store"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	mem   *storage.Memory
	store *store.Store
	svc   *ledger.Service
	sync  *recordingSyncer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mem := storage.NewMemory()
	st := store.New(mem, nil, store.Options{Now: func() time.Time { return fixedNow }})
	syncer := &recordingSyncer{}
	svc := ledger.NewService(st, nil,
		ledger.WithClock(func() time.Time { return fixedNow }),
		ledger.WithIDGenerator(sequentialIDs()),
		ledger.WithSyncer(syncer),
	)
	require.NoError(t, svc.Load(context.Background()))
	return &testEnv{mem: mem, store: st, svc: svc, sync: syncer}
}

func (e *testEnv) raw(t *testing.T) string {
	t.Helper()
	raw, err := e.mem.Get(context.Background(), store.DefaultPrimaryKey)
	require.NoError(t, err)
	return raw
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

type recordingSyncer struct {
	mu      sync.Mutex
	changes []ledger.Change
}

func (r *recordingSyncer) Publish(change ledger.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
}

func (r *recordingSyncer) ops() []ledger.Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make([]ledger.Op, 0, len(r.changes))
	for _, c := range r.changes {
		ops = append(ops, c.Op)
	}
	return ops
}

func createProject(t *testing.T, svc *ledger.Service, name string) *project.Project {
	t.Helper()
	p, err := svc.CreateProject(context.Background(), ledger.CreateProjectRequest{
		Name:             name,
		Client:           "Private Owner",
		TotalRevenue:     10000,
		ProjectStartDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return p
}

func TestService_CreateProject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := createProject(t, env.svc, "Kitchen")
	require.Equal(t, "id-1", p.ID)
	require.Equal(t, fixedNow, p.CreatedAt)
	require.False(t, p.IsCompleted)
	require.Nil(t, p.CompletedAt)
	require.NotNil(t, p.Expenses)
	require.Empty(t, p.Expenses)
	require.NotNil(t, p.ChangeOrders)
	require.Empty(t, p.ChangeOrders)

	createProject(t, env.svc, "Deck")
	projects := env.svc.Projects()
	require.Len(t, projects, 2)
	require.Equal(t, "Kitchen", projects[0].Name)
	require.Equal(t, "Deck", projects[1].Name)

	// A fresh service over the same storage sees the same collection
	other := ledger.NewService(env.store, nil)
	require.NoError(t, other.Load(ctx))
	require.Equal(t, projects, other.Projects())
}

func TestService_CreateProjectValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	_, err := env.svc.CreateProject(ctx, ledger.CreateProjectRequest{Name: " ", ProjectStartDate: start})
	require.ErrorIs(t, err, project.ErrInvalidInput)

	_, err = env.svc.CreateProject(ctx, ledger.CreateProjectRequest{Name: "x", ProjectStartDate: start, TotalRevenue: -1})
	require.ErrorIs(t, err, project.ErrInvalidInput)

	_, err = env.svc.CreateProject(ctx, ledger.CreateProjectRequest{Name: "x"})
	require.ErrorIs(t, err, project.ErrInvalidInput)

	require.Empty(t, env.svc.Projects())
	_, err = env.mem.Get(ctx, store.DefaultPrimaryKey)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestService_CreateProjectWithID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	p, err := env.svc.CreateProject(ctx, ledger.CreateProjectRequest{ID: "remote-1", Name: "Mirror", ProjectStartDate: start})
	require.NoError(t, err)
	require.Equal(t, "remote-1", p.ID)

	_, err = env.svc.CreateProject(ctx, ledger.CreateProjectRequest{ID: "remote-1", Name: "Again", ProjectStartDate: start})
	require.ErrorIs(t, err, project.ErrDuplicateID)
	require.Len(t, env.svc.Projects(), 1)
}

func TestService_UpdateProject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := createProject(t, env.svc, "Kitchen")

	name := "Kitchen and Bath"
	revenue := 12500.0
	updated, err := env.svc.UpdateProject(ctx, p.ID, ledger.ProjectPatch{Name: &name, TotalRevenue: &revenue})
	require.NoError(t, err)
	require.Equal(t, name, updated.Name)
	require.Equal(t, revenue, updated.TotalRevenue)
	require.Equal(t, p.Client, updated.Client)
	require.Equal(t, p.CreatedAt, updated.CreatedAt)

	stored, err := env.svc.Project(p.ID)
	require.NoError(t, err)
	require.Equal(t, updated, stored)

	empty := ""
	_, err = env.svc.UpdateProject(ctx, p.ID, ledger.ProjectPatch{Name: &empty})
	require.ErrorIs(t, err, project.ErrInvalidInput)
}

func TestService_CompleteAndReopen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := createProject(t, env.svc, "Kitchen")

	completed, err := env.svc.CompleteProject(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, completed.IsCompleted)
	require.NotNil(t, completed.CompletedAt)
	require.Equal(t, fixedNow, *completed.CompletedAt)

	reopened, err := env.svc.ReopenProject(ctx, p.ID)
	require.NoError(t, err)
	require.False(t, reopened.IsCompleted)
	require.Nil(t, reopened.CompletedAt)

	missing, err := env.svc.CompleteProject(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestService_DeleteProjectCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := createProject(t, env.svc, "Kitchen")
	keep := createProject(t, env.svc, "Deck")

	_, err := env.svc.AddExpense(ctx, p.ID, ledger.CreateExpenseRequest{Category: project.CategoryLabor, Amount: 10})
	require.NoError(t, err)

	removed, err := env.svc.DeleteProject(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, removed)

	projects := env.svc.Projects()
	require.Len(t, projects, 1)
	require.Equal(t, keep.ID, projects[0].ID)

	_, err = env.svc.Project(p.ID)
	require.ErrorIs(t, err, project.ErrProjectNotFound)
}

func TestService_Expenses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := createProject(t, env.svc, "Kitchen")

	e, err := env.svc.AddExpense(ctx, p.ID, ledger.CreateExpenseRequest{
		Category:    project.CategoryMaterials,
		Subcategory: "Lumber",
		Amount:      3000,
		Description: "Framing",
	})
	require.NoError(t, err)
	require.Equal(t, fixedNow, e.Date)

	amount := 3200.0
	category := project.CategoryContractors
	updated, err := env.svc.UpdateExpense(ctx, p.ID, e.ID, ledger.ExpensePatch{Amount: &amount, Category: &category})
	require.NoError(t, err)
	require.Equal(t, amount, updated.Amount)
	require.Equal(t, category, updated.Category)
	require.Equal(t, "Lumber", updated.Subcategory)
	require.Equal(t, e.Date, updated.Date)

	bad := project.Category("tools")
	_, err = env.svc.UpdateExpense(ctx, p.ID, e.ID, ledger.ExpensePatch{Category: &bad})
	require.ErrorIs(t, err, project.ErrInvalidInput)

	removed, err := env.svc.DeleteExpense(ctx, p.ID, e.ID)
	require.NoError(t, err)
	require.True(t, removed)

	stored, err := env.svc.Project(p.ID)
	require.NoError(t, err)
	require.Empty(t, stored.Expenses)
}

func TestService_AddExpenseValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := createProject(t, env.svc, "Kitchen")

	_, err := env.svc.AddExpense(ctx, p.ID, ledger.CreateExpenseRequest{Category: "tools", Amount: 1})
	require.ErrorIs(t, err, project.ErrInvalidInput)

	_, err = env.svc.AddExpense(ctx, p.ID, ledger.CreateExpenseRequest{Category: project.CategoryLabor, Amount: -5})
	require.ErrorIs(t, err, project.ErrInvalidInput)

	_, err = env.svc.AddExpense(ctx, "missing", ledger.CreateExpenseRequest{Category: project.CategoryLabor, Amount: 5})
	require.ErrorIs(t, err, project.ErrProjectNotFound)

	_, err = env.svc.AddExpense(ctx, p.ID, ledger.CreateExpenseRequest{ID: "e1", Category: project.CategoryLabor, Amount: 5})
	require.NoError(t, err)
	_, err = env.svc.AddExpense(ctx, p.ID, ledger.CreateExpenseRequest{ID: "e1", Category: project.CategoryLabor, Amount: 5})
	require.ErrorIs(t, err, project.ErrDuplicateID)
}

func TestService_ChangeOrders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := createProject(t, env.svc, "Kitchen")

	co, err := env.svc.AddChangeOrder(ctx, p.ID, ledger.CreateChangeOrderRequest{Description: "Extra outlet", Amount: 500})
	require.NoError(t, err)
	require.False(t, co.Approved)
	require.Equal(t, fixedNow, co.Date)

	approved := true
	updated, err := env.svc.UpdateChangeOrder(ctx, p.ID, co.ID, ledger.ChangeOrderPatch{Approved: &approved})
	require.NoError(t, err)
	require.True(t, updated.Approved)
	require.Equal(t, "Extra outlet", updated.Description)

	_, err = env.svc.AddChangeOrder(ctx, p.ID, ledger.CreateChangeOrderRequest{Description: "", Amount: 500})
	require.ErrorIs(t, err, project.ErrInvalidInput)

	removed, err := env.svc.DeleteChangeOrder(ctx, p.ID, co.ID)
	require.NoError(t, err)
	require.True(t, removed)

	stored, err := env.svc.Project(p.ID)
	require.NoError(t, err)
	require.Empty(t, stored.ChangeOrders)
}

func TestService_AddChangeOrderToStoredProjectWithoutChangeOrders(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	require.NoError(t, mem.Set(ctx, store.DefaultPrimaryKey,
		`[{"id":"p1","name":"Legacy","client":"A","totalRevenue":100,"projectStartDate":"2024-01-01T00:00:00Z","createdAt":"2024-01-01T00:00:00Z","expenses":[]}]`))
	svc := ledger.NewService(store.New(mem, nil, store.Options{}), nil)
	require.NoError(t, svc.Load(ctx))

	co, err := svc.AddChangeOrder(ctx, "p1", ledger.CreateChangeOrderRequest{Description: "Gate", Amount: 50, Approved: true})
	require.NoError(t, err)

	stored, err := svc.Project("p1")
	require.NoError(t, err)
	require.Len(t, stored.ChangeOrders, 1)
	require.Equal(t, co.ID, stored.ChangeOrders[0].ID)
}

func TestService_NotFoundIsNoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := createProject(t, env.svc, "Kitchen")
	e, err := env.svc.AddExpense(ctx, p.ID, ledger.CreateExpenseRequest{Category: project.CategoryLabor, Amount: 10})
	require.NoError(t, err)
	co, err := env.svc.AddChangeOrder(ctx, p.ID, ledger.CreateChangeOrderRequest{Description: "x", Amount: 10})
	require.NoError(t, err)

	before := env.raw(t)
	opsBefore := len(env.sync.ops())
	name := "renamed"
	amount := 1.0

	updatedProject, err := env.svc.UpdateProject(ctx, "missing", ledger.ProjectPatch{Name: &name})
	require.NoError(t, err)
	require.Nil(t, updatedProject)

	removed, err := env.svc.DeleteProject(ctx, "missing")
	require.NoError(t, err)
	require.False(t, removed)

	for _, ids := range [][2]string{{p.ID, "missing"}, {"missing", e.ID}} {
		updated, err := env.svc.UpdateExpense(ctx, ids[0], ids[1], ledger.ExpensePatch{Amount: &amount})
		require.NoError(t, err)
		require.Nil(t, updated)

		removed, err := env.svc.DeleteExpense(ctx, ids[0], ids[1])
		require.NoError(t, err)
		require.False(t, removed)
	}

	for _, ids := range [][2]string{{p.ID, "missing"}, {"missing", co.ID}} {
		updated, err := env.svc.UpdateChangeOrder(ctx, ids[0], ids[1], ledger.ChangeOrderPatch{Amount: &amount})
		require.NoError(t, err)
		require.Nil(t, updated)

		removed, err := env.svc.DeleteChangeOrder(ctx, ids[0], ids[1])
		require.NoError(t, err)
		require.False(t, removed)
	}

	require.Equal(t, before, env.raw(t))
	require.Len(t, env.sync.ops(), opsBefore)
}

func TestService_ProjectsReturnsCopies(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := createProject(t, env.svc, "Kitchen")
	_, err := env.svc.AddExpense(ctx, p.ID, ledger.CreateExpenseRequest{Category: project.CategoryLabor, Amount: 10})
	require.NoError(t, err)

	projects := env.svc.Projects()
	projects[0].Name = "changed"
	projects[0].Expenses[0].Amount = 999

	stored, err := env.svc.Project(p.ID)
	require.NoError(t, err)
	require.Equal(t, "Kitchen", stored.Name)
	require.Equal(t, 10.0, stored.Expenses[0].Amount)
}

func TestService_SyncerReceivesSavedChanges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := createProject(t, env.svc, "Kitchen")

	e, err := env.svc.AddExpense(ctx, p.ID, ledger.CreateExpenseRequest{Category: project.CategoryLabor, Amount: 10})
	require.NoError(t, err)
	_, err = env.svc.CompleteProject(ctx, p.ID)
	require.NoError(t, err)
	_, err = env.svc.DeleteExpense(ctx, p.ID, e.ID)
	require.NoError(t, err)
	_, err = env.svc.DeleteProject(ctx, p.ID)
	require.NoError(t, err)

	require.Equal(t, []ledger.Op{
		ledger.OpProjectCreate,
		ledger.OpExpenseCreate,
		ledger.OpProjectUpdate,
		ledger.OpExpenseDelete,
		ledger.OpProjectDelete,
	}, env.sync.ops())

	env.sync.mu.Lock()
	defer env.sync.mu.Unlock()
	require.Equal(t, e.ID, env.sync.changes[1].ItemID)
	require.Equal(t, p.ID, env.sync.changes[1].ProjectID)
	require.NotNil(t, env.sync.changes[1].Expense)
	require.True(t, env.sync.changes[2].Project.IsCompleted)
	require.Nil(t, env.sync.changes[4].Project)
}

func TestService_ClearAll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	createProject(t, env.svc, "Kitchen")

	require.NoError(t, env.svc.ClearAll(ctx))
	require.Empty(t, env.svc.Projects())

	_, err := env.mem.Get(ctx, store.DefaultPrimaryKey)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestService_ConcurrentMutations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := createProject(t, env.svc, "Kitchen")

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.AddExpense(ctx, p.ID, ledger.CreateExpenseRequest{Category: project.CategoryMaterials, Amount: 1})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := env.svc.Project(p.ID)
	require.NoError(t, err)
	require.Len(t, stored.Expenses, 25)

	reloaded := ledger.NewService(env.store, nil)
	require.NoError(t, reloaded.Load(ctx))
	again, err := reloaded.Project(p.ID)
	require.NoError(t, err)
	require.Len(t, again.Expenses, 25)
}

type storeMock struct {
	mock.Mock
}

func (m *storeMock) Load(ctx context.Context) ([]project.Project, error) {
	args := m.Called(ctx)
	if projects, ok := args.Get(0).([]project.Project); ok {
		return projects, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *storeMock) Save(ctx context.Context, projects []project.Project) error {
	args := m.Called(ctx, projects)
	return args.Error(0)
}

func (m *storeMock) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func loadedService(t *testing.T, st *storeMock, initial []project.Project) *ledger.Service {
	t.Helper()
	st.On("Load", mock.Anything).Return(initial, nil)
	svc := ledger.NewService(st, nil, ledger.WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, svc.Load(context.Background()))
	return svc
}

func TestService_SaveTooLargeKeepsState(t *testing.T) {
	st := &storeMock{}
	initial := []project.Project{{ID: "p1", Name: "Kitchen"}}
	svc := loadedService(t, st, initial)
	st.On("Save", mock.Anything, mock.Anything).Return(fmt.Errorf("%w: 6000000 bytes", store.ErrTooLarge))

	name := "huge"
	_, err := svc.UpdateProject(context.Background(), "p1", ledger.ProjectPatch{Name: &name})
	require.ErrorIs(t, err, store.ErrTooLarge)
	require.Equal(t, "Kitchen", svc.Projects()[0].Name)
}

func TestService_SaveFailureRollsBack(t *testing.T) {
	st := &storeMock{}
	svc := loadedService(t, st, []project.Project{{ID: "p1", Name: "Kitchen"}})
	restored := []project.Project{{ID: "p0", Name: "From backup"}}
	st.On("Save", mock.Anything, mock.Anything).Return(&store.SaveError{
		Err:       errors.New("quota exceeded"),
		Restored:  restored,
		Recovered: true,
	})

	name := "renamed"
	_, err := svc.UpdateProject(context.Background(), "p1", ledger.ProjectPatch{Name: &name})
	require.ErrorIs(t, err, ledger.ErrRolledBack)

	projects := svc.Projects()
	require.Len(t, projects, 1)
	require.Equal(t, "From backup", projects[0].Name)
}

func TestService_SaveFailureWithoutRestoreKeepsChanges(t *testing.T) {
	st := &storeMock{}
	svc := loadedService(t, st, []project.Project{{ID: "p1", Name: "Kitchen"}})
	st.On("Save", mock.Anything, mock.Anything).Return(&store.SaveError{Err: errors.New("io error")})

	name := "renamed"
	_, err := svc.UpdateProject(context.Background(), "p1", ledger.ProjectPatch{Name: &name})
	require.ErrorIs(t, err, ledger.ErrNotPersisted)
	require.Equal(t, "renamed", svc.Projects()[0].Name)
}

func TestService_SaveFailureAfterUnreadableBackupKeepsProjects(t *testing.T) {
	ctx := context.Background()
	seed := storage.NewMemory()
	seedStore := store.New(seed, nil, store.Options{Now: func() time.Time { return fixedNow }})
	require.NoError(t, seedStore.Save(ctx, []project.Project{{ID: "p1", Name: "Kitchen"}, {ID: "p2", Name: "Deck"}}))
	raw, err := seed.Get(ctx, store.DefaultPrimaryKey)
	require.NoError(t, err)

	st := &mocks.Storage{}
	st.On("Get", ctx, store.DefaultPrimaryKey).Return(raw, nil).Once()
	st.On("Get", ctx, store.DefaultPrimaryKey).Return("", errors.New("transient read error"))
	st.On("Set", ctx, mock.Anything, mock.Anything).Return(errors.New("disk full"))

	svc := ledger.NewService(store.New(st, nil, store.Options{Now: func() time.Time { return fixedNow }}), nil,
		ledger.WithClock(func() time.Time { return fixedNow }),
	)
	require.NoError(t, svc.Load(ctx))
	require.Len(t, svc.Projects(), 2)

	_, err = svc.CreateProject(ctx, ledger.CreateProjectRequest{
		Name:             "Porch",
		ProjectStartDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, ledger.ErrNotPersisted)
	require.Len(t, svc.Projects(), 3)
	st.AssertNotCalled(t, "Get", ctx, store.DefaultBackupKey)
}

func TestService_LoadError(t *testing.T) {
	st := &storeMock{}
	st.On("Load", mock.Anything).Return(nil, errors.New("io error"))

	svc := ledger.NewService(st, nil)
	require.Error(t, svc.Load(context.Background()))
	require.Empty(t, svc.Projects())
}
