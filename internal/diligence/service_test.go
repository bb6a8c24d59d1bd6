package diligence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"bizmatch/deal-engine-backend/internal/deals"
	"bizmatch/deal-engine-backend/internal/party"
	"bizmatch/deal-engine-backend/pkg/dealerr"
	"bizmatch/deal-engine-backend/pkg/lifecycle"
)

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateProject(ctx context.Context, project *Project, tasks []Task) error {
	args := m.Called(ctx, project, tasks)
	return args.Error(0)
}

func (m *MockRepository) GetProject(ctx context.Context, id uuid.UUID) (*Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Project), args.Error(1)
}

func (m *MockRepository) GetProjectByTransaction(ctx context.Context, transactionID uuid.UUID) (*Project, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Project), args.Error(1)
}

func (m *MockRepository) GetTask(ctx context.Context, id uuid.UUID) (*Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Task), args.Error(1)
}

func (m *MockRepository) ListTasks(ctx context.Context, projectID uuid.UUID) ([]Task, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Task), args.Error(1)
}

func (m *MockRepository) UpdateTask(ctx context.Context, task *Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockRepository) CreateFinding(ctx context.Context, finding *Finding) error {
	args := m.Called(ctx, finding)
	return args.Error(0)
}

func (m *MockRepository) GetFinding(ctx context.Context, id uuid.UUID) (*Finding, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Finding), args.Error(1)
}

func (m *MockRepository) ListFindings(ctx context.Context, projectID uuid.UUID) ([]Finding, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Finding), args.Error(1)
}

func (m *MockRepository) UpdateFinding(ctx context.Context, finding *Finding) error {
	args := m.Called(ctx, finding)
	return args.Error(0)
}

// MockLifecycle is a mock implementation of Lifecycle
type MockLifecycle struct {
	mock.Mock
}

func (m *MockLifecycle) GetTransaction(ctx context.Context, id uuid.UUID, caller party.Caller) (*deals.Transaction, error) {
	args := m.Called(ctx, id, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deals.Transaction), args.Error(1)
}

func (m *MockLifecycle) AdvanceStage(ctx context.Context, id uuid.UUID, target lifecycle.Stage, actor deals.Actor, reason string) (*deals.Transaction, *deals.Activity, error) {
	args := m.Called(ctx, id, target, actor, reason)
	var tx *deals.Transaction
	if args.Get(0) != nil {
		tx = args.Get(0).(*deals.Transaction)
	}
	var activity *deals.Activity
	if args.Get(1) != nil {
		activity = args.Get(1).(*deals.Activity)
	}
	return tx, activity, args.Error(2)
}

func (m *MockLifecycle) AppendActivity(ctx context.Context, transactionID uuid.UUID, activityType deals.ActivityType, title, description string, actor deals.Actor) (*deals.Activity, error) {
	args := m.Called(ctx, transactionID, activityType, title, description, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deals.Activity), args.Error(1)
}

func newTestService() (*Service, *MockRepository, *MockLifecycle) {
	repo := new(MockRepository)
	lc := new(MockLifecycle)
	return NewService(repo, lc, zap.NewNop()), repo, lc
}

func buyerCaller(id uuid.UUID) party.Caller {
	return party.Caller{UserID: id, Name: "Buyer", Roles: party.NewRoleSet("buyer")}
}

func dealAt(stage lifecycle.Stage, buyerID, sellerID uuid.UUID) *deals.Transaction {
	return &deals.Transaction{
		ID:        uuid.New(),
		ListingID: uuid.New(),
		BuyerID:   buyerID,
		SellerID:  sellerID,
		Stage:     stage,
	}
}

func finding(severity Severity, status FindingStatus) Finding {
	return Finding{
		ID:       uuid.New(),
		Severity: severity,
		Status:   status,
	}
}

func TestComputeRiskLevel(t *testing.T) {
	cases := []struct {
		name     string
		findings []Finding
		want     RiskLevel
	}{
		{"no findings", nil, RiskLow},
		{"only low and medium", []Finding{
			finding(SeverityLow, FindingStatusOpen),
			finding(SeverityMedium, FindingStatusOpen),
		}, RiskLow},
		{"one high grades medium", []Finding{
			finding(SeverityHigh, FindingStatusOpen),
		}, RiskMedium},
		{"two highs grade medium", []Finding{
			finding(SeverityHigh, FindingStatusOpen),
			finding(SeverityHigh, FindingStatusOpen),
		}, RiskMedium},
		{"three highs grade high", []Finding{
			finding(SeverityHigh, FindingStatusOpen),
			finding(SeverityHigh, FindingStatusOpen),
			finding(SeverityHigh, FindingStatusOpen),
		}, RiskHigh},
		{"any critical dominates", []Finding{
			finding(SeverityLow, FindingStatusOpen),
			finding(SeverityCritical, FindingStatusOpen),
		}, RiskCritical},
		{"resolved findings do not count", []Finding{
			finding(SeverityCritical, FindingStatusResolved),
			finding(SeverityHigh, FindingStatusAccepted),
		}, RiskLow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ComputeRiskLevel(tc.findings))
		})
	}
}

func TestBuildChecklistSeedsAllCategories(t *testing.T) {
	projectID := uuid.New()
	opened := time.Now()
	tasks := BuildChecklist(projectID, opened)

	assert.Len(t, tasks, len(standardChecklist))
	seen := map[TaskCategory]bool{}
	for i, task := range tasks {
		assert.Equal(t, projectID, task.ProjectID)
		assert.Equal(t, TaskStatusPending, task.Status)
		assert.Equal(t, standardChecklist[i].Priority, task.Priority)
		assert.Equal(t, opened.AddDate(0, 0, standardChecklist[i].DueDays), task.DueDate)
		seen[task.Category] = true
	}
	for _, cat := range []TaskCategory{CategoryFinancial, CategoryLegal, CategoryTax, CategoryOperational, CategoryCommercial, CategoryHR} {
		assert.True(t, seen[cat], "missing category %s", cat)
	}
}

func TestCreateProjectAdvancesStage(t *testing.T) {
	service, repo, lc := newTestService()
	ctx := context.Background()
	buyerID := uuid.New()
	tx := dealAt(lifecycle.StageLOISigned, buyerID, uuid.New())

	lc.On("GetTransaction", ctx, tx.ID, mock.AnythingOfType("party.Caller")).Return(tx, nil)
	repo.On("GetProjectByTransaction", ctx, tx.ID).Return(nil, nil)

	var seeded []Task
	repo.On("CreateProject", ctx, mock.AnythingOfType("*diligence.Project"), mock.AnythingOfType("[]diligence.Task")).
		Run(func(args mock.Arguments) { seeded = args.Get(2).([]Task) }).
		Return(nil)
	lc.On("AdvanceStage", ctx, tx.ID, lifecycle.StageDDInProgress, mock.AnythingOfType("deals.Actor"), mock.AnythingOfType("string")).
		Return(tx, &deals.Activity{}, nil)
	lc.On("AppendActivity", ctx, tx.ID, deals.ActivityDDProjectCreated, mock.AnythingOfType("string"), mock.AnythingOfType("string"), mock.AnythingOfType("deals.Actor")).
		Return(&deals.Activity{}, nil)

	project, err := service.CreateProject(ctx, buyerCaller(buyerID), &CreateProjectRequest{TransactionID: tx.ID})

	assert.NoError(t, err)
	assert.Equal(t, tx.ID, project.TransactionID)
	assert.Len(t, seeded, len(standardChecklist))
	lc.AssertExpectations(t)
}

func TestCreateProjectRejectedAfterNegotiationStarts(t *testing.T) {
	service, repo, lc := newTestService()
	ctx := context.Background()
	buyerID := uuid.New()
	tx := dealAt(lifecycle.StageSPANegotiation, buyerID, uuid.New())

	lc.On("GetTransaction", ctx, tx.ID, mock.AnythingOfType("party.Caller")).Return(tx, nil)

	_, err := service.CreateProject(ctx, buyerCaller(buyerID), &CreateProjectRequest{TransactionID: tx.ID})

	assert.True(t, dealerr.IsKind(err, dealerr.KindInvalidState))
	repo.AssertNotCalled(t, "CreateProject", mock.Anything, mock.Anything, mock.Anything)
}

func TestSellerCannotRunReview(t *testing.T) {
	service, repo, lc := newTestService()
	ctx := context.Background()
	sellerID := uuid.New()
	tx := dealAt(lifecycle.StageDDInProgress, uuid.New(), sellerID)
	project := &Project{ID: uuid.New(), TransactionID: tx.ID}
	task := &Task{ID: uuid.New(), ProjectID: project.ID, Status: TaskStatusPending}

	repo.On("GetTask", ctx, task.ID).Return(task, nil)
	repo.On("GetProject", ctx, project.ID).Return(project, nil)
	lc.On("GetTransaction", ctx, tx.ID, mock.AnythingOfType("party.Caller")).Return(tx, nil)

	seller := party.Caller{UserID: sellerID, Name: "Seller", Roles: party.NewRoleSet("seller")}
	_, err := service.UpdateTaskStatus(ctx, task.ID, seller, TaskStatusCompleted)

	assert.True(t, dealerr.IsKind(err, dealerr.KindForbidden))
}

func TestCompleteTaskStampsCompletion(t *testing.T) {
	service, repo, lc := newTestService()
	ctx := context.Background()
	buyerID := uuid.New()
	tx := dealAt(lifecycle.StageDDInProgress, buyerID, uuid.New())
	project := &Project{ID: uuid.New(), TransactionID: tx.ID}
	task := &Task{ID: uuid.New(), ProjectID: project.ID, Status: TaskStatusInProgress}

	repo.On("GetTask", ctx, task.ID).Return(task, nil)
	repo.On("GetProject", ctx, project.ID).Return(project, nil)
	lc.On("GetTransaction", ctx, tx.ID, mock.AnythingOfType("party.Caller")).Return(tx, nil)
	repo.On("UpdateTask", ctx, task).Return(nil)

	updated, err := service.UpdateTaskStatus(ctx, task.ID, buyerCaller(buyerID), TaskStatusCompleted)

	assert.NoError(t, err)
	assert.Equal(t, TaskStatusCompleted, updated.Status)
	assert.Equal(t, &buyerID, updated.CompletedBy)
	assert.NotNil(t, updated.CompletedAt)
}

func TestResolveFindingKeepsItOnTheRecord(t *testing.T) {
	service, repo, lc := newTestService()
	ctx := context.Background()
	buyerID := uuid.New()
	tx := dealAt(lifecycle.StageDDInProgress, buyerID, uuid.New())
	project := &Project{ID: uuid.New(), TransactionID: tx.ID}
	f := finding(SeverityHigh, FindingStatusOpen)
	f.ProjectID = project.ID

	repo.On("GetFinding", ctx, f.ID).Return(&f, nil)
	repo.On("GetProject", ctx, project.ID).Return(project, nil)
	lc.On("GetTransaction", ctx, tx.ID, mock.AnythingOfType("party.Caller")).Return(tx, nil)
	repo.On("UpdateFinding", ctx, &f).Return(nil)

	resolved, err := service.ResolveFinding(ctx, f.ID, buyerCaller(buyerID), "escrow increased to cover exposure", true)

	assert.NoError(t, err)
	assert.Equal(t, FindingStatusAccepted, resolved.Status)
	assert.NotNil(t, resolved.Resolution)

	_, err = service.ResolveFinding(ctx, f.ID, buyerCaller(buyerID), "again", false)
	assert.True(t, dealerr.IsKind(err, dealerr.KindInvalidState))
}

func TestMetricsAggregateTasksAndFindings(t *testing.T) {
	service, repo, lc := newTestService()
	ctx := context.Background()
	buyerID := uuid.New()
	tx := dealAt(lifecycle.StageDDInProgress, buyerID, uuid.New())
	project := &Project{ID: uuid.New(), TransactionID: tx.ID}

	pastDue := time.Now().AddDate(0, 0, -3)
	future := time.Now().AddDate(0, 0, 7)
	tasks := []Task{
		{Status: TaskStatusCompleted, DueDate: pastDue},
		{Status: TaskStatusWaived, DueDate: pastDue},
		{Status: TaskStatusInProgress, DueDate: pastDue},
		{Status: TaskStatusPending, DueDate: future},
	}
	findings := []Finding{
		finding(SeverityHigh, FindingStatusOpen),
		finding(SeverityLow, FindingStatusResolved),
	}

	repo.On("GetProject", ctx, project.ID).Return(project, nil)
	lc.On("GetTransaction", ctx, tx.ID, mock.AnythingOfType("party.Caller")).Return(tx, nil)
	repo.On("ListTasks", ctx, project.ID).Return(tasks, nil)
	repo.On("ListFindings", ctx, project.ID).Return(findings, nil)

	metrics, err := service.GetMetrics(ctx, project.ID, buyerCaller(buyerID))

	assert.NoError(t, err)
	assert.Equal(t, 4, metrics.TotalTasks)
	assert.Equal(t, 2, metrics.CompletedTasks)
	assert.Equal(t, 50.0, metrics.CompletionPercent)
	assert.Equal(t, 1, metrics.OpenFindings)
	assert.Equal(t, 2, metrics.TotalFindings)
	assert.Equal(t, RiskMedium, metrics.RiskLevel)
	assert.Equal(t, 1, metrics.OverdueTaskCount, "past-due completed and waived tasks must not count as overdue")
}
