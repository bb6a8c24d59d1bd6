package deals

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bizmatch/deal-engine-backend/internal/party"
	"bizmatch/deal-engine-backend/pkg/dealerr"
	"bizmatch/deal-engine-backend/pkg/lifecycle"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateTransactionBundle(ctx context.Context, tx *Transaction, milestones []Milestone, payments []Payment, activity *Activity) error {
	args := m.Called(ctx, tx, milestones, payments, activity)
	return args.Error(0)
}

func (m *MockRepository) GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Transaction), args.Error(1)
}

func (m *MockRepository) GetTransactionByListingBuyer(ctx context.Context, listingID, buyerID uuid.UUID) (*Transaction, error) {
	args := m.Called(ctx, listingID, buyerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Transaction), args.Error(1)
}

func (m *MockRepository) UpdateTransaction(ctx context.Context, tx *Transaction, activity *Activity) error {
	args := m.Called(ctx, tx, activity)
	return args.Error(0)
}

func (m *MockRepository) CloseTransaction(ctx context.Context, tx *Transaction, completedBy uuid.UUID, closedAt time.Time, activity *Activity) error {
	args := m.Called(ctx, tx, completedBy, closedAt, activity)
	return args.Error(0)
}

func (m *MockRepository) GetMilestone(ctx context.Context, id uuid.UUID) (*Milestone, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Milestone), args.Error(1)
}

func (m *MockRepository) GetMilestoneByOrder(ctx context.Context, transactionID uuid.UUID, order int) (*Milestone, error) {
	args := m.Called(ctx, transactionID, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Milestone), args.Error(1)
}

func (m *MockRepository) ListMilestones(ctx context.Context, transactionID uuid.UUID) ([]Milestone, error) {
	args := m.Called(ctx, transactionID)
	return args.Get(0).([]Milestone), args.Error(1)
}

func (m *MockRepository) ListIncompleteMilestones(ctx context.Context, transactionID uuid.UUID, limit int) ([]Milestone, error) {
	args := m.Called(ctx, transactionID, limit)
	return args.Get(0).([]Milestone), args.Error(1)
}

func (m *MockRepository) ListOverdueMilestones(ctx context.Context, now time.Time, limit int) ([]Milestone, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).([]Milestone), args.Error(1)
}

func (m *MockRepository) CompleteMilestone(ctx context.Context, milestone *Milestone, activity *Activity) error {
	args := m.Called(ctx, milestone, activity)
	return args.Error(0)
}

func (m *MockRepository) ListPayments(ctx context.Context, transactionID uuid.UUID) ([]Payment, error) {
	args := m.Called(ctx, transactionID)
	return args.Get(0).([]Payment), args.Error(1)
}

func (m *MockRepository) InsertActivity(ctx context.Context, activity *Activity) error {
	args := m.Called(ctx, activity)
	return args.Error(0)
}

func (m *MockRepository) ListActivities(ctx context.Context, transactionID uuid.UUID) ([]Activity, error) {
	args := m.Called(ctx, transactionID)
	return args.Get(0).([]Activity), args.Error(1)
}

func newTestService(repo Repository) *Service {
	return NewService(repo, nil, zap.NewNop())
}

func buyerCaller(tx *Transaction) party.Caller {
	return party.Caller{UserID: tx.BuyerID, Name: "Ada Buyer", Roles: party.NewRoleSet("buyer")}
}

func testTransaction(stage lifecycle.Stage) *Transaction {
	return &Transaction{
		ID:          uuid.New(),
		ListingID:   uuid.New(),
		BuyerID:     uuid.New(),
		SellerID:    uuid.New(),
		AgreedPrice: 10_000_000,
		Stage:       stage,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

func TestCreateTransactionSeedsPlanAndPayments(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	var seededMilestones []Milestone
	var seededPayments []Payment
	mockRepo.On("CreateTransactionBundle", ctx, mock.AnythingOfType("*deals.Transaction"),
		mock.Anything, mock.Anything, mock.AnythingOfType("*deals.Activity")).
		Run(func(args mock.Arguments) {
			seededMilestones = args.Get(2).([]Milestone)
			seededPayments = args.Get(3).([]Payment)
		}).
		Return(nil)

	caller := party.Caller{UserID: uuid.New(), Name: "Ada Buyer"}
	req := &CreateTransactionRequest{
		ListingID:   uuid.New(),
		BuyerID:     caller.UserID,
		SellerID:    uuid.New(),
		AgreedPrice: 10_000_000,
	}

	tx, activity, err := service.CreateTransaction(ctx, caller, req)

	require.NoError(t, err)
	assert.Equal(t, lifecycle.StageLOISigned, tx.Stage)
	assert.Equal(t, ActivityTransactionCreated, activity.Type)

	require.Len(t, seededMilestones, 9)
	assert.True(t, seededMilestones[0].Completed)
	require.Len(t, seededPayments, 2)
	assert.Equal(t, int64(1_000_000), seededPayments[0].Amount)
	assert.Equal(t, int64(9_000_000), seededPayments[1].Amount)

	mockRepo.AssertExpectations(t)
}

func TestCreateTransactionValidation(t *testing.T) {
	service := newTestService(new(MockRepository))
	ctx := context.Background()
	caller := party.Caller{UserID: uuid.New()}

	same := uuid.New()
	_, _, err := service.CreateTransaction(ctx, caller, &CreateTransactionRequest{
		ListingID: uuid.New(), BuyerID: same, SellerID: same, AgreedPrice: 1000,
	})
	assert.True(t, dealerr.IsKind(err, dealerr.KindValidation))

	_, _, err = service.CreateTransaction(ctx, caller, &CreateTransactionRequest{
		ListingID: uuid.New(), BuyerID: uuid.New(), SellerID: uuid.New(), AgreedPrice: -5,
	})
	assert.True(t, dealerr.IsKind(err, dealerr.KindValidation))
}

func TestGetTransactionForbiddenForStrangers(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	tx := testTransaction(lifecycle.StageLOISigned)
	mockRepo.On("GetTransaction", ctx, tx.ID).Return(tx, nil)

	stranger := party.Caller{UserID: uuid.New(), Name: "Eve"}
	_, err := service.GetTransaction(ctx, tx.ID, stranger)

	assert.True(t, dealerr.IsKind(err, dealerr.KindForbidden))
}

func TestCompleteMilestoneAppendsOneActivity(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	tx := testTransaction(lifecycle.StageDDInProgress)
	milestone := &Milestone{
		ID:            uuid.New(),
		TransactionID: tx.ID,
		Title:         "NDA in force",
		Order:         2,
		DueDate:       time.Now(),
	}

	mockRepo.On("GetMilestone", ctx, milestone.ID).Return(milestone, nil)
	mockRepo.On("GetTransaction", ctx, tx.ID).Return(tx, nil)
	mockRepo.On("CompleteMilestone", ctx, milestone, mock.AnythingOfType("*deals.Activity")).Return(nil).Once()

	done, activity, err := service.CompleteMilestone(ctx, milestone.ID, buyerCaller(tx))

	require.NoError(t, err)
	assert.True(t, done.Completed)
	require.NotNil(t, activity)
	assert.Equal(t, ActivityMilestoneCompleted, activity.Type)

	// Second completion is an idempotent no-op: no write, no activity.
	done2, activity2, err := service.CompleteMilestone(ctx, milestone.ID, buyerCaller(tx))
	require.NoError(t, err)
	assert.True(t, done2.Completed)
	assert.Nil(t, activity2)

	mockRepo.AssertNumberOfCalls(t, "CompleteMilestone", 1)
}

func TestCompleteMilestoneForbidden(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	tx := testTransaction(lifecycle.StageDDInProgress)
	milestone := &Milestone{ID: uuid.New(), TransactionID: tx.ID, Order: 2}

	mockRepo.On("GetMilestone", ctx, milestone.ID).Return(milestone, nil)
	mockRepo.On("GetTransaction", ctx, tx.ID).Return(tx, nil)

	stranger := party.Caller{UserID: uuid.New()}
	_, _, err := service.CompleteMilestone(ctx, milestone.ID, stranger)

	assert.True(t, dealerr.IsKind(err, dealerr.KindForbidden))
}

func TestAdvanceStageRejectsBackwardTransition(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	tx := testTransaction(lifecycle.StageClosing)
	mockRepo.On("GetTransaction", ctx, tx.ID).Return(tx, nil)

	_, _, err := service.AdvanceStage(ctx, tx.ID, lifecycle.StageDDInProgress, SystemActor, "rewind")

	assert.True(t, dealerr.IsKind(err, dealerr.KindInvalidState))
}

func TestAdvanceStageIdempotentNoOp(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	tx := testTransaction(lifecycle.StageClosing)
	mockRepo.On("GetTransaction", ctx, tx.ID).Return(tx, nil)

	got, activity, err := service.AdvanceStage(ctx, tx.ID, lifecycle.StageClosing, SystemActor, "again")

	require.NoError(t, err)
	assert.Equal(t, lifecycle.StageClosing, got.Stage)
	assert.Nil(t, activity)
	mockRepo.AssertNotCalled(t, "UpdateTransaction")
}

func TestCloseTransactionOnlyFromClosing(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	tx := testTransaction(lifecycle.StageSPANegotiation)
	mockRepo.On("GetTransaction", ctx, tx.ID).Return(tx, nil)

	_, _, err := service.CloseTransaction(ctx, tx.ID, buyerCaller(tx), time.Now(), "done")

	assert.True(t, dealerr.IsKind(err, dealerr.KindInvalidState))
}

func TestCloseTransactionCompletesDeal(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	tx := testTransaction(lifecycle.StageClosing)
	mockRepo.On("GetTransaction", ctx, tx.ID).Return(tx, nil)
	mockRepo.On("CloseTransaction", ctx, tx, tx.BuyerID, mock.AnythingOfType("time.Time"),
		mock.AnythingOfType("*deals.Activity")).Return(nil)

	closingDate := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	closed, activity, err := service.CloseTransaction(ctx, tx.ID, buyerCaller(tx), closingDate, "handover complete")

	require.NoError(t, err)
	assert.Equal(t, lifecycle.StageCompleted, closed.Stage)
	require.NotNil(t, closed.ClosingDate)
	assert.Equal(t, closingDate, *closed.ClosingDate)
	assert.Equal(t, ActivityStageChange, activity.Type)

	mockRepo.AssertExpectations(t)
}

func TestCancelTransactionFromAnyNonTerminalStage(t *testing.T) {
	for _, stage := range []lifecycle.Stage{
		lifecycle.StageLOISigned, lifecycle.StageDDInProgress,
		lifecycle.StageSPANegotiation, lifecycle.StageClosing,
	} {
		mockRepo := new(MockRepository)
		service := newTestService(mockRepo)
		ctx := context.Background()

		tx := testTransaction(stage)
		mockRepo.On("GetTransaction", ctx, tx.ID).Return(tx, nil)
		mockRepo.On("UpdateTransaction", ctx, tx, mock.AnythingOfType("*deals.Activity")).Return(nil)

		cancelled, activity, err := service.CancelTransaction(ctx, tx.ID, buyerCaller(tx), "buyer withdrew")

		require.NoError(t, err, "stage %s", stage)
		assert.Equal(t, lifecycle.StageCancelled, cancelled.Stage)
		assert.Equal(t, ActivityStageChange, activity.Type)
	}
}

func TestCancelCompletedTransactionRejected(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	tx := testTransaction(lifecycle.StageCompleted)
	mockRepo.On("GetTransaction", ctx, tx.ID).Return(tx, nil)

	_, _, err := service.CancelTransaction(ctx, tx.ID, buyerCaller(tx), "too late")

	assert.True(t, dealerr.IsKind(err, dealerr.KindInvalidState))
}
