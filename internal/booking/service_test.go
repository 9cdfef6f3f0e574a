package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"leavedesk/internal/ledger"
	"leavedesk/internal/logger"
	"leavedesk/internal/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.Init()
}

type MockLedgerRepo struct{ mock.Mock }
type MockUserRepo struct{ mock.Mock }

func (m *MockLedgerRepo) EnsureSchema(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockLedgerRepo) BookDay(ctx context.Context, email string, day time.Time) (ledger.BookResult, error) {
	args := m.Called(ctx, email, day)
	return args.Get(0).(ledger.BookResult), args.Error(1)
}

func (m *MockLedgerRepo) TryBook(ctx context.Context, email string, day time.Time) (ledger.BookResult, error) {
	args := m.Called(ctx, email, day)
	return args.Get(0).(ledger.BookResult), args.Error(1)
}

func (m *MockLedgerRepo) GetAllowance(ctx context.Context, email string) (int, error) {
	args := m.Called(ctx, email)
	return args.Int(0), args.Error(1)
}

func (m *MockLedgerRepo) BookedDays(ctx context.Context, email string) ([]time.Time, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]time.Time), args.Error(1)
}

func (m *MockLedgerRepo) DecrementAllowance(ctx context.Context, email string, n int) error {
	return m.Called(ctx, email, n).Error(0)
}

func (m *MockLedgerRepo) ResetAllowance(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockUserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepo) DisplayName(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func testDay(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func TestBook_Idempotent(t *testing.T) {
	repo := new(MockLedgerRepo)
	svc := NewService(repo, new(MockUserRepo))

	day := testDay("2023-08-01")

	repo.On("BookDay", mock.Anything, "a@example.com", day).
		Return(ledger.ResultInserted, nil).Once()
	repo.On("BookDay", mock.Anything, "a@example.com", day).
		Return(ledger.ResultAlreadyPresent, nil).Once()

	first := svc.Book(context.Background(), "a@example.com", day)
	second := svc.Book(context.Background(), "a@example.com", day)

	assert.Equal(t, StatusBooked, first.Status)
	assert.Equal(t, StatusAlreadyBooked, second.Status)
	repo.AssertExpectations(t)
}

func TestBook_SchemaRepairRetriesOnce(t *testing.T) {
	repo := new(MockLedgerRepo)
	svc := NewService(repo, new(MockUserRepo))

	day := testDay("2023-08-01")

	repo.On("BookDay", mock.Anything, "a@example.com", day).
		Return(ledger.ResultAlreadyPresent, ledger.ErrSchemaMissing).Once()
	repo.On("EnsureSchema", mock.Anything).Return(nil).Once()
	repo.On("BookDay", mock.Anything, "a@example.com", day).
		Return(ledger.ResultInserted, nil).Once()

	out := svc.Book(context.Background(), "a@example.com", day)

	assert.Equal(t, StatusBooked, out.Status)
	repo.AssertExpectations(t)
}

func TestBook_SecondSchemaMissIsTerminal(t *testing.T) {
	repo := new(MockLedgerRepo)
	svc := NewService(repo, new(MockUserRepo))

	day := testDay("2023-08-01")

	repo.On("BookDay", mock.Anything, "a@example.com", day).
		Return(ledger.ResultAlreadyPresent, ledger.ErrSchemaMissing).Twice()
	repo.On("EnsureSchema", mock.Anything).Return(nil).Once()

	out := svc.Book(context.Background(), "a@example.com", day)

	assert.Equal(t, StatusRejected, out.Status)
	assert.Equal(t, ReasonSchemaUnavailable, out.Reason)
	repo.AssertExpectations(t)
	repo.AssertNumberOfCalls(t, "BookDay", 2)
	repo.AssertNumberOfCalls(t, "EnsureSchema", 1)
}

func TestBook_FailedRepairSkipsRetry(t *testing.T) {
	repo := new(MockLedgerRepo)
	svc := NewService(repo, new(MockUserRepo))

	day := testDay("2023-08-01")

	repo.On("BookDay", mock.Anything, "a@example.com", day).
		Return(ledger.ResultAlreadyPresent, ledger.ErrSchemaMissing).Once()
	repo.On("EnsureSchema", mock.Anything).Return(errors.New("permission denied")).Once()

	out := svc.Book(context.Background(), "a@example.com", day)

	assert.Equal(t, StatusRejected, out.Status)
	repo.AssertNumberOfCalls(t, "BookDay", 1)
}

func TestBook_BusyIsTransientRejection(t *testing.T) {
	repo := new(MockLedgerRepo)
	svc := NewService(repo, new(MockUserRepo))

	day := testDay("2023-08-01")

	repo.On("BookDay", mock.Anything, "a@example.com", day).
		Return(ledger.ResultAlreadyPresent, ledger.ErrStoreBusy).Once()

	out := svc.Book(context.Background(), "a@example.com", day)

	assert.Equal(t, StatusRejected, out.Status)
	assert.Equal(t, ReasonStoreBusy, out.Reason)
	assert.True(t, out.Transient)
	// no internal retry on contention
	repo.AssertNumberOfCalls(t, "BookDay", 1)
}

func TestBook_ExhaustedAllowanceRejected(t *testing.T) {
	repo := new(MockLedgerRepo)
	svc := NewService(repo, new(MockUserRepo))

	day := testDay("2023-08-01")

	repo.On("BookDay", mock.Anything, "a@example.com", day).
		Return(ledger.ResultAlreadyPresent, ledger.ErrAllowanceExhausted).Once()

	out := svc.Book(context.Background(), "a@example.com", day)

	assert.Equal(t, StatusRejected, out.Status)
	assert.Equal(t, ReasonAllowanceExhausted, out.Reason)
	assert.False(t, out.Transient)
}

// memoryLedger mimics the store's atomicity guarantees in-process so the
// concurrent booking property can be exercised without Postgres.
type memoryLedger struct {
	mu        sync.Mutex
	allowance map[string]int
	booked    map[string]map[string]bool
	def       int
}

func newMemoryLedger(def int) *memoryLedger {
	return &memoryLedger{
		allowance: make(map[string]int),
		booked:    make(map[string]map[string]bool),
		def:       def,
	}
}

func (m *memoryLedger) EnsureSchema(ctx context.Context) error { return nil }

func (m *memoryLedger) BookDay(ctx context.Context, email string, day time.Time) (ledger.BookResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := day.Format("2006-01-02")
	if m.booked[email] == nil {
		m.booked[email] = make(map[string]bool)
	}
	if m.booked[email][key] {
		return ledger.ResultAlreadyPresent, nil
	}

	if _, ok := m.allowance[email]; !ok {
		m.allowance[email] = m.def
	}
	if m.allowance[email] < 1 {
		return ledger.ResultAlreadyPresent, ledger.ErrAllowanceExhausted
	}

	m.booked[email][key] = true
	m.allowance[email]--
	return ledger.ResultInserted, nil
}

func (m *memoryLedger) TryBook(ctx context.Context, email string, day time.Time) (ledger.BookResult, error) {
	return m.BookDay(ctx, email, day)
}

func (m *memoryLedger) GetAllowance(ctx context.Context, email string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allowance[email], nil
}

func (m *memoryLedger) BookedDays(ctx context.Context, email string) ([]time.Time, error) {
	return nil, nil
}

func (m *memoryLedger) DecrementAllowance(ctx context.Context, email string, n int) error {
	return nil
}

func (m *memoryLedger) ResetAllowance(ctx context.Context, email string) error {
	return nil
}

func TestBook_ConcurrentSameDay(t *testing.T) {
	store := newMemoryLedger(25)
	svc := NewService(store, new(MockUserRepo))

	day := testDay("2023-08-01")
	const n = 32

	outcomes := make([]Outcome, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = svc.Book(context.Background(), "a@example.com", day)
		}(i)
	}
	wg.Wait()

	booked, already := 0, 0
	for _, out := range outcomes {
		switch out.Status {
		case StatusBooked:
			booked++
		case StatusAlreadyBooked:
			already++
		}
	}

	require.Equal(t, 1, booked)
	require.Equal(t, n-1, already)

	remaining, err := store.GetAllowance(context.Background(), "a@example.com")
	require.NoError(t, err)
	require.Equal(t, 24, remaining)
}
