package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"leavedesk/internal/booking"
	"leavedesk/internal/calendar"
	"leavedesk/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.Init()
}

type MockBookingService struct{ mock.Mock }

func (m *MockBookingService) Book(ctx context.Context, email string, day time.Time) booking.Outcome {
	args := m.Called(ctx, email, day)
	return args.Get(0).(booking.Outcome)
}

func (m *MockBookingService) RemainingAllowance(ctx context.Context, email string) (int, error) {
	args := m.Called(ctx, email)
	return args.Int(0), args.Error(1)
}

func (m *MockBookingService) BookedDays(ctx context.Context, email string) ([]time.Time, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]time.Time), args.Error(1)
}

func (m *MockBookingService) DisplayName(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *MockBookingService) ResetAllowance(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) SendHolidaySummary(ctx context.Context, to, name string, booked []time.Time, remaining int) error {
	return m.Called(ctx, to, name, booked, remaining).Error(0)
}

type staticHolidays map[string]bool

func (s staticHolidays) Holidays(ctx context.Context) (map[string]bool, error) {
	return s, nil
}

type downHolidays struct{}

func (downHolidays) Holidays(ctx context.Context) (map[string]bool, error) {
	return nil, errors.New("feed timeout")
}

func day(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func requestMail(body string) string {
	return "From: Test User <test.user@domain.com>\r\n" +
		"Subject: Holiday request\r\n" +
		"\r\n" +
		body + "\r\n"
}

func TestProcess_WeekLongRequestBooksFiveDays(t *testing.T) {
	svc := new(MockBookingService)
	notifier := new(MockNotifier)
	p := NewService(svc, staticHolidays{}, notifier)

	// 2023-08-01 is a Tuesday, 2023-08-07 the following Monday: the range
	// holds 7 days and loses Saturday and Sunday.
	working := []time.Time{
		day("2023-08-01"), day("2023-08-02"), day("2023-08-03"),
		day("2023-08-04"), day("2023-08-07"),
	}
	for _, d := range working {
		svc.On("Book", mock.Anything, "test.user@domain.com", d).
			Return(booking.Outcome{Day: d, Status: booking.StatusBooked}).Once()
	}
	svc.On("RemainingAllowance", mock.Anything, "test.user@domain.com").Return(20, nil).Once()
	svc.On("DisplayName", mock.Anything, "test.user@domain.com").Return("Test User", nil).Once()
	notifier.On("SendHolidaySummary", mock.Anything, "test.user@domain.com", "Test User", working, 20).
		Return(nil).Once()

	summary, err := p.Process(context.Background(), requestMail("Requesting 2023-08-01 to 2023-08-07 off."))
	require.NoError(t, err)

	assert.Equal(t, "test.user@domain.com", summary.Sender)
	assert.Equal(t, "Test User", summary.Name)
	assert.Len(t, summary.Outcomes, 5)
	assert.Equal(t, 20, summary.RemainingDays)
	svc.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestProcess_NoDatesFound(t *testing.T) {
	svc := new(MockBookingService)
	p := NewService(svc, staticHolidays{}, nil)

	_, err := p.Process(context.Background(), requestMail("I would like some time off soon."))
	require.ErrorIs(t, err, ErrNoDatesFound)
	svc.AssertNotCalled(t, "Book")
}

func TestProcess_HolidayOnlyRequestSkipsBooking(t *testing.T) {
	svc := new(MockBookingService)
	p := NewService(svc, staticHolidays{"2023-12-25": true}, nil)

	svc.On("RemainingAllowance", mock.Anything, "test.user@domain.com").Return(25, nil).Once()
	svc.On("DisplayName", mock.Anything, "test.user@domain.com").Return("Test User", nil).Once()

	summary, err := p.Process(context.Background(), requestMail("Just 2023-12-25 please."))
	require.NoError(t, err)

	assert.Empty(t, summary.Outcomes)
	assert.Empty(t, summary.BookedDays())
	svc.AssertNotCalled(t, "Book")
}

func TestProcess_HolidaySourceDownAbortsRequest(t *testing.T) {
	svc := new(MockBookingService)
	p := NewService(svc, downHolidays{}, nil)

	_, err := p.Process(context.Background(), requestMail("Off on 2023-08-01."))
	require.ErrorIs(t, err, calendar.ErrHolidaySourceUnavailable)
	svc.AssertNotCalled(t, "Book")
}

func TestProcess_BatchIsBestEffort(t *testing.T) {
	svc := new(MockBookingService)
	p := NewService(svc, staticHolidays{}, nil)

	// Tuesday through Thursday; the middle day is rejected but the last
	// one is still attempted and reported.
	svc.On("Book", mock.Anything, "test.user@domain.com", day("2023-08-01")).
		Return(booking.Outcome{Day: day("2023-08-01"), Status: booking.StatusBooked}).Once()
	svc.On("Book", mock.Anything, "test.user@domain.com", day("2023-08-02")).
		Return(booking.Outcome{Day: day("2023-08-02"), Status: booking.StatusRejected, Reason: booking.ReasonStoreBusy, Transient: true}).Once()
	svc.On("Book", mock.Anything, "test.user@domain.com", day("2023-08-03")).
		Return(booking.Outcome{Day: day("2023-08-03"), Status: booking.StatusAlreadyBooked}).Once()
	svc.On("RemainingAllowance", mock.Anything, "test.user@domain.com").Return(10, nil).Once()
	svc.On("DisplayName", mock.Anything, "test.user@domain.com").Return("Test User", nil).Once()

	summary, err := p.Process(context.Background(), requestMail("2023-08-01 until 2023-08-03"))
	require.NoError(t, err)

	require.Len(t, summary.Outcomes, 3)
	assert.Equal(t, booking.StatusBooked, summary.Outcomes[0].Status)
	assert.Equal(t, booking.StatusRejected, summary.Outcomes[1].Status)
	assert.Equal(t, booking.StatusAlreadyBooked, summary.Outcomes[2].Status)
	assert.Equal(t, []time.Time{day("2023-08-01")}, summary.BookedDays())
	svc.AssertExpectations(t)
}

func TestProcess_NotifierFailureDoesNotFailRequest(t *testing.T) {
	svc := new(MockBookingService)
	notifier := new(MockNotifier)
	p := NewService(svc, staticHolidays{}, notifier)

	svc.On("Book", mock.Anything, "test.user@domain.com", day("2023-08-01")).
		Return(booking.Outcome{Day: day("2023-08-01"), Status: booking.StatusBooked}).Once()
	svc.On("RemainingAllowance", mock.Anything, "test.user@domain.com").Return(24, nil).Once()
	svc.On("DisplayName", mock.Anything, "test.user@domain.com").Return("Test User", nil).Once()
	notifier.On("SendHolidaySummary", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("redis down")).Once()

	summary, err := p.Process(context.Background(), requestMail("2023-08-01"))
	require.NoError(t, err)
	assert.Len(t, summary.Outcomes, 1)
}
