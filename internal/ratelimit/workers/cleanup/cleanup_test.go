package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type mockWindowStore struct {
	purgeCalled   int
	purgedToReturn int
	errToReturn   error
	lastNow       time.Time
}

func (m *mockWindowStore) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	m.purgeCalled++
	m.lastNow = now
	return m.purgedToReturn, m.errToReturn
}

type WindowCleanerSuite struct {
	suite.Suite
	store   *mockWindowStore
	service *WindowCleanupService
}

func TestWindowCleanerSuite(t *testing.T) {
	suite.Run(t, new(WindowCleanerSuite))
}

func (s *WindowCleanerSuite) SetupTest() {
	s.store = &mockWindowStore{}
	s.service = New(s.store)
}

func (s *WindowCleanerSuite) TestRunPurgesExpiredWindows() {
	s.store.purgedToReturn = 7

	result, err := s.service.RunOnce(context.Background())
	s.Require().NoError(err)
	s.Equal(1, s.store.purgeCalled, "PurgeExpired should be called once per cleanup run")
	s.Equal(7, result.WindowsPurged)
	s.WithinDuration(time.Now(), s.store.lastNow, time.Second, "cutoff should be the current time")
}

func (s *WindowCleanerSuite) TestRunHandlesEmptyStore() {
	result, err := s.service.RunOnce(context.Background())

	s.Require().NoError(err)
	s.NotNil(result, "Result should never be nil on success")
	s.Equal(0, result.WindowsPurged)
}

func (s *WindowCleanerSuite) TestRunPropagatesStoreErrors() {
	s.store.errToReturn = context.DeadlineExceeded
	result, err := s.service.RunOnce(context.Background())

	s.Require().Error(err)
	s.ErrorIs(err, context.DeadlineExceeded)
	s.Nil(result, "Result should be nil when an error occurs")
}
