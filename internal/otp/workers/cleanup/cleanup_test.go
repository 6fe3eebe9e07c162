package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type mockCodeStore struct {
	deleteCalled    int
	deletedToReturn int
	errToReturn     error
	lastCutoff      time.Time
}

func (m *mockCodeStore) DeleteExpired(_ context.Context, cutoff time.Time) (int, error) {
	m.deleteCalled++
	m.lastCutoff = cutoff
	return m.deletedToReturn, m.errToReturn
}

type CodeCleanerSuite struct {
	suite.Suite
	store   *mockCodeStore
	service *CodeCleanupService
}

func TestCodeCleanerSuite(t *testing.T) {
	suite.Run(t, new(CodeCleanerSuite))
}

func (s *CodeCleanerSuite) SetupTest() {
	s.store = &mockCodeStore{}
	s.service = New(s.store)
}

func (s *CodeCleanerSuite) TestRunDeletesExpiredCodes() {
	s.store.deletedToReturn = 12

	result, err := s.service.RunOnce(context.Background())
	s.Require().NoError(err)
	s.Equal(1, s.store.deleteCalled)
	s.Equal(12, result.CodesDeleted)
	s.WithinDuration(time.Now(), s.store.lastCutoff, time.Second)
}

func (s *CodeCleanerSuite) TestRunHandlesEmptyStore() {
	result, err := s.service.RunOnce(context.Background())

	s.Require().NoError(err)
	s.NotNil(result)
	s.Equal(0, result.CodesDeleted)
}

func (s *CodeCleanerSuite) TestRunPropagatesStoreErrors() {
	s.store.errToReturn = context.DeadlineExceeded
	result, err := s.service.RunOnce(context.Background())

	s.Require().Error(err)
	s.ErrorIs(err, context.DeadlineExceeded)
	s.Nil(result)
}
