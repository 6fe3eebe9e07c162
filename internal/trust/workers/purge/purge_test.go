package purge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"bankguard/internal/trust/models"
)

type mockDeviceStore struct {
	deleteCalled    int
	deletedToReturn int
	errToReturn     error
	lastCutoff      time.Time
}

func (m *mockDeviceStore) DeleteIdle(_ context.Context, cutoff time.Time) (int, error) {
	m.deleteCalled++
	m.lastCutoff = cutoff
	return m.deletedToReturn, m.errToReturn
}

type DevicePurgeSuite struct {
	suite.Suite
	store   *mockDeviceStore
	service *DevicePurgeService
}

func TestDevicePurgeSuite(t *testing.T) {
	suite.Run(t, new(DevicePurgeSuite))
}

func (s *DevicePurgeSuite) SetupTest() {
	s.store = &mockDeviceStore{}
	s.service = New(s.store)
}

func (s *DevicePurgeSuite) TestRunUsesRetentionCutoff() {
	s.store.deletedToReturn = 4

	result, err := s.service.RunOnce(context.Background())
	s.Require().NoError(err)
	s.Equal(1, s.store.deleteCalled)
	s.Equal(4, result.DevicesDeleted)
	s.WithinDuration(time.Now().Add(-models.IdleRetention), s.store.lastCutoff, time.Second)
}

func (s *DevicePurgeSuite) TestRunHonorsCustomRetention() {
	service := New(s.store, WithRetention(30*24*time.Hour))

	_, err := service.RunOnce(context.Background())
	s.Require().NoError(err)
	s.WithinDuration(time.Now().Add(-30*24*time.Hour), s.store.lastCutoff, time.Second)
}

func (s *DevicePurgeSuite) TestRunPropagatesStoreErrors() {
	s.store.errToReturn = context.DeadlineExceeded
	result, err := s.service.RunOnce(context.Background())

	s.Require().Error(err)
	s.ErrorIs(err, context.DeadlineExceeded)
	s.Nil(result)
}
