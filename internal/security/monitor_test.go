package security

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"bankguard/internal/ledger"
	id "bankguard/pkg/domain"
)

type recordingNotifier struct {
	mu     sync.Mutex
	emails []string
	failFor map[string]bool
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{failFor: make(map[string]bool)}
}

func (n *recordingNotifier) SendEmail(_ context.Context, address, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[address] {
		return fmt.Errorf("smtp refused")
	}
	n.emails = append(n.emails, address)
	return nil
}

func (n *recordingNotifier) SendSMS(context.Context, string, string) error { return nil }

type failingStore struct {
	*InMemoryStore
	failAppend bool
}

func (s *failingStore) Append(ctx context.Context, event Event) error {
	if s.failAppend {
		return fmt.Errorf("disk full")
	}
	return s.InMemoryStore.Append(ctx, event)
}

type MonitorSuite struct {
	suite.Suite
	store    *InMemoryStore
	notifier *recordingNotifier
	admins   *ledger.InMemoryStore
	monitor  *Monitor
	now      time.Time
}

func TestMonitorSuite(t *testing.T) {
	suite.Run(t, new(MonitorSuite))
}

func (s *MonitorSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.notifier = newRecordingNotifier()
	s.admins = ledger.NewInMemoryStore()
	s.now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := NewPublisher(s.store, WithPublisherLogger(logger))

	var err error
	s.monitor, err = NewMonitor(s.store, publisher, s.admins,
		WithLogger(logger),
		WithNotifier(s.notifier),
		WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)
}

func (s *MonitorSuite) addAdmin(email string, active bool) {
	s.admins.PutAdmin(ledger.Admin{UserID: id.NewUserID(), Email: email, Active: active})
}

func (s *MonitorSuite) TestFailedLoginEscalation() {
	ctx := context.Background()
	s.addAdmin("ops@example.com", true)
	actor := id.NewUserID().String()

	var severities []Severity
	for i := 0; i < 6; i++ {
		severity, err := s.monitor.TrackFailedLogin(ctx, actor, "203.0.113.5", "curl/8")
		s.Require().NoError(err)
		severities = append(severities, severity)
		s.now = s.now.Add(30 * time.Second)
	}

	s.Equal([]Severity{SeverityLow, SeverityLow, SeverityLow, SeverityHigh, SeverityHigh, SeverityHigh}, severities)

	count, err := s.store.CountByActorActionSince(ctx, actor, ActionLoginFailed, time.Time{})
	s.Require().NoError(err)
	s.Equal(6, count, "every failure is recorded")

	// One alert per escalated failure, one active admin each.
	s.Len(s.notifier.emails, 3)
}

func (s *MonitorSuite) TestFailedLoginCriticalAtNine() {
	ctx := context.Background()
	actor := id.NewUserID().String()

	var last Severity
	for i := 0; i < 9; i++ {
		severity, err := s.monitor.TrackFailedLogin(ctx, actor, "203.0.113.5", "curl/8")
		s.Require().NoError(err)
		last = severity
	}
	s.Equal(SeverityCritical, last)
}

func (s *MonitorSuite) TestFailedLoginWindowExpiry() {
	ctx := context.Background()
	actor := id.NewUserID().String()

	for i := 0; i < 5; i++ {
		_, err := s.monitor.TrackFailedLogin(ctx, actor, "203.0.113.5", "curl/8")
		s.Require().NoError(err)
	}

	s.now = s.now.Add(20 * time.Minute)
	severity, err := s.monitor.TrackFailedLogin(ctx, actor, "203.0.113.5", "curl/8")
	s.Require().NoError(err)
	s.Equal(SeverityLow, severity, "old failures fall out of the window")
}

func (s *MonitorSuite) TestAlertReachesEveryActiveAdmin() {
	ctx := context.Background()
	s.addAdmin("a@example.com", true)
	s.addAdmin("b@example.com", true)
	s.addAdmin("retired@example.com", false)

	err := s.monitor.TrackSecurityEvent(ctx, Event{
		Severity: SeverityCritical,
		Action:   ActionSuspiciousPattern,
	})
	s.Require().NoError(err)

	s.ElementsMatch([]string{"a@example.com", "b@example.com"}, s.notifier.emails)
}

func (s *MonitorSuite) TestAlertFailureDoesNotAbortOthers() {
	ctx := context.Background()
	s.addAdmin("a@example.com", true)
	s.addAdmin("broken@example.com", true)
	s.addAdmin("c@example.com", true)
	s.notifier.failFor["broken@example.com"] = true

	err := s.monitor.TrackSecurityEvent(ctx, Event{
		Severity: SeverityHigh,
		Action:   ActionSuspiciousTransaction,
	})
	s.Require().NoError(err)

	s.ElementsMatch([]string{"a@example.com", "c@example.com"}, s.notifier.emails)
}

func (s *MonitorSuite) TestLowSeverityDoesNotAlert() {
	ctx := context.Background()
	s.addAdmin("ops@example.com", true)

	err := s.monitor.TrackSecurityEvent(ctx, Event{
		Severity: SeverityMedium,
		Action:   ActionOTPFailed,
	})
	s.Require().NoError(err)
	s.Empty(s.notifier.emails)
}

func (s *MonitorSuite) TestSuspiciousTransactionSeverityMapping() {
	ctx := context.Background()

	tests := []struct {
		score    int
		expected Severity
	}{
		{80, SeverityCritical},
		{75, SeverityCritical},
		{60, SeverityHigh},
		{50, SeverityHigh},
		{45, SeverityMedium},
		{10, SeverityMedium},
	}
	for _, tt := range tests {
		s.Run(fmt.Sprintf("score %d", tt.score), func() {
			actor := id.NewUserID().String()
			err := s.monitor.TrackSuspiciousTransaction(ctx, actor, "tx-1", tt.score, Metadata{})
			s.Require().NoError(err)

			events, err := s.store.List(ctx, Filter{ActorID: actor})
			s.Require().NoError(err)
			s.Require().Len(events, 1)
			s.Equal(tt.expected, events[0].Severity)
			s.Equal(tt.score, events[0].Metadata.Score)
		})
	}
}

func (s *MonitorSuite) TestSuspiciousPatternAlertsOnHighSeverity() {
	ctx := context.Background()
	s.addAdmin("ops@bank.example", true)

	actor := id.NewUserID().String()
	accountID := id.NewAccountID().String()
	err := s.monitor.TrackSuspiciousPattern(ctx, actor, accountID,
		"structuring", "3 transactions just under the reporting threshold", SeverityHigh)
	s.Require().NoError(err)

	events, err := s.store.List(ctx, Filter{ActorID: actor})
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(ActionSuspiciousPattern, events[0].Action)
	s.Equal(accountID, events[0].EntityID)
	s.Equal("structuring", events[0].Metadata.Extra["pattern"])
	s.Equal([]string{"ops@bank.example"}, s.notifier.emails)

	s.Run("medium severity stays quiet", func() {
		err := s.monitor.TrackSuspiciousPattern(ctx, id.NewUserID().String(), accountID,
			"geographic_spread", "transactions from 12 locations", SeverityMedium)
		s.Require().NoError(err)
		s.Len(s.notifier.emails, 1)
	})
}

func (s *MonitorSuite) TestRecordSyncPropagatesWriteFailure() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &failingStore{InMemoryStore: NewInMemoryStore(), failAppend: true}
	publisher := NewPublisher(store, WithPublisherLogger(logger))

	monitor, err := NewMonitor(store, publisher, s.admins, WithLogger(logger))
	s.Require().NoError(err)

	err = monitor.RecordSync(context.Background(), Event{Severity: SeverityLow, Action: ActionGateDecision})
	s.Require().Error(err)
}

func (s *MonitorSuite) TestStats() {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s.monitor.Record(ctx, Event{Severity: SeverityLow, Action: ActionLoginFailed, Timestamp: s.now})
	}
	s.monitor.Record(ctx, Event{Severity: SeverityLow, Action: ActionOTPIssued, Timestamp: s.now.Add(24 * time.Hour)})

	stats, err := s.monitor.Stats(ctx, s.now.Add(-time.Hour), s.now.Add(48*time.Hour))
	s.Require().NoError(err)
	s.Equal(4, stats.Total)
	s.Equal(3, stats.ByAction[ActionLoginFailed])
	s.Equal(1, stats.ByAction[ActionOTPIssued])
	s.Len(stats.ByDay, 2)
}

func (s *MonitorSuite) TestAsyncPublisherDrainsOnClose() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := NewInMemoryStore()
	publisher := NewPublisher(store, WithPublisherLogger(logger), WithAsyncBuffer(64))

	for i := 0; i < 10; i++ {
		publisher.Emit(context.Background(), Event{Severity: SeverityLow, Action: ActionOTPIssued})
	}
	publisher.Close()

	events, err := store.List(context.Background(), Filter{})
	s.Require().NoError(err)
	s.Len(events, 10)
}
