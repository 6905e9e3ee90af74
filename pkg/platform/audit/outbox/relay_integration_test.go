//go:build integration

package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"

	id "onboard/pkg/domain"
	audit "onboard/pkg/platform/audit"
	"onboard/pkg/platform/audit/store/postgres"
	"onboard/pkg/testutil/containers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type recordingProducer struct {
	mu       sync.Mutex
	topics   []string
	keys     []string
	failFrom int
}

func (p *recordingProducer) Publish(_ context.Context, topic string, key, _ []byte, _ map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failFrom > 0 && len(p.topics) >= p.failFrom {
		return errors.New("broker unavailable")
	}
	p.topics = append(p.topics, topic)
	p.keys = append(p.keys, string(key))
	return nil
}

type RelaySuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *postgres.Store
}

func TestRelaySuite(t *testing.T) {
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = postgres.New(s.pg.DB)
}

func (s *RelaySuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(context.Background(), "audit_outbox"))
}

func (s *RelaySuite) appendEvents(userID id.UserID, actions ...audit.AuditEvent) {
	for _, action := range actions {
		s.Require().NoError(s.store.Append(context.Background(), audit.Event{
			UserID: userID,
			Action: string(action),
		}))
	}
}

func (s *RelaySuite) TestRoutesByCategoryAndMarksPublished() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())
	s.appendEvents(userID, audit.EventCaseApproved, audit.EventCaseCreated)

	producer := &recordingProducer{}
	relay := New(s.pg.DB, producer, Topics{Compliance: "compliance", Operations: "ops"})

	n, err := relay.RunOnce(ctx)
	s.Require().NoError(err)
	s.Equal(2, n)
	s.ElementsMatch([]string{"compliance", "ops"}, producer.topics)
	s.Equal([]string{userID.String(), userID.String()}, producer.keys)

	n, err = relay.RunOnce(ctx)
	s.Require().NoError(err)
	s.Zero(n, "published rows must not be relayed twice")
}

func (s *RelaySuite) TestPublishFailureLeavesRemainderPending() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())
	s.appendEvents(userID, audit.EventCaseSubmitted, audit.EventCaseApproved, audit.EventCaseRejected)

	relay := New(s.pg.DB, &recordingProducer{failFrom: 1}, Topics{Compliance: "c", Operations: "o"})
	n, err := relay.RunOnce(ctx)
	s.Require().NoError(err)
	s.Equal(1, n)

	retry := &recordingProducer{}
	n, err = New(s.pg.DB, retry, Topics{Compliance: "c", Operations: "o"}).RunOnce(ctx)
	s.Require().NoError(err)
	s.Equal(2, n)
}

func (s *RelaySuite) TestStoreListByUserReadsOutbox() {
	userID := id.UserID(uuid.New())
	s.appendEvents(userID, audit.EventCaseSubmitted, audit.EventCaseApproved)

	events, err := s.store.ListByUser(context.Background(), userID)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(string(audit.EventCaseSubmitted), events[0].Action)
	s.Equal(audit.CategoryCompliance, events[1].Category)
	s.Equal(userID, events[1].UserID)
}
