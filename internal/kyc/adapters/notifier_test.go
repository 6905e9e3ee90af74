package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboard/internal/kyc/ports"
	id "onboard/pkg/domain"
	"onboard/pkg/requestcontext"
)

type record struct {
	topic   string
	key     []byte
	value   []byte
	headers map[string]string
}

type fakeProducer struct {
	records []record
	err     error
}

func (p *fakeProducer) Publish(_ context.Context, topic string, key, value []byte, headers map[string]string) error {
	if p.err != nil {
		return p.err
	}
	p.records = append(p.records, record{topic: topic, key: key, value: value, headers: headers})
	return nil
}

func TestKafkaNotifier(t *testing.T) {
	n := ports.Notification{
		Kind:       ports.NotificationRejected,
		UserID:     id.UserID(uuid.New()),
		CaseID:     id.NewCaseID(),
		Reason:     "blurry documents",
		OccurredAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	t.Run("keys by user and carries kind header", func(t *testing.T) {
		producer := &fakeProducer{}
		ctx := requestcontext.WithRequestID(context.Background(), "req-9")
		require.NoError(t, NewKafkaNotifier(producer, "kyc.notifications").Notify(ctx, n))

		require.Len(t, producer.records, 1)
		rec := producer.records[0]
		assert.Equal(t, "kyc.notifications", rec.topic)
		assert.Equal(t, n.UserID.String(), string(rec.key))
		assert.Equal(t, "kyc_rejected", rec.headers["kind"])
		assert.Equal(t, "req-9", rec.headers["request_id"])

		var decoded ports.Notification
		require.NoError(t, json.Unmarshal(rec.value, &decoded))
		assert.Equal(t, n.CaseID, decoded.CaseID)
		assert.Equal(t, "blurry documents", decoded.Reason)
	})

	t.Run("propagates producer errors", func(t *testing.T) {
		producer := &fakeProducer{err: errors.New("broker down")}
		err := NewKafkaNotifier(producer, "t").Notify(context.Background(), n)
		assert.Error(t, err)
	})
}

func TestInMemoryAdapters(t *testing.T) {
	ctx := context.Background()
	userID := id.UserID(uuid.New())

	progress := NewInMemoryProgress()
	require.NoError(t, progress.Track(ctx, userID, ports.MilestoneKYCSubmitted))
	require.NoError(t, progress.Track(ctx, userID, ports.MilestoneKYCSubmitted))
	assert.True(t, progress.Has(userID, ports.MilestoneKYCSubmitted))
	assert.False(t, progress.Has(userID, ports.MilestoneKYCApproved))

	status := NewInMemoryUserStatus()
	_, ok := status.Status(userID)
	assert.False(t, ok)
	require.NoError(t, status.SyncStatus(ctx, userID, "VERIFIED"))
	got, ok := status.Status(userID)
	assert.True(t, ok)
	assert.EqualValues(t, "VERIFIED", got)
}
