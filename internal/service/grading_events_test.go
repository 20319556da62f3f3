package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestGradingEventPublisherPublishesToRedis(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, "grading:events")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	publisher := NewGradingEventPublisher(client, nil, "grading:events", zerolog.Nop())
	err = publisher.PublishAttemptGraded(ctx, AttemptGradedEvent{
		QuizID:    1,
		AttemptID: 100,
		UsageID:   10,
		GraderID:  9,
		Slots:     []int{1, 3},
	})
	require.NoError(t, err)

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var envelope gradingEventEnvelope
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &envelope))
	require.Equal(t, EventAttemptGraded, envelope.Type)
	require.NotEmpty(t, envelope.Source)
	require.Equal(t, uint(100), envelope.Event.AttemptID)
	require.Equal(t, []int{1, 3}, envelope.Event.Slots)
}

func TestGradingEventPublisherWithoutBrokers(t *testing.T) {
	publisher := NewGradingEventPublisher(nil, nil, "grading:events", zerolog.Nop())
	require.NoError(t, publisher.PublishAttemptGraded(context.Background(), AttemptGradedEvent{AttemptID: 1}))
}
