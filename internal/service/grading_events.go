package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// EventAttemptGraded is the event type emitted after grades are committed.
const EventAttemptGraded = "attempt.graded"

// AttemptGradedEvent describes one committed grading submission.
type AttemptGradedEvent struct {
	QuizID    uint      `json:"quiz_id"`
	AttemptID uint      `json:"attempt_id"`
	UsageID   uint      `json:"usage_id"`
	StudentID uint      `json:"student_id"`
	GraderID  uint      `json:"grader_id"`
	Slots     []int     `json:"slots"`
	GradedAt  time.Time `json:"graded_at"`
}

// GradingEventPublisher fans grading events out to downstream consumers.
type GradingEventPublisher interface {
	PublishAttemptGraded(ctx context.Context, event AttemptGradedEvent) error
}

type gradingEventEnvelope struct {
	Source string             `json:"source"`
	Type   string             `json:"type"`
	Event  AttemptGradedEvent `json:"event"`
	SentAt time.Time          `json:"sent_at"`
}

type gradingEventPublisher struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	nodeID       string
	now          func() time.Time
}

// NewGradingEventPublisher publishes to the redis channel and the NATS subject
// derived from channel. Either client may be nil.
func NewGradingEventPublisher(redisClient *redis.Client, natsConn *nats.Conn, channel string, logger zerolog.Logger) GradingEventPublisher {
	subject := ""
	if channel != "" {
		subject = strings.ReplaceAll(channel, ":", ".")
	}

	return &gradingEventPublisher{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "grading_events").Logger(),
		nodeID:       uuid.NewString(),
		now:          time.Now,
	}
}

func (p *gradingEventPublisher) PublishAttemptGraded(ctx context.Context, event AttemptGradedEvent) error {
	payload, err := json.Marshal(gradingEventEnvelope{
		Source: p.nodeID,
		Type:   EventAttemptGraded,
		Event:  event,
		SentAt: p.now().UTC(),
	})
	if err != nil {
		return err
	}

	if p.redis != nil && p.redisChannel != "" {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			return err
		}
	}

	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.natsSubject, payload); err != nil {
			return err
		}
	}

	p.logger.Debug().Uint("attempt_id", event.AttemptID).Msg("grading event published")
	return nil
}
