package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/CCDocs-repos/Batch-Onboarding-Automation/internal/dto"
)

// OnboardingProducer publishes one event per processed row plus a run
// summary to a single topic. It is an optional audit feed: the HR stack
// downstream consumes it, but the workflow never depends on it.
type OnboardingProducer struct {
	sp     sarama.SyncProducer
	topic  string
	source string
	log    zerolog.Logger
}

type Config struct {
	Topic  string
	Source string
}

func NewOnboardingProducer(sp sarama.SyncProducer, cfg Config, log zerolog.Logger) *OnboardingProducer {
	return &OnboardingProducer{
		sp:     sp,
		topic:  cfg.Topic,
		source: cfg.Source,
		log:    log.With().Str("component", "OnboardingProducer").Logger(),
	}
}

func (p *OnboardingProducer) Close() error {
	if p == nil || p.sp == nil {
		return nil
	}
	return p.sp.Close()
}

func (p *OnboardingProducer) ProduceRowResult(ctx context.Context, rec dto.HireRecord, res dto.ProvisioningResult) error {
	payload := RowResultPayload{
		Row:        res.Row,
		Email:      rec.Email,
		PlatformID: rec.PlatformID,
		Status:     res.Status,
		Notes:      res.Notes,
	}
	return send(p, ctx, "row_result", rec.Email, payload)
}

func (p *OnboardingProducer) ProduceRunSummary(ctx context.Context, succeeded, failed int) error {
	payload := RunSummaryPayload{
		Succeeded: succeeded,
		Failed:    failed,
	}
	return send(p, ctx, "run_summary", p.source, payload)
}

func send[T any](p *OnboardingProducer, _ context.Context, kind, key string, payload T) error {
	if p == nil || p.sp == nil {
		return errors.New("sync producer is not initialized")
	}

	env := Envelope[T]{
		Kind:      kind,
		MessageID: uuid.New(),
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		Source:    p.source,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-kind"), Value: []byte(kind)},
			{Key: []byte("source"), Value: []byte(p.source)},
			{Key: []byte("content-type"), Value: []byte("application/json")},
		},
	}

	partition, offset, err := p.sp.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("sp.SendMessage: %w", err)
	}

	p.log.Info().
		Str("kind", kind).
		Str("key", key).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("event published")
	return nil
}
