package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sifan077/QRHub/internal/app/model"
)

// JetStreamPublisher publishes mapping events and sweep reports to NATS JetStream.
type JetStreamPublisher struct {
	js nats.JetStreamContext
}

// NewJetStreamPublisher creates a new mapping event publisher.
func NewJetStreamPublisher(js nats.JetStreamContext) *JetStreamPublisher {
	return &JetStreamPublisher{js: js}
}

// EnsureStream creates the mapping stream when it does not exist yet.
func (p *JetStreamPublisher) EnsureStream() error {
	if _, err := p.js.StreamInfo(model.MappingStreamName); err == nil {
		return nil
	}
	_, err := p.js.AddStream(&nats.StreamConfig{
		Name:     model.MappingStreamName,
		Subjects: []string{model.MappingStreamSubjects},
		MaxBytes: model.MappingStreamMaxBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// Publish publishes a mapping event to the stream.
func (p *JetStreamPublisher) Publish(ctx context.Context, event model.MappingEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	subject := model.MappingEventSubject
	if event.Type == model.EventSweepCompleted {
		subject = model.SweepReportSubject
	}

	_, err = p.js.Publish(subject, data, nats.Context(ctx))
	return err
}

// ReportSweep publishes a summary of the sweep for downstream alerting.
func (p *JetStreamPublisher) ReportSweep(ctx context.Context, result *SweepResult) error {
	return p.Publish(ctx, model.MappingEvent{
		ID:        uuid.New().String(),
		Type:      model.EventSweepCompleted,
		Timestamp: result.RanAt,
		Sweep:     result.Summary(),
	})
}
