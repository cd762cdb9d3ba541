/*
 * Copyright 2025 the ServerPulse Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package natsutil publishes agent liveness transitions to JetStream so
// consumers outside the dashboard (alerting, history writers) can follow
// them.
package natsutil

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/serverpulse/serverpulse/pkg/models"
)

const (
	eventSource = "serverpulse/core"
	eventType   = "io.serverpulse.agent.status"
)

// EventPublisher publishes CloudEvents to a JetStream stream.
type EventPublisher struct {
	js      jetstream.JetStream
	subject string
}

// NewEventPublisher creates a publisher for the given subject.
func NewEventPublisher(js jetstream.JetStream, subject string) *EventPublisher {
	return &EventPublisher{
		js:      js,
		subject: subject,
	}
}

// PublishAgentStatusEvent publishes one online/offline transition.
func (p *EventPublisher) PublishAgentStatusEvent(ctx context.Context, data models.AgentStatusEventData) error {
	event := models.CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          eventSource,
		Type:            eventType,
		DataContentType: "application/json",
		Subject:         p.subject,
		Time:            &data.Timestamp,
		Data:            data,
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal agent status event: %w", err)
	}

	if _, err := p.js.Publish(ctx, event.Subject, eventBytes); err != nil {
		return fmt.Errorf("failed to publish agent status event: %w", err)
	}

	return nil
}

// ConnectWithEventPublisher creates a NATS connection, ensures the stream
// exists, and returns an EventPublisher bound to it.
func ConnectWithEventPublisher(ctx context.Context, cfg *models.NATSConfig) (*EventPublisher, *nats.Conn, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	subject := cfg.Subject
	if subject == "" {
		subject = "events.agent.status"
	}

	if _, err := js.Stream(ctx, cfg.Stream); err != nil {
		streamConfig := jetstream.StreamConfig{
			Name:     cfg.Stream,
			Subjects: []string{"events.agent.*"},
		}

		if _, err := js.CreateOrUpdateStream(ctx, streamConfig); err != nil {
			nc.Close()
			return nil, nil, fmt.Errorf("failed to create or get stream %s: %w", cfg.Stream, err)
		}
	}

	return NewEventPublisher(js, subject), nc, nil
}
