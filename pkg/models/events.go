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

package models

import "time"

// AgentEventType discriminates the events delivered to dashboard viewers.
type AgentEventType string

const (
	EventMetrics       AgentEventType = "metrics"
	EventStatusChanged AgentEventType = "agent-status-changed"
)

// AgentEvent is the fan-out payload pushed to dashboard viewers and to any
// in-process subscriber.
type AgentEvent struct {
	Type      AgentEventType   `json:"type"`
	AgentID   string           `json:"agentId"`
	Metrics   *MetricsSnapshot `json:"metrics,omitempty"`
	Status    AgentStatus      `json:"status,omitempty"`
	Timestamp int64            `json:"timestamp"`
}

// CloudEvent wraps a status transition for publication to JetStream so
// external consumers can follow liveness without joining the dashboard socket.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Type            string      `json:"type"`
	DataContentType string      `json:"datacontenttype"`
	Subject         string      `json:"subject"`
	Time            *time.Time  `json:"time,omitempty"`
	Data            interface{} `json:"data"`
}

// AgentStatusEventData is the CloudEvent payload for an online/offline flip.
type AgentStatusEventData struct {
	AgentID       string      `json:"agent_id"`
	Hostname      string      `json:"hostname"`
	PreviousState AgentStatus `json:"previous_state"`
	CurrentState  AgentStatus `json:"current_state"`
	LastSeen      time.Time   `json:"last_seen"`
	Timestamp     time.Time   `json:"timestamp"`
}
