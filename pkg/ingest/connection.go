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

package ingest

import "time"

// ConnState is the lifecycle of one agent connection.
type ConnState int

const (
	// StateConnecting means the transport is open but no valid frame has
	// arrived yet. Malformed frames leave the connection here; the transport
	// stays open so the agent can retry.
	StateConnecting ConnState = iota

	// StateIdentified means the first valid frame resolved an agent identity.
	StateIdentified

	// StateActive means at least one further frame was processed.
	StateActive

	// StateClosed is terminal.
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateIdentified:
		return "identified"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// connection is the transient per-transport record. Never persisted; exactly
// one exists per live transport.
type connection struct {
	id          string
	agentID     string
	hostname    string
	connectedAt time.Time
	state       ConnState
}

func (c *connection) identified() bool {
	return c.state == StateIdentified || c.state == StateActive
}
