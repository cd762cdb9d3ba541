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

// AgentStatus is the durable liveness flag for a monitored host.
type AgentStatus string

const (
	AgentOnline  AgentStatus = "online"
	AgentOffline AgentStatus = "offline"
)

// Agent is the durable record of a monitored host. The (hostname, ip_address)
// pair is the natural key; re-registration with the same pair updates the
// existing row.
type Agent struct {
	ID        string      `json:"id"`
	Hostname  string      `json:"hostname"`
	IPAddress string      `json:"ip_address"`
	OS        OSInfo      `json:"os_info"`
	Status    AgentStatus `json:"status"`
	FirstSeen time.Time   `json:"first_seen"`
	LastSeen  time.Time   `json:"last_seen"`
}

// AgentKey is the natural key backing the upsert.
type AgentKey struct {
	Hostname  string
	IPAddress string
}

// OSInfo describes the reporting host's platform.
type OSInfo struct {
	Platform string `json:"platform"`
	OS       string `json:"os"`
	Arch     string `json:"arch"`
	Release  string `json:"release,omitempty"`
}
