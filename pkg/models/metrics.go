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

// MetricsSnapshot is the most recent resource-usage report for an agent.
// CPUUsage and MemoryUsage are percentages in [0, 100]; the frame codec
// rejects anything outside that range before a snapshot is built.
type MetricsSnapshot struct {
	AgentID     string    `json:"agent_id"`
	CPUUsage    float64   `json:"cpu_usage"`
	MemoryUsage float64   `json:"memory_usage"`
	OS          OSInfo    `json:"os_info"`
	Timestamp   time.Time `json:"timestamp"`
}
