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

package cache

import (
	"fmt"
	"time"
)

// SnapshotTTL bounds how long a cached metrics snapshot stays readable
// without a fresh frame. The durable status flag is liveness-authoritative
// and not subject to this expiry.
const SnapshotTTL = 300 * time.Second

func StatusKey(agentID string) string {
	return fmt.Sprintf("agent:%s:status", agentID)
}

func MetricsKey(agentID string) string {
	return fmt.Sprintf("agent:%s:metrics:latest", agentID)
}

func LastSeenKey(agentID string) string {
	return fmt.Sprintf("agent:%s:lastSeen", agentID)
}
