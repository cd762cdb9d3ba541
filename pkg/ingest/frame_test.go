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

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	receivedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		raw     string
		wantErr error
		check   func(t *testing.T, frame *Frame)
	}{
		{
			name: "complete frame with numeric usage",
			raw: `{"hostname":"host-a","ipAddress":"10.0.0.5","cpuUsage":45,"memoryUsage":60,
				"osInfo":{"platform":"linux","os":"ubuntu","arch":"x64","release":"22.04"},
				"timestamp":1748779200000}`,
			check: func(t *testing.T, frame *Frame) {
				t.Helper()
				assert.Equal(t, "host-a", frame.Key.Hostname)
				assert.Equal(t, "10.0.0.5", frame.Key.IPAddress)
				assert.InDelta(t, 45.0, frame.CPUUsage, 0.0001)
				assert.InDelta(t, 60.0, frame.MemUsage, 0.0001)
				assert.Equal(t, "22.04", frame.OS.Release)
				assert.Equal(t, int64(1748779200000), frame.Timestamp.UnixMilli())
			},
		},
		{
			name: "string usage values are coerced",
			raw: `{"hostname":"host-b","cpuUsage":"12.5","memoryUsage":"33",
				"osInfo":{"platform":"linux","os":"debian","arch":"arm64"}}`,
			check: func(t *testing.T, frame *Frame) {
				t.Helper()
				assert.InDelta(t, 12.5, frame.CPUUsage, 0.0001)
				assert.InDelta(t, 33.0, frame.MemUsage, 0.0001)
			},
		},
		{
			name: "missing timestamp uses receipt time",
			raw: `{"hostname":"host-c","cpuUsage":1,"memoryUsage":2,
				"osInfo":{"platform":"linux","os":"alpine","arch":"x64"}}`,
			check: func(t *testing.T, frame *Frame) {
				t.Helper()
				assert.Equal(t, receivedAt, frame.Timestamp)
			},
		},
		{
			name: "empty ip address is allowed",
			raw: `{"hostname":"host-d","cpuUsage":5,"memoryUsage":5,
				"osInfo":{"platform":"linux","os":"ubuntu","arch":"x64"}}`,
			check: func(t *testing.T, frame *Frame) {
				t.Helper()
				assert.Empty(t, frame.Key.IPAddress)
			},
		},
		{
			name:    "malformed json",
			raw:     `{"hostname":`,
			wantErr: ErrMalformedFrame,
		},
		{
			name: "missing hostname",
			raw: `{"cpuUsage":45,"memoryUsage":60,
				"osInfo":{"platform":"linux","os":"ubuntu","arch":"x64"}}`,
			wantErr: ErrMissingHostname,
		},
		{
			name:    "missing os info",
			raw:     `{"hostname":"host-a","cpuUsage":45,"memoryUsage":60}`,
			wantErr: ErrMissingOSInfo,
		},
		{
			name: "non-numeric cpu usage",
			raw: `{"hostname":"host-a","cpuUsage":"lots","memoryUsage":60,
				"osInfo":{"platform":"linux","os":"ubuntu","arch":"x64"}}`,
			wantErr: ErrMalformedFrame,
		},
		{
			name: "cpu usage above 100",
			raw: `{"hostname":"host-a","cpuUsage":250,"memoryUsage":60,
				"osInfo":{"platform":"linux","os":"ubuntu","arch":"x64"}}`,
			wantErr: ErrInvalidUsage,
		},
		{
			name: "negative memory usage",
			raw: `{"hostname":"host-a","cpuUsage":10,"memoryUsage":-1,
				"osInfo":{"platform":"linux","os":"ubuntu","arch":"x64"}}`,
			wantErr: ErrInvalidUsage,
		},
		{
			name: "missing cpu usage",
			raw: `{"hostname":"host-a","memoryUsage":60,
				"osInfo":{"platform":"linux","os":"ubuntu","arch":"x64"}}`,
			wantErr: ErrInvalidUsage,
		},
		{
			name: "zero timestamp rejected",
			raw: `{"hostname":"host-a","cpuUsage":10,"memoryUsage":20,
				"osInfo":{"platform":"linux","os":"ubuntu","arch":"x64"},"timestamp":0}`,
			wantErr: ErrInvalidTime,
		},
		{
			name: "string timestamp is coerced",
			raw: `{"hostname":"host-a","cpuUsage":10,"memoryUsage":20,
				"osInfo":{"platform":"linux","os":"ubuntu","arch":"x64"},"timestamp":"1748779200000"}`,
			check: func(t *testing.T, frame *Frame) {
				t.Helper()
				assert.Equal(t, int64(1748779200000), frame.Timestamp.UnixMilli())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := ParseFrame([]byte(tt.raw), receivedAt)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, frame)

				return
			}

			require.NoError(t, err)
			require.NotNil(t, frame)

			if tt.check != nil {
				tt.check(t, frame)
			}
		})
	}
}
