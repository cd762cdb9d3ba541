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
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/serverpulse/serverpulse/pkg/models"
)

var (
	ErrMalformedFrame  = errors.New("malformed frame")
	ErrMissingHostname = errors.New("frame missing hostname")
	ErrMissingOSInfo   = errors.New("frame missing os info")
	ErrInvalidUsage    = errors.New("usage value not a finite percentage")
	ErrInvalidTime     = errors.New("timestamp not a positive epoch value")
)

// flexNumber accepts a JSON number or a numeric string. Agents disagree on
// which they send, so coercion happens once here at the boundary.
type flexNumber struct {
	value float64
	set   bool
}

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		return nil
	}

	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("cannot coerce %q to a number: %w", s, err)
		}

		f.value = v
		f.set = true

		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	f.value = v
	f.set = true

	return nil
}

// wireFrame is the raw JSON shape of one agent metrics report.
type wireFrame struct {
	Hostname    string     `json:"hostname"`
	IPAddress   string     `json:"ipAddress"`
	CPUUsage    flexNumber `json:"cpuUsage"`
	MemoryUsage flexNumber `json:"memoryUsage"`
	OSInfo      *struct {
		Platform string `json:"platform"`
		OS       string `json:"os"`
		Arch     string `json:"arch"`
		Release  string `json:"release"`
	} `json:"osInfo"`
	Timestamp flexNumber `json:"timestamp"`
}

// Frame is one validated metrics report. CPUUsage and MemoryUsage are
// percentages in [0, 100].
type Frame struct {
	Key       models.AgentKey
	CPUUsage  float64
	MemUsage  float64
	OS        models.OSInfo
	Timestamp time.Time
}

// ParseFrame decodes and validates one raw frame. receivedAt stamps frames
// that carry no timestamp of their own. A frame failing any check is rejected
// whole; partial frames never produce effects.
func ParseFrame(raw []byte, receivedAt time.Time) (*Frame, error) {
	var wire wireFrame

	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}

	if strings.TrimSpace(wire.Hostname) == "" {
		return nil, ErrMissingHostname
	}

	if wire.OSInfo == nil || wire.OSInfo.Platform == "" || wire.OSInfo.OS == "" || wire.OSInfo.Arch == "" {
		return nil, ErrMissingOSInfo
	}

	cpu, err := validUsage("cpuUsage", wire.CPUUsage)
	if err != nil {
		return nil, err
	}

	mem, err := validUsage("memoryUsage", wire.MemoryUsage)
	if err != nil {
		return nil, err
	}

	ts := receivedAt
	if wire.Timestamp.set {
		ms := wire.Timestamp.value
		if math.IsNaN(ms) || math.IsInf(ms, 0) || ms <= 0 {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTime, ms)
		}

		ts = time.UnixMilli(int64(ms)).UTC()
	}

	return &Frame{
		Key: models.AgentKey{
			Hostname:  strings.TrimSpace(wire.Hostname),
			IPAddress: strings.TrimSpace(wire.IPAddress),
		},
		CPUUsage: cpu,
		MemUsage: mem,
		OS: models.OSInfo{
			Platform: wire.OSInfo.Platform,
			OS:       wire.OSInfo.OS,
			Arch:     wire.OSInfo.Arch,
			Release:  wire.OSInfo.Release,
		},
		Timestamp: ts,
	}, nil
}

func validUsage(field string, n flexNumber) (float64, error) {
	if !n.set {
		return 0, fmt.Errorf("%w: %s missing", ErrInvalidUsage, field)
	}

	v := n.value
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 100 {
		return 0, fmt.Errorf("%w: %s=%v", ErrInvalidUsage, field, v)
	}

	return v, nil
}
