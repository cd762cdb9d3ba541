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

// The agent samples host metrics and pushes them to the core over WebSocket.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/url"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/serverpulse/serverpulse/pkg/lifecycle"
	"github.com/serverpulse/serverpulse/pkg/logger"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

type metricsFrame struct {
	Hostname    string  `json:"hostname"`
	IPAddress   string  `json:"ipAddress,omitempty"`
	CPUUsage    float64 `json:"cpuUsage"`
	MemoryUsage float64 `json:"memoryUsage"`
	OSInfo      osInfo  `json:"osInfo"`
	Timestamp   int64   `json:"timestamp"`
}

type osInfo struct {
	Platform string `json:"platform"`
	OS       string `json:"os"`
	Arch     string `json:"arch"`
	Release  string `json:"release,omitempty"`
}

func main() {
	var (
		server   = flag.String("server", "localhost:8080", "core server host:port")
		address  = flag.String("address", "", "address to report for this host")
		interval = flag.Duration("interval", 10*time.Second, "reporting interval")
		secure   = flag.Bool("secure", false, "use WSS instead of WS")
	)
	flag.Parse()

	log, err := lifecycle.CreateComponentLogger("agent", logger.DefaultConfig())
	if err != nil {
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheme := "ws"
	if *secure {
		scheme = "wss"
	}

	u := url.URL{Scheme: scheme, Host: *server, Path: "/ws/agent"}

	backoff := initialBackoff

	for {
		if err := report(ctx, u.String(), *address, *interval, log); err != nil {
			log.Warn().Err(err).Dur("backoff", backoff).Msg("connection lost, retrying")
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("agent shutting down")
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// report dials the core and pushes one frame per interval until the
// connection or the context ends.
func report(ctx context.Context, target, address string, interval time.Duration, log logger.Logger) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	log.Info().Str("server", target).Msg("connected to core")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		frame, err := sample(ctx, address)
		if err != nil {
			log.Warn().Err(err).Msg("failed to sample host metrics")
		} else {
			payload, err := json.Marshal(frame)
			if err != nil {
				return err
			}

			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return err
			}

			log.Debug().
				Float64("cpu", frame.CPUUsage).
				Float64("memory", frame.MemoryUsage).
				Msg("frame sent")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func sample(ctx context.Context, address string) (*metricsFrame, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, err
	}

	cpuPercents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return nil, err
	}

	cpuUsage := 0.0
	if len(cpuPercents) > 0 {
		cpuUsage = cpuPercents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}

	info := osInfo{
		Platform: runtime.GOOS,
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
	}

	if hi, err := host.InfoWithContext(ctx); err == nil {
		info.Platform = hi.Platform
		info.OS = hi.OS
		info.Release = hi.PlatformVersion
	}

	return &metricsFrame{
		Hostname:    hostname,
		IPAddress:   address,
		CPUUsage:    clampPercent(cpuUsage),
		MemoryUsage: clampPercent(vm.UsedPercent),
		OSInfo:      info,
		Timestamp:   time.Now().UnixMilli(),
	}, nil
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > 100 {
		return 100
	}

	return v
}
