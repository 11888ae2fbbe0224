/*
 * Copyright 2025 Harborcam Authors.
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

package dahua

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/harborcam/dahua/pkg/logger"
)

const (
	// DefaultVTOPort is the TCP port doorbells serve their event stream on.
	DefaultVTOPort = 5000

	vtoMaxFrameSize = 1 << 20
)

// VTOReader consumes the doorbell (VTO) event stream: a dedicated TCP
// connection carrying JSON frames. Event notifications arrive as
// client.notifyEventStream frames holding a list of structured events
// (Code, Action, Data, Index); each is handed to the payload handler.
// All other frames (keepalives, command replies) are consumed internally.
type VTOReader struct {
	host     string
	port     int
	onEvent  PayloadHandler
	log      logger.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
	started  bool
	mu       sync.Mutex
}

var _ EventReader = (*VTOReader)(nil)
var _ EventReader = (*StreamReader)(nil)

func NewVTOReader(host string, port int, onEvent PayloadHandler, log logger.Logger) *VTOReader {
	if port == 0 {
		port = DefaultVTOPort
	}

	return &VTOReader{
		host:    host,
		port:    port,
		onEvent: onEvent,
		log:     log,
	}
}

func (r *VTOReader) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return
	}

	ctx, r.cancel = context.WithCancel(ctx)
	r.started = true

	r.wg.Add(1)

	go r.run(ctx)
}

func (r *VTOReader) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()

	r.stopOnce.Do(func() {
		if cancel != nil {
			cancel()
		}

		r.wg.Wait()
	})
}

func (r *VTOReader) run(ctx context.Context) {
	defer r.wg.Done()

	bo := newReconnectBackoff()

	for {
		err := r.listen(ctx)
		if ctx.Err() != nil {
			return
		}

		wait := bo.NextBackOff()
		r.log.Warn().
			Err(err).
			Str("host", r.host).
			Dur("retry_in", wait).
			Msg("VTO event stream disconnected, reconnecting")

		if !sleepCtx(ctx, wait) {
			return
		}
	}
}

func (r *VTOReader) listen(ctx context.Context) error {
	var dialer net.Dialer

	conn, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", r.host, r.port))
	if err != nil {
		return fmt.Errorf("VTO connect failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// Unblock the read loop when stopped.
	readDone := make(chan struct{})
	defer close(readDone)

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-readDone:
		}
	}()

	r.log.Info().Str("host", r.host).Int("port", r.port).Msg("Connected to VTO event stream")

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), vtoMaxFrameSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		r.handleFrame(line)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("VTO stream read failed: %w", err)
	}

	return fmt.Errorf("%w: VTO connection closed", ErrReaderStopped)
}

func (r *VTOReader) handleFrame(frame []byte) {
	var msg struct {
		Method string `json:"method"`
		Params struct {
			EventList []map[string]any `json:"eventList"`
		} `json:"params"`
	}

	if err := json.Unmarshal(frame, &msg); err != nil {
		// Frames we can't decode are dropped, the stream itself is fine.
		r.log.Debug().Err(err).Msg("Skipping undecodable VTO frame")
		return
	}

	if msg.Method != "client.notifyEventStream" {
		return
	}

	for _, event := range msg.Params.EventList {
		r.onEvent(event)
	}
}
