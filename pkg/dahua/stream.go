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
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/harborcam/dahua/pkg/logger"
)

const (
	streamReadBufferSize    = 4096
	reconnectInitialBackoff = time.Second
	reconnectMaxBackoff     = 2 * time.Minute
)

// StreamHandler receives raw byte chunks from a camera event stream along
// with the channel index the reader was started for.
type StreamHandler func(data []byte, channel int)

// PayloadHandler receives one structured event payload from a doorbell
// event stream.
type PayloadHandler func(payload map[string]any)

// EventReader is a long-lived background reader with one dedicated
// connection to the device. Start is non-blocking; Stop terminates the
// reader and waits for it to exit. Stop is idempotent.
type EventReader interface {
	Start(ctx context.Context)
	Stop()
}

// StreamReader attaches to a camera's eventManager CGI endpoint and feeds
// the raw multipart byte stream to its handler, chunk by chunk. It
// reconnects forever with exponential backoff until stopped. Doorbells do
// not serve this endpoint; use VTOReader for those.
type StreamReader struct {
	client   *HTTPClient
	channel  int
	codes    []string
	onData   StreamHandler
	log      logger.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
	started  bool
	mu       sync.Mutex
}

// NewStreamReader creates a reader for the given channel. codes narrows the
// subscribed event codes; empty subscribes to all.
func NewStreamReader(client *HTTPClient, channel int, codes []string, onData StreamHandler, log logger.Logger) *StreamReader {
	return &StreamReader{
		client:  client,
		channel: channel,
		codes:   codes,
		onData:  onData,
		log:     log,
	}
}

func (r *StreamReader) Start(ctx context.Context) {
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

func (r *StreamReader) Stop() {
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

func (r *StreamReader) run(ctx context.Context) {
	defer r.wg.Done()

	bo := newReconnectBackoff()

	for {
		err := r.attach(ctx)
		if ctx.Err() != nil {
			return
		}

		wait := bo.NextBackOff()
		r.log.Warn().
			Err(err).
			Int("channel", r.channel).
			Dur("retry_in", wait).
			Msg("Event stream disconnected, reconnecting")

		if !sleepCtx(ctx, wait) {
			return
		}
	}
}

// attach holds one connection open and pumps chunks to the handler until
// the stream breaks or ctx is canceled.
func (r *StreamReader) attach(ctx context.Context) error {
	codes := "[All]"
	if len(r.codes) > 0 {
		codes = "[" + strings.Join(r.codes, ",") + "]"
	}

	path := fmt.Sprintf("/cgi-bin/eventManager.cgi?action=attach&codes=%s", codes)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.client.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to build attach request: %w", err)
	}

	req.SetBasicAuth(r.client.username, r.client.password)

	// The attach connection stays open indefinitely, so bypass any client
	// timeout configured for regular API calls.
	streamClient := &http.Client{Transport: r.client.client.Transport}

	resp, err := streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("event stream attach failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &APIError{Endpoint: path, StatusCode: resp.StatusCode}
	}

	r.log.Info().Int("channel", r.channel).Msg("Attached to camera event stream")

	buf := make([]byte, streamReadBufferSize)

	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			r.onData(chunk, r.channel)
		}

		if err != nil {
			return fmt.Errorf("event stream read failed: %w", err)
		}
	}
}

func newReconnectBackoff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = reconnectInitialBackoff
	bo.MaxInterval = reconnectMaxBackoff

	return bo
}

// sleepCtx waits for d, returning false if ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
