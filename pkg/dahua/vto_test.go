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
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborcam/dahua/pkg/logger"
)

func TestVTOReaderHandleFrame(t *testing.T) {
	var got []map[string]any

	r := NewVTOReader("doorbell", 0, func(payload map[string]any) {
		got = append(got, payload)
	}, logger.NewTestLogger())

	r.handleFrame([]byte(`{"method":"client.notifyEventStream","params":{"eventList":[` +
		`{"Code":"DoorStatus","Action":"Pulse","Data":{"Status":"Open"},"Index":0},` +
		`{"Code":"BackKeyLight","Action":"Pulse","Data":{"State":1},"Index":-1}]}}`))

	require.Len(t, got, 2)
	assert.Equal(t, "DoorStatus", got[0]["Code"])
	assert.Equal(t, "BackKeyLight", got[1]["Code"])
}

func TestVTOReaderIgnoresOtherFrames(t *testing.T) {
	called := false

	r := NewVTOReader("doorbell", 0, func(map[string]any) { called = true }, logger.NewTestLogger())

	r.handleFrame([]byte(`{"method":"global.keepAlive","params":{"timeout":30}}`))
	r.handleFrame([]byte(`{"result":true,"id":2}`))
	r.handleFrame([]byte(`not json at all`))

	assert.False(t, called)
}

func TestVTOReaderDeliversEventsFromConnection(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	defer func() { _ = ln.Close() }()

	go func() {
		conn, aerr := ln.Accept()
		if aerr != nil {
			return
		}

		_, _ = conn.Write([]byte(`{"method":"client.notifyEventStream","params":{"eventList":[{"Code":"VideoMotion","Action":"Start","Index":0}]}}` + "\n"))
	}()

	addr := ln.Addr().(*net.TCPAddr)
	events := make(chan map[string]any, 1)

	r := NewVTOReader(addr.IP.String(), addr.Port, func(payload map[string]any) {
		select {
		case events <- payload:
		default:
		}
	}, logger.NewTestLogger())

	r.Start(context.Background())
	defer r.Stop()

	select {
	case payload := <-events:
		assert.Equal(t, "VideoMotion", payload["Code"])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for VTO event")
	}
}

func TestVTOReaderStopIsPromptDuringBackoff(t *testing.T) {
	// Point the reader at a port nothing listens on so it sits in the
	// reconnect backoff, then make sure Stop doesn't wait it out.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := ln.Addr().(*net.TCPAddr)
	require.NoError(t, ln.Close())

	r := NewVTOReader(addr.IP.String(), addr.Port, func(map[string]any) {}, logger.NewTestLogger())
	r.Start(context.Background())

	time.Sleep(50 * time.Millisecond)

	done := make(chan struct{})

	go func() {
		r.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return promptly")
	}

	r.Stop() // idempotent
}
