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

package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborcam/dahua/pkg/models"
)

func TestParseEventStream(t *testing.T) {
	raw := []byte("Code=VideoMotion;action=Start;index=0;data={}\r\n\r\n")

	events := parseEventStream(raw, 0)
	require.Len(t, events, 1)

	assert.Equal(t, "VideoMotion", events[0].Code)
	assert.Equal(t, models.ActionStart, events[0].Action)
	assert.Equal(t, 0, events[0].Index)
	assert.NotNil(t, events[0].Data)
}

func TestParseEventStreamDiscardsOtherChannels(t *testing.T) {
	raw := []byte("Code=VideoMotion;action=Start;index=0;data={}\r\n\r\n")

	events := parseEventStream(raw, 1)
	assert.Empty(t, events, "events for another channel must be discarded")
}

func TestParseEventStreamMultipleLines(t *testing.T) {
	raw := []byte("Code=VideoMotion;action=Start;index=0\r\n" +
		"Heartbeat\r\n" +
		"Code=CrossLineDetection;action=Stop;index=0\r\n")

	events := parseEventStream(raw, 0)
	require.Len(t, events, 2)
	assert.Equal(t, "VideoMotion", events[0].Code)
	assert.Equal(t, "CrossLineDetection", events[1].Code)
	assert.Equal(t, models.ActionStop, events[1].Action)
}

func TestParseEventStreamDecodesDataPayload(t *testing.T) {
	raw := []byte(`Code=CrossLineDetection;action=Start;index=0;data={"Object":{"ObjectType":"Human"}}` + "\r\n")

	events := parseEventStream(raw, 0)
	require.Len(t, events, 1)
	assert.Equal(t, "Human", events[0].ObjectType())
}

func TestParseEventStreamMalformedInput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"bad data json keeps event", "Code=VideoMotion;action=Start;index=0;data={not json\r\n", 1},
		{"fragment without separator skipped", "Code=VideoMotion;action=Start;garbage;index=0\r\n", 1},
		{"non numeric index defaults to zero", "Code=VideoMotion;action=Start;index=abc\r\n", 1},
		{"missing index defaults to zero", "Code=VideoMotion;action=Start\r\n", 1},
		{"no code lines", "something=else\r\nnoise\r\n", 0},
		{"empty input", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := parseEventStream([]byte(tt.raw), 0)
			assert.Len(t, events, tt.want)
		})
	}
}

func TestParseEventStreamBadDataKeepsRawString(t *testing.T) {
	raw := []byte("Code=VideoMotion;action=Start;index=0;data={broken\r\n")

	events := parseEventStream(raw, 0)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].Data)
	assert.Equal(t, "{broken", events[0].Raw["data"])
}

func TestParseEventStreamInvalidUTF8(t *testing.T) {
	raw := []byte("Code=VideoMotion;action=Start;index=0\r\n")
	raw = append(raw, 0xff, 0xfe)

	events := parseEventStream(raw, 0)
	assert.Len(t, events, 1, "invalid bytes must be dropped, not fatal")
}

func TestParseVTOEvent(t *testing.T) {
	ev := parseVTOEvent(map[string]any{
		"Code":   "DoorStatus",
		"Action": "Pulse",
		"Data":   map[string]any{"Status": "Open"},
		"Index":  float64(0),
	})

	assert.Equal(t, "DoorStatus", ev.Code)
	assert.Equal(t, models.ActionPulse, ev.Action)
	assert.Equal(t, "Open", ev.Data["Status"])
}

func TestParseVTOEventMissingFields(t *testing.T) {
	ev := parseVTOEvent(map[string]any{"Code": "BackKeyLight"})

	assert.Equal(t, "BackKeyLight", ev.Code)
	assert.Equal(t, models.Action(""), ev.Action)
	assert.Nil(t, ev.Data)
	assert.Equal(t, 0, ev.Index)
}
