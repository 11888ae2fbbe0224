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
)

func withModel(model string) *Coordinator {
	c, _ := newTestCoordinator(Config{Channel: 0}, &MockClient{})
	c.snap.Model = model

	return c
}

func TestSirenAndSecurityLightSupport(t *testing.T) {
	tests := []struct {
		model string
		want  bool
	}{
		{"IPC-HDW3849HP-AS-PV", true},
		{"IPC-HDW3849HP", false},
		{"IPC-T5442TM-AS", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			c := withModel(tt.model)
			assert.Equal(t, tt.want, c.SupportsSiren())
			assert.Equal(t, tt.want, c.SupportsSecurityLight())
		})
	}
}

func TestIsDoorbell(t *testing.T) {
	tests := []struct {
		model string
		want  bool
	}{
		{"VTO2211G", true},
		{"vto2202f", true},
		{"DHI-VTO2202F-P", true},
		{"AD410", true},
		{"IPC-HDW3849HP-AS-PV", false},
		{"NVR5216-4KS2", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, withModel(tt.model).IsDoorbell())
		})
	}
}

func TestSupportsInfraredLight(t *testing.T) {
	assert.True(t, withModel("IPC-HDW2431T").SupportsInfraredLight())
	assert.False(t, withModel("IPC-HDW3849HP-AS-PV").SupportsInfraredLight())
	assert.False(t, withModel("IPC-HDW3849H-AS-NI").SupportsInfraredLight())
	assert.False(t, withModel("IPC-HFW2439S-AS-LED").SupportsInfraredLight())
}

func TestSerialNumberChannelSuffix(t *testing.T) {
	c, _ := newTestCoordinator(Config{Channel: 0}, &MockClient{})
	c.snap.SerialNumber = "ABC"
	assert.Equal(t, "ABC", c.SerialNumber())

	c1, _ := newTestCoordinator(Config{Channel: 3}, &MockClient{})
	c1.snap.SerialNumber = "ABC"
	assert.Equal(t, "ABC_3", c1.SerialNumber(), "NVR channels need unique serials")
}

func TestDeviceNameFallsBackToMachineName(t *testing.T) {
	named, _ := newTestCoordinator(Config{Channel: 0, Name: "Porch"}, &MockClient{})
	named.snap.MachineName = "Cam7"
	assert.Equal(t, "Porch", named.DeviceName())

	unnamed, _ := newTestCoordinator(Config{Channel: 0}, &MockClient{})
	unnamed.snap.MachineName = "Cam7"
	assert.Equal(t, "Cam7", unnamed.DeviceName())
}

func TestLightStateAccessors(t *testing.T) {
	c, _ := newTestCoordinator(Config{Channel: 0}, &MockClient{})
	c.snap.Merge(map[string]string{
		"table.Lighting[0][0].Mode":                     "Manual",
		"table.Lighting[0][0].MiddleLight[0].Light":     "50",
		"table.Lighting_V2[0][0][0].Mode":               "Manual",
		"table.Lighting_V2[0][0][0].MiddleLight[0].Light": "100",
		"status.status.Speaker":                         "On",
		"status.status.WhiteLight":                      "On",
		"table.MotionDetect[0].Enable":                  "true",
		"table.DisableLinkage.Enable":                   "false",
	})

	assert.True(t, c.IsInfraredLightOn())
	assert.Equal(t, 128, c.InfraredBrightness())
	assert.True(t, c.SupportsIlluminator())
	assert.True(t, c.IsIlluminatorOn())
	assert.Equal(t, 255, c.IlluminatorBrightness())
	assert.True(t, c.IsSirenOn())
	assert.True(t, c.IsSecurityLightOn())
	assert.True(t, c.IsMotionDetectionEnabled())
	assert.False(t, c.IsDisarmingLinkageEnabled())
}

func TestScaleBrightness(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"0", 0},
		{"50", 128},
		{"100", 255},
		{"150", 255},
		{"-10", 0},
		{"", 0},
		{"garbage", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, scaleBrightness(tt.in))
		})
	}
}
