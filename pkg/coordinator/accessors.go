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
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Model naming conventions are documented at
// https://dahuawiki.com/Template:NameConvention. The -AS-PV suffix marks
// the active-deterrence line (siren plus red/blue security light).
const modelSuffixActiveDeterrence = "-AS-PV"

func (c *Coordinator) field(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.snap.Fields[key]
}

// Model returns the device model, e.g. IPC-HDW3849HP-AS-PV.
func (c *Coordinator) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.snap.Model
}

// MachineName returns the name the device reports for itself.
func (c *Coordinator) MachineName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.snap.MachineName
}

// DeviceName returns the user-configured name, falling back to the
// discovered machine name when none was configured.
func (c *Coordinator) DeviceName() string {
	if c.name != "" {
		return c.name
	}

	return c.MachineName()
}

func (c *Coordinator) FirmwareVersion() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.snap.FirmwareVersion
}

// SerialNumber returns the device serial. NVRs report one serial for every
// channel, so channels above 0 get the channel index appended to stay
// unique.
func (c *Coordinator) SerialNumber() string {
	c.mu.RLock()
	serial := c.snap.SerialNumber
	c.mu.RUnlock()

	if c.channel > 0 {
		return fmt.Sprintf("%s_%d", serial, c.channel)
	}

	return serial
}

// Channel returns the 0-based channel index this coordinator watches.
func (c *Coordinator) Channel() int {
	return c.channel
}

// ChannelNumber returns the 1-based channel number, except on firmwares
// where discovery found channel and number to be equal.
func (c *Coordinator) ChannelNumber() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.channelNumber
}

// ProfileMode returns the current lighting profile: "0" day, "1" night,
// "2" scene.
func (c *Coordinator) ProfileMode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.profileMode
}

// IsDoorbell reports whether the device is a doorbell (VTO), which uses a
// different event stream protocol than IP cameras and NVRs.
func (c *Coordinator) IsDoorbell() bool {
	return isDoorbellModel(c.Model())
}

// SupportsSiren reports whether the device has a siren.
func (c *Coordinator) SupportsSiren() bool {
	return strings.Contains(c.Model(), modelSuffixActiveDeterrence)
}

// SupportsSecurityLight reports whether the device has the red/blue
// flashing security light.
func (c *Coordinator) SupportsSecurityLight() bool {
	return strings.Contains(c.Model(), modelSuffixActiveDeterrence)
}

// SupportsInfraredLight reports whether the device has an infrared light.
// The active-deterrence and white-light models don't; most others do.
func (c *Coordinator) SupportsInfraredLight() bool {
	model := c.Model()

	return !strings.Contains(model, "-AS-PV") &&
		!strings.Contains(model, "-AS-NI") &&
		!strings.Contains(model, "-AS-LED")
}

// SupportsIlluminator reports whether the device has a white-light
// illuminator, detected by the presence of its lighting table in the
// snapshot.
func (c *Coordinator) SupportsIlluminator() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.snap.Fields[fmt.Sprintf("table.Lighting_V2[%d][0][0].Mode", c.channel)]

	return ok
}

func (c *Coordinator) SupportsProfileMode() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.supportsProfileMode
}

func (c *Coordinator) SupportsCoaxialControl() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.supportsCoaxialControl
}

func (c *Coordinator) SupportsDisarmingLinkage() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.supportsDisarmingLinkage
}

func (c *Coordinator) IsMotionDetectionEnabled() bool {
	v := c.field(fmt.Sprintf("table.MotionDetect[%d].Enable", c.channel))

	return strings.EqualFold(v, "true")
}

func (c *Coordinator) IsDisarmingLinkageEnabled() bool {
	return strings.EqualFold(c.field("table.DisableLinkage.Enable"), "true")
}

func (c *Coordinator) IsSirenOn() bool {
	return strings.EqualFold(c.field("status.status.Speaker"), "on")
}

// IsSecurityLightOn reports whether the red/blue flashing light is on.
func (c *Coordinator) IsSecurityLightOn() bool {
	return c.field("status.status.WhiteLight") == "On"
}

func (c *Coordinator) IsInfraredLightOn() bool {
	return c.field(fmt.Sprintf("table.Lighting[%d][0].Mode", c.channel)) == "Manual"
}

// InfraredBrightness returns the infrared light brightness scaled to
// 0..255.
func (c *Coordinator) InfraredBrightness() int {
	return scaleBrightness(c.field(fmt.Sprintf("table.Lighting[%d][0].MiddleLight[0].Light", c.channel)))
}

// IsIlluminatorOn reports whether the white-light illuminator is on for
// the current profile mode.
func (c *Coordinator) IsIlluminatorOn() bool {
	key := fmt.Sprintf("table.Lighting_V2[%d][%s][0].Mode", c.channel, c.ProfileMode())

	return c.field(key) == "Manual"
}

// IlluminatorBrightness returns the illuminator brightness scaled to
// 0..255.
func (c *Coordinator) IlluminatorBrightness() int {
	return scaleBrightness(c.field(fmt.Sprintf("table.Lighting_V2[%d][0][0].MiddleLight[0].Light", c.channel)))
}

// scaleBrightness converts the device's 0..100 brightness to the host's
// 0..255 scale. Empty or unparseable values map to 0.
func scaleBrightness(value string) int {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}

	scaled := int(math.Round(f * 255 / 100))
	if scaled < 0 {
		return 0
	}

	if scaled > 255 {
		return 255
	}

	return scaled
}
