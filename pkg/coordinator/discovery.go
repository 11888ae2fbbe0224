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
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

const (
	fieldDeviceType   = "deviceType"
	fieldUpdateSerial = "updateSerial"
	fieldType         = "type"
	fieldMachineName  = "table.General.MachineName"
	fieldSerialNumber = "serialNumber"
	fieldVersion      = "version"
	fieldModel        = "model"

	// Some firmwares report this generic type in deviceType and hide the
	// real model elsewhere.
	deviceTypeGenericCamera = "IP Camera"

	// Probing this profile index tells us whether the device understands
	// profile-scoped lighting config at all.
	profileModeProbeConfig = "Lighting[0][2]"

	profileModeDay = "0"
)

// discover runs the one-time capability probing sequence at the start of
// the first refresh cycle. Required steps (system info, machine name,
// software version, model resolution) fail the cycle; optional capability
// probes swallow their errors and record the capability as unsupported.
// On success it commits the typed snapshot fields and capability flags and
// starts exactly one event stream reader.
func (c *Coordinator) discover(ctx context.Context, updates map[string]string) error {
	// If a snapshot at index 0 works, this firmware numbers channels
	// equal to the channel index instead of index+1.
	channelNumber := c.channel + 1
	if _, err := c.client.GetSnapshot(ctx, 0); err == nil {
		channelNumber = c.channel
	}

	g, gctx := errgroup.WithContext(ctx)
	results := make([]map[string]string, 3)

	g.Go(func() error {
		m, err := c.client.GetSystemInfo(gctx)
		results[0] = m

		return err
	})
	g.Go(func() error {
		m, err := c.client.GetMachineName(gctx)
		results[1] = m

		return err
	})
	g.Go(func() error {
		m, err := c.client.GetSoftwareVersion(gctx)
		results[2] = m

		return err
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("device info queries failed: %w", err)
	}

	for _, m := range results {
		merge(updates, m)
	}

	model, err := c.resolveModel(ctx, updates)
	if err != nil {
		return err
	}

	updates[fieldModel] = model

	supportsCoax := false
	if _, err := c.client.GetCoaxialControlIOStatus(ctx, c.channel); err == nil {
		supportsCoax = true
	}

	supportsDisarm := false
	if _, err := c.client.GetDisarmingLinkage(ctx); err == nil {
		supportsDisarm = true
	}

	doorbell := isDoorbellModel(model)
	supportsProfile := false

	if doorbell {
		if c.vtoReader != nil {
			c.vtoReader.Start(ctx)
		}
	} else {
		if c.camReader != nil {
			c.camReader.Start(ctx)
		}

		// A device that supports profile modes answers with multiple
		// config lines; one without answers with an error.
		conf, err := c.client.GetConfig(ctx, profileModeProbeConfig)
		if err != nil {
			c.log.Warn().Err(err).Msg("Camera does not support profile mode, using day mode")
		} else {
			supportsProfile = len(conf) > 1
		}
	}

	c.mu.Lock()
	c.channelNumber = channelNumber
	c.snap.Model = model
	c.snap.MachineName = updates[fieldMachineName]
	c.snap.SerialNumber = updates[fieldSerialNumber]
	c.snap.FirmwareVersion = updates[fieldVersion]
	c.supportsCoaxialControl = supportsCoax
	c.supportsDisarmingLinkage = supportsDisarm
	c.supportsProfileMode = supportsProfile
	c.initialized = true
	c.mu.Unlock()

	c.log.Info().
		Str("model", model).
		Bool("doorbell", doorbell).
		Bool("coaxial_control", supportsCoax).
		Bool("disarming_linkage", supportsDisarm).
		Bool("profile_mode", supportsProfile).
		Msg("Device capabilities discovered")

	return nil
}

// resolveModel determines the device model: deviceType first, then the
// updateSerial field some firmwares hide it in, then the explicit device
// type API. Each fallback runs only when the prior source was absent or
// reported the generic camera type.
func (c *Coordinator) resolveModel(ctx context.Context, updates map[string]string) (string, error) {
	model := updates[fieldDeviceType]
	if model != "" && model != deviceTypeGenericCamera {
		return model, nil
	}

	if serial := updates[fieldUpdateSerial]; serial != "" {
		return serial, nil
	}

	dt, err := c.client.GetDeviceType(ctx)
	if err != nil {
		return "", fmt.Errorf("device type query failed: %w", err)
	}

	return dt[fieldType], nil
}

func isDoorbellModel(model string) bool {
	m := strings.ToUpper(model)

	return strings.HasPrefix(m, "VTO") || strings.HasPrefix(m, "DHI") || strings.HasPrefix(m, "AD")
}

func merge(dst, src map[string]string) {
	for k, v := range src {
		dst[k] = v
	}
}

func (c *Coordinator) isInitialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.initialized
}
