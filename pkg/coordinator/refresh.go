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

	"golang.org/x/sync/errgroup"
)

const fieldVideoInMode = "table.VideoInMode[0].Config[0]"

// refresh runs one cycle: discovery on the first run, then the capability
// gated fan-out of state queries, merged into the snapshot only when the
// whole cycle succeeds.
func (c *Coordinator) refresh(ctx context.Context) error {
	if err := c.refreshCycle(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}

	return nil
}

func (c *Coordinator) refreshCycle(ctx context.Context) error {
	updates := make(map[string]string)

	if !c.isInitialized() {
		if err := c.discover(ctx, updates); err != nil {
			return err
		}
	}

	// Profile mode has to be resolved before the lighting fan-out below,
	// since the lighting query is scoped by it.
	if c.SupportsProfileMode() && !c.IsDoorbell() {
		c.refreshProfileMode(ctx, updates)
	}

	profileMode := c.ProfileMode()

	g, gctx := errgroup.WithContext(ctx)
	results := make([]map[string]string, 4)

	g.Go(func() error {
		m, err := c.client.GetConfigLighting(gctx, c.channel, profileMode)
		results[0] = m

		return err
	})
	g.Go(func() error {
		m, err := c.client.GetConfigMotionDetection(gctx)
		results[1] = m

		return err
	})

	if c.SupportsDisarmingLinkage() {
		g.Go(func() error {
			m, err := c.client.GetDisarmingLinkage(gctx)
			results[2] = m

			return err
		})
	}

	if c.SupportsCoaxialControl() {
		g.Go(func() error {
			m, err := c.client.GetCoaxialControlIOStatus(gctx, c.channel)
			results[3] = m

			return err
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("state queries failed: %w", err)
	}

	for _, m := range results {
		merge(updates, m)
	}

	if c.SupportsSecurityLight() {
		lightingV2, err := c.client.GetLightingV2(ctx, c.channel)
		if err != nil {
			return fmt.Errorf("lighting v2 query failed: %w", err)
		}

		merge(updates, lightingV2)
	}

	c.mu.Lock()
	c.snap.Merge(updates)
	c.mu.Unlock()

	return nil
}

// refreshProfileMode fetches the current video input mode (0=day, 1=night,
// 2=scene). The API is missing on some cameras, so failure keeps the
// previous mode and the cycle continues.
func (c *Coordinator) refreshProfileMode(ctx context.Context, updates map[string]string) {
	mode, err := c.client.GetVideoInMode(ctx)
	if err != nil {
		c.log.Debug().Err(err).Msg("Could not get profile mode")
		return
	}

	merge(updates, mode)

	profileMode := mode[fieldVideoInMode]
	if profileMode == "" {
		profileMode = profileModeDay
	}

	c.mu.Lock()
	c.profileMode = profileMode
	c.mu.Unlock()
}
