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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "dahuad.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `{
		"address": "192.168.1.108",
		"username": "admin",
		"password": "secret",
		"name": "Driveway",
		"channel": 2,
		"events": ["VideoMotion", "CrossLineDetection"],
		"poll_interval": "45s",
		"bus": {"nats_url": "nats://localhost:4222"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.108", cfg.Address)
	assert.Equal(t, 2, cfg.Channel)
	assert.Equal(t, []string{"VideoMotion", "CrossLineDetection"}, cfg.Events)
	assert.Equal(t, 45*time.Second, time.Duration(cfg.PollInterval))
	assert.Equal(t, "nats://localhost:4222", cfg.Bus.NATSURL)

	// Defaults fill unset fields.
	assert.Equal(t, defaultPort, cfg.Port)
	assert.Equal(t, defaultRTSPPort, cfg.RTSPPort)
}

func TestLoadDefaultsPollInterval(t *testing.T) {
	path := writeConfig(t, `{"address": "cam.local", "username": "admin"}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, defaultPollInterval, time.Duration(cfg.PollInterval))
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DAHUA_ADDRESS", "10.0.0.9")
	t.Setenv("DAHUA_PASSWORD", "fromenv")
	t.Setenv("DAHUA_CHANNEL", "1")

	path := writeConfig(t, `{"address": "ignored", "username": "admin", "password": "fromfile"}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.9", cfg.Address)
	assert.Equal(t, "fromenv", cfg.Password)
	assert.Equal(t, 1, cfg.Channel)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"missing address", `{"username": "admin"}`, ErrAddressRequired},
		{"missing username", `{"address": "cam.local"}`, ErrUsernameRequired},
		{"negative channel", `{"address": "cam.local", "username": "admin", "channel": -1}`, ErrInvalidChannel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadBadFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `{not json`))
	assert.Error(t, err)
}
