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

// Package config loads daemon configuration from a JSON file with
// environment variable overrides for credentials and connection targets.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/harborcam/dahua/pkg/logger"
	"github.com/harborcam/dahua/pkg/models"
)

const (
	defaultPort         = 80
	defaultRTSPPort     = 554
	defaultPollInterval = 30 * time.Second
)

var (
	ErrAddressRequired  = errors.New("device address is required")
	ErrUsernameRequired = errors.New("device username is required")
	ErrInvalidChannel   = errors.New("channel must not be negative")
)

type Config struct {
	Address      string          `json:"address"`
	Port         int             `json:"port"`
	RTSPPort     int             `json:"rtsp_port"`
	Username     string          `json:"username"`
	Password     string          `json:"password"`
	Name         string          `json:"name"`
	Channel      int             `json:"channel"`
	Events       []string        `json:"events"`
	PollInterval models.Duration `json:"poll_interval"`
	Logging      logger.Config   `json:"logging"`
	Bus          BusConfig       `json:"bus"`
}

type BusConfig struct {
	NATSURL string `json:"nats_url"`
	Subject string `json:"subject"`
}

// Load reads the config file, applies env overrides and defaults, and
// validates. Env overrides: DAHUA_ADDRESS, DAHUA_PORT, DAHUA_USERNAME,
// DAHUA_PASSWORD, DAHUA_CHANNEL, DAHUA_NATS_URL.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DAHUA_ADDRESS"); v != "" {
		c.Address = v
	}

	if v := os.Getenv("DAHUA_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}

	if v := os.Getenv("DAHUA_USERNAME"); v != "" {
		c.Username = v
	}

	if v := os.Getenv("DAHUA_PASSWORD"); v != "" {
		c.Password = v
	}

	if v := os.Getenv("DAHUA_CHANNEL"); v != "" {
		if channel, err := strconv.Atoi(v); err == nil {
			c.Channel = channel
		}
	}

	if v := os.Getenv("DAHUA_NATS_URL"); v != "" {
		c.Bus.NATSURL = v
	}
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}

	if c.RTSPPort == 0 {
		c.RTSPPort = defaultRTSPPort
	}

	if c.PollInterval == 0 {
		c.PollInterval = models.Duration(defaultPollInterval)
	}
}

func (c *Config) Validate() error {
	if c.Address == "" {
		return ErrAddressRequired
	}

	if c.Username == "" {
		return ErrUsernameRequired
	}

	if c.Channel < 0 {
		return ErrInvalidChannel
	}

	return nil
}
