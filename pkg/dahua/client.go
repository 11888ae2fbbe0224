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

// Package dahua talks to Dahua IP cameras, NVRs and doorbells (VTO) over
// their CGI HTTP API and their event stream protocols.
package dahua

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Client is the device API surface the coordinator consumes. Calls return a
// flat map of dotted keys to string values parsed from the device's
// key=value response body, or an error on transport/protocol failure.
type Client interface {
	GetSystemInfo(ctx context.Context) (map[string]string, error)
	GetMachineName(ctx context.Context) (map[string]string, error)
	GetSoftwareVersion(ctx context.Context) (map[string]string, error)
	GetDeviceType(ctx context.Context) (map[string]string, error)
	GetSnapshot(ctx context.Context, channelNumber int) ([]byte, error)
	GetCoaxialControlIOStatus(ctx context.Context, channel int) (map[string]string, error)
	GetDisarmingLinkage(ctx context.Context) (map[string]string, error)
	GetConfig(ctx context.Context, name string) (map[string]string, error)
	GetVideoInMode(ctx context.Context) (map[string]string, error)
	GetConfigLighting(ctx context.Context, channel int, profileMode string) (map[string]string, error)
	GetConfigMotionDetection(ctx context.Context) (map[string]string, error)
	GetLightingV2(ctx context.Context, channel int) (map[string]string, error)
}

// HTTPClient implements Client against the CGI API. Authentication beyond
// basic credentials (the digest handshake some firmwares require) is the
// caller's concern via the injected http.Client transport.
type HTTPClient struct {
	baseURL  string
	username string
	password string
	client   *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the device at address:port. A nil
// httpClient falls back to http.DefaultClient.
func NewHTTPClient(address string, port int, username, password string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &HTTPClient{
		baseURL:  fmt.Sprintf("http://%s:%d", address, port),
		username: username,
		password: password,
		client:   httpClient,
	}
}

func (c *HTTPClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build device request: %w", err)
	}

	req.SetBasicAuth(c.username, c.password)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("device request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &APIError{Endpoint: path, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read device response: %w", err)
	}

	return body, nil
}

func (c *HTTPClient) getTable(ctx context.Context, path string) (map[string]string, error) {
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	return ParseTable(body)
}

// ParseTable parses a CGI key=value response body into a flat map. Lines
// without an = separator are skipped. A body starting with "Error:" is the
// device's way of rejecting a parameter and yields ErrDeviceError.
func ParseTable(body []byte) (map[string]string, error) {
	text := strings.TrimSpace(string(body))
	if strings.HasPrefix(text, "Error:") {
		return nil, fmt.Errorf("%w: %s", ErrDeviceError, text)
	}

	table := make(map[string]string)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		table[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	return table, nil
}

func (c *HTTPClient) GetSystemInfo(ctx context.Context) (map[string]string, error) {
	return c.getTable(ctx, "/cgi-bin/magicBox.cgi?action=getSystemInfo")
}

// GetMachineName fetches the General config table, which carries the
// device's self-reported name under table.General.MachineName.
func (c *HTTPClient) GetMachineName(ctx context.Context) (map[string]string, error) {
	return c.getTable(ctx, "/cgi-bin/configManager.cgi?action=getConfig&name=General")
}

func (c *HTTPClient) GetSoftwareVersion(ctx context.Context) (map[string]string, error) {
	return c.getTable(ctx, "/cgi-bin/magicBox.cgi?action=getSoftwareVersion")
}

func (c *HTTPClient) GetDeviceType(ctx context.Context) (map[string]string, error) {
	return c.getTable(ctx, "/cgi-bin/magicBox.cgi?action=getDeviceType")
}

// GetSnapshot grabs a still image from the given channel number (1-based,
// firmware quirks aside). Only used as a capability probe here, so the
// image bytes are returned unparsed.
func (c *HTTPClient) GetSnapshot(ctx context.Context, channelNumber int) ([]byte, error) {
	return c.get(ctx, fmt.Sprintf("/cgi-bin/snapshot.cgi?channel=%d", channelNumber))
}

func (c *HTTPClient) GetCoaxialControlIOStatus(ctx context.Context, channel int) (map[string]string, error) {
	return c.getTable(ctx, fmt.Sprintf("/cgi-bin/coaxialControlIO.cgi?action=getStatus&channel=%d", channel+1))
}

func (c *HTTPClient) GetDisarmingLinkage(ctx context.Context) (map[string]string, error) {
	return c.getTable(ctx, "/cgi-bin/configManager.cgi?action=getConfig&name=DisableLinkage")
}

func (c *HTTPClient) GetConfig(ctx context.Context, name string) (map[string]string, error) {
	return c.getTable(ctx, "/cgi-bin/configManager.cgi?action=getConfig&name="+url.QueryEscape(name))
}

func (c *HTTPClient) GetVideoInMode(ctx context.Context) (map[string]string, error) {
	return c.getTable(ctx, "/cgi-bin/configManager.cgi?action=getConfig&name=VideoInMode")
}

// GetConfigLighting returns the infrared lighting config for the channel and
// profile mode. Devices without the parameter answer with an Error body;
// that case returns a nil map and no error so refresh merges skip it.
func (c *HTTPClient) GetConfigLighting(ctx context.Context, channel int, profileMode string) (map[string]string, error) {
	name := fmt.Sprintf("Lighting[%d][%s]", channel, profileMode)

	table, err := c.GetConfig(ctx, name)
	if err != nil {
		if isDeviceError(err) {
			return nil, nil
		}

		return nil, err
	}

	return table, nil
}

func (c *HTTPClient) GetConfigMotionDetection(ctx context.Context) (map[string]string, error) {
	return c.getTable(ctx, "/cgi-bin/configManager.cgi?action=getConfig&name=MotionDetect")
}

// GetLightingV2 returns the white-light (illuminator/security light) status
// table for newer firmwares. Same Error-body tolerance as GetConfigLighting.
func (c *HTTPClient) GetLightingV2(ctx context.Context, channel int) (map[string]string, error) {
	table, err := c.GetConfig(ctx, "Lighting_V2")
	if err != nil {
		if isDeviceError(err) {
			return nil, nil
		}

		return nil, err
	}

	return table, nil
}

func isDeviceError(err error) bool {
	return errors.Is(err, ErrDeviceError)
}
