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

package models

// DeviceInfo is the typed portion of the coordinator's state snapshot.
// Fields carries every raw dotted-key/value pair returned by the device to
// date; refresh cycles overwrite by key and never remove keys. Query
// responses are namespaced by the device, so keys for distinct features do
// not collide.
type DeviceInfo struct {
	Model           string            `json:"model"`
	MachineName     string            `json:"machine_name"`
	SerialNumber    string            `json:"serial_number"`
	FirmwareVersion string            `json:"firmware_version"`
	Fields          map[string]string `json:"fields"`
}

// NewDeviceInfo returns an empty snapshot with an allocated field map.
func NewDeviceInfo() DeviceInfo {
	return DeviceInfo{Fields: make(map[string]string)}
}

// Merge copies every entry of src into the snapshot's field map, overwriting
// existing keys. A nil src is ignored.
func (d *DeviceInfo) Merge(src map[string]string) {
	for k, v := range src {
		d.Fields[k] = v
	}
}
