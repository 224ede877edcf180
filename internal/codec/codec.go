/*
 * MIT License
 *
 * Copyright (c) 2022-2025 Arsene Tochemey Gandote
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Package codec maps registrations onto store paths and payloads and
// decodes payloads read back from the store.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/tochemey/msd/errors"
	"github.com/tochemey/msd/store"
)

// ServiceRecord is the payload of a registered service node.
type ServiceRecord struct {
	Endpoint string         `json:"endpoint"`
	Metadata map[string]any `json:"metadata"`
}

type configEnvelope struct {
	Config any `json:"config"`
}

// Endpoint builds protocol://ip:port/api. IPv6 literals are bracketed and a
// missing leading slash on api is added.
func Endpoint(protocol, ip string, port int, api string) string {
	if api != "" && !strings.HasPrefix(api, "/") {
		api = "/" + api
	}
	return fmt.Sprintf("%s://%s%s", protocol, net.JoinHostPort(ip, strconv.Itoa(port)), api)
}

// ServiceDir returns the directory node holding the instances of name.
func ServiceDir(basePath, name string) string {
	return store.Join(basePath, name)
}

// InstancePrefix returns the path handed to the store when creating an
// instance node of name. The store appends the sequence suffix.
func InstancePrefix(basePath, name string) string {
	return store.Join(basePath, name, name)
}

// EncodeService serializes the {endpoint, metadata} envelope. A nil
// metadata map is written as an empty object.
func EncodeService(endpoint string, metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return json.Marshal(ServiceRecord{Endpoint: endpoint, Metadata: metadata})
}

// DecodeService parses a service payload. It fails with
// errors.ErrInvalidRecord when data is not an envelope carrying an endpoint.
func DecodeService(data []byte) (*ServiceRecord, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidRecord, err)
	}
	if _, ok := fields["endpoint"]; !ok {
		return nil, fmt.Errorf("%w: missing endpoint", errors.ErrInvalidRecord)
	}

	record := new(ServiceRecord)
	if err := json.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidRecord, err)
	}
	if record.Metadata == nil {
		record.Metadata = map[string]any{}
	}
	return record, nil
}

// EncodeConfig serializes value inside the {config} envelope.
func EncodeConfig(value any) ([]byte, error) {
	return json.Marshal(configEnvelope{Config: value})
}

// DecodeConfig returns the value held by a {config} envelope. A payload
// without the envelope is returned as Decode returns it.
func DecodeConfig(data []byte) any {
	decoded := Decode(data)
	if object, ok := decoded.(map[string]any); ok && len(object) == 1 {
		if value, ok := object["config"]; ok {
			return value
		}
	}
	return decoded
}

// Decode parses data as JSON. When data is not valid JSON the raw text is
// returned instead, so callers always receive a value.
func Decode(data []byte) any {
	var value any
	decoder := json.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&value); err != nil || decoder.More() {
		return string(data)
	}
	return value
}
