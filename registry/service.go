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

package registry

import (
	"context"
	"fmt"

	"github.com/tochemey/msd/errors"
	"github.com/tochemey/msd/internal/codec"
	"github.com/tochemey/msd/internal/validation"
	"github.com/tochemey/msd/store"
)

const noInstanceMessage = "microservice handler not present"

// Registration describes a service instance to register.
type Registration struct {
	// Name is the service name. It becomes a single path segment.
	Name string
	// Port is the port the instance listens on.
	Port int
	// Protocol is the URI scheme of the endpoint, e.g. http.
	Protocol string
	// API is the path appended to the endpoint, e.g. /api/v1.
	API string
	// IP is the address the instance is reachable on.
	IP string
	// Release is the version being registered. It is required but not stored.
	Release string
	// Metadata is stored alongside the endpoint as is.
	Metadata map[string]any
}

// Instance is the result of a registration.
type Instance struct {
	// Dir is the directory node holding every instance of the service.
	Dir string
	// Path is the ephemeral node created for this instance.
	Path string
	// Endpoint is the registered endpoint URI.
	Endpoint string
}

// Service is a resolved service instance.
type Service struct {
	Path     string
	Endpoint string
	Metadata map[string]any
}

// Validate checks the registration fields in the order name, port,
// protocol, api, ip, release and reports the first violation.
func (r Registration) Validate() error {
	return validation.New(validation.FailFast()).
		AddValidator(validation.NewSegmentValidator("name", r.Name)).
		AddValidator(validation.NewPortValidator("port", r.Port)).
		AddValidator(validation.NewEmptyStringValidator("protocol", r.Protocol)).
		AddValidator(validation.NewEmptyStringValidator("api", r.API)).
		AddValidator(validation.NewHostValidator("ip", r.IP)).
		AddValidator(validation.NewEmptyStringValidator("release", r.Release)).
		Validate()
}

// RegisterService registers an instance of a service and returns the
// directory node of the service. The instance node lives as long as the
// connection session.
func (c *Connection) RegisterService(ctx context.Context, registration Registration) (string, error) {
	instance, err := c.RegisterInstance(ctx, registration)
	if err != nil {
		return "", err
	}
	return instance.Dir, nil
}

// RegisterInstance registers an instance of a service like RegisterService
// and reports the node that was created for it.
func (c *Connection) RegisterInstance(ctx context.Context, registration Registration) (*Instance, error) {
	if err := registration.Validate(); err != nil {
		return nil, err
	}
	if err := c.ready(); err != nil {
		return nil, err
	}

	exists, err := c.store.Exists(ctx, c.basePath)
	if err != nil {
		return nil, errors.NewStoreError("exists", c.basePath, err)
	}
	if !exists {
		return nil, errors.NewPreconditionError(c.basePath,
			fmt.Sprintf("%s not present in the coordination store, service %s can't get registered", c.basePath, registration.Name))
	}

	dir := codec.ServiceDir(c.basePath, registration.Name)
	if _, err := c.store.MakeDirs(ctx, dir); err != nil {
		return nil, errors.NewStoreError("mkdirs", dir, err)
	}

	endpoint := codec.Endpoint(registration.Protocol, registration.IP, registration.Port, registration.API)
	payload, err := codec.EncodeService(endpoint, registration.Metadata)
	if err != nil {
		return nil, errors.NewValidationError("metadata", fmt.Sprintf("cannot be encoded: %v", err))
	}

	prefix := codec.InstancePrefix(c.basePath, registration.Name)
	created, err := c.store.CreateEphemeralSequential(ctx, prefix, payload)
	if err != nil {
		return nil, errors.NewStoreError("create", prefix, err)
	}

	c.logger.With("service", registration.Name, "release", registration.Release, "node", created).
		Infof("registered %s", endpoint)
	return &Instance{Dir: dir, Path: created, Endpoint: endpoint}, nil
}

// GetServiceEndpoints lists the instance node names of a service and keeps
// a children watch on its directory.
func (c *Connection) GetServiceEndpoints(ctx context.Context, name string) ([]string, error) {
	if err := validation.NewSegmentValidator("name", name).Validate(); err != nil {
		return nil, err
	}
	return c.children(ctx, codec.ServiceDir(c.basePath, name))
}

// GetAllChildren lists the registered service names and keeps a children
// watch on the base path.
func (c *Connection) GetAllChildren(ctx context.Context) ([]string, error) {
	return c.children(ctx, c.basePath)
}

// GetRandomServiceEndPoint picks one of the instance node names, as
// returned by GetServiceEndpoints, and resolves it.
func (c *Connection) GetRandomServiceEndPoint(ctx context.Context, instances []string, name string) (*Service, error) {
	if err := validation.NewSegmentValidator("name", name).Validate(); err != nil {
		return nil, err
	}
	dir := codec.ServiceDir(c.basePath, name)
	if len(instances) == 0 {
		return nil, errors.NewNotFoundError(dir, noInstanceMessage)
	}

	index := c.selector.Select(len(instances))
	if index < 0 || index >= len(instances) {
		index = ((index % len(instances)) + len(instances)) % len(instances)
	}

	path := store.Join(dir, instances[index])
	data, err := c.read(ctx, path)
	if err != nil {
		return nil, err
	}

	record, err := codec.DecodeService(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Service{Path: path, Endpoint: record.Endpoint, Metadata: record.Metadata}, nil
}

// GetService reads the record at path and keeps a data watch on it. The
// record is decoded from JSON, or returned as text when it is not JSON.
func (c *Connection) GetService(ctx context.Context, path string) (any, error) {
	if err := validation.NewAbsolutePathValidator("path", path).Validate(); err != nil {
		return nil, err
	}
	data, err := c.read(ctx, path)
	if err != nil {
		return nil, err
	}
	return codec.Decode(data), nil
}

func (c *Connection) children(ctx context.Context, path string) ([]string, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	children, err := c.engine.Children(ctx, path)
	if err != nil {
		return nil, errors.NewStoreError("children", path, err)
	}
	if len(children) == 0 {
		return nil, errors.NewNotFoundError(path, noInstanceMessage)
	}
	return children, nil
}

func (c *Connection) read(ctx context.Context, path string) ([]byte, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	data, _, err := c.engine.Data(ctx, path)
	if err != nil {
		return nil, errors.NewStoreError("data", path, err)
	}
	return data, nil
}
