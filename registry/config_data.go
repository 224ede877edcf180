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
	stderrors "errors"
	"fmt"

	"github.com/tochemey/msd/errors"
	"github.com/tochemey/msd/internal/codec"
	"github.com/tochemey/msd/internal/validation"
	"github.com/tochemey/msd/store"
)

// GetServiceConfigData reads the configuration value stored at path and
// keeps a data watch on it. Values written without the config envelope are
// returned as decoded, or as text when they are not JSON.
func (c *Connection) GetServiceConfigData(ctx context.Context, path string) (any, error) {
	if err := validation.NewAbsolutePathValidator("path", path).Validate(); err != nil {
		return nil, err
	}
	data, err := c.read(ctx, path)
	if err != nil {
		return nil, err
	}
	return codec.DecodeConfig(data), nil
}

// SetServiceConfigData stores value at path inside the config envelope. The
// node and its ancestors are created when missing.
func (c *Connection) SetServiceConfigData(ctx context.Context, path string, value any) (*store.Stat, error) {
	if err := validation.NewAbsolutePathValidator("path", path).Validate(); err != nil {
		return nil, err
	}
	if err := c.ready(); err != nil {
		return nil, err
	}

	payload, err := codec.EncodeConfig(value)
	if err != nil {
		return nil, errors.NewValidationError("value", fmt.Sprintf("cannot be encoded: %v", err))
	}

	stat, err := c.store.SetData(ctx, path, payload)
	if stderrors.Is(err, store.ErrNoNode) {
		if _, err := c.store.MakeDirs(ctx, path); err != nil {
			return nil, errors.NewStoreError("mkdirs", path, err)
		}
		stat, err = c.store.SetData(ctx, path, payload)
	}
	if err != nil {
		return nil, errors.NewStoreError("set", path, err)
	}

	c.logger.Debugf("config written at %s (version %d)", path, stat.Version)
	return stat, nil
}
