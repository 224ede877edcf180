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

package validation

import (
	"net"
	"strings"

	"github.com/tochemey/msd/errors"
)

type booleanValidator struct {
	check  bool
	field  string
	reason string
}

// NewBooleanValidator fails on field with reason when check is false.
func NewBooleanValidator(check bool, field, reason string) Validator {
	return booleanValidator{check: check, field: field, reason: reason}
}

func (v booleanValidator) Validate() error {
	if !v.check {
		return errors.NewValidationError(v.field, v.reason)
	}
	return nil
}

type emptyStringValidator struct {
	field string
	value string
}

// NewEmptyStringValidator fails when value is empty or blank.
func NewEmptyStringValidator(field, value string) Validator {
	return emptyStringValidator{field: field, value: value}
}

func (v emptyStringValidator) Validate() error {
	if strings.TrimSpace(v.value) == "" {
		return errors.NewValidationError(v.field, "")
	}
	return nil
}

type portValidator struct {
	field string
	port  int
}

// NewPortValidator fails when port is outside 1..65535.
// A zero port is reported as missing.
func NewPortValidator(field string, port int) Validator {
	return portValidator{field: field, port: port}
}

func (v portValidator) Validate() error {
	switch {
	case v.port == 0:
		return errors.NewValidationError(v.field, "")
	case v.port < 0 || v.port > 65535:
		return errors.NewValidationError(v.field, "must be within 1..65535")
	}
	return nil
}

type segmentValidator struct {
	field string
	value string
}

// NewSegmentValidator fails when value is empty or cannot be used as a
// single path segment.
func NewSegmentValidator(field, value string) Validator {
	return segmentValidator{field: field, value: value}
}

func (v segmentValidator) Validate() error {
	if strings.TrimSpace(v.value) == "" {
		return errors.NewValidationError(v.field, "")
	}
	if strings.Contains(v.value, "/") || v.value == "." || v.value == ".." {
		return errors.NewValidationError(v.field, "must be a single path segment")
	}
	return nil
}

type absolutePathValidator struct {
	field string
	value string
}

// NewAbsolutePathValidator fails when value is empty or not an absolute
// slash separated path.
func NewAbsolutePathValidator(field, value string) Validator {
	return absolutePathValidator{field: field, value: value}
}

func (v absolutePathValidator) Validate() error {
	if strings.TrimSpace(v.value) == "" {
		return errors.NewValidationError(v.field, "")
	}
	if !strings.HasPrefix(v.value, "/") {
		return errors.NewValidationError(v.field, "must be an absolute path")
	}
	if len(v.value) > 1 && strings.HasSuffix(v.value, "/") {
		return errors.NewValidationError(v.field, "must not end with a slash")
	}
	if strings.Contains(v.value, "//") {
		return errors.NewValidationError(v.field, "must not contain empty segments")
	}
	return nil
}

type hostValidator struct {
	field string
	value string
}

// NewHostValidator fails when value is empty or contains characters a host
// name or IP literal cannot have.
func NewHostValidator(field, value string) Validator {
	return hostValidator{field: field, value: value}
}

func (v hostValidator) Validate() error {
	if strings.TrimSpace(v.value) == "" {
		return errors.NewValidationError(v.field, "")
	}
	if net.ParseIP(v.value) != nil {
		return nil
	}
	if strings.ContainsAny(v.value, "/ :@?#") {
		return errors.NewValidationError(v.field, "must be an IP address or host name")
	}
	return nil
}
