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

package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is the sentinel every ValidationError unwraps to.
	ErrValidation = errors.New("validation failed")
	// ErrPrecondition is the sentinel every PreconditionError unwraps to.
	ErrPrecondition = errors.New("precondition failed")
	// ErrNotFound is the sentinel every NotFoundError unwraps to.
	ErrNotFound = errors.New("not found")
	// ErrStore is the sentinel every StoreError unwraps to.
	ErrStore = errors.New("coordination store failure")
	// ErrInvalidRecord is returned when a service record does not carry the
	// {endpoint, metadata} envelope.
	ErrInvalidRecord = errors.New("invalid service record")
	// ErrClosed is returned when an operation is attempted on a closed connection.
	ErrClosed = errors.New("connection is closed")
)

// ValidationError is returned when an argument is missing or malformed.
// No store call has been made when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a ValidationError for the given field.
// An empty reason produces the "is required" message.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("the [%s] is required", e.Field)
	}
	return fmt.Sprintf("the [%s] %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// PreconditionError is returned when the store lacks a node the operation
// depends on, typically the base path at connect time.
type PreconditionError struct {
	Path    string
	Message string
}

// NewPreconditionError creates a PreconditionError
func NewPreconditionError(path, message string) *PreconditionError {
	return &PreconditionError{Path: path, Message: message}
}

func (e *PreconditionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s not present", e.Path)
}

func (e *PreconditionError) Unwrap() error { return ErrPrecondition }

// NotFoundError is returned when a lookup yields nothing usable.
type NotFoundError struct {
	Path    string
	Message string
}

// NewNotFoundError creates a NotFoundError
func NewNotFoundError(path, message string) *NotFoundError {
	return &NotFoundError{Path: path, Message: message}
}

func (e *NotFoundError) Error() string {
	switch {
	case e.Message != "" && e.Path != "":
		return fmt.Sprintf("%s: %s", e.Message, e.Path)
	case e.Message != "":
		return e.Message
	default:
		return fmt.Sprintf("%s not found", e.Path)
	}
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StoreError wraps any failure surfaced by the coordination store.
type StoreError struct {
	Op   string
	Path string
	Err  error
}

// NewStoreError creates a StoreError. It returns nil when err is nil.
func NewStoreError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Path: path, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes both the ErrStore sentinel and the underlying cause.
func (e *StoreError) Unwrap() []error { return []error{ErrStore, e.Err} }
