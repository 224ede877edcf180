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

package log

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZap(t *testing.T) {
	t.Run("With debug level", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(DebugLevel, buffer)
		require.Equal(t, DebugLevel, logger.LogLevel())
		require.True(t, logger.Enabled(DebugLevel))

		logger.Debugf("watch %s re-armed", "/services/api")
		msg, lvl := decodeEntry(t, buffer.Bytes())
		assert.Equal(t, "watch /services/api re-armed", msg)
		assert.Equal(t, "debug", lvl)
	})
	t.Run("With unknown level falls back to debug", func(t *testing.T) {
		logger := NewZap(Level(42), new(bytes.Buffer))
		require.Equal(t, DebugLevel, logger.LogLevel())
	})
	t.Run("With info level drops debug entries", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buffer)
		logger.Debug("hidden")
		require.Zero(t, buffer.Len())
		require.False(t, logger.Enabled(DebugLevel))

		logger.Warn("session disconnected")
		msg, lvl := decodeEntry(t, buffer.Bytes())
		assert.Equal(t, "session disconnected", msg)
		assert.Equal(t, "warn", lvl)
	})
	t.Run("With error level", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(ErrorLevel, buffer)
		logger.Info("hidden")
		logger.Errorf("re-arm failed: %s", "boom")
		msg, lvl := decodeEntry(t, buffer.Bytes())
		assert.Equal(t, "re-arm failed: boom", msg)
		assert.Equal(t, "error", lvl)
		assert.Equal(t, ErrorLevel, logger.LogLevel())
	})
	t.Run("With structured fields", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buffer)
		logger.With("path", "/services", "kind", "children", 42, "skipped", "orphan").Info("armed")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buffer.Bytes(), &entry))
		assert.Equal(t, "/services", entry["path"])
		assert.Equal(t, "children", entry["kind"])
		assert.Equal(t, "orphan", entry["_"])
		assert.Equal(t, "armed", entry["msg"])
	})
	t.Run("With no fields returns the same logger", func(t *testing.T) {
		logger := NewZap(InfoLevel, new(bytes.Buffer))
		assert.Same(t, logger, logger.With())
	})
	t.Run("Flush syncs file outputs", func(t *testing.T) {
		file, err := os.CreateTemp(t.TempDir(), "log")
		require.NoError(t, err)
		defer file.Close()

		logger := NewZap(InfoLevel, file, os.Stdout)
		logger.Info("to file")
		require.NoError(t, logger.Flush())
		assert.Len(t, logger.LogOutput(), 2)
	})
}

func TestDiscardLogger(t *testing.T) {
	DiscardLogger.Info("nothing")
	DiscardLogger.Errorf("nothing %d", 1)
	assert.Equal(t, DiscardLogger, DiscardLogger.With("k", "v"))
	assert.False(t, DiscardLogger.Enabled(ErrorLevel))
	assert.NoError(t, DiscardLogger.Flush())
	assert.Equal(t, InfoLevel, DiscardLogger.LogLevel())
}

func TestParseLevel(t *testing.T) {
	for input, expected := range map[string]Level{
		"":        InfoLevel,
		"info":    InfoLevel,
		"WARNING": WarningLevel,
		"warn":    WarningLevel,
		"error":   ErrorLevel,
		"fatal":   FatalLevel,
		" debug ": DebugLevel,
	} {
		actual, err := ParseLevel(input)
		require.NoError(t, err)
		assert.Equal(t, expected, actual, input)
	}

	_, err := ParseLevel("loud")
	require.Error(t, err)
	assert.Equal(t, "invalid", Level(-1).String())
	assert.Equal(t, "debug", DebugLevel.String())
}

func decodeEntry(t *testing.T, raw []byte) (msg, level string) {
	t.Helper()
	var entry struct {
		Msg   string `json:"msg"`
		Level string `json:"level"`
	}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(raw), &entry))
	return entry.Msg, entry.Level
}
