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

package store

import (
	"fmt"
	"strings"
)

// Join concatenates segments under a root path.
func Join(root string, segments ...string) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimRight(root, "/"))
	for _, segment := range segments {
		segment = strings.Trim(segment, "/")
		if segment == "" {
			continue
		}
		sb.WriteByte('/')
		sb.WriteString(segment)
	}
	if sb.Len() == 0 {
		return "/"
	}
	return sb.String()
}

// Parent returns the parent of path. The parent of "/" is "/".
func Parent(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx <= 0 {
		return "/"
	}
	return path[:idx]
}

// Base returns the last segment of path.
func Base(path string) string {
	return path[strings.LastIndexByte(path, '/')+1:]
}

// Ancestors returns every proper ancestor of path from the root down,
// excluding "/" itself.
func Ancestors(path string) []string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	out := make([]string, 0, len(segments))
	for i := 1; i < len(segments); i++ {
		out = append(out, "/"+strings.Join(segments[:i], "/"))
	}
	return out
}

// ValidatePath checks that path is absolute, has no empty segments and no
// trailing slash.
func ValidatePath(path string) error {
	switch {
	case path == "":
		return fmt.Errorf("path is empty")
	case path[0] != '/':
		return fmt.Errorf("path %q must start with /", path)
	case path == "/":
		return nil
	case strings.HasSuffix(path, "/"):
		return fmt.Errorf("path %q must not end with /", path)
	case strings.Contains(path, "//"):
		return fmt.Errorf("path %q contains an empty segment", path)
	}
	return nil
}

// SequenceName formats the node name created for prefix and seq the way
// ZooKeeper does: ten zero padded digits.
func SequenceName(prefix string, seq int64) string {
	return fmt.Sprintf("%s%010d", prefix, seq)
}
