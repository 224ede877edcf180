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

package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newConfigCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read or write configuration values",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get PATH",
		Short: "Print the configuration value stored at a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()

			value, err := conn.GetServiceConfigData(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, value)
		},
	}, &cobra.Command{
		Use:   "set PATH VALUE",
		Short: "Store a configuration value, creating the node when missing",
		Long: `Store a configuration value. VALUE is parsed as JSON and stored as text
when it is not valid JSON.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()

			stat, err := conn.SetServiceConfigData(cmd.Context(), args[0], parseValue(args[1]))
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{"path": args[0], "version": stat.Version})
		},
	})
	return cmd
}

// parseValue reads raw as JSON, falling back to the text itself.
func parseValue(raw string) any {
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return raw
	}
	return value
}
