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
	"github.com/spf13/cobra"
)

func newEndpointsCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "endpoints NAME",
		Short: "List the instance nodes of a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()

			instances, err := conn.GetServiceEndpoints(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, instances)
		},
	}
}

func newRandomCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "random NAME",
		Short: "Resolve one instance of a service picked at random",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()

			instances, err := conn.GetServiceEndpoints(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			service, err := conn.GetRandomServiceEndPoint(cmd.Context(), instances, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, service)
		},
	}
}

func newServiceCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "service PATH",
		Short: "Print the record stored at a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()

			record, err := conn.GetService(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, record)
		},
	}
}

func newServicesCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List the registered service names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()

			names, err := conn.GetAllChildren(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, names)
		},
	}
}
