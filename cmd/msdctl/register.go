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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tochemey/msd/eventstream"
	"github.com/tochemey/msd/internal/netaddr"
	"github.com/tochemey/msd/registry"
)

func newRegisterCommand(opts *globalOptions) *cobra.Command {
	var (
		port     int
		protocol string
		api      string
		ip       string
		release  string
		metadata map[string]string
	)

	cmd := &cobra.Command{
		Use:   "register NAME",
		Short: "Register a service instance and keep it until interrupted",
		Long: `Register a service instance. The instance node lives as long as the
session, so the command blocks until it is interrupted or the session is lost.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			host, err := netaddr.AdvertiseIP(ip)
			if err != nil {
				return err
			}

			lost := make(chan eventstream.SessionLost, 1)
			conn, err := opts.connect(cmd, registry.WithSessionLostHandler(func(event eventstream.SessionLost) {
				lost <- event
			}))
			if err != nil {
				return err
			}
			defer conn.Close()

			meta := make(map[string]any, len(metadata))
			for key, value := range metadata {
				meta[key] = value
			}

			instance, err := conn.RegisterInstance(cmd.Context(), registry.Registration{
				Name:     args[0],
				Port:     port,
				Protocol: protocol,
				API:      api,
				IP:       host,
				Release:  release,
				Metadata: meta,
			})
			if err != nil {
				return err
			}
			if err := printJSON(cmd, instance); err != nil {
				return err
			}

			select {
			case <-cmd.Context().Done():
				return nil
			case event := <-lost:
				return fmt.Errorf("registration of %s dropped: %s", instance.Path, event.Reason)
			}
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&port, "port", "p", 0, "Port the instance listens on")
	flags.StringVar(&protocol, "protocol", "http", "Scheme of the endpoint")
	flags.StringVar(&api, "api", "/", "Path appended to the endpoint")
	flags.StringVar(&ip, "ip", "", "Advertised address. Defaults to a private interface address")
	flags.StringVar(&release, "release", "", "Version being registered")
	flags.StringToStringVarP(&metadata, "metadata", "m", nil, "Metadata stored with the endpoint (key=value,...)")
	return cmd
}
