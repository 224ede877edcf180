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
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	msderrors "github.com/tochemey/msd/errors"
	"github.com/tochemey/msd/eventstream"
	"github.com/tochemey/msd/registry"
)

func newWatchCommand(opts *globalOptions) *cobra.Command {
	var (
		services []string
		configs  []string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print store events until interrupted",
		Long: `Arm watches on the base path and on the given services and configuration
nodes, then print every event published by the connection. The command fails
when the session is lost.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lost := make(chan eventstream.SessionLost, 1)
			conn, err := opts.connect(cmd, registry.WithSessionLostHandler(func(event eventstream.SessionLost) {
				lost <- event
			}))
			if err != nil {
				return err
			}
			defer conn.Close()

			events := make(chan *eventstream.Message, 64)
			done := make(chan struct{})
			for _, topic := range eventstream.Topics() {
				sub, err := conn.Subscribe(topic, func(message *eventstream.Message) {
					select {
					case events <- message:
					case <-done:
					}
				})
				if err != nil {
					return err
				}
				defer conn.Unsubscribe(sub)
			}
			defer close(done)

			ctx := cmd.Context()
			if _, err := conn.GetAllChildren(ctx); err != nil && !errors.Is(err, msderrors.ErrNotFound) {
				return err
			}
			for _, name := range services {
				if _, err := conn.GetServiceEndpoints(ctx, name); err != nil && !errors.Is(err, msderrors.ErrNotFound) {
					return err
				}
			}
			for _, path := range configs {
				if _, err := conn.GetServiceConfigData(ctx, path); err != nil {
					return err
				}
			}

			for {
				select {
				case <-ctx.Done():
					return nil
				case message := <-events:
					if err := printJSON(cmd, map[string]any{"topic": message.Topic(), "payload": describe(message.Payload())}); err != nil {
						return err
					}
				case event := <-lost:
					return fmt.Errorf("session lost: %s", event.Reason)
				}
			}
		},
	}

	cmd.Flags().StringSliceVarP(&services, "service", "s", nil, "Services whose instances are watched")
	cmd.Flags().StringSliceVar(&configs, "config-path", nil, "Configuration nodes whose value is watched")
	return cmd
}

// describe flattens event payloads into printable maps.
func describe(payload any) any {
	switch event := payload.(type) {
	case eventstream.NodeEvent:
		return map[string]any{"kind": event.Kind.String(), "path": event.Path}
	case eventstream.SessionLost:
		return map[string]any{"state": event.State.String(), "reason": event.Reason}
	case eventstream.WatchLost:
		out := map[string]any{"path": event.Path, "watch": event.Watch.String()}
		if event.Err != nil {
			out["error"] = event.Err.Error()
		}
		return out
	default:
		return payload
	}
}
