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
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tochemey/msd/log"
	"github.com/tochemey/msd/registry"
)

// globalOptions holds the flags shared by every command.
type globalOptions struct {
	configFile string
	backend    string
	url        string
	basePath   string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := new(globalOptions)
	rootCmd := &cobra.Command{
		Use:   "msdctl",
		Short: "Register and discover services in a coordination store",
		Long: `msdctl registers service instances as ephemeral nodes of a coordination
store (ZooKeeper, etcd or Consul), discovers them, and reads or writes
configuration values stored next to them.

Examples:
  # List the registered services
  msdctl services --url=127.0.0.1:2181 --base-path=/services

  # Register an instance until interrupted
  msdctl register accounts --port=8080 --release=1.2.0`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "YAML file holding the connection settings")
	flags.StringVar(&opts.backend, "backend", "", "Coordination store: zookeeper, etcd or consul")
	flags.StringVar(&opts.url, "url", "", "Store address, comma separated for several servers")
	flags.StringVar(&opts.basePath, "base-path", "", "Namespace the services and configs live under")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newRegisterCommand(opts),
		newEndpointsCommand(opts),
		newRandomCommand(opts),
		newServiceCommand(opts),
		newServicesCommand(opts),
		newConfigCommand(opts),
		newWatchCommand(opts),
	)
	return rootCmd
}

// loadConfig reads the config file, when given, and overlays the flags.
func (o *globalOptions) loadConfig() (*registry.Config, error) {
	config := registry.DefaultConfig()
	if o.configFile != "" {
		data, err := os.ReadFile(o.configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", o.configFile, err)
		}
	}

	if o.backend != "" {
		config.Backend = registry.Backend(o.backend)
	}
	if o.url != "" {
		config.ConnectionURL = o.url
	}
	if o.basePath != "" {
		config.BasePath = o.basePath
	}
	config.Sanitize()
	return config, config.Validate()
}

func (o *globalOptions) logger() (log.Logger, error) {
	level, err := log.ParseLevel(o.logLevel)
	if err != nil {
		return nil, err
	}
	return log.NewZap(level, os.Stderr), nil
}

// connect opens a connection with the loaded settings.
func (o *globalOptions) connect(cmd *cobra.Command, extra ...registry.Option) (*registry.Connection, error) {
	config, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := o.logger()
	if err != nil {
		return nil, err
	}
	return registry.Connect(cmd.Context(), config, append([]registry.Option{registry.WithLogger(logger)}, extra...)...)
}

func printJSON(cmd *cobra.Command, value any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
