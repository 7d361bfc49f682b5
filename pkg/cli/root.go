// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// ServerEnv overrides the default server URL of the client commands.
const ServerEnv = "MAILPROFILER_SERVER"

const defaultServer = "http://localhost:8080"

type Options struct {
	OutputWriter io.Writer
}

func DefaultOptions() Options {
	return Options{OutputWriter: os.Stdout}
}

type runtimeState struct {
	configPath string
	debug      bool
	writer     io.Writer
}

type runtimeKey struct{}

func NewRootCommand(opts Options) *cobra.Command {
	rt := &runtimeState{writer: opts.OutputWriter}

	root := &cobra.Command{
		Use:          "mailprofiler",
		Short:        "Send mail through configured channels and inspect per-request mail profiles",
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if !rt.debug {
				rt.debug = strings.EqualFold(os.Getenv("MAILPROFILER_DEBUG"), "true")
			}
		},
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", "", "Path to config file (default $MAILPROFILER_CONFIG_PATH or ./config.yaml)")
	root.PersistentFlags().BoolVar(&rt.debug, "debug", false, "Enable debug level logging")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		NewServeCommand(),
		NewProfileCommand(),
		NewVersionCommand(),
	)
	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New("runtime not initialized")
	}
	rt, ok := ctx.Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

// writerFor prefers the runtime writer and falls back to the command output.
func writerFor(cmd *cobra.Command) io.Writer {
	if rt, err := getRuntime(cmd); err == nil && rt.writer != nil {
		return rt.writer
	}
	return cmd.OutOrStdout()
}
