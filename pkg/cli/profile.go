// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"os"

	"github.com/spf13/cobra"
)

type profileFlags struct {
	server string
	output string
}

func (f *profileFlags) client() (*Client, error) {
	server := f.server
	if server == "" {
		server = os.Getenv(ServerEnv)
	}
	if server == "" {
		server = defaultServer
	}
	return NewClient(WithServer(server))
}

func (f *profileFlags) format() Format {
	if f.output == "" {
		return FormatTable
	}
	return Format(f.output)
}

func NewProfileCommand() *cobra.Command {
	flags := &profileFlags{}
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect request profiles stored by a running server",
	}
	cmd.PersistentFlags().StringVar(&flags.server, "server", "", "Server URL (default $"+ServerEnv+" or "+defaultServer+")")
	cmd.PersistentFlags().StringVarP(&flags.output, "output", "o", "", "Output format: table, json, yaml")

	cmd.AddCommand(newProfileListCommand(flags), newProfileShowCommand(flags))
	return cmd
}

func newProfileListCommand(flags *profileFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the latest profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			profiles, err := c.ListProfiles(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := writerFor(cmd)
			if flags.format() == FormatTable {
				WriteProfileTable(w, profiles)
				return nil
			}
			return WriteObject(w, flags.format(), profiles)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of profiles to list")
	return cmd
}

func newProfileShowCommand(flags *profileFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show TOKEN",
		Short: "Show the mail panel of a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			panel, err := c.MailPanel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := writerFor(cmd)
			if flags.format() == FormatTable {
				WriteMailPanelTable(w, panel)
				return nil
			}
			return WriteObject(w, flags.format(), panel)
		},
	}
}
