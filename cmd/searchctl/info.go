package main

import (
	"github.com/spf13/cobra"
)

func newDetailCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "detail <url>",
		Short: "Fetch a single listing by its marketplace URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			item, err := client.GetItemDetail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, item)
		},
	}
}

func newHealthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show service health derived from scraper states",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			report, err := client.CheckHealth(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		},
	}
}

func newPlatformsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List the sources the service knows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			platforms, err := client.Platforms(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, platforms)
		},
	}
}
