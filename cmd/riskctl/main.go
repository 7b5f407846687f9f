// Copyright (C) 2025 The Risk Analysis App Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// riskctl is a small operator CLI for the risk-analysis server. It wraps
// the HTTP API so a scan can be started, watched, and its dashboard
// collections inspected from a terminal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var serverURL, token string

	root := &cobra.Command{
		Use:           "riskctl",
		Short:         "Operator CLI for the risk-analysis server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server",
		envOr("RISK_SERVER_URL", "http://localhost:12310"),
		"base URL of the risk-analysis server")
	root.PersistentFlags().StringVar(&token, "token",
		os.Getenv("RISK_API_TOKEN"),
		"bearer token for the server API")

	client := func() *apiClient { return newAPIClient(serverURL, token) }

	root.AddCommand(
		newScanCmd(client),
		newDashboardCmd(client),
		newCollectionCmd(client, "threats", "List detected threats"),
		newCollectionCmd(client, "activity", "List recent activity entries"),
		newCollectionCmd(client, "recommendations", "List security recommendations"),
	)
	return root
}

func newScanCmd(client func() *apiClient) *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Start and inspect security scans",
	}

	scanCmd.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Start a security scan run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client().startScan(cmd.Context(), cmd.OutOrStdout())
		},
	})
	scanCmd.AddCommand(&cobra.Command{
		Use:   "status <run-id>",
		Short: "Show the stored record of a scan run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client().getJSON(cmd.Context(), "/v1/scans/"+args[0], cmd.OutOrStdout())
		},
	})
	scanCmd.AddCommand(&cobra.Command{
		Use:   "state",
		Short: "Show the orchestrator state (idle or scanning)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client().getJSON(cmd.Context(), "/v1/scans/state", cmd.OutOrStdout())
		},
	})
	return scanCmd
}

func newDashboardCmd(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the current security score breakdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client().getJSON(cmd.Context(), "/v1/dashboard/metrics", cmd.OutOrStdout())
		},
	}
}

func newCollectionCmd(client func() *apiClient, name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client().getJSON(cmd.Context(), "/v1/"+name, cmd.OutOrStdout())
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
