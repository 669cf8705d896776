package cmd

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"fmt"

	"github.com/spf13/cobra"
)

const (
	version = "0.3.0"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show mtucorr version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
