package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/odm"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of odm",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("odm version %s\n", strings.TrimSpace(odm.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
