// Sccpd is a signaling server for Cisco phones speaking SCCP (Skinny).
//
// It registers phones, serves their line and button layout, tracks call
// state per line and drives the phone display through the call lifecycle.
// Media and the rest of the PBX are handled by a bridge; without one the
// server still registers phones and places intercom calls between them.
//
// Usage:
//
//	sccpd serve [flags]
//
// See 'sccpd --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/sccpd/internal/config"
	"github.com/muurk/sccpd/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sccpd",
	Short: "SCCP phone signaling server",
	Long: `A signaling server for Cisco IP phones speaking the Skinny Client
Control Protocol.

Phones connect on TCP port 2000, register against the devices listed in the
configuration file and receive their button layout, softkeys and call state.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Global flags
var configPath string

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to configuration file (default $"+config.PathEnvVar+" or "+config.DefaultPath+")")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkConfigCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sccpd %s\n", version.Full())
	},
}
