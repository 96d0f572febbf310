//go:build !tinygo

// Command periphsim runs the UART, DMA and scheduler drivers against the
// host hardware model.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	profileName string

	rootCmd = &cobra.Command{
		Use:           "periphsim",
		Short:         "Exercise the peripheral drivers on the simulated MCU",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "board profile name or JSON/YAML file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "periphsim:", err)
		os.Exit(1)
	}
}
