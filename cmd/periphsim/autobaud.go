//go:build !tinygo

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	autobaudBPS int

	autobaudCmd = &cobra.Command{
		Use:   "autobaud",
		Short: "Arm auto-baud, send a 0x55 sync at a line rate and report the detected rate",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(profileOr("gps"))
			if err != nil {
				return err
			}
			defer s.Close()
			u := s.port.Module()
			if err := u.AutoBaud(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			b, _ := u.BaudRate()
			fmt.Fprintf(out, "armed: %v\n", b)

			s.m.Wire(s.prof.UART).Feed(autobaudBPS, 0x55)
			s.m.Step()
			b, err = u.BaudRate()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "line %d bps -> %v\n", autobaudBPS, b)
			return nil
		},
	}
)

func init() {
	autobaudCmd.Flags().IntVar(&autobaudBPS, "bps", 19200, "rate of the sync character")
	rootCmd.AddCommand(autobaudCmd)
}
