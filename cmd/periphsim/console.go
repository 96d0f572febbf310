//go:build !tinygo

package main

import (
	"fmt"

	"github.com/mattn/go-tty"
	"github.com/spf13/cobra"
)

const (
	keyCtrlC = 3
	keyCtrlD = 4
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Type into a simulated UART and watch what comes back (Ctrl-D to quit)",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(profileOr("loopback-sw"))
		if err != nil {
			return err
		}
		defer s.Close()

		t, err := tty.Open()
		if err != nil {
			return err
		}
		defer t.Close()
		restore := t.MustRaw()
		defer restore()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "uart%d open, Ctrl-D to quit\r\n", s.prof.UART)
		buf := make([]byte, 64)
		for {
			r, err := t.ReadRune()
			if err != nil {
				return err
			}
			if r == keyCtrlC || r == keyCtrlD {
				fmt.Fprint(out, "\r\n")
				return nil
			}
			if _, err := s.port.Write([]byte(string(r))); err != nil {
				return err
			}
			s.m.Settle(64)
			for {
				n, _ := s.port.Module().Read(buf)
				if n == 0 {
					break
				}
				for _, b := range buf[:n] {
					if b == '\r' {
						fmt.Fprint(out, "\r\n")
						continue
					}
					fmt.Fprintf(out, "%c", b)
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}
