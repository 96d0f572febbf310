//go:build !tinygo

package main

import (
	"bytes"
	"fmt"
	"hash/fnv"

	"github.com/spf13/cobra"

	"periphcore-go/errcode"
)

var (
	loopbackOpts = struct {
		total int
		chunk int
	}{}

	loopbackCmd = &cobra.Command{
		Use:   "loopback",
		Short: "Smoke and integrity test over a loopback profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(profileOr("loopback-sw"))
			if err != nil {
				return err
			}
			defer s.Close()
			if !s.prof.Loopback {
				return errcode.New(errcode.ConfigInvalid, "loopback", "profile has loopback off")
			}
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "[uart] smoke: send 'hello-uart' and verify")
			msg := s.pad([]byte("hello-uart"))
			got, err := s.roundTrip(msg)
			if err != nil {
				return err
			}
			if bytes.Equal(got, msg) {
				fmt.Fprintln(out, "[uart] smoke: PASS")
			} else {
				fmt.Fprintf(out, "[uart] smoke: FAIL got %q\n", got)
			}

			chunk := len(s.pad(make([]byte, loopbackOpts.chunk)))
			fmt.Fprintf(out, "[uart] integrity: %d bytes, chunk %d\n", loopbackOpts.total, chunk)
			tx, rx := fnv.New32a(), fnv.New32a()
			buf := make([]byte, chunk)
			seed := byte(7)
			for sent := 0; sent < loopbackOpts.total; sent += chunk {
				for i := range buf {
					seed = seed*31 + 11
					buf[i] = seed
				}
				tx.Write(buf)
				got, err := s.roundTrip(buf)
				if err != nil {
					return err
				}
				rx.Write(got)
			}
			if tx.Sum32() == rx.Sum32() {
				fmt.Fprintf(out, "[uart] integrity: PASS fnv=%08x steps=%d\n", tx.Sum32(), s.m.Steps())
			} else {
				fmt.Fprintf(out, "[uart] integrity: FAIL tx=%08x rx=%08x\n", tx.Sum32(), rx.Sum32())
			}
			stats := s.port.Module().DebugStats()
			fmt.Fprintf(out, "[uart] stats: %+v\n", stats)
			return nil
		},
	}
)

func init() {
	loopbackCmd.Flags().IntVar(&loopbackOpts.total, "bytes", 4096, "integrity payload size")
	loopbackCmd.Flags().IntVar(&loopbackOpts.chunk, "chunk", 64, "bytes per write")
	rootCmd.AddCommand(loopbackCmd)
}
