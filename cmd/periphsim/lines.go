//go:build !tinygo

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"periphcore-go/uartio"
)

var (
	linesOpts = struct {
		file     string
		send     string
		maxFrame int
		idle     time.Duration
		quiet    time.Duration
	}{}

	linesCmd = &cobra.Command{
		Use:   "lines",
		Short: "Split received text into lines with the UART reader worker",
		Long: `Feeds text into the profile's UART from the external line and prints
what the reader worker emits: one event per line, with a trailing partial
line flushed after --idle. --send transmits text first and echoes it as a tx
event.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			stream := sampleNMEA + "$PSIM,partial"
			if linesOpts.file != "" {
				b, err := os.ReadFile(linesOpts.file)
				if err != nil {
					return err
				}
				stream = string(b)
			}

			s, err := openSession(profileOr("gps"))
			if err != nil {
				return err
			}
			defer s.Close()
			// The worker blocks on the receive interrupt; only this goroutine
			// drives the model.
			s.port.Poll = nil
			u := s.port.Module()
			bps, _ := s.prof.BaudRate()
			wire := s.m.Wire(s.prof.UART)
			wire.FeedBytes(bps.BPS(), []byte(stream))

			w := uartio.New(0)
			stop, err := w.Register(context.Background(), uartio.ReaderCfg{
				Port:      s.prof.UART,
				Source:    s.port,
				Mode:      uartio.Lines,
				MaxFrame:  linesOpts.maxFrame,
				IdleFlush: linesOpts.idle,
			})
			if err != nil {
				return err
			}
			defer stop()

			tx := []byte(linesOpts.send)
			sent := 0
			for i := 0; i < 1_000_000 && (wire.Queued() > 0 || sent < len(tx)); i++ {
				if sent < len(tx) {
					k, err := u.Write(tx[sent:])
					if err != nil {
						return err
					}
					sent += k
				}
				if u.Buffered() >= 64 {
					time.Sleep(time.Millisecond)
					continue
				}
				s.m.Step()
			}
			s.m.Settle(64)
			if sent > 0 {
				w.EmitTX(s.prof.UART, tx[:sent])
			}

			out := cmd.OutOrStdout()
			n := 0
			for {
				select {
				case ev := <-w.Events():
					fmt.Fprintf(out, "%s: %s\n", ev.Dir, ev.Data)
					n++
					continue
				case <-time.After(linesOpts.quiet):
				}
				break
			}
			fmt.Fprintf(out, "%d events\n", n)
			return nil
		},
	}
)

func init() {
	linesCmd.Flags().StringVar(&linesOpts.file, "file", "", "text to replay instead of the NMEA sample")
	linesCmd.Flags().StringVar(&linesOpts.send, "send", "", "text to transmit before reading")
	linesCmd.Flags().IntVar(&linesOpts.maxFrame, "max-frame", 128, "longest line kept, 16..256")
	linesCmd.Flags().DurationVar(&linesOpts.idle, "idle", 100*time.Millisecond, "flush a partial line after this long")
	linesCmd.Flags().DurationVar(&linesOpts.quiet, "quiet", 500*time.Millisecond, "stop after no event for this long")
	rootCmd.AddCommand(linesCmd)
}
