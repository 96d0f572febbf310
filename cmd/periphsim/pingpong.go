//go:build !tinygo

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"periphcore-go/dma"
	"periphcore-go/internal/regs"
	"periphcore-go/internal/sim"
)

var (
	pingpongOpts = struct {
		channel int
		bytes   int
		blocks  int
	}{}

	pingpongCmd = &cobra.Command{
		Use:   "pingpong",
		Short: "Force a ping-pong DMA channel through several blocks",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := sim.New()
			defer m.Close()
			out := cmd.OutOrStdout()

			pool := dma.NewPool()
			a, err := pool.Take(pingpongOpts.bytes)
			if err != nil {
				return err
			}
			b, err := pool.Take(pingpongOpts.bytes)
			if err != nil {
				return err
			}
			for i := range a.Bytes() {
				a.Bytes()[i] = 'A'
				b.Bytes()[i] = 'B'
			}

			ch := &dma.Channel{
				Number:     pingpongOpts.channel,
				BufferA:    a,
				BufferB:    b,
				Peripheral: regs.Timer1Base + 2, // PR1 as a scratch sink
			}
			blocks := 0
			ch.Handler = func() {
				blocks++
				done, _ := ch.PingPongStatus()
				fmt.Fprintf(out, "block %d: buffer %v done\n", blocks, done)
			}
			if err := ch.Init(dma.Attr{
				Mode:      dma.Continuous,
				PingPong:  true,
				Width:     dma.Byte,
				Direction: dma.ToPeripheral,
			}); err != nil {
				return err
			}
			defer ch.Cleanup()
			ch.Enable()
			for i := 0; blocks < pingpongOpts.blocks && i < pingpongOpts.blocks*ch.Units(); i++ {
				ch.Force()
			}
			last, _ := ch.PingPongStatus()
			fmt.Fprintf(out, "last completed: %v\n", last)
			return nil
		},
	}
)

func init() {
	pingpongCmd.Flags().IntVar(&pingpongOpts.channel, "channel", 0, "DMA channel 0..7")
	pingpongCmd.Flags().IntVar(&pingpongOpts.bytes, "bytes", 8, "bytes per buffer")
	pingpongCmd.Flags().IntVar(&pingpongOpts.blocks, "blocks", 4, "blocks to run")
	rootCmd.AddCommand(pingpongCmd)
}
