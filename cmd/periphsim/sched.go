//go:build !tinygo

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"periphcore-go/errcode"
	"periphcore-go/internal/sim"
	"periphcore-go/scheduler"
)

var (
	schedTicksFirst int

	schedCmd = &cobra.Command{
		Use:   "sched [name:priority...]",
		Short: "Schedule records, tick, and print the dispatch order",
		Long:  "Each record is name:priority. Positive priorities are delays in ticks; zero and below are ready, lowest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"f:3", "g:-1", "h:0"}
			}
			m := sim.New()
			defer m.Close()
			out := cmd.OutOrStdout()

			hz := scheduler.TickHz
			if profileName != "" {
				p, err := loadProfile(profileName)
				if err != nil {
					return err
				}
				hz = p.Tick()
			}
			s := scheduler.New()
			if err := s.Attach(hz); err != nil {
				return err
			}
			defer s.Detach()

			ticks := 0
			run := func(arg any) {
				fmt.Fprintf(out, "tick %d: %s\n", ticks, arg)
			}
			for _, a := range args {
				name, prio, ok := strings.Cut(a, ":")
				if !ok {
					return errcode.New(errcode.InputInvalid, "sched", "want name:priority, got "+a)
				}
				v, err := strconv.ParseInt(prio, 10, 32)
				if err != nil {
					return errcode.Wrap(errcode.InputInvalid, "sched", err)
				}
				if err := s.Schedule(run, int32(v), name); err != nil {
					return err
				}
			}
			for i := 0; i < schedTicksFirst; i++ {
				m.Tick()
				ticks++
			}
			for s.Pending() > 0 {
				if !s.RunOnce() {
					m.Tick()
					ticks++
				}
			}
			fmt.Fprintf(out, "%d ticks at %d Hz\n", ticks, hz)
			return nil
		},
	}
)

func init() {
	schedCmd.Flags().IntVar(&schedTicksFirst, "ticks", 1, "ticks to run before dispatching")
	rootCmd.AddCommand(schedCmd)
}
