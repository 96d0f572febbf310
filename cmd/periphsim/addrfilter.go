//go:build !tinygo

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"periphcore-go/errcode"
	"periphcore-go/uart"
)

var (
	defaultFrames = []string{"0x111", "0x001", "0x002", "0x133", "0x003", "0x122", "0x004"}

	addrfilterCmd = &cobra.Command{
		Use:   "addrfilter [frame...]",
		Short: "Feed 9-bit frames to an address-filtering UART and show what is delivered",
		Long:  "Frames are numbers; bit 8 set marks an address frame. The default stream addresses 0x11, 0x33 and 0x22.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(profileOr("rs485-9bit"))
			if err != nil {
				return err
			}
			defer s.Close()
			u := s.port.Module()
			attr, _ := u.Attr()
			if attr.Mode.Framing != uart.NineBit {
				return errcode.New(errcode.ConfigInvalid, "addrfilter", "profile is not 9-bit")
			}
			if len(args) == 0 {
				args = defaultFrames
			}
			frames := make([]uint16, 0, len(args))
			for _, a := range args {
				v, err := strconv.ParseUint(a, 0, 9)
				if err != nil {
					return errcode.Wrap(errcode.InputInvalid, "addrfilter", err)
				}
				frames = append(frames, uint16(v))
			}
			bps, _ := s.prof.BaudRate()
			s.m.Wire(s.prof.UART).Feed(bps.BPS(), frames...)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "local addresses: %#x\n", u.LocalAddrs())
			buf := make([]uint16, 16)
			var got []uint16
			for i := 0; i < 4*len(frames); i++ {
				s.m.Step()
				n, err := u.ReadWords(buf)
				if err != nil {
					return err
				}
				got = append(got, buf[:n]...)
			}
			fmt.Fprintf(out, "delivered: %#x\n", got)
			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(addrfilterCmd)
}
