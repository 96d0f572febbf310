//go:build !tinygo

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"tinygo.org/x/drivers/gps"

	"periphcore-go/errcode"
)

const sampleNMEA = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47\r\n" +
	"$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A\r\n"

var (
	gpsOpts = struct {
		file  string
		count int
	}{}

	gpsCmd = &cobra.Command{
		Use:   "gps",
		Short: "Stream NMEA into a UART and parse it with the TinyGo GPS driver",
		RunE: func(cmd *cobra.Command, args []string) error {
			stream := strings.Repeat(sampleNMEA, 2)
			if gpsOpts.file != "" {
				b, err := os.ReadFile(gpsOpts.file)
				if err != nil {
					return err
				}
				stream = string(b)
			}
			count := min(gpsOpts.count, strings.Count(stream, "$"))
			if count <= 0 {
				return errcode.New(errcode.InputInvalid, "gps", "no sentences")
			}

			s, err := openSession(profileOr("gps"))
			if err != nil {
				return err
			}
			defer s.Close()
			u := s.port.Module()
			bps, _ := s.prof.BaudRate()
			// The driver reads in 100-byte fills; trailing line ends keep the
			// last fill from starving.
			s.m.Wire(s.prof.UART).FeedBytes(bps.BPS(), []byte(stream+strings.Repeat("\r\n", 128)))
			s.port.Poll = func() {
				for i := 0; i < 256 && u.Buffered() < 120; i++ {
					if !s.m.Step() {
						return
					}
				}
			}

			out := cmd.OutOrStdout()
			dev := gps.NewUART(s.port)
			parser := gps.NewParser()
			for i := 0; i < count; i++ {
				sentence, err := dev.NextSentence()
				if err != nil {
					fmt.Fprintf(out, "skip: %v\n", err)
					continue
				}
				fix, err := parser.Parse(sentence)
				if err != nil {
					fmt.Fprintf(out, "%s\n  unparsed: %v\n", sentence, err)
					continue
				}
				fmt.Fprintf(out, "%s\n  lat %.5f lon %.5f alt %d sats %d\n",
					sentence, fix.Latitude, fix.Longitude, fix.Altitude, fix.Satellites)
			}
			return nil
		},
	}
)

func init() {
	gpsCmd.Flags().StringVar(&gpsOpts.file, "file", "", "NMEA capture to replay")
	gpsCmd.Flags().IntVar(&gpsOpts.count, "count", 4, "sentences to read")
	rootCmd.AddCommand(gpsCmd)
}
