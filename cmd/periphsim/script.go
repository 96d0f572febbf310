//go:build !tinygo

package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"periphcore-go/errcode"
	"periphcore-go/uart"
)

var scriptCmd = &cobra.Command{
	Use:   "script [file]",
	Short: "Run driver commands from a file or stdin",
	Long: `One command per line, shell-quoted. Commands:
  open <profile>       open a session (closes any current one)
  write <text>         write bytes, prints the count or a negative code
  writehex <hex>       write raw bytes
  words <n>...         write 9-bit frames
  read                 read and print what is buffered
  feed <bps> <n>...    queue units on the external line
  step [n]             advance n character times
  settle               step until quiet
  baud <bps|auto>      set the line rate
  flush [rx|tx]        flush a direction
  addr <a>...          add local addresses
  close                cleanup the port
Lines starting with # are ignored.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		r := &runner{out: cmd.OutOrStdout()}
		defer r.close()
		return r.run(in)
	},
}

func init() {
	rootCmd.AddCommand(scriptCmd)
}

type runner struct {
	out io.Writer
	s   *session
}

func (r *runner) close() {
	if r.s != nil {
		r.s.Close()
		r.s = nil
	}
}

func (r *runner) run(in io.Reader) error {
	sc := bufio.NewScanner(in)
	for line := 1; sc.Scan(); line++ {
		words, err := shlex.Split(sc.Text())
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if len(words) == 0 || strings.HasPrefix(words[0], "#") {
			continue
		}
		if err := r.exec(words[0], words[1:]); err != nil {
			return fmt.Errorf("line %d: %s: %w", line, words[0], err)
		}
	}
	return sc.Err()
}

func parseUnits(args []string) ([]uint16, error) {
	units := make([]uint16, 0, len(args))
	for _, a := range args {
		v, err := strconv.ParseUint(a, 0, 16)
		if err != nil {
			return nil, errcode.Wrap(errcode.InputInvalid, "script", err)
		}
		units = append(units, uint16(v))
	}
	return units, nil
}

func (r *runner) exec(verb string, args []string) error {
	if verb == "open" {
		if len(args) != 1 {
			return errcode.New(errcode.InputInvalid, "script", "open <profile>")
		}
		r.close()
		s, err := openSession(args[0])
		if err != nil {
			return err
		}
		r.s = s
		fmt.Fprintf(r.out, "opened %s on uart%d\n", args[0], s.prof.UART)
		return nil
	}
	if r.s == nil {
		return errcode.New(errcode.ModuleInvalid, "script", "no open session")
	}
	u := r.s.port.Module()
	switch verb {
	case "write":
		var text string
		if len(args) > 0 {
			text = args[0]
		}
		n, err := u.Write([]byte(text))
		fmt.Fprintln(r.out, errcode.Count(n, err))
	case "writehex":
		if len(args) != 1 {
			return errcode.New(errcode.InputInvalid, "script", "writehex <hex>")
		}
		b, err := hex.DecodeString(args[0])
		if err != nil {
			return errcode.Wrap(errcode.InputInvalid, "script", err)
		}
		n, err := u.Write(b)
		fmt.Fprintln(r.out, errcode.Count(n, err))
	case "words":
		w, err := parseUnits(args)
		if err != nil {
			return err
		}
		n, err := u.WriteWords(w)
		fmt.Fprintln(r.out, errcode.Count(n, err))
	case "read":
		attr, _ := u.Attr()
		if attr.Mode.Framing == uart.NineBit {
			buf := make([]uint16, 256)
			n, err := u.ReadWords(buf)
			if err != nil {
				fmt.Fprintln(r.out, errcode.Count(n, err))
				return nil
			}
			fmt.Fprintf(r.out, "%#x\n", buf[:n])
			return nil
		}
		buf := make([]byte, 256)
		n, err := u.Read(buf)
		if err != nil {
			fmt.Fprintln(r.out, errcode.Count(n, err))
			return nil
		}
		fmt.Fprintf(r.out, "%q\n", buf[:n])
	case "feed":
		if len(args) < 2 {
			return errcode.New(errcode.InputInvalid, "script", "feed <bps> <unit>...")
		}
		bps, err := strconv.Atoi(args[0])
		if err != nil {
			return errcode.Wrap(errcode.InputInvalid, "script", err)
		}
		units, err := parseUnits(args[1:])
		if err != nil {
			return err
		}
		r.s.m.Wire(r.s.prof.UART).Feed(bps, units...)
	case "step":
		n := 1
		if len(args) > 0 {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return errcode.Wrap(errcode.InputInvalid, "script", err)
			}
			n = v
		}
		r.s.m.Run(n)
	case "settle":
		fmt.Fprintf(r.out, "settled after %d steps\n", r.s.m.Settle(10000))
	case "baud":
		if len(args) != 1 {
			return errcode.New(errcode.InputInvalid, "script", "baud <bps|auto>")
		}
		var err error
		if args[0] == "auto" {
			err = u.AutoBaud()
		} else if bps, perr := strconv.Atoi(args[0]); perr != nil {
			err = errcode.Wrap(errcode.InputInvalid, "script", perr)
		} else if b, ok := uart.BaudFor(bps); !ok {
			err = uart.ErrInputInvalid
		} else {
			err = u.SetBaudRate(b)
		}
		if err != nil {
			return err
		}
		b, _ := u.BaudRate()
		fmt.Fprintf(r.out, "baud %v\n", b)
	case "flush":
		d := uart.TXRX
		if len(args) > 0 {
			switch args[0] {
			case "rx":
				d = uart.RX
			case "tx":
				d = uart.TX
			default:
				return errcode.New(errcode.InputInvalid, "script", "flush [rx|tx]")
			}
		}
		return u.Flush(d)
	case "addr":
		units, err := parseUnits(args)
		if err != nil {
			return err
		}
		for _, a := range units {
			if err := u.AddLocalAddr(uint8(a)); err != nil {
				return err
			}
		}
		fmt.Fprintf(r.out, "local addresses %#x\n", u.LocalAddrs())
	case "close":
		r.close()
	default:
		return errcode.New(errcode.InputInvalid, "script", "unknown command")
	}
	return nil
}
