package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeValues(t *testing.T) {
	cases := []struct {
		c    Code
		want int32
		name string
	}{
		{OK, 0, "ok"},
		{ModuleInvalid, -1, "module_invalid"},
		{ConfigInvalid, -2, "config_invalid"},
		{InputInvalid, -3, "input_invalid"},
		{OutputInvalid, -4, "output_invalid"},
		{DMAError, -5, "dma_error"},
		{SoftwareBufferError, -6, "software_buffer_error"},
		{AllocFailure, -7, "alloc_failure"},
		{Closed, -8, "closed"},
		{Unknown, 0x8000, "unknown"},
		{AssertionFailed, 0x8001, "assertion_failed"},
	}
	for _, tc := range cases {
		if int32(tc.c) != tc.want {
			t.Fatalf("%s: got %d want %d", tc.name, int32(tc.c), tc.want)
		}
		if tc.c.Error() != tc.name {
			t.Fatalf("got %q want %q", tc.c.Error(), tc.name)
		}
	}
}

func TestOf(t *testing.T) {
	if Of(nil) != OK {
		t.Fatal("nil should map to OK")
	}
	if Of(Closed) != Closed {
		t.Fatal("bare code")
	}
	e := New(InputInvalid, "uart.Write", "width")
	if Of(e) != InputInvalid {
		t.Fatalf("got %v", Of(e))
	}
	wrapped := fmt.Errorf("ctx: %w", e)
	if Of(wrapped) != InputInvalid {
		t.Fatalf("wrapped: got %v", Of(wrapped))
	}
	if Of(errors.New("x")) != Unknown {
		t.Fatal("foreign error should map to Unknown")
	}
	// The outer code wins over a coded cause.
	nested := &E{C: DMAError, Op: "dma.Init", Err: AllocFailure}
	if Of(nested) != DMAError {
		t.Fatalf("nested: got %v", Of(nested))
	}
}

func TestIs(t *testing.T) {
	e := New(Closed, "uart.Read", "")
	if !errors.Is(e, Closed) {
		t.Fatal("errors.Is should match the code")
	}
	if errors.Is(e, ModuleInvalid) {
		t.Fatal("unexpected match")
	}
	if !errors.Is(fmt.Errorf("w: %w", e), New(Closed, "other", "")) {
		t.Fatal("*E targets should compare by code")
	}
}

func TestCount(t *testing.T) {
	if got := Count(5, nil); got != 5 {
		t.Fatalf("got %d want 5", got)
	}
	if got := Count(0, New(Closed, "op", "")); got != -8 {
		t.Fatalf("got %d want -8", got)
	}
	if got := Count(0, AssertionFailed); got != 0x8001 {
		t.Fatalf("got %#x", got)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(DMAError, "op", nil) != nil {
		t.Fatal("Wrap(nil) should be nil")
	}
	err := Wrap(DMAError, "uart.Init", InputInvalid)
	if err.Error() != "uart.Init: dma_error: input_invalid" {
		t.Fatalf("got %q", err.Error())
	}
}
