package errcode

import "errors"

// Code is a driver return code. Negative values are failures; the two
// values above 0x7FFF are reserved for driver faults.
// It is an int32 newtype, comparable, allocation-free, and implements error.
type Code int32

// Canonical codes.
const (
	OK                  Code = 0
	ModuleInvalid       Code = -1
	ConfigInvalid       Code = -2
	InputInvalid        Code = -3
	OutputInvalid       Code = -4
	DMAError            Code = -5
	SoftwareBufferError Code = -6
	AllocFailure        Code = -7
	Closed              Code = -8

	Unknown         Code = 0x8000
	AssertionFailed Code = 0x8001
)

var names = map[Code]string{
	OK:                  "ok",
	ModuleInvalid:       "module_invalid",
	ConfigInvalid:       "config_invalid",
	InputInvalid:        "input_invalid",
	OutputInvalid:       "output_invalid",
	DMAError:            "dma_error",
	SoftwareBufferError: "software_buffer_error",
	AllocFailure:        "alloc_failure",
	Closed:              "closed",
	Unknown:             "unknown",
	AssertionFailed:     "assertion_failed",
}

func (c Code) Error() string {
	if s, ok := names[c]; ok {
		return s
	}
	return "unknown"
}

// Failed reports whether c is anything other than OK.
func (c Code) Failed() bool { return c != OK }

// E wraps a Code with the operation that produced it and an optional cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := e.C.Error()
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is matches another *E or a bare Code by code, so errors.Is(err, Closed)
// holds for wrapped values.
func (e *E) Is(target error) bool {
	switch t := target.(type) {
	case Code:
		return e.C == t
	case *E:
		return e.C == t.C
	}
	return false
}

// New returns an *E for op.
func New(c Code, op, msg string) *E { return &E{C: c, Op: op, Msg: msg} }

// Wrap attaches a code and op to err. A nil err yields nil.
func Wrap(c Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &E{C: c, Op: op, Err: err}
}

// Of extracts a Code from an error, defaulting to Unknown.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	type coder interface{ Code() Code }
	switch x := err.(type) {
	case Code:
		return x
	case coder:
		return x.Code()
	}
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return Unknown
}

// Count folds a (count, error) pair into the signed form used on the wire
// and in scripts: non-negative counts on success, a negative code on failure.
// Codes above 0x7FFF are returned as-is.
func Count(n int, err error) int {
	if err == nil {
		return n
	}
	return int(Of(err))
}
