package varserver

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// Namespace is the dispatch object every command is addressed to.
	Namespace = "trick"

	// MaxCommandLength is the largest command accepted, in bytes,
	// counting the trailing newline.
	MaxCommandLength = 512
)

// ── Output format ────────────────────────────────────────────────────

// Format selects how the server encodes streamed variable values.
type Format int

const (
	FormatASCII Format = iota
	FormatBinary
	FormatBinaryNoNames
)

var formatMethods = [...]string{
	FormatASCII:         "var_ascii",
	FormatBinary:        "var_binary",
	FormatBinaryNoNames: "var_binary_nonames",
}

var formatNames = [...]string{
	FormatASCII:         "ascii",
	FormatBinary:        "binary",
	FormatBinaryNoNames: "binary-nonames",
}

func (f Format) valid() bool { return f >= FormatASCII && f <= FormatBinaryNoNames }

func (f Format) String() string {
	if !f.valid() {
		return fmt.Sprintf("Format(%d)", int(f))
	}
	return formatNames[f]
}

// ParseFormat accepts "ascii", "binary" or "binary-nonames".
func ParseFormat(s string) (Format, error) {
	for i, name := range formatNames {
		if strings.EqualFold(s, name) {
			return Format(i), nil
		}
	}
	return 0, fmt.Errorf("unknown output format %q (want ascii, binary or binary-nonames)", s)
}

// ── Copy mode ────────────────────────────────────────────────────────

// CopyMode controls when the server samples values relative to the
// simulation's execution frame.
type CopyMode int

const (
	CopyAsync         CopyMode = 0 // sampled asynchronously
	CopyEndOfFrame    CopyMode = 1 // sampled at the end of each frame
	CopyFrameMultiple CopyMode = 2 // sampled at a multiple/offset of the frame
)

var copyModeNames = [...]string{
	CopyAsync:         "async",
	CopyEndOfFrame:    "end-of-frame",
	CopyFrameMultiple: "frame-multiple",
}

func (m CopyMode) valid() bool { return m >= CopyAsync && m <= CopyFrameMultiple }

func (m CopyMode) String() string {
	if !m.valid() {
		return fmt.Sprintf("CopyMode(%d)", int(m))
	}
	return copyModeNames[m]
}

// ParseCopyMode accepts a mode name or its integer value.
func ParseCopyMode(s string) (CopyMode, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if m := CopyMode(n); m.valid() {
			return m, nil
		}
		return 0, fmt.Errorf("copy mode %d out of range 0-2", n)
	}
	for i, name := range copyModeNames {
		if strings.EqualFold(s, name) {
			return CopyMode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown copy mode %q (want async, end-of-frame or frame-multiple)", s)
}

// ── Encoding ─────────────────────────────────────────────────────────

// Arg is a single command argument, either emitted verbatim or wrapped
// in double quotes.
type Arg struct {
	text   string
	quoted bool
}

// Literal returns an argument written as-is (numbers, True/False).
func Literal(s string) Arg { return Arg{text: s} }

// Quoted returns an argument written between double quotes.
func Quoted(s string) Arg { return Arg{text: s, quoted: true} }

// Encode renders Namespace.method(args...) without the trailing newline.
// The assembled length is computed before anything is built, and the
// command is rejected with *EncodingError if it (plus the newline)
// would exceed MaxCommandLength.
func Encode(method string, args ...Arg) (string, error) {
	size := len(Namespace) + 1 + len(method) + 2
	for i, a := range args {
		if a.quoted {
			if strings.ContainsAny(a.text, "\"\r\n") {
				return "", &EncodingError{
					Command: method,
					Reason:  fmt.Sprintf("argument %q contains a quote or line break", a.text),
				}
			}
			size += 2
		}
		if i > 0 {
			size += 2
		}
		size += len(a.text)
	}
	if size+1 > MaxCommandLength {
		return "", &EncodingError{Command: method, Length: size + 1, Max: MaxCommandLength}
	}

	var b strings.Builder
	b.Grow(size)
	b.WriteString(Namespace)
	b.WriteByte('.')
	b.WriteString(method)
	b.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		if a.quoted {
			b.WriteByte('"')
			b.WriteString(a.text)
			b.WriteByte('"')
		} else {
			b.WriteString(a.text)
		}
	}
	b.WriteByte(')')
	return b.String(), nil
}

// formatPeriod renders a cycle period in the shortest form that parses
// back to the same value, independent of locale.
func formatPeriod(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}

func pyBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}
