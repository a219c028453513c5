package varserver

import (
	"errors"
	"io"
	"os"
	"testing"
)

func TestEncodingError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  EncodingError
		want string
	}{
		{
			name: "too long",
			err:  EncodingError{Command: "var_add", Length: 530, Max: 512},
			want: "encode var_add: 530 bytes exceeds 512-byte limit",
		},
		{
			name: "bad content",
			err:  EncodingError{Command: "var_add", Reason: "argument contains a quote"},
			want: "encode var_add: argument contains a quote",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTransportError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  TransportError
		want string
	}{
		{"with addr", TransportError{Op: "send", Addr: "sim:7000", Err: io.ErrClosedPipe}, "send sim:7000: io: read/write on closed pipe"},
		{"without addr", TransportError{Op: "recv", Err: io.ErrUnexpectedEOF}, "recv: unexpected EOF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTransportError_Timeout(t *testing.T) {
	if !(&TransportError{Op: "recv", Err: os.ErrDeadlineExceeded}).Timeout() {
		t.Error("deadline exceeded should be a timeout")
	}
	if (&TransportError{Op: "recv", Err: io.EOF}).Timeout() {
		t.Error("EOF is not a timeout")
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	err := &TransportError{Op: "send", Err: io.ErrShortWrite}
	if !errors.Is(err, io.ErrShortWrite) {
		t.Error("should unwrap to io.ErrShortWrite")
	}
}
