package sim

import (
	"io"
	"os"
)

// UART is the simplest possible serial console: TX bytes go straight to an
// output writer, stdout unless the caller injects another.
type UART struct {
	out io.Writer
}

func NewUART(out io.Writer) *UART {
	if out == nil {
		out = os.Stdout
	}
	return &UART{out: out}
}

func (u *UART) Tx(b uint8) {
	u.out.Write([]byte{b})
}
