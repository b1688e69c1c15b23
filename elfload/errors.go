package elfload

import "github.com/pkg/errors"

var (
	// ErrBadMagic means the buffer does not start with the ELF signature.
	ErrBadMagic = errors.New("bad ELF magic")

	// ErrTruncated means a declared offset/count or segment range extends
	// past the end of the buffer.
	ErrTruncated = errors.New("truncated ELF image")

	// ErrUnsupportedClass means the image is not a 32-bit object.
	ErrUnsupportedClass = errors.New("unsupported ELF class")
)
