// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package io

import (
	"io"
)

// Console provides a text surface on top of an io.Writer.
// Pixel operations are written as a textual 'plot' line.
type Console struct {
	Output io.Writer

	written int
}

var _ Surface = (*Console)(nil)

// Written returns the number of bytes written to the console.
func (cs *Console) Written() int {
	return cs.written
}

// Write writes text to the output.
func (cs *Console) Write(text string) (err error) {
	if cs.Output == nil {
		err = ErrSurfaceClosed
		return
	}

	n, err := io.WriteString(cs.Output, text)
	cs.written += n

	return
}

// Render writes a description of the pixel operation to the output.
func (cs *Console) Render(op PixelOp) (err error) {
	return cs.Write(op.String() + "\n")
}
