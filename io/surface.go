// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package io provides the output surfaces that mimari trap handlers draw to.
// It includes a text console (Console), a pixel framebuffer (Canvas), and
// a call recorder (Recorder).
package io

import (
	"fmt"
)

// Surface defines the interface for all output surfaces.
// Trap handlers write text, or render single pixel operations.
type Surface interface {
	// Write emits text to the surface.
	Write(text string) error
	// Render applies a pixel operation to the surface.
	Render(op PixelOp) error
}

// PixelOp sets the pixel at X, Y to Color.
type PixelOp struct {
	X     int
	Y     int
	Color uint32 // 0xRRGGBB
}

func (op PixelOp) String() string {
	return fmt.Sprintf("plot %d,%d=#%06x", op.X, op.Y, op.Color&0xffffff)
}

// Discard is a surface that drops everything.
var Discard Surface = discard{}

type discard struct{}

func (discard) Write(text string) error { return nil }

func (discard) Render(op PixelOp) error { return nil }
