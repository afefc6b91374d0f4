// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package io

import (
	"image"
	"image/color"
	"strings"
)

// Canvas is a fixed size framebuffer surface.
// Text written to a canvas is kept in a scroll-back buffer.
type Canvas struct {
	Width  int
	Height int

	pixels []uint32
	text   strings.Builder
}

var _ Surface = (*Canvas)(nil)

// NewCanvas creates a black canvas.
func NewCanvas(width, height int) (cv *Canvas) {
	cv = &Canvas{
		Width:  width,
		Height: height,
		pixels: make([]uint32, width*height),
	}

	return
}

// Write appends text to the scroll-back buffer.
func (cv *Canvas) Write(text string) (err error) {
	cv.text.WriteString(text)
	return
}

// Text returns the scroll-back buffer.
func (cv *Canvas) Text() string {
	return cv.text.String()
}

// Render sets a single pixel.
func (cv *Canvas) Render(op PixelOp) (err error) {
	if op.X < 0 || op.X >= cv.Width || op.Y < 0 || op.Y >= cv.Height {
		err = ErrPixelRange
		return
	}

	cv.pixels[op.Y*cv.Width+op.X] = op.Color & 0xffffff

	return
}

// At returns the colour of a pixel, or 0 if out of range.
func (cv *Canvas) At(x, y int) uint32 {
	if x < 0 || x >= cv.Width || y < 0 || y >= cv.Height {
		return 0
	}
	return cv.pixels[y*cv.Width+x]
}

// Clear paints the canvas black and drops the scroll-back buffer.
func (cv *Canvas) Clear() {
	clear(cv.pixels)
	cv.text.Reset()
}

// Image returns a copy of the canvas as an image.
func (cv *Canvas) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, cv.Width, cv.Height))
	for y := range cv.Height {
		for x := range cv.Width {
			rgb := cv.pixels[y*cv.Width+x]
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(rgb >> 16),
				G: uint8(rgb >> 8),
				B: uint8(rgb),
				A: 0xff,
			})
		}
	}
	return img
}
