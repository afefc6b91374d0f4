// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package io

import (
	"strings"
)

// Recorder is a surface that keeps every call made to it.
type Recorder struct {
	Texts  []string
	Pixels []PixelOp
}

var _ Surface = (*Recorder)(nil)

func (rc *Recorder) Write(text string) (err error) {
	rc.Texts = append(rc.Texts, text)
	return
}

func (rc *Recorder) Render(op PixelOp) (err error) {
	rc.Pixels = append(rc.Pixels, op)
	return
}

// String returns all text written, concatenated.
func (rc *Recorder) String() string {
	return strings.Join(rc.Texts, "")
}

func (rc *Recorder) Reset() {
	rc.Texts = nil
	rc.Pixels = nil
}
