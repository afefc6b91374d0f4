package io

import (
	"errors"

	"github.com/ezrec/mimari/translate"
)

var f = translate.From

var (
	// Surface errors
	ErrSurfaceClosed = errors.New(f("surface closed"))
	ErrPixelRange    = errors.New(f("pixel out of range"))
)
