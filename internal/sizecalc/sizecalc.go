package sizecalc

import (
	"errors"
	"fmt"
	"math"
)

const refineLimit = 100

var (
	ErrInvalidInput   = errors.New("invalid size input")
	ErrNumericAnomaly = errors.New("non-finite size computation")
)

func MaxSize(width, height, numPixels int) (int, int, error) {
	if width <= 0 || height <= 0 || numPixels <= 0 {
		return 1, 1, fmt.Errorf("width=%d height=%d num_pixels=%d: %w", width, height, numPixels, ErrInvalidInput)
	}

	if width <= numPixels/height {
		return width, height, nil
	}

	aspect := float64(width) / float64(height)

	// From w = aspect*h and w*h <= numPixels: h <= sqrt(numPixels/aspect).
	seed := math.Sqrt(float64(numPixels) / aspect)
	if math.IsNaN(seed) || math.IsInf(seed, 0) {
		return 1, 1, fmt.Errorf("width=%d height=%d num_pixels=%d: %w", width, height, numPixels, ErrNumericAnomaly)
	}

	h, ok := floorInt(seed)
	if !ok || h < 1 {
		h = 1
	}
	w, ok := floorInt(aspect * float64(h))
	if !ok || w < 1 {
		w = 1
	}

	// A clamped seed pins one dimension at 1; the other then has the
	// closed form numPixels/1.
	if h == 1 && w > numPixels {
		w = numPixels
	}
	if w == 1 && h > numPixels {
		h = numPixels
	}

	// Rounding slack can leave the seed over budget. Shrink the larger
	// dimension; a height shrink re-derives the width from the ratio.
	for w*h > numPixels && (w > 1 || h > 1) {
		if w > h {
			w--
		} else {
			h--
			rw, ok := floorInt(aspect * float64(h))
			if !ok || rw < 1 {
				rw = 1
			}
			w = rw
		}
	}

	for i := 0; i < refineLimit; i++ {
		if h < numPixels {
			if tw, ok := floorInt(aspect * float64(h+1)); ok && fits(tw, h+1, numPixels) {
				w, h = tw, h+1
				continue
			}
		}
		grown := false
		if w < numPixels {
			if th, ok := floorInt(float64(w+1) / aspect); ok && fits(w+1, th, numPixels) {
				w, h = w+1, th
				grown = true
			}
		}
		if !grown {
			break
		}
	}

	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	return w, h, nil
}

func fits(w, h, numPixels int) bool {
	return w >= 1 && h >= 1 && w <= numPixels/h
}

func floorInt(x float64) (int, bool) {
	if math.IsNaN(x) || x >= 1<<62 || x <= -(1<<62) {
		return 0, false
	}
	return int(math.Floor(x)), true
}
