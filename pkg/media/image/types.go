// Package image implements the Image Pipeline (C3): OCR, word-level PII
// mapping by byte-range intersection, and pixel masking. Grounded on
// original_source/worker/tasks/ocr_image.py.
package image

import "context"

// Box is a pixel rectangle in OCR word-box coordinates: left, top, width,
// height.
type Box struct {
	L, T, W, H int
}

// Pad expands b by pad pixels on every side, then clamps it to the
// [0,0,maxW,maxH) frame (spec.md §4.3 step 7: "expand by a 5-pixel padding, clamped to
// image bounds").
func (b Box) Pad(pad, maxW, maxH int) Box {
	l := b.L - pad
	t := b.T - pad
	r := b.L + b.W + pad
	bt := b.T + b.H + pad

	if l < 0 {
		l = 0
	}
	if t < 0 {
		t = 0
	}
	if r > maxW {
		r = maxW
	}
	if bt > maxH {
		bt = maxH
	}
	if r < l {
		r = l
	}
	if bt < t {
		bt = t
	}

	return Box{L: l, T: t, W: r - l, H: bt - t}
}

// Word is one OCR-recognized word with its byte range in the concatenated
// text buffer recorded alongside its pixel box — the per-word byte ranges
// spec.md §4.3 step 4/6 requires for range-intersection PII mapping
// (replacing the source's weaker substring-matching approach).
type Word struct {
	Text       string
	Box        Box
	Confidence float64
	Start, End int // byte range in the concatenated OCR text buffer
}

// Engine is an OCR backend. Recognize returns word-level tuples before any
// confidence filtering.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img []byte) ([]Word, error)
}

// MaskMode selects how a masked region is obscured (spec.md §4.3 step 8).
type MaskMode string

const (
	MaskBlur  MaskMode = "blur"
	MaskSolid MaskMode = "solid"
)

const (
	// minWordConfidence discards OCR words scoring below it (spec.md
	// §4.3 step 3: "conf < 30").
	minWordConfidence = 30.0

	// boxPadding is the pixel padding applied to each mapped box (spec.md
	// §4.3 step 7).
	boxPadding = 5

	// blurRadius is the Gaussian blur radius for MaskBlur (spec.md §4.3
	// step 8).
	blurRadius = 15
)
