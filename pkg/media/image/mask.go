package image

import (
	"image"
	"image/color"
	"image/draw"
)

// applyMask obscures region within img according to mode, mutating img in
// place. No third-party imaging library appeared anywhere in the example
// pack (see DESIGN.md), so masking is implemented directly against the
// standard library's image/draw.
func applyMask(img draw.Image, region Box, mode MaskMode) {
	rect := image.Rect(region.L, region.T, region.L+region.W, region.T+region.H).Intersect(img.Bounds())
	if rect.Empty() {
		return
	}

	switch mode {
	case MaskSolid, "":
		draw.Draw(img, rect, image.NewUniform(color.Black), image.Point{}, draw.Src)
	case MaskBlur:
		boxBlur(img, rect, blurRadius)
	}
}

// boxBlur approximates a Gaussian blur with repeated box blur passes
// (three passes converge visually close to a true Gaussian for small
// radii) over rect, in place.
func boxBlur(img draw.Image, rect image.Rectangle, radius int) {
	if radius <= 0 {
		return
	}

	src := image.NewRGBA(rect)
	draw.Draw(src, rect, img, rect.Min, draw.Src)

	const passes = 3
	cur := src
	for p := 0; p < passes; p++ {
		cur = boxBlurPass(cur, radius)
	}

	draw.Draw(img, rect, cur, rect.Min, draw.Src)
}

func boxBlurPass(src *image.RGBA, radius int) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			var rSum, gSum, bSum, aSum, n uint32

			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					sx, sy := x+dx, y+dy
					if sx < bounds.Min.X || sx >= bounds.Max.X || sy < bounds.Min.Y || sy >= bounds.Max.Y {
						continue
					}
					r, g, b, a := src.At(sx, sy).RGBA()
					rSum += r >> 8
					gSum += g >> 8
					bSum += b >> 8
					aSum += a >> 8
					n++
				}
			}

			if n == 0 {
				n = 1
			}
			dst.Set(x, y, color.RGBA{
				R: uint8(rSum / n),
				G: uint8(gSum / n),
				B: uint8(bSum / n),
				A: uint8(aSum / n),
			})
		}
	}

	return dst
}
