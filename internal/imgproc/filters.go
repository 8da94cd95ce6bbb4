package imgproc

import (
	"image"
	"math"
)

// bilateralFilter applies an edge-preserving smoothing filter: each output
// pixel is a weighted mean of its neighborhood, with weights falling off both
// with spatial distance (sigmaSpace) and intensity difference (sigmaColor).
// Borders are replicated. The source image must be zero-origin.
func bilateralFilter(src *image.Gray, diameter int, sigmaColor, sigmaSpace float64) *image.Gray {
	radius := diameter / 2
	w, h := src.Bounds().Dx(), src.Bounds().Dy()

	spatial := make([]float64, diameter*diameter)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			d2 := float64(dx*dx + dy*dy)
			spatial[(dy+radius)*diameter+(dx+radius)] = math.Exp(-d2 / (2 * sigmaSpace * sigmaSpace))
		}
	}
	var colorWeight [256]float64
	for i := range colorWeight {
		colorWeight[i] = math.Exp(-float64(i*i) / (2 * sigmaColor * sigmaColor))
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			center := src.Pix[y*src.Stride+x]
			var num, den float64
			for dy := -radius; dy <= radius; dy++ {
				sy := clampInt(y+dy, 0, h-1)
				for dx := -radius; dx <= radius; dx++ {
					sx := clampInt(x+dx, 0, w-1)
					v := src.Pix[sy*src.Stride+sx]
					wt := spatial[(dy+radius)*diameter+(dx+radius)] * colorWeight[absDiff(v, center)]
					num += wt * float64(v)
					den += wt
				}
			}
			dst.Pix[y*dst.Stride+x] = uint8(num/den + 0.5)
		}
	}
	return dst
}

// claheEqualize performs contrast-limited adaptive histogram equalization:
// the image is split into a tile grid, each tile gets a clipped, equalized
// intensity mapping, and pixels are remapped by bilinear interpolation
// between the four surrounding tile mappings.
func claheEqualize(src *image.Gray, clipLimit float64, tilesX, tilesY int) *image.Gray {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	tileW := (w + tilesX - 1) / tilesX
	tileH := (h + tilesY - 1) / tilesY

	luts := make([][256]uint8, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			x0, y0 := tx*tileW, ty*tileH
			x1, y1 := minInt(x0+tileW, w), minInt(y0+tileH, h)
			if x0 >= x1 || y0 >= y1 {
				continue
			}

			var hist [256]int
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					hist[src.Pix[y*src.Stride+x]]++
				}
			}

			area := (x1 - x0) * (y1 - y0)
			clip := int(clipLimit * float64(area) / 256)
			if clip < 1 {
				clip = 1
			}
			excess := 0
			for i := range hist {
				if hist[i] > clip {
					excess += hist[i] - clip
					hist[i] = clip
				}
			}
			// Redistribute the clipped excess uniformly across all bins.
			bonus := excess / 256
			total := 0
			for i := range hist {
				hist[i] += bonus
				total += hist[i]
			}

			cum := 0
			for i := range hist {
				cum += hist[i]
				luts[ty*tilesX+tx][i] = uint8(math.Round(255 * float64(cum) / float64(total)))
			}
		}
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		fy := (float64(y) - float64(tileH)/2) / float64(tileH)
		ty0 := int(math.Floor(fy))
		wy := fy - float64(ty0)
		ty1 := clampInt(ty0+1, 0, tilesY-1)
		ty0 = clampInt(ty0, 0, tilesY-1)

		for x := 0; x < w; x++ {
			fx := (float64(x) - float64(tileW)/2) / float64(tileW)
			tx0 := int(math.Floor(fx))
			wx := fx - float64(tx0)
			tx1 := clampInt(tx0+1, 0, tilesX-1)
			tx0 = clampInt(tx0, 0, tilesX-1)

			v := src.Pix[y*src.Stride+x]
			top := (1-wx)*float64(luts[ty0*tilesX+tx0][v]) + wx*float64(luts[ty0*tilesX+tx1][v])
			bottom := (1-wx)*float64(luts[ty1*tilesX+tx0][v]) + wx*float64(luts[ty1*tilesX+tx1][v])
			dst.Pix[y*dst.Stride+x] = uint8(clampFloat((1-wy)*top+wy*bottom, 0, 255) + 0.5)
		}
	}
	return dst
}

// adaptiveThresholdGaussian binarizes against a Gaussian-weighted local mean:
// a pixel becomes white when it exceeds the blurred neighborhood mean minus
// the offset constant c. The output holds only the values 0 and 255.
func adaptiveThresholdGaussian(src *image.Gray, blockSize int, c float64) *image.Gray {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	kernel := gaussianKernel1D(blockSize)

	// Separable blur with replicated borders, kept in float to avoid
	// rounding the threshold surface.
	radius := blockSize / 2
	horiz := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for k := -radius; k <= radius; k++ {
				sx := clampInt(x+k, 0, w-1)
				acc += kernel[k+radius] * float64(src.Pix[y*src.Stride+sx])
			}
			horiz[y*w+x] = acc
		}
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for k := -radius; k <= radius; k++ {
				sy := clampInt(y+k, 0, h-1)
				acc += kernel[k+radius] * horiz[sy*w+x]
			}
			if float64(src.Pix[y*src.Stride+x]) > acc-c {
				dst.Pix[y*dst.Stride+x] = 255
			}
		}
	}
	return dst
}

// closeMorph applies a morphological closing (dilate then erode) with a 2x2
// structuring element, merging close foreground regions such as broken
// character strokes.
func closeMorph(src *image.Gray) *image.Gray {
	return erode2x2(dilate2x2(src))
}

func dilate2x2(src *image.Gray) *image.Gray {
	return morph2x2(src, func(a, b uint8) uint8 {
		if a > b {
			return a
		}
		return b
	})
}

func erode2x2(src *image.Gray) *image.Gray {
	return morph2x2(src, func(a, b uint8) uint8 {
		if a < b {
			return a
		}
		return b
	})
}

func morph2x2(src *image.Gray, pick func(a, b uint8) uint8) *image.Gray {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := src.Pix[y*src.Stride+x]
			for _, d := range [3][2]int{{-1, 0}, {0, -1}, {-1, -1}} {
				sx := clampInt(x+d[0], 0, w-1)
				sy := clampInt(y+d[1], 0, h-1)
				v = pick(v, src.Pix[sy*src.Stride+sx])
			}
			dst.Pix[y*dst.Stride+x] = v
		}
	}
	return dst
}

// gaussianKernel1D builds a normalized 1D Gaussian with the sigma OpenCV
// derives for a given aperture: 0.3*((ksize-1)*0.5 - 1) + 0.8.
func gaussianKernel1D(size int) []float64 {
	sigma := 0.3*(float64(size-1)*0.5-1) + 0.8
	radius := size / 2
	kernel := make([]float64, size)
	var sum float64
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		kernel[i+radius] = v
		sum += v
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
