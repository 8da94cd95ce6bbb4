package imgproc

import (
	"image"
	"math"
)

// Decision thresholds for the adaptive pipeline, tuned for payment-receipt
// screenshots.
const (
	lowContrastThreshold = 50
	darkBrightness       = 80
	brightBrightness     = 180
	sharpLaplacianVar    = 100
	binaryDistinctLevels = 20
)

// QualityMetrics describes a grayscale image well enough to decide which
// enhancement stages it needs. Produced fresh per image, never persisted.
type QualityMetrics struct {
	Brightness       float64 `json:"brightness"`
	Contrast         float64 `json:"contrast"`
	NoiseLevel       float64 `json:"noise_level"`
	IsBinary         bool    `json:"is_binary"`
	NeedsEnhancement bool    `json:"needs_enhancement"`
}

// StagePlan is the set of enable/disable decisions for the optional
// enhancement stages, derived once from QualityMetrics and threaded through
// the pipeline so the trace is reproducible from the same struct.
type StagePlan struct {
	Denoise         bool
	EnhanceContrast bool
}

// Plan derives the stage decisions from the measured metrics. A low Laplacian
// variance indicates blur/noise and gates denoising; poor contrast or exposure
// gates contrast enhancement.
func (m QualityMetrics) Plan() StagePlan {
	return StagePlan{
		Denoise:         m.NoiseLevel < sharpLaplacianVar,
		EnhanceContrast: m.NeedsEnhancement,
	}
}

// AnalyzeQuality computes brightness (mean intensity), contrast (intensity
// standard deviation), a Laplacian-variance sharpness/noise proxy, and a
// heuristic for already-binarized images. The image must be zero-origin;
// an empty image yields zero metrics.
func AnalyzeQuality(gray *image.Gray) QualityMetrics {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return QualityMetrics{}
	}

	var sum, sumSq float64
	var seen [256]bool
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+w]
		for _, p := range row {
			v := float64(p)
			sum += v
			sumSq += v * v
			seen[p] = true
		}
	}

	n := float64(w * h)
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}

	distinct := 0
	for _, ok := range seen {
		if ok {
			distinct++
		}
	}

	m := QualityMetrics{
		Brightness: mean,
		Contrast:   math.Sqrt(variance),
		NoiseLevel: laplacianVariance(gray),
		IsBinary:   distinct < binaryDistinctLevels,
	}
	m.NeedsEnhancement = m.Contrast < lowContrastThreshold ||
		m.Brightness < darkBrightness ||
		m.Brightness > brightBrightness
	return m
}

// laplacianVariance is the variance of the 4-neighbor Laplacian response over
// the image interior. Images smaller than 3x3 have no interior and score 0.
func laplacianVariance(gray *image.Gray) float64 {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	var sum, sumSq float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*gray.Stride + x
			l := -4*float64(gray.Pix[i]) +
				float64(gray.Pix[i-1]) + float64(gray.Pix[i+1]) +
				float64(gray.Pix[i-gray.Stride]) + float64(gray.Pix[i+gray.Stride])
			sum += l
			sumSq += l * l
		}
	}

	n := float64((w - 2) * (h - 2))
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return variance
}
