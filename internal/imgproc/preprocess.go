package imgproc

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
)

// Trace stage names, in pipeline order. Optional stages appear in a trace
// only when the corresponding enhancement ran.
const (
	StageOriginal         = "original"
	StageGrayscale        = "grayscale"
	StageDenoised         = "denoised"
	StageContrastEnhanced = "contrast_enhanced"
	StageBinary           = "binary"
	StageMorphological    = "morphological"
	StageFinal            = "final"
)

// maxDimension bounds per-request CPU cost; larger uploads are downscaled
// before analysis.
const maxDimension = 2200

// DecodeError reports input bytes that are not a decodable image.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Step is one named intermediate image of a preprocessing run.
type Step struct {
	Name  string
	Image image.Image
}

// Result is the outcome of a preprocessing run. Trace is populated only in
// debug mode; its order is the pipeline stage order.
type Result struct {
	Image   *image.Gray
	Metrics QualityMetrics
	Plan    StagePlan
	Trace   []Step
}

// Decode decodes PNG/JPEG bytes into an image, honoring EXIF orientation.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return img, nil
}

// Preprocess runs the adaptive enhancement pipeline and returns an OCR-ready
// binarized image. Quality metrics are computed once on the grayscale image
// and gate the optional denoise and contrast stages; binarization and the
// morphological pass always run.
func Preprocess(data []byte, debug bool) (*Result, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if b := img.Bounds(); b.Dx() > maxDimension || b.Dy() > maxDimension {
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
	}

	res := &Result{}
	record := func(name string, im image.Image) {
		if debug {
			res.Trace = append(res.Trace, Step{Name: name, Image: im})
		}
	}

	record(StageOriginal, img)

	gray := toGray(img)
	record(StageGrayscale, gray)

	res.Metrics = AnalyzeQuality(gray)
	res.Plan = res.Metrics.Plan()

	if res.Plan.Denoise {
		gray = bilateralFilter(gray, 9, 75, 75)
		record(StageDenoised, gray)
	}

	if res.Plan.EnhanceContrast {
		gray = claheEqualize(gray, 2.0, 8, 8)
		record(StageContrastEnhanced, gray)
	}

	binary := adaptiveThresholdGaussian(gray, 11, 2)
	record(StageBinary, binary)

	// The closing result is exposed in the trace for inspection; OCR consumes
	// the unclosed binary image.
	closed := closeMorph(binary)
	record(StageMorphological, closed)

	res.Image = binary
	record(StageFinal, binary)

	return res, nil
}

func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}
