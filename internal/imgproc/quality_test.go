package imgproc

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func uniformGray(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func checkerboard(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.Pix[y*img.Stride+x] = 255
			}
		}
	}
	return img
}

func gradient(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Pix[y*img.Stride+x] = uint8(x % 256)
		}
	}
	return img
}

func TestAnalyzeQualityUniform(t *testing.T) {
	m := AnalyzeQuality(uniformGray(64, 64, 128))

	assert.InDelta(t, 128, m.Brightness, 0.001)
	assert.InDelta(t, 0, m.Contrast, 0.001)
	assert.InDelta(t, 0, m.NoiseLevel, 0.001)
	assert.True(t, m.IsBinary, "single intensity value counts as binary")
	assert.True(t, m.NeedsEnhancement, "zero contrast needs enhancement")
}

func TestAnalyzeQualityCheckerboard(t *testing.T) {
	m := AnalyzeQuality(checkerboard(64, 64))

	assert.InDelta(t, 127.5, m.Brightness, 0.001)
	assert.InDelta(t, 127.5, m.Contrast, 0.001)
	assert.GreaterOrEqual(t, m.NoiseLevel, 100.0, "alternating pixels give a large Laplacian response")
	assert.True(t, m.IsBinary)
	assert.False(t, m.NeedsEnhancement, "well exposed, high contrast")
}

func TestAnalyzeQualityEmptyImage(t *testing.T) {
	m := AnalyzeQuality(image.NewGray(image.Rect(0, 0, 0, 0)))

	assert.Equal(t, QualityMetrics{}, m)
}

func TestAnalyzeQualityGradientIsNotBinary(t *testing.T) {
	m := AnalyzeQuality(gradient(256, 16))

	assert.False(t, m.IsBinary, "256 distinct levels")
	assert.False(t, m.NeedsEnhancement)
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name    string
		metrics QualityMetrics
		want    StagePlan
	}{
		{
			name:    "sharp and well exposed",
			metrics: QualityMetrics{Brightness: 128, Contrast: 80, NoiseLevel: 500},
			want:    StagePlan{Denoise: false, EnhanceContrast: false},
		},
		{
			name:    "blurry",
			metrics: QualityMetrics{Brightness: 128, Contrast: 80, NoiseLevel: 99.9},
			want:    StagePlan{Denoise: true, EnhanceContrast: false},
		},
		{
			name:    "needs enhancement",
			metrics: QualityMetrics{Brightness: 40, Contrast: 80, NoiseLevel: 500, NeedsEnhancement: true},
			want:    StagePlan{Denoise: false, EnhanceContrast: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.metrics.Plan())
		})
	}
}

func TestNeedsEnhancementThresholds(t *testing.T) {
	tests := []struct {
		name string
		img  *image.Gray
		want bool
	}{
		{"too dark", uniformGray(32, 32, 10), true},
		{"too bright", uniformGray(32, 32, 250), true},
		{"well exposed high contrast", checkerboard(32, 32), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AnalyzeQuality(tt.img).NeedsEnhancement)
		})
	}
}
