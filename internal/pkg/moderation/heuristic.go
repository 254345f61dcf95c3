package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/webp"
	"github.com/rwcarlsen/goexif/exif"

	"github.com/ManuelReschke/TazaQala/app/models"
)

const (
	heuristicVersion = "heuristic_v1"
	// analysisSize bounds the longest edge used for pixel statistics.
	analysisSize = 512
)

// HeuristicGateway scores photos from pixel statistics: sharpness and
// exposure for quality, colour masks for visible waste.
type HeuristicGateway struct {
	baseDir string
	policy  Policy
}

// NewHeuristicGateway resolves photo references relative to baseDir.
func NewHeuristicGateway(baseDir string, policy Policy) *HeuristicGateway {
	return &HeuristicGateway{baseDir: baseDir, policy: policy}
}

func (h *HeuristicGateway) Name() string { return "heuristic" }

type heuristicAnalysis struct {
	QualityScore float64  `json:"quality_score"`
	TrashScore   float64  `json:"trash_score"`
	TrashType    string   `json:"trash_type"`
	ImageHash    string   `json:"image_hash"`
	Width        int      `json:"width"`
	Height       int      `json:"height"`
	GPS          *gpsInfo `json:"gps,omitempty"`
	ModelVersion string   `json:"model_version"`
}

type gpsInfo struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Analyze decodes the photo and scores it.
func (h *HeuristicGateway) Analyze(ctx context.Context, photoRef string) (Result, error) {
	path := resolvePhoto(h.baseDir, photoRef)
	img, err := loadImage(path)
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	bounds := img.Bounds()
	small := imaging.Fit(img, analysisSize, analysisSize, imaging.Box)
	stats := measure(small)

	quality := stats.quality()
	trash := stats.trashScore()
	confidence := round2(clamp01(quality*0.3 + trash*0.7))

	analysis := heuristicAnalysis{
		QualityScore: round2(quality),
		TrashScore:   round2(trash),
		TrashType:    stats.trashType(),
		ImageHash:    averageHash(img),
		Width:        bounds.Dx(),
		Height:       bounds.Dy(),
		GPS:          readGPS(path),
		ModelVersion: heuristicVersion,
	}
	raw, err := json.Marshal(analysis)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Confidence: confidence,
		Status:     h.policy.Classify(confidence, trash > 0.5),
		Category:   analysis.TrashType,
		Raw:        string(raw),
	}, nil
}

func resolvePhoto(baseDir, ref string) string {
	if baseDir == "" {
		return ref
	}
	return filepath.Join(baseDir, filepath.Clean("/"+ref))
}

func loadImage(path string) (image.Image, error) {
	if strings.EqualFold(filepath.Ext(path), ".webp") {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		img, err := webp.Decode(f, &decoder.Options{})
		if err != nil {
			return nil, fmt.Errorf("decode webp: %w", err)
		}
		return img, nil
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// readGPS returns the EXIF position of the photo, if any.
func readGPS(path string) *gpsInfo {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	x, err := exif.Decode(f)
	if err != nil {
		return nil
	}
	lat, lng, err := x.LatLong()
	if err != nil {
		return nil
	}
	return &gpsInfo{Lat: lat, Lng: lng}
}

type pixelStats struct {
	total       float64
	saturated   float64 // any vivid colour
	vivid       float64 // strongly saturated, plastic-like
	bright      float64 // specular highlights, metal or glass
	organic     float64 // brown and olive tones
	organicSoft float64
	meanGray    float64
	laplaceVar  float64
}

func measure(img *image.NRGBA) pixelStats {
	b := img.Bounds()
	w, hgt := b.Dx(), b.Dy()
	gray := make([]float64, w*hgt)
	var s pixelStats

	for y := 0; y < hgt; y++ {
		for x := 0; x < w; x++ {
			i := y*img.Stride + x*4
			r, g, bl := float64(img.Pix[i]), float64(img.Pix[i+1]), float64(img.Pix[i+2])
			gv := 0.299*r + 0.587*g + 0.114*bl
			gray[y*w+x] = gv
			s.meanGray += gv

			hue, sat, val := hsv(r, g, bl)
			if sat >= 50 && val >= 50 {
				s.saturated++
			}
			if sat >= 100 && val >= 100 {
				s.vivid++
			}
			if gv > 200 {
				s.bright++
			}
			if hue >= 20 && hue <= 60 && sat >= 50 && val >= 20 && val <= 200 {
				s.organic++
			}
			if hue >= 20 && hue <= 60 && sat >= 30 && val >= 30 && val <= 150 {
				s.organicSoft++
			}
		}
	}
	s.total = float64(w * hgt)
	if s.total == 0 {
		return s
	}
	s.meanGray /= s.total
	s.laplaceVar = laplacianVariance(gray, w, hgt)
	return s
}

func (s pixelStats) quality() float64 {
	if s.total == 0 {
		return 0
	}
	sharpness := math.Min(s.laplaceVar/500, 1)
	brightness := 1 - math.Abs(s.meanGray-127)/127
	return sharpness*0.6 + brightness*0.4
}

func (s pixelStats) trashScore() float64 {
	if s.total == 0 {
		return 0
	}
	ratio := (s.saturated + s.bright + s.organic) / s.total
	return math.Min(ratio*5, 1)
}

func (s pixelStats) trashType() string {
	if s.total == 0 {
		return models.CategoryUnknown
	}
	candidates := []struct {
		name  string
		ratio float64
	}{
		{models.CategoryPlastic, s.vivid / s.total},
		{models.CategoryMetal, s.bright / s.total},
		{models.CategoryOrganic, s.organicSoft / s.total},
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.ratio > best.ratio {
			best = c
		}
	}
	if best.ratio < 0.1 {
		return models.CategoryMixed
	}
	return best.name
}

// laplacianVariance is the variance of the 4-neighbour Laplacian over
// interior pixels; higher means sharper.
func laplacianVariance(gray []float64, w, h int) float64 {
	if w < 3 || h < 3 {
		return 0
	}
	var sum, sumSq, n float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			c := gray[y*w+x]
			l := gray[(y-1)*w+x] + gray[(y+1)*w+x] + gray[y*w+x-1] + gray[y*w+x+1] - 4*c
			sum += l
			sumSq += l * l
			n++
		}
	}
	mean := sum / n
	return sumSq/n - mean*mean
}

// hsv converts 0..255 RGB to hue in degrees and saturation/value in 0..255.
func hsv(r, g, b float64) (float64, float64, float64) {
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	delta := max - min

	var hue float64
	switch {
	case delta == 0:
		hue = 0
	case max == r:
		hue = 60 * math.Mod((g-b)/delta, 6)
	case max == g:
		hue = 60 * ((b-r)/delta + 2)
	default:
		hue = 60 * ((r-g)/delta + 4)
	}
	if hue < 0 {
		hue += 360
	}
	var sat float64
	if max > 0 {
		sat = delta / max * 255
	}
	return hue, sat, max
}

// averageHash is a 64-bit perceptual hash used to spot duplicate uploads.
func averageHash(img image.Image) string {
	small := imaging.Grayscale(imaging.Resize(img, 8, 8, imaging.Box))
	var sum float64
	for i := 0; i < 64; i++ {
		sum += float64(small.Pix[i*4])
	}
	avg := sum / 64
	var bits uint64
	for i := 0; i < 64; i++ {
		if float64(small.Pix[i*4]) > avg {
			bits |= 1 << uint(63-i)
		}
	}
	return fmt.Sprintf("%016x", bits)
}
