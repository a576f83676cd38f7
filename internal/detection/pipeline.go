package detection

import (
	"fmt"
	"image/color"
	"math"
	"mime"
	"strings"
)

// DefaultThreshold is the confidence a detection must exceed to be kept.
const DefaultThreshold = 0.5

// Pipeline runs decode, inference, filtering, annotation and encoding for one
// upload at a time. A Pipeline holds no per-run state and may be shared.
type Pipeline struct {
	detector    Detector
	threshold   float64
	jpegQuality int
	style       Style

	encode func(grid *PixelGrid, format string, jpegQuality int) (string, string, error)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithThreshold sets the default confidence threshold.
func WithThreshold(threshold float64) Option {
	return func(p *Pipeline) {
		p.threshold = threshold
	}
}

// WithLabelFormat sets the label format; it receives the class and the
// confidence, in that order.
func WithLabelFormat(format string) Option {
	return func(p *Pipeline) {
		p.style.LabelFormat = format
	}
}

// WithJPEGQuality sets the quality used when re-encoding to JPEG.
func WithJPEGQuality(quality int) Option {
	return func(p *Pipeline) {
		p.jpegQuality = quality
	}
}

// WithBoxColor sets the box and label colour.
func WithBoxColor(c color.RGBA) Option {
	return func(p *Pipeline) {
		p.style.Color = c
	}
}

// NewPipeline binds a detector to a pipeline.
func NewPipeline(detector Detector, opts ...Option) *Pipeline {
	p := &Pipeline{
		detector:    detector,
		threshold:   DefaultThreshold,
		jpegQuality: DefaultJPEGQuality,
		style:       DefaultStyle(),
		encode:      EncodeBase64,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run is a one-shot form of Pipeline.RunWithThreshold.
func Run(imageBytes []byte, contentTypeHint string, detector Detector, confidenceThreshold float64) (*Result, error) {
	return NewPipeline(detector).RunWithThreshold(imageBytes, contentTypeHint, confidenceThreshold)
}

// Threshold returns the pipeline's default confidence threshold.
func (p *Pipeline) Threshold() float64 {
	return p.threshold
}

// Run processes one upload with the pipeline's default threshold.
func (p *Pipeline) Run(imageBytes []byte, contentTypeHint string) (*Result, error) {
	return p.RunWithThreshold(imageBytes, contentTypeHint, p.threshold)
}

// RunWithThreshold processes one upload. Either a complete result or exactly
// one error is returned.
func (p *Pipeline) RunWithThreshold(imageBytes []byte, contentTypeHint string, threshold float64) (*Result, error) {
	if err := ValidateContentType(contentTypeHint); err != nil {
		return nil, err
	}
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	if p.detector == nil || !p.detector.Ready() {
		return nil, ErrDetectorUnavailable
	}

	grid, format, err := Decode(imageBytes)
	if err != nil {
		return nil, err
	}

	raw, err := p.detector.Infer(grid)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}

	detections, err := Filter(raw, threshold, p.detector.Label)
	if err != nil {
		return nil, err
	}

	annotated := Annotate(grid, detections, p.style)

	encoded, usedFormat, err := p.encode(annotated, format, p.jpegQuality)
	if err != nil {
		return nil, err
	}

	return &Result{
		Detections:     detections,
		TotalObjects:   len(detections),
		AnnotatedImage: encoded,
		ImageFormat:    usedFormat,
	}, nil
}

// Filter keeps detections whose confidence is strictly above threshold and
// resolves their labels, preserving the detector's order.
func Filter(raw []RawDetection, threshold float64, label func(classID int) (string, bool)) ([]Detection, error) {
	kept := make([]Detection, 0, len(raw))
	for _, r := range raw {
		if !(r.Confidence > threshold) {
			continue
		}
		name, ok := label(r.ClassID)
		if !ok {
			return nil, &UnknownClassError{ClassID: r.ClassID}
		}
		kept = append(kept, Detection{
			Class:      name,
			Confidence: r.Confidence,
			BBox:       r.Box,
		})
	}
	return kept, nil
}

// ValidateContentType accepts any image/* media type.
func ValidateContentType(contentType string) error {
	if contentType == "" {
		return fmt.Errorf("%w: missing content type", ErrInvalidInput)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return fmt.Errorf("%w: content type %q: %v", ErrInvalidInput, contentType, err)
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return fmt.Errorf("%w: content type %q is not an image", ErrInvalidInput, mediaType)
	}
	return nil
}

// ValidateThreshold accepts thresholds in [0, 1].
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return fmt.Errorf("%w: threshold %v outside [0, 1]", ErrInvalidInput, threshold)
	}
	return nil
}
