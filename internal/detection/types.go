// Package detection turns an uploaded image into labelled detections and an
// annotated copy of the image.
package detection

// Box is a bounding box in pixel coordinates of the decoded image.
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// RawDetection is unfiltered detector output before thresholding and label
// resolution.
type RawDetection struct {
	ClassID    int
	Confidence float64
	Box        Box
}

// Detection is a kept, labelled detection.
type Detection struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	BBox       Box     `json:"bbox"`
}

// Result is the outcome of one pipeline run.
type Result struct {
	Detections     []Detection `json:"detections"`
	TotalObjects   int         `json:"total_objects"`
	AnnotatedImage string      `json:"annotated_image"` // base64, std encoding
	ImageFormat    string      `json:"image_format"`
}

// Detector is the object-detection model. Implementations are loaded once
// and must be safe for concurrent use by several pipeline runs.
type Detector interface {
	// Ready reports whether the model is loaded and able to run inference.
	Ready() bool

	// Infer runs the model on the grid. The grid must not be modified.
	Infer(grid *PixelGrid) ([]RawDetection, error)

	// Label resolves a class id to a human-readable label.
	Label(classID int) (string, bool)
}
