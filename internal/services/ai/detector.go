package ai

import (
	"fmt"
	"image"
	"os"
	"sync"
	"sync/atomic"
	"visionbridge/internal/config"
	"visionbridge/internal/detection"
	"visionbridge/internal/labels"
	"visionbridge/internal/logger"

	"gocv.io/x/gocv"
)

const (
	inputSize   = 300 // SSD MobileNet input edge
	outputWidth = 7   // [image_id, class_id, confidence, left, top, right, bottom]
)

// DetectorService runs an OpenCV DNN SSD network. A fixed number of networks
// is loaded at startup and handed out per call, so Infer may be called from
// several requests at once.
type DetectorService struct {
	nets       chan gocv.Net
	ready      atomic.Bool
	closed     chan struct{}
	closeOnce  sync.Once
	inflight   sync.RWMutex // held for reading by Infer, for writing by Close
	labels     labels.Table
	modelPath  string
	configPath string
	logger     *logger.Logger
}

// NewDetectorService loads cfg.ProcessingWorkers copies of the network. When
// the model cannot be loaded the service is returned anyway and reports
// itself as not ready.
func NewDetectorService(config *config.Config, table labels.Table, logger *logger.Logger) *DetectorService {
	workers := config.ProcessingWorkers
	if workers <= 0 {
		workers = 1
	}

	service := &DetectorService{
		nets:       make(chan gocv.Net, workers),
		closed:     make(chan struct{}),
		labels:     table,
		modelPath:  config.ModelPath,
		configPath: config.ConfigPath,
		logger:     logger,
	}

	for i := 0; i < workers; i++ {
		net, err := service.initializeNet()
		if err != nil {
			service.logger.Warning("Could not initialize detection network: %v", err)
			service.Close()
			return service
		}
		service.nets <- net
	}
	service.ready.Store(true)

	service.logger.Info("Detection network initialized successfully (%d instance(s))", workers)
	return service
}

// initializeNet loads one network from the model and config files.
func (s *DetectorService) initializeNet() (gocv.Net, error) {
	if _, err := os.Stat(s.modelPath); os.IsNotExist(err) {
		return gocv.Net{}, fmt.Errorf("model file not found: %s", s.modelPath)
	}

	if _, err := os.Stat(s.configPath); os.IsNotExist(err) {
		return gocv.Net{}, fmt.Errorf("config file not found: %s", s.configPath)
	}

	net := gocv.ReadNet(s.modelPath, s.configPath)
	if net.Empty() {
		return gocv.Net{}, fmt.Errorf("failed to load network")
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return gocv.Net{}, fmt.Errorf("failed to set preferable backend or target")
	}

	return net, nil
}

// Ready reports whether the networks were loaded.
func (s *DetectorService) Ready() bool {
	return s.ready.Load()
}

// Label resolves an SSD class id.
func (s *DetectorService) Label(classID int) (string, bool) {
	return s.labels.Lookup(classID)
}

// Infer runs the network on the grid and returns every output row, scaled
// to pixel coordinates. Thresholding is left to the caller.
func (s *DetectorService) Infer(grid *detection.PixelGrid) ([]detection.RawDetection, error) {
	s.inflight.RLock()
	defer s.inflight.RUnlock()

	if !s.Ready() {
		return nil, detection.ErrDetectorUnavailable
	}

	mat, err := gocv.NewMatFromBytes(grid.Height, grid.Width, gocv.MatTypeCV8UC3, grid.Pix)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap pixel grid: %v", err)
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(inputSize, inputSize), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	var net gocv.Net
	select {
	case net = <-s.nets:
	case <-s.closed:
		return nil, detection.ErrDetectorUnavailable
	}
	defer func() { s.nets <- net }()
	if !s.Ready() {
		return nil, detection.ErrDetectorUnavailable
	}

	net.SetInput(blob, "")
	output := net.Forward("")
	defer output.Close()

	outputReshaped := output.Reshape(1, output.Total()/outputWidth)
	defer outputReshaped.Close()

	width := float64(grid.Width)
	height := float64(grid.Height)

	results := make([]detection.RawDetection, 0, outputReshaped.Rows())
	for i := 0; i < outputReshaped.Rows(); i++ {
		results = append(results, detection.RawDetection{
			ClassID:    int(outputReshaped.GetFloatAt(i, 1)),
			Confidence: float64(outputReshaped.GetFloatAt(i, 2)),
			Box: detection.Box{
				X1: float64(outputReshaped.GetFloatAt(i, 3)) * width,
				Y1: float64(outputReshaped.GetFloatAt(i, 4)) * height,
				X2: float64(outputReshaped.GetFloatAt(i, 5)) * width,
				Y2: float64(outputReshaped.GetFloatAt(i, 6)) * height,
			},
		})
	}

	return results, nil
}

// Close releases all loaded networks. It waits for running inferences and
// makes later ones fail with ErrDetectorUnavailable.
func (s *DetectorService) Close() {
	s.ready.Store(false)
	s.closeOnce.Do(func() { close(s.closed) })

	s.inflight.Lock()
	defer s.inflight.Unlock()
	for {
		select {
		case net := <-s.nets:
			net.Close()
		default:
			return
		}
	}
}
