// Package labels resolves detector class ids to human-readable names.
package labels

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Table maps class ids to labels.
type Table map[int]string

// Lookup returns the label for classID.
func (t Table) Lookup(classID int) (string, bool) {
	label, ok := t[classID]
	return label, ok
}

// COCO returns the 1-based COCO table used by the TensorFlow SSD MobileNet
// graphs. Ids retired from the dataset (12, 26, 29, 30, ...) are absent.
func COCO() Table {
	t := make(Table, len(cocoNames))
	for id, name := range cocoNames {
		t[id] = name
	}
	return t
}

// Load reads a YAML mapping of class id to label, e.g.
//
//	1: person
//	2: bicycle
func Load(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label table: %w", err)
	}

	t := make(Table)
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse label table %s: %w", path, err)
	}
	if len(t) == 0 {
		return nil, fmt.Errorf("label table %s is empty", path)
	}
	return t, nil
}

// LoadOrDefault loads path, or returns the COCO table when path is empty.
func LoadOrDefault(path string) (Table, error) {
	if path == "" {
		return COCO(), nil
	}
	return Load(path)
}

var cocoNames = map[int]string{
	1: "person", 2: "bicycle", 3: "car", 4: "motorcycle", 5: "airplane",
	6: "bus", 7: "train", 8: "truck", 9: "boat", 10: "traffic light",
	11: "fire hydrant", 13: "stop sign", 14: "parking meter", 15: "bench",
	16: "bird", 17: "cat", 18: "dog", 19: "horse", 20: "sheep", 21: "cow",
	22: "elephant", 23: "bear", 24: "zebra", 25: "giraffe", 27: "backpack",
	28: "umbrella", 31: "handbag", 32: "tie", 33: "suitcase", 34: "frisbee",
	35: "skis", 36: "snowboard", 37: "sports ball", 38: "kite",
	39: "baseball bat", 40: "baseball glove", 41: "skateboard",
	42: "surfboard", 43: "tennis racket", 44: "bottle", 46: "wine glass",
	47: "cup", 48: "fork", 49: "knife", 50: "spoon", 51: "bowl",
	52: "banana", 53: "apple", 54: "sandwich", 55: "orange", 56: "broccoli",
	57: "carrot", 58: "hot dog", 59: "pizza", 60: "donut", 61: "cake",
	62: "chair", 63: "couch", 64: "potted plant", 65: "bed",
	67: "dining table", 70: "toilet", 72: "tv", 73: "laptop", 74: "mouse",
	75: "remote", 76: "keyboard", 77: "cell phone", 78: "microwave",
	79: "oven", 80: "toaster", 81: "sink", 82: "refrigerator", 84: "book",
	85: "clock", 86: "vase", 87: "scissors", 88: "teddy bear",
	89: "hair drier", 90: "toothbrush",
}
