// Command darknet-detect runs a darknet YOLO model over a single image and
// writes the detections as tab-separated text.
//
// All inputs come from a small JSON execution config so the command can run
// headless with a single -config flag.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/darknet-go/darknet"
	"github.com/darknet-go/darknet/vision/objectdetection"
	"github.com/darknet-go/darknet/vision/preprocess"
)

type executionConfig struct {
	InputPath  string `json:"input_path"`
	CfgPath    string `json:"cfg_path"`
	ModelPath  string `json:"model_path"`
	LabelsPath string `json:"labels_path"`
	OutputPath string `json:"output_path"`

	ConfThreshold float64 `json:"confidence_threshold"`
	IoUThreshold  float64 `json:"iou_threshold"`
	Letterbox     bool    `json:"letterbox"`
}

func main() {
	logger := golog.NewDevelopmentLogger("darknet-detect")
	configPath := flag.String("config", "/execution_config", "path to the JSON execution config")
	flag.Parse()

	if err := run(context.Background(), *configPath, logger); err != nil {
		logger.Fatalw("detection failed", "error", err)
	}
}

func run(ctx context.Context, configPath string, logger golog.Logger) error {
	cfg, err := readConfig(configPath)
	if err != nil {
		return err
	}

	model, err := darknet.Load(cfg.CfgPath, cfg.ModelPath, cfg.LabelsPath, logger)
	if err != nil {
		return err
	}
	logger.Infow("model loaded", "input", model.InputShape(), "labels", len(model.Labels()))

	img, err := readImage(cfg.InputPath)
	if err != nil {
		return err
	}

	netW := model.Network().Width()
	netH := model.Network().Height()
	var fitted image.Image
	var mapping preprocess.Mapping
	if cfg.Letterbox {
		fitted, mapping = preprocess.Letterbox(img, netW, netH)
	} else {
		fitted, mapping = preprocess.Resize(img, netW, netH)
	}
	input, err := preprocess.ImageToTensor(fitted)
	if err != nil {
		return err
	}

	dets, err := model.Detect(ctx, darknet.DetectRequest{
		Input:         input,
		ConfThreshold: cfg.ConfThreshold,
		IoUThreshold:  cfg.IoUThreshold,
	})
	if err != nil {
		return err
	}
	dets = mapping.Undo()(dets)
	logger.Infow("detections", "count", len(dets))

	return writeDetections(cfg.OutputPath, dets)
}

func readConfig(path string) (*executionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading execution config")
	}
	var cfg executionConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing execution config %s", path)
	}
	for name, p := range map[string]string{
		"input_path":  cfg.InputPath,
		"cfg_path":    cfg.CfgPath,
		"model_path":  cfg.ModelPath,
		"output_path": cfg.OutputPath,
	} {
		if p == "" {
			return nil, errors.Errorf("execution config is missing %s", name)
		}
	}
	return &cfg, nil
}

func readImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening input image")
	}
	defer goutils.UncheckedErrorFunc(f.Close)
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding image %s", path)
	}
	return img, nil
}

// writeDetections renders one detection per line:
// label, probability in percent and the normalized center-form box,
// tab separated.
func writeDetections(path string, dets []objectdetection.Detection) error {
	var sb strings.Builder
	for _, d := range dets {
		label := d.Label
		if label == "" {
			label = fmt.Sprintf("class%d", d.Class)
		}
		fmt.Fprintf(&sb, "%s\t%.2f%%\t%.4f\t%.4f\t%.4f\t%.4f\n",
			label, d.Probability*100, d.Box.X, d.Box.Y, d.Box.W, d.Box.H)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return errors.Wrap(err, "writing output")
	}
	return nil
}
