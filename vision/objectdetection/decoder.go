package objectdetection

import (
	"math"

	"github.com/darknet-go/darknet/nn"
	"github.com/darknet-go/darknet/tensor"
)

// Decode converts raw detection-head outputs into candidate detections with
// probability >= confThresh. Candidates come out in a fixed order (head,
// then row-major cell, then anchor, then class), which the suppression
// stage relies on for deterministic tie-breaking.
func Decode(heads []nn.HeadOutput, inputW, inputH int, confThresh float64, labels []string) ([]Detection, error) {
	var candidates []Detection
	for _, h := range heads {
		dets, err := DecodeHead(h.Out, h.Head, inputW, inputH, confThresh, labels)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, dets...)
	}
	return candidates, nil
}

// DecodeHead decodes one head's output tensor, shaped
// anchors x (5+classes) x gridH x gridW. Box centers come from the cell
// position plus a logistic offset, box sizes from the anchor scaled by an
// exponential, both normalized to [0,1] of the network input.
func DecodeHead(out *tensor.Tensor, head *nn.YOLO, inputW, inputH int, confThresh float64, labels []string) ([]Detection, error) {
	wantShape := head.OutShape()
	got := out.Shape()
	if len(got) != 4 || got[0] != wantShape[0] || got[1] != wantShape[1] ||
		got[2] != wantShape[2] || got[3] != wantShape[3] {
		return nil, tensor.NewShapeError("head output shaped %v, want %v", got, wantShape)
	}

	gridH, gridW := got[2], got[3]
	fields := got[1]
	classes := head.Classes
	data := out.Data()

	at := func(a, f, y, x int) float64 {
		return data[((a*fields+f)*gridH+y)*gridW+x]
	}

	var dets []Detection
	for y := 0; y < gridH; y++ {
		for x := 0; x < gridW; x++ {
			for a := 0; a < head.NumAnchors(); a++ {
				objectness := nn.Sigmoid(at(a, 4, y, x))
				anchorW, anchorH := head.Anchor(a)
				box := Box{
					X: (float64(x) + nn.Sigmoid(at(a, 0, y, x))) / float64(gridW),
					Y: (float64(y) + nn.Sigmoid(at(a, 1, y, x))) / float64(gridH),
					W: anchorW * math.Exp(at(a, 2, y, x)) / float64(inputW),
					H: anchorH * math.Exp(at(a, 3, y, x)) / float64(inputH),
				}.Clip()
				for k := 0; k < classes; k++ {
					prob := objectness * nn.Sigmoid(at(a, 5+k, y, x))
					if prob < confThresh {
						continue
					}
					label := ""
					if k < len(labels) {
						label = labels[k]
					}
					dets = append(dets, Detection{
						Box:         box,
						Class:       k,
						Label:       label,
						Probability: prob,
						Objectness:  objectness,
					})
				}
			}
		}
	}
	return dets, nil
}
