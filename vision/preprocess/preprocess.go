// Package preprocess fits an input image to a network's input shape and
// converts it into the pixel tensor the forward pass consumes.
package preprocess

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"

	"github.com/darknet-go/darknet/tensor"
	"github.com/darknet-go/darknet/utils"
	"github.com/darknet-go/darknet/vision/objectdetection"
)

// Mapping records how an original image was fitted onto the network input,
// so boxes decoded against the input can be mapped back to the original.
// UsedW/UsedH are the fractions of the input the image occupies and
// OffsetX/OffsetY the normalized padding before it; a plain resize uses the
// whole input.
type Mapping struct {
	UsedW, UsedH     float64
	OffsetX, OffsetY float64
}

// Resize stretches img to netW x netH, ignoring aspect ratio.
func Resize(img image.Image, netW, netH int) (image.Image, Mapping) {
	out := resize.Resize(uint(netW), uint(netH), img, resize.Bilinear)
	return out, Mapping{UsedW: 1, UsedH: 1}
}

// Letterbox scales img to fit netW x netH preserving aspect ratio and
// pastes it centered on a mid-gray canvas, the way darknet pads inputs.
func Letterbox(img image.Image, netW, netH int) (image.Image, Mapping) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	newW, newH := netW, h*netW/w
	if newH > netH {
		newW, newH = w*netH/h, netH
	}
	fitted := imaging.Resize(img, newW, newH, imaging.Linear)
	canvas := imaging.New(netW, netH, color.NRGBA{128, 128, 128, 255})
	out := imaging.PasteCenter(canvas, fitted)
	m := Mapping{
		UsedW:   float64(newW) / float64(netW),
		UsedH:   float64(newH) / float64(netH),
		OffsetX: float64(netW-newW) / 2 / float64(netW),
		OffsetY: float64(netH-newH) / 2 / float64(netH),
	}
	return out, m
}

// ImageToTensor converts an image into a channels x height x width tensor
// of RGB values in [0,1].
func ImageToTensor(img image.Image) (*tensor.Tensor, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, errors.Errorf("cannot convert empty image with bounds %v", bounds)
	}
	out, err := tensor.New(3, h, w)
	if err != nil {
		return nil, err
	}
	data := out.Data()
	plane := h * w
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			i := y*w + x
			data[i] = float64(r>>8) / 255
			data[plane+i] = float64(g>>8) / 255
			data[2*plane+i] = float64(b>>8) / 255
		}
	}
	return out, nil
}

// Undo returns a postprocessor that maps detection boxes from
// network-input coordinates back to normalized coordinates of the original
// image, clipping the result.
func (m Mapping) Undo() objectdetection.Postprocessor {
	return func(in []objectdetection.Detection) []objectdetection.Detection {
		out := make([]objectdetection.Detection, 0, len(in))
		for _, d := range in {
			b := d.Box
			b.X = (b.X - m.OffsetX) / m.UsedW
			b.Y = (b.Y - m.OffsetY) / m.UsedH
			b.W = b.W / m.UsedW
			b.H = b.H / m.UsedH
			b.X = utils.Clamp(b.X, 0, 1)
			b.Y = utils.Clamp(b.Y, 0, 1)
			d.Box = b.Clip()
			out = append(out, d)
		}
		return out
	}
}
