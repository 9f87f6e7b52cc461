package preprocess

import (
	"image"
	"image/color"
	"testing"

	"go.viam.com/test"

	"github.com/darknet-go/darknet/vision/objectdetection"
)

func solidImage(w, h int, c color.NRGBA) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestImageToTensor(t *testing.T) {
	img := solidImage(4, 2, color.NRGBA{255, 0, 127, 255})
	out, err := ImageToTensor(img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Shape(), test.ShouldResemble, []int{3, 2, 4})

	r, err := out.At(0, 0, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r, test.ShouldEqual, 1.0)
	g, err := out.At(1, 1, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, g, test.ShouldEqual, 0.0)
	b, err := out.At(2, 0, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b, test.ShouldAlmostEqual, 127.0/255, 1e-12)
}

func TestResize(t *testing.T) {
	img := solidImage(10, 20, color.NRGBA{0, 255, 0, 255})
	out, m := Resize(img, 8, 8)
	test.That(t, out.Bounds().Dx(), test.ShouldEqual, 8)
	test.That(t, out.Bounds().Dy(), test.ShouldEqual, 8)
	test.That(t, m.UsedW, test.ShouldEqual, 1.0)
	test.That(t, m.UsedH, test.ShouldEqual, 1.0)
	test.That(t, m.OffsetX, test.ShouldEqual, 0.0)
}

func TestLetterbox(t *testing.T) {
	// a 2:1 wide image on a square input leaves bars above and below
	img := solidImage(20, 10, color.NRGBA{255, 255, 255, 255})
	out, m := Letterbox(img, 8, 8)
	test.That(t, out.Bounds().Dx(), test.ShouldEqual, 8)
	test.That(t, out.Bounds().Dy(), test.ShouldEqual, 8)
	test.That(t, m.UsedW, test.ShouldEqual, 1.0)
	test.That(t, m.UsedH, test.ShouldEqual, 0.5)
	test.That(t, m.OffsetX, test.ShouldEqual, 0.0)
	test.That(t, m.OffsetY, test.ShouldEqual, 0.25)

	// padding rows are gray, image rows are white
	tb, err := ImageToTensor(out)
	test.That(t, err, test.ShouldBeNil)
	top, err := tb.At(0, 0, 4)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, top, test.ShouldAlmostEqual, 128.0/255, 1e-12)
	mid, err := tb.At(0, 4, 4)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mid, test.ShouldEqual, 1.0)
}

func TestMappingUndo(t *testing.T) {
	m := Mapping{UsedW: 1, UsedH: 0.5, OffsetY: 0.25}
	und := m.Undo()
	in := []objectdetection.Detection{
		{Box: objectdetection.Box{X: 0.5, Y: 0.5, W: 0.2, H: 0.1}, Probability: 0.9},
	}
	out := und(in)
	test.That(t, out, test.ShouldHaveLength, 1)
	b := out[0].Box
	test.That(t, b.X, test.ShouldAlmostEqual, 0.5, 1e-12)
	test.That(t, b.Y, test.ShouldAlmostEqual, 0.5, 1e-12)
	test.That(t, b.W, test.ShouldAlmostEqual, 0.2, 1e-12)
	test.That(t, b.H, test.ShouldAlmostEqual, 0.2, 1e-12)
}
