package wavelamp

// This file contains the drawing surface the renderer paints into.  The
// canvas is sized once at startup and is never resized

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"sync"

	"github.com/go-stack/stack"
	"github.com/karlmutch/errors"
)

// Canvas is an RGBA raster shared between the render loop, which paints
// it, and readers such as the web surface that encode it
type Canvas struct {
	img *image.RGBA
	sync.Mutex
}

func NewCanvas(width int, height int) (canvas *Canvas, err errors.Error) {
	if width <= 0 || height <= 0 {
		return nil, errors.New("canvas dimensions must be positive").With("width", width).With("height", height).With("stack", stack.Trace().TrimRuntime())
	}
	return &Canvas{
		img: image.NewRGBA(image.Rect(0, 0, width, height)),
	}, nil
}

func (canvas *Canvas) Width() int {
	return canvas.img.Bounds().Dx()
}

func (canvas *Canvas) Height() int {
	return canvas.img.Bounds().Dy()
}

// clear resets every pixel to transparent black, the caller must hold
// the lock
func (canvas *Canvas) clear() {
	draw.Draw(canvas.img, canvas.img.Bounds(), image.Transparent, image.Point{}, draw.Src)
}

// fill paints the whole canvas a solid color, the caller must hold the lock
func (canvas *Canvas) fill(c color.RGBA) {
	draw.Draw(canvas.img, canvas.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// fillRect paints a rectangle given in fractional canvas coordinates,
// clipped to the canvas, the caller must hold the lock
func (canvas *Canvas) fillRect(x float64, y float64, w float64, h float64, c color.RGBA) {
	r := image.Rect(
		int(math.Round(x)), int(math.Round(y)),
		int(math.Round(x+w)), int(math.Round(y+h)),
	).Intersect(canvas.img.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(canvas.img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// At returns the color of a single pixel
func (canvas *Canvas) At(x int, y int) color.RGBA {
	canvas.Lock()
	defer canvas.Unlock()
	return canvas.img.RGBAAt(x, y)
}

// EncodePNG writes the current contents of the canvas as a PNG image
func (canvas *Canvas) EncodePNG(w io.Writer) (err errors.Error) {
	canvas.Lock()
	snapshot := image.NewRGBA(canvas.img.Bounds())
	copy(snapshot.Pix, canvas.img.Pix)
	canvas.Unlock()

	if errGo := png.Encode(w, snapshot); errGo != nil {
		return errors.Wrap(errGo).With("stack", stack.Trace().TrimRuntime())
	}
	return nil
}
