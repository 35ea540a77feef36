package overlay

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/lehigh-university-libraries/textframe/pkg/geometry"
	"github.com/lehigh-university-libraries/textframe/pkg/textinfo"
)

// DefaultStroke is the box color used when Options.Stroke is empty
const DefaultStroke = "#ff0000"

// Options controls how boxes are rendered
type Options struct {
	// Container letterboxes the image into this size; zero keeps the native size
	Container geometry.Size
	// Stroke is a hex color, "#rrggbb"
	Stroke string
	// Width is the stroke width in pixels
	Width int
	// Labels draws each record's text above its box
	Labels bool
	// Background fills the letterbox bars, defaulting to black
	Background color.Color
}

// Render draws every record's frame on top of img. The frames are in image
// pixels; they go through the same placement as the image itself.
func Render(img image.Image, infos []textinfo.TextInfo, opts Options) (*image.NRGBA, geometry.Fit, error) {
	if img == nil {
		return nil, geometry.Fit{}, fmt.Errorf("no image to render")
	}

	stroke, err := parseStroke(opts.Stroke)
	if err != nil {
		return nil, geometry.Fit{}, err
	}
	width := opts.Width
	if width <= 0 {
		width = 2
	}

	size := geometry.SizeOf(img.Bounds())
	fit := geometry.Identity(size)
	var canvas *image.NRGBA

	if opts.Container.Width > 0 || opts.Container.Height > 0 {
		fit, err = geometry.AspectFit(opts.Container, size)
		if err != nil {
			return nil, geometry.Fit{}, fmt.Errorf("invalid container: %w", err)
		}

		bg := opts.Background
		if bg == nil {
			bg = color.Black
		}
		displayed := fit.Displayed().ToImageRect()
		canvas = imaging.New(int(opts.Container.Width+0.5), int(opts.Container.Height+0.5), bg)
		scaled := imaging.Resize(img, displayed.Dx(), displayed.Dy(), imaging.Lanczos)
		canvas = imaging.Paste(canvas, scaled, displayed.Min)
	} else {
		canvas = imaging.Clone(img)
	}

	for _, info := range infos {
		r := fit.Apply(info.Frame).ToImageRect()
		strokeRect(canvas, r, width, stroke)
		if opts.Labels {
			drawLabel(canvas, r, info.Text, stroke)
		}
	}

	return canvas, fit, nil
}

// Encode writes img as PNG or JPEG
func Encode(w io.Writer, img image.Image, format string) error {
	var f imaging.Format
	switch strings.ToLower(format) {
	case "", "png":
		f = imaging.PNG
	case "jpg", "jpeg":
		f = imaging.JPEG
	default:
		return fmt.Errorf("unsupported overlay format %q", format)
	}
	if err := imaging.Encode(w, img, f); err != nil {
		return fmt.Errorf("failed to encode overlay: %w", err)
	}
	return nil
}

func parseStroke(hex string) (color.NRGBA, error) {
	if hex == "" {
		hex = DefaultStroke
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid stroke color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// strokeRect draws the outline of r inward, clipped to the canvas
func strokeRect(img *image.NRGBA, r image.Rectangle, width int, c color.NRGBA) {
	bounds := img.Bounds()
	for i := 0; i < width; i++ {
		inner := image.Rect(r.Min.X+i, r.Min.Y+i, r.Max.X-i, r.Max.Y-i)
		if inner.Empty() {
			return
		}
		for x := inner.Min.X; x < inner.Max.X; x++ {
			setClipped(img, bounds, x, inner.Min.Y, c)
			setClipped(img, bounds, x, inner.Max.Y-1, c)
		}
		for y := inner.Min.Y; y < inner.Max.Y; y++ {
			setClipped(img, bounds, inner.Min.X, y, c)
			setClipped(img, bounds, inner.Max.X-1, y, c)
		}
	}
}

func setClipped(img *image.NRGBA, bounds image.Rectangle, x, y int, c color.NRGBA) {
	if image.Pt(x, y).In(bounds) {
		img.SetNRGBA(x, y, c)
	}
}

// drawLabel writes text just above r, or inside it when r touches the top edge
func drawLabel(img *image.NRGBA, r image.Rectangle, text string, c color.NRGBA) {
	face := basicfont.Face7x13
	y := r.Min.Y - 3
	if y < face.Ascent {
		y = r.Min.Y + face.Ascent + 1
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(r.Min.X), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
