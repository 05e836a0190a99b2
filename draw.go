package main

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	svg "github.com/ajstarks/svgo"
	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/llgcode/draw2d/draw2dkit"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

//---------------- Drawing Functions ----------------

// clearFrame paints the whole frame opaque black.
func clearFrame(frame *image.RGBA) {
	for i := 0; i+3 < len(frame.Pix); i += 4 {
		frame.Pix[i] = 0     // R
		frame.Pix[i+1] = 0   // G
		frame.Pix[i+2] = 0   // B
		frame.Pix[i+3] = 255 // A
	}
}

// drawLine draws a line between two points using Bresenham's algorithm.
// Points outside the frame are skipped.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, clr color.RGBA) {
	dx := abs(x1 - x0)
	dy := abs(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	bounds := img.Bounds()

	for {
		if image.Pt(x0, y0).In(bounds) {
			img.SetRGBA(x0, y0, clr)
		}

		if x0 == x1 && y0 == y1 {
			break
		}

		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// abs returns absolute value of an integer
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// adjustBrightness scales RGB by factor (0.5 halves it), keeping alpha.
func adjustBrightness(img image.Image, factor float64) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Src)

	scale := func(v uint8) uint8 {
		s := float64(v) * factor
		if s > 255 {
			return 255
		}
		return uint8(s)
	}
	for i := 0; i+3 < len(out.Pix); i += 4 {
		out.Pix[i] = scale(out.Pix[i])
		out.Pix[i+1] = scale(out.Pix[i+1])
		out.Pix[i+2] = scale(out.Pix[i+2])
	}
	return out
}

// loadImage decodes a png, jpeg, gif or svg file into an RGBA image.
func loadImage(filePath string) (*image.RGBA, error) {
	ext := strings.ToLower(filepath.Ext(filePath))

	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var img image.Image

	switch ext {
	case ".png":
		img, err = png.Decode(f)
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(f)
	case ".gif":
		img, err = gif.Decode(f)
	case ".svg":
		return rasterizeSVG(f, 0, 0)
	default:
		return nil, fmt.Errorf("unsupported image format: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filePath, err)
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba, nil
}

// rasterizeSVG renders an SVG stream. Zero target dimensions use the viewBox.
func rasterizeSVG(r io.Reader, targetWidth, targetHeight int) (*image.RGBA, error) {
	icon, err := oksvg.ReadIconStream(r)
	if err != nil {
		return nil, err
	}
	if targetWidth == 0 {
		targetWidth = int(icon.ViewBox.W)
	}
	if targetHeight == 0 {
		targetHeight = int(icon.ViewBox.H)
	}
	if targetWidth <= 0 || targetHeight <= 0 {
		return nil, fmt.Errorf("svg has no usable size")
	}

	icon.SetTarget(0, 0, float64(targetWidth), float64(targetHeight))

	rgba := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	scanner := rasterx.NewScannerGV(targetWidth, targetHeight, rgba, rgba.Bounds())
	dasher := rasterx.NewDasher(targetWidth, targetHeight, scanner)
	icon.Draw(dasher, 1.0)
	return rgba, nil
}

// placeholderIconSVG draws a stand-in for an icon whose asset is missing: a
// rounded tile in a colour derived from the name, with a ring in the middle.
func placeholderIconSVG(name string, size int) []byte {
	h := fnv.New32a()
	h.Write([]byte(name))
	sum := h.Sum32()
	fill := fmt.Sprintf("fill:#%02X%02X%02X", 64+sum&0x7f, 64+(sum>>8)&0x7f, 64+(sum>>16)&0x7f)

	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Startview(size, size, 0, 0, size, size)
	canvas.Roundrect(1, 1, size-2, size-2, size/6, size/6, fill)
	canvas.Circle(size/2, size/2, size/4, "fill:none;stroke:white;stroke-width:2")
	canvas.End()
	return buf.Bytes()
}

//---------------- Preview ----------------

// renderLEDPreview upscales a frame so each pixel becomes a round LED.
// Dark pixels are drawn as dim, unlit LEDs.
func renderLEDPreview(frame *image.RGBA, scale int) *image.RGBA {
	bounds := frame.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx()*scale, bounds.Dy()*scale))
	draw.Draw(out, out.Bounds(), &image.Uniform{MATRIX_BLACK}, image.Point{}, draw.Src)

	gc := draw2dimg.NewGraphicContext(out)
	radius := float64(scale) * 0.42
	unlit := color.RGBA{20, 20, 20, 255}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := frame.RGBAAt(x, y)
			if px.R < 4 && px.G < 4 && px.B < 4 {
				px = unlit
			}
			cx := (float64(x-bounds.Min.X) + 0.5) * float64(scale)
			cy := (float64(y-bounds.Min.Y) + 0.5) * float64(scale)

			gc.SetFillColor(px)
			gc.BeginPath()
			draw2dkit.Circle(gc, cx, cy, radius)
			gc.Fill()
		}
	}
	return out
}
