package main

import (
	"image"
	"image/color"
	"image/draw"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

const (
	MATRIX_WIDTH  = 64
	MATRIX_HEIGHT = 32
)

var (
	CLOCK_COLOUR              = color.RGBA{37, 37, 37, 255}
	MOTD_COLOUR               = color.RGBA{12, 45, 55, 255}
	AI_MOTD_COLOUR            = color.RGBA{12, 12, 80, 255}
	ALERT_COLOUR              = color.RGBA{255, 0, 0, 255}
	LOADING_COLOUR            = color.RGBA{0, 75, 0, 255}
	SLEEPING_COLOUR           = color.RGBA{37, 0, 75, 255}
	SLEEPING_UNDERLINE_COLOUR = color.RGBA{15, 0, 30, 255}
	BTC_COLOUR                = color.RGBA{10, 70, 10, 255}
	INTERNET_FAILOVER_COLOUR  = color.RGBA{50, 25, 0, 255}
	MATRIX_BLACK              = color.RGBA{0, 0, 0, 255}
)

// Display is the drawing surface the renderer talks to. Only the render
// goroutine may call it.
type Display interface {
	Width() int
	Height() int
	Clear()
	DrawLine(x0, y0, x1, y1 int, clr color.RGBA)
	// DrawText draws text with its baseline at y and returns the rendered width.
	DrawText(face font.Face, x, y int, clr color.RGBA, text string) int
	DrawImage(img image.Image, x, y int)
	Swap() error
}

// FrameSink receives every completed frame after a swap.
type FrameSink interface {
	Push(frame *image.RGBA) error
	Close() error
}

// Matrix is a double-buffered software canvas. Drawing goes to the back
// buffer; Swap publishes it as the front buffer and hands it to the sink.
type Matrix struct {
	width, height int
	back          *image.RGBA
	sink          FrameSink

	frameMutex sync.RWMutex
	front      *image.RGBA
	frames     uint64
}

// NewMatrix creates a cleared canvas. sink may be nil.
func NewMatrix(width, height int, sink FrameSink) *Matrix {
	m := &Matrix{
		width:  width,
		height: height,
		back:   image.NewRGBA(image.Rect(0, 0, width, height)),
		front:  image.NewRGBA(image.Rect(0, 0, width, height)),
		sink:   sink,
	}
	clearFrame(m.back)
	clearFrame(m.front)
	return m
}

func (m *Matrix) Width() int  { return m.width }
func (m *Matrix) Height() int { return m.height }

func (m *Matrix) Clear() {
	clearFrame(m.back)
}

func (m *Matrix) DrawLine(x0, y0, x1, y1 int, clr color.RGBA) {
	drawLine(m.back, x0, y0, x1, y1, clr)
}

func (m *Matrix) DrawText(face font.Face, x, y int, clr color.RGBA, text string) int {
	d := &font.Drawer{
		Dst:  m.back,
		Src:  image.NewUniform(clr),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
	return font.MeasureString(face, text).Round()
}

// DrawImage blits img with its top-left corner at (x, y). Parts outside the
// canvas, including negative offsets, are clipped.
func (m *Matrix) DrawImage(img image.Image, x, y int) {
	b := img.Bounds()
	rect := image.Rect(x, y, x+b.Dx(), y+b.Dy())
	draw.Draw(m.back, rect, img, b.Min, draw.Over)
}

// Swap publishes the back buffer. The back buffer keeps its content; the
// renderer clears it at the start of the next frame.
func (m *Matrix) Swap() error {
	m.frameMutex.Lock()
	copy(m.front.Pix, m.back.Pix)
	m.frames++
	m.frameMutex.Unlock()

	if m.sink == nil {
		return nil
	}
	return m.sink.Push(m.front)
}

// Frame returns a copy of the last swapped frame and the number of swaps so far.
func (m *Matrix) Frame() (*image.RGBA, uint64) {
	m.frameMutex.RLock()
	defer m.frameMutex.RUnlock()

	frame := image.NewRGBA(m.front.Bounds())
	copy(frame.Pix, m.front.Pix)
	return frame, m.frames
}

func (m *Matrix) Close() error {
	if m.sink == nil {
		return nil
	}
	return m.sink.Close()
}
