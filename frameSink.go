package main

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// SPI_CHUNK_BYTES keeps every transfer under common spidev buffer limits.
const SPI_CHUNK_BYTES = 4096

// newFrameSink builds the sink for display.backend. "image" has no sink:
// frames only live in memory and on the preview server.
func newFrameSink(cfg DisplayConfig) (FrameSink, error) {
	switch cfg.Backend {
	case "image":
		return nil, nil
	case "term":
		return newTermSink(os.Stdout), nil
	case "spi":
		s, err := newSPISink(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown display backend %q", cfg.Backend)
	}
}

//---------------- SPI ----------------

// spiSink streams each frame as row-major RGB888 to a matrix driver board on
// an SPI bus, then pulses the optional latch pin so the board flips buffers.
type spiSink struct {
	port  spi.PortCloser
	conn  spi.Conn
	latch gpio.PinIO
	buf   []byte
}

func newSPISink(cfg DisplayConfig) (*spiSink, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.SPIPort, err)
	}

	conn, err := port.Connect(physic.Frequency(cfg.SPIKHz)*physic.KiloHertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("connect %s: %w", cfg.SPIPort, err)
	}

	s := &spiSink{
		port: port,
		conn: conn,
		buf:  make([]byte, cfg.Width*cfg.Height*3),
	}

	if cfg.LatchPin != "" {
		s.latch = gpioreg.ByName(cfg.LatchPin)
		if s.latch == nil {
			port.Close()
			return nil, fmt.Errorf("latch pin %s not found", cfg.LatchPin)
		}
		if err := s.latch.Out(gpio.Low); err != nil {
			port.Close()
			return nil, fmt.Errorf("latch pin %s: %w", cfg.LatchPin, err)
		}
	}
	return s, nil
}

// packRGB888 flattens an RGBA frame into buf, dropping alpha.
func packRGB888(frame *image.RGBA, buf []byte) []byte {
	bounds := frame.Bounds()
	need := bounds.Dx() * bounds.Dy() * 3
	if cap(buf) < need {
		buf = make([]byte, need)
	}
	buf = buf[:need]

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := frame.RGBAAt(x, y)
			buf[i], buf[i+1], buf[i+2] = px.R, px.G, px.B
			i += 3
		}
	}
	return buf
}

func (s *spiSink) Push(frame *image.RGBA) error {
	s.buf = packRGB888(frame, s.buf)

	for off := 0; off < len(s.buf); off += SPI_CHUNK_BYTES {
		end := off + SPI_CHUNK_BYTES
		if end > len(s.buf) {
			end = len(s.buf)
		}
		if err := s.conn.Tx(s.buf[off:end], nil); err != nil {
			return fmt.Errorf("spi tx: %w", err)
		}
	}

	if s.latch != nil {
		if err := s.latch.Out(gpio.High); err != nil {
			return err
		}
		return s.latch.Out(gpio.Low)
	}
	return nil
}

func (s *spiSink) Close() error {
	return s.port.Close()
}

//---------------- Terminal ----------------

// termSink draws frames in a terminal, two pixel rows per text row using the
// upper half block: foreground is the top pixel, background the bottom one.
type termSink struct {
	w        io.Writer
	renderer *lipgloss.Renderer
	styles   map[[2]color.RGBA]lipgloss.Style
	started  bool
}

func newTermSink(w io.Writer) *termSink {
	return &termSink{
		w:        w,
		renderer: lipgloss.NewRenderer(w),
		styles:   make(map[[2]color.RGBA]lipgloss.Style),
	}
}

func hexColour(c color.RGBA) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B))
}

func (t *termSink) style(top, bottom color.RGBA) lipgloss.Style {
	key := [2]color.RGBA{top, bottom}
	if st, ok := t.styles[key]; ok {
		return st
	}
	st := t.renderer.NewStyle().Foreground(hexColour(top)).Background(hexColour(bottom))
	t.styles[key] = st
	return st
}

func (t *termSink) Push(frame *image.RGBA) error {
	var b strings.Builder
	if !t.started {
		b.WriteString("\x1b[2J")
		t.started = true
	}
	b.WriteString("\x1b[H")

	bounds := frame.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y += 2 {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			top := frame.RGBAAt(x, y)
			bottom := MATRIX_BLACK
			if y+1 < bounds.Max.Y {
				bottom = frame.RGBAAt(x, y+1)
			}
			b.WriteString(t.style(top, bottom).Render("▀"))
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(t.w, b.String())
	return err
}

func (t *termSink) Close() error {
	return nil
}
