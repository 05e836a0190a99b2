package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestClearFrame(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.SetRGBA(1, 1, color.RGBA{255, 255, 255, 255})

	clearFrame(img)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if got := img.RGBAAt(x, y); got != MATRIX_BLACK {
				t.Fatalf("pixel (%d,%d) = %v; want opaque black", x, y, got)
			}
		}
	}
}

func TestDrawLine(t *testing.T) {
	red := color.RGBA{255, 0, 0, 255}

	t.Run("horizontal", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 10, 10))
		drawLine(img, 2, 3, 6, 3, red)
		for x := 2; x <= 6; x++ {
			if img.RGBAAt(x, 3) != red {
				t.Errorf("pixel (%d,3) not set", x)
			}
		}
		if img.RGBAAt(7, 3) == red || img.RGBAAt(1, 3) == red {
			t.Error("line drawn past its end points")
		}
	})

	t.Run("diagonal", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 10, 10))
		drawLine(img, 0, 0, 4, 4, red)
		for i := 0; i <= 4; i++ {
			if img.RGBAAt(i, i) != red {
				t.Errorf("pixel (%d,%d) not set", i, i)
			}
		}
	})

	t.Run("clipped", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 10, 10))
		// must not panic
		drawLine(img, -5, 2, 20, 2, red)
		if img.RGBAAt(0, 2) != red || img.RGBAAt(9, 2) != red {
			t.Error("visible part of a clipped line not drawn")
		}
	})
}

func TestAbs(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{5, 5},
		{-5, 5},
		{0, 0},
	}
	for _, tt := range tests {
		if got := abs(tt.in); got != tt.want {
			t.Errorf("abs(%d) = %d; want %d", tt.in, got, tt.want)
		}
	}
}

func TestAdjustBrightness(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{200, 100, 50, 255})
	img.SetRGBA(1, 0, color.RGBA{200, 200, 200, 128})

	tests := []struct {
		name   string
		factor float64
		want   color.RGBA
	}{
		{"half", 0.5, color.RGBA{100, 50, 25, 255}},
		{"unchanged", 1, color.RGBA{200, 100, 50, 255}},
		{"off", 0, color.RGBA{0, 0, 0, 255}},
		{"saturates", 2, color.RGBA{255, 200, 100, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := adjustBrightness(img, tt.factor)
			if got := out.RGBAAt(0, 0); got != tt.want {
				t.Errorf("pixel = %v; want %v", got, tt.want)
			}
			if a := out.RGBAAt(1, 0).A; a != 128 {
				t.Errorf("alpha = %d; want 128", a)
			}
		})
	}

	if img.RGBAAt(0, 0).R != 200 {
		t.Error("adjustBrightness modified its input")
	}
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()

	if _, err := loadImage(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("loadImage should fail for a missing file")
	}

	bogus := filepath.Join(dir, "icon.bmp")
	if err := os.WriteFile(bogus, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadImage(bogus); err == nil {
		t.Error("loadImage should fail for an unsupported format")
	}

	broken := filepath.Join(dir, "broken.png")
	if err := os.WriteFile(broken, []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadImage(broken); err == nil {
		t.Error("loadImage should fail for a corrupt png")
	}

	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.SetRGBA(2, 1, color.RGBA{1, 2, 3, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}
	good := filepath.Join(dir, "good.png")
	if err := os.WriteFile(good, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	img, err := loadImage(good)
	if err != nil {
		t.Fatalf("loadImage(png) error = %v", err)
	}
	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
		t.Errorf("bounds = %v; want 3x2", img.Bounds())
	}
	if got := img.RGBAAt(2, 1); got != (color.RGBA{1, 2, 3, 255}) {
		t.Errorf("pixel = %v", got)
	}
}

func TestPlaceholderIcon(t *testing.T) {
	data := placeholderIconSVG("pikachu", PLACEHOLDER_ICON_SIZE)
	if !bytes.Contains(data, []byte("<svg")) {
		t.Fatalf("placeholder is not svg: %s", data)
	}

	img, err := rasterizeSVG(bytes.NewReader(data), 0, 0)
	if err != nil {
		t.Fatalf("rasterizeSVG() error = %v", err)
	}
	if b := img.Bounds(); b.Dx() != PLACEHOLDER_ICON_SIZE || b.Dy() != PLACEHOLDER_ICON_SIZE {
		t.Errorf("placeholder size = %v", b)
	}

	center := img.RGBAAt(PLACEHOLDER_ICON_SIZE/2, PLACEHOLDER_ICON_SIZE/2)
	if center.A == 0 {
		t.Error("placeholder tile not filled")
	}

	if bytes.Equal(data, placeholderIconSVG("metroid", PLACEHOLDER_ICON_SIZE)) {
		t.Error("different names should give different placeholders")
	}
}

func TestRasterizeSVGErrors(t *testing.T) {
	if _, err := rasterizeSVG(bytes.NewReader([]byte("garbage")), 0, 0); err == nil {
		t.Error("rasterizeSVG should fail on invalid input")
	}
}

func TestRenderLEDPreview(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 4, 2))
	clearFrame(frame)
	lit := color.RGBA{200, 0, 0, 255}
	frame.SetRGBA(1, 0, lit)

	out := renderLEDPreview(frame, 10)
	if b := out.Bounds(); b.Dx() != 40 || b.Dy() != 20 {
		t.Fatalf("preview size = %v; want 40x20", b)
	}

	// centre of the lit LED
	if got := out.RGBAAt(15, 5); got.R < 150 || got.G != 0 {
		t.Errorf("lit LED centre = %v", got)
	}
	// centre of an unlit LED is dim grey, not black
	if got := out.RGBAAt(5, 5); got.R == 0 || got.R > 40 {
		t.Errorf("unlit LED centre = %v", got)
	}
	// corner between LEDs stays background
	if got := out.RGBAAt(0, 0); got != MATRIX_BLACK {
		t.Errorf("gap pixel = %v", got)
	}
}
