package main

import (
	"bytes"
	"image"
	"image/png"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

const PREVIEW_SCALE = 10

const indexHTML = `<!doctype html>
<html><head><title>matrix alerter</title></head>
<body style="background:#111;color:#ccc;font-family:monospace">
<img id="frame" src="/frame" style="image-rendering:pixelated">
<pre id="status"></pre>
<script>
setInterval(function () {
  document.getElementById("frame").src = "/frame?t=" + Date.now();
  fetch("/status").then(r => r.json()).then(s => {
    document.getElementById("status").textContent = JSON.stringify(s, null, 2);
  });
}, 500);
</script>
</body></html>`

// previewServer exposes the last swapped frame and the store snapshot.
type previewServer struct {
	matrix *Matrix
	store  *StatusStore
}

func sendPNG(c *fiber.Ctx, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to encode image")
	}
	c.Set("Content-Type", "image/png")
	c.Set("Content-Length", strconv.Itoa(buf.Len()))
	return c.Send(buf.Bytes())
}

// serveFrame renders the frame as round LEDs, scale pixels per LED.
func (s *previewServer) serveFrame(c *fiber.Ctx) error {
	frame, _ := s.matrix.Frame()
	scale := c.QueryInt("scale", PREVIEW_SCALE)
	if scale < 1 || scale > 32 {
		return c.Status(fiber.StatusBadRequest).SendString("scale must be within 1..32")
	}
	return sendPNG(c, renderLEDPreview(frame, scale))
}

// serveRawFrame sends the canvas at its native size.
func (s *previewServer) serveRawFrame(c *fiber.Ctx) error {
	frame, frames := s.matrix.Frame()
	c.Set("X-Frame-Count", strconv.FormatUint(frames, 10))
	return sendPNG(c, frame)
}

func (s *previewServer) serveStatus(c *fiber.Ctx) error {
	return c.JSON(s.store.Snapshot())
}

func indexHandler(c *fiber.Ctx) error {
	c.Type("html")
	return c.SendString(indexHTML)
}

func newPreviewApp(matrix *Matrix, store *StatusStore) *fiber.App {
	s := &previewServer{matrix: matrix, store: store}
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	// Routes
	app.Get("/", indexHandler)
	app.Get("/frame", s.serveFrame)
	app.Get("/frame.png", s.serveRawFrame)
	app.Get("/status", s.serveStatus)
	return app
}

// httpServer blocks serving the preview. Errors are logged, never fatal:
// the display keeps running without its preview.
func httpServer(app *fiber.App, listen string) {
	log.Println("Starting Fiber server on", listen)
	if err := app.Listen(listen); err != nil {
		log.Printf("preview server stopped: %v", err)
	}
}
