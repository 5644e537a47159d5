package web

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/valyala/fasthttp"

	"github.com/teslashibe/go-camhttpd/pkg/camera"
	"github.com/teslashibe/go-camhttpd/pkg/hub"
	"github.com/teslashibe/go-camhttpd/pkg/mjpeg"
)

const wsWriteWait = 10 * time.Second

// Status is the body of /api/status and the /ws/status feed.
type Status struct {
	Camera        string              `json:"camera"`
	Uptime        string              `json:"uptime"`
	UptimeSeconds float64             `json:"uptime_seconds"`
	Settings      camera.Settings     `json:"settings"`
	Stream        mjpeg.StatsSnapshot `json:"stream"`
	FramesHeld    *int                `json:"frames_held,omitempty"`
	StatusClients int                 `json:"status_clients"`
}

// Status returns a snapshot of the server state.
func (s *Server) Status() Status {
	up := time.Since(s.started)
	st := Status{
		Camera:        s.cameraName,
		Uptime:        up.Round(time.Second).String(),
		UptimeSeconds: up.Seconds(),
		Settings:      s.settings.Settings(),
		Stream:        s.streamer.Stats().Snapshot(),
		StatusClients: s.statusHub.ClientCount(),
	}
	if o, ok := s.streamer.Camera().(interface{ Outstanding() int }); ok {
		n := o.Outstanding()
		st.FramesHeld = &n
	}
	return st
}

func (s *Server) statusMessage() (hub.Message, error) {
	data, err := json.Marshal(s.Status())
	if err != nil {
		return hub.Message{}, err
	}
	return hub.NewJSONMessage(data), nil
}

// handleIndex serves the embedded viewer page.
func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	return c.Send(indexHTML)
}

// handleJPG captures one still. A capture or transcode failure is a 500.
func (s *Server) handleJPG(c *fiber.Ctx) error {
	err := s.streamer.Capture(c.UserContext(), func(jpg []byte) error {
		// SetBody copies; the frame goes back to the driver right after.
		c.Response().SetBody(jpg)
		return nil
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set(fiber.HeaderContentDisposition, "inline; filename=capture.jpg")
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	return nil
}

// handleStream serves multipart/x-mixed-replace until the client leaves.
func (s *Server) handleStream(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, mjpeg.ContentType)
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	c.Set("X-Framerate", strconv.Itoa(s.streamer.Framerate()))

	c.Context().SetBodyStreamWriter(s.multipartWriter(c.IP()))
	return nil
}

// multipartWriter returns the body writer for /stream. It runs after the
// handler has returned, when the fiber.Ctx is no longer valid, so it only
// closes over server state.
func (s *Server) multipartWriter(remote string) fasthttp.StreamWriter {
	return func(w *bufio.Writer) {
		sink := mjpeg.NewMultipartWriter(mjpeg.NewFlushingChunkWriter(w))
		err := s.streamer.Stream(s.ctx, sink)
		s.logger.Debug("mjpeg stream ended", "remote", remote, "error", err)
	}
}

// handleStreamWS sends one binary message per JPEG frame.
func (s *Server) handleStreamWS(c *websocket.Conn) {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	// Reading is how a closed socket is noticed.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		defer cancel()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	sink := mjpeg.SinkFunc(func(jpg []byte) error {
		c.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return c.WriteMessage(websocket.BinaryMessage, jpg)
	})
	err := s.streamer.Stream(ctx, sink)
	s.logger.Debug("websocket stream ended", "error", err)

	// The conn is recycled once this handler returns.
	c.Close()
	<-readerDone
}

// handleStatusWS subscribes the socket to the status feed.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	client := hub.NewClient(s.statusHub, c)
	if client == nil {
		return
	}
	client.Run()
}

// handleStatus returns counters, settings and uptime.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.Status())
}

// handleGetCamera returns the current camera settings.
func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	return c.JSON(s.settings.Settings())
}

// handleSetCamera applies a partial update or preset.
func (s *Server) handleSetCamera(c *fiber.Ctx) error {
	var params map[string]interface{}
	if err := json.Unmarshal(c.Body(), &params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body: " + err.Error()})
	}

	if err := s.settings.Update(params); err != nil {
		code := fiber.StatusInternalServerError
		if errors.Is(err, camera.ErrInvalidSettings) {
			code = fiber.StatusBadRequest
		}
		s.logger.Warn("camera settings rejected", "error", err)
		return c.Status(code).JSON(fiber.Map{"error": err.Error()})
	}

	settings := s.settings.Settings()
	s.logger.Info("camera settings updated",
		"frame_size", settings.FrameSize,
		"pixel_format", settings.PixelFormat,
		"quality", settings.Quality,
		"framerate", settings.Framerate)
	return c.JSON(settings)
}

// handlePresets lists preset names.
func (s *Server) handlePresets(c *fiber.Ctx) error {
	return c.JSON(camera.PresetNames())
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}
