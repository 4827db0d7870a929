// routes_frames.go - Handler fuer Filter-Informationen und Frames
// Enthaelt: InfoHandler, StatsHandler, FrameHandler

package server

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vsmlrt/vstrt/api"
	"github.com/vsmlrt/vstrt/trt"
	"github.com/vsmlrt/vstrt/vs"
)

// InfoHandler liefert Ausgabe-Format und Optionen
func (s *Server) InfoHandler(c *gin.Context) {
	vi := s.filter.VideoInfo()
	opts := s.filter.Options()

	resp := api.InfoResponse{
		Format:    vi.Format.String(),
		Width:     vi.Width,
		Height:    vi.Height,
		NumFrames: vi.NumFrames,
		FPSNum:    vi.FPSNum,
		FPSDen:    vi.FPSDen,
		Options: api.OptionsResponse{
			Engine:       opts.Engine,
			Pad:          opts.Pad,
			DeviceID:     opts.DeviceID,
			UseCudaGraph: opts.UseCudaGraph,
			NumStreams:   opts.NumStreams,
			Verbosity:    opts.Verbosity.String(),
			Backend:      opts.Backend,
		},
	}

	if block, ok := opts.Block.(trt.RequestedBlock); ok {
		resp.Options.BlockW = block.Width
		resp.Options.BlockH = block.Height
	}

	c.JSON(http.StatusOK, resp)
}

// StatsHandler liefert die Pool-Statistik
func (s *Server) StatsHandler(c *gin.Context) {
	stats := s.filter.Stats()
	c.JSON(http.StatusOK, api.StatsResponse{
		NumStreams:   stats.NumStreams,
		FreeSlots:    stats.FreeSlots,
		Waiting:      stats.Waiting,
		InFlight:     stats.InFlight,
		PeakInFlight: stats.PeakInFlight,
		Frames:       stats.Frames,
		Errors:       stats.Errors,
	})
}

// FrameHandler liefert Ausgabe-Frame n als PNG
func (s *Server) FrameHandler(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil || n < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid frame number " + strconv.Quote(c.Param("n"))})
		return
	}

	if frames := s.filter.VideoInfo().NumFrames; frames > 0 && n >= frames {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "frame " + strconv.Itoa(n) + " out of range"})
		return
	}

	frame, err := s.filter.GetFrame(c.Request.Context(), n)
	if err != nil {
		slog.Error("frame request failed", "id", c.GetString("request_id"), "frame", n, "error", err)

		status := http.StatusInternalServerError
		if errors.Is(err, c.Request.Context().Err()) {
			status = http.StatusServiceUnavailable
		}
		c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
		return
	}
	defer frame.Free()

	var buf bytes.Buffer
	if err := vs.EncodePNG(&buf, frame); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "image/png", buf.Bytes())
}
