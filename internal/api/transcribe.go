package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/arkadion/campfire/domain/providers"
	"github.com/arkadion/campfire/internal/gateway"
)

// transcribe adapts one synchronous request carrying a complete audio
// payload into the streaming STT contract. Every final segment is
// broadcast to the campaign as a caption the moment it settles, so
// connected listeners see captions live rather than when the request
// completes.
func (h *Handler) transcribe(c echo.Context) error {
	campaignID := c.Param("id")
	if campaignID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "campaign id is required",
		})
	}

	providerName := c.QueryParam("provider")
	if providerName == "" {
		providerName = h.cfg.DefaultSTTProvider
	}

	opts := providers.TranscribeOptions{
		Language: c.QueryParam("language"),
	}
	if v := c.QueryParam("sampleRate"); v != "" {
		rate, err := strconv.Atoi(v)
		if err != nil || rate <= 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: "sampleRate must be a positive integer",
			})
		}
		opts.SampleRate = rate
	}
	if v := c.QueryParam("diarize"); v != "" {
		opts.Diarize = v == "true" || v == "1"
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, h.cfg.MaxAudioBytes+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to read audio payload",
		})
	}
	if int64(len(body)) > h.cfg.MaxAudioBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:   "payload_too_large",
			Message: "Audio payload exceeds the configured limit",
		})
	}
	if len(body) == 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Audio payload is required",
		})
	}

	stt, err := h.registry.STT(providerName)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "unknown_provider",
			Message: err.Error(),
		})
	}

	// The finite payload becomes a one-chunk producible sequence.
	audio := make(chan []byte, 1)
	audio <- body
	close(audio)

	stream, err := stt.Transcribe(c.Request().Context(), audio, opts)
	if err != nil {
		h.logger.Error("transcription failed to start",
			zap.String("provider", providerName),
			zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "provider_failure",
			Message: err.Error(),
		})
	}

	var segments []providers.TranscriptSegment
	var texts []string
	for {
		event, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// No partial result: a provider failure voids the whole
			// request even if some segments already settled.
			h.logger.Error("transcription failed mid-stream",
				zap.String("provider", providerName),
				zap.Error(err))
			return c.JSON(http.StatusBadGateway, ErrorResponse{
				Error:   "provider_failure",
				Message: err.Error(),
			})
		}
		if event.Type != providers.EventFinal {
			continue
		}

		segments = append(segments, event.Segment)
		texts = append(texts, event.Segment.Text)
		h.broadcastCaption(campaignID, event.Segment.Text)
	}

	return c.JSON(http.StatusOK, TranscribeResponse{
		Provider: providerName,
		Text:     strings.Join(texts, " "),
		Segments: segments,
	})
}

// broadcastCaption pushes one settled caption to every session in the
// campaign through the hub. The hub is a no-op until the gateway
// installs its strategy, so ingest never depends on connection-layer
// startup order.
func (h *Handler) broadcastCaption(campaignID, text string) {
	payload, err := gateway.EncodeCaption(text)
	if err != nil {
		h.logger.Error("failed to encode caption", zap.Error(err))
		return
	}
	h.hub.Broadcast(campaignID, payload)
}
