package api

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/arkadion/campfire/domain/providers"
)

// synthesize is a thin adapter from a text+voice request to a provider
// call. Missing text is a client error caught before any provider is
// touched; there is no broadcast side effect.
func (h *Handler) synthesize(c echo.Context) error {
	var req SynthesizeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "text is required",
		})
	}

	providerName := req.Provider
	if providerName == "" {
		providerName = h.cfg.DefaultTTSProvider
	}

	tts, err := h.registry.TTS(providerName)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "unknown_provider",
			Message: err.Error(),
		})
	}

	result, err := tts.Synthesize(c.Request().Context(), req.Text, providers.SynthesizeOptions{
		Voice:  req.Voice,
		Rate:   req.Rate,
		Volume: req.Volume,
	})
	if err != nil {
		h.logger.Error("synthesis failed",
			zap.String("provider", providerName),
			zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "provider_failure",
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, SynthesizeResponse{
		Provider:   providerName,
		SampleRate: result.SampleRate,
		MimeType:   result.MimeType,
		DataBase64: base64.StdEncoding.EncodeToString(result.Audio),
	})
}
