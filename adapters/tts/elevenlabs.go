package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"

	"github.com/arkadion/campfire/domain/providers"
)

const (
	defaultAPIBaseURL   = "https://api.elevenlabs.io/v1"
	defaultVoiceID      = "21m00Tcm4TlvDq8ikWAM" // Rachel voice
	defaultOutputFormat = "pcm_24000"
	defaultModelID      = "eleven_multilingual_v2"
	defaultStability    = 0.5
	defaultClarity      = 0.75

	requestTimeout = 60 * time.Second
)

// ElevenLabsConfig holds configuration for the ElevenLabs adapter.
// Only APIKey is required; everything else falls back to a default.
type ElevenLabsConfig struct {
	APIKey       string  `env:"ELEVEN_LABS_API_KEY"`
	APIBaseURL   string  `env:"ELEVEN_LABS_API_BASE_URL"`
	VoiceID      string  `env:"ELEVEN_LABS_VOICE_ID"`
	ModelID      string  `env:"ELEVEN_LABS_MODEL_ID"`
	OutputFormat string  `env:"ELEVEN_LABS_OUTPUT_FORMAT"`
	Stability    float64 `env:"ELEVEN_LABS_STABILITY"`
	Clarity      float64 `env:"ELEVEN_LABS_CLARITY"`
}

// NewElevenLabsConfigFromEnv reads adapter configuration from
// environment variables.
func NewElevenLabsConfigFromEnv() (ElevenLabsConfig, error) {
	var cfg ElevenLabsConfig
	if err := env.Parse(&cfg); err != nil {
		return ElevenLabsConfig{}, fmt.Errorf("parse elevenlabs env: %w", err)
	}
	return cfg, nil
}

// ValidateElevenLabsConfig checks required fields and value ranges.
func ValidateElevenLabsConfig(cfg ElevenLabsConfig) error {
	if cfg.APIKey == "" {
		return fmt.Errorf("elevenlabs API key is required")
	}
	if cfg.Stability != 0 && (cfg.Stability < 0 || cfg.Stability > 1) {
		return fmt.Errorf("stability must be between 0 and 1, got %f", cfg.Stability)
	}
	if cfg.Clarity != 0 && (cfg.Clarity < 0 || cfg.Clarity > 1) {
		return fmt.Errorf("clarity must be between 0 and 1, got %f", cfg.Clarity)
	}
	return nil
}

// ElevenLabsTTS implements providers.TextToSpeech using the ElevenLabs
// HTTP API, returning the complete synthesized payload in one call.
type ElevenLabsTTS struct {
	apiKey       string
	apiBaseURL   string
	voiceID      string
	modelID      string
	outputFormat string
	stability    float64
	clarity      float64
	client       *http.Client
	logger       *zap.Logger
}

var _ providers.TextToSpeech = (*ElevenLabsTTS)(nil)

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed,omitempty"`
}

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

// NewElevenLabsTTS creates an ElevenLabs TTS instance, applying
// defaults for any unset optional field.
func NewElevenLabsTTS(cfg ElevenLabsConfig, logger *zap.Logger) (*ElevenLabsTTS, error) {
	if err := ValidateElevenLabsConfig(cfg); err != nil {
		return nil, err
	}

	t := &ElevenLabsTTS{
		apiKey:       cfg.APIKey,
		apiBaseURL:   cfg.APIBaseURL,
		voiceID:      cfg.VoiceID,
		modelID:      cfg.ModelID,
		outputFormat: cfg.OutputFormat,
		stability:    cfg.Stability,
		clarity:      cfg.Clarity,
		client:       &http.Client{Timeout: requestTimeout},
		logger:       logger,
	}
	if t.apiBaseURL == "" {
		t.apiBaseURL = defaultAPIBaseURL
	}
	if t.voiceID == "" {
		t.voiceID = defaultVoiceID
	}
	if t.modelID == "" {
		t.modelID = defaultModelID
	}
	if t.outputFormat == "" {
		t.outputFormat = defaultOutputFormat
	}
	if t.stability == 0 {
		t.stability = defaultStability
	}
	if t.clarity == 0 {
		t.clarity = defaultClarity
	}

	return t, nil
}

// Synthesize converts text to speech. opts.Voice overrides the
// configured voice ID and opts.Rate maps to the voice speed setting;
// the API has no volume control, so opts.Volume is ignored.
func (e *ElevenLabsTTS) Synthesize(ctx context.Context, text string, opts providers.SynthesizeOptions) (*providers.SynthesisResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	voiceID := e.voiceID
	if opts.Voice != "" {
		voiceID = opts.Voice
	}

	request := elevenLabsRequest{
		Text:    text,
		ModelID: e.modelID,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       e.stability,
			SimilarityBoost: e.clarity,
			Speed:           opts.Rate,
		},
	}
	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshal synthesis request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s", e.apiBaseURL, voiceID, e.outputFormat)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("create synthesis request: %w", err)
	}
	httpReq.Header.Set("Accept", mimeTypeForFormat(e.outputFormat))
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("elevenlabs API returned %d: %s", resp.StatusCode, string(errorBody))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read synthesis response: %w", err)
	}

	e.logger.Debug("synthesis completed",
		zap.String("voiceID", voiceID),
		zap.Int("bytes", len(audio)))

	return &providers.SynthesisResult{
		Audio:      audio,
		SampleRate: sampleRateForFormat(e.outputFormat),
		MimeType:   mimeTypeForFormat(e.outputFormat),
	}, nil
}

// sampleRateForFormat extracts the rate from ElevenLabs output format
// names such as pcm_24000 or mp3_44100_128.
func sampleRateForFormat(format string) int {
	parts := strings.Split(format, "_")
	if len(parts) < 2 {
		return 0
	}
	rate, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0
	}
	return rate
}

func mimeTypeForFormat(format string) string {
	if strings.HasPrefix(format, "pcm") {
		return "audio/pcm"
	}
	return "audio/mpeg"
}
