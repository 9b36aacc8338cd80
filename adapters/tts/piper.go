package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"

	"github.com/arkadion/campfire/domain/providers"
)

const (
	defaultPiperSampleRate = 22050
	piperRequestTimeout    = 30 * time.Second
)

// PiperConfig holds configuration for a wyoming-piper HTTP endpoint.
type PiperConfig struct {
	BaseURL    string `env:"PIPER_BASE_URL" envDefault:"http://localhost:5000"`
	Voice      string `env:"PIPER_VOICE"`
	SampleRate int    `env:"PIPER_SAMPLE_RATE" envDefault:"22050"`
}

// NewPiperConfigFromEnv reads adapter configuration from environment
// variables.
func NewPiperConfigFromEnv() (PiperConfig, error) {
	var cfg PiperConfig
	if err := env.Parse(&cfg); err != nil {
		return PiperConfig{}, fmt.Errorf("parse piper env: %w", err)
	}
	return cfg, nil
}

// PiperTTS implements providers.TextToSpeech against a self-hosted
// rhasspy/wyoming-piper server, which streams a WAV body from
// GET /api/text-to-speech.
type PiperTTS struct {
	baseURL    string
	voice      string
	sampleRate int
	client     *http.Client
	logger     *zap.Logger
}

var _ providers.TextToSpeech = (*PiperTTS)(nil)

// NewPiperTTS creates a Piper TTS instance.
func NewPiperTTS(cfg PiperConfig, logger *zap.Logger) (*PiperTTS, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("piper base URL is required")
	}
	sampleRate := cfg.SampleRate
	if sampleRate == 0 {
		sampleRate = defaultPiperSampleRate
	}
	return &PiperTTS{
		baseURL:    cfg.BaseURL,
		voice:      cfg.Voice,
		sampleRate: sampleRate,
		client:     &http.Client{Timeout: piperRequestTimeout},
		logger:     logger,
	}, nil
}

// Synthesize converts text to speech. opts.Voice overrides the
// configured voice; Piper has no rate or volume knobs over HTTP, so
// those options are ignored.
func (p *PiperTTS) Synthesize(ctx context.Context, text string, opts providers.SynthesizeOptions) (*providers.SynthesisResult, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	voice := p.voice
	if opts.Voice != "" {
		voice = opts.Voice
	}

	u, err := url.Parse(p.baseURL + "/api/text-to-speech")
	if err != nil {
		return nil, fmt.Errorf("parse piper URL: %w", err)
	}
	q := u.Query()
	q.Set("text", text)
	if voice != "" {
		q.Set("voice", voice)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create piper request: %w", err)
	}
	req.Header.Set("Accept", "audio/wav")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute piper request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("piper returned %d: %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read piper response: %w", err)
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "audio/wav"
	}

	p.logger.Debug("piper synthesis completed",
		zap.String("voice", voice),
		zap.Int("bytes", len(audio)))

	return &providers.SynthesisResult{
		Audio:      audio,
		SampleRate: p.sampleRate,
		MimeType:   mimeType,
	}, nil
}
