package tts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/arkadion/campfire/domain/providers"
)

func TestNewElevenLabsTTS_RequiresAPIKey(t *testing.T) {
	logger := zaptest.NewLogger(t)

	_, err := NewElevenLabsTTS(ElevenLabsConfig{}, logger)
	if err == nil {
		t.Error("expected error when API key is not set")
	}

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "test-api-key"}, logger)
	if err != nil {
		t.Fatalf("failed to create ElevenLabsTTS: %v", err)
	}
	if tts.voiceID != defaultVoiceID {
		t.Errorf("expected default voice ID %q, got %q", defaultVoiceID, tts.voiceID)
	}
	if tts.outputFormat != defaultOutputFormat {
		t.Errorf("expected default output format %q, got %q", defaultOutputFormat, tts.outputFormat)
	}
}

func TestValidateElevenLabsConfig_Ranges(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ElevenLabsConfig
		wantErr bool
	}{
		{"valid", ElevenLabsConfig{APIKey: "k", Stability: 0.5, Clarity: 0.75}, false},
		{"missing key", ElevenLabsConfig{}, true},
		{"stability too high", ElevenLabsConfig{APIKey: "k", Stability: 1.5}, true},
		{"clarity negative", ElevenLabsConfig{APIKey: "k", Clarity: -0.1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateElevenLabsConfig(tt.cfg)
			if tt.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestElevenLabsTTS_Synthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/text-to-speech/bard-voice") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "test-api-key" {
			t.Errorf("missing API key header")
		}
		w.Header().Set("Content-Type", "audio/pcm")
		w.Write([]byte("pcm-audio"))
	}))
	defer server.Close()

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{
		APIKey:     "test-api-key",
		APIBaseURL: server.URL,
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("failed to create ElevenLabsTTS: %v", err)
	}

	result, err := tts.Synthesize(context.Background(), "well met", providers.SynthesizeOptions{Voice: "bard-voice"})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if string(result.Audio) != "pcm-audio" {
		t.Errorf("unexpected audio bytes %q", result.Audio)
	}
	if result.SampleRate != 24000 {
		t.Errorf("expected sample rate 24000, got %d", result.SampleRate)
	}
	if result.MimeType != "audio/pcm" {
		t.Errorf("expected audio/pcm, got %q", result.MimeType)
	}
}

func TestElevenLabsTTS_EmptyText(t *testing.T) {
	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "k"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("failed to create ElevenLabsTTS: %v", err)
	}

	if _, err := tts.Synthesize(context.Background(), "   ", providers.SynthesizeOptions{}); err == nil {
		t.Error("expected error for empty text")
	}
}

func TestElevenLabsTTS_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{
		APIKey:     "test-api-key",
		APIBaseURL: server.URL,
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("failed to create ElevenLabsTTS: %v", err)
	}

	if _, err := tts.Synthesize(context.Background(), "hello", providers.SynthesizeOptions{}); err == nil {
		t.Error("expected error on upstream failure")
	}
}

func TestSampleRateForFormat(t *testing.T) {
	tests := []struct {
		format string
		want   int
	}{
		{"pcm_24000", 24000},
		{"mp3_44100_128", 44100},
		{"bogus", 0},
	}
	for _, tt := range tests {
		if got := sampleRateForFormat(tt.format); got != tt.want {
			t.Errorf("sampleRateForFormat(%q) = %d, want %d", tt.format, got, tt.want)
		}
	}
}
