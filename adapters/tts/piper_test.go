package tts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/arkadion/campfire/domain/providers"
)

func TestPiperTTS_Synthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/text-to-speech" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("text"); got != "well met" {
			t.Errorf("expected text query, got %q", got)
		}
		if got := r.URL.Query().Get("voice"); got != "en_US-ryan" {
			t.Errorf("expected voice query, got %q", got)
		}
		w.Header().Set("Content-Type", "audio/wav")
		w.Write([]byte("wav-audio"))
	}))
	defer server.Close()

	tts, err := NewPiperTTS(PiperConfig{BaseURL: server.URL, SampleRate: 22050}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("failed to create PiperTTS: %v", err)
	}

	result, err := tts.Synthesize(context.Background(), "well met", providers.SynthesizeOptions{Voice: "en_US-ryan"})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if string(result.Audio) != "wav-audio" {
		t.Errorf("unexpected audio bytes %q", result.Audio)
	}
	if result.SampleRate != 22050 {
		t.Errorf("expected sample rate 22050, got %d", result.SampleRate)
	}
	if result.MimeType != "audio/wav" {
		t.Errorf("expected audio/wav, got %q", result.MimeType)
	}
}

func TestPiperTTS_EmptyText(t *testing.T) {
	tts, err := NewPiperTTS(PiperConfig{BaseURL: "http://localhost:5000"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("failed to create PiperTTS: %v", err)
	}

	if _, err := tts.Synthesize(context.Background(), "", providers.SynthesizeOptions{}); err == nil {
		t.Error("expected error for empty text")
	}
}

func TestPiperTTS_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "voice not found", http.StatusNotFound)
	}))
	defer server.Close()

	tts, err := NewPiperTTS(PiperConfig{BaseURL: server.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("failed to create PiperTTS: %v", err)
	}

	if _, err := tts.Synthesize(context.Background(), "hello", providers.SynthesizeOptions{}); err == nil {
		t.Error("expected error on upstream failure")
	}
}

func TestNewPiperTTS_RequiresBaseURL(t *testing.T) {
	if _, err := NewPiperTTS(PiperConfig{}, zaptest.NewLogger(t)); err == nil {
		t.Error("expected error when base URL is empty")
	}
}
