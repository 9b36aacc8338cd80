package api

import (
	"time"

	"github.com/arkadion/campfire/domain/providers"
)

// TranscribeResponse is the result of one audio-ingest request: the
// space-joined text of every final segment, plus the segments in
// emission order.
type TranscribeResponse struct {
	Provider string                        `json:"provider"`
	Text     string                        `json:"text"`
	Segments []providers.TranscriptSegment `json:"segments"`
}

// SynthesizeRequest selects the text, voice parameters, and provider
// for one synthesis call.
type SynthesizeRequest struct {
	Text     string  `json:"text"`
	Voice    string  `json:"voice,omitempty"`
	Rate     float64 `json:"rate,omitempty"`
	Volume   float64 `json:"volume,omitempty"`
	Provider string  `json:"provider,omitempty"`
}

// SynthesizeResponse carries the encoded audio and format metadata.
type SynthesizeResponse struct {
	Provider   string `json:"provider"`
	SampleRate int    `json:"sampleRate"`
	MimeType   string `json:"mimeType"`
	DataBase64 string `json:"dataBase64"`
}

// TokenRequest asks for a participant token.
type TokenRequest struct {
	ParticipantID string `json:"participantId"`
}

// TokenResponse carries a minted participant token.
type TokenResponse struct {
	Token         string    `json:"token"`
	ExpiresAt     time.Time `json:"expiresAt"`
	ParticipantID string    `json:"participantId"`
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
