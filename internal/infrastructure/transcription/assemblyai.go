// Package transcription turns chat voice messages into text.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/AssemblyAI/assemblyai-go-sdk"
)

var ErrEmptyTranscript = errors.New("transcription: empty transcript")

// Transcriber converts recorded audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader) (string, error)
}

// AssemblyAI is the Transcriber backed by the AssemblyAI API.
type AssemblyAI struct {
	client         *assemblyai.Client
	detectLanguage bool
}

// NewAssemblyAI returns a transcriber. detectLanguage enables automatic
// language detection for multilingual sites.
func NewAssemblyAI(apiKey string, detectLanguage bool) (*AssemblyAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("ASSEMBLYAI_API_KEY is required")
	}
	return &AssemblyAI{client: assemblyai.NewClient(apiKey), detectLanguage: detectLanguage}, nil
}

// Transcribe uploads audio and waits for the finished transcript.
func (a *AssemblyAI) Transcribe(ctx context.Context, audio io.Reader) (string, error) {
	var params *assemblyai.TranscriptOptionalParams
	if a.detectLanguage {
		params = &assemblyai.TranscriptOptionalParams{LanguageDetection: assemblyai.Bool(true)}
	}

	transcript, err := a.client.Transcripts.TranscribeFromReader(ctx, audio, params)
	if err != nil {
		return "", fmt.Errorf("assemblyai transcription failed: %w", err)
	}
	if transcript.Error != nil && *transcript.Error != "" {
		return "", fmt.Errorf("assemblyai transcription failed: %s", *transcript.Error)
	}
	if transcript.Text == nil || strings.TrimSpace(*transcript.Text) == "" {
		return "", ErrEmptyTranscript
	}
	return strings.TrimSpace(*transcript.Text), nil
}
