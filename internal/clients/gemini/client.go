package gemini

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"PodcastStudio-admin/internal/completion"
)

const defaultModel = "gemini-1.5-flash-latest"

const transcriptionPrompt = `Transcribe this audio verbatim. Return only the spoken words as plain text paragraphs.
Do not summarize, do not add speaker labels unless they are spoken, and do not add commentary.`

// Client talks to the Gemini API for completions and audio transcription.
type Client struct {
	sdk                *genai.Client
	textModel          *genai.GenerativeModel
	jsonModel          *genai.GenerativeModel
	transcriptionModel *genai.GenerativeModel
}

// NewClient creates a Gemini client. Empty model names fall back to defaultModel.
func NewClient(ctx context.Context, apiKey string, textModelName string, transcriptionModelName string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key must not be empty")
	}
	if textModelName == "" {
		textModelName = defaultModel
		log.Printf("WARN: [Gemini Client] no text model configured, using %s\n", textModelName)
	}
	if transcriptionModelName == "" {
		transcriptionModelName = defaultModel
		log.Printf("WARN: [Gemini Client] no transcription model configured, using %s\n", transcriptionModelName)
	}

	sdk, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating Gemini GenAI SDK client: %w", err)
	}

	textModel := sdk.GenerativeModel(textModelName)
	textModel.SetTemperature(0.7)

	jsonModel := sdk.GenerativeModel(textModelName)
	jsonModel.SetTemperature(0.2)
	jsonModel.ResponseMIMEType = "application/json"

	transcriptionModel := sdk.GenerativeModel(transcriptionModelName)
	transcriptionModel.SetTemperature(0)

	log.Printf("INFO: [Gemini Client] text model '%s' and transcription model '%s' initialised.\n", textModelName, transcriptionModelName)
	return &Client{
		sdk:                sdk,
		textModel:          textModel,
		jsonModel:          jsonModel,
		transcriptionModel: transcriptionModel,
	}, nil
}

// Close releases the underlying SDK client.
func (c *Client) Close() error {
	if c.sdk != nil {
		return c.sdk.Close()
	}
	return nil
}

// GenerateText returns the model's free-text answer to prompt.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt must not be empty")
	}
	resp, err := c.textModel.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini GenerateContent (text) failed: %w", err)
	}
	return responseText(resp, "text")
}

// GenerateJSON asks for a JSON response. The returned text is cleaned but not
// guaranteed to be valid JSON; callers decode it with a fallback.
func (c *Client) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt must not be empty")
	}
	resp, err := c.jsonModel.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini GenerateContent (json) failed: %w", err)
	}
	text, err := responseText(resp, "json")
	if err != nil {
		return "", err
	}
	return completion.CleanJSON(text), nil
}

// Transcribe sends one audio chunk inline and returns the spoken text.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("audio chunk must not be empty")
	}
	if mimeType == "" {
		mimeType = "audio/mpeg"
	}
	log.Printf("INFO: [Gemini Client] Transcribe - sending %d bytes (%s)\n", len(audio), mimeType)
	resp, err := c.transcriptionModel.GenerateContent(ctx,
		genai.Text(transcriptionPrompt),
		genai.Blob{MIMEType: mimeType, Data: audio},
	)
	if err != nil {
		return "", fmt.Errorf("Gemini GenerateContent (transcription) failed: %w", err)
	}
	return responseText(resp, "transcription")
}

func responseText(resp *genai.GenerateContentResponse, kind string) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("Gemini %s response is empty (nil response or no candidates)", kind)
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		if candidate.FinishReason != genai.FinishReasonStop && candidate.FinishReason != genai.FinishReasonUnspecified {
			for _, rating := range candidate.SafetyRatings {
				log.Printf("WARN: [Gemini Client] safety rating (%s) - Category: %s, Probability: %s\n", kind, rating.Category, rating.Probability)
			}
			return "", fmt.Errorf("Gemini %s response blocked or invalid, reason: %s", kind, candidate.FinishReason.String())
		}
		return "", fmt.Errorf("Gemini %s response has no content parts (FinishReason: %s)", kind, candidate.FinishReason.String())
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		} else {
			log.Printf("WARN: [Gemini Client] unexpected part type in %s response: %T\n", kind, part)
		}
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("Gemini %s response text is empty", kind)
	}
	return text, nil
}
