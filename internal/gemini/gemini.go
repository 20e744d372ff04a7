// Package gemini wraps the Google genai SDK behind the four operations the
// application needs: streamed passage text, structured JSON lookups, speech
// synthesis, and word-timing alignment.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/charmbracelet/log"
	"google.golang.org/genai"
)

// Sentinel errors.
var (
	// ErrMissingAPIKey indicates no credential was configured. Fatal to
	// every gateway call; the UI prompts the user for a key.
	ErrMissingAPIKey = errors.New("gemini: missing API key")

	// ErrNoAudioData indicates a speech response carried no audio payload.
	ErrNoAudioData = errors.New("no audio data received")
)

// Default model selection. Alignment runs on the higher-capability variant
// because timing estimation is the one task the flash model gets wrong.
const (
	DefaultTextModel   = "gemini-2.5-flash"
	DefaultSpeechModel = "gemini-2.5-flash-preview-tts"
	DefaultProModel    = "gemini-2.5-pro"

	// DefaultVoice is the prebuilt voice used for pronunciation audio.
	DefaultVoice = "Kore"
)

// Client issues requests against the Gemini API.
type Client struct {
	client *genai.Client

	textModel   string
	speechModel string
	proModel    string
}

// Option configures a Client.
type Option func(*Client)

// WithTextModel overrides the text/structured model.
func WithTextModel(model string) Option {
	return func(c *Client) { c.textModel = model }
}

// WithSpeechModel overrides the speech synthesis model.
func WithSpeechModel(model string) Option {
	return func(c *Client) { c.speechModel = model }
}

// WithProModel overrides the alignment model.
func WithProModel(model string) Option {
	return func(c *Client) { c.proModel = model }
}

// New creates a gateway client. Returns ErrMissingAPIKey when apiKey is
// empty.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	c := &Client{
		client:      client,
		textModel:   DefaultTextModel,
		speechModel: DefaultSpeechModel,
		proModel:    DefaultProModel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// StreamText issues a text-generation prompt and yields response chunks as
// they arrive. The sequence is finite and not restartable; callers
// accumulate chunks into the full text.
func (c *Client) StreamText(ctx context.Context, prompt string) iter.Seq2[string, error] {
	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}}

	return func(yield func(string, error) bool) {
		for resp, err := range c.client.Models.GenerateContentStream(ctx, c.textModel, contents, nil) {
			if err != nil {
				yield("", fmt.Errorf("gemini stream: %w", err))
				return
			}
			if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
				continue
			}
			for _, part := range resp.Candidates[0].Content.Parts {
				if part.Text == "" {
					continue
				}
				if !yield(part.Text, nil) {
					return
				}
			}
		}
	}
}

// GenerateStructured issues a single-shot prompt constrained to the given
// response schema and unmarshals the JSON reply into out. The reply may be
// fenced in a markdown code block; fences are stripped and slightly
// malformed JSON is repaired before unmarshalling. JSON that survives
// neither is a hard failure.
func (c *Client) GenerateStructured(ctx context.Context, prompt string, schema *genai.Schema, out any) error {
	return c.generateStructured(ctx, c.textModel, prompt, schema, out)
}

func (c *Client) generateStructured(ctx context.Context, model, prompt string, schema *genai.Schema, out any) error {
	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}}
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return fmt.Errorf("gemini generate: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return fmt.Errorf("gemini generate: empty response")
	}

	if err := unmarshalModelJSON(text, out); err != nil {
		return fmt.Errorf("gemini generate: malformed JSON response: %w", err)
	}
	return nil
}

// GenerateSpeech synthesizes pronunciation audio for text using the given
// prebuilt voice and returns raw PCM bytes (24kHz mono 16-bit LE).
func (c *Client) GenerateSpeech(ctx context.Context, text, voice string) ([]byte, error) {
	if voice == "" {
		voice = DefaultVoice
	}
	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: text}},
	}}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.speechModel, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini speech: %w", err)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				log.Debug("Speech synthesized",
					"bytes", len(part.InlineData.Data),
					"mime", part.InlineData.MIMEType)
				return part.InlineData.Data, nil
			}
		}
	}
	return nil, ErrNoAudioData
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var out string
	for _, part := range resp.Candidates[0].Content.Parts {
		out += part.Text
	}
	return out
}
