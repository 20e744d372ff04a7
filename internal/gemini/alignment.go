package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// AlignmentSegment maps a contiguous playback interval to a word pair in the
// translated and original texts. The gateway contract promises segments are
// ordered and contiguous, the first starting at 0 and the last ending at
// floor(duration*1000); the caller does not enforce this and degrades to
// no-highlight when it does not hold.
type AlignmentSegment struct {
	TranslatedWord string `json:"translatedWord"`
	OriginalWord   string `json:"originalWord"`
	StartTimeMS    int64  `json:"startTimeMs"`
	EndTimeMS      int64  `json:"endTimeMs"`
}

var alignmentSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"translatedWord": {Type: genai.TypeString},
			"originalWord":   {Type: genai.TypeString},
			"startTimeMs":    {Type: genai.TypeInteger},
			"endTimeMs":      {Type: genai.TypeInteger},
		},
		Required: []string{"translatedWord", "originalWord", "startTimeMs", "endTimeMs"},
	},
}

// GenerateAlignment requests word-level timing for spoken original-language
// audio of durationSeconds, pairing each original word with its counterpart
// in the translated text. The duration is advisory to the model and not
// independently validated.
func (c *Client) GenerateAlignment(ctx context.Context, sourceText, targetText, language string, durationSeconds float64) ([]AlignmentSegment, error) {
	prompt := fmt.Sprintf(`The following %s text was read aloud; the recording is exactly %.3f seconds long.

%s text: %s
Translation: %s

Divide the full recording into word-level time segments. Pair each %s word with the corresponding word or phrase of the translation. Segments must be contiguous: the first starts at 0 ms, each segment starts where the previous one ends, and the last ends at %d ms.`,
		language, durationSeconds,
		language, sourceText,
		targetText,
		language,
		int64(durationSeconds*1000))

	var segments []AlignmentSegment
	if err := c.generateStructured(ctx, c.proModel, prompt, alignmentSchema, &segments); err != nil {
		return nil, fmt.Errorf("alignment: %w", err)
	}
	return segments, nil
}
