package passage

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"google.golang.org/genai"

	"github.com/selahapp/selah/internal/cache"
)

// Gateway is the slice of the AI client the passage service uses.
type Gateway interface {
	StreamText(ctx context.Context, prompt string) iter.Seq2[string, error]
	GenerateStructured(ctx context.Context, prompt string, schema *genai.Schema, out any) error
}

// Service fetches passages read-through the session cache. Repeat
// navigation to a chapter never re-issues a network call.
type Service struct {
	gw       Gateway
	cache    *cache.Session
	language string
}

// NewService creates a passage service translating into the given target
// language.
func NewService(gw Gateway, c *cache.Session, language string) *Service {
	if language == "" {
		language = "English"
	}
	return &Service{gw: gw, cache: c, language: language}
}

func passageKey(book string, chapter int) string {
	return fmt.Sprintf("passage:%s:%d", book, chapter)
}

func originalKey(book string, chapter int) string {
	return fmt.Sprintf("original-passage:%s:%d", book, chapter)
}

// Passage returns the full translated chapter text, fetching on a cache
// miss. Failed fetches are not cached.
func (s *Service) Passage(ctx context.Context, book string, chapter int) (string, error) {
	value, err := s.cache.GetOrFetch(passageKey(book, chapter), func() ([]byte, error) {
		text, err := s.fetchPassage(ctx, book, chapter, nil)
		if err != nil {
			return nil, err
		}
		return []byte(text), nil
	})
	if err != nil {
		return "", err
	}
	return string(value), nil
}

// StreamPassage streams the translated chapter. On a cache hit the full
// cached text is yielded as a single chunk; on a miss chunks are yielded as
// they arrive from the model and the accumulated result is cached once the
// stream finishes cleanly.
func (s *Service) StreamPassage(ctx context.Context, book string, chapter int) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if cached, ok := s.cache.Get(passageKey(book, chapter)); ok {
			yield(string(cached), nil)
			return
		}

		text, err := s.fetchPassage(ctx, book, chapter, yield)
		if err != nil {
			yield("", err)
			return
		}
		s.cache.Put(passageKey(book, chapter), []byte(text))
	}
}

// fetchPassage accumulates the streamed translation. When onChunk is
// non-nil, every chunk is forwarded to it; a false return abandons the
// stream without caching.
func (s *Service) fetchPassage(ctx context.Context, book string, chapter int, onChunk func(string, error) bool) (string, error) {
	var sb strings.Builder
	for chunk, err := range s.gw.StreamText(ctx, translationPrompt(book, chapter, s.language)) {
		if err != nil {
			return "", fmt.Errorf("passage %s %d: %w", book, chapter, err)
		}
		sb.WriteString(chunk)
		if onChunk != nil && !onChunk(chunk, nil) {
			return "", fmt.Errorf("passage %s %d: stream abandoned", book, chapter)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("passage %s %d: empty response", book, chapter)
	}
	return sb.String(), nil
}

// originalVerse is the wire shape of one original-language verse.
type originalVerse struct {
	Verse string `json:"verse"`
	Text  string `json:"text"`
}

var originalSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"verse": {Type: genai.TypeString},
			"text":  {Type: genai.TypeString},
		},
		Required: []string{"verse", "text"},
	},
}

// Original returns the original-language text of the chapter keyed by verse
// number. Fetched with a single structured call and cached; immutable once
// fetched.
func (s *Service) Original(ctx context.Context, book string, chapter int, language string) (map[string]string, error) {
	value, err := s.cache.GetOrFetch(originalKey(book, chapter), func() ([]byte, error) {
		var verses []originalVerse
		err := s.gw.GenerateStructured(ctx, originalPrompt(book, chapter, language), originalSchema, &verses)
		if err != nil {
			return nil, fmt.Errorf("original %s %d: %w", book, chapter, err)
		}
		return json.Marshal(verses)
	})
	if err != nil {
		return nil, err
	}

	var verses []originalVerse
	if err := json.Unmarshal(value, &verses); err != nil {
		return nil, fmt.Errorf("original %s %d: corrupt cache entry: %w", book, chapter, err)
	}
	out := make(map[string]string, len(verses))
	for _, v := range verses {
		out[v.Verse] = v.Text
	}
	return out, nil
}

// WordStudy is the grammatical analysis of a single original-language word.
type WordStudy struct {
	Word         string `json:"word"`
	Lemma        string `json:"lemma"`
	PartOfSpeech string `json:"partOfSpeech"`
	Parsing      string `json:"parsing"`
	Gloss        string `json:"gloss"`
	Usage        string `json:"usage"`
}

var wordStudySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"word":         {Type: genai.TypeString},
		"lemma":        {Type: genai.TypeString},
		"partOfSpeech": {Type: genai.TypeString},
		"parsing":      {Type: genai.TypeString},
		"gloss":        {Type: genai.TypeString},
		"usage":        {Type: genai.TypeString},
	},
	Required: []string{"word", "lemma", "partOfSpeech", "parsing", "gloss"},
}

// Markdown renders the study as a small markdown card.
func (w WordStudy) Markdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", w.Word)
	fmt.Fprintf(&sb, "**Lemma:** %s · **%s**\n\n", w.Lemma, w.PartOfSpeech)
	fmt.Fprintf(&sb, "*%s*\n\n", w.Parsing)
	fmt.Fprintf(&sb, "**Gloss:** %s\n", w.Gloss)
	if w.Usage != "" {
		fmt.Fprintf(&sb, "\n%s\n", w.Usage)
	}
	return sb.String()
}

// Study looks up grammatical analysis for a word in its verse context.
// Not cached: lookups are cheap, rare, and context-dependent.
func (s *Service) Study(ctx context.Context, word, language, verseContext string) (WordStudy, error) {
	var study WordStudy
	err := s.gw.GenerateStructured(ctx, wordStudyPrompt(word, language, verseContext), wordStudySchema, &study)
	if err != nil {
		return WordStudy{}, fmt.Errorf("word study %q: %w", word, err)
	}
	return study, nil
}

// Prefetch warms the cache for a chapter in the background. Best-effort:
// failures are logged, never surfaced.
func (s *Service) Prefetch(ctx context.Context, book string, chapter int, language string) {
	if _, err := s.Passage(ctx, book, chapter); err != nil {
		log.Debug("Passage prefetch failed", "book", book, "chapter", chapter, "error", err)
		return
	}
	if _, err := s.Original(ctx, book, chapter, language); err != nil {
		log.Debug("Original prefetch failed", "book", book, "chapter", chapter, "error", err)
	}
}

// SortedVerseNumbers returns the verse numbers of an original passage in
// ascending numeric order.
func SortedVerseNumbers(original map[string]string) []string {
	keys := make([]string, 0, len(original))
	for k := range original {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return verseNumberLess(keys[i], keys[j])
	})
	return keys
}

func verseNumberLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
