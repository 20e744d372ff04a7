package passage

import "fmt"

func translationPrompt(book string, chapter int, language string) string {
	return fmt.Sprintf(`Translate %s chapter %d of the Bible into natural, contemporary %s, directly from the original text.

Output one verse per line in the exact format "<verse number>. <verse text>", nothing else. No headings, no commentary, no footnotes.`,
		book, chapter, language)
}

func originalPrompt(book string, chapter int, language string) string {
	return fmt.Sprintf(`Provide the complete original %s text of %s chapter %d, verse by verse, from the standard critical text.`,
		language, book, chapter)
}

func wordStudyPrompt(word, language, verseContext string) string {
	return fmt.Sprintf(`Give a concise grammatical analysis of the %s word %q as it occurs in this verse:

%s

Provide the dictionary form (lemma), part of speech, full morphological parsing, a short gloss, and one sentence on its usage in this verse.`,
		language, word, verseContext)
}
