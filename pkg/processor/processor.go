package processor

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type ProcessorConfig struct {
	MaxTokens       int
	RemoveStopwords bool
	CustomStopwords []string
}

// Processor prepares page and query text for embedding.
type Processor struct {
	config    ProcessorConfig
	stopwords map[string]struct{}
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.MaxTokens == 0 {
		config.MaxTokens = 256
	}

	stopwords := make(map[string]struct{})
	if config.RemoveStopwords {
		for _, w := range getStopwords() {
			stopwords[w] = struct{}{}
		}
		for _, w := range config.CustomStopwords {
			stopwords[strings.ToLower(w)] = struct{}{}
		}
	}

	return Processor{
		config:    config,
		stopwords: stopwords,
	}
}

// Tokenize lowercases text, splits it on anything that is not a letter or a
// number, drops stopwords and truncates to MaxTokens.
func (p *Processor) Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, skip := p.stopwords[f]; skip {
			continue
		}
		tokens = append(tokens, f)
		if len(tokens) == p.config.MaxTokens {
			break
		}
	}
	return tokens
}

// Sanitize keeps letters, numbers and whitespace and trims the result.
// Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// CleanText collapses whitespace runs and drops invalid UTF-8.
func CleanText(text string) string {
	return strings.Join(strings.Fields(sanitizeUTF8(text)), " ")
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}

// Common English stopwords
func getStopwords() []string {
	return []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "were", "will", "with",
	}
}
