// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package signal derives mention, context, and sentiment signals from a
// provider's plain-text answer. Everything here is a pure function of its
// inputs except the Scorer implementations that call out to a model.
package signal

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxContextSentences is the number of sentences kept by ExtractContext.
const maxContextSentences = 3

// indexFold returns the byte offset in text of the first case-insensitive
// occurrence of name, or -1. Offsets refer to text itself, so slicing text
// at the result is always valid even when lowercasing would change widths.
func indexFold(text, name string) int {
	if text == "" || name == "" {
		return -1
	}
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(name))
	if err != nil {
		// QuoteMeta output always compiles; fall back to ASCII folding.
		return strings.Index(strings.ToLower(text), strings.ToLower(name))
	}
	loc := re.FindStringIndex(text)
	if loc == nil {
		return -1
	}
	return loc[0]
}

// HasMention returns 1 if name occurs in text ignoring case, 0 otherwise.
// Empty text or an empty name never match.
func HasMention(text, name string) int {
	if indexFold(text, name) < 0 {
		return 0
	}
	return 1
}

// ExtractContext returns up to three sentences of text starting at the
// first case-insensitive occurrence of name. ok is false when name does not
// occur. Sentences end at '.', '!' or '?' followed by whitespace; the
// whitespace between sentences is collapsed to a single space.
func ExtractContext(text, name string) (context string, ok bool) {
	idx := indexFold(text, name)
	if idx < 0 {
		return "", false
	}
	sentences := SplitSentences(text[idx:])
	if len(sentences) > maxContextSentences {
		sentences = sentences[:maxContextSentences]
	}
	return strings.Join(sentences, " "), true
}

// SplitSentences splits s after every '.', '!' or '?' that is followed by
// whitespace. The terminator stays with its sentence and the whitespace run
// is dropped. A trailing empty segment is not returned.
func SplitSentences(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		next, _ := utf8.DecodeRuneInString(s[i:])
		if i >= len(s) || !unicode.IsSpace(next) {
			continue
		}
		out = append(out, s[start:i])
		for i < len(s) {
			ws, wsize := utf8.DecodeRuneInString(s[i:])
			if !unicode.IsSpace(ws) {
				break
			}
			i += wsize
		}
		start = i
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
