package main

import "strings"

const (
	// Longest word overlap considered between consecutive emissions.
	dedupLookback = 10
	// The rolling window of emitted words is trimmed from historyMax
	// down to historyTrim so dedup cost stays flat over a long session.
	historyMax  = 50
	historyTrim = 30
)

// deduper strips the re-transcribed overlap between consecutive
// continuous-mode emissions. Window snapshots share audio, so each new
// text tends to open with the tail of what was already emitted, and
// that tail can span more than one previous emission.
type deduper struct {
	words []string // normalized emitted words, newest last
}

func newDeduper() *deduper { return &deduper{} }

// Clean removes the prefix of text already emitted and returns what
// is genuinely new. Returns "" when nothing new was said.
func (d *deduper) Clean(text string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	words = words[wordOverlap(d.words, words):]
	if len(words) == 0 {
		return ""
	}
	if d.alreadySaid(words) {
		return ""
	}

	out := strings.Join(words, " ")
	for _, w := range words {
		d.words = append(d.words, normalizeWord(w))
	}
	if len(d.words) > historyMax {
		d.words = d.words[len(d.words)-historyTrim:]
	}
	return out
}

// Reset clears the history between sessions.
func (d *deduper) Reset() {
	d.words = nil
}

// alreadySaid suppresses re-emissions that survive the overlap strip:
// a model rerun over the same window often yields a fragment of words
// already delivered.
func (d *deduper) alreadySaid(words []string) bool {
	if len(d.words) == 0 {
		return false
	}
	window := " " + strings.Join(d.words, " ") + " "
	frag := " " + normalizeText(strings.Join(words, " ")) + " "
	return strings.Contains(window, frag)
}

// wordOverlap returns the longest n (capped at dedupLookback) where
// the last n words of prev match the first n words of cur.
func wordOverlap(prev, cur []string) int {
	limit := min(len(prev), len(cur), dedupLookback)
	for n := limit; n > 0; n-- {
		match := true
		for i := 0; i < n; i++ {
			if normalizeWord(prev[len(prev)-n+i]) != normalizeWord(cur[i]) {
				match = false
				break
			}
		}
		if match {
			return n
		}
	}
	return 0
}

// normalizeWord lowercases and strips edge punctuation, so "Fox." and
// "fox" count as the same word at a segment boundary.
func normalizeWord(w string) string {
	return strings.Trim(strings.ToLower(w), ".,!?;:\"'")
}

func normalizeText(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = normalizeWord(w)
	}
	return strings.Join(words, " ")
}
