package segmenter

// Terminal reports whether tok ends a sentence.
func Terminal(tok string) bool {
	switch tok {
	case ".", "!", "?", "؟", "…", "...":
		return true
	}
	return false
}

// SentenceSplit groups a cleaned token sequence into sentences, each ending at
// a terminal punctuation token. Trailing tokens without a terminal form a last
// sentence.
func SentenceSplit(tokens []string) [][]string {
	var out [][]string
	start := 0
	for i, t := range tokens {
		if Terminal(t) {
			out = append(out, tokens[start:i+1])
			start = i + 1
		}
	}
	if start < len(tokens) {
		out = append(out, tokens[start:])
	}
	return out
}
