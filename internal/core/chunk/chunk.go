// Package chunk splits requirement documents into prompt-sized pieces.
package chunk

import "strings"

// DefaultWords is the chunk size used when none is configured.
const DefaultWords = 2000

// Split breaks text into chunks of at most maxWords whitespace-separated
// words, in document order. Whitespace inside a chunk is normalized to a
// single space. maxWords <= 0 selects DefaultWords.
func Split(text string, maxWords int) []string {
	if maxWords <= 0 {
		maxWords = DefaultWords
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(words)+maxWords-1)/maxWords)
	for start := 0; start < len(words); start += maxWords {
		end := min(start+maxWords, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}
