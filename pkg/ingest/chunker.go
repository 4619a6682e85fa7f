package ingest

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// CountTokens counts cl100k_base tokens, the budget unit for chunking
// and context assembly. Falls back to a word count if the encoding
// tables are unavailable.
func CountTokens(text string) int {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			enc = e
		}
	})
	if enc == nil {
		return len(strings.Fields(text))
	}
	return len(enc.Encode(text, nil, nil))
}

// IsMostlyEnglish samples the head of the text and reports whether
// Arabic makes up less than 10% of it. English documents skip the
// translation step.
func IsMostlyEnglish(text string) bool {
	sample := []rune(text)
	if len(sample) > 500 {
		sample = sample[:500]
	}
	if len(sample) == 0 {
		return true
	}
	arabic := 0
	for _, r := range sample {
		if r >= 0x0600 && r <= 0x06FF {
			arabic++
		}
	}
	return float64(arabic)/float64(len(sample)) < 0.1
}

// ChunkText splits on word boundaries into chunks of at most maxTokens,
// carrying overlapTokens of trailing context into the next chunk.
func ChunkText(text string, maxTokens, overlapTokens int) []string {
	words := strings.Fields(text)
	var chunks []string
	var current []string
	currentTokens := 0

	for _, word := range words {
		wordTokens := CountTokens(word + " ")
		if currentTokens+wordTokens > maxTokens && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))

			var overlap []string
			overlapCount := 0
			for i := len(current) - 1; i >= 0; i-- {
				wt := CountTokens(current[i] + " ")
				if overlapCount+wt > overlapTokens {
					break
				}
				overlap = append([]string{current[i]}, overlap...)
				overlapCount += wt
			}
			current = overlap
			currentTokens = overlapCount
		}
		current = append(current, word)
		currentTokens += wordTokens
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}
