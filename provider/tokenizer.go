package provider

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/hykang/chorus/types"
)

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// EstimateTokens counts tokens for a string using the cl100k_base
// encoding, falling back to a rune-count estimate when the encoding
// data is unavailable (e.g. offline test environments).
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			enc = e
		}
	})
	if enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	n := utf8.RuneCountInString(text) / 4
	if n == 0 {
		return 1
	}
	return n
}

// EstimateMessageTokens estimates the prompt size of a message list,
// including a small per-message overhead.
func EstimateMessageTokens(messages []types.ChatMessage) int {
	total := 0
	for _, m := range messages {
		total += EstimateTokens(m.Content) + 4
	}
	return total
}
