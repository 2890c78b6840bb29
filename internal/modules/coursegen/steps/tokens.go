package steps

import (
	"github.com/pkoukk/tiktoken-go"
)

type TokenCounter interface {
	Count(text string) int
}

// EstimateCounter approximates tokens as a quarter of the byte length.
type EstimateCounter struct{}

func (EstimateCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(text)/4 + 1
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTokenCounter uses the cl100k encoding and falls back to EstimateCounter
// when the encoding cannot be loaded.
func NewTokenCounter(model string) TokenCounter {
	if model == "" {
		model = "gpt-4"
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return EstimateCounter{}
		}
	}
	return &tiktokenCounter{enc: enc}
}

func (c *tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}
