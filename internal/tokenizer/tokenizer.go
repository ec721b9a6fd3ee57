// Package tokenizer guards queries against the embedding model's input
// token limit before any network call is made.
package tokenizer

import (
	"errors"
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
	"github.com/rs/zerolog/log"
)

const fallbackEncoding = "cl100k_base"

// ErrTooLong is returned by Guard.Check when a text exceeds the limit.
var ErrTooLong = errors.New("query too long")

// BPE ranks are embedded in the binary; nothing is downloaded at startup.
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Counter counts tokens under one model's tokenization scheme.
type Counter interface {
	Count(text string) int
}

// CounterFunc adapts a function to Counter.
type CounterFunc func(text string) int

func (f CounterFunc) Count(text string) int { return f(text) }

type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken loads the encoding used by model. Models unknown to tiktoken
// use cl100k_base, the encoding of the OpenAI embedding models.
func NewTiktoken(model string) (*Tiktoken, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		log.Warn().Err(err).Str("model", model).Msgf("Falling back to %s", fallbackEncoding)
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("load tiktoken encoding: %w", err)
		}
	}
	return &Tiktoken{enc: enc}, nil
}

func (t *Tiktoken) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Guard rejects texts with more than Max tokens.
type Guard struct {
	Counter Counter
	Max     int
}

func NewGuard(c Counter, max int) *Guard {
	return &Guard{Counter: c, Max: max}
}

// Check returns the token count of text, or ErrTooLong when it is above Max.
func (g *Guard) Check(text string) (int, error) {
	n := g.Counter.Count(text)
	if n > g.Max {
		return n, fmt.Errorf("%w: %d tokens, limit %d", ErrTooLong, n, g.Max)
	}
	return n, nil
}
