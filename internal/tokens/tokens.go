// internal/tokens/tokens.go
package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Estimator counts tokens for cost entries when the stream carries no usage
// block. Counts are estimates: the agent's own tokenizer is authoritative,
// but an estimate keeps the cost ledger populated for older agent versions.
type Estimator struct {
	tokenizer *tiktoken.Tiktoken
}

// New creates an estimator for the given model name, falling back to the
// cl100k_base encoding for models tiktoken does not know.
func New(model string) (*Estimator, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return &Estimator{tokenizer: enc}, nil
}

// Count returns the token count for a string.
func (e *Estimator) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(e.tokenizer.Encode(text, nil, nil))
}
