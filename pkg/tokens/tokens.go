package tokens

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/docustitch/backend/pkg/common"
)

// DefaultEncoding is the BPE encoding used when none is configured.
const DefaultEncoding = "cl100k_base"

// Whitespace counts whitespace-delimited words. It is the fallback when no
// BPE encoding is available and the counter of last resort everywhere a
// nil common.TokenCounter is tolerated.
func Whitespace(text string) int {
	return len(strings.Fields(text))
}

// NewCounter returns a counter over the named BPE encoding. The encoding
// dictionary is loaded once and shared by every call to the returned
// counter, so budget accounting matches what the model will actually see.
func NewCounter(encoding string) (common.TokenCounter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	tke, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return func(text string) int {
		return len(tke.Encode(text, nil, nil))
	}, nil
}

// ForModel resolves the encoding from a model name, falling back to the
// default encoding for models tiktoken does not know.
func ForModel(model string) (common.TokenCounter, error) {
	tke, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return NewCounter(DefaultEncoding)
	}
	return func(text string) int {
		return len(tke.Encode(text, nil, nil))
	}, nil
}
