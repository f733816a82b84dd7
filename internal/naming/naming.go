// Package naming assigns unique candidate file names to the URLs of a batch.
package naming

import (
	"fmt"
	"math/rand/v2"

	"github.com/veranemoloko/image-downloader/internal/domain"
)

const (
	// Alphabet is the character set of random tokens.
	Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// TokenLength is the length of random tokens.
	TokenLength = 8
)

// TokenSource produces name tokens used when no prefix is configured.
type TokenSource interface {
	Token() string
}

// RandomTokens draws TokenLength characters from Alphabet.
type RandomTokens struct {
	rnd *rand.Rand
}

// NewRandomTokens returns a token source backed by rnd. A nil rnd uses the
// package-level generator.
func NewRandomTokens(rnd *rand.Rand) *RandomTokens {
	return &RandomTokens{rnd: rnd}
}

func (r *RandomTokens) Token() string {
	b := make([]byte, TokenLength)
	for i := range b {
		var n int
		if r.rnd != nil {
			n = r.rnd.IntN(len(Alphabet))
		} else {
			n = rand.IntN(len(Alphabet))
		}
		b[i] = Alphabet[n]
	}
	return string(b)
}

// Namer builds DownloadRequests for a batch.
type Namer struct {
	prefix string
	tokens TokenSource
}

// NewNamer returns a Namer using prefix, or a fresh token per request when
// prefix is empty.
func NewNamer(prefix string, tokens TokenSource) *Namer {
	if tokens == nil {
		tokens = NewRandomTokens(nil)
	}
	return &Namer{prefix: prefix, tokens: tokens}
}

// Assign pairs each URL with a candidate name in input order. Sequence numbers
// start at 1 and are zero-padded to four digits.
func (n *Namer) Assign(urls []string) []domain.DownloadRequest {
	reqs := make([]domain.DownloadRequest, len(urls))
	for i, u := range urls {
		base := n.prefix
		if base == "" {
			base = n.tokens.Token()
		}
		reqs[i] = domain.DownloadRequest{
			URL:           u,
			CandidateName: fmt.Sprintf("%s_%04d", base, i+1),
		}
	}
	return reqs
}
