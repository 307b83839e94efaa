package services

import (
	"context"
	"strings"
	"unicode"

	"github.com/zeebo/xxh3"
)

// Embedder turns texts into vectors. Vectors of one Embedder share their dimension, and similar texts
// get vectors with a high cosine similarity.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// BagOfWords is an offline Embedder that hashes lowercase word unigrams and bigrams into a fixed
// number of buckets. It is crude compared to a sentence model, but it needs no network and is good
// enough for short intent phrasings.
type BagOfWords struct {
	dims int
}

// DefaultBagOfWordsDims is the vector size used when NewBagOfWords is given a non-positive size.
const DefaultBagOfWordsDims = 1024

// NewBagOfWords creates a BagOfWords embedder producing vectors of the given size.
func NewBagOfWords(dims int) BagOfWords {
	if dims <= 0 {
		dims = DefaultBagOfWordsDims
	}
	return BagOfWords{dims: dims}
}

// Embed implements Embedder.
func (b BagOfWords) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, b.dims)
		words := tokenize(text)
		for j, w := range words {
			vec[xxh3.HashString(w)%uint64(b.dims)]++
			if j > 0 {
				// Bigrams weigh less so that word order only breaks ties.
				vec[xxh3.HashString(words[j-1]+" "+w)%uint64(b.dims)] += 0.5
			}
		}
		out[i] = vec
	}
	return out, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}
