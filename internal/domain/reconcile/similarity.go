package reconcile

import (
	"strings"
	"unicode"
)

// Similarity scores two texts in [0,1].
type Similarity interface {
	Score(a, b string) float64
}

// SimilarityFunc adapts a function to Similarity.
type SimilarityFunc func(a, b string) float64

// Score calls f.
func (f SimilarityFunc) Score(a, b string) float64 { return f(a, b) }

// DefaultSimilarityThreshold marks two items as duplicates.
const DefaultSimilarityThreshold = 0.8

// MinTokenLength is the shortest token Jaccard considers, exclusive.
const MinTokenLength = 3

// Jaccard is word-overlap similarity over lowercase tokens longer than MinTokenLength characters.
// Texts without such tokens are compared for normalized equality.
type Jaccard struct{}

// Score returns |A∩B| / |A∪B|.
func (Jaccard) Score(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 && len(tb) == 0 {
		if normalize(a) != "" && normalize(a) == normalize(b) {
			return 1
		}
		return 0
	}

	inter := 0
	for tok := range ta {
		if tb[tok] {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]bool {
	out := map[string]bool{}
	for _, tok := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len([]rune(tok)) > MinTokenLength {
			out[tok] = true
		}
	}
	return out
}

// normalize lowercases and collapses whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

var quoteReplacer = strings.NewReplacer("“", "\"", "”", "\"", "‘", "'", "’", "'")

// quoteInMessage reports whether quote appears literally in message, ignoring case, whitespace and
// surrounding quote marks or punctuation on the quote.
func quoteInMessage(quote, message string) bool {
	q := normalize(strings.Trim(quoteReplacer.Replace(strings.TrimSpace(quote)), "\"'.,!?…"))
	if q == "" {
		return false
	}
	return strings.Contains(normalize(quoteReplacer.Replace(message)), q)
}
