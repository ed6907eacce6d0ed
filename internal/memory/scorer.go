package memory

import (
	"regexp"
	"sort"
	"strings"
)

var wordRe = regexp.MustCompile(`[A-Za-z0-9_]+`)

// keywordTokens extracts a lowercase, deduplicated token set approximating
// the "noun/proper-noun/verb tokens" of chunk-scoring
// contract. Stopwords are filtered with a small fixed list; a full POS
// tagger is out of scope for the core.
func keywordTokens(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if len(w) < 3 || stopwords[w] {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "was": true,
	"were": true, "with": true, "this": true, "that": true, "from": true,
	"have": true, "has": true, "had": true, "not": true, "you": true,
	"your": true, "but": true, "can": true, "will": true, "about": true,
}

// keywordOverlap scores chunk text by the fraction of query keywords it
// contains.
func keywordOverlap(query, chunk string) float64 {
	qTokens := keywordTokens(query)
	if len(qTokens) == 0 {
		return 0
	}
	cTokens := keywordTokens(chunk)
	hit := 0
	for t := range qTokens {
		if _, ok := cTokens[t]; ok {
			hit++
		}
	}
	return float64(hit) / float64(len(qTokens))
}

// RankedRecord pairs a retrieved record's text/id with its dual ranking
// scores.
type RankedRecord struct {
	ID          string
	Text        string
	VectorScore float64
	KeywordScore float64
}

// RankByRelevance sorts records by (vectorScore, keywordScore)
// lexicographically, descending, per chunk-scoring ranker.
func RankByRelevance(query string, records []RankedRecord) []RankedRecord {
	for i := range records {
		records[i].KeywordScore = keywordOverlap(query, records[i].Text)
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].VectorScore != records[j].VectorScore {
			return records[i].VectorScore > records[j].VectorScore
		}
		return records[i].KeywordScore > records[j].KeywordScore
	})
	return records
}

// ConcatTopK concatenates ranked records' text, most relevant first, until
// the running token estimate reaches budget.
func ConcatTopK(records []RankedRecord, budgetTokens int) string {
	var b strings.Builder
	used := 0
	for _, r := range records {
		t := estimateTokens(r.Text)
		if used > 0 && used+t > budgetTokens {
			break
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(r.Text)
		used += t
	}
	return b.String()
}
