// Package memory implements the Memory Store (C1): chunking, embedding,
// and nearest-neighbor recall over a per-agent, per-collection vector
// index. Grounded on internal/rag/chunker (strategy
// selection) and internal/persistence/databases/qdrant_vector.go (vector
// backend shape), generalized to sentence-boundary
// chunking-with-overlap contract.
package memory

import (
	"regexp"
	"strings"
)

const (
	defaultChunkSize    = 128 // tokens
	defaultOverlapSents = 2
)

var sentenceBoundary = regexp.MustCompile(`(?s)([.!?])\s+`)

// splitSentences breaks text into sentences on ./!/? followed by
// whitespace. It is a lightweight heuristic, not a full NLP sentence
// splitter — adequate for chunk-boundary selection.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	parts := sentenceBoundary.Split(text, -1)
	// Split drops the delimiters; recombine by re-scanning matches.
	matches := sentenceBoundary.FindAllStringIndex(text, -1)
	sentences := make([]string, 0, len(parts))
	pos := 0
	for i, p := range parts {
		s := p
		if i < len(matches) {
			end := matches[i][1]
			s = text[pos:end]
			pos = end
		} else if pos < len(text) {
			s = text[pos:]
		}
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return []string{text}
	}
	return sentences
}

// estimateTokens approximates token count (chars/4), matching the
// orchestrator-wide heuristic used when no accurate tokenizer is wired.
func estimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return len([]rune(s))/4 + 1
}

// ChunkText splits text into chunks of at most maxTokens tokens,
// preferring sentence boundaries with a fixed sentence overlap between
// consecutive chunks (step 1). maxTokens <= 0 selects the
// default chunk size (128). Overlap sentences are dropped when they would
// push a chunk over maxTokens, and a single sentence longer than maxTokens
// forms a chunk of its own.
func ChunkText(text string, maxTokens int) []string {
	if maxTokens <= 0 {
		maxTokens = defaultChunkSize
	}
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var cur []string
	curTokens := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		chunks = append(chunks, strings.TrimSpace(strings.Join(cur, " ")))
	}

	i := 0
	for i < len(sentences) {
		s := sentences[i]
		t := estimateTokens(s)
		if curTokens > 0 && curTokens+t > maxTokens {
			flush()
			// start next chunk with overlap from the tail of the previous one
			overlapStart := len(cur) - defaultOverlapSents
			if overlapStart < 0 {
				overlapStart = 0
			}
			cur = append([]string(nil), cur[overlapStart:]...)
			curTokens = 0
			for _, c := range cur {
				curTokens += estimateTokens(c)
			}
			for len(cur) > 0 && curTokens+t > maxTokens {
				curTokens -= estimateTokens(cur[0])
				cur = cur[1:]
			}
			continue
		}
		cur = append(cur, s)
		curTokens += t
		i++
	}
	flush()
	return chunks
}
