package ingest

import "strings"

// Chunk is one embeddable slice of a larger document.
type Chunk struct {
	Index     int
	Content   string
	WordCount int
}

// BuildChunks splits content into sentence-aware chunks of at most
// maxChars characters. Sentences are never split unless a single sentence
// exceeds the chunk size, in which case it is cut into character segments.
func BuildChunks(splitter SentenceSplitter, content string, maxChars int) []Chunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	if maxChars <= 0 {
		maxChars = len(content)
	}

	sentences := splitter.Split(content)
	if len(sentences) == 0 {
		sentences = []string{content}
	}

	var pieces []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		pieces = append(pieces, current.String())
		current.Reset()
	}

	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		// Oversized sentences get cut into raw character segments.
		if len(sentence) > maxChars {
			flush()
			for start := 0; start < len(sentence); start += maxChars {
				end := min(start+maxChars, len(sentence))
				segment := strings.TrimSpace(sentence[start:end])
				if segment != "" {
					pieces = append(pieces, segment)
				}
			}
			continue
		}

		prospective := current.Len() + len(sentence)
		if current.Len() > 0 {
			prospective++ // space separator
		}
		if prospective > maxChars {
			flush()
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
	}
	flush()

	chunks := make([]Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, Chunk{
			Index:     i,
			Content:   piece,
			WordCount: len(strings.Fields(piece)),
		})
	}
	return chunks
}
