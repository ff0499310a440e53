package engine

import "fmt"

// ErrInvalidChunking is returned when the window parameters cannot make progress.
var ErrInvalidChunking = fmt.Errorf("%w: chunking requires 0 < overlap < size", ErrInvalidInput)

// Chunk splits text into windows of at most size runes. Each window after the
// first starts overlap runes before the previous window's end, so neighbours
// share overlap runes of context. Empty text yields no chunks.
func Chunk(text string, size, overlap int) ([]string, error) {
	if overlap <= 0 || overlap >= size {
		return nil, ErrInvalidChunking
	}
	if text == "" {
		return nil, nil
	}
	runes := []rune(text)
	n := len(runes)

	chunks := make([]string, 0, n/(size-overlap)+1)
	start := 0
	for {
		end := min(start+size, n)
		chunks = append(chunks, string(runes[start:end]))
		if end == n {
			return chunks, nil
		}
		start = end - overlap
	}
}
