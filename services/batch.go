package services

// Chunk partitions items into order-preserving slices of at most size elements.
// The last chunk may be shorter. A non-positive size yields a single chunk.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		if len(items) == 0 {
			return nil
		}
		return [][]T{items}
	}

	var chunks [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
