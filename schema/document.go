package schema

// Document is a retrievable unit of text with an optional embedding and
// similarity score, the common currency between stores and rankers.
type Document struct {
	ID        string
	Content   string
	Metadata  map[string]any
	Score     float64
	Embedding []float32
}
