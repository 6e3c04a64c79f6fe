package domain

// Passage is one reference-text chunk returned by the similarity index.
type Passage struct {
	Source string  `json:"source"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
}
