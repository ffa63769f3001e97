package model

// QueryExpansion is the original question plus a bounded set of paraphrased
// sub-queries. The original question is always the first entry.
type QueryExpansion struct {
	Question string
	Queries  []string
}

// ScoredDocument is a retrieved document with its similarity score.
// Higher scores are more similar.
type ScoredDocument struct {
	Document *Document
	Score    float64
}

// RetrievalResult is the ordered top-k nearest documents for one sub-query,
// in descending similarity order.
type RetrievalResult struct {
	Query     string
	Documents []ScoredDocument
}

// NoInformationMarker is rendered into the context when retrieval returns no
// documents, so the generation step can respond honestly instead of
// hallucinating.
const NoInformationMarker = "No relevant information found in member messages."

// AssembledContext is the deduplicated, boosted and budget-capped context
// block handed to the generation model. Built fresh per request and discarded
// after the answer is produced.
type AssembledContext struct {
	Text          string
	DocumentCount int
	NoInformation bool
}
