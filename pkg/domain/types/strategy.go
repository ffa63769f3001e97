package types

import "github.com/m-mizutani/goerr/v2"

// DocStrategy represents the policy for converting message records into
// indexable documents.
type DocStrategy string

const (
	// StrategyIndividual creates one document per message. Smallest memory
	// footprint, least cross-message context.
	StrategyIndividual DocStrategy = "individual"
	// StrategyAggregated groups each member's messages into overlapping
	// chunks. Most context, largest documents.
	StrategyAggregated DocStrategy = "aggregated"
	// StrategyHybrid emits both individual and aggregated documents,
	// roughly doubling the document count.
	StrategyHybrid DocStrategy = "hybrid"
)

// AllDocStrategies returns all valid document strategies
func AllDocStrategies() []DocStrategy {
	return []DocStrategy{
		StrategyIndividual,
		StrategyAggregated,
		StrategyHybrid,
	}
}

// IsValid checks if the document strategy is valid
func (s DocStrategy) IsValid() bool {
	switch s {
	case StrategyIndividual,
		StrategyAggregated,
		StrategyHybrid:
		return true
	default:
		return false
	}
}

// Normalize returns the strategy, treating empty as StrategyIndividual.
func (s DocStrategy) Normalize() DocStrategy {
	if s == "" {
		return StrategyIndividual
	}
	return s
}

// String returns the string representation of the document strategy
func (s DocStrategy) String() string {
	return string(s)
}

// ParseDocStrategy parses a string into a DocStrategy
func ParseDocStrategy(s string) (DocStrategy, error) {
	strategy := DocStrategy(s)
	if !strategy.IsValid() {
		return "", goerr.New("invalid document strategy", goerr.V("strategy", s))
	}
	return strategy, nil
}
