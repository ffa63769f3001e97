package types_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/mnemo-lab/mnemo/pkg/domain/types"
)

func TestParseDocStrategy(t *testing.T) {
	for _, s := range types.AllDocStrategies() {
		parsed, err := types.ParseDocStrategy(string(s))
		gt.NoError(t, err).Required()
		gt.Equal(t, parsed, s)
	}

	_, err := types.ParseDocStrategy("bogus")
	gt.Error(t, err)
}

func TestDocStrategyNormalize(t *testing.T) {
	gt.Equal(t, types.DocStrategy("").Normalize(), types.StrategyIndividual)
	gt.Equal(t, types.StrategyHybrid.Normalize(), types.StrategyHybrid)
}
