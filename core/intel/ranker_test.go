package intel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func trainShape(model *Model, key string, outcome float64, times int) {
	for i := 0; i < times; i++ {
		model.Update(key, outcome)
	}
}

func TestRankerScoresLearnedShapesHigher(t *testing.T) {
	model := NewModel(0.2)
	trainShape(model, "shape:/api/users/{id}", 1, 20)
	trainShape(model, "ext:", 1, 20)
	trainShape(model, "depth:3", 1, 20)
	trainShape(model, "shape:/junk/{id}", 0, 20)
	trainShape(model, "depth:2", 0, 20)

	ranker := NewRanker(model, RankerConfig{Epsilon: 0.0001}, 1)

	hot := ranker.Rank("https://example.com/api/users/42")
	cold := ranker.Rank("https://example.com/junk/7")
	assert.Greater(t, hot, cold)
	assert.LessOrEqual(t, hot, 1.0)
	assert.GreaterOrEqual(t, cold, 0.0)
}

func TestRankerUnknownURLGetsExplorationBonus(t *testing.T) {
	model := NewModel(0.1)
	ranker := NewRanker(model, RankerConfig{ExplorationBonus: 0.05}, 1)

	score := ranker.Rank("https://example.com/fresh/path")
	assert.InDelta(t, NeutralPrior+0.05, score, 1e-9)
}

func TestRankerShouldGenerateConsumesInterval(t *testing.T) {
	model := NewModel(0.1)
	ranker := NewRanker(model, RankerConfig{PredictInterval: 10}, 1)

	assert.False(t, ranker.ShouldGenerate())

	for i := 0; i < 10; i++ {
		model.Update("shape:/x", 1)
	}
	assert.True(t, ranker.ShouldGenerate())
	// The interval was consumed; it takes another run of observations.
	assert.False(t, ranker.ShouldGenerate())
}

func TestRankerGenerateInstantiatesShapes(t *testing.T) {
	model := NewModel(0.3)
	trainShape(model, "shape:/api/orders/{id}", 1, 30)

	ranker := NewRanker(model, RankerConfig{PredictThreshold: 0.55}, 1)
	preds := ranker.Generate([]string{"/api/orders/9", "/api/users/3"})

	assert.NotEmpty(t, preds)
	var paths []string
	for _, pred := range preds {
		paths = append(paths, pred.Path)
		assert.GreaterOrEqual(t, pred.Score, 0.55)
	}
	assert.Contains(t, paths, "/api/orders/1")
	assert.Contains(t, paths, "/api/users/1")
}

func TestRankerGenerateEmptyWithoutTraining(t *testing.T) {
	model := NewModel(0.1)
	ranker := NewRanker(model, RankerConfig{}, 1)
	assert.Empty(t, ranker.Generate([]string{"/api"}))
}

func TestRankerGenerateHonorsLimit(t *testing.T) {
	model := NewModel(0.3)
	trainShape(model, "shape:/a/{id}", 1, 30)
	trainShape(model, "shape:/b/{id}", 1, 30)
	trainShape(model, "shape:/c/{id}", 1, 30)

	ranker := NewRanker(model, RankerConfig{PredictLimit: 2}, 1)
	preds := ranker.Generate([]string{"/a/1", "/b/2", "/c/3"})
	assert.Len(t, preds, 2)
}
