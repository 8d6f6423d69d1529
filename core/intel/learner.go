package intel

// Learner folds per-request outcomes into the shared pattern model.
// It is the only writer of model weights.
type Learner struct {
	model *Model
}

func NewLearner(model *Model) *Learner {
	return &Learner{model: model}
}

// Observe classifies the outcome and updates every feature key the URL
// exhibits. hit should be true for 2xx/3xx responses.
func (l *Learner) Observe(rawURL string, hit bool) {
	outcome := 0.0
	if hit {
		outcome = 1.0
	}
	for _, key := range FeatureKeys(rawURL) {
		l.model.Update(key, outcome)
	}
}
