package pipeline

import "fmt"

// Pipeline chains the vectorizer and the classifier.
type Pipeline struct {
	Vectorizer *Vectorizer `json:"vectorizer"`
	Classifier *LogReg     `json:"classifier"`
}

// New builds an unfitted pipeline from stage configs.
func New(vcfg VectorizerConfig, lcfg LogRegConfig) *Pipeline {
	return &Pipeline{
		Vectorizer: NewVectorizer(vcfg),
		Classifier: NewLogReg(lcfg),
	}
}

// Fit learns features and classifier weights from texts and 0/1 labels.
func (p *Pipeline) Fit(texts []string, labels []int) error {
	if err := p.Vectorizer.Fit(texts); err != nil {
		return fmt.Errorf("vectorizer fit: %w", err)
	}
	rows := p.Vectorizer.Transform(texts)
	if err := p.Classifier.Fit(rows, labels, p.Vectorizer.Size()); err != nil {
		return fmt.Errorf("classifier fit: %w", err)
	}
	return nil
}

// PredictProba returns the positive-class probability per text.
func (p *Pipeline) PredictProba(texts []string) []float64 {
	return p.Classifier.PredictProba(p.Vectorizer.Transform(texts))
}

// Fitted reports whether both stages have been fitted.
func (p *Pipeline) Fitted() bool {
	return p.Vectorizer != nil && len(p.Vectorizer.Vocab) > 0 && p.Classifier != nil && p.Classifier.Coef != nil
}
