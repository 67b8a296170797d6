package graph

import (
	"fmt"

	"textheads/internal/pipeline"
)

// Node operation names.
const (
	OpVectorize     = "vectorize"
	OpLinear        = "linear"
	OpSigmoid       = "sigmoid"
	OpProbabilities = "probabilities"
	OpArgMax        = "argmax"
	OpZipMap        = "zipmap"
)

// Fixed tensor names chosen at export time. Downstream loaders treat
// these as advisory and resolve the real names from the graph.
const (
	InputName   = "text"
	LabelOutput = "label"
	ProbOutput  = "probabilities"
)

// ConvertOptions controls graph serialization.
type ConvertOptions struct {
	Opset int
	// ZipMap wraps the probability output into a keyed map per row
	// instead of a raw [N,2] float tensor.
	ZipMap bool
	// ClassLabels are the ordered [negative, positive] class names.
	ClassLabels []string
}

// Convert serializes a fitted pipeline into a portable graph at the
// requested opset. The graph has a single string-valued input and two
// outputs: an int64 label and a 2-class probability vector (or keyed
// map when ZipMap is set).
func Convert(p *pipeline.Pipeline, opts ConvertOptions) (*Model, error) {
	if p == nil || !p.Fitted() {
		return nil, fmt.Errorf("convert: pipeline is not fitted")
	}
	if opts.Opset < MinOpset || opts.Opset > MaxOpset {
		return nil, fmt.Errorf("convert: unsupported opset %d (supported %d-%d)", opts.Opset, MinOpset, MaxOpset)
	}
	if len(opts.ClassLabels) != 2 {
		return nil, fmt.Errorf("convert: need exactly 2 class labels, got %d", len(opts.ClassLabels))
	}

	vc := p.Vectorizer.Config
	m := &Model{
		Opset:    opts.Opset,
		Producer: "textheads",
		Inputs: []TensorInfo{
			{Name: InputName, Type: TypeString, Dims: []int64{DynamicDim, 1}},
		},
		Outputs: []TensorInfo{
			{Name: LabelOutput, Type: TypeInt64, Dims: []int64{DynamicDim}},
		},
		Nodes: nil,
		Params: Params{
			Vectorizer: VectorizerParams{
				NgramMin:     vc.NgramMin,
				NgramMax:     vc.NgramMax,
				StripAccents: vc.StripAccents,
				Lowercase:    vc.Lowercase,
				SublinearTF:  vc.SublinearTF,
				L2Normalize:  vc.L2Normalize,
				Vocabulary:   p.Vectorizer.Vocab,
				IDF:          p.Vectorizer.IDF,
			},
			Linear: LinearParams{
				Coef:      p.Classifier.Coef,
				Intercept: p.Classifier.Intercept,
			},
		},
	}

	probsTensor := "probs_raw"
	if !opts.ZipMap {
		probsTensor = ProbOutput
	}
	m.Nodes = []Node{
		{Op: OpVectorize, Inputs: []string{InputName}, Outputs: []string{"features"}},
		{Op: OpLinear, Inputs: []string{"features"}, Outputs: []string{"score"}},
		{Op: OpSigmoid, Inputs: []string{"score"}, Outputs: []string{"p_pos"}},
		{Op: OpProbabilities, Inputs: []string{"p_pos"}, Outputs: []string{probsTensor}},
		{Op: OpArgMax, Inputs: []string{probsTensor}, Outputs: []string{LabelOutput}},
	}
	if opts.ZipMap {
		m.Params.ClassKeys = append([]string(nil), opts.ClassLabels...)
		m.Nodes = append(m.Nodes, Node{Op: OpZipMap, Inputs: []string{probsTensor}, Outputs: []string{ProbOutput}})
		m.Outputs = append(m.Outputs, TensorInfo{Name: ProbOutput, Type: TypeFloatMap, Dims: []int64{DynamicDim}})
	} else {
		m.Outputs = append(m.Outputs, TensorInfo{Name: ProbOutput, Type: TypeFloat, Dims: []int64{DynamicDim, 2}})
	}

	return m, nil
}
