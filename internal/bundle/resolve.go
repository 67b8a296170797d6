package bundle

import (
	"strings"

	"textheads/internal/graph"
)

// Tensor-name resolution is an ordered list of named rules evaluated
// in fixed priority order. Export-time naming is only a convention, so
// the loader verifies the config-declared name against the graph and
// works down the chain when it does not hold. Each rule is pure over
// the declared tensor metadata and testable on its own.

// InputRule picks an input tensor name, or reports no match.
type InputRule struct {
	Name string
	Pick func(inputs []graph.TensorInfo, declared string) (string, bool)
}

// OutputRule picks an output tensor name, or reports no match.
type OutputRule struct {
	Name string
	Pick func(outputs []graph.TensorInfo, declared string) (string, bool)
}

// InputRules is the input resolution chain: the config-declared name
// when the graph exposes it, else a string-typed input, else the first
// declared input.
var InputRules = []InputRule{
	{
		Name: "config-declared",
		Pick: func(inputs []graph.TensorInfo, declared string) (string, bool) {
			for _, in := range inputs {
				if in.Name == declared && declared != "" {
					return declared, true
				}
			}
			return "", false
		},
	},
	{
		Name: "string-typed",
		Pick: func(inputs []graph.TensorInfo, _ string) (string, bool) {
			for _, in := range inputs {
				if strings.Contains(strings.ToLower(in.Type), "string") {
					return in.Name, true
				}
			}
			return "", false
		},
	},
	{
		Name: "first-input",
		Pick: func(inputs []graph.TensorInfo, _ string) (string, bool) {
			if len(inputs) == 0 {
				return "", false
			}
			return inputs[0].Name, true
		},
	},
}

// OutputRules is the output resolution chain: config-declared, sole
// output, "prob" in the name, a float tensor shaped like a 2-class
// vector, then the first output. The shape check is a best-effort last
// heuristic, not a precise contract.
var OutputRules = []OutputRule{
	{
		Name: "config-declared",
		Pick: func(outputs []graph.TensorInfo, declared string) (string, bool) {
			for _, out := range outputs {
				if out.Name == declared && declared != "" {
					return declared, true
				}
			}
			return "", false
		},
	},
	{
		Name: "sole-output",
		Pick: func(outputs []graph.TensorInfo, _ string) (string, bool) {
			if len(outputs) == 1 {
				return outputs[0].Name, true
			}
			return "", false
		},
	},
	{
		Name: "prob-named",
		Pick: func(outputs []graph.TensorInfo, _ string) (string, bool) {
			for _, out := range outputs {
				if strings.Contains(strings.ToLower(out.Name), "prob") {
					return out.Name, true
				}
			}
			return "", false
		},
	},
	{
		Name: "two-class-float",
		Pick: func(outputs []graph.TensorInfo, _ string) (string, bool) {
			for _, out := range outputs {
				if !strings.Contains(strings.ToLower(out.Type), "float") {
					continue
				}
				if len(out.Dims) < 2 {
					continue
				}
				if out.Dims[len(out.Dims)-1] == 2 || out.Dims[1] == 2 {
					return out.Name, true
				}
			}
			return "", false
		},
	},
	{
		Name: "first-output",
		Pick: func(outputs []graph.TensorInfo, _ string) (string, bool) {
			if len(outputs) == 0 {
				return "", false
			}
			return outputs[0].Name, true
		},
	},
}

// ResolveInput runs the input chain and returns the chosen tensor name
// and the rule that produced it.
func ResolveInput(inputs []graph.TensorInfo, declared string) (name, rule string) {
	for _, r := range InputRules {
		if n, ok := r.Pick(inputs, declared); ok {
			return n, r.Name
		}
	}
	return "", ""
}

// ResolveOutput runs the output chain and returns the chosen tensor
// name and the rule that produced it.
func ResolveOutput(outputs []graph.TensorInfo, declared string) (name, rule string) {
	for _, r := range OutputRules {
		if n, ok := r.Pick(outputs, declared); ok {
			return n, r.Name
		}
	}
	return "", ""
}
