package content

// Transformer modifies note content, returning the result or an error.
type Transformer interface {
	// Transform modifies input, returning modified content or an error.
	Transform(input []byte) ([]byte, error)
}

// TransformerFunc adapts a plain function to a [Transformer].
type TransformerFunc func(input []byte) ([]byte, error)

// Transform satisfies [Transformer].
func (fn TransformerFunc) Transform(input []byte) ([]byte, error) { return fn(input) }

// Chain runs transformers in order, feeding each the output of the previous
// one. The first error stops the chain.
func Chain(transformers ...Transformer) TransformerFunc {
	return func(input []byte) ([]byte, error) {
		out := input
		for _, transformer := range transformers {
			var err error
			if out, err = transformer.Transform(out); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
}
