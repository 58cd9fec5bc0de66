package objective

// Function scores a candidate.
type Function[T any] interface {
	Evaluate(candidate T) (Value, error)
}

// FunctionFunc adapts a plain function to Function.
type FunctionFunc[T any] func(candidate T) (Value, error)

// Evaluate implements Function.
func (f FunctionFunc[T]) Evaluate(candidate T) (Value, error) { return f(candidate) }
