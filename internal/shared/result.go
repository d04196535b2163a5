package shared

// Result is the uniform envelope every operation is rendered through.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Kind    Kind   `json:"kind,omitempty"`
}

// ResultFrom converts an operation outcome into a Result. Unexpected errors
// never leak their internals.
func ResultFrom[T any](data T, err error) Result[T] {
	if err != nil {
		return Result[T]{Success: false, Error: PublicMessage(err), Kind: KindOf(err)}
	}
	return Result[T]{Success: true, Data: &data}
}

// Fail builds a failed Result from err.
func Fail[T any](err error) Result[T] {
	var zero T
	return ResultFrom(zero, err)
}
