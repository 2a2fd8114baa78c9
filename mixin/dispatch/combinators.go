package dispatch

// Combinator folds multicast results of type R into a value of type S.
type Combinator[R, S any] struct {
	// Identity returns the result of a multicast with no implementers.
	Identity func() S

	// Step folds one result into the accumulator. Returning false stops
	// the multicast; later implementers are not called.
	Step func(acc S, r R) (S, bool)
}

// Number is the constraint of the arithmetic combinators.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr |
		~float32 | ~float64
}

// Sum adds the results. Identity 0.
func Sum[R Number]() Combinator[R, R] {
	return Combinator[R, R]{
		Identity: func() R { return 0 },
		Step:     func(acc, r R) (R, bool) { return acc + r, true },
	}
}

// Product multiplies the results. Identity 1.
func Product[R Number]() Combinator[R, R] {
	return Combinator[R, R]{
		Identity: func() R { return 1 },
		Step:     func(acc, r R) (R, bool) { return acc * r, true },
	}
}

// And is true when every result is true, stopping at the first false.
// Identity true.
func And() Combinator[bool, bool] {
	return Combinator[bool, bool]{
		Identity: func() bool { return true },
		Step:     func(_, r bool) (bool, bool) { return r, r },
	}
}

// Or is true when any result is true, stopping at the first true.
// Identity false.
func Or() Combinator[bool, bool] {
	return Combinator[bool, bool]{
		Identity: func() bool { return false },
		Step:     func(_, r bool) (bool, bool) { return r, !r },
	}
}

// Collect gathers the results in call order. Identity nil.
func Collect[R any]() Combinator[R, []R] {
	return Combinator[R, []R]{
		Identity: func() []R { return nil },
		Step:     func(acc []R, r R) ([]R, bool) { return append(acc, r), true },
	}
}

// Last keeps the last result. Identity is the zero value.
func Last[R any]() Combinator[R, R] {
	return Combinator[R, R]{
		Identity: func() R { var zero R; return zero },
		Step:     func(_, r R) (R, bool) { return r, true },
	}
}

// Discard drops every result.
func Discard[R any]() Combinator[R, struct{}] {
	return Combinator[R, struct{}]{
		Identity: func() struct{} { return struct{}{} },
		Step:     func(struct{}, R) (struct{}, bool) { return struct{}{}, true },
	}
}
