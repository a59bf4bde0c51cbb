package cell

// Input is one argument to Combine: either a reactive cell, wrapped
// with In, or a plain value, wrapped with Const. Unwrapping a cell
// input reads (and tracks) the cell's current value; unwrapping a
// constant passes the value through unchanged. This lets Combine be
// used uniformly whether or not every argument is reactive.
type Input interface {
	unwrap() any
}

type cellInput[T any] struct {
	c Cell[T]
}

func (i cellInput[T]) unwrap() any { return i.c.Get() }

type constInput struct {
	v any
}

func (i constInput) unwrap() any { return i.v }

// In wraps a reactive cell as a Combine argument.
func In[T any](c Cell[T]) Input {
	return cellInput[T]{c: c}
}

// Const wraps a plain value as a Combine argument.
func Const(v any) Input {
	return constInput{v: v}
}

// Combine lifts an n-ary pure function over n inputs into one derived
// cell. The function receives the unwrapped current values in input
// order and recomputes whenever any reactive input changes.
//
// If every update that feeds a Combine should land in a single
// downstream notification, wrap the Sets in a Batch; otherwise each Set
// legitimately triggers its own recompute.
//
// For small fixed arities the typed Combine2..Combine4 variants avoid
// the []any conversion.
func Combine[R any](f func(vals []any) R, inputs ...Input) *Derived[R] {
	return NewDerived(func() R {
		vals := make([]any, len(inputs))
		for i, in := range inputs {
			vals[i] = in.unwrap()
		}
		return f(vals)
	})
}

// Combine2 lifts a binary pure function over two cells.
func Combine2[A, B, R any](a Cell[A], b Cell[B], f func(A, B) R) *Derived[R] {
	return NewDerived(func() R {
		return f(a.Get(), b.Get())
	})
}

// Combine3 lifts a ternary pure function over three cells.
func Combine3[A, B, C, R any](a Cell[A], b Cell[B], c Cell[C], f func(A, B, C) R) *Derived[R] {
	return NewDerived(func() R {
		return f(a.Get(), b.Get(), c.Get())
	})
}

// Combine4 lifts a 4-ary pure function over four cells.
func Combine4[A, B, C, D, R any](a Cell[A], b Cell[B], c Cell[C], d Cell[D], f func(A, B, C, D) R) *Derived[R] {
	return NewDerived(func() R {
		return f(a.Get(), b.Get(), c.Get(), d.Get())
	})
}
