package history

// Input is the argument of a commit: either a value or an updater that
// derives the next value from the present one.
// The zero Input commits the zero value of T.
type Input[T any] struct {
	value   T
	updater func(T) T
}

// Value commits v.
func Value[T any](v T) Input[T] {
	return Input[T]{value: v}
}

// Updater commits fn(present), resolved when the commit is applied.
// fn runs with the history locked and must not call back into it.
func Updater[T any](fn func(T) T) Input[T] {
	return Input[T]{updater: fn}
}

// IsUpdater reports whether the input carries an updater.
func (in Input[T]) IsUpdater() bool {
	return in.updater != nil
}

// resolve returns the value to commit. present is handed to the updater
// already cloned when the policy clones, so in-place mutation by fn cannot
// reach stored history.
func (in Input[T]) resolve(present T, p Policy[T]) (T, error) {
	if in.updater == nil {
		return in.value, nil
	}
	cur, err := p.Clone(present)
	if err != nil {
		return cur, &cloneError{err: err}
	}
	return in.updater(cur), nil
}
