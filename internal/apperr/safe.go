package apperr

import (
	"context"
	"log/slog"
)

// Info is the caller-visible shape of an error.
type Info struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Result is the {data, error} pair returned by safe operations.
type Result[T any] struct {
	Data  T     `json:"data"`
	Error *Info `json:"error"`
}

// OK reports whether the operation succeeded.
func (r Result[T]) OK() bool {
	return r.Error == nil
}

// Safe runs fn and never fails: on error it logs, substitutes fallback and
// reports the kind with a user-facing message.
func Safe[T any](ctx context.Context, logger *slog.Logger, action string, fallback T, fn func(context.Context) (T, error)) Result[T] {
	data, err := fn(ctx)
	if err != nil {
		Log(ctx, logger, err, action)
		return Result[T]{
			Data:  fallback,
			Error: &Info{Kind: KindOf(err), Message: UserMessage(err)},
		}
	}
	return Result[T]{Data: data}
}
