package http

import (
	stdhttp "net/http"

	"feedweave/internal/platform/net/http/bind"
)

// Call adapts a handler without a request body. A returned Response is
// written as is, anything else becomes the data of a 200
func Call(fn func(*stdhttp.Request) (any, error)) Handler {
	return Handle(func(r *stdhttp.Request) Response { return result(fn(r)) })
}

// Bind decodes and validates a JSON body into T before calling fn, see Call for results
func Bind[T any](fn func(*stdhttp.Request, T) (any, error), opts ...bind.Options) Handler {
	return Handle(func(r *stdhttp.Request) Response {
		in, err := bind.ParseJSON[T](r, opts...)
		if err != nil {
			return Error(err)
		}
		return result(fn(r, in))
	})
}

func result(out any, err error) Response {
	if err != nil {
		return Error(err)
	}
	if resp, ok := out.(Response); ok {
		return resp
	}
	return OK(out)
}
