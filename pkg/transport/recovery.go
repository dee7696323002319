package transport

import (
	"context"

	"github.com/rhuss/dolmetsch/pkg/api"
)

// Recovery returns middleware that catches panics in the handler and
// converts them to api_error responses. The server continues to accept
// new requests after a panic is recovered.
func Recovery() Middleware {
	return func(next MessageCreator) MessageCreator {
		return MessageCreatorFunc(func(ctx context.Context, req *api.MessagesRequest, w ResponseWriter) (retErr error) {
			defer func() {
				if r := recover(); r != nil {
					retErr = api.NewAPIErrorf("internal server error: %v", r)
				}
			}()
			return next.CreateMessage(ctx, req, w)
		})
	}
}
