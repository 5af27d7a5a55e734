// Package requestdata carries the verified caller identity from the auth
// middleware down to the handlers. The user id stored here is what every
// Contribution row records as its actor.
package requestdata

import (
	"context"
	"github.com/google/uuid"
)

var requestDataKey = struct{}{}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	val := ctx.Value(requestDataKey)
	if rd, ok := val.(*RequestData); ok {
		return rd
	}
	return nil
}

// RequestData is the per-request identity: the raw bearer token and the
// user id taken from its subject claim.
type RequestData struct {
	TokenString       string
	UserID            uuid.UUID
}
