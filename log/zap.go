package log

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ShortStringer is implemented by identifiers with an abbreviated form for logs.
type ShortStringer interface {
	ShortString() string
}

type shortStringer struct {
	ShortStringer
}

func (s shortStringer) String() string {
	return s.ShortString()
}

// ZShortStringer logs the short form of an identifier.
func ZShortStringer(key string, val ShortStringer) zap.Field {
	return zap.Stringer(key, shortStringer{val})
}

// ZContext adds the request id carried by ctx, if any.
func ZContext(ctx context.Context) zap.Field {
	if id, ok := ExtractRequestID(ctx); ok {
		return zap.String("request_id", id)
	}
	return zap.Skip()
}

// Nop is an option that disables a logger.
var Nop = zap.WrapCore(func(zapcore.Core) zapcore.Core {
	return zapcore.NewNopCore()
})
