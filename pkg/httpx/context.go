package httpx

import "context"

type ctxKey string

const (
	// CtxKeyCaller is the subject of the verified service token, i.e. which
	// internal service is calling us.
	CtxKeyCaller ctxKey = "caller"
	CtxKeyScopes ctxKey = "scopes"
	CtxKeyClaims ctxKey = "claims"
)

func scopesFromCtx(ctx context.Context) []string {
	if v, ok := ctx.Value(CtxKeyScopes).([]string); ok {
		return v
	}
	return nil
}
