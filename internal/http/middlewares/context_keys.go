package middlewares

const (
	CtxRequestID = "request_id"
	ctxClaimsKey = "auth.claims"
)
