package middlewares

// gin context keys set by the middlewares and read by the access log.
const (
	CtxRequestID = "request_id"
)
