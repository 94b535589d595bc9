package middlewares

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/geocoder89/feedbackhub/internal/access"
	"github.com/geocoder89/feedbackhub/internal/apperr"
	"github.com/geocoder89/feedbackhub/internal/domain/account"
	"github.com/geocoder89/feedbackhub/internal/schema"
	"github.com/gin-gonic/gin"
)

// SessionCookie carries the signed session token.
const SessionCookie = "token"

// Gates adapts an access chain to gin. The access.Request is built from the
// session cookie, the ?id= query parameter and, for requests with a body, the
// JSON or form payload. Gate results reach handlers through the request context.
func Gates(role account.Role, gates ...access.Gate) gin.HandlerFunc {
	chain := access.Chain(gates...)

	return func(ctx *gin.Context) {
		req := &access.Request{
			Role:      role,
			TeacherID: ctx.Query("id"),
		}
		req.Token, _ = ctx.Cookie(SessionCookie)

		if hasBody(ctx.Request) {
			payload, err := readPayload(ctx)
			if err != nil {
				Fail(ctx, err)
				return
			}
			req.Payload = payload
		}

		next, err := chain(ctx.Request.Context(), req)
		if err != nil {
			Fail(ctx, err)
			return
		}

		ctx.Request = ctx.Request.WithContext(next)
		ctx.Next()
	}
}

func hasBody(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

func readPayload(ctx *gin.Context) (schema.Raw, error) {
	switch ctx.ContentType() {
	case gin.MIMEJSON:
		return decodeJSON(ctx.Request.Body)
	case gin.MIMEPOSTForm, gin.MIMEMultipartPOSTForm:
		return decodeForm(ctx)
	case "":
		// an empty body is fine; the schema reports the missing fields
		return decodeJSON(ctx.Request.Body)
	default:
		return nil, apperr.New(apperr.KindValidation, "Content-Type must be application/json or application/x-www-form-urlencoded")
	}
}

func decodeJSON(body io.Reader) (schema.Raw, error) {
	raw := schema.Raw{}
	if body == nil {
		return raw, nil
	}

	dec := json.NewDecoder(body)
	dec.UseNumber()

	err := dec.Decode(&raw)
	switch {
	case err == nil:
		return raw, nil
	case errors.Is(err, io.EOF):
		return schema.Raw{}, nil
	case isTooLarge(err):
		return nil, apperr.Wrap(apperr.KindValidation, err, "Request body too large")
	default:
		return nil, apperr.Wrap(apperr.KindValidation, err, "Request body must be a JSON object")
	}
}

func decodeForm(ctx *gin.Context) (schema.Raw, error) {
	var err error
	if ctx.ContentType() == gin.MIMEMultipartPOSTForm {
		err = ctx.Request.ParseMultipartForm(defaultMaxBody)
	} else {
		err = ctx.Request.ParseForm()
	}
	if err != nil {
		if isTooLarge(err) {
			return nil, apperr.Wrap(apperr.KindValidation, err, "Request body too large")
		}
		return nil, apperr.Wrap(apperr.KindValidation, err, "Malformed form body")
	}

	raw := schema.Raw{}
	for k, v := range ctx.Request.PostForm {
		if len(v) > 0 {
			raw[k] = v[0]
		}
	}
	return raw, nil
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
