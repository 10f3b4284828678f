package pipeline

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// TokenValidator resolves a bearer token to the principal it identifies.
type TokenValidator[P any] func(ctx context.Context, token string) (P, error)

// BearerAuth returns middleware that requires an "Authorization: Bearer"
// header. Requests without a valid token get 401 and never reach later
// layers. The principal is stored in the context; handlers read it with
// Value[P].
func BearerAuth[P any](validate TokenValidator[P]) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, r *Request) *Response {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				return unauthorized(r, Unauthorized("missing bearer token"))
			}

			principal, err := validate(ctx, token)
			if err != nil {
				var he *HTTPError
				if errors.As(err, &he) {
					return unauthorized(r, he)
				}
				return unauthorized(r, Unauthorized("invalid bearer token").WithInternal("%v", err))
			}

			return next(SetValue(ctx, principal), r)
		}
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(r *Request, err *HTTPError) *Response {
	resp := ErrorResponse(r, err)
	if err.Status == http.StatusUnauthorized {
		resp.SetHeader("WWW-Authenticate", `Bearer realm="api"`)
	}
	return resp
}
