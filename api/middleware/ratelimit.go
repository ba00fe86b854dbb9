package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/doorstep-app/doorstep/api/web"
	"github.com/doorstep-app/doorstep/api/weberr"
	"github.com/doorstep-app/doorstep/rate"
)

// RateLimit throttles per client address. It guards the auth and checkout
// routes, which are the only ones worth brute-forcing.
func RateLimit(lim *rate.Limiter) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}

			if !lim.Check(host) {
				err := errors.New("too many requests")
				return weberr.NewError(err, err.Error(), http.StatusTooManyRequests)
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
