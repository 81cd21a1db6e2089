package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// RequestLogger logs one line per request after the handler ran.  Server
// errors are logged at error level, client errors at warn.
func RequestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// Let Echo's error handler write the response so the status
				// below is the one the client sees.
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			status := res.Status

			var ev *zerolog.Event
			switch {
			case status >= 500:
				ev = log.Error().Err(err)
			case status >= 400:
				ev = log.Warn()
			default:
				ev = log.Info()
			}
			ev.Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("route", c.Path()).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Int64("bytes_out", res.Size).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Str("user", userKey(c)).
				Str("remote_ip", c.RealIP()).
				Msg("request")
			return nil
		}
	}
}
