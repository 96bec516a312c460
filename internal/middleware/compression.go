package middleware

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"

	"launcher-proxy/internal/model"
)

// responseCapture holds a handler's response instead of sending it.
type responseCapture struct {
	header      http.Header
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func newResponseCapture() *responseCapture {
	return &responseCapture{header: make(http.Header), status: http.StatusOK}
}

func (rc *responseCapture) Header() http.Header {
	return rc.header
}

func (rc *responseCapture) WriteHeader(code int) {
	if rc.wroteHeader {
		return
	}
	rc.status = code
	rc.wroteHeader = true
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	if !rc.wroteHeader {
		rc.WriteHeader(http.StatusOK)
	}
	return rc.body.Write(b)
}

// Flush is a no-op; the response is sent once the pipeline has finished.
func (rc *responseCapture) Flush() {}

// exchange builds the pipeline Exchange for the captured response.
func (rc *responseCapture) exchange(req *http.Request) *model.Exchange {
	ex := model.NewExchange(req)
	ex.Status = rc.status
	ex.Header = rc.header
	ex.Body = model.BytesProducer(rc.body.Bytes())
	return ex
}

// Compression returns an Echo middleware that captures the downstream
// response, runs it through the interceptor and writes the outcome.
// Handler errors that produced no response are left to Echo's error handler.
func Compression(i *Interceptor) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			res := c.Response()
			original := res.Writer
			capture := newResponseCapture()

			restored := false
			restore := func() {
				res.Writer = original
				res.Committed = false
				res.Size = 0
				restored = true
			}
			defer func() {
				if !restored {
					restore()
				}
			}()

			res.Writer = capture
			err := next(c)
			restore()

			if err != nil && !capture.wroteHeader {
				return err
			}

			out := &Outcome{Status: capture.status, Header: capture.header, Body: capture.body.Bytes()}
			if bodyAllowed(c.Request().Method, capture.status) {
				out = i.Process(capture.exchange(c.Request()))
			}

			dst := res.Header()
			for key, vals := range out.Header {
				dst[key] = vals
			}
			res.WriteHeader(out.Status)
			if _, werr := res.Write(out.Body); werr != nil {
				i.logger.Error("writing response body",
					"err", werr,
					"path", c.Request().URL.Path,
				)
			}

			return err
		}
	}
}

// bodyAllowed reports whether a response to method with status carries a
// body. HEAD responses and 1xx/204/304 keep the upstream framing headers
// untouched, so they are never gated.
func bodyAllowed(method string, status int) bool {
	if method == http.MethodHead {
		return false
	}
	switch {
	case status >= 100 && status < 200:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}
