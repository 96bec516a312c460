package compression

import (
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"launcher-proxy/internal/model"
)

// Supported Content-Encoding tokens.
const (
	EncodingGzip    = "gzip"
	EncodingDeflate = "deflate"
)

// ChooseEncoding picks the response encoding for the accepted-encoding
// tokens: deflate when any token mentions it, gzip otherwise.
func ChooseEncoding(tokens []string) string {
	if acceptsEncoding(tokens, EncodingDeflate) {
		return EncodingDeflate
	}
	return EncodingGzip
}

// Compressor rewrites an accepted exchange so its body is delivered
// gzip or deflate encoded with an exact Content-Length.
//
// The compressed body is buffered in full to compute Content-Length, which
// costs memory and latency proportional to the response size. Streaming with
// chunked transfer encoding would avoid the buffer but gives up the exact
// length header, so it is not done here.
type Compressor struct {
	gzipLevel    int
	deflateLevel int
	gzipPool     sync.Pool
	deflatePool  sync.Pool
	logger       *slog.Logger
}

// NewCompressor creates a Compressor with the given levels. Levels follow
// compress/flate (-2 to 9); an invalid level is reported here rather than
// per request.
func NewCompressor(gzipLevel, deflateLevel int, logger *slog.Logger) (*Compressor, error) {
	if _, err := gzip.NewWriterLevel(io.Discard, gzipLevel); err != nil {
		return nil, fmt.Errorf("gzip level %d: %w", gzipLevel, err)
	}
	if _, err := flate.NewWriter(io.Discard, deflateLevel); err != nil {
		return nil, fmt.Errorf("deflate level %d: %w", deflateLevel, err)
	}

	c := &Compressor{
		gzipLevel:    gzipLevel,
		deflateLevel: deflateLevel,
		logger:       logger.With("component", "compressor"),
	}
	c.gzipPool.New = func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, c.gzipLevel)
		return w
	}
	c.deflatePool.New = func() any {
		w, _ := flate.NewWriter(io.Discard, c.deflateLevel)
		return w
	}
	return c, nil
}

// Compress wraps the exchange body in the chosen encoder and sets
// Content-Encoding, Connection and Content-Length. The wrapped producer is
// run once here to measure the encoded size and again at delivery.
func (c *Compressor) Compress(ex *model.Exchange) error {
	encoding := ChooseEncoding(ex.AcceptEncoding)
	original := ex.Body

	ex.Body = func(w io.Writer) error {
		return c.encode(encoding, w, original)
	}
	ex.Header.Set("Content-Encoding", encoding)
	ex.Header.Set("Connection", "close")

	body, err := ex.Materialize()
	if err != nil {
		return fmt.Errorf("compress response body: %w", err)
	}
	ex.Header.Set("Content-Length", strconv.Itoa(len(body)))

	c.logger.Debug("response compressed",
		"path", ex.Path,
		"encoding", encoding,
		"content_length", len(body),
	)
	return nil
}

// encode writes body through an encoder over w. The encoder is closed on
// every path so the stream trailer is always emitted.
func (c *Compressor) encode(encoding string, w io.Writer, body model.BodyProducer) (err error) {
	var zw io.WriteCloser
	switch encoding {
	case EncodingDeflate:
		fw := c.deflatePool.Get().(*flate.Writer)
		fw.Reset(w)
		defer func() {
			fw.Reset(io.Discard)
			c.deflatePool.Put(fw)
		}()
		zw = fw
	default:
		gw := c.gzipPool.Get().(*gzip.Writer)
		gw.Reset(w)
		defer func() {
			gw.Reset(io.Discard)
			c.gzipPool.Put(gw)
		}()
		zw = gw
	}

	defer func() {
		if cerr := zw.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s writer: %w", encoding, cerr)
		}
	}()

	return body(zw)
}
