package middleware

import (
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// BrotliConfig tunes the Brotli middleware.
type BrotliConfig struct {
	Quality   int
	MinLength int
}

var DefaultBrotliConfig = BrotliConfig{
	Quality:   brotli.DefaultCompression,
	MinLength: 1024,
}

// passthroughTypes are sent as is: spreadsheets and archives are already
// compressed, event streams must reach the client frame by frame.
var passthroughTypes = []string{
	"application/vnd.openxmlformats-officedocument",
	"application/zip",
	"image/",
	"text/event-stream",
}

type encodeMode int

const (
	modeUndecided encodeMode = iota
	modeCompress
	modeIdentity
)

// brotliWriter buffers up to MinLength bytes before choosing an encoding.
// Once chosen, the encoding never changes for the rest of the response.
type brotliWriter struct {
	gin.ResponseWriter
	writer    *brotli.Writer
	quality   int
	minLength int
	buf       []byte
	mode      encodeMode
}

func (bw *brotliWriter) Write(data []byte) (int, error) {
	if bw.mode == modeUndecided && bw.mustPassThrough() {
		if err := bw.commit(modeIdentity); err != nil {
			return 0, err
		}
	}

	switch bw.mode {
	case modeCompress:
		return bw.writer.Write(data)
	case modeIdentity:
		return bw.ResponseWriter.Write(data)
	}

	bw.buf = append(bw.buf, data...)
	if len(bw.buf) >= bw.minLength {
		if err := bw.commit(modeCompress); err != nil {
			return 0, err
		}
	}
	return len(data), nil
}

func (bw *brotliWriter) WriteString(s string) (int, error) {
	return bw.Write([]byte(s))
}

// Flush commits to identity encoding if nothing has been compressed yet, so
// bytes already sent are never followed by a compressed stream.
func (bw *brotliWriter) Flush() {
	switch bw.mode {
	case modeUndecided:
		_ = bw.commit(modeIdentity)
	case modeCompress:
		_ = bw.writer.Flush()
	}
	bw.ResponseWriter.Flush()
}

// commit fixes the encoding and writes out the buffered prefix.
func (bw *brotliWriter) commit(mode encodeMode) error {
	bw.mode = mode
	if mode == modeCompress {
		h := bw.ResponseWriter.Header()
		h.Set("Content-Encoding", "br")
		h.Del("Content-Length")
		bw.writer = brotli.NewWriterLevel(bw.ResponseWriter, bw.quality)
	}
	if len(bw.buf) == 0 {
		return nil
	}
	var err error
	if mode == modeCompress {
		_, err = bw.writer.Write(bw.buf)
	} else {
		_, err = bw.ResponseWriter.Write(bw.buf)
	}
	bw.buf = nil
	return err
}

// close finishes the response: short bodies go out uncompressed.
func (bw *brotliWriter) close() error {
	if bw.mode == modeUndecided {
		return bw.commit(modeIdentity)
	}
	if bw.mode == modeCompress {
		return bw.writer.Close()
	}
	return nil
}

func (bw *brotliWriter) mustPassThrough() bool {
	h := bw.ResponseWriter.Header()
	if h.Get("Content-Encoding") != "" {
		return true
	}
	ct := h.Get("Content-Type")
	for _, prefix := range passthroughTypes {
		if strings.HasPrefix(ct, prefix) {
			return true
		}
	}
	return false
}

func Brotli() gin.HandlerFunc {
	return BrotliWithConfig(DefaultBrotliConfig)
}

func BrotliWithConfig(cfg BrotliConfig) gin.HandlerFunc {
	if cfg.Quality < 0 || cfg.Quality > 11 {
		cfg.Quality = brotli.DefaultCompression
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultBrotliConfig.MinLength
	}

	return func(c *gin.Context) {
		// The WebSocket handshake fails if the response is wrapped.
		if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")

		bw := &brotliWriter{
			ResponseWriter: c.Writer,
			quality:        cfg.Quality,
			minLength:      cfg.MinLength,
		}
		c.Writer = bw
		defer func() {
			if err := bw.close(); err != nil {
				_ = c.Error(err)
			}
		}()

		c.Next()
	}
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if strings.EqualFold(name, "br") {
			return true
		}
	}
	return false
}
