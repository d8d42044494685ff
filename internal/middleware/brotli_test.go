package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newBrotliRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Brotli())
	return r
}

func TestBrotliFlushDeliversSmallWritesMidHandler(t *testing.T) {
	r := newBrotliRouter()
	w := httptest.NewRecorder()

	frame := "data: {\"event_type\":\"TAB_BLUR\"}\n\n"
	var bytesAtFlush int
	r.GET("/stream", func(c *gin.Context) {
		c.Writer.WriteString(frame)
		c.Writer.Flush()
		bytesAtFlush = w.Body.Len()
	})

	req := httptest.NewRequest("GET", "/stream", nil)
	req.Header.Set("Accept-Encoding", "br")
	r.ServeHTTP(w, req)

	if bytesAtFlush == 0 {
		t.Fatalf("Flush did not deliver the event mid-handler (final body %d bytes)", w.Body.Len())
	}
	if !w.Flushed {
		t.Error("Flush was not forwarded to the underlying writer")
	}
	if got := w.Body.String(); got != frame {
		t.Errorf("body = %q, want %q uncompressed", got, frame)
	}
}

func TestBrotliSkipsEventStreamRequests(t *testing.T) {
	r := newBrotliRouter()
	w := httptest.NewRecorder()

	r.GET("/stream", func(c *gin.Context) {
		c.Writer.WriteString("data: ping\n\n")
		c.Writer.Flush()
	})

	req := httptest.NewRequest("GET", "/stream", nil)
	req.Header.Set("Accept-Encoding", "br")
	req.Header.Set("Accept", "text/event-stream")
	r.ServeHTTP(w, req)

	if enc := w.Header().Get("Content-Encoding"); enc != "" {
		t.Errorf("Content-Encoding = %q, want none for event streams", enc)
	}
	if !strings.Contains(w.Body.String(), "data: ping") {
		t.Errorf("body = %q, want the raw frame", w.Body.String())
	}
}

func TestBrotliCompressesLargeBodies(t *testing.T) {
	r := newBrotliRouter()
	w := httptest.NewRecorder()

	body := strings.Repeat("a", brotliMinLength*2)
	r.GET("/big", func(c *gin.Context) {
		c.Writer.WriteString(body)
	})

	req := httptest.NewRequest("GET", "/big", nil)
	req.Header.Set("Accept-Encoding", "br")
	r.ServeHTTP(w, req)

	if enc := w.Header().Get("Content-Encoding"); enc != "br" {
		t.Errorf("Content-Encoding = %q, want br", enc)
	}
	if w.Body.Len() >= len(body) {
		t.Errorf("compressed body is %d bytes, source was %d", w.Body.Len(), len(body))
	}
}

func TestBrotliPassthroughWithoutAcceptEncoding(t *testing.T) {
	r := newBrotliRouter()
	w := httptest.NewRecorder()

	body := strings.Repeat("a", brotliMinLength*2)
	r.GET("/big", func(c *gin.Context) {
		c.Writer.WriteString(body)
	})

	r.ServeHTTP(w, httptest.NewRequest("GET", "/big", nil))

	if enc := w.Header().Get("Content-Encoding"); enc != "" {
		t.Errorf("Content-Encoding = %q, want none", enc)
	}
	if w.Body.String() != body {
		t.Error("body altered for a client that did not accept brotli")
	}
}
