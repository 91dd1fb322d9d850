package handlers

import (
	"bufio"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ArowuTest/srandom/internal/device"
	"github.com/ArowuTest/srandom/internal/rng"
)

const maxSampleCount = 10000

// Status handles GET /api/v1/status. The default is the plain-text report;
// ?format=json returns the counters as JSON.
func (h *Handler) Status(c *gin.Context) {
	st := h.dev.Status()
	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, st)
		return
	}
	c.String(http.StatusOK, st.String())
}

// Random handles GET /api/v1/random?count=N: open, read, close in one call.
func (h *Handler) Random(c *gin.Context) {
	count, ok := h.parseCount(c)
	if !ok {
		return
	}
	enc, ok := parseEncoding(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	hd, err := h.openHandle(ctx, c.ClientIP(), false)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer h.closeHandle(ctx, hd)

	buf := make([]byte, count)
	if _, err := hd.ReadContext(ctx, buf); err != nil {
		h.fail(c, err)
		return
	}
	respondBytes(c, enc, buf)
}

// RandomUint64 handles GET /api/v1/random/uint64?count=K&max=N[&distinct=true].
func (h *Handler) RandomUint64(c *gin.Context) {
	count, err := strconv.Atoi(c.DefaultQuery("count", "1"))
	if err != nil || count < 0 || count > maxSampleCount {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("count must be between 0 and %d", maxSampleCount)})
		return
	}
	bound, err := strconv.ParseUint(c.DefaultQuery("max", "18446744073709551615"), 10, 64)
	if err != nil || bound == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max must be a positive 64-bit integer"})
		return
	}
	distinct := c.Query("distinct") == "true"

	src := bufio.NewReaderSize(readerFunc(func(p []byte) (int, error) {
		return h.dev.ReadContext(c.Request.Context(), p)
	}), h.dev.Pool().LaneBytes())
	values, err := rng.Sample(src, count, bound, distinct)
	if errors.Is(err, rng.ErrTooManyDraws) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	// JSON numbers lose precision above 2^53, so values go out as strings.
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strconv.FormatUint(v, 10)
	}
	c.JSON(http.StatusOK, gin.H{"max": strconv.FormatUint(bound, 10), "values": out})
}

type readerFunc func([]byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }

func (h *Handler) parseCount(c *gin.Context) (int, bool) {
	count, err := strconv.Atoi(c.Query("count"))
	if err != nil || count < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "count must be a non-negative integer"})
		return 0, false
	}
	if count > h.opts.MaxReadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("count exceeds the %d byte limit", h.opts.MaxReadBytes)})
		return 0, false
	}
	return count, true
}

func parseEncoding(c *gin.Context) (string, bool) {
	enc := c.DefaultQuery("encoding", "raw")
	switch enc {
	case "raw", "hex", "base64":
		return enc, true
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "encoding must be raw, hex or base64"})
	return "", false
}

func respondBytes(c *gin.Context, enc string, buf []byte) {
	switch enc {
	case "hex":
		c.JSON(http.StatusOK, gin.H{"count": len(buf), "encoding": enc, "data": hex.EncodeToString(buf)})
	case "base64":
		c.JSON(http.StatusOK, gin.H{"count": len(buf), "encoding": enc, "data": base64.StdEncoding.EncodeToString(buf)})
	default:
		c.Data(http.StatusOK, "application/octet-stream", buf)
	}
}

// fail maps device and pool errors onto HTTP responses.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case rng.IsRetryable(err):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "refill interrupted, retry"})
	case errors.Is(err, device.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "device or session is closed"})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
