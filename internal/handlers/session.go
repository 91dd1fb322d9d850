package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ArowuTest/srandom/internal/device"
)

// OpenSession handles POST /api/v1/sessions
func (h *Handler) OpenSession(c *gin.Context) {
	hd, err := h.openHandle(c.Request.Context(), c.ClientIP(), true)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session_id": hd.ID().String()})
}

// ReadSession handles GET /api/v1/sessions/:id/bytes?count=N&encoding=raw|hex|base64
func (h *Handler) ReadSession(c *gin.Context) {
	hd, ok := h.sessionParam(c)
	if !ok {
		return
	}
	count, ok := h.parseCount(c)
	if !ok {
		return
	}
	enc, ok := parseEncoding(c)
	if !ok {
		return
	}

	buf := make([]byte, count)
	if _, err := hd.ReadContext(c.Request.Context(), buf); err != nil {
		h.fail(c, err)
		return
	}
	respondBytes(c, enc, buf)
}

// WriteSession handles POST /api/v1/sessions/:id/bytes. The body is
// accepted and dropped.
func (h *Handler) WriteSession(c *gin.Context) {
	hd, ok := h.sessionParam(c)
	if !ok {
		return
	}
	n, err := io.Copy(hd, c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accepted": n})
}

// CloseSession handles DELETE /api/v1/sessions/:id. Closing an already
// closed session succeeds again; an ID that was never issued is a 404.
func (h *Handler) CloseSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return
	}
	hd, known := h.take(id)
	if !known {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	if hd != nil {
		h.closeHandle(c.Request.Context(), hd)
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) sessionParam(c *gin.Context) (*device.Handle, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return nil, false
	}
	hd, ok := h.lookup(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return nil, false
	}
	return hd, true
}
