package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ArowuTest/srandom/internal/auth"
	"github.com/ArowuTest/srandom/internal/config"
	"github.com/ArowuTest/srandom/internal/device"
	"github.com/ArowuTest/srandom/internal/models"
	"github.com/ArowuTest/srandom/internal/store"
)

// Options carries the HTTP-facing settings.
type Options struct {
	MaxReadBytes      int
	AdminUsername     string
	AdminPasswordHash string
	FrontendURL       string
}

// Handler binds the device to HTTP. Open sessions live here, keyed by
// handle ID, until they are deleted or the handler shuts down.
type Handler struct {
	dev    *device.Device
	rec    store.Recorder
	issuer *auth.Issuer
	opts   Options
	log    zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*device.Handle
	closed   map[uuid.UUID]struct{}
}

// New returns a Handler. rec may be nil, in which case an in-memory
// recorder is used.
func New(dev *device.Device, rec store.Recorder, issuer *auth.Issuer, opts Options, log zerolog.Logger) *Handler {
	if rec == nil {
		rec = store.NewMemory(0)
	}
	if opts.MaxReadBytes <= 0 {
		opts.MaxReadBytes = 1 << 20
	}
	return &Handler{
		dev:      dev,
		rec:      rec,
		issuer:   issuer,
		opts:     opts,
		log:      log,
		now:      time.Now,
		sessions: make(map[uuid.UUID]*device.Handle),
		closed:   make(map[uuid.UUID]struct{}),
	}
}

// Router mounts every route on a fresh gin engine.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(h.log), config.CORSMiddleware(h.opts.FrontendURL))

	api := r.Group("/api/v1")
	{
		api.GET("/status", h.Status)
		api.GET("/random", h.Random)
		api.GET("/random/uint64", h.RandomUint64)

		sessions := api.Group("/sessions")
		{
			sessions.POST("", h.OpenSession)            // open
			sessions.GET("/:id/bytes", h.ReadSession)   // read
			sessions.POST("/:id/bytes", h.WriteSession) // write (discarded)
			sessions.DELETE("/:id", h.CloseSession)     // close
		}

		api.POST("/admin/login", h.Login)
		admin := api.Group("/admin")
		{
			admin.POST("/reseed", h.RequireAuth(models.RoleAdmin), h.Reseed)
			readers := h.RequireAuth(models.RoleAdmin, models.RoleAuditor)
			admin.GET("/snapshots", readers, h.ListSnapshots)
			admin.GET("/sessions", readers, h.ListSessions)
		}
	}
	return r
}

// Shutdown closes every session still open and records the closures.
func (h *Handler) Shutdown(ctx context.Context) {
	h.mu.Lock()
	open := h.sessions
	h.sessions = make(map[uuid.UUID]*device.Handle)
	for id := range open {
		h.closed[id] = struct{}{}
	}
	h.mu.Unlock()

	for _, hd := range open {
		h.closeHandle(ctx, hd)
	}
	if len(open) > 0 {
		h.log.Info().Int("sessions", len(open)).Msg("closed open sessions")
	}
}

func (h *Handler) lookup(id uuid.UUID) (*device.Handle, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	hd, ok := h.sessions[id]
	return hd, ok
}

// take removes an open session. known is false only for an ID this handler
// never issued.
func (h *Handler) take(id uuid.UUID) (*device.Handle, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if hd, ok := h.sessions[id]; ok {
		delete(h.sessions, id)
		h.closed[id] = struct{}{}
		return hd, true
	}
	_, known := h.closed[id]
	return nil, known
}

func (h *Handler) openHandle(ctx context.Context, remote string, track bool) (*device.Handle, error) {
	hd, err := h.dev.Open()
	if err != nil {
		return nil, err
	}
	if track {
		h.mu.Lock()
		h.sessions[hd.ID()] = hd
		h.mu.Unlock()
	}
	err = h.rec.SessionOpened(ctx, models.Session{
		ID:         hd.ID(),
		Device:     h.dev.Name(),
		RemoteAddr: remote,
		OpenedAt:   h.now().UTC(),
	})
	if err != nil {
		h.log.Warn().Err(err).Str("session", hd.ID().String()).Msg("could not record session open")
	}
	return hd, nil
}

func (h *Handler) closeHandle(ctx context.Context, hd *device.Handle) {
	if err := hd.Close(); err != nil {
		h.log.Warn().Err(err).Str("session", hd.ID().String()).Msg("close-time refresh failed")
	}
	err := h.rec.SessionClosed(ctx, hd.ID(), h.now().UTC(), hd.BytesRead(), hd.BytesWritten())
	if err != nil {
		h.log.Warn().Err(err).Str("session", hd.ID().String()).Msg("could not record session close")
	}
}
