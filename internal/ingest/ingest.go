package ingest

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/sightline-analytics/sightline/internal/ratelimit"
	"github.com/sightline-analytics/sightline/internal/resolve"
	"github.com/sightline-analytics/sightline/internal/store"
	"github.com/sightline-analytics/sightline/internal/visitor"
)

// Scheduler hands lookup jobs to the background pipeline.
type Scheduler interface {
	Enqueue(job resolve.Job) bool
}

// Ping is the tracking payload sent by the instrumentation script.
type Ping struct {
	PageURL  string `json:"page_url"`
	Referrer string `json:"referrer"`
}

// Handler handles POST track pings. It acknowledges immediately and schedules
// enrichment in the background; the client never waits on a lookup.
type Handler struct {
	RateLimiter  *ratelimit.Limiter
	Store        store.Store
	Lookups      Scheduler
	TTL          time.Duration
	MaxBodyBytes int64
	Log          zerolog.Logger
	Metrics      *Metrics
	NowFn        func() time.Time
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondErr(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}

	addr := clientAddr(r)
	if addr == "" {
		h.Metrics.IncRequests(http.StatusBadRequest)
		h.respondErr(w, http.StatusBadRequest, "invalid_request")
		return
	}

	if !h.RateLimiter.Allow(addr) {
		h.Metrics.IncRequests(http.StatusTooManyRequests)
		h.Metrics.IncRateLimited()
		retry := int(h.RateLimiter.RetryAfter(addr).Seconds())
		if retry < 1 {
			retry = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		h.respondErr(w, http.StatusTooManyRequests, "rate_limit_exceeded")
		return
	}

	maxBody := h.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 64 * 1024
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	var ping Ping
	if err := json.NewDecoder(r.Body).Decode(&ping); err != nil {
		h.Metrics.IncRequests(http.StatusBadRequest)
		h.respondErr(w, http.StatusBadRequest, "invalid_request")
		return
	}

	now := h.now()
	id, err := h.Store.GetOrCreate(r.Context(), addr, now)
	if err != nil {
		h.Log.Error().Err(err).Str("addr", addr).Msg("get or create visitor")
		h.Metrics.IncRequests(http.StatusInternalServerError)
		h.respondErr(w, http.StatusInternalServerError, "internal_error")
		return
	}

	h.Metrics.IncRequests(http.StatusAccepted)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte(`{"success":true}`))

	// Resolution is fire and forget; the response above is already written.
	if PublicAddress(addr) && visitor.NeedsLookup(id, now, h.TTL) {
		h.Lookups.Enqueue(resolve.Job{
			Addr:      addr,
			UserAgent: r.UserAgent(),
			Referrer:  ping.Referrer,
		})
	}
}

func (h *Handler) now() time.Time {
	if h.NowFn != nil {
		return h.NowFn()
	}
	return time.Now().UTC()
}

func (h *Handler) respondErr(w http.ResponseWriter, code int, errMsg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(`{"error":"` + errMsg + `"}`))
}

// clientAddr extracts the client IP. chi's RealIP middleware rewrites
// RemoteAddr from X-Forwarded-For / X-Real-IP, possibly without a port.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if net.ParseIP(host) == nil {
		return ""
	}
	return host
}

// PublicAddress reports whether addr is routable and worth resolving.
// Private, loopback, link-local, and unspecified addresses never get lookups.
func PublicAddress(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	return !ip.IsPrivate() && !ip.IsLoopback() && !ip.IsLinkLocalUnicast() &&
		!ip.IsLinkLocalMulticast() && !ip.IsUnspecified()
}
