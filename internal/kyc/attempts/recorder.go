// Package attempts records every verification provider call for compliance.
// Recording is fire-and-forget: a slow or failing sink never blocks or fails
// the verification that produced the attempt.
package attempts

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mssola/useragent"

	"onboard/internal/kyc/models"
)

// ErrBufferFull is returned when the recorder queue cannot take more attempts.
var ErrBufferFull = errors.New("attempt buffer full")

const defaultBufferSize = 256

// Metadata keys derived from the User-Agent.
const (
	MetaBrowser  = "browser"
	MetaOS       = "os"
	MetaPlatform = "platform"
	MetaMobile   = "mobile"
	MetaBot      = "bot"
)

type metrics interface {
	IncrementAttemptsDropped()
	IncrementAttemptWriteErrors()
}

// Recorder queues attempts and persists them from a single goroutine.
type Recorder struct {
	store   Store
	logger  *slog.Logger
	metrics metrics

	queue chan models.VerificationAttempt
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

type Option func(*Recorder)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithMetrics(m metrics) Option {
	return func(r *Recorder) {
		r.metrics = m
	}
}

// NewRecorder starts the persisting goroutine. Call Close to drain it.
func NewRecorder(store Store, bufferSize int, opts ...Option) *Recorder {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	r := &Recorder{
		store:  store,
		logger: slog.Default(),
		queue:  make(chan models.VerificationAttempt, bufferSize),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.drain()
	return r
}

// Record enqueues an attempt. It never blocks; when the buffer is full the
// attempt is dropped, logged and counted.
func (r *Recorder) Record(ctx context.Context, attempt models.VerificationAttempt) {
	attempt.Metadata = enrich(attempt.Metadata, attempt.UserAgent)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.dropped(ctx, attempt, "recorder closed")
		return
	}
	select {
	case r.queue <- attempt:
	default:
		r.dropped(ctx, attempt, "buffer full")
	}
}

func (r *Recorder) dropped(ctx context.Context, attempt models.VerificationAttempt, reason string) {
	if r.metrics != nil {
		r.metrics.IncrementAttemptsDropped()
	}
	r.logger.WarnContext(ctx, "dropping verification attempt",
		"reason", reason,
		"attempt_id", attempt.ID.String(),
		"user_id", attempt.UserID.String(),
		"document_type", string(attempt.DocumentType),
		"status", string(attempt.Status),
	)
}

// Close stops accepting attempts and blocks until queued ones are persisted.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()
	<-r.done
}

func (r *Recorder) drain() {
	defer close(r.done)
	for attempt := range r.queue {
		// Detached: the verifying request may be long gone.
		if err := r.store.Append(context.Background(), attempt); err != nil {
			if r.metrics != nil {
				r.metrics.IncrementAttemptWriteErrors()
			}
			r.logger.Error("failed to persist verification attempt",
				"attempt_id", attempt.ID.String(),
				"user_id", attempt.UserID.String(),
				"error", err,
			)
		}
	}
}

// enrich adds parsed User-Agent facts without overwriting caller metadata.
func enrich(meta map[string]string, ua string) map[string]string {
	if ua == "" {
		return meta
	}
	out := make(map[string]string, len(meta)+5)
	parsed := useragent.New(ua)
	name, version := parsed.Browser()
	if name != "" {
		out[MetaBrowser] = name
		if version != "" {
			out[MetaBrowser] = name + " " + version
		}
	}
	if os := parsed.OS(); os != "" {
		out[MetaOS] = os
	}
	if p := parsed.Platform(); p != "" {
		out[MetaPlatform] = p
	}
	if parsed.Mobile() {
		out[MetaMobile] = "true"
	}
	if parsed.Bot() {
		out[MetaBot] = "true"
	}
	for k, v := range meta {
		out[k] = v
	}
	return out
}
