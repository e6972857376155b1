package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"lumberyard/internal/core"
	"lumberyard/internal/logger"

	"github.com/redis/go-redis/v9"
)

// ErrIdempotencyInProgress is returned by IdempotencyStore.Begin while another
// request holds the same key.
var ErrIdempotencyInProgress = errors.New("request with this idempotency key is in progress")

// CachedResponse is the stored outcome of the first request for a key.
type CachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// IdempotencyStore reserves keys and remembers the response they produced.
type IdempotencyStore interface {
	// Begin reserves key for ttl. It returns (nil, nil) when the caller now owns
	// the key, the cached response when the key already completed, or
	// ErrIdempotencyInProgress.
	Begin(ctx context.Context, key string, ttl time.Duration) (*CachedResponse, error)
	Complete(ctx context.Context, key string, resp CachedResponse, ttl time.Duration) error
	// Abort releases a reservation so the request can be retried.
	Abort(ctx context.Context, key string) error
}

const pendingMarker = "__pending__"

// RedisIdempotencyStore keeps reservations in Redis with SET NX.
type RedisIdempotencyStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisIdempotencyStore(rdb *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{rdb: rdb, prefix: "idem:"}
}

func (s *RedisIdempotencyStore) Begin(ctx context.Context, key string, ttl time.Duration) (*CachedResponse, error) {
	k := s.prefix + key
	// A reservation may expire between SETNX and GET; one retry covers that.
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.rdb.SetNX(ctx, k, pendingMarker, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to reserve idempotency key: %w", err)
		}
		if ok {
			return nil, nil
		}
		raw, err := s.rdb.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read idempotency key: %w", err)
		}
		if string(raw) == pendingMarker {
			return nil, ErrIdempotencyInProgress
		}
		var resp CachedResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("failed to decode cached response: %w", err)
		}
		return &resp, nil
	}
	return nil, ErrIdempotencyInProgress
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key string, resp CachedResponse, ttl time.Duration) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	if err := s.rdb.Set(ctx, s.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store response: %w", err)
	}
	return nil
}

func (s *RedisIdempotencyStore) Abort(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

var validIdempotencyKey = regexp.MustCompile(`^[a-zA-Z0-9\-_:.]{1,128}$`)

// Idempotency replays the first response for a repeated Idempotency-Key from
// the same actor on the same route. Requests without the header, or any
// request when store is nil, pass straight through. Server errors are not
// cached so the caller may retry.
func Idempotency(store IdempotencyStore, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Idempotency-Key")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !validIdempotencyKey.MatchString(header) {
				writeError(w, r, "Idempotency-Key must be 1-128 characters of [A-Za-z0-9-_:.]", "INVALID_IDEMPOTENCY_KEY", http.StatusBadRequest)
				return
			}

			actor, _ := core.ActorFromContext(r.Context())
			key := strconv.Itoa(actor.UserID) + ":" + r.Method + ":" + r.URL.Path + ":" + header
			l := logger.WithRequestID(requestIDFromContext(r.Context()))

			cached, err := store.Begin(r.Context(), key, ttl)
			switch {
			case errors.Is(err, ErrIdempotencyInProgress):
				writeError(w, r, err.Error(), "IDEMPOTENCY_IN_PROGRESS", http.StatusConflict)
				return
			case err != nil:
				l.Error().Err(err).Msg("idempotency store unavailable")
				writeError(w, r, "idempotency store unavailable, retry later", "IDEMPOTENCY_UNAVAILABLE", http.StatusServiceUnavailable)
				return
			case cached != nil:
				w.Header().Set("Idempotent-Replayed", "true")
				if cached.ContentType != "" {
					w.Header().Set("Content-Type", cached.ContentType)
				}
				w.WriteHeader(cached.Status)
				_, _ = w.Write(cached.Body)
				return
			}

			rec := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			// The request context may already be cancelled once the client has
			// its response; store with a detached one.
			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 5*time.Second)
			defer cancel()
			if rec.status >= http.StatusInternalServerError {
				if err := store.Abort(ctx, key); err != nil {
					l.Warn().Err(err).Msg("failed to release idempotency key")
				}
				return
			}
			resp := CachedResponse{Status: rec.status, ContentType: rec.Header().Get("Content-Type"), Body: rec.body.Bytes()}
			if err := store.Complete(ctx, key, resp, ttl); err != nil {
				l.Warn().Err(err).Msg("failed to store idempotent response")
			}
		})
	}
}

// captureWriter writes through to the client while keeping a copy of the body.
type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *captureWriter) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
