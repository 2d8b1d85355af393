package handler

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/Shivanand-hulikatti/club-events/internal/auth"
	"github.com/Shivanand-hulikatti/club-events/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// IdempotencyKeyHeader carries the client's retry key on mutating requests.
	IdempotencyKeyHeader = "X-Idempotency-Key"
	idempotencyKeyPrefix = "club-events:idempotency:"
)

type idempotencyStatus string

const (
	statusProcessing idempotencyStatus = "processing"
	statusCompleted  idempotencyStatus = "completed"
)

type idempotencyRecord struct {
	Status       idempotencyStatus `json:"status"`
	RequestHash  string            `json:"request_hash"`
	ResponseCode int               `json:"response_code"`
	ResponseBody string            `json:"response_body"`
	CreatedAt    time.Time         `json:"created_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
}

// RedisClient is the subset of *redis.Client the idempotency middleware uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// IdempotencyConfig configures Idempotency.
type IdempotencyConfig struct {
	Redis RedisClient
	// TTL keeps completed responses for replay.
	TTL time.Duration
	// ProcessingTTL bounds how long an in-flight marker blocks retries if the
	// server dies mid-request.
	ProcessingTTL time.Duration
	Log           *zap.Logger
}

var idempotentMethods = []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

// Idempotency replays the stored response when a mutating request is retried
// with the same X-Idempotency-Key. Requests without the header pass through.
// A key reused for a different request is rejected with 422 and a retry that
// races the original gets 409. Redis failures fail open.
//
// It must run after Authenticate so the caller is part of the request hash.
func Idempotency(cfg IdempotencyConfig) func(http.Handler) http.Handler {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.ProcessingTTL <= 0 {
		cfg.ProcessingTTL = 60 * time.Second
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyKeyHeader)
			if key == "" || !slices.Contains(idempotentMethods, r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			var body []byte
			if r.Body != nil {
				var err error
				body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
				if err != nil {
					badRequest(w, err)
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			ctx := r.Context()
			hash := requestHash(r, body)
			redisKey := idempotencyKeyPrefix + key

			existing, err := getRecord(ctx, cfg.Redis, redisKey)
			if err != nil && !errors.Is(err, redis.Nil) {
				cfg.Log.Warn("idempotency lookup failed, continuing without it", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if existing != nil {
				replay(w, existing, hash)
				return
			}

			record := &idempotencyRecord{Status: statusProcessing, RequestHash: hash, CreatedAt: time.Now()}
			claimed, err := setRecordNX(ctx, cfg.Redis, redisKey, record, cfg.ProcessingTTL)
			if err != nil {
				cfg.Log.Warn("idempotency claim failed, continuing without it", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !claimed {
				// Another request claimed the key between our read and write.
				// If its record is already gone again we still do not own the
				// key, so the client has to retry.
				if existing, _ = getRecord(ctx, cfg.Redis, redisKey); existing != nil {
					replay(w, existing, hash)
					return
				}
				writeError(w, http.StatusConflict, model.KindInvalidTransition,
					"a request with this idempotency key is already being processed")
				return
			}

			rec := &capturingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			// Server errors are not replayed so the client can retry them.
			// The record is cleaned up with a detached context because the
			// request context may already be cancelled.
			store := context.WithoutCancel(ctx)
			if rec.status >= http.StatusInternalServerError {
				if err := cfg.Redis.Del(store, redisKey).Err(); err != nil {
					cfg.Log.Warn("idempotency release failed", zap.Error(err))
				}
				return
			}
			now := time.Now()
			record.Status = statusCompleted
			record.ResponseCode = rec.status
			record.ResponseBody = rec.body.String()
			record.CompletedAt = &now
			if err := setRecord(store, cfg.Redis, redisKey, record, cfg.TTL); err != nil {
				cfg.Log.Warn("idempotency save failed", zap.Error(err))
			}
		})
	}
}

func replay(w http.ResponseWriter, rec *idempotencyRecord, hash string) {
	switch {
	case rec.RequestHash != hash:
		writeError(w, http.StatusUnprocessableEntity, model.KindValidation,
			"idempotency key already used with a different request")
	case rec.Status == statusProcessing:
		writeError(w, http.StatusConflict, model.KindInvalidTransition,
			"a request with this idempotency key is already being processed")
	default:
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(rec.ResponseCode)
		_, _ = io.WriteString(w, rec.ResponseBody)
	}
}

// requestHash binds a key to the method, path, caller and body it was first used with.
func requestHash(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method))
	h.Write([]byte(r.URL.Path))
	if actor, ok := auth.ActorFrom(r.Context()); ok {
		h.Write([]byte(actor.UserID))
	}
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func getRecord(ctx context.Context, rdb RedisClient, key string) (*idempotencyRecord, error) {
	raw, err := rdb.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	var rec idempotencyRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func setRecordNX(ctx context.Context, rdb RedisClient, key string, rec *idempotencyRecord, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}
	return rdb.SetNX(ctx, key, string(data), ttl).Result()
}

func setRecord(ctx context.Context, rdb RedisClient, key string, rec *idempotencyRecord, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, string(data), ttl).Err()
}

// capturingWriter records the response so it can be stored for replay.
type capturingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *capturingWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}
