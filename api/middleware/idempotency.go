package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/angelmondragon/merchdrop-backend/api/responses"
	pkgerrors "github.com/angelmondragon/merchdrop-backend/pkg/errors"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/merchdrop-backend/pkg/redis"
)

const (
	idempotencyHeader      = "Idempotency-Key"
	idempotentReplayHeader = "Idempotent-Replayed"
	maxIdempotencyKeyLen   = 255

	DefaultIdempotencyTTL = 24 * time.Hour
	LongIdempotencyTTL    = 7 * 24 * time.Hour

	// a claim outlives any sane handler but frees itself if the process dies
	inFlightTTL = time.Minute
)

// IdempotencyPolicy configures replay for one route. Required rejects
// requests without a key; otherwise keyless requests pass straight through.
type IdempotencyPolicy struct {
	TTL      time.Duration
	Required bool
}

func (p IdempotencyPolicy) ttl() time.Duration {
	if p.TTL <= 0 {
		return DefaultIdempotencyTTL
	}
	return p.TTL
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	RequestHash string `json:"request_hash"`
}

// Idempotency replays the first non-5xx response recorded under an
// Idempotency-Key. A second request arriving while the first is still
// running gets a conflict instead of running the handler twice.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger, policy IdempotencyPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if !mutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			switch {
			case key == "" && policy.Required:
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			case key == "":
				next.ServeHTTP(w, r)
				return
			case len(key) > maxIdempotencyKeyLen:
				responses.WriteError(ctx, logg, w, pkgerrors.Newf(pkgerrors.CodeValidation, "Idempotency-Key must be at most %d characters", maxIdempotencyKeyLen))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			sum := sha256.Sum256(body)
			requestHash := hex.EncodeToString(sum[:])
			recordKey := store.IdempotencyKey(requestScope(r), key)

			stored, err := store.Get(ctx, recordKey)
			switch {
			case err != nil && !errors.Is(err, pkgredis.ErrNil):
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency record"))
				return
			case stored != "":
				replay(ctx, logg, w, stored, requestHash)
				return
			}

			lockKey := recordKey + ":inflight"
			claimed, err := store.SetNX(ctx, lockKey, requestHash, inFlightTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this Idempotency-Key is still in progress"))
				return
			}
			defer func() {
				if delErr := store.Del(ctx, lockKey); delErr != nil && logg != nil {
					logg.Error(ctx, "idempotency.release_failed", delErr)
				}
			}()

			var captured bytes.Buffer
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&captured)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			// 5xx stays retryable under the same key
			if status >= http.StatusInternalServerError {
				return
			}
			payload, err := json.Marshal(storedResponse{
				Status:      status,
				ContentType: ww.Header().Get("Content-Type"),
				Body:        captured.Bytes(),
				RequestHash: requestHash,
			})
			if err == nil {
				_, err = store.SetNX(ctx, recordKey, string(payload), policy.ttl())
			}
			if err != nil && logg != nil {
				logg.Error(ctx, "idempotency.persist_failed", err)
			}
		})
	}
}

func replay(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, stored, requestHash string) {
	var rec storedResponse
	if err := json.Unmarshal([]byte(stored), &rec); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	if rec.RequestHash != requestHash {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return
	}
	if rec.ContentType != "" {
		w.Header().Set("Content-Type", rec.ContentType)
	}
	w.Header().Set(idempotentReplayHeader, "true")
	w.WriteHeader(rec.Status)
	_, _ = w.Write(rec.Body)
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// requestScope keeps keys from colliding across admins and endpoints.
func requestScope(r *http.Request) string {
	actor := AdminSessionFromContext(r.Context())
	if actor == "" {
		actor = "public"
	}
	return actor + "|" + r.Method + "|" + r.URL.Path
}
