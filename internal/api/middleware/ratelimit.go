// ratelimit.go — ограничение попыток входа и регистрации через Redis.
// Фиксированное окно: INCR ключа rate_limit:<scope>:<ip> и EXPIRE NX
// в одной транзакции. Ошибки Redis не блокируют запрос.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	apierrors "github.com/studyon/study-on/internal/api/errors"
)

// RateLimiter — ограничитель частоты запросов по IP клиента.
type RateLimiter struct {
	client redis.Cmdable
	limit  int
	window time.Duration
	logger *slog.Logger
}

// NewRateLimiter создаёт ограничитель: limit запросов за window.
func NewRateLimiter(client redis.Cmdable, limit int, window time.Duration, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
		logger: logger.With(slog.String("component", "rate_limiter")),
	}
}

// Limit возвращает middleware с отдельным счётчиком для scope ("login", "register").
func (rl *RateLimiter) Limit(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("rate_limit:%s:%s", scope, clientIP(r))

			count, err := rl.hit(r.Context(), key)
			if err != nil {
				rl.logger.Warn("Redis недоступен, ограничение пропущено",
					slog.String("scope", scope),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			if count > int64(rl.limit) {
				retryAfter := rl.retryAfter(r, key)
				rl.logger.Info("Превышен лимит попыток",
					slog.String("scope", scope),
					slog.String("remote_addr", r.RemoteAddr),
					slog.Int64("count", count),
				)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				apierrors.TooManyRequests(w,
					fmt.Sprintf("Too many attempts. Try again in %d seconds.", retryAfter))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// hit увеличивает счётчик окна и в той же транзакции MULTI/EXEC задаёт
// срок ключа, если его ещё нет (EXPIRE NX). Ключ без срока не остаётся
// даже после сбоя предыдущего запроса.
func (rl *RateLimiter) hit(ctx context.Context, key string) (int64, error) {
	var incr *redis.IntCmd
	_, err := rl.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, rl.window)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// retryAfter — секунды до сброса окна (не меньше 1).
func (rl *RateLimiter) retryAfter(r *http.Request, key string) int {
	ttl, err := rl.client.TTL(r.Context(), key).Result()
	if err != nil || ttl <= 0 {
		ttl = rl.window
	}
	return int(math.Max(1, math.Ceil(ttl.Seconds())))
}

// clientIP — IP из RemoteAddr без порта.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
