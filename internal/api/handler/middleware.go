package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"cabshare/backend/internal/config"

	"github.com/gin-gonic/gin"
)

// RateLimit is a fixed-window counter in Redis keyed per caller. Fail-open:
// a Redis error lets the request through, it never blocks traffic.
func (h *Handler) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := currentUserID(c)
		if caller == "" {
			caller = c.ClientIP()
		}
		key := "rl:" + caller

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		count, err := h.Redis.Incr(ctx, key).Result()
		if err != nil {
			log.Printf("WARNING: Rate limit check failed for %s: %v", caller, err)
			c.Next()
			return
		}
		if count == 1 {
			// Without a TTL the counter never resets and the caller would be
			// limited forever; fail open instead.
			if err := h.Redis.Expire(ctx, key, config.APIRateWindow).Err(); err != nil {
				log.Printf("WARNING: Rate limit window set failed for %s: %v", caller, err)
				c.Next()
				return
			}
		}
		if count > config.APIRateLimit {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests, please try again later",
			})
			return
		}

		c.Next()
	}
}

// BanGuard rejects banned users before the request reaches the engine.
// Ban policy itself is owned by the external moderation service; this only
// reads the flag.
func (h *Handler) BanGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		banned, err := h.Storage.IsUserBanned(currentUserID(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		if banned {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You are banned from this action"})
			return
		}
		c.Next()
	}
}
