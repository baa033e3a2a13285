package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"

	"geosafe/internal/domain/entities"
)

// RateLimit limits requests per caller using a "<limit>-<period>" rate such
// as "30-M". Signed-in users are keyed by ID and guests by client IP. If the
// store fails the request is let through.
func RateLimit(name, rate string, logger *zap.Logger) (gin.HandlerFunc, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}
	lim := limiter.New(memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          "geosafe:" + name,
		CleanUpInterval: time.Minute,
	}), parsed)

	return func(c *gin.Context) {
		key := GetUserID(c)
		if key == entities.GuestReporter {
			key = "ip:" + c.ClientIP()
		}

		lc, err := lim.Get(c.Request.Context(), key)
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.String("limiter", name), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lc.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lc.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lc.Reset, 10))
		if lc.Reached {
			retry := time.Until(time.Unix(lc.Reset, 0))
			c.Header("Retry-After", strconv.Itoa(max(1, int(retry.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}, nil
}
