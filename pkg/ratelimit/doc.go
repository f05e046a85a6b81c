// Package ratelimit throttles calls to the scraping actor.
//
// TokenBucket hands out a fixed number of tokens per period and refills the
// whole bucket once the period has elapsed. Wait blocks until a token is
// available or the context ends:
//
//	limiter := ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
//	// call the actor
//
// Unlimited is a no-op Limiter for when requests_per_minute is 0.
package ratelimit
