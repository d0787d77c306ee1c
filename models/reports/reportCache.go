package reports

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/config"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
	"github.com/sirupsen/logrus"
)

// Report caching is opt-in (ENABLE_REPORT_CACHE) because stale aggregates
// right after a reversal confuse users more than a slow query does.

func reportCacheEnabled() bool {
	return config.BoolFromEnv("ENABLE_REPORT_CACHE")
}

func reportCacheTTL() time.Duration {
	return time.Duration(config.IntFromEnv("REPORT_CACHE_TTL_SECONDS", 120)) * time.Second
}

// logSlowReport flags report queries past REPORT_SLOW_MS (default 500).
func logSlowReport(ctx context.Context, name string, started time.Time, extra map[string]any) {
	elapsed := time.Since(started)
	threshold := int64(config.IntFromEnv("REPORT_SLOW_MS", 500))
	if elapsed.Milliseconds() < threshold {
		return
	}
	businessId, _ := utils.GetBusinessIdFromContext(ctx)
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	config.GetLogger().WithFields(logrus.Fields{
		"report":         name,
		"ms":             elapsed.Milliseconds(),
		"business_id":    businessId,
		"correlation_id": correlationId,
		"extra":          extra,
	}).Warn("slow report query")
}

// InvalidateBusinessCaches drops every cached report for the tenant.
// Runs after a deletion or reversal commits so aggregates never keep
// serving pre-reversal numbers for the remainder of the cache TTL.
func InvalidateBusinessCaches(businessId string) error {
	if !reportCacheEnabled() || businessId == "" {
		return nil
	}
	keys, err := config.ScanRedisKeys(fmt.Sprintf("report:*:%s*", businessId))
	if err != nil || len(keys) == 0 {
		return err
	}
	return config.RemoveRedisKey(keys...)
}

func cacheGet[T any](key string, dest *T) (bool, error) {
	return config.GetRedisObject(key, dest)
}

func cacheSet(key string, obj any, ttl time.Duration) error {
	return config.SetRedisObject(key, obj, ttl)
}
