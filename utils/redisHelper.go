package utils

import (
	"os"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/invoices_backend/config"
)

func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

// VendorCacheKey holds the tenant's active vendor list; the resolver cascade
// reads it on every reconciliation.
func VendorCacheKey(businessId string) string {
	return "Vendors:Active:" + businessId
}

// ClearVendorCache must run after any vendor create, merge or toggle so the
// cascade never matches against stale master data.
func ClearVendorCache(businessId string) error {
	return config.RemoveRedisKey(VendorCacheKey(businessId))
}
