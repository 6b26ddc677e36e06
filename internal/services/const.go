package services

import (
	"fmt"
	"time"
)

const (
	CONFIG_SERVER_MODE          = "SERVER_MODE"
	CONFIG_CRONJOB_RECONCILE    = "CRONJOB_TIME_RECONCILE"
	CONFIG_CRONJOB_LEDGER_AUDIT = "CRONJOB_TIME_LEDGER_AUDIT"
	CONFIG_RECONCILE_BATCH_SIZE = "RECONCILE_BATCH_SIZE"

	SERVER_MODE_DEVELOPMENT = "development"
	SERVER_MODE_STAGING     = "staging"
	SERVER_MODE_PRODUCTION  = "production"
	SERVER_MODE_DEBUG       = "debug"

	CACHE_TTL_5_SECONDS = 5 * time.Second
	CACHE_TTL_1_MIN     = 1 * time.Minute
	CACHE_TTL_5_MINS    = 5 * time.Minute
	CACHE_TTL_1_HOUR    = 1 * time.Hour
	CACHE_TTL_1_DAY     = 24 * time.Hour

	DEFAULT_WITHDRAW_MIN_AMOUNT   = "10.00"
	DEFAULT_WITHDRAW_MAX_PER_DAY  = 3
	DEFAULT_IDEMPOTENCY_TTL       = 24 * time.Hour
	DEFAULT_SUMMARY_DAYS          = 30
	DEFAULT_RECONCILE_BATCH_SIZE  = 100
	DEFAULT_PURCHASE_USER_PER_MIN = 20
	DEFAULT_PURCHASE_IP_PER_MIN   = 10
	DEFAULT_FINANCIAL_PER_5_MINS  = 3
	DEFAULT_CATEGORY_RTP          = 85
	CATEGORY_RTP_MIN              = 50
	CATEGORY_RTP_MAX              = 95
	MAX_SUMMARY_DAYS              = 365
	DEFAULT_LEDGER_AUDIT_BATCH    = 500
)

func LockKeyUserWallet(userID string) string {
	return fmt.Sprintf("lock:user_wallet:%s", userID)
}

func DBKeyConfig(key string) string {
	return fmt.Sprintf("config:%s", key)
}

func DBKeyCategoryList() string {
	return "scratch:category:list"
}

func DBKeyCategory(slug string) string {
	return fmt.Sprintf("scratch:category:%s", slug)
}

func DBKeyPurchaseIdempotency(userID string, key string) string {
	return fmt.Sprintf("purchase:%s:%s", userID, key)
}

func LimitKeyUserPurchase(userID string) string {
	return fmt.Sprintf("limit:purchase:user:%s", userID)
}

func LimitKeyIPPurchase(ip string) string {
	return fmt.Sprintf("limit:purchase:ip:%s", ip)
}

func LimitKeyUserFinancial(userID string) string {
	return fmt.Sprintf("limit:financial:user:%s", userID)
}
