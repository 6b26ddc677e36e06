package services

import (
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/shopspring/decimal"

	"scratchcard/internal/scratch"
)

// Settings is the process configuration handed to every service through the container.
type Settings struct {
	Mode              string
	Engine            scratch.Config
	WithdrawMinAmount decimal.Decimal
	WithdrawMaxPerDay int
	Location          *time.Location
	IdempotencyTTL    time.Duration
	// WebhookSecret authenticates payment provider callbacks. Empty disables the webhook.
	WebhookSecret string

	PurchaseUserLimit redis_rate.Limit
	PurchaseIPLimit   redis_rate.Limit
	FinancialLimit    redis_rate.Limit
}

func DefaultSettings() *Settings {
	return &Settings{
		Mode:              SERVER_MODE_PRODUCTION,
		Engine:            scratch.DefaultConfig(),
		WithdrawMinAmount: decimal.RequireFromString(DEFAULT_WITHDRAW_MIN_AMOUNT),
		WithdrawMaxPerDay: DEFAULT_WITHDRAW_MAX_PER_DAY,
		Location:          time.Local,
		IdempotencyTTL:    DEFAULT_IDEMPOTENCY_TTL,
		PurchaseUserLimit: redis_rate.PerMinute(DEFAULT_PURCHASE_USER_PER_MIN),
		PurchaseIPLimit:   redis_rate.PerMinute(DEFAULT_PURCHASE_IP_PER_MIN),
		FinancialLimit: redis_rate.Limit{
			Rate:   DEFAULT_FINANCIAL_PER_5_MINS,
			Burst:  DEFAULT_FINANCIAL_PER_5_MINS,
			Period: 5 * time.Minute,
		},
	}
}

// LoadSettings overlays the optional environment values on the defaults.
func LoadSettings(vs map[string]string) (*Settings, error) {
	s := DefaultSettings()
	var err error

	if v := vs["API_MODE"]; v != "" {
		s.Mode = v
	}
	if v := vs["SCRATCH_TARGET_RTP"]; v != "" {
		if s.Engine.TargetRTP, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("SCRATCH_TARGET_RTP: %w", err)
		}
	}
	if v := vs["SCRATCH_LOSS_WEIGHT_RATIO"]; v != "" {
		if s.Engine.LossWeightRatio, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("SCRATCH_LOSS_WEIGHT_RATIO: %w", err)
		}
	}
	if v := vs["SCRATCH_WIN_VALUE_MULTIPLIER"]; v != "" {
		if s.Engine.WinValueMultiplier, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("SCRATCH_WIN_VALUE_MULTIPLIER: %w", err)
		}
	}
	if v := vs["SCRATCH_FIRST_PLAY_FORCED_WIN"]; v != "" {
		if s.Engine.FirstPlayForcedWin, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("SCRATCH_FIRST_PLAY_FORCED_WIN: %w", err)
		}
	}
	if v := vs["WITHDRAW_MIN_AMOUNT"]; v != "" {
		if s.WithdrawMinAmount, err = decimal.NewFromString(v); err != nil {
			return nil, fmt.Errorf("WITHDRAW_MIN_AMOUNT: %w", err)
		}
		if !s.WithdrawMinAmount.IsPositive() {
			return nil, fmt.Errorf("WITHDRAW_MIN_AMOUNT: must be positive, got %s", v)
		}
	}
	if v := vs["WITHDRAW_MAX_PER_DAY"]; v != "" {
		if s.WithdrawMaxPerDay, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("WITHDRAW_MAX_PER_DAY: %w", err)
		}
		if s.WithdrawMaxPerDay <= 0 {
			return nil, fmt.Errorf("WITHDRAW_MAX_PER_DAY: must be positive, got %s", v)
		}
	}
	if v := vs["TIMEZONE"]; v != "" {
		if s.Location, err = time.LoadLocation(v); err != nil {
			return nil, fmt.Errorf("TIMEZONE: %w", err)
		}
	}
	s.WebhookSecret = vs["PAYMENT_WEBHOOK_SECRET"]
	if v := vs["IDEMPOTENCY_TTL"]; v != "" {
		if s.IdempotencyTTL, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("IDEMPOTENCY_TTL: %w", err)
		}
	}
	if v := vs["RATE_LIMIT_PURCHASE_USER"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("RATE_LIMIT_PURCHASE_USER: %w", err)
		}
		s.PurchaseUserLimit = redis_rate.PerMinute(n)
	}
	if v := vs["RATE_LIMIT_PURCHASE_IP"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("RATE_LIMIT_PURCHASE_IP: %w", err)
		}
		s.PurchaseIPLimit = redis_rate.PerMinute(n)
	}

	return s, nil
}
