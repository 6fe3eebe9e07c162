package config

import (
	"github.com/shopspring/decimal"

	"bankguard/internal/ledger"
)

// Profile holds the spend ceilings and velocity allowance for one account
// tier. Profiles are static configuration, immutable at request time.
type Profile struct {
	Tier                   ledger.Tier
	SingleTransactionLimit decimal.Decimal
	DailyDepositLimit      decimal.Decimal
	DailyWithdrawalLimit   decimal.Decimal
	DailyTransferLimit     decimal.Decimal
	MonthlyLimit           decimal.Decimal
	VelocityLimit          int // transactions per minute
}

// Config maps account tiers to their limit profiles.
type Config struct {
	Profiles map[ledger.Tier]Profile
}

// DefaultConfig returns the stock tier profiles.
func DefaultConfig() *Config {
	return &Config{
		Profiles: map[ledger.Tier]Profile{
			ledger.TierBasic: {
				Tier:                   ledger.TierBasic,
				SingleTransactionLimit: decimal.NewFromInt(5000),
				DailyDepositLimit:      decimal.NewFromInt(10000),
				DailyWithdrawalLimit:   decimal.NewFromInt(1000),
				DailyTransferLimit:     decimal.NewFromInt(2500),
				MonthlyLimit:           decimal.NewFromInt(50000),
				VelocityLimit:          3,
			},
			ledger.TierPremium: {
				Tier:                   ledger.TierPremium,
				SingleTransactionLimit: decimal.NewFromInt(25000),
				DailyDepositLimit:      decimal.NewFromInt(50000),
				DailyWithdrawalLimit:   decimal.NewFromInt(10000),
				DailyTransferLimit:     decimal.NewFromInt(25000),
				MonthlyLimit:           decimal.NewFromInt(250000),
				VelocityLimit:          5,
			},
			ledger.TierBusiness: {
				Tier:                   ledger.TierBusiness,
				SingleTransactionLimit: decimal.NewFromInt(100000),
				DailyDepositLimit:      decimal.NewFromInt(250000),
				DailyWithdrawalLimit:   decimal.NewFromInt(50000),
				DailyTransferLimit:     decimal.NewFromInt(100000),
				MonthlyLimit:           decimal.NewFromInt(1000000),
				VelocityLimit:          10,
			},
		},
	}
}

// Get returns the profile for a tier, falling back to the basic tier's
// profile when the tier is unknown. Unknown tiers get the most restrictive
// ceilings rather than an error.
func (c *Config) Get(tier ledger.Tier) Profile {
	if p, ok := c.Profiles[tier]; ok {
		return p
	}
	return c.Profiles[ledger.TierBasic]
}

// DailyLimitFor returns the per-type daily ceiling. Payments and wires draw
// from the transfer allowance.
func (p Profile) DailyLimitFor(txType ledger.TransactionType) decimal.Decimal {
	switch txType {
	case ledger.TypeDeposit:
		return p.DailyDepositLimit
	case ledger.TypeWithdrawal:
		return p.DailyWithdrawalLimit
	default:
		return p.DailyTransferLimit
	}
}
