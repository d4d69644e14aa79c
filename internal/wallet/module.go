package wallet

import (
	"context"
	"fmt"

	"github.com/gurman-sys/rentbuddy/pkg/plugin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Module exposes the wallet over HTTP.
type Module struct {
	svc    *Service
	logger *zap.Logger
}

// New creates the wallet module.
func New(svc *Service) *Module {
	return &Module{svc: svc, logger: zap.NewNop()}
}

func (m *Module) Name() string    { return "wallet" }
func (m *Module) Version() string { return "0.1.0" }

// Init reads the wallet rules, keeping defaults for unset keys.
func (m *Module) Init(config *viper.Viper, logger *zap.Logger) error {
	m.logger = logger
	l := DefaultLimits()
	if config != nil {
		if err := config.Unmarshal(&l); err != nil {
			return fmt.Errorf("wallet config: %w", err)
		}
	}
	m.svc.SetLimits(l)
	return nil
}

// ValidateConfig implements plugin.Validator.
func (m *Module) ValidateConfig() error {
	l := m.svc.Limits()
	if l.MinTopUp <= 0 || l.MaxTopUp < l.MinTopUp {
		return fmt.Errorf("top-up window [%v, %v] is invalid", l.MinTopUp, l.MaxTopUp)
	}
	if l.VerificationBonus < 0 || l.WelcomeBonus < 0 || l.MinRentBalance < 0 {
		return fmt.Errorf("bonus and balance limits must not be negative")
	}
	return nil
}

func (m *Module) Start(_ context.Context) error { return nil }

func (m *Module) Stop() error { return nil }

func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "", Handler: m.handleGetWallet},
		{Method: "GET", Path: "/transactions", Handler: m.handleTransactions},
		{Method: "POST", Path: "/topup", Handler: m.handleTopUp},
		{Method: "POST", Path: "/verify", Handler: m.handleVerify},
		{Method: "POST", Path: "/welcome-bonus", Handler: m.handleWelcomeBonus},
		{Method: "GET", Path: "/coupons", Handler: m.handleCoupons},
	}
}
