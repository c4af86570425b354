// Package system guarantees the well-known ledger anchor wallets exist before
// any other component references them. A provisioning failure is fatal to
// startup: no partial system may run without its ledger anchors.
package system

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowsplit/flowsplit/internal/ledger"
	"github.com/flowsplit/flowsplit/internal/storage"
)

// Provisioner performs idempotent find-or-create of system wallets keyed by
// their static ids.
type Provisioner struct {
	store  storage.Store
	logger *slog.Logger
}

// NewProvisioner builds a system wallet provisioner.
func NewProvisioner(store storage.Store, logger *slog.Logger) *Provisioner {
	return &Provisioner{store: store, logger: logger}
}

// EnsureAll provisions every wallet the platform depends on.
func (p *Provisioner) EnsureAll(ctx context.Context) error {
	anchors := []struct {
		id, name string
	}{
		{ledger.WalletCreationSourceID, "System: Wallet Creation Source"},
		{ledger.FundsInTransitWalletID, "System: Funds in Transit"},
		{ledger.PaystackIngressWalletID, "System: Paystack Ingress"},
	}
	for _, a := range anchors {
		if err := p.EnsureSystemWallet(ctx, a.id, a.name, ledger.WalletTypeSource); err != nil {
			return fmt.Errorf("ensure system wallet %s: %w", a.id, err)
		}
	}
	p.logger.Info("system wallets verified and ready")
	return nil
}

// EnsureSystemWallet creates the wallet if it does not already exist.
func (p *Provisioner) EnsureSystemWallet(ctx context.Context, id, name string, t ledger.WalletType) error {
	if _, err := p.store.Wallet(ctx, id); err == nil {
		return nil
	} else if !errors.Is(err, ledger.ErrNotFound) {
		return err
	}

	p.logger.Info("creating system wallet", "wallet_id", id, "name", name)
	err := p.store.WithinTx(ctx, func(tx storage.UnitOfWork) error {
		if _, err := tx.Wallet(ctx, id); err == nil {
			return nil // another instance won the race
		} else if !errors.Is(err, ledger.ErrNotFound) {
			return err
		}
		return tx.CreateWallet(ctx, ledger.Wallet{
			ID:        id,
			Name:      name,
			Type:      t,
			Currency:  ledger.DefaultCurrency,
			CreatedAt: time.Now().UTC(),
		})
	})
	if errors.Is(err, ledger.ErrDuplicateReference) {
		return nil
	}
	return err
}
