package paystack

import (
	"context"

	"github.com/google/uuid"
)

// StaticProvider simulates a fully cooperative provider. Tests flip the Fail*
// switches to exercise rollback paths.
type StaticProvider struct {
	FailResolve   bool
	FailRecipient bool
	FailTransfer  bool

	// TransferCalls counts InitiateTransfer invocations.
	TransferCalls int
}

var _ Provider = (*StaticProvider)(nil)

func (s *StaticProvider) ResolveAccount(_ context.Context, _, _ string) (ResolvedAccount, error) {
	if s.FailResolve {
		return ResolvedAccount{}, ErrProvider
	}
	return ResolvedAccount{AccountName: "JOHN DOE"}, nil
}

func (s *StaticProvider) CreateTransferRecipient(_ context.Context, _, _, _ string) (string, error) {
	if s.FailRecipient {
		return "", ErrProvider
	}
	return "RCP_" + uuid.NewString(), nil
}

func (s *StaticProvider) InitiateTransfer(_ context.Context, _ int64, _, _ string) (string, error) {
	s.TransferCalls++
	if s.FailTransfer {
		return "", ErrProvider
	}
	return "TRF_" + uuid.NewString(), nil
}
