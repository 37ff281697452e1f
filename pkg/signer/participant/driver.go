// Package participant implements the signing driver for parties whose keys
// live on the participant node. The participant signs as part of command
// submission, so the driver exposes no key or signing operations of its own;
// it exists so provider resolution can route participant-namespaced parties
// somewhere concrete.
package participant

import (
	"context"

	"github.com/chainsafe/canton-wallet-gateway/pkg/signer"
	"github.com/chainsafe/canton-wallet-gateway/pkg/wallet"
)

// Driver is the participant signing driver.
type Driver struct{}

// New creates the participant driver.
func New() *Driver { return &Driver{} }

func (d *Driver) ProviderID() wallet.ProviderID { return wallet.ProviderParticipant }

func (d *Driver) PartyMode() signer.PartyMode { return signer.PartyModeInternal }

func (d *Driver) Controller(_ string) signer.Controller { return controller{} }

type controller struct{}

func (controller) SignTransaction(_ context.Context, _ signer.SignRequest) (*wallet.SigningTransaction, error) {
	return nil, signer.NewError(signer.CodeSigningError, "participant-hosted parties are signed by the participant during submission")
}

func (controller) GetTransaction(_ context.Context, txID string) (*wallet.SigningTransaction, error) {
	return nil, signer.NewError(signer.CodeTransactionNotFound, "participant driver does not track transactions: "+txID)
}

func (controller) GetTransactions(_ context.Context, filter signer.TransactionFilter) ([]*wallet.SigningTransaction, error) {
	if filter.Empty() {
		return nil, signer.NewError(signer.CodeBadArguments, "at least one of txIds or publicKeys is required")
	}
	return nil, nil
}

func (controller) GetKeys(_ context.Context) ([]*wallet.SigningKey, error) {
	// The participant does not expose key material over this surface.
	return nil, nil
}

func (controller) CreateKey(_ context.Context, _ string) (*wallet.SigningKey, error) {
	return nil, signer.NewError(signer.CodeCreateKeyError, "participant keys are managed by the participant operator")
}

func (controller) GetConfiguration(_ context.Context) (signer.Configuration, error) {
	return signer.Configuration{}, nil
}

func (controller) SetConfiguration(_ context.Context, _ signer.Configuration) error {
	return signer.NewError(signer.CodeBadArguments, "participant driver has no configurable settings")
}

func (controller) SubscribeTransactions(ctx context.Context) (<-chan *wallet.SigningTransaction, error) {
	ch := make(chan *wallet.SigningTransaction)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}
