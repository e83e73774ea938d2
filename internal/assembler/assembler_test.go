package assembler

import (
	"context"
	"crypto/sha256"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shielded-utxo/walletcore/internal/corerrors"
	"github.com/shielded-utxo/walletcore/internal/signer"
	"github.com/shielded-utxo/walletcore/internal/utxo"
)

type fakeStore struct {
	rows    []utxo.Utxo
	unlocks [][]utxo.ID
}

func (f *fakeStore) Put(ctx context.Context, u utxo.Utxo) error         { return nil }
func (f *fakeStore) ApplyEvent(ctx context.Context, ev utxo.Event) error { return nil }
func (f *fakeStore) ObserveBalances(ctx context.Context, address string) (<-chan []utxo.TokenBalance, func(), error) {
	return nil, func() {}, nil
}

func (f *fakeStore) SelectAndLock(ctx context.Context, address string, tokenType utxo.TokenType, required *big.Int) ([]utxo.Utxo, error) {
	sorted := utxo.SortAscendingByValue(f.rows)
	result, ok := utxo.Select(sorted, required)
	if !ok {
		return nil, &corerrors.InsufficientFunds{Required: required.String()}
	}
	return result.Rows, nil
}

func (f *fakeStore) SelectAndLockMulti(ctx context.Context, address string, requests map[utxo.TokenType]*big.Int) (map[utxo.TokenType][]utxo.Utxo, error) {
	return nil, nil
}

func (f *fakeStore) Unlock(ctx context.Context, ids []utxo.ID) error {
	f.unlocks = append(f.unlocks, ids)
	return nil
}

func (f *fakeStore) MarkSpent(ctx context.Context, ids []utxo.ID) error { return nil }

type identitySigningMessages struct{}

func (identitySigningMessages) CanonicalSigningMessages(intent *Intent) ([][]byte, error) {
	out := make([][]byte, len(intent.GuaranteedOffer.Inputs))
	for i, in := range intent.GuaranteedOffer.Inputs {
		digest := sha256.Sum256(append(in.IntentHash[:], byte(in.OutputIndex)))
		out[i] = digest[:]
	}
	return out, nil
}

func TestBuildTransferProducesChangeOutput(t *testing.T) {
	var ownerPub [32]byte
	ownerPub[0] = 0x01
	store := &fakeStore{rows: []utxo.Utxo{
		{ID: utxo.ID{IntentHash: [32]byte{9}}, Value: big.NewInt(1_500_000), OwnerPublicKey: ownerPub},
	}}

	var recipient [32]byte
	recipient[0] = 0x02

	intent, err := BuildTransfer(context.Background(), store, BuildTransferParams{
		Sender:       Sender{Address: "mn_addr_testnet1sender", PublicKey: ownerPub},
		RecipientRaw: recipient,
		Amount:       big.NewInt(1_000_000),
		TokenType:    utxo.TokenType{},
	})
	require.NoError(t, err)
	require.NotNil(t, intent.GuaranteedOffer)
	require.Len(t, intent.GuaranteedOffer.Inputs, 1)
	require.Len(t, intent.GuaranteedOffer.Outputs, 2)
	require.Equal(t, big.NewInt(1_000_000), intent.GuaranteedOffer.Outputs[0].Value)
	require.Equal(t, big.NewInt(500_000), intent.GuaranteedOffer.Outputs[1].Value)
	require.Empty(t, intent.GuaranteedOffer.Signatures)
	require.True(t, intent.TTL.After(time.Now().Add(29*time.Minute)))
}

func TestBuildTransferOmitsZeroChange(t *testing.T) {
	var ownerPub [32]byte
	store := &fakeStore{rows: []utxo.Utxo{
		{ID: utxo.ID{IntentHash: [32]byte{9}}, Value: big.NewInt(1_000_000), OwnerPublicKey: ownerPub},
	}}
	var recipient [32]byte

	intent, err := BuildTransfer(context.Background(), store, BuildTransferParams{
		Sender:       Sender{Address: "mn_addr_testnet1sender", PublicKey: ownerPub},
		RecipientRaw: recipient,
		Amount:       big.NewInt(1_000_000),
	})
	require.NoError(t, err)
	require.Len(t, intent.GuaranteedOffer.Outputs, 1)
}

func TestBuildTransferRejectsNonPositiveAmount(t *testing.T) {
	store := &fakeStore{}
	_, err := BuildTransfer(context.Background(), store, BuildTransferParams{
		Sender: Sender{Address: "mn_addr_testnet1sender"},
		Amount: big.NewInt(0),
	})
	require.Error(t, err)
}

func TestSignAttachesSignaturesInInputOrder(t *testing.T) {
	var ownerPub [32]byte
	store := &fakeStore{rows: []utxo.Utxo{
		{ID: utxo.ID{IntentHash: [32]byte{1}}, Value: big.NewInt(100), OwnerPublicKey: ownerPub},
		{ID: utxo.ID{IntentHash: [32]byte{2}}, Value: big.NewInt(100), OwnerPublicKey: ownerPub},
	}}
	var recipient [32]byte

	intent, err := BuildTransfer(context.Background(), store, BuildTransferParams{
		Sender:       Sender{Address: "mn_addr_testnet1sender", PublicKey: ownerPub},
		RecipientRaw: recipient,
		Amount:       big.NewInt(150),
	})
	require.NoError(t, err)

	s := signer.New()
	var skOriginal [32]byte
	skOriginal[31] = 0x01
	pubSk := skOriginal
	pub, err := s.PublicKey(&pubSk)
	require.NoError(t, err)
	for i := range intent.GuaranteedOffer.Inputs {
		intent.GuaranteedOffer.Inputs[i].OwnerPublicKey = pub
	}

	signed, err := Sign(intent, identitySigningMessages{}, s, func(owner [32]byte) (*[32]byte, error) {
		skCopy := skOriginal
		return &skCopy, nil
	})
	require.NoError(t, err)
	require.Len(t, signed.Intent.GuaranteedOffer.Signatures, 2)
	for i, input := range signed.Intent.GuaranteedOffer.Inputs {
		require.NotNil(t, input.Signature)
		require.Equal(t, signed.Intent.GuaranteedOffer.Signatures[i], *input.Signature)
	}
}
