package chain

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/require"

	"github.com/qantara-pay/settle-engine/internal/common"
	"github.com/qantara-pay/settle-engine/internal/domain"
	"github.com/qantara-pay/settle-engine/internal/services/builder"
)

type fakeFetcher struct {
	accounts map[solana.PublicKey][]byte
	err      error
}

func (f *fakeFetcher) GetAccountInfoWithOpts(_ context.Context, account solana.PublicKey, _ *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.accounts[account]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return accountInfoResult(data)
}

// accountInfoResult builds a result the way the RPC wire format delivers
// it, so the decode path under test matches production.
func accountInfoResult(data []byte) (*rpc.GetAccountInfoResult, error) {
	payload := `{"context":{"slot":1},"value":{"lamports":1000000,"owner":"11111111111111111111111111111111","data":["` +
		base64.StdEncoding.EncodeToString(data) + `","base64"],"executable":false,"rentEpoch":0}}`
	var res rpc.GetAccountInfoResult
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func encodeRecord(t *testing.T, discriminatorType string, record interface{}) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	buf.Write(accountDiscriminator(discriminatorType))
	require.NoError(t, bin.NewBorshEncoder(buf).Encode(record))
	return buf.Bytes()
}

func newTestReader(fetcher accountFetcher) *ReaderService {
	return &ReaderService{
		fetcher:   fetcher,
		programID: solana.MustPublicKeyFromBase58("JCjXHcUy7LzJsLBoafjem9wRffRyuyGYsiTz35Yyr9AH"),
		usdcMint:  common.USDCMintDevnet,
		timeout:   time.Second,
	}
}

func TestFetchProtocolConfig(t *testing.T) {
	svc := newTestReader(nil)
	pda, _, err := builder.DeriveProtocolConfig(svc.ProgramID())
	require.NoError(t, err)

	want := domain.ProtocolConfig{
		Authority:      solana.NewWallet().PublicKey(),
		ProtocolFeeBps: 150,
		ProtocolWallet: solana.NewWallet().PublicKey(),
		RouterProgram:  solana.NewWallet().PublicKey(),
		Paused:         false,
		Bump:           254,
	}
	svc.fetcher = &fakeFetcher{accounts: map[solana.PublicKey][]byte{
		pda: encodeRecord(t, "ProtocolConfig", want),
	}}

	got, err := svc.FetchProtocolConfig(context.Background())
	require.NoError(t, err)
	require.Equal(t, want, *got)
}

func TestFetchProtocolConfigNotInitialized(t *testing.T) {
	svc := newTestReader(&fakeFetcher{})
	_, err := svc.FetchProtocolConfig(context.Background())
	require.ErrorIs(t, err, domain.ErrProtocolNotInitialized)
}

func TestFetchMerchantRegistry(t *testing.T) {
	svc := newTestReader(nil)
	pda, err := builder.GetCachedMerchantRegistry(7, svc.ProgramID())
	require.NoError(t, err)

	want := domain.MerchantRegistry{
		MerchantID:   7,
		Owner:        solana.NewWallet().PublicKey(),
		PayoutWallet: solana.NewWallet().PublicKey(),
		BuybackMint:  solana.NewWallet().PublicKey(),
		Frozen:       true,
		Bump:         253,
	}
	svc.fetcher = &fakeFetcher{accounts: map[solana.PublicKey][]byte{
		pda: encodeRecord(t, "MerchantRegistry", want),
	}}

	got, err := svc.FetchMerchantRegistry(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, want, *got)
	require.True(t, got.Frozen)
}

func TestFetchMerchantRegistryNotFound(t *testing.T) {
	svc := newTestReader(&fakeFetcher{})
	_, err := svc.FetchMerchantRegistry(context.Background(), 404)
	require.ErrorIs(t, err, domain.ErrMerchantNotFound)
}

func TestFetchMerchantRegistryForeignDiscriminator(t *testing.T) {
	svc := newTestReader(nil)
	pda, err := builder.GetCachedMerchantRegistry(8, svc.ProgramID())
	require.NoError(t, err)

	// A protocol-config record parked at the merchant address must not
	// decode as a merchant registry.
	svc.fetcher = &fakeFetcher{accounts: map[solana.PublicKey][]byte{
		pda: encodeRecord(t, "ProtocolConfig", domain.ProtocolConfig{}),
	}}

	_, err = svc.FetchMerchantRegistry(context.Background(), 8)
	require.ErrorIs(t, err, domain.ErrMerchantNotFound)
}

func TestFetchNetworkUnavailable(t *testing.T) {
	svc := newTestReader(&fakeFetcher{err: errors.New("connection refused")})
	_, err := svc.FetchMerchantRegistry(context.Background(), 1)
	require.ErrorIs(t, err, domain.ErrNetworkUnavailable)
}
