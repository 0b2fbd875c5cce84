package composer

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"testing"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/stretchr/testify/require"

	"github.com/qantara-pay/settle-engine/internal/common"
	"github.com/qantara-pay/settle-engine/internal/domain"
)

type fakeReader struct {
	programID solana.PublicKey
	usdcMint  solana.PublicKey
	protocol  *domain.ProtocolConfig
	registry  *domain.MerchantRegistry

	protocolCalls int
	registryCalls int
}

func (f *fakeReader) ProgramID() solana.PublicKey { return f.programID }
func (f *fakeReader) UsdcMint() solana.PublicKey  { return f.usdcMint }

func (f *fakeReader) FetchProtocolConfig(context.Context) (*domain.ProtocolConfig, error) {
	f.protocolCalls++
	if f.protocol == nil {
		return nil, domain.ErrProtocolNotInitialized
	}
	return f.protocol, nil
}

func (f *fakeReader) FetchMerchantRegistry(_ context.Context, merchantID uint64) (*domain.MerchantRegistry, error) {
	f.registryCalls++
	if f.registry == nil || f.registry.MerchantID != merchantID {
		return nil, domain.ErrMerchantNotFound
	}
	return f.registry, nil
}

type fakeQuoter struct {
	quoteCalls    int
	multiHopCalls int
	buildCalls    int

	outAmount string
	swapTx    string
}

func (f *fakeQuoter) GetQuote(_ context.Context, inputMint, outputMint string, _ uint64, _ uint16) (*domain.Quote, error) {
	f.quoteCalls++
	return &domain.Quote{InputMint: inputMint, OutputMint: outputMint, OutAmount: f.outAmount, Raw: []byte(`{}`)}, nil
}

func (f *fakeQuoter) GetMultiHopQuote(_ context.Context, usdcMint, buybackMint string, _ uint64, _ uint16) (*domain.MultiHopQuote, error) {
	f.multiHopCalls++
	second := &domain.Quote{InputMint: common.WrappedSolMint.String(), OutputMint: buybackMint, OutAmount: f.outAmount, Raw: []byte(`{}`)}
	return &domain.MultiHopQuote{SecondHop: second, TotalOut: f.outAmount}, nil
}

func (f *fakeQuoter) BuildSwapTransaction(_ context.Context, quote *domain.Quote, _ domain.SwapBuildOptions) (*domain.SwapBuild, error) {
	f.buildCalls++
	return &domain.SwapBuild{Quote: quote, SwapTransaction: f.swapTx}, nil
}

type fakeBlockhash struct{}

func (fakeBlockhash) GetBlockhash(context.Context) (solana.Hash, uint64, error) {
	return solana.Hash{1, 2, 3}, 424242, nil
}

type composerFixture struct {
	svc    *Service
	reader *fakeReader
	quoter *fakeQuoter
	router solana.PublicKey
}

func newFixture(t *testing.T) *composerFixture {
	t.Helper()
	router := solana.NewWallet().PublicKey()
	reader := &fakeReader{
		programID: solana.MustPublicKeyFromBase58("JCjXHcUy7LzJsLBoafjem9wRffRyuyGYsiTz35Yyr9AH"),
		usdcMint:  common.USDCMintDevnet,
		protocol: &domain.ProtocolConfig{
			Authority:      solana.NewWallet().PublicKey(),
			ProtocolFeeBps: 0,
			ProtocolWallet: solana.NewWallet().PublicKey(),
			RouterProgram:  router,
		},
		registry: &domain.MerchantRegistry{
			MerchantID:   1,
			Owner:        solana.NewWallet().PublicKey(),
			PayoutWallet: solana.NewWallet().PublicKey(),
			BuybackMint:  solana.NewWallet().PublicKey(),
		},
	}
	q := &fakeQuoter{outAmount: "1000"}
	return &composerFixture{
		svc:    NewService(reader, q, fakeBlockhash{}, 30*time.Second),
		reader: reader,
		quoter: q,
		router: router,
	}
}

func testProfile() *domain.MerchantProfile {
	return &domain.MerchantProfile{
		MerchantID:  1,
		AllowSol:    true,
		AllowUsdc:   true,
		SlippageBps: 100,
	}
}

func baseRequest() *domain.SettleRequest {
	return &domain.SettleRequest{
		MerchantID: 1,
		Payer:      solana.NewWallet().PublicKey(),
		Amount:     1_000_000,
		PayToken:   domain.PayTokenSol,
		PayoutBps:  7000,
		BuybackBps: 3000,
		BurnBps:    5000,
	}
}

// routerSwapTx builds a base64 swap transaction with one router instruction
// touching the given accounts.
func routerSwapTx(t *testing.T, router solana.PublicKey, accounts ...*solana.AccountMeta) string {
	t.Helper()
	ix := solana.NewInstruction(router, accounts, []byte{9})
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{}, solana.TransactionPayer(solana.NewWallet().PublicKey()))
	require.NoError(t, err)
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

// decodeResult parses the produced artifact back into a transaction.
func decodeResult(t *testing.T, unsigned *domain.UnsignedTransaction) *solana.Transaction {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(unsigned.Transaction)
	require.NoError(t, err)
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	require.NoError(t, err)
	return tx
}

// settleInstruction finds the settlement program's instruction in the
// decoded transaction and returns its data plus account count.
func settleInstruction(t *testing.T, tx *solana.Transaction, programID solana.PublicKey) ([]byte, int) {
	t.Helper()
	for _, ix := range tx.Message.Instructions {
		if tx.Message.AccountKeys[ix.ProgramIDIndex].Equals(programID) {
			return ix.Data, len(ix.Accounts)
		}
	}
	t.Fatalf("settle instruction not found")
	return nil, 0
}

func TestComposeInvalidBasisPointsBeforeNetwork(t *testing.T) {
	f := newFixture(t)
	req := baseRequest()
	req.PayoutBps = 7001
	req.BuybackBps = 3000

	_, err := f.svc.Compose(context.Background(), req, testProfile())
	require.ErrorIs(t, err, domain.ErrInvalidBasisPoints)
	require.Zero(t, f.reader.protocolCalls)
	require.Zero(t, f.reader.registryCalls)
	require.Zero(t, f.quoter.quoteCalls)
}

func TestComposeAssetNotAccepted(t *testing.T) {
	f := newFixture(t)
	profile := testProfile()
	profile.AllowSol = false

	_, err := f.svc.Compose(context.Background(), baseRequest(), profile)
	require.ErrorIs(t, err, domain.ErrAssetNotAccepted)
	require.Zero(t, f.reader.protocolCalls)
}

func TestComposeMerchantFrozenNoQuote(t *testing.T) {
	f := newFixture(t)
	f.reader.registry.Frozen = true

	_, err := f.svc.Compose(context.Background(), baseRequest(), testProfile())
	require.ErrorIs(t, err, domain.ErrMerchantFrozen)
	require.Zero(t, f.quoter.quoteCalls)
	require.Zero(t, f.quoter.multiHopCalls)
	require.Zero(t, f.quoter.buildCalls)
}

func TestComposeProtocolPaused(t *testing.T) {
	f := newFixture(t)
	f.reader.protocol.Paused = true

	_, err := f.svc.Compose(context.Background(), baseRequest(), testProfile())
	require.ErrorIs(t, err, domain.ErrProtocolPaused)
	require.Zero(t, f.quoter.quoteCalls)
}

func TestComposeMerchantNotFound(t *testing.T) {
	f := newFixture(t)
	req := baseRequest()
	req.MerchantID = 999

	_, err := f.svc.Compose(context.Background(), req, testProfile())
	require.ErrorIs(t, err, domain.ErrMerchantNotFound)
}

func TestComposeZeroBuybackShortCircuit(t *testing.T) {
	f := newFixture(t)
	req := baseRequest()
	req.PayoutBps = 10_000
	req.BuybackBps = 0
	req.MinOut = 555 // must be forced to zero alongside the skipped quote

	unsigned, err := f.svc.Compose(context.Background(), req, testProfile())
	require.NoError(t, err)
	require.Zero(t, f.quoter.quoteCalls)
	require.Zero(t, f.quoter.multiHopCalls)
	require.Zero(t, f.quoter.buildCalls)

	tx := decodeResult(t, unsigned)
	data, accountCount := settleInstruction(t, tx, f.reader.programID)
	require.Equal(t, uint64(0), binary.LittleEndian.Uint64(data[25:33]))
	require.Equal(t, 16, accountCount)
}

func TestComposeWithSuppliedSwapTransaction(t *testing.T) {
	f := newFixture(t)
	poolA := solana.NewWallet().PublicKey()
	poolB := solana.NewWallet().PublicKey()

	req := baseRequest()
	req.MinOut = 990
	req.SwapTransaction = routerSwapTx(t, f.router,
		&solana.AccountMeta{PublicKey: poolA, IsWritable: true},
		&solana.AccountMeta{PublicKey: poolB},
	)

	start := time.Now()
	unsigned, err := f.svc.Compose(context.Background(), req, testProfile())
	require.NoError(t, err)

	// A supplied swap transaction suppresses re-quoting.
	require.Zero(t, f.quoter.quoteCalls)
	require.Zero(t, f.quoter.buildCalls)

	require.LessOrEqual(t, unsigned.ExpiresAt, start.Add(31*time.Second).Unix())
	require.GreaterOrEqual(t, unsigned.ExpiresAt, start.Add(29*time.Second).Unix())
	require.Equal(t, uint64(424242), unsigned.LastValidBlockHeight)

	tx := decodeResult(t, unsigned)
	data, accountCount := settleInstruction(t, tx, f.reader.programID)
	require.Equal(t, 16+2, accountCount)
	require.Equal(t, uint64(1_000_000), binary.LittleEndian.Uint64(data[16:24]))
	require.Equal(t, uint64(990), binary.LittleEndian.Uint64(data[25:33]))
	require.Equal(t, uint16(7000), binary.LittleEndian.Uint16(data[33:35]))
}

func TestComposeRejectsSuppliedSwapWithoutMinOut(t *testing.T) {
	f := newFixture(t)
	pool := solana.NewWallet().PublicKey()

	// A prebuilt swap with no floor would settle at any output.
	req := baseRequest()
	req.SwapTransaction = routerSwapTx(t, f.router, &solana.AccountMeta{PublicKey: pool, IsWritable: true})

	_, err := f.svc.Compose(context.Background(), req, testProfile())
	require.ErrorIs(t, err, domain.ErrMissingMinOut)
	require.Zero(t, f.quoter.quoteCalls)
}

func TestComposeQuotesWhenNoSwapSupplied(t *testing.T) {
	f := newFixture(t)
	pool := solana.NewWallet().PublicKey()
	f.quoter.outAmount = "1000"
	f.quoter.swapTx = routerSwapTx(t, f.router, &solana.AccountMeta{PublicKey: pool, IsWritable: true})

	unsigned, err := f.svc.Compose(context.Background(), baseRequest(), testProfile())
	require.NoError(t, err)

	// SOL payment quotes the single final hop and builds one swap.
	require.Equal(t, 1, f.quoter.quoteCalls)
	require.Zero(t, f.quoter.multiHopCalls)
	require.Equal(t, 1, f.quoter.buildCalls)

	tx := decodeResult(t, unsigned)
	data, accountCount := settleInstruction(t, tx, f.reader.programID)
	require.Equal(t, 16+1, accountCount)
	// minOut = floor(1000 * (10000-100) / 10000) = 990
	require.Equal(t, uint64(990), binary.LittleEndian.Uint64(data[25:33]))
}

func TestComposeUsdcMultiHop(t *testing.T) {
	f := newFixture(t)
	f.quoter.swapTx = routerSwapTx(t, f.router, &solana.AccountMeta{PublicKey: solana.NewWallet().PublicKey()})

	req := baseRequest()
	req.PayToken = domain.PayTokenUsdc

	_, err := f.svc.Compose(context.Background(), req, testProfile())
	require.NoError(t, err)
	require.Equal(t, 1, f.quoter.multiHopCalls)
	require.Zero(t, f.quoter.quoteCalls)
	require.Equal(t, 1, f.quoter.buildCalls)
}

func TestComposePriorityFeePrepended(t *testing.T) {
	f := newFixture(t)
	req := baseRequest()
	req.PayoutBps = 10_000
	req.BuybackBps = 0
	req.PriorityFeeMicroLamports = 1500

	unsigned, err := f.svc.Compose(context.Background(), req, testProfile())
	require.NoError(t, err)

	tx := decodeResult(t, unsigned)
	require.Len(t, tx.Message.Instructions, 2)
	first := tx.Message.Instructions[0]
	require.True(t, tx.Message.AccountKeys[first.ProgramIDIndex].Equals(computebudget.ProgramID))
	second := tx.Message.Instructions[1]
	require.True(t, tx.Message.AccountKeys[second.ProgramIDIndex].Equals(f.reader.programID))
}
