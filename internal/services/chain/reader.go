package chain

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	container "github.com/thehyperflames/dicontainer-go"

	"github.com/qantara-pay/settle-engine/internal/common"
	"github.com/qantara-pay/settle-engine/internal/config"
	"github.com/qantara-pay/settle-engine/internal/domain"
	"github.com/qantara-pay/settle-engine/internal/metrics"
	"github.com/qantara-pay/settle-engine/internal/services/builder"
)

const CHAIN_READER_SERVICE = "chain-reader-svc"

// accountDiscriminator returns the 8-byte account tag the settlement
// program prefixes records with: sha256("account:<TypeName>")[0:8].
func accountDiscriminator(typeName string) []byte {
	h := sha256.Sum256([]byte("account:" + typeName))
	return h[:8]
}

var (
	protocolConfigDiscriminator   = accountDiscriminator("ProtocolConfig")
	merchantRegistryDiscriminator = accountDiscriminator("MerchantRegistry")
)

// accountFetcher is the slice of the RPC client the reader needs; tests
// substitute a fake.
type accountFetcher interface {
	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
}

// ReaderService fetches and decodes the settlement program's on-chain
// records. Records are re-fetched per request and never trusted from a
// cached copy; only their addresses (pure derivations) are cached.
type ReaderService struct {
	container.BaseDIInstance

	fetcher   accountFetcher
	programID solana.PublicKey
	usdcMint  solana.PublicKey
	timeout   time.Duration
	logger    *common.ServiceLogger
}

func (svc *ReaderService) ID() string {
	return CHAIN_READER_SERVICE
}

func (svc *ReaderService) Configure(c container.IContainer) error {
	rpcConfig := c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)
	programConfig := c.GetConfig(config.PROGRAM_CONFIG_KEY).(*config.ProgramConfig)

	programID, err := solana.PublicKeyFromBase58(programConfig.ProgramID)
	if err != nil {
		return fmt.Errorf("invalid settlement program id %q: %w", programConfig.ProgramID, err)
	}

	svc.fetcher = rpc.New(rpcConfig.RPCUrl)
	svc.programID = programID
	svc.timeout = rpcConfig.RequestTimeout
	svc.usdcMint = common.USDCMintDevnet
	if programConfig.IsMainnet() {
		svc.usdcMint = common.USDCMintMainnet
	}

	svc.logger = common.NewServiceLogger(svc)
	svc.logger.Info().
		Str("programID", programID.String()).
		Str("usdcMint", svc.usdcMint.String()).
		Msg("configured")
	return nil
}

func (svc *ReaderService) Start() error { return nil }
func (svc *ReaderService) Stop() error  { return nil }

func (svc *ReaderService) ProgramID() solana.PublicKey {
	return svc.programID
}

func (svc *ReaderService) UsdcMint() solana.PublicKey {
	return svc.usdcMint
}

// FetchProtocolConfig reads the singleton protocol record at its derived
// address. Absence means the program was never initialized on this cluster.
func (svc *ReaderService) FetchProtocolConfig(ctx context.Context) (*domain.ProtocolConfig, error) {
	pda, _, err := builder.DeriveProtocolConfig(svc.programID)
	if err != nil {
		return nil, err
	}

	data, err := svc.fetchAccountData(ctx, pda, protocolConfigDiscriminator, domain.ErrProtocolNotInitialized)
	if err != nil {
		metrics.ChainReads.WithLabelValues("protocol_config", "error").Inc()
		return nil, err
	}
	metrics.ChainReads.WithLabelValues("protocol_config", "ok").Inc()

	var cfg domain.ProtocolConfig
	if err := bin.NewBorshDecoder(data).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: undecodable protocol config: %s", domain.ErrProtocolNotInitialized, err)
	}
	return &cfg, nil
}

// FetchMerchantRegistry reads the merchant record for the given id. The
// record is untrusted input: callers check Frozen before composing.
func (svc *ReaderService) FetchMerchantRegistry(ctx context.Context, merchantID uint64) (*domain.MerchantRegistry, error) {
	pda, err := builder.GetCachedMerchantRegistry(merchantID, svc.programID)
	if err != nil {
		return nil, err
	}

	data, err := svc.fetchAccountData(ctx, pda, merchantRegistryDiscriminator, domain.ErrMerchantNotFound)
	if err != nil {
		metrics.ChainReads.WithLabelValues("merchant_registry", "error").Inc()
		return nil, err
	}
	metrics.ChainReads.WithLabelValues("merchant_registry", "ok").Inc()

	var reg domain.MerchantRegistry
	if err := bin.NewBorshDecoder(data).Decode(&reg); err != nil {
		return nil, fmt.Errorf("%w: undecodable merchant registry: %s", domain.ErrMerchantNotFound, err)
	}
	return &reg, nil
}

// fetchAccountData reads the raw account, checks the discriminator and
// returns the record body. notFound is the typed error for both a missing
// account and one that carries a foreign discriminator.
func (svc *ReaderService) fetchAccountData(ctx context.Context, address solana.PublicKey, discriminator []byte, notFound error) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, svc.timeout)
	defer cancel()

	res, err := svc.fetcher.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentFinalized,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, notFound
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrNetworkUnavailable, err)
	}
	if res == nil || res.Value == nil {
		return nil, notFound
	}

	data := res.Value.Data.GetBinary()
	if len(data) < 8 || string(data[:8]) != string(discriminator) {
		return nil, fmt.Errorf("%w: account %s has unexpected discriminator", notFound, address)
	}
	return data[8:], nil
}
