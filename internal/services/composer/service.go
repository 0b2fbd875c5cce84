package composer

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/rs/zerolog/log"

	container "github.com/thehyperflames/dicontainer-go"

	"github.com/qantara-pay/settle-engine/internal/common"
	"github.com/qantara-pay/settle-engine/internal/config"
	"github.com/qantara-pay/settle-engine/internal/domain"
	"github.com/qantara-pay/settle-engine/internal/metrics"
	"github.com/qantara-pay/settle-engine/internal/services/builder"
	"github.com/qantara-pay/settle-engine/internal/services/chain"
	"github.com/qantara-pay/settle-engine/internal/services/fees"
	"github.com/qantara-pay/settle-engine/internal/services/quoter"
)

const COMPOSER_SERVICE = "settlement-composer-svc"

// defaultSlippageBps applies when the merchant profile carries no slippage
// tolerance of its own.
const defaultSlippageBps uint16 = 100

// ChainReader is the slice of the chain service the composer depends on.
type ChainReader interface {
	ProgramID() solana.PublicKey
	UsdcMint() solana.PublicKey
	FetchProtocolConfig(ctx context.Context) (*domain.ProtocolConfig, error)
	FetchMerchantRegistry(ctx context.Context, merchantID uint64) (*domain.MerchantRegistry, error)
}

// RouteQuoter is the aggregator surface the composer depends on.
type RouteQuoter interface {
	GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps uint16) (*domain.Quote, error)
	GetMultiHopQuote(ctx context.Context, usdcMint, buybackMint string, amount uint64, slippageBps uint16) (*domain.MultiHopQuote, error)
	BuildSwapTransaction(ctx context.Context, quote *domain.Quote, opts domain.SwapBuildOptions) (*domain.SwapBuild, error)
}

// BlockhashSource provides a recent finalized blockhash.
type BlockhashSource interface {
	GetBlockhash(ctx context.Context) (solana.Hash, uint64, error)
}

// Service assembles unsigned settle transactions. Each Compose call is
// request-scoped: it fetches fresh on-chain state, splits amounts, resolves
// the swap route and produces the final transaction; nothing is shared
// between requests beyond the injected read-only collaborators.
type Service struct {
	container.BaseDIInstance

	reader    ChainReader
	quoter    RouteQuoter
	blockhash BlockhashSource
	quoteTTL  time.Duration
}

// NewService wires a composer from explicit collaborators. Production uses
// Configure; tests inject fakes here.
func NewService(reader ChainReader, rq RouteQuoter, blockhash BlockhashSource, quoteTTL time.Duration) *Service {
	return &Service{
		reader:    reader,
		quoter:    rq,
		blockhash: blockhash,
		quoteTTL:  quoteTTL,
	}
}

func (svc *Service) ID() string {
	return COMPOSER_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	programConfig := c.GetConfig(config.PROGRAM_CONFIG_KEY).(*config.ProgramConfig)

	svc.reader = c.Instance(chain.CHAIN_READER_SERVICE).(*chain.ReaderService)
	svc.quoter = c.Instance(quoter.AGGREGATOR_SERVICE).(*quoter.Service)
	svc.blockhash = c.Instance(chain.BLOCKHASH_CACHE_SERVICE).(*chain.BlockhashCacheService)
	svc.quoteTTL = time.Duration(programConfig.QuoteTTLSeconds) * time.Second
	return nil
}

func (svc *Service) Start() error { return nil }
func (svc *Service) Stop() error  { return nil }

// QuoteTTL reports the validity window stamped onto composed transactions.
func (svc *Service) QuoteTTL() time.Duration {
	return svc.quoteTTL
}

// Compose validates the request against fresh on-chain state and builds the
// unsigned settle transaction. Pure validation runs before any network
// call; a zero buyback short-circuits all quoting.
func (svc *Service) Compose(ctx context.Context, req *domain.SettleRequest, profile *domain.MerchantProfile) (*domain.UnsignedTransaction, error) {
	start := time.Now()
	unsigned, err := svc.compose(ctx, req, profile)
	label := req.PayToken.String()
	metrics.ComposeDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ComposeRequests.WithLabelValues(label, "error").Inc()
		return nil, err
	}
	metrics.ComposeRequests.WithLabelValues(label, "ok").Inc()
	return unsigned, nil
}

func (svc *Service) compose(ctx context.Context, req *domain.SettleRequest, profile *domain.MerchantProfile) (*domain.UnsignedTransaction, error) {
	if int(req.PayoutBps)+int(req.BuybackBps) > common.BpsDenominator {
		return nil, domain.ErrInvalidBasisPoints
	}
	if req.BurnBps > common.BpsDenominator {
		return nil, domain.ErrInvalidBasisPoints
	}
	if profile != nil && !profile.AllowsToken(req.PayToken) {
		return nil, domain.ErrAssetNotAccepted
	}
	if req.Payer.IsZero() {
		return nil, fmt.Errorf("%w: missing payer", domain.ErrInvalidAddress)
	}

	protocol, err := svc.reader.FetchProtocolConfig(ctx)
	if err != nil {
		return nil, err
	}
	registry, err := svc.reader.FetchMerchantRegistry(ctx, req.MerchantID)
	if err != nil {
		return nil, err
	}

	if protocol.Paused {
		return nil, domain.ErrProtocolPaused
	}
	if registry.Frozen {
		return nil, domain.ErrMerchantFrozen
	}

	accounts, err := svc.resolveFixedAccounts(req, profile, protocol, registry)
	if err != nil {
		return nil, err
	}

	amounts, err := fees.Split(req.Amount, req.PayoutBps, req.BuybackBps, protocol.ProtocolFeeBps)
	if err != nil {
		return nil, err
	}

	minOut := req.MinOut
	swapTx := req.SwapTransaction
	var remaining []*solana.AccountMeta

	if amounts.Buyback == 0 {
		minOut = 0
	} else {
		if swapTx != "" && minOut == 0 {
			return nil, domain.ErrMissingMinOut
		}
		if swapTx == "" {
			swapTx, minOut, err = svc.quoteBuyback(ctx, req, registry, amounts.Buyback, profile, minOut)
			if err != nil {
				return nil, err
			}
		}
		if swapTx != "" {
			candidates, err := builder.ExtractSwapAccounts(swapTx, protocol.RouterProgram)
			if err != nil {
				return nil, err
			}
			remaining = builder.FilterAgainstFixed(candidates, accounts.Addresses())
		}
	}
	metrics.RemainingAccounts.Observe(float64(len(remaining)))

	settleReq := *req
	settleReq.MinOut = minOut
	settleIx, err := builder.NewSettleInstruction(svc.reader.ProgramID(), &settleReq, accounts, remaining)
	if err != nil {
		return nil, err
	}

	instructions := make([]solana.Instruction, 0, 2)
	if req.PriorityFeeMicroLamports > 0 {
		priceIx, err := computebudget.NewSetComputeUnitPriceInstruction(req.PriorityFeeMicroLamports).ValidateAndBuild()
		if err != nil {
			return nil, fmt.Errorf("build compute unit price instruction: %w", err)
		}
		instructions = append(instructions, priceIx)
	}
	instructions = append(instructions, settleIx)

	blockhash, lastValidBlockHeight, err := svc.blockhash.GetBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(req.Payer))
	if err != nil {
		return nil, fmt.Errorf("assemble transaction: %w", err)
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("serialize transaction: %w", err)
	}

	expiresAt := time.Now().Add(svc.quoteTTL)
	log.Info().
		Uint64("merchantID", req.MerchantID).
		Uint64("amount", req.Amount).
		Uint64("buyback", amounts.Buyback).
		Int("remainingAccounts", len(remaining)).
		Time("expiresAt", expiresAt).
		Msg("[ComposerService] composed settle transaction")

	return &domain.UnsignedTransaction{
		Transaction:          base64.StdEncoding.EncodeToString(raw),
		ExpiresAt:            expiresAt.Unix(),
		LastValidBlockHeight: lastValidBlockHeight,
	}, nil
}

// resolveFixedAccounts derives every fixed-role account of the settle
// instruction. For SOL payments the payer stands in for its own USDC
// account, matching the chain program's fallback convention.
func (svc *Service) resolveFixedAccounts(req *domain.SettleRequest, profile *domain.MerchantProfile, protocol *domain.ProtocolConfig, registry *domain.MerchantRegistry) (builder.SettleAccounts, error) {
	programID := svc.reader.ProgramID()
	usdcMint := svc.reader.UsdcMint()

	protocolAccounts, err := builder.DeriveProtocolAccounts(usdcMint, programID)
	if err != nil {
		return builder.SettleAccounts{}, err
	}
	registryPDA, err := builder.GetCachedMerchantRegistry(req.MerchantID, programID)
	if err != nil {
		return builder.SettleAccounts{}, err
	}
	protocolWalletUsdc, err := builder.GetATAAddress(protocol.ProtocolWallet, usdcMint)
	if err != nil {
		return builder.SettleAccounts{}, err
	}
	merchantPayoutUsdc, err := builder.GetATAAddress(registry.PayoutWallet, usdcMint)
	if err != nil {
		return builder.SettleAccounts{}, err
	}

	payerUsdc := req.Payer
	if req.PayToken == domain.PayTokenUsdc {
		payerUsdc, err = builder.GetATAAddress(req.Payer, usdcMint)
		if err != nil {
			return builder.SettleAccounts{}, err
		}
	}

	vaultBuybackToken, err := svc.resolveVaultBuybackToken(profile, protocolAccounts.VaultSol, registry.BuybackMint)
	if err != nil {
		return builder.SettleAccounts{}, err
	}

	return builder.SettleAccounts{
		ProtocolConfig:       protocolAccounts.ProtocolConfig,
		MerchantRegistry:     registryPDA,
		Payer:                req.Payer,
		VaultSol:             protocolAccounts.VaultSol,
		VaultUsdc:            protocolAccounts.VaultUsdc,
		UsdcMint:             usdcMint,
		VaultBuybackToken:    vaultBuybackToken,
		BuybackMint:          registry.BuybackMint,
		ProtocolWallet:       protocol.ProtocolWallet,
		ProtocolWalletUsdc:   protocolWalletUsdc,
		MerchantPayoutWallet: registry.PayoutWallet,
		MerchantPayoutUsdc:   merchantPayoutUsdc,
		PayerUsdcAccount:     payerUsdc,
		RouterProgram:        protocol.RouterProgram,
	}, nil
}

func (svc *Service) resolveVaultBuybackToken(profile *domain.MerchantProfile, vaultSol, buybackMint solana.PublicKey) (solana.PublicKey, error) {
	if profile != nil && profile.VaultBuybackToken != "" {
		vault, err := solana.PublicKeyFromBase58(profile.VaultBuybackToken)
		if err != nil {
			return solana.PublicKey{}, fmt.Errorf("%w: vault buyback token: %s", domain.ErrInvalidAddress, err)
		}
		return vault, nil
	}
	return builder.GetATAAddress(vaultSol, buybackMint)
}

// quoteBuyback fetches a fresh route for the buyback amount and builds the
// swap transaction whose accounts the settle instruction will absorb. SOL
// payments quote a single hop; USDC payments chain through wrapped SOL and
// build the final hop only.
func (svc *Service) quoteBuyback(ctx context.Context, req *domain.SettleRequest, registry *domain.MerchantRegistry, buybackAmount uint64, profile *domain.MerchantProfile, minOut uint64) (string, uint64, error) {
	slippage := defaultSlippageBps
	if profile != nil && profile.SlippageBps > 0 {
		slippage = profile.SlippageBps
	}

	var finalHop *domain.Quote
	var err error
	switch req.PayToken {
	case domain.PayTokenSol:
		finalHop, err = svc.quoter.GetQuote(ctx, common.WrappedSolMint.String(), registry.BuybackMint.String(), buybackAmount, slippage)
		if err != nil {
			return "", 0, err
		}
	case domain.PayTokenUsdc:
		multi, err := svc.quoter.GetMultiHopQuote(ctx, svc.reader.UsdcMint().String(), registry.BuybackMint.String(), buybackAmount, slippage)
		if err != nil {
			return "", 0, err
		}
		finalHop = multi.SecondHop
	default:
		return "", 0, domain.ErrAssetNotAccepted
	}

	if minOut == 0 {
		quotedOut, err := strconv.ParseUint(finalHop.OutAmount, 10, 64)
		if err != nil {
			return "", 0, fmt.Errorf("%w: non-numeric quote output %q", domain.ErrNotTradable, finalHop.OutAmount)
		}
		minOut, err = fees.ApplySlippage(quotedOut, slippage)
		if err != nil {
			return "", 0, err
		}
	}

	build, err := svc.quoter.BuildSwapTransaction(ctx, finalHop, domain.SwapBuildOptions{
		WrapUnwrapSol:           true,
		DynamicComputeUnitLimit: true,
		PriorityFeeLamports:     req.PriorityFeeMicroLamports,
	})
	if err != nil {
		return "", 0, err
	}
	return build.SwapTransaction, minOut, nil
}
