package chain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	container "github.com/thehyperflames/dicontainer-go"

	"github.com/qantara-pay/settle-engine/internal/common"
	"github.com/qantara-pay/settle-engine/internal/config"
	"github.com/qantara-pay/settle-engine/internal/domain"
)

const BLOCKHASH_CACHE_SERVICE = "cache-blockhash-svc"

// blockhashFreshness bounds how long a fetched blockhash is reused. Short
// enough that composed transactions keep most of their validity window.
const blockhashFreshness = 2 * time.Second

type CachedBlockhash struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
	Slot                 uint64
	UpdatedAt            time.Time
}

// BlockhashCacheService serves recent finalized blockhashes. It fetches
// lazily over RPC and caches for a short freshness window; on a failed
// refresh it falls back to the previous value rather than failing the
// compose, since the validity window is ~150 blocks.
type BlockhashCacheService struct {
	container.BaseDIInstance

	mu        sync.RWMutex
	current   *CachedBlockhash
	rpcClient *rpc.Client
	logger    *common.ServiceLogger
}

func (svc *BlockhashCacheService) ID() string {
	return BLOCKHASH_CACHE_SERVICE
}

func (svc *BlockhashCacheService) Configure(c container.IContainer) error {
	rpcConfig := c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)
	svc.rpcClient = rpc.New(rpcConfig.RPCUrl)
	svc.logger = common.NewServiceLogger(svc)
	return nil
}

func (svc *BlockhashCacheService) Start() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := svc.refresh(ctx); err != nil {
		svc.logger.Warn().Err(err).Msg("failed to fetch initial blockhash, will retry on first request")
	}
	return nil
}

func (svc *BlockhashCacheService) Stop() error {
	return nil
}

func (svc *BlockhashCacheService) refresh(ctx context.Context) error {
	res, err := svc.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return err
	}

	svc.mu.Lock()
	svc.current = &CachedBlockhash{
		Blockhash:            res.Value.Blockhash,
		LastValidBlockHeight: res.Value.LastValidBlockHeight,
		Slot:                 res.Context.Slot,
		UpdatedAt:            time.Now(),
	}
	svc.mu.Unlock()

	return nil
}

// GetBlockhash returns a finalized blockhash and its last valid block
// height, refreshing over RPC when the cached value has gone stale.
func (svc *BlockhashCacheService) GetBlockhash(ctx context.Context) (solana.Hash, uint64, error) {
	svc.mu.RLock()
	cached := svc.current
	svc.mu.RUnlock()

	if cached != nil && time.Since(cached.UpdatedAt) < blockhashFreshness {
		return cached.Blockhash, cached.LastValidBlockHeight, nil
	}

	if err := svc.refresh(ctx); err != nil {
		if cached != nil {
			svc.logger.Warn().Err(err).Msg("refresh failed, serving previous blockhash")
			return cached.Blockhash, cached.LastValidBlockHeight, nil
		}
		return solana.Hash{}, 0, fmt.Errorf("%w: %s", domain.ErrNetworkUnavailable, err)
	}

	svc.mu.RLock()
	cached = svc.current
	svc.mu.RUnlock()
	return cached.Blockhash, cached.LastValidBlockHeight, nil
}
