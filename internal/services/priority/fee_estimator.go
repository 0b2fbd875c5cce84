package priority

import (
	"context"
	"sort"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	container "github.com/thehyperflames/dicontainer-go"

	"github.com/qantara-pay/settle-engine/internal/common"
	"github.com/qantara-pay/settle-engine/internal/config"
)

const PRIORITY_FEE_SERVICE = "priority-fee-svc"

// Urgency selects which percentile of recent network fees to pay.
type Urgency uint8

const (
	// UrgencyLow uses the median, for settlements with no time pressure.
	UrgencyLow Urgency = iota
	// UrgencyMedium uses p75, the default for checkout flows.
	UrgencyMedium
	// UrgencyHigh uses p90, for settlements racing a quote expiry.
	UrgencyHigh
)

// defaultFees are fallbacks when the RPC sample is unavailable or empty
// (microlamports per compute unit).
var defaultFees = map[Urgency]uint64{
	UrgencyLow:    1_000,
	UrgencyMedium: 10_000,
	UrgencyHigh:   100_000,
}

// minFeePerCU floors the estimate so a quiet fee market still produces a
// directive worth including.
const minFeePerCU uint64 = 100

// Service estimates a compute-unit price from the cluster's recent
// prioritization fees. Used when a build request asks for an automatic
// priority fee instead of supplying one.
type Service struct {
	container.BaseDIInstance

	rpcClient *rpc.Client
	logger    *common.ServiceLogger
}

func (svc *Service) ID() string {
	return PRIORITY_FEE_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	rpcConfig := c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)
	svc.rpcClient = rpc.New(rpcConfig.RPCUrl)
	svc.logger = common.NewServiceLogger(svc)
	return nil
}

func (svc *Service) Start() error { return nil }
func (svc *Service) Stop() error  { return nil }

// EstimateFee samples recent prioritization fees for the given accounts
// (nil samples the whole cluster) and returns a microlamports-per-CU price
// at the urgency's percentile. RPC failure degrades to the urgency default
// rather than failing the build.
func (svc *Service) EstimateFee(ctx context.Context, urgency Urgency, accounts []solana.PublicKey) uint64 {
	recent, err := svc.rpcClient.GetRecentPrioritizationFees(ctx, accounts)
	if err != nil {
		svc.logger.Warn().Err(err).Msg("fee sample failed, using default")
		return defaultFees[urgency]
	}

	fees := make([]uint64, 0, len(recent))
	for _, f := range recent {
		if f.PrioritizationFee > 0 {
			fees = append(fees, f.PrioritizationFee)
		}
	}
	if len(fees) == 0 {
		return defaultFees[urgency]
	}

	sort.Slice(fees, func(i, j int) bool { return fees[i] < fees[j] })
	fee := percentileFee(fees, urgency.percentile())
	if fee < minFeePerCU {
		fee = minFeePerCU
	}
	return fee
}

func (u Urgency) percentile() int {
	switch u {
	case UrgencyLow:
		return 50
	case UrgencyHigh:
		return 90
	default:
		return 75
	}
}

// UrgencyFromString maps the API's urgency names; unknown values fall back
// to medium.
func UrgencyFromString(s string) Urgency {
	switch s {
	case "low":
		return UrgencyLow
	case "high":
		return UrgencyHigh
	default:
		return UrgencyMedium
	}
}

// percentileFee returns the value at the given percentile of an ascending
// sorted sample, with linear interpolation between neighbors.
func percentileFee(sorted []uint64, percentile int) uint64 {
	if len(sorted) == 0 {
		return 0
	}
	if percentile <= 0 {
		return sorted[0]
	}
	if percentile >= 100 {
		return sorted[len(sorted)-1]
	}

	k := float64(percentile) / 100.0 * float64(len(sorted)-1)
	f := int(k)
	c := f + 1
	if c >= len(sorted) {
		c = len(sorted) - 1
	}
	d := k - float64(f)
	return uint64(float64(sorted[f])*(1-d) + float64(sorted[c])*d)
}
