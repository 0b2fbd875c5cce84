package quoter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	container "github.com/thehyperflames/dicontainer-go"

	"github.com/qantara-pay/settle-engine/internal/common"
	"github.com/qantara-pay/settle-engine/internal/config"
	"github.com/qantara-pay/settle-engine/internal/domain"
	"github.com/qantara-pay/settle-engine/internal/metrics"
)

const AGGREGATOR_SERVICE = "aggregator-quoter-svc"

// placeholderPayer is sent as the user public key when building swap
// transactions. The swap is never submitted standalone; its accounts are
// lifted into the settle instruction, where the vault PDA is the real
// authority. The system program address is a stable, valid placeholder.
const placeholderPayer = "11111111111111111111111111111111"

// Service is the HTTP client for the external route aggregator. Quotes are
// requested fresh per compose; nothing here is cached.
type Service struct {
	container.BaseDIInstance

	baseURL  string
	client   *http.Client
	attempts int
	logger   *common.ServiceLogger
}

func (svc *Service) ID() string {
	return AGGREGATOR_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	cfg := c.GetConfig(config.AGGREGATOR_CONFIG_KEY).(*config.AggregatorConfig)

	svc.baseURL = strings.TrimRight(cfg.BaseURL, "/")
	svc.client = &http.Client{Timeout: cfg.RequestTimeout}
	svc.attempts = cfg.QuoteAttempts

	svc.logger = common.NewServiceLogger(svc)
	svc.logger.Info().Str("baseURL", svc.baseURL).Msg("configured")
	return nil
}

func (svc *Service) Start() error { return nil }
func (svc *Service) Stop() error  { return nil }

// warn falls back to the package logger when the service was constructed
// directly rather than through the container.
func (svc *Service) warn() *zerolog.Event {
	if svc.logger != nil {
		return svc.logger.Warn()
	}
	return log.Warn()
}

type quoteResponse struct {
	InputMint   string `json:"inputMint"`
	OutputMint  string `json:"outputMint"`
	InAmount    string `json:"inAmount"`
	OutAmount   string `json:"outAmount"`
	ContextSlot uint64 `json:"contextSlot"`
}

// GetQuote asks the aggregator for a single-hop route. An untradable pair,
// and any failure still present once the attempt budget is spent, degrade
// into ErrNotTradable; the caller decides whether a fresh compose retries.
func (svc *Service) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps uint16) (*domain.Quote, error) {
	params := url.Values{}
	params.Set("inputMint", inputMint)
	params.Set("outputMint", outputMint)
	params.Set("amount", strconv.FormatUint(amount, 10))
	// The aggregator's quote endpoint takes slippage as a percentage, so
	// 50 bps must arrive as 0.5, not truncate to 0.
	params.Set("slippageBps", strconv.FormatFloat(float64(slippageBps)/100, 'f', -1, 64))
	params.Set("onlyDirectRoutes", "false")
	params.Set("asLegacyTransaction", "false")

	endpoint := svc.baseURL + "/swap/v1/quote?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt < svc.attempts; attempt++ {
		quote, err := svc.fetchQuote(ctx, endpoint)
		if err == nil {
			return quote, nil
		}
		lastErr = err
		svc.warn().Err(err).
			Int("attempt", attempt+1).
			Str("inputMint", inputMint).
			Str("outputMint", outputMint).
			Msg("quote attempt failed")
	}
	return nil, fmt.Errorf("%w: %s -> %s: %s", domain.ErrNotTradable, inputMint, outputMint, lastErr)
}

func (svc *Service) fetchQuote(ctx context.Context, endpoint string) (*domain.Quote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := svc.client.Do(req)
	metrics.AggregatorDuration.WithLabelValues("quote").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AggregatorRequests.WithLabelValues("quote", "error").Inc()
		return nil, err
	}
	metrics.AggregatorRequests.WithLabelValues("quote", strconv.Itoa(res.StatusCode)).Inc()
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("aggregator returned %d: %s", res.StatusCode, truncate(body, 256))
	}

	var decoded quoteResponse
	if err := sonic.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("undecodable quote response: %w", err)
	}
	if decoded.OutAmount == "" {
		return nil, fmt.Errorf("quote response missing outAmount")
	}

	return &domain.Quote{
		InputMint:   decoded.InputMint,
		OutputMint:  decoded.OutputMint,
		InAmount:    decoded.InAmount,
		OutAmount:   decoded.OutAmount,
		ContextSlot: decoded.ContextSlot,
		Raw:         body,
	}, nil
}

// GetMultiHopQuote chains USDC -> wrapped SOL -> buyback token. The first
// hop's exact output feeds the second hop; no amount is skimmed between.
func (svc *Service) GetMultiHopQuote(ctx context.Context, usdcMint, buybackMint string, amount uint64, slippageBps uint16) (*domain.MultiHopQuote, error) {
	solMint := common.WrappedSolMint.String()

	first, err := svc.GetQuote(ctx, usdcMint, solMint, amount, slippageBps)
	if err != nil {
		return nil, err
	}

	hopAmount, err := strconv.ParseUint(first.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: non-numeric hop output %q", domain.ErrNotTradable, first.OutAmount)
	}

	second, err := svc.GetQuote(ctx, solMint, buybackMint, hopAmount, slippageBps)
	if err != nil {
		return nil, err
	}

	return &domain.MultiHopQuote{
		FirstHop:  first,
		SecondHop: second,
		TotalOut:  second.OutAmount,
	}, nil
}

type swapRequest struct {
	QuoteResponse             sonicRaw `json:"quoteResponse"`
	UserPublicKey             string   `json:"userPublicKey"`
	WrapUnwrapSOL             bool     `json:"wrapUnwrapSOL"`
	DynamicComputeUnitLimit   bool     `json:"dynamicComputeUnitLimit"`
	PrioritizationFeeLamports uint64   `json:"prioritizationFeeLamports,omitempty"`
}

type sonicRaw []byte

func (r sonicRaw) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

type swapResponse struct {
	SwapTransaction           string `json:"swapTransaction"`
	LastValidBlockHeight      uint64 `json:"lastValidBlockHeight"`
	PrioritizationFeeLamports uint64 `json:"prioritizationFeeLamports"`
}

// BuildSwapTransaction asks the aggregator to compile the quoted route into
// an unsigned transaction. The placeholder payer is intentional: the
// resulting transaction is mined for its accounts, never submitted.
func (svc *Service) BuildSwapTransaction(ctx context.Context, quote *domain.Quote, opts domain.SwapBuildOptions) (*domain.SwapBuild, error) {
	payload, err := sonic.Marshal(swapRequest{
		QuoteResponse:             sonicRaw(quote.Raw),
		UserPublicKey:             placeholderPayer,
		WrapUnwrapSOL:             opts.WrapUnwrapSol,
		DynamicComputeUnitLimit:   opts.DynamicComputeUnitLimit,
		PrioritizationFeeLamports: opts.PriorityFeeLamports,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.baseURL+"/swap/v1", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	res, err := svc.client.Do(req)
	metrics.AggregatorDuration.WithLabelValues("swap").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AggregatorRequests.WithLabelValues("swap", "error").Inc()
		return nil, fmt.Errorf("%w: %s", domain.ErrNotTradable, err)
	}
	metrics.AggregatorRequests.WithLabelValues("swap", strconv.Itoa(res.StatusCode)).Inc()
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotTradable, err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: swap build returned %d: %s", domain.ErrNotTradable, res.StatusCode, truncate(body, 256))
	}

	var decoded swapResponse
	if err := sonic.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("%w: undecodable swap response: %s", domain.ErrNotTradable, err)
	}
	if decoded.SwapTransaction == "" {
		return nil, fmt.Errorf("%w: swap response missing transaction", domain.ErrNotTradable)
	}

	return &domain.SwapBuild{
		Quote:                quote,
		SwapTransaction:      decoded.SwapTransaction,
		LastValidBlockHeight: decoded.LastValidBlockHeight,
		PriorityFeeLamports:  decoded.PrioritizationFeeLamports,
	}, nil
}

func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}
