package http

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/qantara-pay/settle-engine/internal/common"
	"github.com/qantara-pay/settle-engine/internal/domain"
	"github.com/qantara-pay/settle-engine/internal/http/httputil"
	"github.com/qantara-pay/settle-engine/internal/metrics"
	"github.com/qantara-pay/settle-engine/internal/services/chain"
	"github.com/qantara-pay/settle-engine/internal/services/composer"
	"github.com/qantara-pay/settle-engine/internal/services/fees"
	"github.com/qantara-pay/settle-engine/internal/services/merchant"
	"github.com/qantara-pay/settle-engine/internal/services/quoter"
)

type QuoteHandler struct {
	merchantSvc *merchant.Service
	readerSvc   *chain.ReaderService
	quoterSvc   *quoter.Service
	composerSvc *composer.Service
}

func NewQuoteHandler(merchantSvc *merchant.Service, readerSvc *chain.ReaderService, quoterSvc *quoter.Service, composerSvc *composer.Service) *QuoteHandler {
	return &QuoteHandler{
		merchantSvc: merchantSvc,
		readerSvc:   readerSvc,
		quoterSvc:   quoterSvc,
		composerSvc: composerSvc,
	}
}

func (h *QuoteHandler) Root() string {
	return "/quote"
}

func (h *QuoteHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.getQuote)
}

// QuoteRequest represents the parameters for requesting a settlement quote
type QuoteRequest struct {
	// Registered merchant identifier
	MerchantID uint64 `form:"merchantId" binding:"required" example:"42"`

	// Payment amount in smallest units of the pay token
	// For SOL with 9 decimals: "1000000000" = 1 SOL
	// For USDC with 6 decimals: "1000000" = 1 USDC
	Amount string `form:"amount" binding:"required" example:"1000000000"`

	// Payment asset: SOL or USDC
	PayToken string `form:"payToken" binding:"required" enums:"SOL,USDC" example:"SOL"`

	// Merchant payout share in basis points. Optional; defaults to the
	// merchant profile's configured split.
	PayoutBps *uint16 `form:"payoutBps" example:"7000"`

	// Buyback share in basis points. Optional; defaults to the profile.
	BuybackBps *uint16 `form:"buybackBps" example:"2000"`

	// Share of the buyback output to burn, in basis points of the buyback
	// leg. Optional; defaults to the profile.
	BurnBps *uint16 `form:"burnBps" example:"5000"`
}

// QuoteResponse contains the computed settlement breakdown and the
// prefetched buyback swap route
type QuoteResponse struct {
	// Opaque identifier for this quote
	QuoteID string `json:"quoteId" example:"7b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"`

	MerchantID uint64 `json:"merchantId,string" example:"42"`
	PayToken   string `json:"payToken" example:"SOL"`

	// Total payment amount in smallest pay-token units
	AmountIn string `json:"amountIn" example:"1000000000"`

	// Merchant payout portion of the payment
	Payout string `json:"payout" example:"700000000"`

	// Portion routed into the buyback swap
	Buyback string `json:"buyback" example:"200000000"`

	// Protocol fee portion
	ProtocolFee string `json:"protocolFee" example:"3000000"`

	// Minimum acceptable buyback swap output after slippage, in smallest
	// buyback-token units. "0" when no buyback leg exists.
	MinOut string `json:"minOut" example:"198000000"`

	// Estimated buyback swap output before slippage
	EstimatedTokens string `json:"estimatedTokens" example:"200000000"`

	// Portion of the estimated buyback output that will be burned
	EstimatedBurn string `json:"estimatedBurn" example:"100000000"`

	// Aggregator-built swap transaction for the buyback leg, base64.
	// Pass it unchanged to the build endpoint. Empty when no buyback.
	SwapTransaction string `json:"swapTransaction,omitempty"`

	// Unix timestamp after which this quote must not be used
	ExpiresAt int64 `json:"expiresAt" example:"1756400000"`
}

// resolveBps picks the request override when present, the profile default
// otherwise.
func resolveBps(override *uint16, fallback uint16) uint16 {
	if override != nil {
		return *override
	}
	return fallback
}

// @Summary Get settlement quote
// @Description Compute the payout/buyback/fee split for a payment and prefetch the buyback swap route.
// @Description
// @Description The returned swapTransaction is built against a placeholder payer; it is never submitted
// @Description standalone. Pass it verbatim to POST /api/v1/settle/build, which lifts its accounts into
// @Description the settle instruction.
// @Description
// @Description **Amount format:** smallest token units (lamports for SOL, base units for USDC).
// @Tags quote
// @Produce json
// @Param merchantId query int true "Registered merchant identifier" example(42)
// @Param amount query string true "Payment amount in smallest pay-token units" example("1000000000")
// @Param payToken query string true "Payment asset" Enums(SOL, USDC) example("SOL")
// @Param payoutBps query int false "Merchant payout share in basis points (default: profile setting)" example(7000)
// @Param buybackBps query int false "Buyback share in basis points (default: profile setting)" example(2000)
// @Param burnBps query int false "Burn share of the buyback leg in basis points (default: profile setting)" example(5000)
// @Success 200 {object} httputil.Response{data=QuoteResponse} "Settlement quote with amounts and route"
// @Failure 400 {object} httputil.Response "Invalid parameters or asset not accepted"
// @Failure 403 {object} httputil.Response "Merchant frozen or protocol paused"
// @Failure 404 {object} httputil.Response "Merchant not registered"
// @Failure 422 {object} httputil.Response "No tradable route for the buyback pair"
// @Router /api/v1/quote [get]
func (h *QuoteHandler) getQuote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httputil.BadRequest(c, "invalid query parameters: "+err.Error())
		return
	}

	payToken, ok := domain.PayTokenFromString(req.PayToken)
	if !ok {
		httputil.BadRequest(c, "invalid payToken: must be SOL or USDC")
		return
	}

	amount, err := strconv.ParseUint(req.Amount, 10, 64)
	if err != nil || amount == 0 {
		httputil.BadRequest(c, "invalid amount: must be a positive integer")
		return
	}

	start := time.Now()
	res, err := h.quote(c, &req, payToken, amount)
	metrics.QuoteDuration.WithLabelValues(req.PayToken).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.QuoteRequests.WithLabelValues(req.PayToken, "error").Inc()
		respondError(c, err)
		return
	}
	metrics.QuoteRequests.WithLabelValues(req.PayToken, "ok").Inc()
	httputil.Success(c, res)
}

func (h *QuoteHandler) quote(c *gin.Context, req *QuoteRequest, payToken domain.PayToken, amount uint64) (*QuoteResponse, error) {
	ctx := c.Request.Context()

	profile, err := h.merchantSvc.Get(req.MerchantID)
	if err != nil {
		return nil, err
	}
	if !profile.AllowsToken(payToken) {
		return nil, domain.ErrAssetNotAccepted
	}

	protocol, err := h.readerSvc.FetchProtocolConfig(ctx)
	if err != nil {
		return nil, err
	}
	registry, err := h.readerSvc.FetchMerchantRegistry(ctx, req.MerchantID)
	if err != nil {
		return nil, err
	}
	if protocol.Paused {
		return nil, domain.ErrProtocolPaused
	}
	if registry.Frozen {
		return nil, domain.ErrMerchantFrozen
	}

	payoutBps := resolveBps(req.PayoutBps, profile.DefaultPayoutBps)
	buybackBps := resolveBps(req.BuybackBps, profile.DefaultBuybackBps)
	burnBps := resolveBps(req.BurnBps, profile.DefaultBurnBps)
	if int(payoutBps)+int(buybackBps) > common.BpsDenominator || burnBps > common.BpsDenominator {
		return nil, domain.ErrInvalidBasisPoints
	}

	amounts, err := fees.Split(amount, payoutBps, buybackBps, protocol.ProtocolFeeBps)
	if err != nil {
		return nil, err
	}

	res := &QuoteResponse{
		QuoteID:         uuid.NewString(),
		MerchantID:      req.MerchantID,
		PayToken:        payToken.String(),
		AmountIn:        strconv.FormatUint(amount, 10),
		Payout:          strconv.FormatUint(amounts.Payout, 10),
		Buyback:         strconv.FormatUint(amounts.Buyback, 10),
		ProtocolFee:     strconv.FormatUint(amounts.ProtocolFee, 10),
		MinOut:          "0",
		EstimatedTokens: "0",
		EstimatedBurn:   "0",
		ExpiresAt:       time.Now().Add(h.composerSvc.QuoteTTL()).Unix(),
	}
	if amounts.Buyback == 0 {
		return res, nil
	}

	slippage := profile.SlippageBps
	if slippage == 0 {
		slippage = 100
	}

	var finalHop *domain.Quote
	switch payToken {
	case domain.PayTokenSol:
		finalHop, err = h.quoterSvc.GetQuote(ctx, common.WrappedSolMint.String(), registry.BuybackMint.String(), amounts.Buyback, slippage)
	case domain.PayTokenUsdc:
		var multi *domain.MultiHopQuote
		multi, err = h.quoterSvc.GetMultiHopQuote(ctx, h.readerSvc.UsdcMint().String(), registry.BuybackMint.String(), amounts.Buyback, slippage)
		if err == nil {
			finalHop = multi.SecondHop
		}
	}
	if err != nil {
		return nil, err
	}

	quotedOut, err := strconv.ParseUint(finalHop.OutAmount, 10, 64)
	if err != nil {
		return nil, domain.ErrNotTradable
	}
	minOut, err := fees.ApplySlippage(quotedOut, slippage)
	if err != nil {
		return nil, err
	}
	burn, err := fees.BurnPortion(quotedOut, burnBps)
	if err != nil {
		return nil, err
	}

	build, err := h.quoterSvc.BuildSwapTransaction(ctx, finalHop, domain.SwapBuildOptions{
		WrapUnwrapSol:           true,
		DynamicComputeUnitLimit: true,
	})
	if err != nil {
		return nil, err
	}

	res.MinOut = strconv.FormatUint(minOut, 10)
	res.EstimatedTokens = finalHop.OutAmount
	res.EstimatedBurn = strconv.FormatUint(burn, 10)
	res.SwapTransaction = build.SwapTransaction
	return res, nil
}
