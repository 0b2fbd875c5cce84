package http

import (
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/qantara-pay/settle-engine/internal/common"
	"github.com/qantara-pay/settle-engine/internal/domain"
	"github.com/qantara-pay/settle-engine/internal/http/httputil"
	"github.com/qantara-pay/settle-engine/internal/services/composer"
	"github.com/qantara-pay/settle-engine/internal/services/merchant"
	"github.com/qantara-pay/settle-engine/internal/services/priority"
)

type SettleHandler struct {
	composerSvc *composer.Service
	merchantSvc *merchant.Service
	prioritySvc *priority.Service
}

func NewSettleHandler(composerSvc *composer.Service, merchantSvc *merchant.Service, prioritySvc *priority.Service) *SettleHandler {
	return &SettleHandler{
		composerSvc: composerSvc,
		merchantSvc: merchantSvc,
		prioritySvc: prioritySvc,
	}
}

func (h *SettleHandler) Root() string {
	return "/settle"
}

func (h *SettleHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.POST("/build", h.buildTransaction)
}

// BuildRequest describes one settlement to turn into an unsigned transaction
type BuildRequest struct {
	// Registered merchant identifier
	MerchantID uint64 `json:"merchantId,string" binding:"required" example:"42"`

	// Buyer wallet that will sign and pay (Solana base58 public key)
	Payer string `json:"payer" binding:"required" example:"5oNDL3swdJJF1g9DzJiZ4ynHXgszjAEpUkxVYejchzrY"`

	// Payment amount in smallest pay-token units
	Amount string `json:"amount" binding:"required" example:"1000000000"`

	// Payment asset: SOL or USDC
	PayToken string `json:"payToken" binding:"required" enums:"SOL,USDC" example:"SOL"`

	// Minimum acceptable buyback swap output. Required alongside
	// swapTransaction; when both are absent the composer derives it from
	// a fresh quote.
	MinOut string `json:"minOut,omitempty" example:"198000000"`

	// Merchant payout share in basis points (default: profile setting)
	PayoutBps *uint16 `json:"payoutBps,omitempty" example:"7000"`

	// Buyback share in basis points (default: profile setting)
	BuybackBps *uint16 `json:"buybackBps,omitempty" example:"2000"`

	// Burn share of the buyback leg in basis points (default: profile setting)
	BurnBps *uint16 `json:"burnBps,omitempty" example:"5000"`

	// Prefetched swap transaction from the quote endpoint, base64.
	// Optional; when absent the composer quotes the buyback leg itself.
	SwapTransaction string `json:"swapTransaction,omitempty"`

	// Compute-budget priority fee in micro-lamports per compute unit.
	// Optional; zero omits the directive.
	PriorityFeeMicroLamports uint64 `json:"priorityFeeMicroLamports,omitempty" example:"10000"`

	// When set and no explicit fee is given, the fee is estimated from
	// recent network prioritization fees at this urgency.
	PriorityFeeUrgency string `json:"priorityFeeUrgency,omitempty" enums:"low,medium,high" example:"medium"`
}

// BuildResponse carries the unsigned transaction ready for wallet signing
type BuildResponse struct {
	// Unsigned transaction, base64 encoded
	Transaction string `json:"transaction"`

	// Unix timestamp after which the transaction must not be signed
	ExpiresAt int64 `json:"expiresAt" example:"1756400000"`

	// Last block height at which the embedded blockhash is valid
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight,omitempty" example:"312456789"`
}

// @Summary Build settlement transaction
// @Description Run the full settlement pipeline and return an unsigned transaction for the buyer to sign.
// @Description
// @Description The pipeline validates the split, reads fresh protocol and merchant state on-chain, splits
// @Description the amount, resolves the buyback swap route (reusing a prefetched swapTransaction when
// @Description supplied), merges the route accounts into a single settle instruction and stamps a recent
// @Description blockhash. The result expires after the configured quote TTL; request a new one after that.
// @Tags settle
// @Accept json
// @Produce json
// @Param request body BuildRequest true "Settlement parameters"
// @Success 200 {object} httputil.Response{data=BuildResponse} "Unsigned transaction"
// @Failure 400 {object} httputil.Response "Invalid parameters, bad split or asset not accepted"
// @Failure 403 {object} httputil.Response "Merchant frozen or protocol paused"
// @Failure 404 {object} httputil.Response "Merchant not registered"
// @Failure 422 {object} httputil.Response "No tradable route for the buyback pair"
// @Failure 503 {object} httputil.Response "RPC or aggregator unreachable"
// @Router /api/v1/settle/build [post]
func (h *SettleHandler) buildTransaction(c *gin.Context) {
	var req BuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	settleReq, profile, err := h.parseBuildRequest(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	if settleReq.PriorityFeeMicroLamports == 0 && req.PriorityFeeUrgency != "" {
		settleReq.PriorityFeeMicroLamports = h.prioritySvc.EstimateFee(
			c.Request.Context(), priority.UrgencyFromString(req.PriorityFeeUrgency), nil)
	}

	unsigned, err := h.composerSvc.Compose(c.Request.Context(), settleReq, profile)
	if err != nil {
		respondError(c, err)
		return
	}

	httputil.Success(c, BuildResponse{
		Transaction:          unsigned.Transaction,
		ExpiresAt:            unsigned.ExpiresAt,
		LastValidBlockHeight: unsigned.LastValidBlockHeight,
	})
}

func (h *SettleHandler) parseBuildRequest(req *BuildRequest) (*domain.SettleRequest, *domain.MerchantProfile, error) {
	payToken, ok := domain.PayTokenFromString(req.PayToken)
	if !ok {
		return nil, nil, fmt.Errorf("%w: unsupported pay token %q", domain.ErrAssetNotAccepted, req.PayToken)
	}

	payer, err := solana.PublicKeyFromBase58(req.Payer)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: payer %q", domain.ErrInvalidAddress, req.Payer)
	}

	amount, err := strconv.ParseUint(req.Amount, 10, 64)
	if err != nil || amount == 0 {
		return nil, nil, common.HTTPErrorBadRequest("amount must be a positive integer")
	}

	var minOut uint64
	if req.MinOut != "" {
		minOut, err = strconv.ParseUint(req.MinOut, 10, 64)
		if err != nil {
			return nil, nil, common.HTTPErrorBadRequest("minOut must be a non-negative integer")
		}
	}

	profile, err := h.merchantSvc.Get(req.MerchantID)
	if err != nil {
		return nil, nil, err
	}

	return &domain.SettleRequest{
		MerchantID:               req.MerchantID,
		Payer:                    payer,
		Amount:                   amount,
		PayToken:                 payToken,
		MinOut:                   minOut,
		PayoutBps:                resolveBps(req.PayoutBps, profile.DefaultPayoutBps),
		BuybackBps:               resolveBps(req.BuybackBps, profile.DefaultBuybackBps),
		BurnBps:                  resolveBps(req.BurnBps, profile.DefaultBurnBps),
		SwapTransaction:          req.SwapTransaction,
		PriorityFeeMicroLamports: req.PriorityFeeMicroLamports,
	}, profile, nil
}
