package http

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qantara-pay/settle-engine/internal/domain"
	"github.com/qantara-pay/settle-engine/internal/http/httputil"
	"github.com/qantara-pay/settle-engine/internal/services/merchant"
)

type MerchantHandler struct {
	merchantSvc *merchant.Service
}

func NewMerchantHandler(merchantSvc *merchant.Service) *MerchantHandler {
	return &MerchantHandler{merchantSvc: merchantSvc}
}

func (h *MerchantHandler) Root() string {
	return "/merchants"
}

func (h *MerchantHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.POST("", h.register)
	pub.GET("/:merchantId", h.get)
	pub.PATCH("/:merchantId", h.update)
	admin.GET("", h.list)
}

// RegisterMerchantRequest carries the business configuration for a merchant
type RegisterMerchantRequest struct {
	// On-chain merchant identifier
	MerchantID uint64 `json:"merchantId,string" binding:"required" example:"42"`

	// Wallet that owns the merchant registry (base58)
	OwnerWallet string `json:"ownerWallet" binding:"required" example:"5oNDL3swdJJF1g9DzJiZ4ynHXgszjAEpUkxVYejchzrY"`

	// Wallet receiving the merchant payout (base58)
	PayoutWallet string `json:"payoutWallet" binding:"required" example:"8dHEsh6zQvCbmQw1DcZ88qw9UYzF2mdSJyP7q2MRyYcZ"`

	// Mint of the token bought back on settlement (base58)
	BuybackMint string `json:"buybackMint" binding:"required" example:"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"`

	// Vault token account holding bought-back tokens. Optional; derived
	// from the vault PDA when absent.
	VaultBuybackToken string `json:"vaultBuybackToken,omitempty"`

	// Default payout share in basis points
	DefaultPayoutBps uint16 `json:"defaultPayoutBps" example:"7000"`

	// Default buyback share in basis points
	DefaultBuybackBps uint16 `json:"defaultBuybackBps" example:"2000"`

	// Default burn share of the buyback leg in basis points
	DefaultBurnBps uint16 `json:"defaultBurnBps" example:"5000"`

	// Slippage tolerance in basis points. Optional; default 100 (1%).
	SlippageBps uint16 `json:"slippageBps,omitempty" example:"100"`

	// Accepted payment assets
	AllowSol  bool `json:"allowSol" example:"true"`
	AllowUsdc bool `json:"allowUsdc" example:"true"`

	// Settlement notification endpoint. Optional.
	WebhookURL string `json:"webhookUrl,omitempty"`
}

// UpdateMerchantRequest holds the mutable profile fields; absent fields keep
// their current values
type UpdateMerchantRequest struct {
	PayoutWallet      *string `json:"payoutWallet,omitempty"`
	BuybackMint       *string `json:"buybackMint,omitempty"`
	VaultBuybackToken *string `json:"vaultBuybackToken,omitempty"`
	DefaultPayoutBps  *uint16 `json:"defaultPayoutBps,omitempty"`
	DefaultBuybackBps *uint16 `json:"defaultBuybackBps,omitempty"`
	DefaultBurnBps    *uint16 `json:"defaultBurnBps,omitempty"`
	SlippageBps       *uint16 `json:"slippageBps,omitempty"`
	AllowSol          *bool   `json:"allowSol,omitempty"`
	AllowUsdc         *bool   `json:"allowUsdc,omitempty"`
	WebhookURL        *string `json:"webhookUrl,omitempty"`
}

func parseMerchantID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("merchantId"), 10, 64)
	if err != nil {
		httputil.BadRequest(c, "invalid merchant id")
		return 0, false
	}
	return id, true
}

// @Summary Register merchant
// @Description Create the off-chain profile for an on-chain merchant. Records the derived registry
// @Description address and the default payout/buyback/burn split used when a quote carries no override.
// @Tags merchants
// @Accept json
// @Produce json
// @Param request body RegisterMerchantRequest true "Merchant configuration"
// @Success 200 {object} httputil.Response{data=domain.MerchantProfile} "Registered profile"
// @Failure 400 {object} httputil.Response "Invalid wallet address or split"
// @Failure 409 {object} httputil.Response "Merchant already registered"
// @Router /api/v1/merchants [post]
func (h *MerchantHandler) register(c *gin.Context) {
	var req RegisterMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	profile, err := h.merchantSvc.Register(&domain.MerchantProfile{
		MerchantID:        req.MerchantID,
		OwnerWallet:       req.OwnerWallet,
		PayoutWallet:      req.PayoutWallet,
		BuybackMint:       req.BuybackMint,
		VaultBuybackToken: req.VaultBuybackToken,
		DefaultPayoutBps:  req.DefaultPayoutBps,
		DefaultBuybackBps: req.DefaultBuybackBps,
		DefaultBurnBps:    req.DefaultBurnBps,
		SlippageBps:       req.SlippageBps,
		AllowSol:          req.AllowSol,
		AllowUsdc:         req.AllowUsdc,
		WebhookURL:        req.WebhookURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	httputil.Success(c, profile)
}

// @Summary Get merchant
// @Description Fetch a merchant profile by id, or by owner wallet when the ownerWallet query parameter is set.
// @Tags merchants
// @Produce json
// @Param merchantId path int true "Merchant identifier" example(42)
// @Success 200 {object} httputil.Response{data=domain.MerchantProfile} "Merchant profile"
// @Failure 404 {object} httputil.Response "Merchant not registered"
// @Router /api/v1/merchants/{merchantId} [get]
func (h *MerchantHandler) get(c *gin.Context) {
	id, ok := parseMerchantID(c)
	if !ok {
		return
	}
	profile, err := h.merchantSvc.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	httputil.Success(c, profile)
}

// @Summary Update merchant
// @Description Apply a partial update to a merchant profile. Absent fields keep their current values.
// @Tags merchants
// @Accept json
// @Produce json
// @Param merchantId path int true "Merchant identifier" example(42)
// @Param request body UpdateMerchantRequest true "Fields to change"
// @Success 200 {object} httputil.Response{data=domain.MerchantProfile} "Updated profile"
// @Failure 400 {object} httputil.Response "Invalid wallet address or split"
// @Failure 404 {object} httputil.Response "Merchant not registered"
// @Router /api/v1/merchants/{merchantId} [patch]
func (h *MerchantHandler) update(c *gin.Context) {
	id, ok := parseMerchantID(c)
	if !ok {
		return
	}

	var req UpdateMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	profile, err := h.merchantSvc.Update(id, func(p *domain.MerchantProfile) error {
		if req.PayoutWallet != nil {
			p.PayoutWallet = *req.PayoutWallet
		}
		if req.BuybackMint != nil {
			p.BuybackMint = *req.BuybackMint
		}
		if req.VaultBuybackToken != nil {
			p.VaultBuybackToken = *req.VaultBuybackToken
		}
		if req.DefaultPayoutBps != nil {
			p.DefaultPayoutBps = *req.DefaultPayoutBps
		}
		if req.DefaultBuybackBps != nil {
			p.DefaultBuybackBps = *req.DefaultBuybackBps
		}
		if req.DefaultBurnBps != nil {
			p.DefaultBurnBps = *req.DefaultBurnBps
		}
		if req.SlippageBps != nil {
			p.SlippageBps = *req.SlippageBps
		}
		if req.AllowSol != nil {
			p.AllowSol = *req.AllowSol
		}
		if req.AllowUsdc != nil {
			p.AllowUsdc = *req.AllowUsdc
		}
		if req.WebhookURL != nil {
			p.WebhookURL = *req.WebhookURL
		}
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	httputil.Success(c, profile)
}

// @Summary List merchants
// @Description List all registered merchant profiles.
// @Tags merchants
// @Produce json
// @Success 200 {object} httputil.Response{data=[]domain.MerchantProfile} "Registered profiles"
// @Router /api/v1/admin/merchants [get]
func (h *MerchantHandler) list(c *gin.Context) {
	httputil.Success(c, h.merchantSvc.List())
}
