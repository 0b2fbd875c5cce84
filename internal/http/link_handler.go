package http

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qantara-pay/settle-engine/internal/domain"
	"github.com/qantara-pay/settle-engine/internal/http/httputil"
	"github.com/qantara-pay/settle-engine/internal/services/merchant"
)

type LinkHandler struct {
	merchantSvc *merchant.Service
}

func NewLinkHandler(merchantSvc *merchant.Service) *LinkHandler {
	return &LinkHandler{merchantSvc: merchantSvc}
}

func (h *LinkHandler) Root() string {
	return "/links"
}

func (h *LinkHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.POST("", h.create)
	pub.GET("", h.listByMerchant)
	pub.GET("/:linkId", h.get)
	pub.DELETE("/:linkId", h.delete)
}

// CreateLinkRequest describes a fixed-price checkout link
type CreateLinkRequest struct {
	// Merchant the link belongs to
	MerchantID uint64 `json:"merchantId,string" binding:"required" example:"42"`

	// Payment asset the buyer will use
	PayToken string `json:"payToken" binding:"required" enums:"SOL,USDC" example:"USDC"`

	// Price in whole token units (e.g. 9.99 USDC)
	Price float64 `json:"price" binding:"required" example:"9.99"`

	// Split overrides for payments through this link. Optional; zero
	// values fall back to the merchant profile at quote time.
	PayoutBps  uint16 `json:"payoutBps,omitempty" example:"7000"`
	BuybackBps uint16 `json:"buybackBps,omitempty" example:"2000"`
	BurnBps    uint16 `json:"burnBps,omitempty" example:"5000"`

	// Shown on the checkout page. Optional.
	Description string `json:"description,omitempty" example:"Pro subscription"`
}

// @Summary Create payment link
// @Description Mint a short-id checkout link for a fixed-price product.
// @Tags links
// @Accept json
// @Produce json
// @Param request body CreateLinkRequest true "Link parameters"
// @Success 200 {object} httputil.Response{data=domain.PaymentLink} "Created link"
// @Failure 400 {object} httputil.Response "Invalid split or pay token"
// @Failure 404 {object} httputil.Response "Merchant not registered"
// @Router /api/v1/links [post]
func (h *LinkHandler) create(c *gin.Context) {
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	link, err := h.merchantSvc.CreateLink(&domain.PaymentLink{
		MerchantID:  req.MerchantID,
		PayToken:    req.PayToken,
		Price:       req.Price,
		PayoutBps:   req.PayoutBps,
		BuybackBps:  req.BuybackBps,
		BurnBps:     req.BurnBps,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	httputil.Success(c, link)
}

// @Summary List payment links
// @Description List every payment link belonging to a merchant.
// @Tags links
// @Produce json
// @Param merchantId query int true "Merchant identifier" example(42)
// @Success 200 {object} httputil.Response{data=[]domain.PaymentLink} "Payment links"
// @Router /api/v1/links [get]
func (h *LinkHandler) listByMerchant(c *gin.Context) {
	merchantID, err := strconv.ParseUint(c.Query("merchantId"), 10, 64)
	if err != nil {
		httputil.BadRequest(c, "invalid merchantId query parameter")
		return
	}
	httputil.Success(c, h.merchantSvc.ListLinks(merchantID))
}

// @Summary Get payment link
// @Description Fetch a payment link by id.
// @Tags links
// @Produce json
// @Param linkId path string true "Link identifier"
// @Success 200 {object} httputil.Response{data=domain.PaymentLink} "Payment link"
// @Failure 404 {object} httputil.Response "Link not found"
// @Router /api/v1/links/{linkId} [get]
func (h *LinkHandler) get(c *gin.Context) {
	link, err := h.merchantSvc.GetLink(c.Param("linkId"))
	if err != nil {
		respondError(c, err)
		return
	}
	httputil.Success(c, link)
}

// @Summary Delete payment link
// @Description Remove a payment link. Existing quotes against it simply expire.
// @Tags links
// @Produce json
// @Param linkId path string true "Link identifier"
// @Success 200 {object} httputil.Response "Deleted"
// @Failure 404 {object} httputil.Response "Link not found"
// @Router /api/v1/links/{linkId} [delete]
func (h *LinkHandler) delete(c *gin.Context) {
	linkID := c.Param("linkId")
	if _, err := h.merchantSvc.GetLink(linkID); err != nil {
		respondError(c, err)
		return
	}
	if err := h.merchantSvc.DeleteLink(linkID); err != nil {
		respondError(c, err)
		return
	}
	httputil.Success(c, gin.H{"deleted": linkID})
}
