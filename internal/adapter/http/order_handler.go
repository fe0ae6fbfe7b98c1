package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Aditya-jedi/Novyn/internal/adapter/http/middleware"
	domain "github.com/Aditya-jedi/Novyn/internal/entity"
	"github.com/Aditya-jedi/Novyn/internal/usecase"
)

type OrderHandler struct {
	create    *usecase.CreateOrder
	intent    *usecase.RequestIntent
	proof     *usecase.SubmitProof
	delivered *usecase.MarkDelivered
	query     *usecase.GetOrder
}

func NewOrderHandler(create *usecase.CreateOrder, intent *usecase.RequestIntent,
	proof *usecase.SubmitProof, delivered *usecase.MarkDelivered, query *usecase.GetOrder) *OrderHandler {
	return &OrderHandler{
		create:    create,
		intent:    intent,
		proof:     proof,
		delivered: delivered,
		query:     query,
	}
}

type lineItemReq struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	UnitPrice int64  `json:"unitPrice" binding:"gte=0"` // zero-price items (promos) are legal
}

type createOrderReq struct {
	UserID      string        `json:"userId"`
	Items       []lineItemReq `json:"items" binding:"required,min=1,dive"`
	TotalAmount int64         `json:"totalAmount" binding:"gte=0"`
}

type submitProofReq struct {
	ExternalOrderID   string `json:"externalOrderId" binding:"required"`
	ExternalPaymentID string `json:"externalPaymentId" binding:"required"`
	Signature         string `json:"signature" binding:"required"`
}

type orderView struct {
	ID              string             `json:"id"`
	UserID          string             `json:"userId,omitempty"`
	Status          string             `json:"status"`
	TotalAmount     int64              `json:"totalAmount"`
	Items           []lineItemReq      `json:"items"`
	Payment         *domain.PaymentRef `json:"payment,omitempty"`
	ReconcileNeeded bool               `json:"reconcileNeeded"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

func viewOf(o *domain.Order) orderView {
	items := make([]lineItemReq, 0, len(o.LineItems))
	for _, it := range o.LineItems {
		items = append(items, lineItemReq{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return orderView{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          string(o.Status),
		TotalAmount:     o.TotalAmount,
		Items:           items,
		Payment:         o.PaymentRef,
		ReconcileNeeded: o.InventoryReconciliationNeeded,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

// CreateOrder handler: translate to use case input
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	items := make([]domain.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domain.LineItem{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	ord, err := h.create.Execute(ctx, usecase.CreateOrderInput{
		UserID:      req.UserID,
		LineItems:   items,
		TotalAmount: req.TotalAmount,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, viewOf(ord))
}

// RequestIntent registers the order amount with the payment gateway and
// returns the handle the caller pays against.
func (h *OrderHandler) RequestIntent(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	in, err := h.intent.Execute(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, in)
}

// SubmitProof commits the paid transition when the proof signature checks out.
func (h *OrderHandler) SubmitProof(c *gin.Context) {
	var req submitProofReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	res, err := h.proof.Execute(ctx, c.Param("id"), domain.Proof{
		ExternalOrderID:   req.ExternalOrderID,
		ExternalPaymentID: req.ExternalPaymentID,
		Signature:         req.Signature,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order":    viewOf(res.Order),
		"replayed": res.Replayed,
	})
}

func (h *OrderHandler) MarkDelivered(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	ord, err := h.delivered.Execute(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(ord))
}

func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	ord, err := h.query.ByID(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(ord))
}

// ListMyOrders scopes the listing to the authenticated subject.
func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	sub := c.GetString(middleware.SubjectKey)
	userID := c.Query("userId")
	if userID == "" {
		userID = sub
	}
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "error_description": "userId required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	orders, err := h.query.ListByUser(ctx, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, viewOf(o))
	}
	c.JSON(http.StatusOK, gin.H{"orders": views})
}

// GetOrderPayment surfaces the gateway's record of the captured payment.
func (h *OrderHandler) GetOrderPayment(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	pd, err := h.query.Payment(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pd)
}

// writeError maps use case failures onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	var (
		ve *usecase.ValidationError
		ce *usecase.ConflictError
		ge *usecase.GatewayError
	)
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "error_description": ve.Error()})
	case errors.Is(err, usecase.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.As(err, &ce):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict", "error_description": ce.Error()})
	case errors.Is(err, usecase.ErrProofInvalid):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "proof_invalid"})
	case errors.As(err, &ge):
		c.JSON(http.StatusBadGateway, gin.H{"error": "gateway_unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
	}
}
