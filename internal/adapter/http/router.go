package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Aditya-jedi/Novyn/configs"
	"github.com/Aditya-jedi/Novyn/internal/adapter/http/middleware"
	"github.com/Aditya-jedi/Novyn/internal/logging"
	"github.com/Aditya-jedi/Novyn/internal/security"
)

func NewRouter(cfg configs.Config, h *OrderHandler, th *TokenHandler,
	authz *middleware.Authz, proofs security.ProofService) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.MetricsMiddleware())

	l := logging.New("http")
	r.Use(middleware.Logging(l))

	r.GET("/healthz", func(c *gin.Context) {
		logging.From(c).Info("health check")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	// Prometheus endpoint (scraped by Prometheus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/v1/token", th.IssueToken)

	// Signs proofs the way the gateway would, so payment flows can be
	// exercised without a live gateway. Never mounted outside dev.
	if cfg.App.Env == "dev" {
		r.POST("/_test/sign-proof", signProofHandler(proofs))
	}

	v1 := r.Group("/v1")
	{
		v1.POST("/orders", authz.Require("orders.write"), h.CreateOrder)
		v1.GET("/orders", authz.Require("orders.read"), h.ListMyOrders)
		v1.GET("/orders/:id", authz.Require("orders.read"), h.GetOrderByID)
		v1.POST("/orders/:id/intent", authz.Require("orders.write"), h.RequestIntent)
		v1.POST("/orders/:id/proof", authz.Require("orders.write"), h.SubmitProof)
		v1.POST("/orders/:id/delivered", authz.Require("orders.deliver"), h.MarkDelivered)
		v1.GET("/orders/:id/payment", authz.Require("orders.read"), h.GetOrderPayment)
	}

	return r
}

func signProofHandler(proofs security.ProofService) gin.HandlerFunc {
	type req struct {
		ExternalOrderID   string `json:"externalOrderId" binding:"required"`
		ExternalPaymentID string `json:"externalPaymentId" binding:"required"`
	}
	return func(c *gin.Context) {
		var in req
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"signature": proofs.Sign(in.ExternalOrderID, in.ExternalPaymentID),
		})
	}
}
