package handlers

import (
	"errors"
	"net/http"

	"github.com/quantprep/gatekeeper/internal/app/service/checkout"
	"github.com/quantprep/gatekeeper/internal/app/service/identity"
	"github.com/quantprep/gatekeeper/pkg/response"

	"github.com/gin-gonic/gin"
)

// @Summary      Create Checkout Order
// @Description  Creates a provider order for the authenticated user and returns the handle the payment widget needs.
// @Tags         Checkout
// @Accept       json
// @Produce      json
// @Success      200  {object}  handlers.RespOrder
// @Router       /api/v1/checkout/order [post]
func ApiCreateOrder(mgr checkout.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := &checkout.OrderRequest{
			UserID: c.GetString("user_id"),
			Email:  c.GetString("email"),
		}
		res, err := mgr.CreateOrder(c.Request.Context(), req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Verify Checkout Payment
// @Description  Verifies the provider callback signature and activates premium on success.
// @Tags         Checkout
// @Accept       json
// @Produce      json
// @Param        request body checkout.VerifyRequest true "Provider callback fields"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/checkout/verify [post]
func ApiVerifyPayment(mgr checkout.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkout.VerifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if req.Email == "" {
			req.Email = c.GetString("email")
		}

		err := mgr.VerifyPayment(c.Request.Context(), &req)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, response.OKT(map[string]bool{"success": true}))
		case errors.Is(err, checkout.ErrInvalidSignature):
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
		case errors.Is(err, identity.ErrNotIndexed):
			c.JSON(http.StatusNotFound, response.ErrorT[any](response.APIResponseCodeBadRequest, "user not found"))
		default:
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
		}
	}
}

func RegisterCheckoutRoutes(r gin.IRouter, mgr checkout.Manager) {
	r.POST("/order", ApiCreateOrder(mgr))
	r.POST("/verify", ApiVerifyPayment(mgr))
}
