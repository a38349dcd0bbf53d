package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/quantprep/gatekeeper/internal/app/service/entitlement"
	"github.com/quantprep/gatekeeper/internal/app/service/identity"
	"github.com/quantprep/gatekeeper/internal/app/service/statistics"
	models "github.com/quantprep/gatekeeper/internal/models"
	"github.com/quantprep/gatekeeper/pkg/response"

	"github.com/gin-gonic/gin"
)

type adminUserItem struct {
	UID         string              `json:"uid"`
	Email       string              `json:"email"`
	DisplayName string              `json:"display_name"`
	Entitlement *models.Entitlement `json:"entitlement"`
	CreatedAt   time.Time           `json:"created_at"`
}

// @Summary      Search Users (Admin)
// @Description  Looks up users by exact email and returns their entitlement state.
// @Tags         Admin
// @Produce      json
// @Param        email query string true "Email address"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/users [get]
func ApiAdminSearchUsers(ids *identity.Service, ents *entitlement.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.Query("email")
		if email == "" {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing email"))
			return
		}

		users, err := ids.FindByEmail(c.Request.Context(), email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}

		items := make([]*adminUserItem, 0, len(users))
		for _, u := range users {
			e, err := ents.Get(c.Request.Context(), u.ID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
				return
			}
			items = append(items, &adminUserItem{
				UID:         u.ID,
				Email:       u.Email,
				DisplayName: u.DisplayName,
				Entitlement: e,
				CreatedAt:   u.CreatedAt,
			})
		}
		c.JSON(http.StatusOK, response.OKT(items))
	}
}

type adminEntitlementRequest struct {
	UserID  string `json:"user_id"`
	Premium bool   `json:"premium"`
}

// @Summary      Set Entitlement (Admin)
// @Description  Grants or revokes premium for a user, bypassing providers.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body handlers.adminEntitlementRequest true "Target user and desired plan"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/entitlement [post]
func ApiAdminSetEntitlement(ents *entitlement.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req adminEntitlementRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if req.UserID == "" {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing user_id"))
			return
		}

		e, err := ents.AdminSet(c.Request.Context(), req.UserID, req.Premium, c.GetString("user_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(e))
	}
}

// @Summary      List Payments (Admin)
// @Description  Retrieves a paginated and filterable list of payment records.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body statistics.ScanPaymentsRequest true "Filters, pagination and sorting"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/payments [post]
func ApiAdminListPayments(stats *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.ScanPaymentsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := stats.ScanPayments(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get Overview (Admin)
// @Description  Returns headline user/payment counts plus per-day payment totals.
// @Tags         Admin
// @Produce      json
// @Param        days query int false "Window size in days (default 30)"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/stats [get]
func ApiAdminGetOverview(stats *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		days := 30
		if v := c.Query("days"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > 366 {
				c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, "invalid days"))
				return
			}
			days = n
		}
		to := time.Now()
		res, err := stats.GetOverview(c.Request.Context(), to.AddDate(0, 0, -days), to)
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterAdminRoutes(r gin.IRouter, ids *identity.Service, ents *entitlement.Service, stats *statistics.Service) {
	r.GET("/users", ApiAdminSearchUsers(ids, ents))
	r.POST("/entitlement", ApiAdminSetEntitlement(ents))
	r.POST("/payments", ApiAdminListPayments(stats))
	r.GET("/stats", ApiAdminGetOverview(stats))
}
