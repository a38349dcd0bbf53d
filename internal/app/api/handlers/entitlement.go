package handlers

import (
	"errors"
	"net/http"

	"github.com/quantprep/gatekeeper/internal/app/service/entitlement"
	"github.com/quantprep/gatekeeper/internal/app/service/identity"
	"github.com/quantprep/gatekeeper/pkg/logctx"
	"github.com/quantprep/gatekeeper/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// @Summary      Get Entitlement
// @Description  Returns the authenticated user's plan/status. Polled by the dashboard after checkout redirect.
// @Tags         Entitlement
// @Produce      json
// @Success      200  {object}  handlers.RespEntitlement
// @Router       /api/v1/entitlement [get]
func ApiGetEntitlement(ents *entitlement.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, err := ents.Get(c.Request.Context(), c.GetString("user_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(e.Info()))
	}
}

// @Summary      Bootstrap Identity
// @Description  Ensures the user row, free entitlement and email index exist. Called on every login.
// @Tags         Identity
// @Accept       json
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/identity/bootstrap [post]
func ApiBootstrapIdentity(ids *identity.Service, ents *entitlement.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString("user_id")
		email := c.GetString("email")

		user, err := ids.EnsureUser(c.Request.Context(), uid, email, c.GetString("display_name"))
		if err != nil {
			if errors.Is(err, identity.ErrEmailConflict) {
				c.JSON(http.StatusConflict, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}

		if err := ents.EnsureFree(c.Request.Context(), uid); err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}

		logctx.FromGin(c, log).Infow("identity_bootstrapped", "user_id", uid)
		c.JSON(http.StatusOK, response.OKT(user))
	}
}

type profileUpdateRequest struct {
	Theme      *string         `json:"theme"`
	Progress   *datatypes.JSON `json:"progress"`
	QuizScores *datatypes.JSON `json:"quiz_scores"`
}

// @Summary      Get Profile
// @Description  Returns the authenticated user's dashboard profile.
// @Tags         Identity
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/profile [get]
func ApiGetProfile(ids *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := ids.Get(c.Request.Context(), c.GetString("user_id"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, response.ErrorT[any](response.APIResponseCodeBadRequest, "user not found"))
				return
			}
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(user))
	}
}

// @Summary      Update Profile
// @Description  Persists theme/progress/quiz-score state owned by the dashboard client.
// @Tags         Identity
// @Accept       json
// @Produce      json
// @Param        request body handlers.profileUpdateRequest true "Fields to update"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/profile [put]
func ApiUpdateProfile(ids *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req profileUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		updates := map[string]any{}
		if req.Theme != nil {
			updates["theme"] = *req.Theme
		}
		if req.Progress != nil {
			updates["progress"] = *req.Progress
		}
		if req.QuizScores != nil {
			updates["quiz_scores"] = *req.QuizScores
		}

		err := ids.UpdateProfile(c.Request.Context(), c.GetString("user_id"), updates)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, response.ErrorT[any](response.APIResponseCodeBadRequest, "user not found"))
				return
			}
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func RegisterEntitlementRoutes(r gin.IRouter, ids *identity.Service, ents *entitlement.Service, log *zap.SugaredLogger) {
	r.GET("/entitlement", ApiGetEntitlement(ents))
	r.POST("/identity/bootstrap", ApiBootstrapIdentity(ids, ents, log))
	r.GET("/profile", ApiGetProfile(ids))
	r.PUT("/profile", ApiUpdateProfile(ids))
}
