package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/easeaico/memorify/internal/apperr"
	"github.com/easeaico/memorify/internal/types"
)

const identityKey = "memorify.identity"

func (h *Handler) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := h.identities.Identity(c.GetHeader("Authorization"))
		if err != nil {
			apperr.LogWithSeverity(c.Request.Context(), h.logger, err, apperr.SeverityLow, "authenticate", "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusUnauthorized, apperr.Result[any]{
				Error: &apperr.Info{Kind: apperr.KindAuth, Message: apperr.UserMessage(err)},
			})
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

func identity(c *gin.Context) types.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(types.Identity); ok {
			return id
		}
	}
	return types.Identity{}
}

// statusFor maps an error kind to the HTTP status of the response.
func statusFor(info *apperr.Info) int {
	if info == nil {
		return http.StatusOK
	}
	switch info.Kind {
	case apperr.KindAuth:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindDuplicate:
		return http.StatusConflict
	case apperr.KindNoEntries:
		return http.StatusUnprocessableEntity
	case apperr.KindQuota:
		return http.StatusTooManyRequests
	case apperr.KindTimeout:
		return http.StatusGatewayTimeout
	case apperr.KindNetwork, apperr.KindServer, apperr.KindMalformed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respond[T any](c *gin.Context, res apperr.Result[T]) {
	c.JSON(statusFor(res.Error), res)
}

func badRequest(c *gin.Context, err error) {
	info := &apperr.Info{Kind: apperr.KindValidation, Message: apperr.UserMessage(apperr.E(apperr.KindValidation, "bind_request", err))}
	c.AbortWithStatusJSON(http.StatusBadRequest, apperr.Result[any]{Error: info})
}
