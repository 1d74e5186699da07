package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kandy-electricians/task-management-api/middleware"
	"github.com/kandy-electricians/task-management-api/services"
)

// respondError writes the standard error envelope for a service failure.
// Typed service errors map to their status and stable code; anything
// else is logged and surfaces as a generic 500 with no internal detail.
func respondError(c *gin.Context, err error) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		c.JSON(svcErr.Status, gin.H{
			"success": false,
			"error": gin.H{
				"code":    svcErr.Code,
				"message": svcErr.Message,
			},
		})
		return
	}

	log.Printf("Unexpected service error: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "TRANSACTION_FAILURE",
			"message": "Server error",
		},
	})
}

// respondValidationError writes the envelope for a malformed request body.
func respondValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

// parseIDParam reads a numeric :id path parameter. It writes a 400 and
// returns false when the value is not a positive integer.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Invalid id parameter",
			},
		})
		return 0, false
	}
	return uint(id), true
}

// actorFromContext builds the service Actor from the authenticated
// request. It writes a 401 and returns false when the context carries no
// valid identity.
func actorFromContext(c *gin.Context) (services.Actor, bool) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return services.Actor{}, false
	}

	role, err := middleware.GetUserRole(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return services.Actor{}, false
	}

	name, _ := middleware.GetUserName(c)
	return services.Actor{ID: userID, Role: role, Name: name}, true
}
