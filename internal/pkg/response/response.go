package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// Locked renders a 423 with the current holder so the UI can show
// "in use by X until Y".
func Locked(c *gin.Context, code string, message string, holderID int64, holderLabel string, expiresAt any) {
	ErrorWithDetails(c, http.StatusLocked, code, message, gin.H{
		"lockedById":    holderID,
		"lockedBy":      holderLabel,
		"lockExpiresAt": expiresAt,
	})
}
