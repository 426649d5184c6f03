package util

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HandleDBError responds for a failed lookup and reports whether it did.
// Missing rows become 404s naming the resource.
func HandleDBError(c *gin.Context, err error, resourceName string) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		RespondNotFound(c, resourceName)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		RespondConflict(c, resourceName+" already exists.")
	default:
		RespondError(c, err, "Failed to fetch "+resourceName)
	}
	return true
}
