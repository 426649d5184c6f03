package repository

import (
	"fmt"

	"github.com/nextolk/backend/internal/models"
	"gorm.io/gorm"
)

// AdjustCounter moves an integer column of one row by delta with a single
// UPDATE, clamping at zero. Call it inside the transaction that changed the
// rows being counted.
func AdjustCounter(tx *gorm.DB, model interface{}, id uint, column string, delta int) error {
	if delta == 0 {
		return nil
	}
	expr := gorm.Expr(fmt.Sprintf("CASE WHEN %[1]s + ? < 0 THEN 0 ELSE %[1]s + ? END", column), delta, delta)
	return tx.Model(model).Where("id = ?", id).UpdateColumn(column, expr).Error
}

// AdjustProfileCounter is AdjustCounter for the profile of userID
func AdjustProfileCounter(tx *gorm.DB, userID uint, column string, delta int) error {
	if delta == 0 {
		return nil
	}
	expr := gorm.Expr(fmt.Sprintf("CASE WHEN %[1]s + ? < 0 THEN 0 ELSE %[1]s + ? END", column), delta, delta)
	return tx.Model(&models.Profile{}).Where("user_id = ?", userID).UpdateColumn(column, expr).Error
}

// ReadCounter returns the current value of an integer column
func ReadCounter(tx *gorm.DB, model interface{}, id uint, column string) (int, error) {
	var n int
	err := tx.Model(model).Select(column).Where("id = ?", id).Row().Scan(&n)
	return n, err
}
