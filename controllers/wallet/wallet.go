package walletControllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/orderpipe/ecommerce-api/models"
)

// GET /user/wallet
func GetWallet(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		userID := userIDVal.(string)

		var wallet models.Wallet
		err := db.Where("user_id = ?", userID).First(&wallet).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, models.Wallet{UserID: userID, Balance: decimal.Zero})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load wallet"})
			return
		}
		c.JSON(http.StatusOK, wallet)
	}
}

type CreditWalletInput struct {
	UserID string          `json:"user_id" binding:"required"`
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// POST /admin/wallet/credit
func CreditWallet(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input CreditWalletInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		if input.Amount.Sign() <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be positive"})
			return
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Wallet{}).
				Where("user_id = ?", input.UserID).
				UpdateColumn("balance", gorm.Expr("balance + ?", input.Amount))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return tx.Create(&models.Wallet{UserID: input.UserID, Balance: input.Amount}).Error
			}
			return nil
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to credit wallet"})
			return
		}

		var wallet models.Wallet
		if err := db.Where("user_id = ?", input.UserID).First(&wallet).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load wallet"})
			return
		}
		c.JSON(http.StatusOK, wallet)
	}
}
