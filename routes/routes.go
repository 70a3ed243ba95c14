package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/orderpipe/ecommerce-api/events"
	"github.com/orderpipe/ecommerce-api/settlement"
)

// SetupRoutes is the single entry-point that wires up the public,
// user-facing and admin route groups.
func SetupRoutes(r *gin.Engine, db *gorm.DB, eng *settlement.Engine, pub *events.Publisher) {
	SetupProductRoutes(r, db)
	SetupCartRoutes(r, db)
	SetupCouponRoutes(r, db)
	SetupWalletRoutes(r, db)
	SetupOrderRoutes(r, db, eng, pub)
}
