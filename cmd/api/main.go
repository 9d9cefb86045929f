package main

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"agoffice/internal/config"
	"agoffice/internal/database"
	"agoffice/internal/modules/draft"
	"agoffice/internal/modules/reservation"
	jwtsvc "agoffice/internal/pkg/jwt"
	"agoffice/internal/pkg/retry"
	"agoffice/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is empty")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is empty")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := repository.Migrate(db); err != nil {
		log.Fatal(err)
	}

	reservationRepo := repository.NewReservationRepository(db)
	engagementRepo := repository.NewEngagementRepository(db)
	draftRepo := repository.NewDraftRepository(db)

	j := jwtsvc.New(cfg.JWTSecret, 24*time.Hour)

	reservationService := reservation.NewService(reservationRepo, engagementRepo, reservation.Config{
		TTL:          cfg.ReservationTTL,
		SafetyWindow: cfg.ReservationSafetyWindow,
		Backoff: retry.Backoff{
			MaxAttempts: cfg.AllocMaxAttempts,
			Base:        cfg.AllocBackoffBase,
			Cap:         cfg.AllocBackoffCap,
			Jitter:      cfg.AllocBackoffJitter,
		},
	})
	reservationHandler := reservation.NewHandler(reservationService)

	hub := draft.NewHub()
	defer hub.Close()

	draftService := draft.NewService(draftRepo, reservationService, hub, draft.Config{
		LeaseTTL:  cfg.LeaseTTL,
		Retention: cfg.DraftRetention,
	})
	draftHandler := draft.NewHandler(draftService, hub)

	r := gin.Default()

	v1 := r.Group("/api/v1")
	{
		protected := v1.Group("/")
		protected.Use(authMiddleware(j))
		{
			reservationHandler.RegisterRoutes(protected)
			draftHandler.RegisterRoutes(protected)
		}
	}

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}

func authMiddleware(jwt *jwtsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Missing Authorization header",
				},
			})
			return
		}

		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Invalid Authorization header",
				},
			})
			return
		}

		tokenStr := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Empty token",
				},
			})
			return
		}

		claims, err := jwt.ValidateToken(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Invalid token",
				},
			})
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_label", claims.Label)

		c.Next()
	}
}
