package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"agoffice/internal/config"
	"agoffice/internal/database"
	"agoffice/internal/modules/draft"
	"agoffice/internal/modules/reservation"
	"agoffice/internal/pkg/retry"
	"agoffice/internal/repository"
)

// One-shot maintenance run, meant for cron: sweeps reclaimable code
// reservations and purges abandoned drafts (releasing any reservation a
// purged draft was still holding).
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	reservationRepo := repository.NewReservationRepository(db)
	engagementRepo := repository.NewEngagementRepository(db)
	draftRepo := repository.NewDraftRepository(db)

	reservationService := reservation.NewService(reservationRepo, engagementRepo, reservation.Config{
		TTL:          cfg.ReservationTTL,
		SafetyWindow: cfg.ReservationSafetyWindow,
		Backoff:      retry.Backoff{MaxAttempts: cfg.AllocMaxAttempts},
	})
	draftService := draft.NewService(draftRepo, reservationService, nil, draft.Config{
		LeaseTTL:  cfg.LeaseTTL,
		Retention: cfg.DraftRetention,
	})

	ctx := context.Background()

	reservations, err := reservationService.Cleanup(ctx)
	if err != nil {
		log.Fatalf("reservation cleanup failed: %v", err)
	}

	drafts, err := draftService.PurgeStale(ctx)
	if err != nil {
		log.Fatalf("draft purge failed: %v", err)
	}

	log.Printf("cleanup completed: reservations=%d drafts=%d", reservations, drafts)
}
