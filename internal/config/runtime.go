package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultReservationTTL    = "15m"
	defaultSafetyWindow      = "24h"
	defaultAllocMaxAttempts  = "5"
	defaultAllocBackoffBase  = "200ms"
	defaultAllocBackoffCap   = "3s"
	defaultAllocJitter       = "300ms"
	defaultLeaseTTL          = "30m"
	defaultDraftRetention    = "720h"
	defaultPort              = "8080"
)

// Runtime holds the tunables of the reservation and draft-lease subsystem.
// Everything is driven by environment variables with sane defaults so the
// service can run locally with just DATABASE_URL and JWT_SECRET set.
type Runtime struct {
	DatabaseURL string
	Port        string
	JWTSecret   string

	// Reservation allocator
	ReservationTTL          time.Duration
	ReservationSafetyWindow time.Duration
	AllocMaxAttempts        int
	AllocBackoffBase        time.Duration
	AllocBackoffCap         time.Duration
	AllocBackoffJitter      time.Duration

	// Draft leasing
	LeaseTTL       time.Duration
	DraftRetention time.Duration
}

func Load() (*Runtime, error) {
	cfg := &Runtime{
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		Port:        strings.TrimSpace(getEnv("PORT", defaultPort)),
		JWTSecret:   strings.TrimSpace(os.Getenv("JWT_SECRET")),
	}

	var err error
	cfg.ReservationTTL, err = parseDurationEnv("RESERVATION_TTL", defaultReservationTTL)
	if err != nil {
		return nil, err
	}
	cfg.ReservationSafetyWindow, err = parseDurationEnv("RESERVATION_SAFETY_WINDOW", defaultSafetyWindow)
	if err != nil {
		return nil, err
	}
	cfg.AllocMaxAttempts, err = parseIntEnv("ALLOC_MAX_ATTEMPTS", defaultAllocMaxAttempts)
	if err != nil {
		return nil, err
	}
	cfg.AllocBackoffBase, err = parseDurationEnv("ALLOC_BACKOFF_BASE", defaultAllocBackoffBase)
	if err != nil {
		return nil, err
	}
	cfg.AllocBackoffCap, err = parseDurationEnv("ALLOC_BACKOFF_CAP", defaultAllocBackoffCap)
	if err != nil {
		return nil, err
	}
	cfg.AllocBackoffJitter, err = parseDurationEnv("ALLOC_BACKOFF_JITTER", defaultAllocJitter)
	if err != nil {
		return nil, err
	}
	cfg.LeaseTTL, err = parseDurationEnv("LEASE_TTL", defaultLeaseTTL)
	if err != nil {
		return nil, err
	}
	cfg.DraftRetention, err = parseDurationEnv("DRAFT_RETENTION", defaultDraftRetention)
	if err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Runtime) error {
	if cfg.ReservationTTL <= 0 {
		return fmt.Errorf("RESERVATION_TTL must be > 0")
	}
	if cfg.ReservationSafetyWindow < cfg.ReservationTTL {
		return fmt.Errorf("RESERVATION_SAFETY_WINDOW must be >= RESERVATION_TTL")
	}
	if cfg.AllocMaxAttempts < 1 {
		return fmt.Errorf("ALLOC_MAX_ATTEMPTS must be >= 1")
	}
	if cfg.AllocBackoffBase <= 0 || cfg.AllocBackoffCap < cfg.AllocBackoffBase {
		return fmt.Errorf("ALLOC_BACKOFF_CAP must be >= ALLOC_BACKOFF_BASE > 0")
	}
	if cfg.AllocBackoffJitter < 0 {
		return fmt.Errorf("ALLOC_BACKOFF_JITTER must be >= 0")
	}
	if cfg.LeaseTTL <= 0 {
		return fmt.Errorf("LEASE_TTL must be > 0")
	}
	if cfg.DraftRetention <= 0 {
		return fmt.Errorf("DRAFT_RETENTION must be > 0")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	return d, nil
}

func parseIntEnv(key, def string) (int, error) {
	raw := getEnv(key, def)
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	return n, nil
}
