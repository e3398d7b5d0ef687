package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homeaccess_backend/internal/maps"
	"homeaccess_backend/internal/matching/repository"
	"homeaccess_backend/platform/config"
	"homeaccess_backend/platform/db"
	"homeaccess_backend/platform/logger"
)

const batchSize = 25

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting project geocode backfill")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	mapsModule, err := maps.NewModule(cfg, log)
	if err != nil {
		log.Error("failed to initialize geocoder", "error", err)
		panic("failed to initialize geocoder: " + err.Error())
	}
	resolver := mapsModule.Resolver()
	repo := repository.New(pool)

	// Unresolvable projects are remembered so a batch of them cannot stall the loop.
	skipped := make(map[string]bool)
	updated := 0

	for ctx.Err() == nil {
		projects, err := repo.ListMissingLocation(ctx, batchSize+len(skipped))
		if err != nil {
			log.Error("failed to list projects", "error", err)
			return
		}

		progress := false
		for _, p := range projects {
			if skipped[p.ID.String()] {
				continue
			}

			addr := maps.Address{
				Street: deref(p.Street),
				City:   deref(p.City),
				State:  deref(p.State),
				Zip:    deref(p.Zip),
			}
			coords, err := resolver.Resolve(ctx, addr)
			if err != nil {
				if !errors.Is(err, maps.ErrNotFound) {
					log.Warn("geocode failed", "projectId", p.ID, "error", err)
				} else {
					log.Info("no geocode result", "projectId", p.ID, "address", addr.String())
				}
				skipped[p.ID.String()] = true
				continue
			}

			if err := repo.SetLocation(ctx, p.ID, coords.Lat, coords.Lng, coords.FormattedAddress); err != nil {
				log.Error("failed to update project location", "projectId", p.ID, "error", err)
				skipped[p.ID.String()] = true
				continue
			}

			updated++
			progress = true
			log.Info("project geocoded", "projectId", p.ID, "precision", coords.Precision)

			// Stay under the public provider's one-request-per-second policy.
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}

		if !progress {
			break
		}
	}

	log.Info("project geocode backfill finished", "updated", updated, "skipped", len(skipped))
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
