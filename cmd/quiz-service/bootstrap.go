package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/peterhellberg/duration"

	"elearning-quiz/internal/opentdb"
	"elearning-quiz/internal/store"
)

type bootstrapConfig struct {
	SeedPath      string
	OpenTDBAmount int
	AdminEmail    string
	AdminPassword string
}

// bootstrap imports startup content and makes sure the staff account exists.
func bootstrap(ctx context.Context, quizStore *store.SQLiteStore, cfg bootstrapConfig) error {
	if cfg.SeedPath != "" {
		file, err := os.Open(cfg.SeedPath)
		if err != nil {
			return fmt.Errorf("open seed catalog: %w", err)
		}
		catalog, err := store.LoadCatalog(file)
		file.Close()
		if err != nil {
			return fmt.Errorf("load seed catalog: %w", err)
		}

		imported, err := quizStore.ImportCatalog(ctx, catalog)
		if err != nil {
			return fmt.Errorf("import seed catalog: %w", err)
		}
		glog.Infof("imported %d questions from %s", imported, cfg.SeedPath)
	}

	if cfg.OpenTDBAmount > 0 {
		fetchCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		raw, err := opentdb.NewClient(&http.Client{Timeout: 10 * time.Second}).FetchQuestions(fetchCtx, cfg.OpenTDBAmount)
		cancel()
		if err != nil {
			// The service still starts with whatever is already stored.
			glog.Warningf("skipping opentdb import: %v", err)
		} else {
			imported, err := quizStore.ImportCatalog(ctx, opentdb.BuildCatalog(raw))
			if err != nil {
				return fmt.Errorf("import opentdb questions: %w", err)
			}
			glog.Infof("imported %d questions from opentdb", imported)
		}
	}

	if cfg.AdminEmail != "" {
		_, err := quizStore.CreateUser(ctx, store.NewUser{
			Email:    cfg.AdminEmail,
			Password: cfg.AdminPassword,
			IsStaff:  true,
		})
		switch {
		case errors.Is(err, store.ErrConflict):
			glog.V(1).Infof("staff account %s already exists", cfg.AdminEmail)
		case err != nil:
			return fmt.Errorf("create staff account: %w", err)
		default:
			glog.Infof("created staff account %s", cfg.AdminEmail)
		}
	}

	return nil
}

// parseTTL accepts Go durations ("15m") and ISO 8601 ones ("P7D").
func parseTTL(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(strings.ToUpper(value), "P") {
		return duration.Parse(strings.ToUpper(value))
	}
	return time.ParseDuration(value)
}
