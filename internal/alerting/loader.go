package alerting

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/scriptflow/scriptflow/internal/models"
	"github.com/scriptflow/scriptflow/internal/storage"
)

// SeedConfig is the YAML shape of an alert seed file.
type SeedConfig struct {
	Alerts []SeedAlert `yaml:"alerts"`
}

// SeedAlert declares one alert to provision at startup.
type SeedAlert struct {
	Name            string   `yaml:"name"`
	Description     string   `yaml:"description"`
	Query           string   `yaml:"query"`
	Threshold       int      `yaml:"threshold"`
	WindowMinutes   int      `yaml:"window_minutes"`
	Paused          bool     `yaml:"paused"`
	NotifyEmail     bool     `yaml:"notify_email"`
	NotifyInternal  bool     `yaml:"notify_internal"`
	EmailRecipients []string `yaml:"email_recipients"`
	CustomMessage   string   `yaml:"custom_message"`
}

// toModel converts the seed entry to a validated alert.
func (s *SeedAlert) toModel() (*models.Alert, error) {
	a := models.NewAlert(s.Name, s.Query, s.Threshold, s.WindowMinutes)
	a.ID = uuid.New().String()
	a.Description = s.Description
	a.NotifyEmail = s.NotifyEmail
	a.NotifyInternal = s.NotifyInternal
	a.CustomMessage = s.CustomMessage
	if len(s.EmailRecipients) > 0 {
		a.EmailRecipients = s.EmailRecipients
	}
	if s.Paused {
		a.Status = models.AlertStatusPaused
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// LoadSeedFromFile loads seed alerts from a YAML file.
func LoadSeedFromFile(path string) ([]*models.Alert, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	return LoadSeed(f)
}

// LoadSeed loads seed alerts from a reader.
func LoadSeed(r io.Reader) ([]*models.Alert, error) {
	var config SeedConfig
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("failed to parse seed YAML: %w", err)
	}

	alerts := make([]*models.Alert, 0, len(config.Alerts))
	for i, seed := range config.Alerts {
		alert, err := seed.toModel()
		if err != nil {
			return nil, fmt.Errorf("invalid alert at index %d: %w", i, err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

// SyncSeed creates the seed alerts that do not exist yet, matched by
// name. Existing alerts are left alone so user edits survive restarts.
func SyncSeed(ctx context.Context, repo storage.AlertRepository, seeded []*models.Alert) error {
	existing, err := repo.List(ctx)
	if err != nil {
		return fmt.Errorf("list alerts: %w", err)
	}

	byName := make(map[string]bool, len(existing))
	for _, a := range existing {
		byName[a.Name] = true
	}

	for _, alert := range seeded {
		if byName[alert.Name] {
			continue
		}
		if err := repo.Create(ctx, alert); err != nil {
			return fmt.Errorf("create seed alert %q: %w", alert.Name, err)
		}
		log.Printf("seeded alert %q", alert.Name)
	}
	return nil
}

// WatchSeedFile reloads and re-syncs the seed file whenever it changes,
// until the context is canceled. Broken edits keep the previous state
// and only log.
func WatchSeedFile(ctx context.Context, path string, repo storage.AlertRepository) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// Watch the directory: editors typically replace the file, which
	// drops a watch set on the file itself.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				alerts, err := LoadSeedFromFile(path)
				if err != nil {
					log.Printf("seed reload failed: %v", err)
					continue
				}
				if err := SyncSeed(ctx, repo, alerts); err != nil {
					log.Printf("seed sync failed: %v", err)
					continue
				}
				log.Printf("seed file %s reloaded", path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("seed watcher: %v", err)
			}
		}
	}()

	return nil
}
