package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/linkwrap/internal/index"
	"github.com/MrSnakeDoc/linkwrap/internal/logger"
	"github.com/MrSnakeDoc/linkwrap/internal/sources/branding"
)

// BrandingReloader keeps the branding index in sync with the branding file.
// The periodic tick only remaps the file when its content changed, a manual
// trigger always does.
type BrandingReloader struct {
	loader        *branding.Loader
	mapper        *branding.Mapper
	index         *index.BrandingIndex
	logger        logger.Logger
	interval      time.Duration
	manualTrigger chan struct{}

	// mu serializes reloads, the loader keeps the digest of the last file.
	mu       sync.Mutex
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewBrandingReloader creates a new branding reloader
func NewBrandingReloader(
	brandingFile string,
	agentNames []string,
	idx *index.BrandingIndex,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *BrandingReloader {
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	return &BrandingReloader{
		loader:        branding.NewLoader(brandingFile),
		mapper:        branding.NewMapper(agentNames),
		index:         idx,
		logger:        log,
		interval:      interval,
		manualTrigger: manualTrigger,
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start loads the file once, failing if it is unreadable, then reloads
// periodically and on manual trigger
func (br *BrandingReloader) Start(ctx context.Context) error {
	if err := br.Reload(ctx); err != nil {
		close(br.done)
		return fmt.Errorf("initial reload failed: %w", err)
	}

	go br.run(ctx)
	return nil
}

func (br *BrandingReloader) run(ctx context.Context) {
	defer close(br.done)

	ticker := time.NewTicker(br.interval)
	defer ticker.Stop()

	for {
		var err error
		select {
		case <-ticker.C:
			err = br.reload(false)
		case <-br.manualTrigger:
			br.logger.Info("manual reload triggered")
			err = br.reload(true)
		case <-br.stopCh:
			return
		case <-ctx.Done():
			return
		}
		if err != nil {
			br.logger.Error("failed to reload branding", logger.Error(err))
		}
	}
}

// Stop stops the reloader and waits for the worker to exit. It is safe to
// call more than once.
func (br *BrandingReloader) Stop() {
	br.stopOnce.Do(func() { close(br.stopCh) })
	<-br.done
}

// Reload reads the branding file and swaps the index content. On failure
// the previous branding stays active.
func (br *BrandingReloader) Reload(_ context.Context) error {
	return br.reload(true)
}

func (br *BrandingReloader) reload(force bool) error {
	br.mu.Lock()
	defer br.mu.Unlock()

	br.logger.Debug("reloading branding",
		logger.String("file", br.loader.Path()),
		logger.Bool("forced", force))

	var (
		file    branding.File
		changed = true
		err     error
	)
	if force {
		file, err = br.loader.Load()
	} else {
		file, changed, err = br.loader.LoadIfChanged()
	}
	if err != nil {
		return fmt.Errorf("failed to load branding: %w", err)
	}
	if !changed {
		br.logger.Debug("branding file unchanged")
		return nil
	}

	b, skipped, err := br.mapper.Map(file)
	if len(skipped) > 0 {
		br.logger.Warn("ignoring unknown branding entries",
			logger.Strings("entries", skipped))
	}
	if err != nil {
		return fmt.Errorf("failed to map branding: %w", err)
	}

	br.index.Update(b)

	br.logger.Info("loaded branding",
		logger.Int("entries", b.Entries()))

	return nil
}
