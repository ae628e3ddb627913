package config

import (
	"sync"
	"time"

	"github.com/agilira/argus"

	"github.com/justyntemme/vst3host/pkg/framework/debug"
)

// DefaultPollInterval is how often a watched file is checked.
const DefaultPollInterval = 2 * time.Second

// Watcher reloads a configuration file when it changes.
type Watcher struct {
	path     string
	log      *debug.Logger
	onChange func(*Config)
	watcher  *argus.Watcher

	mu      sync.Mutex
	current *Config
	stop    sync.Once
}

// Watch re-reads path whenever it changes. A reloaded file gets the
// environment overrides and must validate before onChange sees it; a broken
// edit is logged and the previous configuration stays current.
func Watch(path string, current *Config, onChange func(*Config), log *debug.Logger) (*Watcher, error) {
	return watch(path, current, onChange, log, DefaultPollInterval)
}

func watch(path string, current *Config, onChange func(*Config), log *debug.Logger, poll time.Duration) (*Watcher, error) {
	if log == nil {
		log = debug.Discard()
	}
	w := &Watcher{
		path:     path,
		log:      log.Named("config"),
		onChange: onChange,
		current:  current,
	}
	w.watcher = argus.New(argus.Config{
		PollInterval:         poll,
		CacheTTL:             poll / 2,
		MaxWatchedFiles:      1,
		Audit:                argus.AuditConfig{Enabled: false},
		OptimizationStrategy: argus.OptimizationSingleEvent,
		ErrorHandler: func(err error, file string) {
			w.log.Warn("config watch error", "path", file, "err", err)
		},
	})
	if err := w.watcher.Watch(path, w.changed); err != nil {
		return nil, watchFailed(path, err)
	}
	if err := w.watcher.Start(); err != nil {
		return nil, watchFailed(path, err)
	}
	w.log.Info("watching config", "path", path, "poll", poll)
	return w, nil
}

func (w *Watcher) changed(ev argus.ChangeEvent) {
	if ev.IsDelete {
		w.log.Warn("config file removed, keeping current settings", "path", ev.Path)
		return
	}
	w.reload()
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err == nil {
		err = cfg.ApplyEnv()
	}
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		w.log.Warn("config reload rejected", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()
	w.log.Info("config reloaded", "path", w.path, "level", cfg.Logging.Level)
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

// Current returns the last valid configuration.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.stop.Do(func() {
		err = w.watcher.Stop()
	})
	return err
}
