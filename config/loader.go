// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"encoding/hex"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/luxfi/log"
	"gopkg.in/yaml.v3"
)

// yamlDoc is the on-disk shape; field names are the flattened §6 keys so a
// deployment's config.yaml reads the same as §6.
type yamlDoc struct {
	Heartbeat struct {
		IntervalS time.Duration `yaml:"interval_s"`
		IdleFinS  time.Duration `yaml:"idle_fin_s"`
	} `yaml:"heartbeat"`
	Budget struct {
		DefaultTokens    int64         `yaml:"default_tokens"`
		DefaultUSDMicros int64         `yaml:"default_usd_micros"`
		BurnWindowS      time.Duration `yaml:"burn_window_s"`
	} `yaml:"budget"`
	QoS struct {
		Scheduler struct {
			Preempt struct {
				Enabled *bool `yaml:"enabled"`
			} `yaml:"preempt"`
		} `yaml:"scheduler"`
	} `yaml:"qos"`
	Watermark struct {
		HighMS   time.Duration `yaml:"high_ms"`
		LowMS    time.Duration `yaml:"low_ms"`
		RequireN int           `yaml:"require_n"`
	} `yaml:"watermark"`
	AIMD struct {
		MinCwnd      int     `yaml:"min_cwnd"`
		AdditiveInc  int     `yaml:"additive_inc"`
		MulDecFactor float64 `yaml:"mul_dec_factor"`
	} `yaml:"aimd"`
	Circuit struct {
		FailThreshold     *int          `yaml:"fail_threshold"`
		ResetTimeoutS     time.Duration `yaml:"reset_timeout_s"`
		HalfOpenSuccesses int           `yaml:"half_open_successes"`
	} `yaml:"circuit"`
	Promote struct {
		MinCalls     int     `yaml:"min_calls"`
		CostImprove  float64 `yaml:"cost_improve"`
	} `yaml:"promote"`
	Demote struct {
		MinCalls    int     `yaml:"min_calls"`
		CostRegress float64 `yaml:"cost_regress"`
	} `yaml:"demote"`
	PromoDemoHysteresisSec time.Duration `yaml:"promo_demo_hysteresis_sec"`
	AGP                    struct {
		KeepaliveInterval time.Duration `yaml:"keepalive_interval"`
		HoldTime          time.Duration `yaml:"hold_time"`
		MaxKeepaliveMisses int          `yaml:"max_keepalive_misses"`
		Dampening         struct {
			HalfLifeMin time.Duration `yaml:"half_life_min"`
		} `yaml:"dampening"`
		PersistS  time.Duration `yaml:"persist_s"`
		GraceS    time.Duration `yaml:"grace_s"`
		SafeMode  struct {
			MaxRetries  int           `yaml:"max_retries"`
			RetryDelayS time.Duration `yaml:"retry_delay_s"`
		} `yaml:"safe_mode"`
	} `yaml:"agp"`
	Observation struct {
		Dir            string `yaml:"dir"`
		StatsDBPath    string `yaml:"stats_db_path"`
		CustodyLogPath string `yaml:"custody_log_path"`
		CustodyHMACKeyHex string `yaml:"custody_hmac_key_hex"`
		SchemaVersion  int    `yaml:"schema_version"`
	} `yaml:"observation"`
}

func (d yamlDoc) toConfig() Config {
	c := DefaultConfig()
	if d.Heartbeat.IntervalS > 0 {
		c.Heartbeat.IntervalS = d.Heartbeat.IntervalS * time.Second
	}
	if d.Heartbeat.IdleFinS > 0 {
		c.Heartbeat.IdleFinS = d.Heartbeat.IdleFinS * time.Second
	}
	if d.Budget.DefaultTokens > 0 {
		c.Budget.DefaultTokens = d.Budget.DefaultTokens
	}
	if d.Budget.DefaultUSDMicros > 0 {
		c.Budget.DefaultUSDMicros = d.Budget.DefaultUSDMicros
	}
	if d.Budget.BurnWindowS > 0 {
		c.Budget.BurnWindowS = d.Budget.BurnWindowS * time.Second
	}
	if d.QoS.Scheduler.Preempt.Enabled != nil {
		c.QoSScheduler.PreemptEnabled = *d.QoS.Scheduler.Preempt.Enabled
	}
	if d.Watermark.HighMS > 0 {
		c.Watermark.HighMS = d.Watermark.HighMS * time.Millisecond
	}
	if d.Watermark.LowMS > 0 {
		c.Watermark.LowMS = d.Watermark.LowMS * time.Millisecond
	}
	if d.Watermark.RequireN > 0 {
		c.Watermark.RequireN = d.Watermark.RequireN
	}
	if d.AIMD.MinCwnd > 0 {
		c.AIMD.MinCwnd = d.AIMD.MinCwnd
	}
	if d.AIMD.AdditiveInc > 0 {
		c.AIMD.AdditiveInc = d.AIMD.AdditiveInc
	}
	if d.AIMD.MulDecFactor > 0 {
		c.AIMD.MulDecFactor = d.AIMD.MulDecFactor
	}
	if d.Circuit.FailThreshold != nil {
		c.Circuit.FailThreshold = *d.Circuit.FailThreshold
	}
	if d.Circuit.ResetTimeoutS > 0 {
		c.Circuit.ResetTimeoutS = d.Circuit.ResetTimeoutS * time.Second
	}
	if d.Circuit.HalfOpenSuccesses > 0 {
		c.Circuit.HalfOpenSuccesses = d.Circuit.HalfOpenSuccesses
	}
	if d.Promote.MinCalls > 0 {
		c.Lifecycle.PromoteMinCalls = d.Promote.MinCalls
	}
	if d.Promote.CostImprove > 0 {
		c.Lifecycle.PromoteCostImprove = d.Promote.CostImprove
	}
	if d.Demote.MinCalls > 0 {
		c.Lifecycle.DemoteMinCalls = d.Demote.MinCalls
	}
	if d.Demote.CostRegress > 0 {
		c.Lifecycle.DemoteCostRegress = d.Demote.CostRegress
	}
	if d.PromoDemoHysteresisSec > 0 {
		c.Lifecycle.PromoDemoHysteresisSec = d.PromoDemoHysteresisSec * time.Second
	}
	if d.AGP.KeepaliveInterval > 0 {
		c.AGP.KeepaliveInterval = d.AGP.KeepaliveInterval * time.Second
	}
	if d.AGP.HoldTime > 0 {
		c.AGP.HoldTime = d.AGP.HoldTime * time.Second
	}
	if d.AGP.MaxKeepaliveMisses > 0 {
		c.AGP.MaxKeepaliveMisses = d.AGP.MaxKeepaliveMisses
	}
	if d.AGP.Dampening.HalfLifeMin > 0 {
		c.AGP.DampeningHalfLifeMin = d.AGP.Dampening.HalfLifeMin * time.Minute
	}
	if d.AGP.PersistS > 0 {
		c.AGP.PersistS = d.AGP.PersistS * time.Second
	}
	if d.AGP.GraceS > 0 {
		c.AGP.GraceS = d.AGP.GraceS * time.Second
	}
	if d.AGP.SafeMode.MaxRetries > 0 {
		c.AGP.SafeModeMaxRetries = d.AGP.SafeMode.MaxRetries
	}
	if d.AGP.SafeMode.RetryDelayS > 0 {
		c.AGP.SafeModeRetryDelayS = d.AGP.SafeMode.RetryDelayS * time.Second
	}
	if d.Observation.Dir != "" {
		c.Observation.Dir = d.Observation.Dir
	}
	if d.Observation.StatsDBPath != "" {
		c.Observation.StatsDBPath = d.Observation.StatsDBPath
	}
	if d.Observation.CustodyLogPath != "" {
		c.Observation.CustodyLogPath = d.Observation.CustodyLogPath
	}
	if d.Observation.CustodyHMACKeyHex != "" {
		if key, err := hex.DecodeString(d.Observation.CustodyHMACKeyHex); err == nil {
			c.Observation.CustodyHMACKey = key
		}
	}
	if d.Observation.SchemaVersion > 0 {
		c.Observation.SchemaVersion = d.Observation.SchemaVersion
	}
	return c
}

// LoadFile parses and validates a YAML config file.
func LoadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var doc yamlDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Config{}, err
	}
	c := doc.toConfig()
	if err := c.Valid(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Manager owns the live configuration, the last-known-good snapshot, and
// safe-mode state (§4.7). When every attempt of a Reload fails, it
// switches to the last-known-good snapshot, sets safe mode, logs the
// error and calls onSafeModeEntries; it sends no ECFG error to peers.
// The next successful validated load leaves safe mode.
type Manager struct {
	log  log.Logger
	path string

	mu            sync.RWMutex
	current       Config
	lastKnownGood Config
	safeMode      bool

	onSafeModeEntries func()
}

// NewManager loads path once to seed current/lastKnownGood. The caller
// supplies onSafeModeEntries to bump safe_mode_entries_total on the
// telemetry registry, keeping this package free of a direct metrics
// dependency.
func NewManager(logger log.Logger, path string, onSafeModeEntries func()) (*Manager, error) {
	c, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return &Manager{log: logger, path: path, current: c, lastKnownGood: c, onSafeModeEntries: onSafeModeEntries}, nil
}

// Current returns the live configuration.
func (m *Manager) Current() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// SafeModeActive reports whether the manager is serving the last-known-good
// snapshot because the live file failed to load/validate.
func (m *Manager) SafeModeActive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.safeMode
}

// Reload re-reads and validates the config file, retrying per the §4.7
// safe-mode policy before falling back to the last-known-good snapshot.
func (m *Manager) Reload(maxRetries int, retryDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		c, err := LoadFile(m.path)
		if err == nil {
			m.mu.Lock()
			m.current = c
			m.lastKnownGood = c
			wasSafe := m.safeMode
			m.safeMode = false
			m.mu.Unlock()
			if wasSafe {
				m.log.Info("config reload succeeded, exiting safe mode")
			}
			return nil
		}
		lastErr = err
		if attempt < maxRetries {
			time.Sleep(retryDelay)
		}
	}

	m.mu.Lock()
	m.current = m.lastKnownGood
	m.safeMode = true
	m.mu.Unlock()
	m.log.Error("config reload exhausted retries, entering safe mode", "error", lastErr)
	if m.onSafeModeEntries != nil {
		m.onSafeModeEntries()
	}
	return lastErr
}

// Watcher watches the config file for writes and triggers Reload, in the
// style of 99souls-ariadne's fsnotify-backed hot reload system.
type Watcher struct {
	mgr     *Manager
	watcher *fsnotify.Watcher
	stop    chan struct{}
}

// NewWatcher starts watching mgr's config path.
func NewWatcher(mgr *Manager) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(mgr.path); err != nil {
		fw.Close()
		return nil, err
	}
	w := &Watcher{mgr: mgr, watcher: fw, stop: make(chan struct{})}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				cfg := w.mgr.Current()
				_ = w.mgr.Reload(cfg.AGP.SafeModeMaxRetries, cfg.AGP.SafeModeRetryDelayS)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.mgr.log.Warn("config watcher error", "error", err)
		case <-w.stop:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.stop)
	return w.watcher.Close()
}
