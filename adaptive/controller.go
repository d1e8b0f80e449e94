package adaptive

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/clduab11/thinkrank-perf/monitoring"
)

const (
	// DefaultCooldown is the minimum time between quality adjustments.
	DefaultCooldown = 5 * time.Second

	// DefaultUpgradeStableEvals is how many consecutive Excellent
	// evaluations are required before stepping quality up. Downward steps
	// have no such requirement: recovering responsiveness matters more
	// than avoiding a visible quality dip.
	DefaultUpgradeStableEvals = 3

	// maxTransitionHistory bounds the retained transition log.
	maxTransitionHistory = 100
)

// Transition records one quality level change.
type Transition struct {
	Timestamp time.Time                   `json:"timestamp"`
	FromLevel int                         `json:"from_level"`
	ToLevel   int                         `json:"to_level"`
	Trigger   monitoring.PerformanceLevel `json:"-"`
	Reason    string                      `json:"reason"`
}

// Options configures a Controller. Zero values fall back to defaults.
type Options struct {
	Table              QualityTable
	InitialLevel       int
	Cooldown           time.Duration
	UpgradeStableEvals int
	Dispatcher         *monitoring.Dispatcher
	Logger             *slog.Logger
}

// Controller steps the quality level in response to classified performance
// levels. All transitions are cooldown-gated, and upward steps additionally
// require a stable run of Excellent evaluations so the controller does not
// oscillate when FPS sits at a band boundary.
type Controller struct {
	mu sync.RWMutex

	table              QualityTable
	level              int
	cooldown           time.Duration
	upgradeStableEvals int

	lastAdjustment  time.Time
	excellentStreak int

	dispatcher *monitoring.Dispatcher
	logger     *slog.Logger
	history    []Transition

	now func() time.Time
}

// NewController creates a quality controller. An empty table falls back to
// the mobile default ladder; an out-of-range initial level is clamped.
func NewController(opts Options) *Controller {
	table := opts.Table
	if len(table) == 0 {
		table = DefaultTable(PlatformAndroid)
	}

	level := opts.InitialLevel
	if level < 0 {
		level = 0
	}
	if level > table.MaxLevel() {
		level = table.MaxLevel()
	}

	cooldown := opts.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}

	stableEvals := opts.UpgradeStableEvals
	if stableEvals <= 0 {
		stableEvals = DefaultUpgradeStableEvals
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		table:              table,
		level:              level,
		cooldown:           cooldown,
		upgradeStableEvals: stableEvals,
		dispatcher:         opts.Dispatcher,
		logger:             logger.With("component", "quality_controller"),
		now:                time.Now,
	}
}

// Evaluate consumes one classified performance level and possibly adjusts
// quality. It returns whether a transition happened and the resulting
// level.
func (c *Controller) Evaluate(level monitoring.PerformanceLevel) (changed bool, newLevel int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// The streak is tracked on every evaluation, including those inside
	// the cooldown window, so a stable run is not reset by the guard.
	if level == monitoring.PerformanceExcellent {
		c.excellentStreak++
	} else {
		c.excellentStreak = 0
	}

	now := c.now()
	if now.Sub(c.lastAdjustment) < c.cooldown {
		return false, c.level
	}

	step := 0
	reason := ""
	switch level {
	case monitoring.PerformanceCritical:
		step = -2
		reason = "critical performance"
	case monitoring.PerformancePoor:
		step = -1
		reason = "poor performance"
	case monitoring.PerformanceExcellent:
		if c.excellentStreak >= c.upgradeStableEvals {
			step = 1
			reason = "sustained excellent performance"
		}
	}

	if step == 0 {
		return false, c.level
	}

	target := clamp(c.level+step, 0, c.table.MaxLevel())
	if target == c.level {
		return false, c.level
	}

	from := c.level
	c.level = target
	c.lastAdjustment = now
	c.excellentStreak = 0

	c.recordTransitionLocked(Transition{
		Timestamp: now,
		FromLevel: from,
		ToLevel:   target,
		Trigger:   level,
		Reason:    reason,
	})

	c.logger.Info("quality level changed",
		"from", from, "to", target, "reason", reason)

	if c.dispatcher != nil {
		c.dispatcher.Publish(monitoring.Event{
			Type: monitoring.EventQualityChanged,
			Quality: &monitoring.QualityChange{
				FromLevel: from,
				ToLevel:   target,
				Reason:    reason,
			},
		})
	}

	return true, target
}

// QualityLevel returns the current quality level index. Satisfies
// monitoring.QualityProvider.
func (c *Controller) QualityLevel() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.level
}

// Preset returns the preset for the current level.
func (c *Controller) Preset() QualityPreset {
	c.mu.RLock()
	defer c.mu.RUnlock()

	preset, _ := c.table.Preset(c.level)
	return preset
}

// ForceLevel sets the quality level directly, bypassing the cooldown.
// Used for user-driven settings changes.
func (c *Controller) ForceLevel(level int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if level < 0 || level > c.table.MaxLevel() {
		return fmt.Errorf("quality level %d out of range [0, %d]", level, c.table.MaxLevel())
	}

	if level == c.level {
		return nil
	}

	from := c.level
	c.level = level
	c.lastAdjustment = c.now()
	c.excellentStreak = 0

	c.recordTransitionLocked(Transition{
		Timestamp: c.lastAdjustment,
		FromLevel: from,
		ToLevel:   level,
		Reason:    "forced",
	})

	if c.dispatcher != nil {
		c.dispatcher.Publish(monitoring.Event{
			Type: monitoring.EventQualityChanged,
			Quality: &monitoring.QualityChange{
				FromLevel: from,
				ToLevel:   level,
				Reason:    "forced",
			},
		})
	}

	return nil
}

// History returns a copy of the retained transition log, oldest first.
func (c *Controller) History() []Transition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	history := make([]Transition, len(c.history))
	copy(history, c.history)
	return history
}

// recordTransitionLocked appends to the bounded history. Callers hold c.mu.
func (c *Controller) recordTransitionLocked(t Transition) {
	c.history = append(c.history, t)
	if len(c.history) > maxTransitionHistory {
		c.history = c.history[len(c.history)-maxTransitionHistory:]
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
