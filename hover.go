package ssp

import (
	"sync"
	"time"
)

// Timer is a pending deferred call.
type Timer interface {
	Stop() bool
}

// Scheduler arms deferred calls. Tests inject a manual implementation.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type timeScheduler struct{}

func (timeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SettingsRegion is the hover region of the settings menu.
const SettingsRegion = "settings"

// InfoRegion names the info overlay region of network.
func InfoRegion(network string) string {
	return "info:" + network
}

// hoverController keeps at most one pending reveal per region. It has its
// own lock because timers fire outside the widget lock.
type hoverController struct {
	mu        sync.Mutex
	scheduler Scheduler
	delay     time.Duration
	regions   map[string]*hoverRegion
}

type hoverRegion struct {
	timer   Timer
	visible bool
	// generation invalidates callbacks of timers that were cleared but had
	// already fired.
	generation uint64
}

func newHoverController(scheduler Scheduler, delay time.Duration) *hoverController {
	return &hoverController{
		scheduler: scheduler,
		delay:     delay,
		regions:   map[string]*hoverRegion{},
	}
}

// enter clears any pending timer of region and arms a new one. reveal runs
// when the delay elapses without a leave.
func (h *hoverController) enter(region string, reveal func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.regionLocked(region)
	if r.timer != nil {
		r.timer.Stop()
	}
	r.generation++
	generation := r.generation
	r.timer = h.scheduler.AfterFunc(h.delay, func() {
		h.mu.Lock()
		if r.generation != generation {
			h.mu.Unlock()
			return
		}
		r.timer = nil
		r.visible = true
		h.mu.Unlock()
		reveal()
	})
}

// leave cancels a pending reveal and hides the region. It reports whether
// the region was visible.
func (h *hoverController) leave(region string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.regionLocked(region)
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.generation++
	wasVisible := r.visible
	r.visible = false
	return wasVisible
}

func (h *hoverController) visible(region string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.regions[region]
	return ok && r.visible
}

func (h *hoverController) pending(region string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.regions[region]
	return ok && r.timer != nil
}

func (h *hoverController) stopAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.regions {
		if r.timer != nil {
			r.timer.Stop()
			r.timer = nil
		}
		r.generation++
		r.visible = false
	}
}

func (h *hoverController) regionLocked(region string) *hoverRegion {
	r, ok := h.regions[region]
	if !ok {
		r = &hoverRegion{}
		h.regions[region] = r
	}
	return r
}

// EnterInfo arms the delayed info overlay of network. Live modules have no
// overlay and are ignored.
func (w *Widget) EnterInfo(network string) error {
	w.mu.Lock()
	inst, err := w.instanceLocked(network)
	if err != nil {
		w.mu.Unlock()
		return err
	}
	live := inst.state == StateOn && !inst.module.Safe()
	w.mu.Unlock()
	if live {
		return nil
	}
	region := InfoRegion(network)
	w.hover.enter(region, func() { w.revealed(network, region, true) })
	return nil
}

// LeaveInfo cancels or hides the info overlay of network.
func (w *Widget) LeaveInfo(network string) error {
	w.mu.Lock()
	_, err := w.instanceLocked(network)
	w.mu.Unlock()
	if err != nil {
		return err
	}
	region := InfoRegion(network)
	if w.hover.leave(region) {
		w.revealed(network, region, false)
	}
	return nil
}

// EnterSettings arms the delayed settings menu.
func (w *Widget) EnterSettings() error {
	w.mu.Lock()
	err := w.mountedLocked("")
	w.mu.Unlock()
	if err != nil {
		return err
	}
	w.hover.enter(SettingsRegion, func() { w.revealed("", SettingsRegion, true) })
	return nil
}

// LeaveSettings cancels or hides the settings menu.
func (w *Widget) LeaveSettings() error {
	w.mu.Lock()
	err := w.mountedLocked("")
	w.mu.Unlock()
	if err != nil {
		return err
	}
	if w.hover.leave(SettingsRegion) {
		w.revealed("", SettingsRegion, false)
	}
	return nil
}

func (w *Widget) revealed(network, region string, visible bool) {
	w.publish([]StateChange{{
		Widget:  w.id,
		Network: network,
		Kind:    ChangeReveal,
		Region:  region,
		Visible: visible,
	}})
}
