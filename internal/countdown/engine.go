// Package countdown computes the live countdowns to the three daily IRCTC
// booking openings.
//
// Every target is a DAILY recurrence anchored in IST. Evaluate is pure given
// the instant passed in; Ticker drives it once per second.
package countdown

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"railbook/internal/booking"
	"railbook/internal/civil"
	appLog "railbook/internal/log"
)

const (
	// HideBeforeHour suppresses every countdown before 06:00 IST.
	HideBeforeHour = 6
	// UrgentWithin marks a countdown urgent.
	UrgentWithin = 5 * time.Minute
	// TravelLayout formats an item's travel date.
	TravelLayout = "Monday, 2 Jan"
)

// Quota is the booking quota a target opens.
type Quota string

const (
	QuotaGeneral Quota = "general"
	QuotaTatkal  Quota = "tatkal"
)

// Target is a named daily opening time in IST.
type Target struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Hour   int    `json:"hour"`
	Minute int    `json:"minute"`
	Quota  Quota  `json:"quota"`
}

// DefaultTargets returns general at the rules' opening time, Tatkal AC at
// 10:00 and Tatkal Sleeper at 11:00.
func DefaultTargets(r booking.Rules) []Target {
	return []Target{
		{Key: "general", Label: "General", Hour: r.OpenHour, Minute: r.OpenMinute, Quota: QuotaGeneral},
		{Key: "tatkal-ac", Label: "Tatkal AC", Hour: 10, Minute: 0, Quota: QuotaTatkal},
		{Key: "tatkal-sleeper", Label: "Tatkal Sleeper", Hour: 11, Minute: 0, Quota: QuotaTatkal},
	}
}

// State is what an item displays at an instant.
type State string

const (
	StateHidden       State = "hidden"
	StateCountingDown State = "counting-down"
	StateUrgent       State = "urgent"
	StateWindowOpen   State = "window-open"
)

// Item is one target's state at an instant.
type Item struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Quota Quota  `json:"quota"`
	State State  `json:"state"`

	Next      time.Time     `json:"next,omitzero"`
	Remaining time.Duration `json:"remaining_ns,omitempty"`
	Hours     int           `json:"hours"`
	Minutes   int           `json:"minutes"`
	Seconds   int           `json:"seconds"`

	Travel      civil.Date `json:"travel_date,omitzero"`
	TravelLabel string     `json:"travel_label,omitempty"`
	Message     string     `json:"message,omitempty"`
}

// Clock renders the remaining time as HH:MM:SS.
func (it Item) Clock() string {
	return fmt.Sprintf("%02d:%02d:%02d", it.Hours, it.Minutes, it.Seconds)
}

// Urgent reports whether the opening is within UrgentWithin.
func (it Item) Urgent() bool { return it.State == StateUrgent }

// Snapshot is the state of every target at At.
type Snapshot struct {
	At     time.Time `json:"at"`
	Hidden bool      `json:"hidden"`
	Items  []Item    `json:"items"`
}

// Item returns the item with key.
func (s Snapshot) Item(key string) (Item, bool) {
	for _, it := range s.Items {
		if it.Key == key {
			return it, true
		}
	}
	return Item{}, false
}

// Engine evaluates a fixed set of targets.
type Engine struct {
	rules   booking.Rules
	targets []Target
}

// NewEngine returns an engine over targets (DefaultTargets if empty).
func NewEngine(rules booking.Rules, targets []Target) *Engine {
	if len(targets) == 0 {
		targets = DefaultTargets(rules)
	}
	return &Engine{rules: rules, targets: targets}
}

// Targets returns a copy of the engine's targets.
func (e *Engine) Targets() []Target {
	out := make([]Target, len(e.targets))
	copy(out, e.targets)
	return out
}

// Evaluate computes every item at now. The travel date of each item is
// derived from the occurrence in effect at now, never carried over.
func (e *Engine) Evaluate(now time.Time) Snapshot {
	now = now.In(civil.IST)
	snap := Snapshot{At: now, Items: make([]Item, 0, len(e.targets))}

	if now.Hour() < HideBeforeHour {
		snap.Hidden = true
		for _, t := range e.targets {
			snap.Items = append(snap.Items, Item{Key: t.Key, Label: t.Label, Quota: t.Quota, State: StateHidden})
		}
		return snap
	}

	for _, t := range e.targets {
		snap.Items = append(snap.Items, e.evaluate(t, now))
	}
	return snap
}

func (e *Engine) evaluate(t Target, now time.Time) Item {
	it := Item{Key: t.Key, Label: t.Label, Quota: t.Quota}

	rule, err := daily(t, civil.FromTime(now))
	if err != nil {
		appLog.Error("countdown: build rule failed", err, "target", t.Key)
		it.State = StateHidden
		return it
	}

	if t.Quota == QuotaTatkal {
		cur := rule.Before(now, true)
		if !cur.IsZero() && civil.FromTime(cur) == civil.FromTime(now) {
			it.State = StateWindowOpen
			it.Travel = e.rules.TatkalTravelDateFor(cur)
			it.TravelLabel = it.Travel.Format(TravelLayout)
			it.Message = fmt.Sprintf("%s Booking is OPEN!", t.Label)
			return it
		}
	}

	next := rule.After(now, false)
	it.Next = next
	it.Remaining = next.Sub(now)

	total := int(it.Remaining / time.Second)
	it.Hours = total / 3600
	it.Minutes = (total % 3600) / 60
	it.Seconds = total % 60

	it.State = StateCountingDown
	if time.Duration(total)*time.Second <= UrgentWithin {
		it.State = StateUrgent
	}

	if t.Quota == QuotaTatkal {
		it.Travel = e.rules.TatkalTravelDateFor(next)
	} else {
		it.Travel = e.rules.GeneralTravelDateFor(next)
	}
	it.TravelLabel = it.Travel.Format(TravelLayout)
	return it
}

// daily is a DAILY rule at t's time of day, anchored the day before today so
// both the current and the next occurrence exist.
func daily(t Target, today civil.Date) (*rrule.RRule, error) {
	return rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: today.AddDays(-1).At(t.Hour, t.Minute),
	})
}
