package muxer

import (
	"slices"
)

type mode struct {
	autoSelect bool
	manual     int
}

// selection is the outcome of one selector pass.
type selection struct {
	visible int
	expired []int

	// restoreAutoSelect is set when the manual priority disappeared.
	restoreAutoSelect bool

	// countdown requests a rate limited change notification.
	countdown bool

	events []Event
}

// reevaluate decides the visible priority at nowMs without touching its inputs.
// Expired entries are reported in ascending order and are never selected.
func reevaluate(nowMs int64, inputs map[int]*InputInfo, m mode, current int) selection {
	var sel selection

	for p, in := range inputs {
		if p != LowestPriority && in.TimeoutMs > 0 && in.TimeoutMs <= nowMs {
			sel.expired = append(sel.expired, p)
		}
	}
	slices.Sort(sel.expired)

	// a registered priority 0 holds the output even while it awaits data
	candidate := LowestPriority
	if _, ok := inputs[0]; ok && !slices.Contains(sel.expired, 0) {
		candidate = 0
	}

	for _, p := range sel.expired {
		sel.events = append(sel.events, removed(p), changed())
	}

	for p, in := range inputs {
		if slices.Contains(sel.expired, p) {
			continue
		}
		if in.TimeoutMs > TimeoutInactive {
			candidate = min(candidate, p)
		}
		if p < countdownCeiling && in.TimeoutMs > 0 &&
			(in.Component == ComponentColor || in.Component == ComponentEffect) {
			sel.countdown = true
		}
	}

	if !m.autoSelect {
		_, present := inputs[m.manual]
		if present && !slices.Contains(sel.expired, m.manual) {
			candidate = m.manual
		} else {
			sel.restoreAutoSelect = true
			sel.events = append(sel.events, autoSelectChanged(true))
		}
	}

	sel.visible = candidate
	if candidate != current {
		sel.events = append(sel.events, visibleChanged(candidate), changed())
	}

	return sel
}
