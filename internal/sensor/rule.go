package sensor

import "math"

// EventKind 边沿事件类型
type EventKind string

const (
	EventPressed      EventKind = "pressed"
	EventReleased     EventKind = "released"
	EventValueChanged EventKind = "value_changed"
	EventBelowRange   EventKind = "below_range"
	EventWithinRange  EventKind = "within_range"
	EventAboveRange   EventKind = "above_range"
)

// Rule 比较基线与当前读数，跨越条件时返回事件
type Rule interface {
	Evaluate(prev, cur float64) (EventKind, bool)
}

// ThresholdRule 读数 >= Threshold 视为按下
type ThresholdRule struct {
	Threshold float64
}

func (r ThresholdRule) Evaluate(prev, cur float64) (EventKind, bool) {
	was, is := prev >= r.Threshold, cur >= r.Threshold
	switch {
	case !was && is:
		return EventPressed, true
	case was && !is:
		return EventReleased, true
	}
	return "", false
}

// DeltaRule 相邻两次读数之差的绝对值 >= Min 时触发
type DeltaRule struct {
	Min float64
}

func (r DeltaRule) Evaluate(prev, cur float64) (EventKind, bool) {
	if math.Abs(cur-prev) >= r.Min {
		return EventValueChanged, true
	}
	return "", false
}

// RangeRule 区间 [Bottom, Top]，读数换区时触发
type RangeRule struct {
	Bottom float64
	Top    float64
}

func (r RangeRule) band(v float64) EventKind {
	switch {
	case v < r.Bottom:
		return EventBelowRange
	case v > r.Top:
		return EventAboveRange
	}
	return EventWithinRange
}

func (r RangeRule) Evaluate(prev, cur float64) (EventKind, bool) {
	if b := r.band(cur); b != r.band(prev) {
		return b, true
	}
	return "", false
}
