// Package sensor 以 Spec 描述各类传感器，提供读取与边沿事件轮询。
package sensor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/taoyao-code/ev3-gateway/internal/protocol/ev3"
)

// Decode 读数解码方式
type Decode int

const (
	DecodePercent Decode = iota // READY_PCT，1 字节
	DecodeSI                    // READY_SI，float32
)

func (d Decode) String() string {
	if d == DecodeSI {
		return "si"
	}
	return "percent"
}

// RuleKind 默认边沿规则
type RuleKind int

const (
	RuleThreshold RuleKind = iota
	RuleDelta
	RuleRange
)

// Spec 一类传感器：类型码、模式、解码方式与默认规则
type Spec struct {
	Kind     string
	Type     byte
	Mode     byte
	Decode   Decode
	Unit     string
	Rule     RuleKind
	Defaults RuleParams
}

// RuleParams 规则参数
type RuleParams struct {
	Threshold float64
	Delta     float64
	Bottom    float64
	Top       float64
}

var specs = map[string]Spec{
	"touch":           {Kind: "touch", Type: ev3.TypeEV3Touch, Mode: 0, Decode: DecodePercent, Unit: "%", Rule: RuleThreshold, Defaults: RuleParams{Threshold: 50}},
	"nxt-touch":       {Kind: "nxt-touch", Type: ev3.TypeNXTTouch, Mode: 0, Decode: DecodePercent, Unit: "%", Rule: RuleThreshold, Defaults: RuleParams{Threshold: 50}},
	"color-reflected": {Kind: "color-reflected", Type: ev3.TypeEV3Color, Mode: 0, Decode: DecodePercent, Unit: "%", Rule: RuleRange, Defaults: RuleParams{Bottom: 20, Top: 80}},
	"color-ambient":   {Kind: "color-ambient", Type: ev3.TypeEV3Color, Mode: 1, Decode: DecodePercent, Unit: "%", Rule: RuleRange, Defaults: RuleParams{Bottom: 20, Top: 80}},
	"color":           {Kind: "color", Type: ev3.TypeEV3Color, Mode: 2, Decode: DecodeSI, Unit: "col", Rule: RuleDelta, Defaults: RuleParams{Delta: 1}},
	"ultrasonic":      {Kind: "ultrasonic", Type: ev3.TypeEV3Ultrasonic, Mode: 0, Decode: DecodeSI, Unit: "cm", Rule: RuleRange, Defaults: RuleParams{Bottom: 10, Top: 100}},
	"gyro-angle":      {Kind: "gyro-angle", Type: ev3.TypeEV3Gyro, Mode: 0, Decode: DecodeSI, Unit: "deg", Rule: RuleDelta, Defaults: RuleParams{Delta: 5}},
	"gyro-rate":       {Kind: "gyro-rate", Type: ev3.TypeEV3Gyro, Mode: 1, Decode: DecodeSI, Unit: "deg/s", Rule: RuleDelta, Defaults: RuleParams{Delta: 10}},
	"infrared":        {Kind: "infrared", Type: ev3.TypeEV3Infrared, Mode: 0, Decode: DecodePercent, Unit: "%", Rule: RuleRange, Defaults: RuleParams{Bottom: 20, Top: 80}},
	"nxt-light":       {Kind: "nxt-light", Type: ev3.TypeNXTLight, Mode: 0, Decode: DecodePercent, Unit: "%", Rule: RuleRange, Defaults: RuleParams{Bottom: 20, Top: 80}},
	"nxt-sound":       {Kind: "nxt-sound", Type: ev3.TypeNXTSound, Mode: 0, Decode: DecodePercent, Unit: "%", Rule: RuleThreshold, Defaults: RuleParams{Threshold: 60}},
}

// Lookup 按名称查找传感器类型
func Lookup(kind string) (Spec, error) {
	s, ok := specs[strings.ToLower(kind)]
	if !ok {
		return Spec{}, fmt.Errorf("%w: unknown sensor kind %q", ev3.ErrIllegalArgument, kind)
	}
	return s, nil
}

// Kinds 返回所有已知类型名（排序）
func Kinds() []string {
	out := make([]string, 0, len(specs))
	for k := range specs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// NewRule 按 Spec 的默认规则构造，非零参数覆盖默认值
func (s Spec) NewRule(p RuleParams) (Rule, error) {
	merged := s.Defaults
	if p.Threshold != 0 {
		merged.Threshold = p.Threshold
	}
	if p.Delta != 0 {
		merged.Delta = p.Delta
	}
	if p.Bottom != 0 || p.Top != 0 {
		merged.Bottom, merged.Top = p.Bottom, p.Top
	}
	switch s.Rule {
	case RuleThreshold:
		return ThresholdRule{Threshold: merged.Threshold}, nil
	case RuleDelta:
		if merged.Delta <= 0 {
			return nil, fmt.Errorf("%w: delta must be positive", ev3.ErrIllegalArgument)
		}
		return DeltaRule{Min: merged.Delta}, nil
	case RuleRange:
		if merged.Bottom > merged.Top {
			return nil, fmt.Errorf("%w: range bottom %v above top %v", ev3.ErrIllegalArgument, merged.Bottom, merged.Top)
		}
		return RangeRule{Bottom: merged.Bottom, Top: merged.Top}, nil
	}
	return nil, fmt.Errorf("%w: unknown rule", ev3.ErrIllegalArgument)
}
