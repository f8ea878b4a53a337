package sensor

import (
	"context"
	"time"

	"github.com/taoyao-code/ev3-gateway/internal/protocol/ev3"
)

// Reader 读取原始读数，由 brick.Brick 实现
type Reader interface {
	ReadPercentage(ctx context.Context, port string, typ, mode byte) (int8, error)
	ReadSI(ctx context.Context, port string, typ, mode byte) (float32, error)
	Connected() bool
}

// Reading 一次读数
type Reading struct {
	Port  string    `json:"port"`
	Kind  string    `json:"kind"`
	Value float64   `json:"value"`
	Unit  string    `json:"unit"`
	At    time.Time `json:"at"`
}

// Sensor 接在某端口上的传感器
type Sensor struct {
	port   string
	spec   Spec
	reader Reader
	now    func() time.Time
}

// New 创建传感器；端口为 "1".."4"
func New(reader Reader, port string, spec Spec) (*Sensor, error) {
	if _, err := ev3.SensorPortLetterToNumber(port); err != nil {
		return nil, err
	}
	return &Sensor{port: port, spec: spec, reader: reader, now: time.Now}, nil
}

func (s *Sensor) Port() string { return s.port }
func (s *Sensor) Spec() Spec   { return s.spec }

// Connected 链路是否可用
func (s *Sensor) Connected() bool { return s.reader.Connected() }

// Read 按 Spec 的解码方式读取一次
func (s *Sensor) Read(ctx context.Context) (Reading, error) {
	var v float64
	switch s.spec.Decode {
	case DecodeSI:
		f, err := s.reader.ReadSI(ctx, s.port, s.spec.Type, s.spec.Mode)
		if err != nil {
			return Reading{}, err
		}
		v = float64(f)
	default:
		p, err := s.reader.ReadPercentage(ctx, s.port, s.spec.Type, s.spec.Mode)
		if err != nil {
			return Reading{}, err
		}
		v = float64(p)
	}
	return Reading{Port: s.port, Kind: s.spec.Kind, Value: v, Unit: s.spec.Unit, At: s.now()}, nil
}
