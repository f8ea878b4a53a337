package link

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/taoyao-code/ev3-gateway/internal/protocol/ev3"
)

// Fault 模拟器故障注入
type Fault int

const (
	FaultNone     Fault = iota
	FaultBadTag         // 回复类型为 DIRECT_REPLY_ERROR
	FaultTruncate       // 回复负载缺少最后一个字节
	FaultSilent         // 不回复
)

// SimCommand 模拟器收到的一条命令
type SimCommand struct {
	Sequence   uint16
	Reply      bool
	GlobalSize int
	LocalSize  int
	Opcode     byte
	Params     []ev3.Param
}

// Sim 进程内 EV3 主机模拟器，实现 ev3.Connection
type Sim struct {
	mu        sync.Mutex
	connected bool
	rx        []byte
	tx        []byte
	inputs    [4]float32
	motors    [4]int
	running   [4]bool
	battery   int8
	voltage   float32
	fault     Fault
	commands  []SimCommand
}

// NewSim 创建已连接的模拟器
func NewSim() *Sim {
	return &Sim{connected: true, battery: 87, voltage: 7.9}
}

// SetInput 设置传感器端口（0..3）的读数
func (s *Sim) SetInput(port int, v float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs[port] = v
}

// SetConnected 设置链路状态
func (s *Sim) SetConnected(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = v
}

// SetFault 设置故障注入
func (s *Sim) SetFault(f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = f
}

// Commands 返回已收到的命令
func (s *Sim) Commands() []SimCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SimCommand, len(s.commands))
	copy(out, s.commands)
	return out
}

// MotorPower 返回电机端口（0..3 对应 A..D）的功率设定与运行状态
func (s *Sim) MotorPower(port int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.motors[port], s.running[port]
}

// IsConnected 实现 ev3.Connection
func (s *Sim) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Write 接收主机字节，凑满一帧即处理
func (s *Sim) Write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return ev3.ErrNotConnected
	}
	s.rx = append(s.rx, p...)
	for len(s.rx) >= 2 {
		total := int(binary.LittleEndian.Uint16(s.rx[0:2])) + 2
		if len(s.rx) < total {
			return nil
		}
		frame := s.rx[2:total]
		s.rx = s.rx[total:]
		if err := s.handle(frame); err != nil {
			return err
		}
	}
	return nil
}

// Read 读取恰好 n 字节
func (s *Sim) Read(n int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil, ev3.ErrNotConnected
	}
	if len(s.tx) < n {
		out := s.tx
		s.tx = nil
		return out, fmt.Errorf("%w: %w", ErrShortRead, io.ErrUnexpectedEOF)
	}
	out := make([]byte, n)
	copy(out, s.tx[:n])
	s.tx = s.tx[n:]
	return out, nil
}

// Close 断开
func (s *Sim) Close() error {
	s.SetConnected(false)
	return nil
}

// handle 处理 seq[2] | type | global | local+global | opcode | params
func (s *Sim) handle(frame []byte) error {
	if len(frame) < 6 {
		return fmt.Errorf("sim: frame too short: %d", len(frame))
	}
	cmd := SimCommand{
		Sequence:   binary.LittleEndian.Uint16(frame[0:2]),
		Reply:      frame[2] == ev3.DirectCommandReply,
		GlobalSize: int(frame[3]) | int(frame[4]&0x03)<<8,
		LocalSize:  int(frame[4] >> 2),
		Opcode:     frame[5],
	}
	for b := frame[6:]; len(b) > 0; {
		p, n, err := ev3.DecodeParam(b)
		if err != nil {
			return fmt.Errorf("sim: %w", err)
		}
		cmd.Params = append(cmd.Params, p)
		b = b[n:]
	}
	s.commands = append(s.commands, cmd)

	global := make([]byte, cmd.GlobalSize)
	s.execute(cmd, global)
	if !cmd.Reply || s.fault == FaultSilent {
		return nil
	}

	body := append([]byte{ev3.DirectReply}, global...)
	switch s.fault {
	case FaultBadTag:
		body[0] = ev3.DirectReplyError
	case FaultTruncate:
		// 声明长度保持不变，实际少发 1 字节
		hdr := make([]byte, 4)
		binary.LittleEndian.PutUint16(hdr[0:2], uint16(len(body)+2))
		binary.LittleEndian.PutUint16(hdr[2:4], cmd.Sequence)
		s.tx = append(s.tx, hdr...)
		s.tx = append(s.tx, body[:len(body)-1]...)
		return nil
	}
	hdr := make([]byte, 4)
	binary.LittleEndian.PutUint16(hdr[0:2], uint16(len(body)+2))
	binary.LittleEndian.PutUint16(hdr[2:4], cmd.Sequence)
	s.tx = append(s.tx, hdr...)
	s.tx = append(s.tx, body...)
	return nil
}

func (s *Sim) execute(cmd SimCommand, global []byte) {
	param := func(i int) int {
		if i < len(cmd.Params) {
			return cmd.Params[i].Value
		}
		return 0
	}
	switch cmd.Opcode {
	case ev3.OpInputDevice:
		// sub, layer, port, type, mode, count, GV
		port := param(2)
		if port < 0 || port > 3 {
			return
		}
		v := s.inputs[port]
		switch byte(param(0)) {
		case ev3.InputReadyPct:
			if len(global) >= 1 {
				global[0] = byte(int8(clampPct(v)))
			}
		case ev3.InputReadySI:
			if len(global) >= 4 {
				binary.LittleEndian.PutUint32(global, math.Float32bits(v))
			}
		}
	case ev3.OpUIRead:
		switch byte(param(0)) {
		case ev3.UIReadGetLBatt:
			if len(global) >= 1 {
				global[0] = byte(s.battery)
			}
		case ev3.UIReadGetVBatt:
			if len(global) >= 4 {
				binary.LittleEndian.PutUint32(global, math.Float32bits(s.voltage))
			}
		}
	case ev3.OpOutputPower, ev3.OpOutputSpeed:
		// layer, nos, power
		s.eachMotor(param(1), func(i int) { s.motors[i] = param(2) })
	case ev3.OpOutputStart:
		s.eachMotor(param(1), func(i int) { s.running[i] = true })
	case ev3.OpOutputStop:
		s.eachMotor(param(1), func(i int) { s.running[i] = false })
	}
}

func (s *Sim) eachMotor(bits int, fn func(i int)) {
	for i := 0; i < 4; i++ {
		if bits&(1<<i) != 0 {
			fn(i)
		}
	}
}

func clampPct(v float32) int {
	switch {
	case v < -100:
		return -100
	case v > 100:
		return 100
	}
	return int(v)
}
