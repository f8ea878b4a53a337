// Package link 提供 ev3.Connection 的具体实现：串口（蓝牙 SPP）与内置模拟器。
package link

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tarm/serial"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/ev3-gateway/internal/config"
	"github.com/taoyao-code/ev3-gateway/internal/protocol/ev3"
)

// ErrShortRead 截止时间内未读满请求的字节数
var ErrShortRead = errors.New("short read")

// 单次底层读取的超时粒度
const pollGranularity = 100 * time.Millisecond

// Serial 基于 tarm/serial 的链路；蓝牙 SPP 在系统中表现为 /dev/rfcommN 或 COMn
type Serial struct {
	port        io.ReadWriteCloser
	name        string
	readTimeout time.Duration
	connected   atomic.Bool
	mu          sync.Mutex
	log         *zap.Logger
}

// OpenSerial 打开串口设备
func OpenSerial(cfg cfgpkg.LinkConfig, log *zap.Logger) (*Serial, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("open serial: empty device name")
	}
	if cfg.Baud <= 0 {
		cfg.Baud = 115200
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 2 * time.Second
	}
	gran := pollGranularity
	if cfg.ReadTimeout < gran {
		gran = cfg.ReadTimeout
	}
	sp, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: gran,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", cfg.Device, err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := newSerial(sp, cfg.Device, cfg.ReadTimeout, log)
	log.Info("serial link opened", zap.String("device", cfg.Device), zap.Int("baud", cfg.Baud))
	return s, nil
}

func newSerial(port io.ReadWriteCloser, name string, readTimeout time.Duration, log *zap.Logger) *Serial {
	s := &Serial{port: port, name: name, readTimeout: readTimeout, log: log}
	s.connected.Store(true)
	return s
}

// Name 设备名
func (s *Serial) Name() string { return s.name }

// IsConnected 实现 ev3.Connection
func (s *Serial) IsConnected() bool { return s.connected.Load() }

// Write 写出全部字节
func (s *Serial) Write(p []byte) error {
	if !s.connected.Load() {
		return ev3.ErrNotConnected
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(p) > 0 {
		n, err := s.port.Write(p)
		if err != nil {
			return fmt.Errorf("serial write: %w", err)
		}
		p = p[n:]
	}
	return nil
}

// Read 读取恰好 n 字节，超过 readTimeout 仍未读满则返回已读部分与 ErrShortRead
func (s *Serial) Read(n int) ([]byte, error) {
	if !s.connected.Load() {
		return nil, ev3.ErrNotConnected
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, n)
	got := 0
	deadline := time.Now().Add(s.readTimeout)
	for got < n {
		m, err := s.port.Read(buf[got:])
		got += m
		if got >= n {
			break
		}
		// tarm/serial 在超时且无数据时返回 (0, io.EOF)
		if err != nil && !errors.Is(err, io.EOF) {
			return buf[:got], fmt.Errorf("serial read: %w", err)
		}
		if time.Now().After(deadline) {
			s.log.Debug("serial read timeout",
				zap.Int("want", n), zap.Int("got", got),
				zap.String("raw_hex", fmt.Sprintf("% X", buf[:got])))
			return buf[:got], fmt.Errorf("%w: want %d bytes, got %d after %s", ErrShortRead, n, got, s.readTimeout)
		}
	}
	return buf, nil
}

// Close 关闭串口
func (s *Serial) Close() error {
	if !s.connected.CompareAndSwap(true, false) {
		return nil
	}
	s.log.Info("serial link closed", zap.String("device", s.name))
	return s.port.Close()
}
