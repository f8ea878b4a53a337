package ev3

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"
)

// Connection 点对点字节链路（蓝牙 SPP / 串口 / 模拟器）
type Connection interface {
	// Write 写出全部字节
	Write(p []byte) error
	// Read 读取恰好 n 字节；不足 n 字节时返回已读部分与非 nil 错误
	Read(n int) ([]byte, error)
	// IsConnected 链路是否可用
	IsConnected() bool
}

// State 通道状态
type State int32

const (
	StateIdle State = iota
	StateSending
	StateAwaitingReply
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateAwaitingReply:
		return "awaiting_reply"
	default:
		return "unknown"
	}
}

const headerSize = 4

// Channel 命令通道：持有序号计数器，对命令加头发送并读取回复。
// 同一时刻最多一条命令在途，Send 内部串行化。
type Channel struct {
	conn      Connection
	sem       chan struct{}
	seq       uint16
	state     atomic.Int32
	strictSeq bool
}

// Option 通道选项
type Option func(*Channel)

// WithSequenceCheck 要求回复回显的序号与发送序号一致
func WithSequenceCheck() Option {
	return func(c *Channel) { c.strictSeq = true }
}

// NewChannel 创建通道，序号从 0 开始
func NewChannel(conn Connection, opts ...Option) *Channel {
	c := &Channel{
		conn: conn,
		sem:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State 返回当前状态
func (c *Channel) State() State { return State(c.state.Load()) }

// NextSequence 返回下一条命令将使用的序号
func (c *Channel) NextSequence() uint16 {
	c.sem <- struct{}{}
	defer func() { <-c.sem }()
	return c.seq
}

// Connected 底层链路是否可用
func (c *Channel) Connected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// Send 发送一条命令。replyRequired 为 false 时不等待回复，返回 nil。
// 失败不重试，也不尝试在字节流中重新同步。
func (c *Channel) Send(ctx context.Context, cmd []byte, replyRequired bool) (*ReplyFrame, error) {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-c.sem }()

	if c.conn == nil {
		return nil, ErrNoLink
	}
	if !c.conn.IsConnected() {
		return nil, ErrNotConnected
	}
	if len(cmd)+2 > 0xFFFF {
		return nil, fmt.Errorf("%w: command of %d bytes", ErrBufferSize, len(cmd))
	}

	c.state.Store(int32(StateSending))
	defer c.state.Store(int32(StateIdle))

	seq := c.seq
	c.seq++

	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint16(header[0:2], uint16(len(cmd)+2))
	binary.LittleEndian.PutUint16(header[2:4], seq)
	if err := c.conn.Write(header); err != nil {
		return nil, fmt.Errorf("%w: write header: %w", ErrLink, err)
	}
	if err := c.conn.Write(cmd); err != nil {
		return nil, fmt.Errorf("%w: write command: %w", ErrLink, err)
	}
	if !replyRequired {
		return nil, nil
	}

	c.state.Store(int32(StateAwaitingReply))
	hdr, err := c.conn.Read(headerSize)
	if len(hdr) < headerSize {
		if isLinkErr(err) {
			return nil, err
		}
		return nil, shortRead(ErrShortHeader, headerSize, len(hdr), err)
	}
	declaredLen := binary.LittleEndian.Uint16(hdr[0:2])
	declaredSeq := binary.LittleEndian.Uint16(hdr[2:4])
	replySize := int(declaredLen) - 2
	if replySize < 1 {
		return nil, fmt.Errorf("%w: declared length %d", ErrBadReplyTag, declaredLen)
	}

	payload, err := c.conn.Read(replySize)
	if len(payload) != replySize {
		if isLinkErr(err) {
			return nil, err
		}
		return nil, shortRead(ErrShortPayload, replySize, len(payload), err)
	}
	if payload[0] != DirectReply {
		return nil, fmt.Errorf("%w: 0x%02X", ErrBadReplyTag, payload[0])
	}
	if c.strictSeq && declaredSeq != seq {
		return nil, fmt.Errorf("%w: sent %d, got %d", ErrSequence, seq, declaredSeq)
	}
	return &ReplyFrame{
		Length:   declaredLen,
		Sequence: declaredSeq,
		Type:     payload[0],
		Payload:  payload[1:],
	}, nil
}

func isLinkErr(err error) bool {
	return errors.Is(err, ErrNoLink) || errors.Is(err, ErrNotConnected)
}

func shortRead(kind error, want, got int, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: want %d bytes, got %d: %w", kind, want, got, cause)
	}
	return fmt.Errorf("%w: want %d bytes, got %d", kind, want, got)
}
