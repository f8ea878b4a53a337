package ev3

import "fmt"

// ReplyFrame 一帧已校验的回复
// 线上布局：lenLE[2] | seqLE[2] | type[1] | payload[len-3]
type ReplyFrame struct {
	Length   uint16 // 头部声明长度（不含长度字段本身）
	Sequence uint16 // 回显的序号
	Type     byte   // 回复类型标记，校验通过时恒为 DirectReply
	Payload  []byte // 去掉类型标记后的全局变量区
}

// Bytes 返回类型标记 + 负载
func (r *ReplyFrame) Bytes() []byte {
	out := make([]byte, 0, 1+len(r.Payload))
	out = append(out, r.Type)
	return append(out, r.Payload...)
}

// DecodePercentage 解析百分比读数：负载必须恰好 1 字节
func DecodePercentage(r *ReplyFrame) (int8, error) {
	if r == nil {
		return 0, fmt.Errorf("%w: no reply", ErrInvalidReply)
	}
	if len(r.Payload) != 1 {
		return 0, fmt.Errorf("%w: percentage wants 1 byte, got %d", ErrInvalidReply, len(r.Payload))
	}
	return int8(r.Payload[0]), nil
}

// DecodeSI 解析 SI 浮点读数：对 标记+负载 以 "xf" 解包，共 5 字节
func DecodeSI(r *ReplyFrame) (float32, error) {
	if r == nil {
		return 0, fmt.Errorf("%w: no reply", ErrInvalidReply)
	}
	vals, err := Unpack("xf", r.Bytes())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}
	return vals[0].(float32), nil
}
