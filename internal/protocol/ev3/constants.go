package ev3

// 命令类型
const (
	DirectCommandReply   byte = 0x00
	DirectCommandNoReply byte = 0x80
	DirectReply          byte = 0x02
	DirectReplyError     byte = 0x04
)

// 缓冲区上限：全局 10 位，本地 6 位
const (
	MaxGlobalSize = 1023
	MaxLocalSize  = 63
)

// 操作码
const (
	OpUIRead      byte = 0x81
	OpSound       byte = 0x94
	OpInputDevice byte = 0x99
	OpOutputStop  byte = 0xA3
	OpOutputPower byte = 0xA4
	OpOutputSpeed byte = 0xA5
	OpOutputStart byte = 0xA6
)

// opUI_READ 子码
const (
	UIReadGetVBatt byte = 1
	UIReadGetLBatt byte = 18
)

// opSOUND 子码
const (
	SoundBreak byte = 0
	SoundTone  byte = 1
)

// opINPUT_DEVICE 子码
const (
	InputReadyPct byte = 27
	InputReadyRaw byte = 28
	InputReadySI  byte = 29
)

// 参数编码前缀
const (
	paramLC1 = 0x81
	paramLC2 = 0x82
	paramGV0 = 0x60

	maxGV0Index = 0x1F
)

// 层号：单台主机固定为 0
const LayerMaster = 0

// 传感器类型
const (
	TypeNXTTouch      byte = 1
	TypeNXTLight      byte = 2
	TypeNXTSound      byte = 3
	TypeEV3Touch      byte = 16
	TypeEV3Color      byte = 29
	TypeEV3Ultrasonic byte = 30
	TypeEV3Gyro       byte = 32
	TypeEV3Infrared   byte = 33
)
