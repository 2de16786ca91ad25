package idgen

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/ceyewan/snowgen/xerrors"
)

// ========================================
// 位布局 (Bit Layout)
// ========================================
//
//	| 1 bit 符号位 | 41 bit 时间戳增量 | 5 bit 数据中心 | 5 bit 工作节点 | 12 bit 序列号 |

const (
	TimestampBits    = 41
	DatacenterIDBits = 5
	WorkerIDBits     = 5
	SequenceBits     = 12

	MaxWorkerID     = -1 ^ (-1 << WorkerIDBits)     // 31
	MaxDatacenterID = -1 ^ (-1 << DatacenterIDBits) // 31
	MaxSequence     = -1 ^ (-1 << SequenceBits)     // 4095
	MaxTimestamp    = -1 ^ (-1 << TimestampBits)    // 2^41-1，约 69 年

	WorkerIDShift     = SequenceBits                                   // 12
	DatacenterIDShift = SequenceBits + WorkerIDBits                    // 17
	TimestampShift    = SequenceBits + WorkerIDBits + DatacenterIDBits // 22

	// NodeIDBits 数据中心与工作节点合并后的位宽，对应 1024 个节点槽位
	NodeIDBits = DatacenterIDBits + WorkerIDBits
	MaxNodeID  = -1 ^ (-1 << NodeIDBits) // 1023

	// DefaultEpoch 默认纪元 2019-12-20T05:52:35.667Z (Unix 毫秒)
	DefaultEpoch int64 = 1576821155667
)

// ========================================
// ID 类型
// ========================================

// ID 64 位 Snowflake ID。最高位恒为 0，因此也可以无损转换为 int64。
//
// JSON 编码为十进制字符串，避免 JavaScript 等只有 53 位整数精度的消费方丢失精度。
type ID uint64

// String 返回十进制字符串
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Int64 返回 int64 形式
func (id ID) Int64() int64 {
	return int64(id)
}

// MarshalJSON 编码为 JSON 字符串
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON 同时接受 JSON 字符串与 JSON 数字，null 保持原值不变
func (id *ID) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	parsed, err := ParseID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseID 解析十进制字符串形式的 ID
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, xerrors.WithCode(xerrors.Wrapf(ErrInvalidInput, "parse id %q", s), CodeInvalidID)
	}
	if v>>63 != 0 {
		return 0, xerrors.WithCode(xerrors.Wrapf(ErrInvalidInput, "id %q has sign bit set", s), CodeInvalidID)
	}
	return ID(v), nil
}

// ========================================
// 解码 (Decode)
// ========================================

// Parts ID 各字段的解码结果
type Parts struct {
	UnixMilli    int64 // 生成时刻 (Unix 毫秒)
	Delta        int64 // 相对纪元的毫秒增量
	DatacenterID int64
	WorkerID     int64
	Sequence     int64
}

// Time 返回生成时刻
func (p Parts) Time() time.Time {
	return time.UnixMilli(p.UnixMilli)
}

// NodeID 返回合并后的节点槽位
func (p Parts) NodeID() int64 {
	return JoinNodeID(p.DatacenterID, p.WorkerID)
}

// Decode 按位布局拆解 ID，epoch 必须与生成时使用的纪元一致
//
//	parts := idgen.Decode(id, idgen.DefaultEpoch)
//	fmt.Println(parts.WorkerID, parts.Time())
func Decode(id ID, epoch int64) Parts {
	v := uint64(id)
	delta := int64(v >> TimestampShift)
	return Parts{
		UnixMilli:    delta + epoch,
		Delta:        delta,
		DatacenterID: int64(v>>DatacenterIDShift) & MaxDatacenterID,
		WorkerID:     int64(v>>WorkerIDShift) & MaxWorkerID,
		Sequence:     int64(v) & MaxSequence,
	}
}

// pack 组装 ID，调用方保证各字段已在范围内
func pack(delta, datacenterID, workerID, sequence int64) ID {
	return ID(uint64(delta)<<TimestampShift |
		uint64(datacenterID)<<DatacenterIDShift |
		uint64(workerID)<<WorkerIDShift |
		uint64(sequence))
}

// ========================================
// 节点槽位 (Node Slot)
// ========================================

// SplitNodeID 将 [0, 1024) 的节点槽位拆分为 (datacenterID, workerID)
func SplitNodeID(nodeID int64) (datacenterID, workerID int64) {
	return (nodeID >> WorkerIDBits) & MaxDatacenterID, nodeID & MaxWorkerID
}

// JoinNodeID SplitNodeID 的逆运算
func JoinNodeID(datacenterID, workerID int64) int64 {
	return datacenterID<<WorkerIDBits | workerID
}
