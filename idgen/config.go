package idgen

// ========================================
// 生成器配置 (Generator)
// ========================================

// Config 静态节点 ID 的生成器配置
//
//	idgen:
//	  worker_id: 1
//	  datacenter_id: 1
//	  epoch: 1576821155667
type Config struct {
	// WorkerID 工作节点 ID [0, 31]
	WorkerID int64 `json:"worker_id" yaml:"worker_id" mapstructure:"worker_id"`

	// DatacenterID 数据中心 ID [0, 31]
	DatacenterID int64 `json:"datacenter_id" yaml:"datacenter_id" mapstructure:"datacenter_id"`

	// Epoch 纪元 (Unix 毫秒)，0 表示使用 DefaultEpoch
	Epoch int64 `json:"epoch" yaml:"epoch" mapstructure:"epoch"`
}

func (c *Config) setDefaults() {
	if c.Epoch == 0 {
		c.Epoch = DefaultEpoch
	}
}

func (c *Config) validate() error {
	if err := checkRange("worker_id", CodeWorkerIDOutOfRange, c.WorkerID, 0, MaxWorkerID); err != nil {
		return err
	}
	return checkRange("datacenter_id", CodeDatacenterIDOutOfRange, c.DatacenterID, 0, MaxDatacenterID)
}

// ========================================
// 分配器配置 (Allocator)
// ========================================

// 分配器驱动
const (
	DriverStatic = "static"
	DriverIP     = "ip"
	DriverRedis  = "redis"
	DriverEtcd   = "etcd"
)

// AllocatorConfig 节点槽位分配器配置
//
//	allocator:
//	  driver: redis
//	  key_prefix: "snowgen:idgen:node"
//	  max_id: 1024
//	  ttl: 30
type AllocatorConfig struct {
	// Driver 后端类型: "static" | "ip" | "redis" | "etcd"，默认 "static"
	Driver string `json:"driver" yaml:"driver" mapstructure:"driver"`

	// Slot driver=static 时使用的节点槽位 [0, MaxID)
	Slot int64 `json:"slot" yaml:"slot" mapstructure:"slot"`

	// KeyPrefix 键前缀，默认 "snowgen:idgen:node"
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix" mapstructure:"key_prefix"`

	// MaxID 槽位范围 [0, MaxID)，默认 1024
	MaxID int `json:"max_id" yaml:"max_id" mapstructure:"max_id"`

	// TTL 租约 TTL（秒），默认 30
	TTL int `json:"ttl" yaml:"ttl" mapstructure:"ttl"`
}

func (c *AllocatorConfig) setDefaults() {
	if c.Driver == "" {
		c.Driver = DriverStatic
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "snowgen:idgen:node"
	}
	if c.MaxID <= 0 {
		c.MaxID = MaxNodeID + 1
	}
	if c.TTL <= 0 {
		c.TTL = 30
	}
}

func (c *AllocatorConfig) validate() error {
	switch c.Driver {
	case DriverStatic, DriverIP, DriverRedis, DriverEtcd:
	default:
		return codedErr(ErrInvalidInput, CodeUnsupportedDriver, "unsupported allocator driver %q", c.Driver)
	}
	if err := checkRange("max_id", "max_id_out_of_range", int64(c.MaxID), 1, MaxNodeID+1); err != nil {
		return err
	}
	if c.Driver == DriverStatic {
		return checkRange("slot", "slot_out_of_range", c.Slot, 0, int64(c.MaxID)-1)
	}
	return nil
}
