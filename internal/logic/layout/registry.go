// Package layout 提供基于 8 字节 discriminator 的定长结构解码。
// 指令路径与账户路径共用：注册表将 discriminator 映射到具名布局，
// 命中后按声明顺序用 borsh 规则解码字段（u64 小端、单字节 bool、32 字节公钥）。
package layout

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/near/borsh-go"
)

// Discriminator 是账户 / 指令 / 事件数据的 8 字节类型前缀
type Discriminator [8]byte

func (d Discriminator) String() string {
	return hex.EncodeToString(d[:])
}

// DiscriminatorFromUint64 从 uint64 十六进制常量构造 Discriminator。
// 约定常量按大端书写（与链上字节序一致，如 Buy = 0x66063d1201daebea）。
func DiscriminatorFromUint64(v uint64) Discriminator {
	var d Discriminator
	binary.BigEndian.PutUint64(d[:], v)
	return d
}

// DiscriminatorOf 读取数据前 8 字节，长度不足返回 false
func DiscriminatorOf(data []byte) (Discriminator, bool) {
	if len(data) < 8 {
		return Discriminator{}, false
	}
	var d Discriminator
	copy(d[:], data[:8])
	return d, true
}

// Decoded 表示一次成功的布局解码结果
type Decoded struct {
	Name  string      // 注册时的布局名
	Value interface{} // factory 构造并填充完毕的结构体指针
}

type entry struct {
	disc    Discriminator
	name    string
	factory func() interface{}
}

// Registry 是 discriminator → 具名布局的注册表。
// 启动期构造完成后只读，可被任意多个 worker 并发使用。
type Registry struct {
	entries []entry // 条目极少，顺序查找比 map 更快且零哈希开销
}

func NewRegistry() *Registry {
	return &Registry{}
}

// MustRegister 注册一个布局。布局表属于启动期配置，
// 名字为空、factory 为 nil 或 discriminator 重复都说明程序装配错误，直接 panic。
func (r *Registry) MustRegister(name string, disc Discriminator, factory func() interface{}) {
	if name == "" || factory == nil {
		panic(fmt.Sprintf("layout: invalid registration for discriminator %s", disc))
	}
	for _, e := range r.entries {
		if e.disc == disc {
			panic(fmt.Sprintf("layout: duplicate discriminator %s (existing=%s, new=%s)", disc, e.name, name))
		}
	}
	r.entries = append(r.entries, entry{disc: disc, name: name, factory: factory})
}

// Decode 尝试按注册表解码一段数据。
// 返回值约定：
//   - (nil, nil)：不足 8 字节或 discriminator 未注册，属于正常的"未命中"；
//   - (nil, err)：discriminator 命中但字节级解码失败（截断 / 非法数据）；
//   - (decoded, nil)：解码成功。已知结构之后的尾部字节容忍并忽略（向前兼容）。
func (r *Registry) Decode(data []byte) (*Decoded, error) {
	disc, ok := DiscriminatorOf(data)
	if !ok {
		return nil, nil
	}
	for _, e := range r.entries {
		if e.disc != disc {
			continue
		}
		v := e.factory()
		if err := borsh.Deserialize(v, data[8:]); err != nil {
			return nil, fmt.Errorf("layout %s: decode failed: %w", e.name, err)
		}
		return &Decoded{Name: e.name, Value: v}, nil
	}
	return nil, nil
}

// Len 返回已注册的布局数量
func (r *Registry) Len() int {
	return len(r.entries)
}
