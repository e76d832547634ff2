package types

import (
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"
)

type Pubkey [32]byte

func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

func (p Pubkey) Equals(other Pubkey) bool {
	return p == other
}

// IsZero 判断是否为零值地址。零值同时承担"原生 SOL 哨兵"与"字段缺省"两种语义，由调用方区分。
func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

// JSON 序列化统一用 base58 字符串，便于下游直接消费

func (p Pubkey) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Pubkey) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := TryPubkeyFromBase58(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// TryPubkeyFromBase58 解析 base58 字符串为 Pubkey，失败时返回 error（用于不信任输入路径）
func TryPubkeyFromBase58(s string) (Pubkey, error) {
	data, err := base58.Decode(s)
	if err != nil {
		return Pubkey{}, fmt.Errorf("failed to decode base58 pubkey %q: %w", s, err)
	}
	if len(data) != 32 {
		return Pubkey{}, fmt.Errorf("invalid pubkey length: got %d, want 32, input=%q", len(data), s)
	}
	var p Pubkey
	copy(p[:], data)
	return p, nil
}

// PubkeyFromBase58 解析 base58 字符串为 Pubkey，仅用于编译期常量地址，失败直接 panic
func PubkeyFromBase58(s string) Pubkey {
	p, err := TryPubkeyFromBase58(s)
	if err != nil {
		panic(err)
	}
	return p
}

// PubkeyFromBytes 从原始字节构造 Pubkey，长度不为 32 时返回 false
func PubkeyFromBytes(b []byte) (Pubkey, bool) {
	if len(b) != 32 {
		return Pubkey{}, false
	}
	var p Pubkey
	copy(p[:], b)
	return p, true
}
