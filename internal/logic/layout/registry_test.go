package layout

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLayout struct {
	A uint64
	B uint64
	C uint8
}

const testDisc uint64 = 0x0102030405060708

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	r.MustRegister("test_layout", DiscriminatorFromUint64(testDisc), func() interface{} {
		return &testLayout{}
	})
	return r
}

// 构造一段合法数据：8 字节 discriminator + 按 borsh 规则编码的字段
func buildTestData(a, b uint64, c uint8) []byte {
	data := make([]byte, 8, 25)
	binary.BigEndian.PutUint64(data[:8], testDisc)
	data = binary.LittleEndian.AppendUint64(data, a)
	data = binary.LittleEndian.AppendUint64(data, b)
	return append(data, c)
}

// 不足 8 字节的输入一律未命中，不报错
func TestDecode_ShortBuffer(t *testing.T) {
	r := newTestRegistry(t)
	for i := 0; i < 8; i++ {
		decoded, err := r.Decode(make([]byte, i))
		assert.NoError(t, err, "len=%d", i)
		assert.Nil(t, decoded, "len=%d", i)
	}
}

// discriminator 任意一位翻转都必须从命中变为未命中
func TestDecode_DiscriminatorBitFlip(t *testing.T) {
	r := newTestRegistry(t)
	base := buildTestData(1, 2, 3)

	decoded, err := r.Decode(base)
	require.NoError(t, err)
	require.NotNil(t, decoded)

	for byteIdx := 0; byteIdx < 8; byteIdx++ {
		for bit := 0; bit < 8; bit++ {
			mutated := append([]byte(nil), base...)
			mutated[byteIdx] ^= 1 << bit
			decoded, err := r.Decode(mutated)
			assert.NoError(t, err, "byte=%d bit=%d", byteIdx, bit)
			assert.Nil(t, decoded, "byte=%d bit=%d", byteIdx, bit)
		}
	}
}

func TestDecode_ExactFields(t *testing.T) {
	r := newTestRegistry(t)

	decoded, err := r.Decode(buildTestData(1_000_000_000, 85_000_000_000, 1))
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.Equal(t, "test_layout", decoded.Name)

	v := decoded.Value.(*testLayout)
	assert.Equal(t, uint64(1_000_000_000), v.A)
	assert.Equal(t, uint64(85_000_000_000), v.B)
	assert.Equal(t, uint8(1), v.C)
}

// 已知结构之后的尾部字节容忍并忽略（协议升级向前兼容）
func TestDecode_TrailingBytesTolerated(t *testing.T) {
	r := newTestRegistry(t)

	data := append(buildTestData(7, 8, 9), 0xAA, 0xBB, 0xCC, 0xDD)
	decoded, err := r.Decode(data)
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.Equal(t, uint64(7), decoded.Value.(*testLayout).A)
}

// discriminator 命中但数据截断，必须返回错误而非静默未命中
func TestDecode_TruncatedPayload(t *testing.T) {
	r := newTestRegistry(t)

	data := buildTestData(1, 2, 3)
	_, err := r.Decode(data[:12])
	assert.Error(t, err)
}

// 布局表属于启动期配置，重复注册立即 panic
func TestMustRegister_Duplicate(t *testing.T) {
	r := newTestRegistry(t)
	assert.Panics(t, func() {
		r.MustRegister("another", DiscriminatorFromUint64(testDisc), func() interface{} {
			return &testLayout{}
		})
	})
	assert.Panics(t, func() {
		r.MustRegister("", DiscriminatorFromUint64(0xFF), func() interface{} {
			return &testLayout{}
		})
	})
}
