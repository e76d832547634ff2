package normalizer

import (
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-indexer-sol/internal/consts"
	"pump-indexer-sol/internal/types"
)

// 标准交易通知形态：base58 账户表 + lookup 追加 + inner 指令 + 余额快照
func TestNormalize_Transaction(t *testing.T) {
	data := base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	raw := fmt.Sprintf(`{
		"signature": "sig-1",
		"slot": 123,
		"blockTime": 1700000000,
		"transaction": {
			"signatures": ["sig-1"],
			"message": {
				"accountKeys": ["%s", "%s"],
				"instructions": [{"programIdIndex": 0, "accounts": [1, 0], "data": "%s"}]
			}
		},
		"meta": {
			"logMessages": ["Program log: hi"],
			"innerInstructions": [{"index": 0, "instructions": [{"programIdIndex": 1, "accounts": [0], "data": "%s"}]}],
			"postTokenBalances": [{"accountIndex": 1, "mint": "%s", "uiTokenAmount": {"amount": "18446744073709551615", "decimals": 9}}],
			"loadedAddresses": {"writable": ["%s"], "readonly": ["%s"]}
		}
	}`, consts.PumpFunProgramStr, consts.WSOLMintStr, data, data,
		consts.WSOLMintStr, consts.PumpFunAMMProgramStr, consts.TokenProgramStr)

	ctx := Normalize([]byte(raw))
	require.NotNil(t, ctx)
	assert.Equal(t, "sig-1", ctx.Signature)
	assert.Equal(t, uint64(123), ctx.Slot)
	assert.Equal(t, int64(1700000000), ctx.BlockTime)

	// 账户表拼接顺序：主表 → writable → readonly
	require.Len(t, ctx.AccountKeys, 4)
	assert.Equal(t, consts.PumpFunProgram, ctx.AccountKeys[0])
	assert.Equal(t, consts.WSOLMint, ctx.AccountKeys[1])
	assert.Equal(t, consts.PumpFunAMMProgram, ctx.AccountKeys[2])
	assert.Equal(t, consts.TokenProgram, ctx.AccountKeys[3])

	require.Len(t, ctx.Instructions, 1)
	assert.Equal(t, uint16(0), ctx.Instructions[0].IxIndex)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, ctx.Instructions[0].Data)
	assert.Equal(t, []uint16{1, 0}, ctx.Instructions[0].AccountIndices)

	require.Len(t, ctx.InnerGroups, 1)
	assert.Equal(t, uint16(0), ctx.InnerGroups[0].IxIndex)
	require.Len(t, ctx.InnerGroups[0].Instructions, 1)

	require.Len(t, ctx.PostTokenBalances, 1)
	assert.Equal(t, consts.WSOLMint, ctx.PostTokenBalances[0].Mint)
	assert.Equal(t, uint64(18446744073709551615), ctx.PostTokenBalances[0].Amount) // uint64 满量程不截断

	assert.Equal(t, []string{"Program log: hi"}, ctx.LogMessages)
	assert.Equal(t, []byte(raw), ctx.Raw)
}

// RPC 通知外壳逐层剥离：params.result → 交易体
func TestNormalize_EnvelopeUnwrap(t *testing.T) {
	raw := fmt.Sprintf(`{"jsonrpc": "2.0", "method": "transactionNotification", "params": {"result": {
		"signature": "sig-2",
		"slot": 9,
		"transaction": {"message": {"accountKeys": ["%s"], "instructions": []}}
	}}}`, consts.PumpFunProgramStr)

	ctx := Normalize([]byte(raw))
	assert.Equal(t, "sig-2", ctx.Signature)
	assert.Equal(t, uint64(9), ctx.Slot)
	require.Len(t, ctx.AccountKeys, 1)
	assert.Equal(t, consts.PumpFunProgram, ctx.AccountKeys[0])
}

// 顶层无 signature 时回退 signatures[0]
func TestNormalize_SignatureFallback(t *testing.T) {
	raw := `{"slot": 1, "transaction": {"signatures": ["first-sig", "second-sig"], "message": {"accountKeys": [], "instructions": []}}}`
	ctx := Normalize([]byte(raw))
	assert.Equal(t, "first-sig", ctx.Signature)
}

// 账户更新（盒装形态）：data 为 [data, encoding] 元组
func TestNormalize_AccountUpdateBoxed(t *testing.T) {
	data := base64.StdEncoding.EncodeToString([]byte{0xAA, 0xBB})
	raw := fmt.Sprintf(`{"slot": 77, "pubkey": "%s", "account": {
		"lamports": 5000000000,
		"owner": "%s",
		"data": ["%s", "base64"]
	}}`, consts.WSOLMintStr, consts.PumpFunProgramStr, data)

	ctx := Normalize([]byte(raw))
	require.NotNil(t, ctx.Account)
	assert.Equal(t, uint64(77), ctx.Slot)
	assert.Equal(t, consts.WSOLMint, ctx.Account.Address)
	assert.Equal(t, consts.PumpFunProgram, ctx.Account.Owner)
	assert.Equal(t, uint64(5_000_000_000), ctx.Account.Lamports)
	assert.Equal(t, []byte{0xAA, 0xBB}, ctx.Account.Data)
}

// 账户更新（扁平形态）：pubkey 为字节数组，data 为数字数组
func TestNormalize_AccountUpdateFlat(t *testing.T) {
	key := consts.PumpFunAMMProgram
	keyArr := "["
	for i, b := range key {
		if i > 0 {
			keyArr += ","
		}
		keyArr += fmt.Sprintf("%d", b)
	}
	keyArr += "]"

	raw := fmt.Sprintf(`{"slot": 3, "pubkey": %s, "lamports": 42, "owner": "%s", "data": [1, 2, 3]}`,
		keyArr, consts.PumpFunProgramStr)

	ctx := Normalize([]byte(raw))
	require.NotNil(t, ctx.Account)
	assert.Equal(t, key, ctx.Account.Address)
	assert.Equal(t, uint64(42), ctx.Account.Lamports)
	assert.Equal(t, []byte{1, 2, 3}, ctx.Account.Data)
}

// data 缺失的账户更新不可解码，落到空上下文
func TestNormalize_AccountUpdateNoData(t *testing.T) {
	raw := fmt.Sprintf(`{"pubkey": "%s", "account": {"lamports": 1}}`, consts.WSOLMintStr)
	ctx := Normalize([]byte(raw))
	assert.Nil(t, ctx.Account)
	assert.Empty(t, ctx.LogMessages)
}

// 纯日志形态
func TestNormalize_LogsOnly(t *testing.T) {
	raw := `{"signature": "sig-3", "slot": 5, "logs": ["Program data: AQID"]}`
	ctx := Normalize([]byte(raw))
	assert.Equal(t, "sig-3", ctx.Signature)
	assert.Equal(t, []string{"Program data: AQID"}, ctx.LogMessages)
	assert.Nil(t, ctx.Account)
}

// 完全不认识的输入：不报错，返回仅带 Raw 的空上下文
func TestNormalize_UnknownShape(t *testing.T) {
	for _, raw := range []string{`{"foo": "bar"}`, `not json at all`, `[]`, ``} {
		ctx := Normalize([]byte(raw))
		require.NotNil(t, ctx, raw)
		assert.Equal(t, []byte(raw), ctx.Raw)
		assert.Nil(t, ctx.Account)
		assert.Empty(t, ctx.Instructions)
	}
}

// 异构地址字段的三种形态
func TestFlexAddress_Forms(t *testing.T) {
	var a flexAddress
	require.NoError(t, a.UnmarshalJSON([]byte(`"`+consts.WSOLMintStr+`"`)))
	assert.Equal(t, consts.WSOLMint, a.Pubkey)

	var boxed flexAddress
	require.NoError(t, boxed.UnmarshalJSON([]byte(`{"pubkey": "`+consts.WSOLMintStr+`"}`)))
	assert.Equal(t, consts.WSOLMint, boxed.Pubkey)

	// 非法 base58 不报错，保持零值
	var bad flexAddress
	require.NoError(t, bad.UnmarshalJSON([]byte(`"0OIl-not-base58"`)))
	assert.True(t, bad.Pubkey.IsZero())

	// 长度不对的字节数组同样放弃
	var short flexAddress
	require.NoError(t, short.UnmarshalJSON([]byte(`[1, 2, 3]`)))
	assert.True(t, short.Pubkey.IsZero())
}

// 异构数据字段：字符串 base64 优先、base58 兜底、越界数组放弃、{type,data} 包装
func TestFlexBytes_Forms(t *testing.T) {
	var fromB64 flexBytes
	require.NoError(t, fromB64.UnmarshalJSON([]byte(`"AQID"`)))
	assert.Equal(t, flexBytes{1, 2, 3}, fromB64)

	var fromB58 flexBytes
	b58 := types.Pubkey{}.String() // 32 个零字节的 base58
	require.NoError(t, fromB58.UnmarshalJSON([]byte(`["`+b58+`", "base58"]`)))
	assert.Len(t, []byte(fromB58), 32)

	var overflow flexBytes
	require.NoError(t, overflow.UnmarshalJSON([]byte(`[1, 999]`)))
	assert.Empty(t, overflow)

	var boxed flexBytes
	require.NoError(t, boxed.UnmarshalJSON([]byte(`{"type": "Buffer", "data": [7, 8]}`)))
	assert.Equal(t, flexBytes{7, 8}, boxed)
}
