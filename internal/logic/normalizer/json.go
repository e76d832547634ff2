// Package normalizer 把入站原始消息吸收为统一的 NormalizedContext。
// 上游来源混杂（RPC 通知、浏览器导出、不同版本客户端），同一字段存在
// 多种编码形态：地址可能是 base58 字符串 / 字节数组 / {pubkey:...} 包装，
// 数据可能是 base64 字符串 / [data, encoding] 元组 / {type,data} 包装。
// 归一化失败不是错误：返回空但合法的上下文，让调度器正常跑完并得出"无事件"。
package normalizer

import (
	"encoding/base64"
	"encoding/json"
	"strconv"

	"github.com/mr-tron/base58"
	"github.com/zeromicro/go-zero/core/jsonx"

	"pump-indexer-sol/internal/logic/core"
	"pump-indexer-sol/internal/types"
)

// Normalize 解析一条原始 JSON 消息。按 最具体 → 最宽松 的顺序尝试已知形态：
// 交易通知 → 账户更新 → 纯日志；全部不匹配时返回仅携带 Raw 的空上下文。
func Normalize(raw []byte) *core.NormalizedContext {
	body := unwrapEnvelope(raw)

	if ctx, ok := tryTransaction(body); ok {
		ctx.Raw = raw
		return ctx
	}
	if ctx, ok := tryAccountUpdate(body); ok {
		ctx.Raw = raw
		return ctx
	}
	if ctx, ok := tryLogsOnly(body); ok {
		ctx.Raw = raw
		return ctx
	}
	return &core.NormalizedContext{Raw: raw}
}

// unwrapEnvelope 逐层剥掉 RPC 通知外壳：{params:{result:...}} / {result:...} / {value:...}
func unwrapEnvelope(raw []byte) []byte {
	body := raw
	for i := 0; i < 3; i++ { // 嵌套层数有限，防御性封顶
		var envelope struct {
			Params *struct {
				Result json.RawMessage `json:"result"`
			} `json:"params"`
			Result json.RawMessage `json:"result"`
			Value  json.RawMessage `json:"value"`
		}
		if jsonx.Unmarshal(body, &envelope) != nil {
			break
		}
		switch {
		case envelope.Params != nil && len(envelope.Params.Result) > 0:
			body = envelope.Params.Result
		case len(envelope.Result) > 0:
			body = envelope.Result
		case len(envelope.Value) > 0:
			body = envelope.Value
		default:
			return body
		}
	}
	return body
}

// ---- 交易形态 ----

type rawInstruction struct {
	ProgramIdIndex uint16    `json:"programIdIndex"`
	Accounts       []uint16  `json:"accounts"`
	Data           flexBytes `json:"data"`
}

type rawInnerGroup struct {
	Index        uint16           `json:"index"`
	Instructions []rawInstruction `json:"instructions"`
}

type rawTokenBalance struct {
	AccountIndex  uint16      `json:"accountIndex"`
	Mint          flexAddress `json:"mint"`
	Owner         flexAddress `json:"owner"`
	UiTokenAmount struct {
		Amount   json.Number `json:"amount"`
		Decimals uint8       `json:"decimals"`
	} `json:"uiTokenAmount"`
}

type rawTransaction struct {
	Signature   string `json:"signature"`
	Slot        uint64 `json:"slot"`
	BlockTime   int64  `json:"blockTime"`
	Transaction *struct {
		Signatures []string `json:"signatures"`
		Message    struct {
			AccountKeys  []flexAddress    `json:"accountKeys"`
			Instructions []rawInstruction `json:"instructions"`
		} `json:"message"`
	} `json:"transaction"`
	Meta *struct {
		LogMessages       []string          `json:"logMessages"`
		InnerInstructions []rawInnerGroup   `json:"innerInstructions"`
		PreTokenBalances  []rawTokenBalance `json:"preTokenBalances"`
		PostTokenBalances []rawTokenBalance `json:"postTokenBalances"`
		LoadedAddresses   *struct {
			Writable []flexAddress `json:"writable"`
			Readonly []flexAddress `json:"readonly"`
		} `json:"loadedAddresses"`
	} `json:"meta"`
}

func tryTransaction(body []byte) (*core.NormalizedContext, bool) {
	var tx rawTransaction
	if jsonx.Unmarshal(body, &tx) != nil || tx.Transaction == nil {
		return nil, false
	}

	ctx := &core.NormalizedContext{
		Signature: tx.Signature,
		Slot:      tx.Slot,
		BlockTime: tx.BlockTime,
	}
	if ctx.Signature == "" && len(tx.Transaction.Signatures) > 0 {
		ctx.Signature = tx.Transaction.Signatures[0]
	}

	// 账户表 = 主账户 + Address Lookup 的 writable / readonly，保持该拼接顺序
	keys := tx.Transaction.Message.AccountKeys
	var writable, readonly []flexAddress
	if tx.Meta != nil && tx.Meta.LoadedAddresses != nil {
		writable = tx.Meta.LoadedAddresses.Writable
		readonly = tx.Meta.LoadedAddresses.Readonly
	}
	ctx.AccountKeys = make([]types.Pubkey, 0, len(keys)+len(writable)+len(readonly))
	for _, k := range keys {
		ctx.AccountKeys = append(ctx.AccountKeys, k.Pubkey)
	}
	for _, k := range writable {
		ctx.AccountKeys = append(ctx.AccountKeys, k.Pubkey)
	}
	for _, k := range readonly {
		ctx.AccountKeys = append(ctx.AccountKeys, k.Pubkey)
	}

	for i, ix := range tx.Transaction.Message.Instructions {
		ctx.Instructions = append(ctx.Instructions, core.TopInstruction{
			IxIndex:        uint16(i),
			ProgramIndex:   ix.ProgramIdIndex,
			Data:           ix.Data,
			AccountIndices: ix.Accounts,
		})
	}

	if tx.Meta != nil {
		ctx.LogMessages = tx.Meta.LogMessages
		for _, g := range tx.Meta.InnerInstructions {
			group := core.InnerInstructionGroup{IxIndex: g.Index}
			for _, ix := range g.Instructions {
				group.Instructions = append(group.Instructions, core.InnerInstruction{
					ProgramIndex:   ix.ProgramIdIndex,
					Data:           ix.Data,
					AccountIndices: ix.Accounts,
				})
			}
			ctx.InnerGroups = append(ctx.InnerGroups, group)
		}
		ctx.PreTokenBalances = convertBalances(tx.Meta.PreTokenBalances)
		ctx.PostTokenBalances = convertBalances(tx.Meta.PostTokenBalances)
	}
	return ctx, true
}

func convertBalances(raw []rawTokenBalance) []core.TokenBalanceSnapshot {
	if len(raw) == 0 {
		return nil
	}
	out := make([]core.TokenBalanceSnapshot, 0, len(raw))
	for _, b := range raw {
		amount, _ := strconv.ParseUint(b.UiTokenAmount.Amount.String(), 10, 64) // 非法数值按 0 处理
		out = append(out, core.TokenBalanceSnapshot{
			AccountIndex: b.AccountIndex,
			Mint:         b.Mint.Pubkey,
			Owner:        b.Owner.Pubkey,
			Amount:       amount,
			Decimals:     b.UiTokenAmount.Decimals,
		})
	}
	return out
}

// ---- 账户更新形态 ----

type rawAccountBody struct {
	Lamports uint64      `json:"lamports"`
	Owner    flexAddress `json:"owner"`
	Data     flexBytes   `json:"data"`
}

type rawAccountUpdate struct {
	Pubkey  flexAddress     `json:"pubkey"`
	Account *rawAccountBody `json:"account"`
	Slot    uint64          `json:"slot"`

	// 扁平变体：账户字段直接挂在顶层
	rawAccountBody
}

func tryAccountUpdate(body []byte) (*core.NormalizedContext, bool) {
	var acc rawAccountUpdate
	if jsonx.Unmarshal(body, &acc) != nil || acc.Pubkey.Pubkey.IsZero() {
		return nil, false
	}

	inner := acc.rawAccountBody
	if acc.Account != nil {
		inner = *acc.Account
	}
	if len(inner.Data) == 0 {
		return nil, false
	}

	return &core.NormalizedContext{
		Slot: acc.Slot,
		Account: &core.AccountSnapshot{
			Address:  acc.Pubkey.Pubkey,
			Owner:    inner.Owner.Pubkey,
			Lamports: inner.Lamports,
			Data:     inner.Data,
		},
	}, true
}

// ---- 纯日志形态 ----

type rawLogs struct {
	Signature string   `json:"signature"`
	Slot      uint64   `json:"slot"`
	Logs      []string `json:"logs"`
}

func tryLogsOnly(body []byte) (*core.NormalizedContext, bool) {
	var l rawLogs
	if jsonx.Unmarshal(body, &l) != nil || len(l.Logs) == 0 {
		return nil, false
	}
	return &core.NormalizedContext{
		Signature:   l.Signature,
		Slot:        l.Slot,
		LogMessages: l.Logs,
	}, true
}

// ---- 异构字段 ----

// flexAddress 吸收地址的三种形态：base58 字符串、字节数组、{pubkey:...} 包装。
// 解析失败保持零值（调用方按缺失处理），绝不让单个字段拖垮整条消息。
type flexAddress struct {
	Pubkey types.Pubkey
}

func (a *flexAddress) UnmarshalJSON(b []byte) error {
	var s string
	if json.Unmarshal(b, &s) == nil {
		if p, err := types.TryPubkeyFromBase58(s); err == nil {
			a.Pubkey = p
		}
		return nil
	}

	// 字节数组形态（JSON 数字数组，encoding/json 不会解进 []byte）
	var arr []int
	if json.Unmarshal(b, &arr) == nil {
		if raw, ok := intsToBytes(arr); ok {
			if p, ok := types.PubkeyFromBytes(raw); ok {
				a.Pubkey = p
			}
		}
		return nil
	}

	var boxed struct {
		Pubkey string `json:"pubkey"`
	}
	if json.Unmarshal(b, &boxed) == nil && boxed.Pubkey != "" {
		if p, err := types.TryPubkeyFromBase58(boxed.Pubkey); err == nil {
			a.Pubkey = p
		}
	}
	return nil
}

// flexBytes 吸收二进制数据的四种形态：base64/base58 字符串、
// [data, encoding] 元组、{type,data} 包装、字节数组。
type flexBytes []byte

func (d *flexBytes) UnmarshalJSON(b []byte) error {
	var s string
	if json.Unmarshal(b, &s) == nil {
		*d = decodeString(s, "")
		return nil
	}

	// [data, encoding] 元组，如 ["AQID", "base64"]
	var tuple []json.RawMessage
	if json.Unmarshal(b, &tuple) == nil && len(tuple) == 2 {
		var data, encoding string
		if json.Unmarshal(tuple[0], &data) == nil && json.Unmarshal(tuple[1], &encoding) == nil {
			*d = decodeString(data, encoding)
			return nil
		}
	}

	var arr []int
	if json.Unmarshal(b, &arr) == nil {
		if raw, ok := intsToBytes(arr); ok {
			*d = raw
		}
		return nil
	}

	var boxed struct {
		Type string    `json:"type"`
		Data flexBytes `json:"data"`
	}
	if json.Unmarshal(b, &boxed) == nil {
		*d = boxed.Data
	}
	return nil
}

// intsToBytes 把数字数组收敛为字节序列，任一元素越界即整体放弃
func intsToBytes(arr []int) ([]byte, bool) {
	out := make([]byte, len(arr))
	for i, v := range arr {
		if v < 0 || v > 255 {
			return nil, false
		}
		out[i] = byte(v)
	}
	return out, true
}

// decodeString 按声明的 encoding 解码；未声明时先试 base64 再退 base58
func decodeString(s, encoding string) []byte {
	switch encoding {
	case "base64":
		data, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil
		}
		return data
	case "base58":
		data, err := base58.Decode(s)
		if err != nil {
			return nil
		}
		return data
	default:
		if data, err := base64.StdEncoding.DecodeString(s); err == nil {
			return data
		}
		if data, err := base58.Decode(s); err == nil {
			return data
		}
		return nil
	}
}
