package core

import (
	"encoding/base64"
	"strings"

	"pump-indexer-sol/internal/types"
)

// NormalizedContext 是归一化后的消息上下文。
// 每条入站原始消息构造一次，解码结束后即丢弃；不持有任何外部资源。
// 交易类消息填充 Instructions / InnerGroups / 余额快照，账户更新消息填充 Account。
type NormalizedContext struct {
	Signature string // 交易签名（base58），账户更新消息为空
	Slot      uint64
	BlockTime int64 // Unix 秒，缺失为 0

	// AccountKeys 为消息引用的账户地址表，保持原始顺序（指令通过下标引用）
	AccountKeys []types.Pubkey

	// LogMessages 交易执行日志，部分策略从中兜底提取事件数据
	LogMessages []string

	// Instructions 主指令列表（按声明顺序）
	Instructions []TopInstruction

	// InnerGroups 按主指令分组的 inner 指令（CPI 调用），组内保持执行顺序
	InnerGroups []InnerInstructionGroup

	// Account 账户更新消息专用快照，交易消息为 nil
	Account *AccountSnapshot

	// Pre/PostTokenBalances 交易前后的 SPL Token 余额快照
	PreTokenBalances  []TokenBalanceSnapshot
	PostTokenBalances []TokenBalanceSnapshot

	// Raw 原始完整 payload（逃生舱，仅个别策略需要更多结构时使用）
	Raw []byte
}

// TopInstruction 表示一条主指令
type TopInstruction struct {
	IxIndex        uint16
	ProgramIndex   uint16
	Data           []byte
	AccountIndices []uint16
}

// InnerInstructionGroup 表示某条主指令派生出的 inner 指令序列
type InnerInstructionGroup struct {
	IxIndex      uint16 // 所属主指令位置
	Instructions []InnerInstruction
}

// InnerInstruction 表示一条 inner 指令
type InnerInstruction struct {
	ProgramIndex   uint16
	Data           []byte
	AccountIndices []uint16
}

// AccountSnapshot 表示一次账户状态更新
type AccountSnapshot struct {
	Address  types.Pubkey
	Owner    types.Pubkey
	Lamports uint64
	Data     []byte
}

// TokenBalanceSnapshot 表示某 token account 在交易前或后的余额
type TokenBalanceSnapshot struct {
	AccountIndex uint16
	Mint         types.Pubkey
	Owner        types.Pubkey
	Amount       uint64
	Decimals     uint8
}

// AccountAt 按下标取账户地址，越界返回 false（链上数据不可信，禁止 panic 路径）
func (c *NormalizedContext) AccountAt(idx uint16) (types.Pubkey, bool) {
	if int(idx) >= len(c.AccountKeys) {
		return types.Pubkey{}, false
	}
	return c.AccountKeys[idx], true
}

// FirstInstructionByProgram 定位第一条属于指定程序的主指令
func (c *NormalizedContext) FirstInstructionByProgram(program types.Pubkey) (*TopInstruction, bool) {
	for i := range c.Instructions {
		prog, ok := c.AccountAt(c.Instructions[i].ProgramIndex)
		if ok && prog == program {
			return &c.Instructions[i], true
		}
	}
	return nil, false
}

// InnerGroupByIxIndex 取指定主指令的 inner 指令组
func (c *NormalizedContext) InnerGroupByIxIndex(ixIndex uint16) (*InnerInstructionGroup, bool) {
	for i := range c.InnerGroups {
		if c.InnerGroups[i].IxIndex == ixIndex {
			return &c.InnerGroups[i], true
		}
	}
	return nil, false
}

// programDataPrefix 是 Solana 运行时输出事件数据的日志前缀
const programDataPrefix = "Program data: "

// ProgramDataFromLogs 扫描日志，提取第一条 `Program data:` 内嵌的 base64 数据。
// 用于主指令 payload 缺失时的兜底提取。
func (c *NormalizedContext) ProgramDataFromLogs() ([]byte, bool) {
	for _, line := range c.LogMessages {
		rest, found := strings.CutPrefix(line, programDataPrefix)
		if !found {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(rest)
		if err != nil {
			continue
		}
		return data, true
	}
	return nil, false
}

// MintOfTokenAccount 通过余额快照反查某 token account 对应的 mint。
// Post 优先（代表最终状态），找不到再查 Pre。
func (c *NormalizedContext) MintOfTokenAccount(account types.Pubkey) (types.Pubkey, bool) {
	for i := range c.PostTokenBalances {
		b := &c.PostTokenBalances[i]
		if addr, ok := c.AccountAt(b.AccountIndex); ok && addr == account {
			return b.Mint, true
		}
	}
	for i := range c.PreTokenBalances {
		b := &c.PreTokenBalances[i]
		if addr, ok := c.AccountAt(b.AccountIndex); ok && addr == account {
			return b.Mint, true
		}
	}
	return types.Pubkey{}, false
}
