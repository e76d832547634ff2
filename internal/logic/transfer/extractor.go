// Package transfer 从 inner 指令树中提取 token / 原生 SOL 转账记录。
// 输出顺序与指令执行顺序一致：下游的交易方向推断依赖转账的相对顺序，而非总量。
package transfer

import (
	"encoding/binary"

	sdktoken "github.com/blocto/solana-go-sdk/program/token"

	"pump-indexer-sol/internal/consts"
	"pump-indexer-sol/internal/logic/core"
	"pump-indexer-sol/internal/types"
)

// SPL Token 合约源码:
// https://github.com/solana-program/token/blob/main/program/src/instruction.rs

// SystemTransferInstruction 是 System Program 原生转账指令的 u32 小端编号
const SystemTransferInstruction uint32 = 2

// TokenTransfer 表示一次已识别的转账（SPL 或原生 SOL）。
// Mint 为 consts.NativeSOLMint 哨兵时表示原生 SOL；
// 为 consts.InvalidAddress 时表示普通 Transfer 指令中无法反查到 mint。
type TokenTransfer struct {
	IxIndex     uint16 // 所属主指令位置
	Source      types.Pubkey
	Destination types.Pubkey
	Amount      uint64
	Mint        types.Pubkey
	Decimals    uint8
	HasDecimals bool // 仅 TransferChecked 与原生转账携带精度
}

// IsNative 判断是否为原生 SOL 转账
func (t *TokenTransfer) IsNative() bool {
	return t.Mint == consts.NativeSOLMint
}

// Extract 遍历所有 inner 指令组，按指令顺序收集转账记录。
// 无 inner 指令时返回空结果；无法识别的 opcode、程序或越界账户下标一律静默跳过，
// 链上数据不可信，这里绝不允许中断整条消息的解析。
func Extract(ctx *core.NormalizedContext) []TokenTransfer {
	var result []TokenTransfer
	for gi := range ctx.InnerGroups {
		group := &ctx.InnerGroups[gi]
		for ii := range group.Instructions {
			if t, ok := parseOne(ctx, group.IxIndex, &group.Instructions[ii]); ok {
				result = append(result, t)
			}
		}
	}
	return result
}

// ExtractForInstruction 只收集指定主指令派生的转账
func ExtractForInstruction(ctx *core.NormalizedContext, ixIndex uint16) []TokenTransfer {
	group, ok := ctx.InnerGroupByIxIndex(ixIndex)
	if !ok {
		return nil
	}
	var result []TokenTransfer
	for ii := range group.Instructions {
		if t, ok := parseOne(ctx, group.IxIndex, &group.Instructions[ii]); ok {
			result = append(result, t)
		}
	}
	return result
}

func parseOne(ctx *core.NormalizedContext, ixIndex uint16, ix *core.InnerInstruction) (TokenTransfer, bool) {
	program, ok := ctx.AccountAt(ix.ProgramIndex)
	if !ok {
		return TokenTransfer{}, false
	}

	switch program {
	case consts.TokenProgram, consts.TokenProgram2022:
		return parseSPLTransfer(ctx, ixIndex, ix)
	case consts.SystemProgram:
		return parseNativeTransfer(ctx, ixIndex, ix)
	default:
		return TokenTransfer{}, false
	}
}

// parseSPLTransfer 解析 Transfer / TransferChecked 指令
func parseSPLTransfer(ctx *core.NormalizedContext, ixIndex uint16, ix *core.InnerInstruction) (TokenTransfer, bool) {
	if len(ix.Data) < 9 {
		return TokenTransfer{}, false
	}

	switch ix.Data[0] {
	// Transfer: [0]=opcode, [1:9]=amount
	// accounts = [src_account, dest_account, authority]
	case byte(sdktoken.InstructionTransfer):
		src, ok1 := accountByRef(ctx, ix, 0)
		dest, ok2 := accountByRef(ctx, ix, 1)
		if !ok1 || !ok2 {
			return TokenTransfer{}, false
		}
		t := TokenTransfer{
			IxIndex:     ixIndex,
			Source:      src,
			Destination: dest,
			Amount:      binary.LittleEndian.Uint64(ix.Data[1:9]),
			Mint:        consts.InvalidAddress, // 指令本身不带 mint，下面反查余额快照
		}
		if mint, ok := ctx.MintOfTokenAccount(src); ok {
			t.Mint = mint
		} else if mint, ok := ctx.MintOfTokenAccount(dest); ok {
			t.Mint = mint
		}
		return t, true

	// TransferChecked: [0]=opcode, [1:9]=amount, [9]=decimals
	// accounts = [src_account, mint, dest_account, authority]
	case byte(sdktoken.InstructionTransferChecked):
		if len(ix.Data) < 10 {
			return TokenTransfer{}, false
		}
		src, ok1 := accountByRef(ctx, ix, 0)
		mint, ok2 := accountByRef(ctx, ix, 1)
		dest, ok3 := accountByRef(ctx, ix, 2)
		if !ok1 || !ok2 || !ok3 {
			return TokenTransfer{}, false
		}
		return TokenTransfer{
			IxIndex:     ixIndex,
			Source:      src,
			Destination: dest,
			Amount:      binary.LittleEndian.Uint64(ix.Data[1:9]),
			Mint:        mint,
			Decimals:    ix.Data[9],
			HasDecimals: true,
		}, true
	}
	return TokenTransfer{}, false
}

// parseNativeTransfer 解析 System Program 的原生 SOL 转账。
// 布局: [0:4]=指令编号(u32 LE)=2, [4:12]=lamports(u64 LE)；accounts = [src, dest]
func parseNativeTransfer(ctx *core.NormalizedContext, ixIndex uint16, ix *core.InnerInstruction) (TokenTransfer, bool) {
	if len(ix.Data) < 12 {
		return TokenTransfer{}, false
	}
	if binary.LittleEndian.Uint32(ix.Data[:4]) != SystemTransferInstruction {
		return TokenTransfer{}, false
	}
	src, ok1 := accountByRef(ctx, ix, 0)
	dest, ok2 := accountByRef(ctx, ix, 1)
	if !ok1 || !ok2 {
		return TokenTransfer{}, false
	}
	return TokenTransfer{
		IxIndex:     ixIndex,
		Source:      src,
		Destination: dest,
		Amount:      binary.LittleEndian.Uint64(ix.Data[4:12]),
		Mint:        consts.NativeSOLMint,
		Decimals:    consts.SOLDecimals,
		HasDecimals: true,
	}, true
}

// accountByRef 按指令内账户引用位次取地址，双重越界检查
func accountByRef(ctx *core.NormalizedContext, ix *core.InnerInstruction, pos int) (types.Pubkey, bool) {
	if pos >= len(ix.AccountIndices) {
		return types.Pubkey{}, false
	}
	return ctx.AccountAt(ix.AccountIndices[pos])
}
