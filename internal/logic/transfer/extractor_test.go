package transfer

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-indexer-sol/internal/consts"
	"pump-indexer-sol/internal/logic/core"
	"pump-indexer-sol/internal/types"
)

// 账户表下标约定（测试专用）
const (
	idxTokenProgram = iota
	idxSystemProgram
	idxSrc
	idxMintX
	idxDest
	idxAuthority
	idxNativeSrc
	idxNativeDest
)

func testAccountKeys() []types.Pubkey {
	keys := make([]types.Pubkey, 8)
	keys[idxTokenProgram] = consts.TokenProgram
	keys[idxSystemProgram] = consts.SystemProgram
	for i := idxSrc; i <= idxNativeDest; i++ {
		keys[i][0] = byte(i) // 互不相同即可
	}
	return keys
}

func transferCheckedIx(amount uint64, decimals uint8) core.InnerInstruction {
	data := make([]byte, 10)
	data[0] = 12 // TransferChecked
	binary.LittleEndian.PutUint64(data[1:9], amount)
	data[9] = decimals
	return core.InnerInstruction{
		ProgramIndex:   idxTokenProgram,
		Data:           data,
		AccountIndices: []uint16{idxSrc, idxMintX, idxDest, idxAuthority},
	}
}

func nativeTransferIx(lamports uint64) core.InnerInstruction {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[:4], SystemTransferInstruction)
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	return core.InnerInstruction{
		ProgramIndex:   idxSystemProgram,
		Data:           data,
		AccountIndices: []uint16{idxNativeSrc, idxNativeDest},
	}
}

// 一笔 TransferChecked + 一笔原生转账，严格按指令顺序产出两条记录
func TestExtract_CheckedAndNativeInOrder(t *testing.T) {
	keys := testAccountKeys()
	ctx := &core.NormalizedContext{
		AccountKeys: keys,
		InnerGroups: []core.InnerInstructionGroup{{
			IxIndex: 0,
			Instructions: []core.InnerInstruction{
				transferCheckedIx(1_000_000, 9),
				nativeTransferIx(100_000_000),
			},
		}},
	}

	transfers := Extract(ctx)
	require.Len(t, transfers, 2)

	// 第一条：TransferChecked，mint 直接取自指令账户
	assert.Equal(t, uint64(1_000_000), transfers[0].Amount)
	assert.Equal(t, keys[idxMintX], transfers[0].Mint)
	assert.Equal(t, uint8(9), transfers[0].Decimals)
	assert.True(t, transfers[0].HasDecimals)
	assert.False(t, transfers[0].IsNative())
	assert.Equal(t, keys[idxSrc], transfers[0].Source)
	assert.Equal(t, keys[idxDest], transfers[0].Destination)

	// 第二条：原生 SOL，mint 为哨兵
	assert.Equal(t, uint64(100_000_000), transfers[1].Amount)
	assert.Equal(t, consts.NativeSOLMint, transfers[1].Mint)
	assert.True(t, transfers[1].IsNative())
	assert.Equal(t, uint8(9), transfers[1].Decimals)
}

// 普通 Transfer 指令不带 mint，需从余额快照反查；查不到时为 InvalidAddress
func TestExtract_PlainTransferMintLookup(t *testing.T) {
	keys := testAccountKeys()

	data := make([]byte, 9)
	data[0] = 3 // Transfer
	binary.LittleEndian.PutUint64(data[1:9], 555)
	plain := core.InnerInstruction{
		ProgramIndex:   idxTokenProgram,
		Data:           data,
		AccountIndices: []uint16{idxSrc, idxDest, idxAuthority},
	}

	ctx := &core.NormalizedContext{
		AccountKeys: keys,
		InnerGroups: []core.InnerInstructionGroup{{IxIndex: 0, Instructions: []core.InnerInstruction{plain}}},
	}

	transfers := Extract(ctx)
	require.Len(t, transfers, 1)
	assert.Equal(t, consts.InvalidAddress, transfers[0].Mint, "无余额快照时 mint 不可解析")

	// 补上余额快照后可反查
	ctx.PostTokenBalances = []core.TokenBalanceSnapshot{{AccountIndex: idxSrc, Mint: keys[idxMintX]}}
	transfers = Extract(ctx)
	require.Len(t, transfers, 1)
	assert.Equal(t, keys[idxMintX], transfers[0].Mint)
}

// 无法识别的 opcode / 程序 / 越界下标一律静默跳过
func TestExtract_MalformedSkipped(t *testing.T) {
	keys := testAccountKeys()

	unknownOp := core.InnerInstruction{
		ProgramIndex:   idxTokenProgram,
		Data:           []byte{99, 0, 0, 0, 0, 0, 0, 0, 0},
		AccountIndices: []uint16{idxSrc, idxDest},
	}
	unknownProgram := core.InnerInstruction{
		ProgramIndex:   idxMintX,
		Data:           []byte{3, 1, 0, 0, 0, 0, 0, 0, 0},
		AccountIndices: []uint16{idxSrc, idxDest},
	}
	outOfRange := transferCheckedIx(1, 9)
	outOfRange.AccountIndices = []uint16{200, 201, 202, 203}
	truncated := core.InnerInstruction{
		ProgramIndex:   idxTokenProgram,
		Data:           []byte{12, 1},
		AccountIndices: []uint16{idxSrc, idxMintX, idxDest, idxAuthority},
	}

	ctx := &core.NormalizedContext{
		AccountKeys: keys,
		InnerGroups: []core.InnerInstructionGroup{{
			IxIndex:      0,
			Instructions: []core.InnerInstruction{unknownOp, unknownProgram, outOfRange, truncated, nativeTransferIx(7)},
		}},
	}

	transfers := Extract(ctx)
	require.Len(t, transfers, 1, "只有合法的原生转账存活")
	assert.Equal(t, uint64(7), transfers[0].Amount)
}

// 无 inner 指令返回空结果
func TestExtract_Empty(t *testing.T) {
	assert.Empty(t, Extract(&core.NormalizedContext{AccountKeys: testAccountKeys()}))
}

// ExtractForInstruction 只取指定主指令派生的转账
func TestExtractForInstruction(t *testing.T) {
	keys := testAccountKeys()
	ctx := &core.NormalizedContext{
		AccountKeys: keys,
		InnerGroups: []core.InnerInstructionGroup{
			{IxIndex: 0, Instructions: []core.InnerInstruction{nativeTransferIx(1)}},
			{IxIndex: 2, Instructions: []core.InnerInstruction{nativeTransferIx(2), nativeTransferIx(3)}},
		},
	}

	transfers := ExtractForInstruction(ctx, 2)
	require.Len(t, transfers, 2)
	assert.Equal(t, uint64(2), transfers[0].Amount)
	assert.Equal(t, uint64(3), transfers[1].Amount)
	assert.Empty(t, ExtractForInstruction(ctx, 5))
}
