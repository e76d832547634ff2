package normalizer

import (
	"fmt"
	"strconv"

	"github.com/mr-tron/base58"
	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"

	"pump-indexer-sol/internal/consts"
	"pump-indexer-sol/internal/logic/core"
	"pump-indexer-sol/internal/types"
)

// NormalizeGeyserTx 将 Geyser gRPC 推送的交易转换为 NormalizedContext。
// 处理流程：
//  1. 构建完整 accountKeys（主账户 + Address Lookup 的 writable / readonly）
//  2. 转换主指令与 inner 指令（保留下标引用，不提前解引用）
//  3. 转换 Pre/Post Token 余额快照
//  4. 若发生 panic，将被捕获并转为错误返回，避免程序崩溃
func NormalizeGeyserTx(slot uint64, blockTime int64, tx *pb.SubscribeUpdateTransactionInfo) (_ *core.NormalizedContext, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("NormalizeGeyserTx panic: %v", r)
		}
	}()

	if tx == nil || tx.Transaction == nil || tx.Transaction.Message == nil || tx.Meta == nil {
		return nil, fmt.Errorf("invalid transaction: missing message or meta")
	}
	if len(tx.Transaction.Signatures) == 0 {
		return nil, fmt.Errorf("invalid transaction: missing signature")
	}

	accountKeys, err := buildFullAccountKeys(
		tx.Transaction.Message.AccountKeys,
		tx.Meta.LoadedWritableAddresses,
		tx.Meta.LoadedReadonlyAddresses,
	)
	if err != nil {
		return nil, fmt.Errorf("buildFullAccountKeys error: %w", err)
	}
	if len(accountKeys) == 0 {
		return nil, fmt.Errorf("invalid transaction: empty accountKeys")
	}

	ctx := &core.NormalizedContext{
		Signature:   base58.Encode(tx.Transaction.Signatures[0]),
		Slot:        slot,
		BlockTime:   blockTime,
		AccountKeys: accountKeys,
		LogMessages: tx.Meta.LogMessages,
	}

	// 主指令
	ctx.Instructions = make([]core.TopInstruction, 0, len(tx.Transaction.Message.Instructions))
	for i, ix := range tx.Transaction.Message.Instructions {
		ctx.Instructions = append(ctx.Instructions, core.TopInstruction{
			IxIndex:        uint16(i),
			ProgramIndex:   uint16(ix.ProgramIdIndex),
			Data:           ix.Data,
			AccountIndices: bytesToIndices(ix.Accounts),
		})
	}

	// inner 指令（按主指令分组，组内保持执行顺序）
	ctx.InnerGroups = make([]core.InnerInstructionGroup, 0, len(tx.Meta.InnerInstructions))
	for _, g := range tx.Meta.InnerInstructions {
		group := core.InnerInstructionGroup{
			IxIndex:      uint16(g.Index),
			Instructions: make([]core.InnerInstruction, 0, len(g.Instructions)),
		}
		for _, ix := range g.Instructions {
			group.Instructions = append(group.Instructions, core.InnerInstruction{
				ProgramIndex:   uint16(ix.ProgramIdIndex),
				Data:           ix.Data,
				AccountIndices: bytesToIndices(ix.Accounts),
			})
		}
		ctx.InnerGroups = append(ctx.InnerGroups, group)
	}

	ctx.PreTokenBalances = convertGeyserBalances(tx.Meta.PreTokenBalances)
	ctx.PostTokenBalances = convertGeyserBalances(tx.Meta.PostTokenBalances)
	return ctx, nil
}

// NormalizeGeyserAccount 将 Geyser gRPC 推送的账户更新转换为 NormalizedContext
func NormalizeGeyserAccount(slot uint64, acc *pb.SubscribeUpdateAccountInfo) (*core.NormalizedContext, error) {
	if acc == nil {
		return nil, fmt.Errorf("invalid account update: nil info")
	}
	address, ok := types.PubkeyFromBytes(acc.Pubkey)
	if !ok {
		return nil, fmt.Errorf("invalid account pubkey: len=%d", len(acc.Pubkey))
	}
	owner, ok := types.PubkeyFromBytes(acc.Owner)
	if !ok {
		return nil, fmt.Errorf("invalid account owner: len=%d", len(acc.Owner))
	}
	return &core.NormalizedContext{
		Slot: slot,
		Account: &core.AccountSnapshot{
			Address:  address,
			Owner:    owner,
			Lamports: acc.Lamports,
			Data:     acc.Data,
		},
	}, nil
}

// buildFullAccountKeys 将 message.accountKeys 与 Address Lookup Table 中的
// writable / readonly 地址顺序拼接为一个 []Pubkey 切片。
// 预计算总长度一次性分配，单一索引顺序写入。
func buildFullAccountKeys(accountKeys, loadedWritable, loadedReadonly [][]byte) ([]types.Pubkey, error) {
	total := len(accountKeys) + len(loadedWritable) + len(loadedReadonly)
	pubkeys := make([]types.Pubkey, total)

	i := 0
	for _, group := range [][][]byte{accountKeys, loadedWritable, loadedReadonly} {
		for _, b := range group {
			if len(b) != 32 {
				return nil, fmt.Errorf("invalid pubkey at index %d: len=%d", i, len(b))
			}
			copy(pubkeys[i][:], b)
			i++
		}
	}
	return pubkeys, nil
}

func bytesToIndices(accounts []byte) []uint16 {
	out := make([]uint16, len(accounts))
	for i, idx := range accounts {
		out[i] = uint16(idx)
	}
	return out
}

// convertGeyserBalances 转换余额快照，仅保留标准 SPL Token
// （TokenProgram / Token-2022）账户，跳过非标准模拟账户
func convertGeyserBalances(raw []*pb.TokenBalance) []core.TokenBalanceSnapshot {
	if len(raw) == 0 {
		return nil
	}
	out := make([]core.TokenBalanceSnapshot, 0, len(raw))
	for _, b := range raw {
		if b == nil || b.UiTokenAmount == nil {
			continue
		}
		if b.ProgramId != consts.TokenProgramStr && b.ProgramId != consts.TokenProgram2022Str {
			continue
		}
		mint, err := types.TryPubkeyFromBase58(b.Mint)
		if err != nil {
			continue
		}
		owner, err := types.TryPubkeyFromBase58(b.Owner)
		if err != nil {
			continue
		}
		amount, _ := strconv.ParseUint(b.UiTokenAmount.Amount, 10, 64)
		out = append(out, core.TokenBalanceSnapshot{
			AccountIndex: uint16(b.AccountIndex),
			Mint:         mint,
			Owner:        owner,
			Amount:       amount,
			Decimals:     uint8(b.UiTokenAmount.Decimals),
		})
	}
	return out
}
