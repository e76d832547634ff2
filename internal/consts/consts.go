package consts

import "runtime"

const (
	// LamportsPerSOL 原生 SOL 的最小单位换算（1 SOL = 1e9 lamports）
	LamportsPerSOL uint64 = 1_000_000_000

	// SOLDecimals 原生 SOL 精度
	SOLDecimals uint8 = 9
)

// CpuCount 表示逻辑 CPU 核心数，用于控制并发任务调度上限
var CpuCount = runtime.NumCPU()
