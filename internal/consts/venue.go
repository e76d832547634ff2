package consts

// 交易场所编号（事件中的 venue 字段）
const (
	VenuePumpfun    = iota + 1 // 1：Bonding Curve 阶段
	VenuePumpfunAMM            // 2：毕业后的 AMM 池子
)

var venueNames = []string{
	"Unknown",    // 0 (保留)
	"Pumpfun",    // 1
	"PumpfunAMM", // 2
}

func VenueName(venue int) string {
	if venue >= 1 && venue < len(venueNames) {
		return venueNames[venue]
	}
	return venueNames[0] // Unknown
}
