package service

// LowBalanceMonitor 低余额判定器。
//
// 电平触发：余额处于低位期间，每次扣减后都会再次判定为低并重新发事件，
// 而非仅在首次跌破阈值时发一次。去重（若需要）由下游消费方负责。
type LowBalanceMonitor struct {
	threshold float64
}

// NewLowBalanceMonitor 创建 LowBalanceMonitor，threshold 取值 (0,1)
func NewLowBalanceMonitor(threshold float64) *LowBalanceMonitor {
	return &LowBalanceMonitor{threshold: threshold}
}

// IsLow 判定余额是否处于低位。
// remaining/total <= threshold 且 remaining > 0；
// 余额为 0 视为耗尽而非低位（耗尽包已被停用，不再提醒充值）。
func (m *LowBalanceMonitor) IsLow(remaining, total float64) bool {
	if total <= 0 {
		return false
	}
	return remaining > 0 && remaining/total <= m.threshold
}
