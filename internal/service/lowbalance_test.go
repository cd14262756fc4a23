package service

import "testing"

func TestLowBalanceMonitor_IsLow(t *testing.T) {
	monitor := NewLowBalanceMonitor(0.20)

	cases := []struct {
		name      string
		remaining float64
		total     float64
		want      bool
	}{
		{"恰好阈值边界", 2, 10, true},
		{"低于阈值", 1, 10, true},
		{"高于阈值", 3, 10, false},
		{"余额耗尽不算低位", 0, 10, false},
		{"满额", 10, 10, false},
		{"小数余额低位", 0.5, 10, true},
		{"总量为零", 0, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := monitor.IsLow(tc.remaining, tc.total); got != tc.want {
				t.Errorf("IsLow(%v, %v): 期望 %v，实际=%v", tc.remaining, tc.total, tc.want, got)
			}
		})
	}
}

func TestLowBalanceMonitor_LevelTriggered(t *testing.T) {
	// 电平触发：余额持续处于低位时每次判定都为真，不做一次性去重
	monitor := NewLowBalanceMonitor(0.20)

	for i := 0; i < 3; i++ {
		if !monitor.IsLow(1.5, 10) {
			t.Fatalf("第 %d 次判定应仍为低位", i+1)
		}
	}
}
