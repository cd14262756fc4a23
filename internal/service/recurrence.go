package service

import (
	"errors"
	"time"

	"github.com/drilonhametaj25/insegnami-sub002/internal/model"
)

// ── 重复规则展开业务错误 ──

var (
	ErrInvalidWindow    = errors.New("课节结束时间必须晚于开始时间")
	ErrInvalidFrequency = errors.New("不支持的重复频率")
	ErrInvalidWeekday   = errors.New("星期取值必须在 1-7 之间")
	ErrNoOccurrences    = errors.New("重复规则未产生任何课节")
)

// TimeWindow 一个候选课节的时间窗口，半开区间 [Start, End)
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// RecurrenceRule 归一化后的重复规则
type RecurrenceRule struct {
	Frequency      string // weekly | monthly
	Interval       int    // >= 1
	Weekdays       []int  // 1=周一 … 7=周日；空集表示不限定星期
	EndDate        *time.Time
	MaxOccurrences *int
}

// isoWeekday 返回 ISO 星期编号：1=周一 … 7=周日
func isoWeekday(t time.Time) int {
	return (int(t.Weekday())+6)%7 + 1
}

// ExpandRecurrence 将模板窗口 + 重复规则展开为有限的课节窗口序列。
//
// 纯函数：不访问存储，输出按开始时间升序。每个窗口保持模板时长。
// 推进步长由频率决定：weekly 为 7×interval 天，monthly 为 interval 个月
// （按日历月推进，月末日期溢出时顺延到下月，属已接受的日历语义）。
// 给定星期集合时逐日推进，仅在命中集合的日期产出，且以每个 7 天跨度
// 为一个节拍参与 interval 的跳周计算。
//
// 终止条件取最先到达者：endDate（含当日）、maxOccurrences、硬上限 hardCap。
// 硬上限无条件生效，防止规则在数学上无限展开。
// 展开结果为空序列时返回 ErrNoOccurrences，调用方必须在落库前拒绝。
func ExpandRecurrence(start, end time.Time, rule RecurrenceRule, hardCap int) ([]TimeWindow, error) {
	if !end.After(start) {
		return nil, ErrInvalidWindow
	}
	for _, wd := range rule.Weekdays {
		if wd < 1 || wd > 7 {
			return nil, ErrInvalidWeekday
		}
	}

	interval := rule.Interval
	if interval < 1 {
		interval = 1
	}

	// 有效上限 = min(maxOccurrences, 硬上限)
	limit := hardCap
	if rule.MaxOccurrences != nil && *rule.MaxOccurrences < limit {
		limit = *rule.MaxOccurrences
	}
	if limit <= 0 {
		return nil, ErrNoOccurrences
	}

	duration := end.Sub(start)
	var windows []TimeWindow

	switch rule.Frequency {
	case model.FrequencyWeekly:
		if len(rule.Weekdays) > 0 {
			windows = expandWeeklyByWeekdays(start, duration, rule, interval, limit)
		} else {
			windows = expandByStep(start, duration, rule.EndDate, limit, func(k int) time.Time {
				return start.AddDate(0, 0, k*7*interval)
			})
		}
	case model.FrequencyMonthly:
		windows = expandByStep(start, duration, rule.EndDate, limit, func(k int) time.Time {
			return start.AddDate(0, k*interval, 0)
		})
	default:
		return nil, ErrInvalidFrequency
	}

	if len(windows) == 0 {
		return nil, ErrNoOccurrences
	}
	return windows, nil
}

// expandByStep 按固定步长展开：第 k 个窗口的开始时间由 step(k) 给出
func expandByStep(start time.Time, duration time.Duration, endDate *time.Time, limit int, step func(k int) time.Time) []TimeWindow {
	var windows []TimeWindow
	for k := 0; len(windows) < limit; k++ {
		s := step(k)
		if endDate != nil && afterEndDate(s, *endDate) {
			break
		}
		windows = append(windows, TimeWindow{Start: s, End: s.Add(duration)})
	}
	return windows
}

// expandWeeklyByWeekdays 逐日推进的周频展开。
// 自首课日起第 i 天落在第 i/7 个星期跨度内；跨度序号整除 interval 的
// 星期为活跃周，活跃周内命中星期集合的日期产出窗口。
func expandWeeklyByWeekdays(start time.Time, duration time.Duration, rule RecurrenceRule, interval, limit int) []TimeWindow {
	var windows []TimeWindow
	// 每个活跃周至少产出一个窗口，日游标不会超过 limit 个完整周期
	maxDays := limit*7*interval + 7
	for i := 0; i < maxDays && len(windows) < limit; i++ {
		day := start.AddDate(0, 0, i)
		if rule.EndDate != nil && afterEndDate(day, *rule.EndDate) {
			break
		}
		if (i/7)%interval != 0 {
			continue
		}
		if !containsWeekday(rule.Weekdays, isoWeekday(day)) {
			continue
		}
		windows = append(windows, TimeWindow{Start: day, End: day.Add(duration)})
	}
	return windows
}

// afterEndDate 判断窗口开始时间是否越过结束日期（按日比较，endDate 当日仍产出）
func afterEndDate(start, endDate time.Time) bool {
	y1, m1, d1 := start.Date()
	y2, m2, d2 := endDate.Date()
	if y1 != y2 {
		return y1 > y2
	}
	if m1 != m2 {
		return m1 > m2
	}
	return d1 > d2
}

func containsWeekday(set []int, wd int) bool {
	for _, v := range set {
		if v == wd {
			return true
		}
	}
	return false
}
