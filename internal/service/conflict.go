package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/drilonhametaj25/insegnami-sub002/internal/model"
)

// ErrSeriesSelfOverlap 规则展开出的批内窗口互相重叠（如时长超过推进步长）
var ErrSeriesSelfOverlap = errors.New("重复规则产生互相重叠的课节")

// ConflictError 教师时间冲突错误，携带全部相撞的课节 ID
type ConflictError struct {
	TeacherID    string
	CollidingIDs []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("教师时间冲突: 与课节 [%s] 重叠", strings.Join(e.CollidingIDs, ", "))
}

// overlaps 半开区间重叠判定：[aStart, aEnd) 与 [bStart, bEnd) 重叠
// 当且仅当 aStart < bEnd && aEnd > bStart；首尾相接不算重叠
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// DetectConflict 检查候选窗口是否与教师既有课节相撞。
//
// 纯函数：扫描传入的全部课节（不限同一天），收集所有相撞的课节 ID。
// excludeID 用于原位编辑场景，排除课节与自身旧窗口的比较。
// 已取消课节不占用教师时间。无冲突返回 nil。
func DetectConflict(candStart, candEnd time.Time, teacherID string, existing []model.LessonOccurrence, excludeID string) error {
	var colliding []string
	for i := range existing {
		occ := &existing[i]
		if occ.OccurrenceID == excludeID {
			continue
		}
		if occ.Status == model.OccurrenceStatusCancelled {
			continue
		}
		if overlaps(candStart, candEnd, occ.StartsAt, occ.EndsAt) {
			colliding = append(colliding, occ.OccurrenceID)
		}
	}
	if len(colliding) > 0 {
		return &ConflictError{TeacherID: teacherID, CollidingIDs: colliding}
	}
	return nil
}

// DetectSeriesConflict 批量版本：整批候选窗口逐一过检，任一相撞即整批拒绝。
// 除与既有课节比较外，批内窗口之间也互相比较（规则时长超过步长时会自撞）。
func DetectSeriesConflict(windows []TimeWindow, teacherID string, existing []model.LessonOccurrence) error {
	for i, w := range windows {
		if err := DetectConflict(w.Start, w.End, teacherID, existing, ""); err != nil {
			return err
		}
		for j := 0; j < i; j++ {
			if overlaps(w.Start, w.End, windows[j].Start, windows[j].End) {
				return ErrSeriesSelfOverlap
			}
		}
	}
	return nil
}
