package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
// 属于良性持久化竞争，调用方可有限次退避重试
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")
