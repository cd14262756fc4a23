package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/drilonhametaj25/insegnami-sub002/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// parseTimeRange 解析 from/to 查询参数（RFC3339），缺省取当前月
func parseTimeRange(c *gin.Context) (time.Time, time.Time, bool) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.BadRequest(c, 10001, "from 时间格式无效")
			return from, to, false
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.BadRequest(c, 10001, "to 时间格式无效")
			return from, to, false
		}
		to = parsed
	}
	if !to.After(from) {
		response.BadRequest(c, 10001, "to 必须晚于 from")
		return from, to, false
	}
	return from, to, true
}
