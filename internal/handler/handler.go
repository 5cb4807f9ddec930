package handler

import (
	"strconv"

	"social-system/pkg/jwt"
	"social-system/pkg/response"

	"github.com/gin-gonic/gin"
)

// viewerID 取当前登录用户ID，失败时直接写入401响应
func viewerID(c *gin.Context) (uint, bool) {
	id, ok := jwt.GetViewerID(c)
	if !ok {
		response.Unauthorized(c, "用户未认证")
		return 0, false
	}
	return id, true
}

// paramID 解析路径中的数字ID，失败时写入400响应
func paramID(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// pageParams 读取分页参数，非数字时回落到默认值；limit 的合法性由服务层校验
func pageParams(c *gin.Context, defaultLimit int) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil {
		limit = defaultLimit
	}
	return page, limit
}
