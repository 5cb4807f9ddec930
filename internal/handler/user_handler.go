package handler

import (
	"errors"

	"social-system/internal/model"
	"social-system/internal/service"
	"social-system/pkg/apperr"
	"social-system/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	service *service.UserService
}

func NewUserHandler(s *service.UserService) *UserHandler {
	return &UserHandler{service: s}
}

// userInfo 对外展示的账号信息，不包含密码哈希
func userInfo(u *model.User) gin.H {
	return gin.H{
		"id":         u.ID,
		"username":   u.Username,
		"email":      u.Email,
		"bio":        u.Bio,
		"photo_url":  u.PhotoURL,
		"is_private": u.IsPrivate,
		"created_at": u.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// Register 用户注册
func (h *UserHandler) Register(c *gin.Context) {
	type req struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email"`
		Password string `json:"password" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, token, err := h.service.Register(c.Request.Context(), r.Username, r.Email, r.Password)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "注册成功", gin.H{
		"user":         userInfo(user),
		"access_token": token,
	})
}

// Login 用户登录
func (h *UserHandler) Login(c *gin.Context) {
	type req struct {
		UsernameOrEmail string `json:"usernameOrEmail" binding:"required"`
		Password        string `json:"password" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, token, err := h.service.Login(c.Request.Context(), r.UsernameOrEmail, r.Password)
	if errors.Is(err, apperr.ErrInvalidCredentials) {
		response.Unauthorized(c, err.Error())
		return
	}
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "登录成功", gin.H{
		"user":         userInfo(user),
		"access_token": token,
	})
}

// Me 当前登录用户的资料
func (h *UserHandler) Me(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	profile, err := h.service.GetProfile(c.Request.Context(), uid, uid)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, profile)
}

// GetProfile 查看指定用户资料
func (h *UserHandler) GetProfile(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	target, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	profile, err := h.service.GetProfile(c.Request.Context(), uid, target)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, profile)
}

// UpdateProfile 修改个人资料
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	var in service.UpdateProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, err := h.service.UpdateProfile(c.Request.Context(), uid, in)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "资料已更新", userInfo(user))
}

// Block 拉黑用户
func (h *UserHandler) Block(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	target, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	if err := h.service.BlockUser(c.Request.Context(), uid, target); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已拉黑", nil)
}

// Unblock 取消拉黑
func (h *UserHandler) Unblock(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	target, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	if err := h.service.UnblockUser(c.Request.Context(), uid, target); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已取消拉黑", nil)
}

// ListBlocked 我的黑名单
func (h *UserHandler) ListBlocked(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	users, err := h.service.ListBlocked(c.Request.Context(), uid)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"users": users})
}
