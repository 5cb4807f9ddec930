package service

import (
	"context"
	"errors"
	"strings"

	"social-system/internal/model"
	"social-system/internal/repository"
	"social-system/pkg/apperr"
	"social-system/pkg/jwt"
	"social-system/pkg/logger"
	"social-system/pkg/password"

	"go.uber.org/zap"
)

// UserService 注册登录、资料与拉黑
type UserService struct {
	Deps
	jwtService *jwt.JWTService
}

// NewUserService 创建用户服务
func NewUserService(d Deps, jwtService *jwt.JWTService) *UserService {
	return &UserService{Deps: d, jwtService: jwtService}
}

// Profile 资料页
type Profile struct {
	ID           uint             `json:"id"`
	Username     string           `json:"username"`
	Bio          string           `json:"bio"`
	PhotoURL     string           `json:"photo_url"`
	IsPrivate    bool             `json:"is_private"`
	PostCount    int64            `json:"post_count"`
	FriendCount  int64            `json:"friend_count"`
	IsSelf       bool             `json:"is_self"`
	Relationship FriendshipStatus `json:"relationship"`
}

// UpdateProfileInput 更新资料参数，nil 字段保持不变
type UpdateProfileInput struct {
	Username  *string `json:"username"`
	Bio       *string `json:"bio"`
	PhotoURL  *string `json:"photo_url"`
	IsPrivate *bool   `json:"is_private"`
}

// Register 注册
func (s *UserService) Register(ctx context.Context, username, email, plainPassword string) (*model.User, string, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || plainPassword == "" {
		return nil, "", apperr.ErrInvalidArgument.Withf("username and password are required")
	}

	exists, err := s.Store.Users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, "", err
	}
	if exists {
		return nil, "", apperr.ErrUserExists
	}

	// 密码哈希
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return nil, "", err
	}
	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.Store.Users.Create(ctx, user); err != nil {
		if isDuplicate(err) {
			return nil, "", apperr.ErrUserExists
		}
		return nil, "", err
	}
	s.Projector.UpsertUser(user.ID, user.Username)

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	logger.Info("用户注册成功", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	return user, token, nil
}

// Login 登录，用户名或邮箱均可
func (s *UserService) Login(ctx context.Context, identifier, plainPassword string) (*model.User, string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || plainPassword == "" {
		return nil, "", apperr.ErrInvalidArgument.Withf("identifier and password are required")
	}
	u, err := s.Store.Users.GetByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, apperr.ErrUserNotFound) {
			return nil, "", apperr.ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !password.Verify(plainPassword, u.PasswordHash) {
		return nil, "", apperr.ErrInvalidCredentials
	}
	token, err := s.issueToken(u)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// issueToken 签发访问令牌，未配置 JWT 时返回空串
func (s *UserService) issueToken(u *model.User) (string, error) {
	if s.jwtService == nil {
		return "", nil
	}
	return s.jwtService.GenerateToken(u.ID, u.Username)
}

// GetProfile 资料页；任一方拉黑对方时视为用户不存在
func (s *UserService) GetProfile(ctx context.Context, viewerID, targetID uint) (*Profile, error) {
	u, err := s.Store.Users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	profile := &Profile{
		ID:        u.ID,
		Username:  u.Username,
		Bio:       u.Bio,
		PhotoURL:  u.PhotoURL,
		IsPrivate: u.IsPrivate,
		IsSelf:    viewerID == targetID,
	}
	if !profile.IsSelf {
		blocked, err := s.Store.Blocks.EitherBlocked(ctx, viewerID, targetID)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, apperr.ErrUserNotFound.Withf("id=%d", targetID)
		}
	}

	if profile.PostCount, err = s.Store.Posts.CountByAuthor(ctx, targetID); err != nil {
		return nil, err
	}
	if profile.FriendCount, err = s.Store.Requests.CountFriends(ctx, targetID); err != nil {
		return nil, err
	}
	if profile.Relationship, err = friendshipStatus(ctx, s.Store, viewerID, targetID); err != nil {
		return nil, err
	}
	return profile, nil
}

// UpdateProfile 更新资料；用户名变更同步到图节点
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*model.User, error) {
	fields := map[string]interface{}{}
	if in.Username != nil {
		name := strings.TrimSpace(*in.Username)
		if name == "" {
			return nil, apperr.ErrInvalidArgument.Withf("username is required")
		}
		fields["username"] = name
	}
	if in.Bio != nil {
		fields["bio"] = *in.Bio
	}
	if in.PhotoURL != nil {
		fields["photo_url"] = *in.PhotoURL
	}
	if in.IsPrivate != nil {
		fields["is_private"] = *in.IsPrivate
	}

	if len(fields) > 0 {
		if err := s.Store.Users.UpdateProfile(ctx, userID, fields); err != nil {
			if isDuplicate(err) {
				return nil, apperr.ErrUserExists
			}
			return nil, err
		}
	}
	u, err := s.Store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Username != nil {
		s.Projector.UpsertUser(u.ID, u.Username)
	}
	return u, nil
}

// BlockUser 拉黑；同时删除两人之间的好友请求或好友关系
func (s *UserService) BlockUser(ctx context.Context, blockerID, blockedID uint) error {
	if blockerID == blockedID {
		return apperr.ErrSelfBlock
	}

	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Users.GetByID(ctx, blockedID); err != nil {
			return err
		}
		exists, err := tx.Blocks.Exists(ctx, blockerID, blockedID)
		if err != nil {
			return err
		}
		if exists {
			return apperr.ErrAlreadyBlocked
		}
		if err := tx.Blocks.Create(ctx, blockerID, blockedID); err != nil {
			if isDuplicate(err) {
				return apperr.ErrAlreadyBlocked
			}
			return err
		}

		record, err := tx.Requests.FindFriendRecord(ctx, blockerID, blockedID)
		if err != nil || record == nil {
			return err
		}
		return tx.Requests.DeleteByID(ctx, record.ID)
	})
	if err != nil {
		return err
	}

	s.Projector.Blocked(blockerID, blockedID)
	logger.Info("用户已拉黑", zap.Uint("blocker", blockerID), zap.Uint("blocked", blockedID))
	return nil
}

// UnblockUser 取消拉黑
func (s *UserService) UnblockUser(ctx context.Context, blockerID, blockedID uint) error {
	ok, err := s.Store.Blocks.Delete(ctx, blockerID, blockedID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrNotBlocked
	}
	s.Projector.Unblocked(blockerID, blockedID)
	return nil
}

// ListBlocked 我拉黑的用户
func (s *UserService) ListBlocked(ctx context.Context, userID uint) ([]model.UserSummary, error) {
	ids, err := s.Store.Blocks.ListBlocked(ctx, userID)
	if err != nil {
		return nil, err
	}
	return summaries(ctx, s.Store, ids)
}
