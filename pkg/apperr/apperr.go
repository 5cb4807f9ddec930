package apperr

import (
	"errors"
	"fmt"
)

// Kind 错误分类，调用方据此决定响应码
type Kind string

const (
	KindNotFound        Kind = "not_found"        // 引用的实体不存在
	KindConflict        Kind = "conflict"         // 重复请求、已是成员、已拉黑等
	KindForbidden       Kind = "forbidden"        // 角色权限不足
	KindInvalidState    Kind = "invalid_state"    // 当前生命周期状态下不允许该操作
	KindSelfReferential Kind = "self_referential" // 对自己发起请求/拉黑
	KindInvalidArgument Kind = "invalid_argument" // 参数非法
)

// Error 业务错误
// Code 唯一标识一个守卫条件，用于区分"已是好友"和"请求待处理"等情况
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap 返回被包装的错误
func (e *Error) Unwrap() error {
	return e.Err
}

// Is 按 Code 比较，使带上下文的副本仍能匹配哨兵错误
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New 创建业务错误
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Withf 基于哨兵错误生成带上下文信息的副本
func (e *Error) Withf(format string, args ...interface{}) *Error {
	return &Error{
		Kind:    e.Kind,
		Code:    e.Code,
		Message: e.Message + ": " + fmt.Sprintf(format, args...),
		Err:     e.Err,
	}
}

// Wrap 基于哨兵错误包装底层错误
func (e *Error) Wrap(err error) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message, Err: err}
}

// KindOf 返回错误分类，非业务错误返回空串
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf 返回错误码，非业务错误返回空串
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// 实体不存在
var (
	ErrUserNotFound         = New(KindNotFound, "user_not_found", "user not found")
	ErrRequestNotFound      = New(KindNotFound, "request_not_found", "request not found")
	ErrCommunityNotFound    = New(KindNotFound, "community_not_found", "community not found")
	ErrPostNotFound         = New(KindNotFound, "post_not_found", "post not found")
	ErrNotificationNotFound = New(KindNotFound, "notification_not_found", "notification not found")
)

// 好友/请求状态机
var (
	ErrSelfRequest      = New(KindSelfReferential, "self_request", "cannot send a request to yourself")
	ErrAlreadyFriends   = New(KindConflict, "already_friends", "users are already friends")
	ErrDuplicatePending = New(KindConflict, "duplicate_pending", "a pending request already exists between these users")
	ErrBlocked          = New(KindForbidden, "blocked", "interaction blocked between these users")
	ErrNotAuthorized    = New(KindForbidden, "not_authorized", "not authorized to act on this request")
	ErrAlreadyProcessed = New(KindInvalidState, "already_processed", "request has already been processed")
	ErrNotFriends       = New(KindInvalidState, "not_friends", "users are not friends")
)

// 社区成员模型
var (
	ErrNameTaken              = New(KindConflict, "name_taken", "community name already taken")
	ErrPrivateCommunity       = New(KindInvalidState, "private_community", "community is private, send a join request instead")
	ErrPublicCommunity        = New(KindInvalidState, "public_community", "community is public, join it directly")
	ErrAlreadyMember          = New(KindConflict, "already_member", "user is already a member")
	ErrAlreadyPending         = New(KindConflict, "already_pending", "a join request is already pending")
	ErrNotMember              = New(KindInvalidState, "not_member", "user is not a member of this community")
	ErrCannotRemoveSuperAdmin = New(KindForbidden, "cannot_remove_super_admin", "the community owner cannot be removed")
	ErrNotSuperAdmin          = New(KindForbidden, "not_super_admin", "only the community owner can do this")
	ErrNotCommunityAdmin      = New(KindForbidden, "not_community_admin", "only community admins can do this")
	ErrInvalidTransferTarget  = New(KindInvalidState, "invalid_transfer_target", "new owner must already be a member or admin")
	ErrMembersOnly            = New(KindForbidden, "members_only", "content is visible to community members only")
)

// 拉黑
var (
	ErrSelfBlock      = New(KindSelfReferential, "self_block", "cannot block yourself")
	ErrAlreadyBlocked = New(KindConflict, "already_blocked", "user is already blocked")
	ErrNotBlocked     = New(KindInvalidState, "not_blocked", "user is not blocked")
)

// 用户与帖子
var (
	ErrUserExists         = New(KindConflict, "user_exists", "username or email already registered")
	ErrInvalidCredentials = New(KindForbidden, "invalid_credentials", "invalid credentials")
	ErrPrivateAccount     = New(KindForbidden, "private_account", "this account is private")
	ErrNotAuthor          = New(KindForbidden, "not_author", "only the author can do this")
)

// ErrInvalidArgument 参数非法
var ErrInvalidArgument = New(KindInvalidArgument, "invalid_argument", "invalid argument")
