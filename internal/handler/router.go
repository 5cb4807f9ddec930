package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers 所有业务路由处理器
type Handlers struct {
	Users         *UserHandler
	Friends       *FriendshipHandler
	Communities   *CommunityHandler
	Posts         *PostHandler
	Notifications *NotificationHandler
}

// RegisterRoutes 在 /api/v1 下绑定业务路由，auth 为 JWT 认证中间件
func RegisterRoutes(v1 *gin.RouterGroup, auth gin.HandlerFunc, h Handlers) {
	users := v1.Group("/users")
	{
		// 公开接口（无需认证）
		users.POST("/register", h.Users.Register)
		users.POST("/login", h.Users.Login)

		authUsers := users.Group("")
		authUsers.Use(auth)
		{
			authUsers.GET("/me", h.Users.Me)
			authUsers.PUT("/me", h.Users.UpdateProfile)
			authUsers.GET("/me/blocked", h.Users.ListBlocked)
			authUsers.GET("/:user_id", h.Users.GetProfile)
			authUsers.GET("/:user_id/posts", h.Posts.UserPosts)
			authUsers.POST("/:user_id/block", h.Users.Block)
			authUsers.DELETE("/:user_id/block", h.Users.Unblock)
		}
	}

	friends := v1.Group("/friends")
	friends.Use(auth)
	{
		friends.GET("", h.Friends.List)
		friends.GET("/suggestions", h.Friends.Suggestions)
		friends.GET("/requests/incoming", h.Friends.Incoming)
		friends.GET("/requests/sent", h.Friends.Sent)
		friends.POST("/requests/:request_id/accept", h.Friends.Accept)
		friends.POST("/requests/:request_id/reject", h.Friends.Reject)
		friends.DELETE("/requests/:request_id", h.Friends.Cancel)
		friends.POST("/:user_id/request", h.Friends.SendRequest)
		friends.GET("/:user_id/status", h.Friends.Status)
		friends.GET("/:user_id/mutual", h.Friends.Mutual)
		friends.DELETE("/:user_id", h.Friends.Remove)
	}

	communities := v1.Group("/communities")
	communities.Use(auth)
	{
		communities.POST("", h.Communities.Create)
		communities.GET("", h.Communities.List)
		communities.GET("/mine", h.Communities.Mine)
		communities.GET("/invites", h.Communities.Invites)
		communities.POST("/invites/:request_id/accept", h.Communities.AcceptInvite)
		communities.POST("/invites/:request_id/decline", h.Communities.DeclineInvite)

		communities.GET("/:community_id", h.Communities.Get)
		communities.PUT("/:community_id", h.Communities.Update)
		communities.DELETE("/:community_id", h.Communities.Delete)
		communities.PUT("/:community_id/privacy", h.Communities.SetPrivacy)
		communities.GET("/:community_id/members", h.Communities.Members)
		communities.GET("/:community_id/posts", h.Communities.Posts)
		communities.POST("/:community_id/join", h.Communities.Join)
		communities.POST("/:community_id/request", h.Communities.RequestJoin)
		communities.POST("/:community_id/leave", h.Communities.Leave)
		communities.GET("/:community_id/requests", h.Communities.PendingRequests)
		communities.POST("/:community_id/requests/:user_id/accept", h.Communities.AcceptRequest)
		communities.POST("/:community_id/requests/:user_id/reject", h.Communities.RejectRequest)
		communities.POST("/:community_id/admins/:user_id", h.Communities.Promote)
		communities.DELETE("/:community_id/admins/:user_id", h.Communities.Demote)
		communities.DELETE("/:community_id/members/:user_id", h.Communities.RemoveMember)
		communities.POST("/:community_id/transfer/:user_id", h.Communities.Transfer)
		communities.POST("/:community_id/invites/:user_id", h.Communities.Invite)
	}

	posts := v1.Group("/posts")
	posts.Use(auth)
	{
		posts.POST("", h.Posts.Create)
		posts.GET("/:post_id", h.Posts.Get)
		posts.PUT("/:post_id", h.Posts.Update)
		posts.DELETE("/:post_id", h.Posts.Delete)
		posts.POST("/:post_id/like", h.Posts.Like)
		posts.POST("/:post_id/dislike", h.Posts.Dislike)
	}

	v1.GET("/feed", auth, h.Posts.Feed)

	notifications := v1.Group("/notifications")
	notifications.Use(auth)
	{
		notifications.GET("", h.Notifications.List)
		notifications.GET("/unread/count", h.Notifications.UnreadCount)
		notifications.PUT("/read", h.Notifications.MarkAllRead)
		notifications.PUT("/:notification_id/read", h.Notifications.MarkRead)
	}
}
