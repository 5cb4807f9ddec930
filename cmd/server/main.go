package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social-system/config"
	"social-system/internal/graph"
	"social-system/internal/handler"
	"social-system/internal/model"
	"social-system/internal/notify"
	"social-system/internal/repository"
	"social-system/internal/service"
	dbPkg "social-system/pkg/db"
	"social-system/pkg/jwt"
	"social-system/pkg/logger"
	"social-system/pkg/redis"
	"social-system/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg := config.LoadConfig()

	// 2. 初始化日志系统
	log := logger.InitLogger(cfg.Log)
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("配置校验失败", zap.Error(err))
	}

	log.Info("=== 社交系统启动 ===")
	log.Info("服务器配置信息",
		zap.String("port", cfg.Server.Port),
		zap.String("database_driver", cfg.Database.Driver),
		zap.String("database_host", cfg.Database.Host),
		zap.String("database_name", cfg.Database.Database),
		zap.String("graph_driver", cfg.Graph.Driver),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
		zap.Duration("jwt_expire_time", cfg.JWT.ExpireTime),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 初始化数据库连接
	db, err := dbPkg.InitDB(cfg.Database)
	if err != nil {
		log.Fatal("数据库连接失败", zap.Error(err))
	}
	defer func() {
		if err := dbPkg.CloseDB(); err != nil {
			log.Error("关闭数据库连接失败", zap.Error(err))
		}
	}()
	log.Info("数据库连接成功")

	// 3.1 自动迁移表结构
	if err := dbPkg.AutoMigrate(db, model.All()...); err != nil {
		log.Fatal("自动迁移失败", zap.Error(err))
	}
	log.Info("自动迁移完成")

	// 3.2 Redis（可选），连接失败时缓存与队列降级
	if cfg.Redis.Enabled {
		if err := redis.InitRedis(cfg.Redis); err != nil {
			log.Warn("Redis不可用，缓存与通知队列降级", zap.Error(err))
		} else {
			log.Info("Redis连接成功")
			defer redis.Close()
		}
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	store := repository.NewStore(db)

	// 4. 关系图存储：neo4j 不可用时退回关系库实现
	g := openGraph(ctx, cfg.Graph, store)
	defer func() {
		if err := g.Close(context.Background()); err != nil {
			log.Error("关闭图存储失败", zap.Error(err))
		}
	}()

	projector := graph.NewProjector(g, cfg.Graph)
	projector.Start()
	reconciler := graph.NewReconciler(store, g, projector)
	if cfg.Graph.RebuildOnBoot {
		if _, err := reconciler.Rebuild(ctx); err != nil {
			log.Error("启动时重建关系图失败", zap.Error(err))
		}
	}
	go reconciler.Run(ctx, cfg.Graph.ReconcileInterval)

	// 5. 通知：有 Redis 时走队列异步写库，否则直接写库
	storeSink := notify.NewStoreSink(store.Notifications)
	var sink notify.Sink = storeSink
	var dispatcher *notify.Dispatcher
	if redis.Enabled() {
		sink = notify.NewQueueSink(cfg.Notification.QueueKey, storeSink)
		dispatcher = notify.NewDispatcher(store.Notifications, cfg.Notification.QueueKey, cfg.Notification.Workers)
		dispatcher.Start(ctx)
	}
	janitor := notify.NewJanitor(store.Notifications, cfg.Notification.Retention, cfg.Notification.PurgeInterval)
	go janitor.Run(ctx)

	// 6. 初始化业务服务
	deps := service.Deps{Store: store, Projector: projector, Sink: sink, Limits: cfg.Feed}
	jwtSvc := jwt.NewJWTService(cfg.JWT)
	feedSvc := service.NewFeedService(deps)
	handlers := handler.Handlers{
		Users: handler.NewUserHandler(service.NewUserService(deps, jwtSvc)),
		Friends: handler.NewFriendshipHandler(
			service.NewFriendshipService(deps),
			service.NewSuggestionService(deps, g, cfg.Graph.QueryTimeout),
			cfg.Feed.DefaultLimit,
		),
		Communities:   handler.NewCommunityHandler(service.NewCommunityService(deps), feedSvc, cfg.Feed.DefaultLimit),
		Posts:         handler.NewPostHandler(service.NewPostService(deps), feedSvc, cfg.Feed.DefaultLimit),
		Notifications: handler.NewNotificationHandler(service.NewNotificationService(deps), cfg.Feed.DefaultLimit),
	}

	// 7. 设置Gin模式
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(logger.RequestLogger())         // 请求日志
	router.Use(logger.ErrorLoggerMiddleware()) // panic 恢复与错误日志

	setupBasicRoutes(router, g, projector)
	handler.RegisterRoutes(router.Group("/api/v1"), jwtSvc.AuthMiddleware(), handlers)

	// 8. 创建HTTP服务器
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP服务器启动", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP服务器启动失败", zap.Error(err))
		}
	}()

	// 9. 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP服务器关闭失败", zap.Error(err))
	}

	// 先停后台任务，再排空投影队列和未完成的通知写入
	stop()
	if dispatcher != nil {
		dispatcher.Stop()
	}
	projector.Stop()
	storeSink.Wait()

	log.Info("服务器已安全关闭")
}

// openGraph 按配置选择图存储
func openGraph(ctx context.Context, cfg config.GraphConfig, store *repository.Store) graph.Graph {
	if cfg.Driver == "neo4j" {
		g, err := graph.NewNeo4jGraph(ctx, cfg)
		if err == nil {
			return g
		}
		logger.Warn("neo4j不可用，好友推荐改用关系库查询", zap.Error(err))
	}
	return graph.NewRelationalGraph(store)
}

// setupBasicRoutes 设置基础路由
func setupBasicRoutes(router *gin.Engine, g graph.Graph, projector *graph.Projector) {
	// 健康检查
	// 完整url为：http://localhost:8080/health
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := "ok"
		dbStatus := "up"
		if err := dbPkg.HealthCheck(ctx); err != nil {
			status = "db-down"
			dbStatus = err.Error()
		}
		redisStatus := "disabled"
		if redis.Enabled() {
			redisStatus = "up"
			if err := redis.HealthCheck(); err != nil {
				redisStatus = err.Error()
			}
		}

		response.Success(c, gin.H{
			"status": status,
			"db":     dbStatus,
			"redis":  redisStatus,
			"graph": gin.H{
				"driver":   g.Name(),
				"dirty":    projector.Dirty(),
				"applied":  projector.Applied(),
				"failures": projector.Failures(),
			},
			"time": time.Now().Format(time.RFC3339),
		})
	})

	// 根路径
	router.GET("/", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "欢迎使用社交系统",
			"version": "1.0.0",
		})
	})
}
