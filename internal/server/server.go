package server

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"reelist.io/reelist/internal/config"
	"reelist.io/reelist/internal/handler"
	"reelist.io/reelist/internal/middleware"
	"reelist.io/reelist/internal/model"
	"reelist.io/reelist/internal/repository"
	"reelist.io/reelist/internal/service"
	"reelist.io/reelist/pkg/storage"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
	cron        *cron.Cron
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	repos := repository.NewRegistry(db)
	txManager := repository.NewTxManager(db)

	imageStorage, err := storage.NewCloudinaryStorage(
		cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryUploadFolder)
	if err != nil {
		log.Fatalf("failed to initialize cloudinary storage: %v", err)
	}

	// Initialize Meilisearch
	meiliHost := cfg.MeiliSearchHost
	if !strings.HasPrefix(meiliHost, "http") {
		meiliHost = "http://" + meiliHost + ":7700"
	}
	meiliClient := meilisearch.New(meiliHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))

	searchSvc := service.NewSearchService(meiliClient)
	rankCache := service.NewRedisRankCache(redisClient)
	recommender := service.NewItemRecommender(repos, redisClient)

	mailSvc := service.NewMailService(redisClient, service.NewSMTPMailer())
	if redisClient != nil {
		go mailSvc.StartWorker(context.Background())
	}

	authSvc := service.NewAuthService(repos.Users, mailSvc)
	authHandler := handler.NewAuthHandler(authSvc)

	notificationSvc := service.NewNotificationService(repos.Notifications, redisClient)
	notificationHandler := handler.NewNotificationHandler(notificationSvc, redisClient)

	ratingSvc := service.NewRatingService(txManager, repos, notificationSvc, rankCache)
	ratingHandler := handler.NewRatingHandler(ratingSvc, repos.Users, redisClient, cfg.RateLimitRating)

	followSvc := service.NewFollowService(txManager, repos, notificationSvc)

	profileSvc := service.NewProfileService(repos.Users, imageStorage)
	profileHandler := handler.NewProfileHandler(profileSvc, followSvc, ratingSvc)

	movieSvc := service.NewMovieService(txManager, repos, searchSvc, rankCache, recommender, imageStorage)
	movieHandler := handler.NewMovieHandler(movieSvc, ratingSvc)

	celebritySvc := service.NewCelebrityService(repos.Celebrities, searchSvc, imageStorage)
	celebrityHandler := handler.NewCelebrityHandler(celebritySvc)

	// Precompute the trending union keys so the first rank read of the day is
	// not the one paying for the ZUNIONSTORE.
	c := cron.New()
	if redisClient != nil {
		if _, err := c.AddFunc("@every 5m", func() {
			rankCache.RebuildTrendingKeys(context.Background())
		}); err != nil {
			log.Printf("failed to schedule trending rebuild: %v", err)
		}
	}
	if _, err := c.AddFunc("@every 30m", func() {
		if err := recommender.Rebuild(context.Background()); err != nil {
			log.Printf("failed to rebuild similarity matrix: %v", err)
		}
	}); err != nil {
		log.Printf("failed to schedule similarity rebuild: %v", err)
	}
	c.Start()
	go func() {
		if err := recommender.Rebuild(context.Background()); err != nil {
			log.Printf("initial similarity rebuild failed: %v", err)
		}
	}()

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	authMiddleware := middleware.NewAuthMiddleware(authSvc, repos.Users)

	api := router.Group("/api/v1")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.GET("/confirm", authHandler.ConfirmEmail)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)
	}

	api.GET("/movies", movieHandler.List)
	api.GET("/movies/coming", movieHandler.Coming)
	api.GET("/movies/showing", movieHandler.Showing)
	api.GET("/movies/trending", movieHandler.Trending)
	api.GET("/movies/top", movieHandler.TopRated)
	api.GET("/movies/search", movieHandler.Search)
	api.GET("/movies/:id", movieHandler.Get)
	api.GET("/movies/:id/ratings", movieHandler.GetMovieRatings)

	api.GET("/celebrities", celebrityHandler.List)
	api.GET("/celebrities/search", celebrityHandler.Search)
	api.GET("/celebrities/:id", celebrityHandler.Get)

	api.GET("/users/:id", profileHandler.GetUser)
	api.GET("/users/:id/ratings", profileHandler.GetUserRatings)
	api.GET("/users/:id/followers", profileHandler.Followers)
	api.GET("/users/:id/followings", profileHandler.Followings)

	// Protected routes
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.GET("/me", profileHandler.Me)
		protected.PUT("/me", profileHandler.UpdateMe)

		protected.GET("/movies/recommend", movieHandler.Recommend)

		protected.POST("/users/:id/follow", authMiddleware.RequirePermission(model.PermFollow), profileHandler.Follow)
		protected.DELETE("/users/:id/follow", profileHandler.Unfollow)
		protected.GET("/users/:id/follow", profileHandler.IsFollowing)

		protected.PUT("/movies/:id/rating", authMiddleware.RequirePermission(model.PermCollect), ratingHandler.Rate)
		protected.DELETE("/movies/:id/rating", ratingHandler.DeleteMine)

		protected.POST("/ratings/:id/like", authMiddleware.RequirePermission(model.PermComment), ratingHandler.Like)
		protected.DELETE("/ratings/:id/like", ratingHandler.Unlike)
		protected.POST("/ratings/:id/report", authMiddleware.RequirePermission(model.PermComment), ratingHandler.Report)
		protected.DELETE("/ratings/:id", ratingHandler.Delete)

		protected.GET("/notifications", notificationHandler.List)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllRead)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)

		// Catalog management
		upload := protected.Group("", authMiddleware.RequirePermission(model.PermUpload))
		{
			upload.POST("/movies", movieHandler.Create)
			upload.PUT("/movies/:id", movieHandler.Update)
			upload.POST("/movies/:id/poster", movieHandler.UploadPoster)
			upload.POST("/celebrities", celebrityHandler.Create)
			upload.PUT("/celebrities/:id", celebrityHandler.Update)
			upload.POST("/celebrities/:id/avatar", celebrityHandler.UploadAvatar)
		}

		// Moderation
		mod := protected.Group("", authMiddleware.RequirePermission(model.PermModerate))
		{
			mod.DELETE("/movies/:id", movieHandler.Delete)
			mod.DELETE("/celebrities/:id", celebrityHandler.Delete)
			mod.GET("/ratings/reported", ratingHandler.ListReported)
			mod.POST("/users/:id/lock", profileHandler.LockUser)
			mod.POST("/users/:id/unlock", profileHandler.UnlockUser)
		}
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
		cron:        c,
	}
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	} else {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
