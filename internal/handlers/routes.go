package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/nextolk/backend/internal/middleware"
)

// RouteOptions holds the middleware RegisterRoutes mounts. Only Auth is
// required.
type RouteOptions struct {
	Auth        gin.HandlerFunc
	AuthLimit   gin.HandlerFunc
	UploadLimit gin.HandlerFunc
}

func chain(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

// RegisterRoutes mounts the API under /api. Paths keep their trailing
// slashes.
func (h *Handlers) RegisterRoutes(r gin.IRouter, opts RouteOptions) {
	authed := opts.Auth

	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		// Accounts (public)
		public := api.Group("", chain(opts.AuthLimit)...)
		public.POST("/register/", h.Register)
		public.POST("/token/", h.Token)
		public.POST("/token/refresh/", h.RefreshToken)
		public.POST("/token/verify/", h.VerifyToken)
		public.POST("/request-otp/", h.RequestOTP)
		public.POST("/verify-otp/", h.VerifyOTP)

		protected := api.Group("", authed)

		profiles := protected.Group("/profiles")
		profiles.GET("/", h.ListProfiles)
		profiles.POST("/", h.CreateProfile)
		profiles.GET("/current_user/", h.GetCurrentUserProfile)
		profiles.GET("/:id/", h.GetProfile)
		profiles.PUT("/:id/", h.UpdateProfile)
		profiles.PATCH("/:id/", h.UpdateProfile)
		profiles.DELETE("/:id/", h.DeleteProfile)
		profiles.GET("/:id/is_followed_by/:current_user_id/", h.IsFollowedBy)

		videos := protected.Group("/videos")
		videos.GET("/", h.ListVideos)
		videos.POST("/", append(chain(opts.UploadLimit), h.UploadVideo)...)
		videos.GET("/following_feed/", middleware.ResponseCacheMiddleware(h.cache, feedCacheName, h.feedTTL), h.FollowingFeed)
		videos.GET("/:id/", h.GetVideo)
		videos.PUT("/:id/", h.UpdateVideo)
		videos.PATCH("/:id/", h.UpdateVideo)
		videos.DELETE("/:id/", h.DeleteVideo)
		videos.GET("/:id/status/", h.VideoStatus)
		videos.GET("/:id/check_like/", h.CheckLike)
		videos.POST("/:id/toggle_like/", h.ToggleLike)

		videos.GET("/:id/comments/", h.ListComments)
		videos.POST("/:id/comments/", h.CreateComment)
		videos.GET("/:id/comments/:pk/", h.GetComment)
		videos.PUT("/:id/comments/:pk/", h.UpdateComment)
		videos.PATCH("/:id/comments/:pk/", h.UpdateComment)
		videos.DELETE("/:id/comments/:pk/", h.DeleteComment)

		protected.POST("/follow/", middleware.CacheInvalidationMiddleware(h.cache, feedCacheName), h.ToggleFollow)
		protected.GET("/search/", h.Search)

		eshop := api.Group("/eshop")

		// Categories: anyone reads, admins write
		categories := eshop.Group("/categories", middleware.AdminForWrites(authed))
		categories.GET("/", h.ListCategories)
		categories.POST("/", h.CreateCategory)
		categories.GET("/:id/", h.GetCategory)
		categories.PUT("/:id/", h.UpdateCategory)
		categories.PATCH("/:id/", h.UpdateCategory)
		categories.DELETE("/:id/", h.DeleteCategory)

		products := eshop.Group("/products", authed)
		products.GET("/", h.ListProducts)
		products.POST("/", h.CreateProduct)
		products.GET("/:id/", h.GetProduct)
		products.PUT("/:id/", h.UpdateProduct)
		products.PATCH("/:id/", h.UpdateProduct)
		products.DELETE("/:id/", h.DeleteProduct)
	}
}
