package routes

import (
	"net/http"
	"time"

	"chat-meter/controllers"
	"chat-meter/middleware"
	"chat-meter/templates"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const sessionName = "chat_meter_session"

// EngineOptions are the HTTP-level settings read from configuration.
type EngineOptions struct {
	SessionSecret string
	CORSOrigins   []string
	SecureCookie  bool
	Log           *logrus.Logger
}

// NewEngine builds the gin engine with sessions, CORS, templates and every route.
func NewEngine(h *controllers.Handler, opts EngineOptions) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(opts.Log))

	trustedProxies := []string{"127.0.0.1", "::1"}
	if err := r.SetTrustedProxies(trustedProxies); err != nil {
		return nil, err
	}

	if h.MaxUploadSize > 0 {
		r.MaxMultipartMemory = h.MaxUploadSize
	}

	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400,
		HttpOnly: true,
		Secure:   opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	tmpl, err := templates.Load()
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)

	SetupRoutes(r, h)
	return r, nil
}

// SetupRoutes registers the HTML pages, the JSON API and the admin views.
func SetupRoutes(r *gin.Engine, h *controllers.Handler) {
	// Server-rendered pages, cookie session
	r.GET("/", h.Index)
	r.GET("/login", h.LoginPage)
	r.POST("/login", h.LoginSubmit)
	r.POST("/logout", h.LogoutSubmit)

	page := r.Group("/chat", middleware.RequirePageLogin(h.Auth))
	{
		page.GET("", h.ChatPage)
		page.POST("", h.ChatSubmit)
		page.POST("/clear", h.ClearRequestSubmit)
		page.POST("/clear/confirm", h.ClearConfirmSubmit)
		page.POST("/clear/cancel", h.ClearCancelSubmit)
		page.POST("/upload/clear", h.UploadClearSubmit)
	}

	// JSON API, bearer token or session cookie
	requireAPI := middleware.RequireAPILogin(h.Auth, h.Tokens)

	api := r.Group("/api")
	{
		api.POST("/auth/login", h.Login)
		api.POST("/auth/logout", requireAPI, h.Logout)
		api.GET("/auth/current", requireAPI, h.GetCurrentUser)

		chat := api.Group("/chat", requireAPI)
		{
			chat.POST("", h.ChatbotHandler)
			chat.GET("/history", h.GetChatHistory)
			chat.POST("/clear", h.RequestClearHandler)
			chat.POST("/clear/confirm", h.ConfirmClearHandler)
			chat.POST("/clear/cancel", h.CancelClearHandler)
			chat.DELETE("/upload", h.ClearUploadHandler)
		}

		api.GET("/quota", requireAPI, h.GetQuota)
		api.GET("/usage", requireAPI, h.GetUsageHistory)
	}

	admin := r.Group("/admin", requireAPI, middleware.AdminOnly())
	{
		admin.GET("/metrics", h.GetAdminMetricsHandler)
		admin.GET("/conversations", h.GetRecentConversationsHandler)
	}
}
