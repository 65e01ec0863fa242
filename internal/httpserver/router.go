package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/coursehub/internal/middleware/csrf"
	loggingmw "github.com/Skotchmaster/coursehub/internal/middleware/logging"
	"github.com/Skotchmaster/coursehub/internal/middleware/metrics"
	"github.com/Skotchmaster/coursehub/internal/session"
)

type Deps struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	CSRF    *csrf.Guard
	Session *session.Resolver

	// Ready reports whether backing services are reachable. Nil means always ready.
	Ready func(ctx context.Context) error

	UploadMaxBytes int64

	Auth      *AuthHTTP
	Courses   *CourseHTTP
	Materials *MaterialHTTP
	Schedule  *ScheduleHTTP
	Forum     *ForumHTTP
	Checklist *ChecklistHTTP
	Admin     *AdminHTTP
}

func Register(e *echo.Echo, d *Deps) {
	e.HTTPErrorHandler = ErrorHandler
	e.Validator = NewValidator()

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.RequestID(), middleware.Recover())
	if d.Metrics != nil {
		e.Use(d.Metrics.Middleware())
	}
	e.Use(loggingmw.RequestLogger(d.Logger))
	e.Use(d.CSRF.Middleware(), d.Session.Middleware())

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]any{"error": "not ready"})
			}
		}
		return c.NoContent(http.StatusOK)
	})
	if d.Metrics != nil {
		e.GET("/metrics", d.Metrics.Handler())
	}

	auth := e.Group("/auth")
	auth.GET("/session", d.Auth.Session)
	auth.POST("/session", d.Auth.Session)
	auth.POST("/signup", d.Auth.Signup)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/logout", d.Auth.Logout)
	auth.POST("/switch-view", d.Auth.SwitchView)
	auth.POST("/password", d.Auth.ChangePassword)
	auth.POST("/password-reset/request", d.Auth.RequestReset)
	auth.POST("/password-reset/confirm", d.Auth.ConfirmReset)

	courses := e.Group("/courses")
	courses.GET("", d.Courses.List)
	courses.POST("", d.Courses.Create)
	courses.GET("/search", d.Courses.SearchCourses)
	courses.GET("/mine", d.Courses.Mine)
	courses.GET("/:id", d.Courses.Get)
	courses.PATCH("/:id", d.Courses.Patch)
	courses.DELETE("/:id", d.Courses.Delete)
	courses.POST("/:id/instructors", d.Courses.AssignInstructor)
	courses.DELETE("/:id/instructors/:userId", d.Courses.RemoveInstructor)
	courses.POST("/:id/signup", d.Courses.Signup)
	courses.DELETE("/:id/signup", d.Courses.CancelSignup)
	courses.GET("/:id/signups", d.Courses.ListSignups)
	courses.GET("/:id/signups/export", d.Courses.ExportSignups)

	courses.GET("/:id/materials", d.Materials.List)
	// Headroom over the file limit for the multipart envelope and other fields.
	uploadLimit := middleware.BodyLimit(strconv.FormatInt(d.UploadMaxBytes+1<<20, 10) + "B")
	courses.POST("/:id/materials", d.Materials.Upload, uploadLimit)
	courses.PATCH("/:id/materials/:materialId", d.Materials.Patch)
	courses.DELETE("/:id/materials/:materialId", d.Materials.Delete)

	courses.GET("/:id/sessions", d.Schedule.List)
	courses.POST("/:id/sessions", d.Schedule.Create)
	courses.PATCH("/:id/sessions/:sessionId", d.Schedule.Patch)
	courses.DELETE("/:id/sessions/:sessionId", d.Schedule.Delete)

	courses.GET("/:id/posts", d.Forum.ListPosts)
	courses.POST("/:id/posts", d.Forum.CreatePost)
	courses.PATCH("/:id/posts/:postId", d.Forum.PatchPost)
	courses.DELETE("/:id/posts/:postId", d.Forum.DeletePost)
	courses.POST("/:id/posts/:postId/answers", d.Forum.CreateAnswer)
	courses.PATCH("/:id/posts/:postId/answers/:answerId", d.Forum.PatchAnswer)
	courses.DELETE("/:id/posts/:postId/answers/:answerId", d.Forum.DeleteAnswer)

	courses.GET("/:id/checklist", d.Checklist.List)
	courses.POST("/:id/checklist", d.Checklist.Create)
	courses.PATCH("/:id/checklist/:itemId", d.Checklist.Patch)
	courses.DELETE("/:id/checklist/:itemId", d.Checklist.Delete)

	admin := e.Group("/admin")
	admin.GET("/users", d.Admin.ListUsers)
	admin.POST("/users", d.Admin.CreateUser)
	admin.PATCH("/users/:id", d.Admin.PatchUser)
	admin.DELETE("/users/:id", d.Admin.DeleteUser)
}
