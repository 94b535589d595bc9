package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/feedbackhub/internal/access"
	"github.com/geocoder89/feedbackhub/internal/apperr"
	"github.com/geocoder89/feedbackhub/internal/auth"
	"github.com/geocoder89/feedbackhub/internal/config"
	"github.com/geocoder89/feedbackhub/internal/domain/account"
	"github.com/geocoder89/feedbackhub/internal/domain/feedback"
	"github.com/geocoder89/feedbackhub/internal/http/handlers"
	"github.com/geocoder89/feedbackhub/internal/http/middlewares"
	"github.com/geocoder89/feedbackhub/internal/observability"
	"github.com/geocoder89/feedbackhub/internal/schema"
	"github.com/geocoder89/feedbackhub/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceName = "feedbackhub"

const (
	authLimit    = 20
	generalLimit = 100
	limitWindow  = 15 * time.Minute

	authLimitMessage    = "Too many attempts from this IP, please try again after 15 minutes"
	generalLimitMessage = "Too many requests from this IP, please try again after 15 minutes"
)

// Store is everything the HTTP layer needs from persistence. Both
// postgres.Store and memory.Store satisfy it.
type Store interface {
	access.AccountStore
	access.FeedbackStore
	GetStudent(ctx context.Context, id string) (account.Account, error)
	ListStudents(ctx context.Context) ([]account.Account, error)
	ListTeachers(ctx context.Context) ([]account.Account, error)
	ListFeedbackByTeacher(ctx context.Context, teacherID string) ([]feedback.Feedback, error)
	Ping(ctx context.Context) error
}

type Deps struct {
	Config config.Config
	Store  Store
	Tokens *auth.Manager
	Hasher *security.Hasher

	// Optional. Registry backs /metrics; Limits defaults to per-process counters.
	Registry *prometheus.Registry
	Prom     *observability.Prom
	Limits   middlewares.LimitStore
}

func NewRouter(log *slog.Logger, d Deps) *gin.Engine {
	if d.Config.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	prod := d.Config.IsProd()

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders(prod))
	r.Use(middlewares.CORSMiddleware(d.Config.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(0))
	r.Use(middlewares.ErrorHandler(log, d.Prom, prod))

	// health
	h := handlers.NewHealthHandler(d.Store.Ping)
	r.GET("/", h.Index)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	}

	r.NoRoute(func(ctx *gin.Context) {
		middlewares.Fail(ctx, apperr.New(apperr.KindRouteNotFound, "Page not found"))
	})

	// gates
	authn := access.Authenticate(d.Tokens)
	verifier := access.NewCredentialVerifier(d.Store, d.Hasher, d.Tokens)
	guard := access.NewUniquenessGuard(d.Store, d.Hasher, d.Tokens)
	eligibility := access.NewEligibilityGate(d.Store)

	authLimiter := middlewares.NewRateLimiter("auth", authLimitMessage, authLimit, limitWindow, d.Limits, log, d.Prom)
	generalLimiter := middlewares.NewRateLimiter("general", generalLimitMessage, generalLimit, limitWindow, d.Limits, log, d.Prom)

	authHandler := handlers.NewAuthHandler(prod, d.Prom)
	students := handlers.NewStudentsHandler(d.Store, d.Prom)
	teachers := handlers.NewTeachersHandler(d.Store)

	groups := make(map[account.Role]*gin.RouterGroup, 2)

	for _, role := range []account.Role{account.RoleStudent, account.RoleTeacher} {
		g := r.Group("/" + role.String())
		g.Use(generalLimiter.RateLimiterMiddleware(middlewares.KeyByIP))
		groups[role] = g

		limited := authLimiter.RateLimiterMiddleware(middlewares.KeyByIP)

		g.POST("/register", limited, authHandler.Track(role, "register"),
			middlewares.Gates(role, access.Validate(schema.ShapeRegister), guard.Gate()),
			authHandler.Register,
		)
		g.POST("/login", limited, authHandler.Track(role, "login"),
			middlewares.Gates(role, access.Validate(schema.ShapeLogin), verifier.Gate()),
			authHandler.Login,
		)
		g.GET("/logout", middlewares.Gates(role, authn, access.RequireRole(role)), authHandler.Logout)
	}

	asStudent := []access.Gate{authn, access.RequireRole(account.RoleStudent)}
	asTeacher := []access.Gate{authn, access.RequireRole(account.RoleTeacher)}

	st := groups[account.RoleStudent]
	st.GET("/dashboard", middlewares.Gates(account.RoleStudent, asStudent...), students.Dashboard)
	st.GET("/feedback", middlewares.Gates(account.RoleStudent, asStudent...), students.FeedbackForm)
	st.POST("/feedback", students.TrackSubmission(),
		middlewares.Gates(account.RoleStudent,
			authn,
			access.RequireRole(account.RoleStudent),
			access.Validate(schema.ShapeFeedback),
			eligibility.Gate(),
		),
		students.SubmitFeedback,
	)

	te := groups[account.RoleTeacher]
	te.GET("/dashboard", middlewares.Gates(account.RoleTeacher, asTeacher...), teachers.Dashboard)
	te.GET("/analytics", middlewares.Gates(account.RoleTeacher, asTeacher...), teachers.Analytics)

	return r
}
