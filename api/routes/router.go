package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/nilgirisfresh-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/nilgirisfresh-backend/api/controllers/webhooks"
	"github.com/angelmondragon/nilgirisfresh-backend/api/middleware"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/auth"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/cart"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/catalog"
	checkoutsvc "github.com/angelmondragon/nilgirisfresh-backend/internal/checkout"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/media"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/orders"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/settings"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/auth/session"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/config"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/enums"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/logger"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/nilgirisfresh-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

type rateLimitStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

type cartEngine interface {
	Get(ctx context.Context, owner cart.Owner) (cart.View, error)
	AddItem(ctx context.Context, owner cart.Owner, sel cart.Selection, quantity int) (cart.View, error)
	UpdateQuantity(ctx context.Context, owner cart.Owner, productID uuid.UUID, variantID *uuid.UUID, quantity int) (cart.View, error)
	RemoveItem(ctx context.Context, owner cart.Owner, productID uuid.UUID, variantID *uuid.UUID) (cart.View, error)
	Clear(ctx context.Context, owner cart.Owner) error
	Bind(ctx context.Context, transitionID string, userID uuid.UUID, guestToken string) (cart.BindResult, error)
}

type settingsStore interface {
	Get(ctx context.Context) (settings.Settings, error)
	Update(ctx context.Context, patch settings.Patch) (settings.Settings, error)
}

type customerCounter interface {
	CountCustomers(ctx context.Context) (int64, error)
}

type stripeSigner interface {
	SigningSecret() string
}

type webhookLedger interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// Deps carries every collaborator the HTTP surface needs. Nil services
// answer with an INTERNAL_ERROR instead of panicking.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	Health          map[string]controllers.Pinger
	Gatherer        prometheus.Gatherer
	HTTPMetrics     *metrics.HTTPMetrics
	RateLimits      rateLimitStore
	IdempotencyKeys pkgredis.IdempotencyStore
	Sessions        sessionManager

	Auth      auth.Service
	Register  auth.RegisterService
	Catalog   catalog.Service
	Cart      cartEngine
	Settings  settingsStore
	Checkout  checkoutsvc.Service
	Orders    orders.Service
	Media     media.Service
	Customers customerCounter

	StripeWebhooks webhookcontrollers.StripeWebhookService
	StripeClient   stripeSigner
	WebhookLedger  webhookLedger
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger
	maxUpload := cfg.Media.MaxUploadBytes()

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.CORS),
	)

	limits := cfg.RateLimit
	limitLogin := middleware.RateLimit(middleware.RateLimitPolicy{
		Name:       "login",
		Window:     limits.LoginWindow,
		IPLimit:    limits.LoginIPLimit,
		Field:      middleware.EmailField,
		FieldLimit: limits.LoginEmailLimit,
	}, deps.RateLimits, logg)
	limitRegister := middleware.RateLimit(middleware.RateLimitPolicy{
		Name:       "register",
		Window:     limits.RegisterWindow,
		IPLimit:    limits.RegisterIPLimit,
		Field:      middleware.EmailField,
		FieldLimit: limits.RegisterEmailLimit,
	}, deps.RateLimits, logg)
	limitEnquiry := middleware.RateLimit(middleware.RateLimitPolicy{
		Name:       "enquiry",
		Window:     limits.EnquiryWindow,
		IPLimit:    limits.EnquiryIPLimit,
		Field:      middleware.PhoneField,
		FieldLimit: limits.EnquiryPhoneLimit,
	}, deps.RateLimits, logg)

	idempotent := middleware.Idempotent(deps.IdempotencyKeys, middleware.ReplayWindow, logg)
	paymentSafe := middleware.Idempotent(deps.IdempotencyKeys, middleware.PaymentReplayWindow, logg)
	requireAuth := middleware.Auth(cfg.JWT, deps.Sessions, logg)
	optionalAuth := middleware.OptionalAuth(cfg.JWT, deps.Sessions, logg)

	cartSvc, settingsSvc := deps.Cart, deps.Settings
	ordersSvc, catalogSvc, mediaSvc := deps.Orders, deps.Catalog, deps.Media

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Health, logg))
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Post("/webhooks/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhooks, deps.StripeClient, deps.WebhookLedger, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(limitLogin).Post("/login", controllers.AuthLogin(deps.Auth, logg))
			r.With(limitRegister, idempotent).Post("/register", controllers.AuthRegister(deps.Register, deps.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(deps.Sessions, cfg.JWT, logg))
			r.Post("/logout", controllers.AuthLogout(deps.Sessions, cfg.JWT, logg))
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/products", controllers.CatalogListProducts(catalogSvc, logg))
			r.Get("/products/{productID}", controllers.CatalogGetProduct(catalogSvc, logg))
			r.Get("/categories", controllers.CatalogListCategories(catalogSvc, logg))
		})
		r.Get("/products/{productID}/whatsapp", controllers.ProductWhatsAppLink(catalogSvc, settingsSvc, logg))
		r.Get("/settings", controllers.GetSettings(settingsSvc, logg))

		r.Route("/enquiries", func(r chi.Router) {
			r.Use(limitEnquiry)
			r.With(idempotent).Post("/bulk", controllers.BulkEnquiry(settingsSvc, logg))
			r.Post("/contact", controllers.ContactEnquiry(settingsSvc, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.With(optionalAuth).Get("/", controllers.CartGet(cartSvc, logg))
			r.With(optionalAuth).Delete("/", controllers.CartClear(cartSvc, logg))
			r.With(optionalAuth).Post("/items", controllers.CartAddItem(cartSvc, logg))
			r.With(optionalAuth).Patch("/items/{productID}", controllers.CartUpdateItem(cartSvc, logg))
			r.With(optionalAuth).Delete("/items/{productID}", controllers.CartRemoveItem(cartSvc, logg))
			r.With(requireAuth).Post("/bind", controllers.CartBind(cartSvc, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/checkout", func(r chi.Router) {
				r.With(paymentSafe).Post("/payments", controllers.CheckoutBegin(deps.Checkout, logg))
				r.With(paymentSafe).Post("/payments/{reference}/complete", controllers.CheckoutComplete(deps.Checkout, logg))
				r.With(paymentSafe).Post("/payments/{reference}/cancel", controllers.CheckoutCancel(deps.Checkout, logg))
				r.With(idempotent).Post("/evidence", controllers.CheckoutEvidence(deps.Checkout, mediaSvc, maxUpload, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrdersList(ordersSvc, logg))
				r.Get("/{orderID}", controllers.OrderDetail(ordersSvc, logg))
				r.Post("/{orderID}/evidence", controllers.OrderEvidence(ordersSvc, mediaSvc, maxUpload, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			if !cfg.App.IsProd() {
				r.Post("/auth/register", controllers.AdminRegister(deps.Register, deps.Auth, logg))
			}

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))

				r.Get("/dashboard", controllers.AdminDashboard(catalogSvc, ordersSvc, deps.Customers, logg))

				r.Route("/products", func(r chi.Router) {
					r.Post("/", controllers.AdminCreateProduct(catalogSvc, logg))
					r.Patch("/{productID}", controllers.AdminUpdateProduct(catalogSvc, logg))
					r.Delete("/{productID}", controllers.AdminDeleteProduct(catalogSvc, logg))
					r.Post("/{productID}/variants", controllers.AdminCreateVariant(catalogSvc, logg))
					r.Patch("/{productID}/variants/{variantID}", controllers.AdminUpdateVariant(catalogSvc, logg))
					r.Delete("/{productID}/variants/{variantID}", controllers.AdminDeleteVariant(catalogSvc, logg))
				})
				r.Route("/categories", func(r chi.Router) {
					r.Post("/", controllers.AdminCreateCategory(catalogSvc, logg))
					r.Patch("/{categoryID}", controllers.AdminUpdateCategory(catalogSvc, logg))
					r.Delete("/{categoryID}", controllers.AdminDeleteCategory(catalogSvc, logg))
				})

				r.Put("/settings", controllers.AdminUpdateSettings(settingsSvc, logg))

				r.Route("/orders", func(r chi.Router) {
					r.Get("/", controllers.AdminOrdersList(ordersSvc, logg))
					r.Get("/{orderID}", controllers.AdminOrderDetail(ordersSvc, logg))
					r.With(idempotent).Patch("/{orderID}/status", controllers.AdminUpdateOrderStatus(ordersSvc, logg))
				})

				r.Route("/media/products", func(r chi.Router) {
					r.Post("/presign", controllers.AdminPresignProductImage(mediaSvc, logg))
					r.Post("/", controllers.AdminUploadProductImage(mediaSvc, maxUpload, logg))
				})
			})
		})
	})

	return r
}
