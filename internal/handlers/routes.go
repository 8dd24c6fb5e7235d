package handlers

import (
	"net/http"
	"time"
)

// Router holds the inputs to NewRouter besides the shared Base.
type Router struct {
	StaticDir string
	// Metrics serves /metrics; nil leaves the route out.
	Metrics http.Handler
	// LoginLimiter throttles login attempts; nil uses 10 per minute.
	LoginLimiter *RateLimiter
}

// NewRouter registers every page and API route on a new ServeMux.
func NewRouter(b *Base, cfg Router) *http.ServeMux {
	home := &HomeHandler{Base: b}
	orders := &OrderHandler{Base: b}
	admin := &AdminHandler{Base: b}
	mechanic := &MechanicHandler{Base: b}

	limiter := cfg.LoginLimiter
	if limiter == nil {
		limiter = NewRateLimiter(10, time.Minute)
	}
	requireAdmin := admin.RequireAdmin
	requireMechanic := mechanic.RequireMechanic

	mux := http.NewServeMux()

	// Static files; uploads may live outside the static dir.
	mux.Handle("GET /static/", http.StripPrefix("/static", http.FileServer(http.Dir(cfg.StaticDir))))
	mux.Handle("GET /static/uploads/", http.StripPrefix("/static/uploads", http.FileServer(http.Dir(b.UploadDir))))

	// Public pages
	mux.HandleFunc("GET /{$}", home.Index)
	mux.HandleFunc("GET /set-language/{lang}", home.SetLanguage)
	mux.HandleFunc("GET /health", home.Health)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	// Mechanic pages
	mux.HandleFunc("GET /mechanic", mechanic.Entry)
	mux.HandleFunc("GET /mechanic/login", mechanic.LoginGet)
	mux.HandleFunc("POST /mechanic/login", limiter.Middleware(mechanic.LoginPost))
	mux.HandleFunc("GET /mechanic/logout", mechanic.Logout)
	mux.HandleFunc("GET /mechanic/dashboard", requireMechanic(mechanic.Dashboard))
	mux.HandleFunc("GET /mechanic/orders", requireMechanic(mechanic.OrdersPage))
	mux.HandleFunc("GET /mechanic/orders/new", requireMechanic(mechanic.NewOrderPage))
	mux.HandleFunc("GET /mechanic/profile", requireMechanic(mechanic.ProfilePage))

	// Admin pages
	mux.HandleFunc("GET /admin/login", admin.LoginGet)
	mux.HandleFunc("POST /admin/login", limiter.Middleware(admin.LoginPost))
	mux.HandleFunc("GET /admin/logout", admin.Logout)
	mux.HandleFunc("GET /admin", requireAdmin(admin.Dashboard))
	mux.HandleFunc("GET /admin/mechanics", requireAdmin(admin.MechanicsPage))
	mux.HandleFunc("GET /admin/parts", requireAdmin(admin.PartsPage))

	// Public API
	listOrders, getOrder := orders.ListOrders, orders.GetOrder
	if !b.PublicOrderList {
		listOrders, getOrder = requireAdmin(listOrders), requireAdmin(getOrder)
	}
	mux.HandleFunc("POST /api/submit_order", orders.SubmitOrder)
	mux.HandleFunc("POST /api/upload_photo", orders.UploadPhoto)
	mux.HandleFunc("GET /api/orders", listOrders)
	mux.HandleFunc("GET /api/orders/{id}", getOrder)
	mux.HandleFunc("GET /api/parts", home.Parts)
	mux.HandleFunc("GET /api/parts/catalog", home.Catalog)
	mux.HandleFunc("GET /api/parts/categories", home.PartCategories)
	mux.HandleFunc("GET /api/categories", home.Categories)
	mux.HandleFunc("POST /api/language", home.Language)

	// Admin API
	mux.HandleFunc("PUT /api/orders/{id}", requireAdmin(admin.UpdateOrder))
	mux.HandleFunc("DELETE /api/orders/{id}", requireAdmin(admin.DeleteOrder))
	mux.HandleFunc("POST /api/orders/{id}/print", requireAdmin(admin.PrintOrder))

	mux.HandleFunc("GET /api/admin/mechanics", requireAdmin(admin.ListMechanics))
	mux.HandleFunc("POST /api/admin/mechanics", requireAdmin(admin.CreateMechanic))
	mux.HandleFunc("GET /api/admin/mechanics/{id}", requireAdmin(admin.GetMechanic))
	mux.HandleFunc("PUT /api/admin/mechanics/{id}", requireAdmin(admin.UpdateMechanic))
	mux.HandleFunc("DELETE /api/admin/mechanics/{id}", requireAdmin(admin.DeleteMechanic))
	mux.HandleFunc("PUT /api/admin/mechanics/{id}/toggle-active", requireAdmin(admin.ToggleMechanic))

	mux.HandleFunc("GET /api/admin/categories", requireAdmin(admin.ListCategories))
	mux.HandleFunc("POST /api/admin/categories", requireAdmin(admin.CreateCategory))
	mux.HandleFunc("GET /api/admin/categories/{id}", requireAdmin(admin.GetCategory))
	mux.HandleFunc("PUT /api/admin/categories/{id}", requireAdmin(admin.UpdateCategory))
	mux.HandleFunc("DELETE /api/admin/categories/{id}", requireAdmin(admin.DeleteCategory))
	mux.HandleFunc("PUT /api/admin/categories/{id}/toggle-active", requireAdmin(admin.ToggleCategory))

	mux.HandleFunc("GET /api/admin/parts", requireAdmin(admin.ListParts))
	mux.HandleFunc("POST /api/admin/parts", requireAdmin(admin.CreatePart))
	mux.HandleFunc("POST /api/admin/parts/bulk", requireAdmin(admin.BulkCreateParts))
	mux.HandleFunc("POST /api/admin/parts/import-default", requireAdmin(admin.ImportDefaultCatalog))
	mux.HandleFunc("GET /api/admin/parts/{id}", requireAdmin(admin.GetPart))
	mux.HandleFunc("PUT /api/admin/parts/{id}", requireAdmin(admin.UpdatePart))
	mux.HandleFunc("DELETE /api/admin/parts/{id}", requireAdmin(admin.DeletePart))
	mux.HandleFunc("PUT /api/admin/parts/{id}/toggle-active", requireAdmin(admin.TogglePart))

	mux.HandleFunc("GET /api/admin/stats", requireAdmin(admin.Stats))
	mux.HandleFunc("GET /api/admin/live", requireAdmin(admin.Live))

	// Mechanic API
	mux.HandleFunc("GET /api/mechanic/profile", requireMechanic(mechanic.Profile))
	mux.HandleFunc("PUT /api/mechanic/profile", requireMechanic(mechanic.UpdateProfile))
	mux.HandleFunc("PUT /api/mechanic/password", requireMechanic(mechanic.ChangePassword))
	mux.HandleFunc("PUT /api/mechanic/settings", requireMechanic(mechanic.UpdateSettings))
	mux.HandleFunc("GET /api/mechanic/orders", requireMechanic(mechanic.Orders))
	mux.HandleFunc("GET /api/mechanic/stats", requireMechanic(mechanic.Stats))

	return mux
}
