package handlers

import (
	"net/http"

	"simpus/config"
	"simpus/middleware"
	"simpus/models"
	"simpus/store"
	"simpus/utils"
)

// NewRouter wires every API route. hub may be nil when live push is not
// needed (CLI tools and tests).
func NewRouter(st *store.Store, hub *utils.Hub, cfg config.Config) http.Handler {
	authHandler := NewAuthHandler(st, cfg)
	bookHandler := NewBookHandler(st, cfg)
	categoryHandler := NewCategoryHandler(st)
	recommendHandler := NewRecommendationHandler(st)
	borrowHandler := NewBorrowHandler(st, hub, cfg)
	orderHandler := NewOrderHandler(st)
	adminHandler := NewAdminHandler(st)
	reviewHandler := NewReviewHandler(st)
	communityHandler := NewCommunityHandler(st, hub)
	notifHandler := NewNotificationHandler(st, hub)

	auth := middleware.Auth([]byte(cfg.JWTSecret))
	protected := func(h http.HandlerFunc) http.Handler {
		return auth(h)
	}
	can := func(c models.Capability, h http.HandlerFunc) http.Handler {
		return auth(middleware.RequireCapability(c)(h))
	}

	mux := http.NewServeMux()

	// Uploads
	up := http.FileServer(http.Dir(cfg.UploadDir))
	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", up))

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	// ============================================
	// AUTH
	// ============================================
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.HandleFunc("GET /api/auth/me", authHandler.Me)

	// ============================================
	// BOOKS
	// ============================================
	mux.HandleFunc("GET /api/books", bookHandler.ListBooks)
	mux.HandleFunc("GET /api/books/popular", bookHandler.Popular)
	mux.HandleFunc("GET /api/books/stats", bookHandler.Stats)
	mux.HandleFunc("GET /api/books/categories", categoryHandler.GetCategories)
	mux.HandleFunc("GET /api/books/{id}", bookHandler.GetBook)
	mux.Handle("POST /api/books/recommendations", protected(recommendHandler.Recommend))
	mux.Handle("POST /api/books", can(models.CapManageCatalog, bookHandler.CreateBook))
	mux.Handle("PUT /api/books/{id}", can(models.CapManageCatalog, bookHandler.UpdateBook))
	mux.Handle("DELETE /api/books/{id}", can(models.CapManageCatalog, bookHandler.DeleteBook))

	// ============================================
	// BORROW
	// ============================================
	mux.Handle("POST /api/borrow/borrow/{bookId}", protected(borrowHandler.Borrow))
	mux.Handle("POST /api/borrow/return/{transactionId}", protected(borrowHandler.Return))
	mux.Handle("POST /api/borrow/extend/{transactionId}", protected(borrowHandler.Extend))
	mux.Handle("GET /api/borrow/my", protected(borrowHandler.My))
	mux.Handle("GET /api/borrow/{transactionId}", protected(borrowHandler.Get))

	// ============================================
	// ORDERS
	// ============================================
	mux.Handle("POST /api/orders", protected(orderHandler.Create))
	mux.Handle("GET /api/orders", protected(orderHandler.List))
	mux.Handle("PATCH /api/orders/{id}/status", can(models.CapManageOrders, orderHandler.UpdateStatus))

	// ============================================
	// ADMIN
	// ============================================
	mux.Handle("GET /api/admin/users", can(models.CapManageUsers, adminHandler.GetUsers))
	mux.Handle("DELETE /api/admin/users/{id}", can(models.CapManageUsers, adminHandler.DeleteUser))
	mux.Handle("PATCH /api/admin/users/{id}/block", can(models.CapManageUsers, adminHandler.BlockUser))
	mux.Handle("GET /api/admin/borrows", can(models.CapViewAllLoans, borrowHandler.All))
	mux.Handle("GET /api/admin/stats", can(models.CapViewAllLoans, adminHandler.Stats))

	// ============================================
	// REVIEWS
	// ============================================
	mux.HandleFunc("GET /api/reviews/book/{bookId}", reviewHandler.ForBook)
	mux.HandleFunc("GET /api/reviews/book/{bookId}/stats", reviewHandler.Stats)
	mux.Handle("GET /api/reviews/my", protected(reviewHandler.Mine))
	mux.Handle("POST /api/reviews", protected(reviewHandler.Create))
	mux.Handle("PUT /api/reviews/{reviewId}", protected(reviewHandler.Update))
	mux.Handle("DELETE /api/reviews/{reviewId}", protected(reviewHandler.Delete))
	mux.Handle("POST /api/reviews/{reviewId}/helpful", protected(reviewHandler.Helpful))

	// ============================================
	// COMMUNITIES
	// ============================================
	mux.HandleFunc("GET /api/communities", communityHandler.List)
	mux.Handle("GET /api/communities/my", protected(communityHandler.Mine))
	mux.HandleFunc("GET /api/communities/{id}", communityHandler.Get)
	mux.Handle("POST /api/communities", protected(communityHandler.Create))
	mux.Handle("POST /api/communities/{id}/join", protected(communityHandler.Join))
	mux.Handle("POST /api/communities/{id}/leave", protected(communityHandler.Leave))
	mux.Handle("GET /api/communities/{id}/messages", protected(communityHandler.Messages))
	mux.Handle("POST /api/communities/{id}/messages", protected(communityHandler.PostMessage))
	mux.Handle("POST /api/communities/messages/{messageId}/reply", protected(communityHandler.Reply))
	mux.Handle("POST /api/communities/messages/{messageId}/reaction", protected(communityHandler.React))

	// ============================================
	// NOTIFICATIONS
	// ============================================
	mux.Handle("GET /api/notifications", protected(notifHandler.GetNotifications))
	mux.Handle("POST /api/notifications/send", can(models.CapSendNotifications, notifHandler.SendNotification))
	mux.Handle("POST /api/notifications/{id}/read", protected(notifHandler.MarkRead))
	mux.Handle("DELETE /api/notifications/{id}", protected(notifHandler.DeleteNotification))
	if hub != nil {
		mux.Handle("GET /api/ws", protected(NewWSHandler(hub).Serve))
	}

	return middleware.Logging(middleware.CORS(cfg.ClientOrigins)(mux))
}
