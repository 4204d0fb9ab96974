package handlers

import (
	"log"
	"net/http"

	"simpus/middleware"
	"simpus/utils"
)

type WSHandler struct {
	Hub *utils.Hub
}

func NewWSHandler(hub *utils.Hub) *WSHandler {
	return &WSHandler{Hub: hub}
}

// Serve upgrades an authenticated request to the caller's event stream.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())
	if err := h.Hub.Serve(w, r, claims.UserID); err != nil {
		// Upgrader sudah menulis respon error.
		log.Println("ws upgrade:", err)
	}
}
