package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"

	"simpus/middleware"
	"simpus/store"
	"simpus/utils"
)

type NotificationHandler struct {
	Store *store.Store
	Hub   *utils.Hub
}

func NewNotificationHandler(store *store.Store, hub *utils.Hub) *NotificationHandler {
	return &NotificationHandler{Store: store, Hub: hub}
}

// notify menyimpan notifikasi lalu mendorongnya ke websocket pengguna.
// Kegagalan hanya dicatat; operasi utama tetap dianggap berhasil.
func notify(ctx context.Context, st *store.Store, hub *utils.Hub, userID, message string) {
	n, err := st.CreateNotification(ctx, userID, message)
	if err != nil {
		log.Printf("notify %s: %v", userID, err)
		return
	}
	hub.Send(userID, utils.Event{Type: "notification", Data: n})
}

func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())

	notifs, err := h.Store.GetNotifications(r.Context(), claims.UserID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, notifs)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())

	if err := h.Store.MarkNotificationRead(r.Context(), r.PathValue("id"), claims.UserID); err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *NotificationHandler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())

	if err := h.Store.DeleteNotification(r.Context(), r.PathValue("id"), claims.UserID); err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// SendNotification (admin) - broadcast ("all") atau langsung ke satu user.
func (h *NotificationHandler) SendNotification(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID  string `json:"userId"`
		Message string `json:"message"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	if strings.TrimSpace(payload.Message) == "" || payload.UserID == "" {
		utils.WriteError(w, http.StatusBadRequest, "userId and message are required")
		return
	}

	var targets []string
	if payload.UserID == "all" {
		ids, err := h.Store.ListUserIDs(r.Context())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		targets = ids
	} else {
		if _, err := h.Store.GetUserByID(r.Context(), payload.UserID); err != nil {
			writeStoreError(w, err)
			return
		}
		targets = []string{payload.UserID}
	}

	for _, id := range targets {
		notify(r.Context(), h.Store, h.Hub, id, payload.Message)
	}

	utils.WriteJSON(w, http.StatusCreated, map[string]any{"message": "Notification sent", "recipients": len(targets)})
}
