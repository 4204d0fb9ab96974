package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"simpus/middleware"
	"simpus/models"
	"simpus/store"
	"simpus/utils"
)

type CommunityHandler struct {
	Store *store.Store
	Hub   *utils.Hub
}

func NewCommunityHandler(store *store.Store, hub *utils.Hub) *CommunityHandler {
	return &CommunityHandler{Store: store, Hub: hub}
}

// List returns public communities: GET /api/communities?category=&search=&page=&limit=
func (h *CommunityHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	result, err := h.Store.ListCommunities(r.Context(), models.CommunityFilter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, result)
}

func (h *CommunityHandler) Mine(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())

	list, err := h.Store.ListUserCommunities(r.Context(), claims.UserID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

func (h *CommunityHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.Store.GetCommunity(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, c)
}

// Create endpoint. Pembuat otomatis menjadi anggota dan moderator.
func (h *CommunityHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())

	var req models.CommunityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	switch {
	case strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Description) == "" || strings.TrimSpace(req.Category) == "":
		utils.WriteError(w, http.StatusBadRequest, "Name, description and category are required")
		return
	case utf8.RuneCountInString(req.Name) > 100:
		utils.WriteError(w, http.StatusBadRequest, "Name cannot exceed 100 characters")
		return
	case utf8.RuneCountInString(req.Description) > 500:
		utils.WriteError(w, http.StatusBadRequest, "Description cannot exceed 500 characters")
		return
	case req.MaxMembers < 0:
		utils.WriteError(w, http.StatusBadRequest, "maxMembers must be positive")
		return
	}

	c, err := h.Store.CreateCommunity(r.Context(), claims.UserID, req)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, c)
}

func (h *CommunityHandler) Join(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())

	if err := h.Store.JoinCommunity(r.Context(), r.PathValue("id"), claims.UserID); err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "Successfully joined community"})
}

// Leave removes the caller. If the creator leaves and no moderator remains,
// the community is deleted.
func (h *CommunityHandler) Leave(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())

	deleted, err := h.Store.LeaveCommunity(r.Context(), r.PathValue("id"), claims.UserID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	msg := "Successfully left community"
	if deleted {
		msg = "Community deleted as creator left"
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// Messages endpoint, khusus anggota komunitas.
func (h *CommunityHandler) Messages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.requireMember(w, r, id) {
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.Store.ListMessages(r.Context(), id, page, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, result)
}

// PostMessage stores a message and pushes it to the other members over the hub.
func (h *CommunityHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())
	id := r.PathValue("id")

	var req models.MessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Type == "" {
		req.Type = models.MessageText
	}
	switch {
	case strings.TrimSpace(req.Content) == "":
		utils.WriteError(w, http.StatusBadRequest, "Content is required")
		return
	case utf8.RuneCountInString(req.Content) > 1000:
		utils.WriteError(w, http.StatusBadRequest, "Content cannot exceed 1000 characters")
		return
	case !req.Type.Valid():
		utils.WriteError(w, http.StatusBadRequest, "Invalid message type")
		return
	}

	if !h.requireMember(w, r, id) {
		return
	}

	msg, err := h.Store.CreateMessage(r.Context(), id, claims.UserID, req)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.broadcast(r.Context(), id, claims.UserID, utils.Event{Type: "community_message", Data: msg})
	utils.WriteJSON(w, http.StatusCreated, msg)
}

func (h *CommunityHandler) Reply(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())

	var payload struct {
		Content string `json:"content"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	if strings.TrimSpace(payload.Content) == "" {
		utils.WriteError(w, http.StatusBadRequest, "Content is required")
		return
	}
	if utf8.RuneCountInString(payload.Content) > 500 {
		utils.WriteError(w, http.StatusBadRequest, "Reply cannot exceed 500 characters")
		return
	}

	msg, ok := h.memberMessage(w, r)
	if !ok {
		return
	}

	reply, err := h.Store.AddReply(r.Context(), msg.ID, claims.UserID, payload.Content)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, map[string]any{"message": "Reply added successfully", "reply": reply})
}

// React sets the caller's reaction, replacing any earlier one.
func (h *CommunityHandler) React(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())

	var payload struct {
		Emoji string `json:"emoji"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	if strings.TrimSpace(payload.Emoji) == "" {
		utils.WriteError(w, http.StatusBadRequest, "Emoji is required")
		return
	}

	msg, ok := h.memberMessage(w, r)
	if !ok {
		return
	}

	if err := h.Store.SetReaction(r.Context(), msg.ID, claims.UserID, payload.Emoji); err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "Reaction added successfully"})
}

func (h *CommunityHandler) requireMember(w http.ResponseWriter, r *http.Request, communityID string) bool {
	claims := middleware.ClaimsFrom(r.Context())

	member, err := h.Store.IsMember(r.Context(), communityID, claims.UserID)
	if err != nil {
		writeStoreError(w, err)
		return false
	}
	if !member {
		utils.WriteError(w, http.StatusForbidden, "You must be a member to access this community")
		return false
	}
	return true
}

// memberMessage loads {messageId} and checks the caller belongs to its community.
func (h *CommunityHandler) memberMessage(w http.ResponseWriter, r *http.Request) (*models.Message, bool) {
	msg, err := h.Store.GetMessage(r.Context(), r.PathValue("messageId"))
	if err != nil {
		writeStoreError(w, err)
		return nil, false
	}
	if !h.requireMember(w, r, msg.CommunityID) {
		return nil, false
	}
	return msg, true
}

func (h *CommunityHandler) broadcast(ctx context.Context, communityID, senderID string, ev utils.Event) {
	if h.Hub == nil {
		return
	}
	ids, err := h.Store.MemberIDs(ctx, communityID)
	if err != nil {
		log.Println("broadcast: member ids:", err)
		return
	}
	for _, id := range ids {
		if id != senderID {
			h.Hub.Send(id, ev)
		}
	}
}
