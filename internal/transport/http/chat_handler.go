package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cwrk-planet/chat-relay/internal/domain"
	"github.com/cwrk-planet/chat-relay/internal/service"
	"github.com/cwrk-planet/chat-relay/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

type ChatHandler struct {
	rooms    *service.RoomService
	chat     *service.ChatService
	validate *validator.Validate
}

func NewChatHandler(rooms *service.RoomService, chat *service.ChatService, v *validator.Validate) *ChatHandler {
	return &ChatHandler{rooms: rooms, chat: chat, validate: v}
}

// POST /chat/new
func (h *ChatHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	room, err := h.rooms.CreateRoom(r.Context(), req.Email, req.Name)
	if err != nil {
		writeError(w, r, "chat.CreateRoom", err)
		return
	}
	httputil.JSON(w, http.StatusCreated, toRoomItem(*room))
}

// GET /chat/list?limit=&cursor=
func (h *ChatHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, next, err := h.rooms.ListRooms(r.Context(), queryInt(r, "limit", 0), r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, r, "chat.ListRooms", err)
		return
	}
	httputil.JSON(w, http.StatusOK, RoomsListResponse{
		Items:      lo.Map(rooms, func(rm domain.Room, _ int) RoomItem { return toRoomItem(rm) }),
		NextCursor: next,
	})
}

// GET /chat/room/{roomId}
func (h *ChatHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.rooms.GetRoom(r.Context(), roomIDParam(r))
	if err != nil {
		writeError(w, r, "chat.GetRoom", err)
		return
	}
	httputil.JSON(w, http.StatusOK, toRoomItem(*room))
}

// DELETE /chat/room/{roomId}
func (h *ChatHandler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := h.rooms.DeleteRoom(r.Context(), roomIDParam(r)); err != nil {
		writeError(w, r, "chat.DeleteRoom", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /chat/room/{roomId}/messages?limit=&cursor=
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	msgs, next, err := h.chat.History(r.Context(), roomIDParam(r), r.URL.Query().Get("cursor"), queryInt(r, "limit", 0))
	if err != nil {
		writeError(w, r, "chat.History", err)
		return
	}
	httputil.JSON(w, http.StatusOK, MessagesResponse{
		Items:      lo.Map(msgs, func(m domain.ChatMessage, _ int) MessageItem { return toMessageItem(m) }),
		NextCursor: next,
	})
}

// GET /chat/room/{roomId}/members
func (h *ChatHandler) OnlineMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.chat.OnlineMembers(r.Context(), roomIDParam(r))
	if err != nil {
		writeError(w, r, "chat.OnlineMembers", err)
		return
	}
	httputil.JSON(w, http.StatusOK, lo.Map(members, func(m domain.Member, _ int) MemberItem { return toMemberItem(m) }))
}

func roomIDParam(r *http.Request) domain.RoomID {
	return domain.RoomID(chi.URLParam(r, "roomId"))
}

func queryInt(r *http.Request, key string, def int) int {
	if n, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil {
		return n
	}
	return def
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return false
	}
	if err := v.Struct(dst); err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
