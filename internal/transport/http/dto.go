package http

import (
	"time"

	"github.com/cwrk-planet/chat-relay/internal/domain"
)

type CreateRoomRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
	Name  string `json:"name" validate:"required,max=100"`
}

type RoomItem struct {
	ID      domain.RoomID `json:"roomId"`
	Name    string        `json:"name"`
	RegDate time.Time     `json:"regDate"`
}

type RoomsListResponse struct {
	Items      []RoomItem `json:"items"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

type MessageItem struct {
	ID        string             `json:"id"`
	RoomID    domain.RoomID      `json:"roomId"`
	Type      domain.MessageType `json:"type"`
	Sender    string             `json:"sender"`
	Message   string             `json:"message"`
	CreatedAt time.Time          `json:"createdAt"`
}

type MessagesResponse struct {
	Items      []MessageItem `json:"items"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required,max=50"`
	Image    string `json:"image" validate:"omitempty,max=512"`
}

type ModifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,max=50"`
	Image string `json:"image" validate:"omitempty,max=512"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// MemberItem is the public view of a member; the password hash never
// leaves the service.
type MemberItem struct {
	ID      domain.MemberID `json:"memberId"`
	Email   string          `json:"email"`
	Name    string          `json:"name"`
	Image   string          `json:"image"`
	RegDate time.Time       `json:"regDate"`
}

type PageCountResponse struct {
	TotalPages int `json:"totalPages"`
}

func toRoomItem(r domain.Room) RoomItem {
	return RoomItem{ID: r.ID, Name: r.Name, RegDate: r.RegDate}
}

func toMemberItem(m domain.Member) MemberItem {
	return MemberItem{ID: m.ID, Email: m.Email, Name: m.Name, Image: m.Image, RegDate: m.RegDate}
}

func toMessageItem(m domain.ChatMessage) MessageItem {
	return MessageItem{ID: m.ID, RoomID: m.RoomID, Type: m.Type, Sender: m.Sender, Message: m.Message, CreatedAt: m.CreatedAt}
}
