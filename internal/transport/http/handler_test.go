package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cwrk-planet/chat-relay/internal/chat"
	"github.com/cwrk-planet/chat-relay/internal/domain"
	"github.com/cwrk-planet/chat-relay/internal/memstore"
	"github.com/cwrk-planet/chat-relay/internal/security"
	"github.com/cwrk-planet/chat-relay/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	router   http.Handler
	presence *chat.MembershipTable
	messages *memstore.MessageStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	memberRepo := memstore.NewMemberStore()
	messages := memstore.NewMessageStore()
	presence := chat.NewMembershipTable()

	memberSvc := service.NewMemberService(memberRepo, &security.BcryptConfig{Cost: bcrypt.MinCost})
	roomSvc := service.NewRoomService(memstore.NewRoomStore(), memberRepo)
	chatSvc := service.NewChatService(messages, roomSvc, memberRepo, presence)

	v := validator.New()
	router := NewRouter(Deps{
		Chat:    NewChatHandler(roomSvc, chatSvc, v),
		Members: NewMemberHandler(memberSvc, v),
	})
	return &fixture{router: router, presence: presence, messages: messages}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func (f *fixture) register(t *testing.T, email, name string) MemberItem {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/member/new", RegisterRequest{Email: email, Password: "secret1", Name: name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[MemberItem](t, rec)
}

func (f *fixture) createRoom(t *testing.T, name string) RoomItem {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/chat/new", CreateRoomRequest{Name: name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[RoomItem](t, rec)
}

func TestMember_RegisterCheckAndConflict(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// Given: a free email
	rec := f.do(t, http.MethodGet, "/member/check?email=alice@x.com", nil)
	req.Equal(http.StatusOK, rec.Code)
	req.True(decode[bool](t, rec))

	// When: it is registered
	m := f.register(t, "alice@x.com", "alice")
	req.NotZero(m.ID)
	req.NotContains(f.do(t, http.MethodGet, "/member/detail/alice@x.com", nil).Body.String(), "password")

	// Then: the email is taken and a second registration conflicts
	req.False(decode[bool](t, f.do(t, http.MethodGet, "/member/check?email=alice@x.com", nil)))
	rec = f.do(t, http.MethodPost, "/member/new", RegisterRequest{Email: "alice@x.com", Password: "secret1", Name: "other"})
	req.Equal(http.StatusConflict, rec.Code)
}

func TestMember_ValidationErrors(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	req.Equal(http.StatusBadRequest, f.do(t, http.MethodGet, "/member/check?email=nope", nil).Code)
	req.Equal(http.StatusBadRequest, f.do(t, http.MethodPost, "/member/new", RegisterRequest{Email: "bad", Password: "secret1", Name: "x"}).Code)
	req.Equal(http.StatusBadRequest, f.do(t, http.MethodPost, "/member/new", RegisterRequest{Email: "a@x.com", Password: "1", Name: "x"}).Code)

	raw := httptest.NewRequest(http.MethodPost, "/member/new", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, raw)
	req.Equal(http.StatusBadRequest, rec.Code)
}

func TestMember_Login(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.register(t, "alice@x.com", "alice")

	rec := f.do(t, http.MethodPost, "/member/login", LoginRequest{Email: "alice@x.com", Password: "wrong-one"})
	req.Equal(http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/member/login", LoginRequest{Email: "nobody@x.com", Password: "secret1"})
	req.Equal(http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/member/login", LoginRequest{Email: "alice@x.com", Password: "secret1"})
	req.Equal(http.StatusOK, rec.Code)
	req.Equal("alice", decode[MemberItem](t, rec).Name)
}

func TestMember_ListPagingModifyDelete(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	for _, n := range []string{"a", "b", "c"} {
		f.register(t, n+"@x.com", n)
	}

	req.Len(decode[[]MemberItem](t, f.do(t, http.MethodGet, "/member/list", nil)), 3)

	page := decode[[]MemberItem](t, f.do(t, http.MethodGet, "/member/list/page?page=1&size=2", nil))
	req.Len(page, 1)
	req.Equal("c", page[0].Name)

	count := decode[PageCountResponse](t, f.do(t, http.MethodGet, "/member/list/count?size=2", nil))
	req.Equal(2, count.TotalPages)
	req.Equal(http.StatusBadRequest, f.do(t, http.MethodGet, "/member/list/count?size=0", nil).Code)

	rec := f.do(t, http.MethodPut, "/member/modify", ModifyRequest{Email: "a@x.com", Name: "anna"})
	req.Equal(http.StatusOK, rec.Code)
	req.Equal("anna", decode[MemberItem](t, f.do(t, http.MethodGet, "/member/detail/a@x.com", nil)).Name)

	req.Equal(http.StatusOK, f.do(t, http.MethodDelete, "/member/del/a@x.com", nil).Code)
	req.Equal(http.StatusNotFound, f.do(t, http.MethodGet, "/member/detail/a@x.com", nil).Code)
	req.Equal(http.StatusNotFound, f.do(t, http.MethodDelete, "/member/del/a@x.com", nil).Code)
}

func TestChat_RoomLifecycle(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	room := f.createRoom(t, "general")
	req.NotEmpty(room.ID)

	got := decode[RoomItem](t, f.do(t, http.MethodGet, "/chat/room/"+string(room.ID), nil))
	req.Equal("general", got.Name)

	list := decode[RoomsListResponse](t, f.do(t, http.MethodGet, "/chat/list", nil))
	req.Len(list.Items, 1)

	req.Equal(http.StatusNoContent, f.do(t, http.MethodDelete, "/chat/room/"+string(room.ID), nil).Code)
	req.Equal(http.StatusNotFound, f.do(t, http.MethodGet, "/chat/room/"+string(room.ID), nil).Code)
}

func TestChat_CreateRoomWithUnknownCreator(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/chat/new", CreateRoomRequest{Email: "ghost@x.com", Name: "general"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChat_HistoryAndOnlineMembers(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	alice := f.register(t, "alice@x.com", "alice")
	room := f.createRoom(t, "general")

	base := time.Now().UTC()
	for i, text := range []string{"one", "two", "three"} {
		req.NoError(f.messages.Append(context.Background(), domain.ChatMessage{
			ID:        string(rune('a' + i)),
			RoomID:    room.ID,
			Type:      domain.MessageTalk,
			Sender:    "alice",
			Message:   text,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	// newest first, two per page
	first := decode[MessagesResponse](t, f.do(t, http.MethodGet, "/chat/room/"+string(room.ID)+"/messages?limit=2", nil))
	req.Len(first.Items, 2)
	req.Equal("three", first.Items[0].Message)
	req.NotEmpty(first.NextCursor)

	second := decode[MessagesResponse](t, f.do(t, http.MethodGet, "/chat/room/"+string(room.ID)+"/messages?limit=2&cursor="+first.NextCursor, nil))
	req.Len(second.Items, 1)
	req.Equal("one", second.Items[0].Message)
	req.Empty(second.NextCursor)

	req.Equal(http.StatusBadRequest, f.do(t, http.MethodGet, "/chat/room/"+string(room.ID)+"/messages?cursor=!!!", nil).Code)
	req.Equal(http.StatusNotFound, f.do(t, http.MethodGet, "/chat/room/nope/messages", nil).Code)

	// presence comes from the live membership table
	req.Empty(decode[[]MemberItem](t, f.do(t, http.MethodGet, "/chat/room/"+string(room.ID)+"/members", nil)))
	f.presence.Join(room.ID, alice.ID)
	online := decode[[]MemberItem](t, f.do(t, http.MethodGet, "/chat/room/"+string(room.ID)+"/members", nil))
	req.Len(online, 1)
	req.Equal("alice", online[0].Name)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", nil)
	req.Equal(http.StatusOK, rec.Code)
	req.Equal("ok", rec.Body.String())

	f.do(t, http.MethodGet, "/chat/list", nil)
	rec = f.do(t, http.MethodGet, "/metrics", nil)
	req.Equal(http.StatusOK, rec.Code)
	req.Contains(rec.Body.String(), "chat_relay_http_requests_total")
	req.NotEmpty(f.do(t, http.MethodGet, "/healthz", nil).Header().Get("X-Request-ID"))
}
