package http

import (
	"net/http"

	"github.com/cwrk-planet/chat-relay/internal/domain"
	"github.com/cwrk-planet/chat-relay/internal/service"
	"github.com/cwrk-planet/chat-relay/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

type MemberHandler struct {
	members  *service.MemberService
	validate *validator.Validate
}

func NewMemberHandler(members *service.MemberService, v *validator.Validate) *MemberHandler {
	return &MemberHandler{members: members, validate: v}
}

// GET /member/check?email= answers true when the email is still free.
func (h *MemberHandler) Check(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if err := h.validate.Var(email, "required,email"); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid email")
		return
	}
	exists, err := h.members.IsMember(r.Context(), email)
	if err != nil {
		writeError(w, r, "member.Check", err)
		return
	}
	httputil.JSON(w, http.StatusOK, !exists)
}

// POST /member/new
func (h *MemberHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	m, err := h.members.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Image:    req.Image,
	})
	if err != nil {
		writeError(w, r, "member.Register", err)
		return
	}
	httputil.JSON(w, http.StatusCreated, toMemberItem(*m))
}

// GET /member/list
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.members.List(r.Context())
	if err != nil {
		writeError(w, r, "member.List", err)
		return
	}
	httputil.JSON(w, http.StatusOK, toMemberItems(members))
}

// GET /member/list/page?page=&size=
func (h *MemberHandler) ListPage(w http.ResponseWriter, r *http.Request) {
	members, err := h.members.ListPage(r.Context(), queryInt(r, "page", 0), queryInt(r, "size", 20))
	if err != nil {
		writeError(w, r, "member.ListPage", err)
		return
	}
	httputil.JSON(w, http.StatusOK, toMemberItems(members))
}

// GET /member/list/count?size=
func (h *MemberHandler) PageCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.members.PageCount(r.Context(), queryInt(r, "size", 20))
	if err != nil {
		writeError(w, r, "member.PageCount", err)
		return
	}
	httputil.JSON(w, http.StatusOK, PageCountResponse{TotalPages: n})
}

// GET /member/detail/{email}
func (h *MemberHandler) Detail(w http.ResponseWriter, r *http.Request) {
	m, err := h.members.Detail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		writeError(w, r, "member.Detail", err)
		return
	}
	httputil.JSON(w, http.StatusOK, toMemberItem(*m))
}

// PUT /member/modify
func (h *MemberHandler) Modify(w http.ResponseWriter, r *http.Request) {
	var req ModifyRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	if err := h.members.Modify(r.Context(), req.Email, req.Name, req.Image); err != nil {
		writeError(w, r, "member.Modify", err)
		return
	}
	httputil.JSON(w, http.StatusOK, true)
}

// DELETE /member/del/{email}
func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.members.Delete(r.Context(), chi.URLParam(r, "email")); err != nil {
		writeError(w, r, "member.Delete", err)
		return
	}
	httputil.JSON(w, http.StatusOK, true)
}

// POST /member/login
func (h *MemberHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	m, err := h.members.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, "member.Login", err)
		return
	}
	httputil.JSON(w, http.StatusOK, toMemberItem(*m))
}

func toMemberItems(ms []domain.Member) []MemberItem {
	return lo.Map(ms, func(m domain.Member, _ int) MemberItem { return toMemberItem(m) })
}
