package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"idcard/internal/adapters/requests"
	"idcard/internal/avatar"
	"idcard/pkg/domain"
)

type MemberHandler struct {
	requests    *requests.Handler
	adminAPIKey string
	avatars     *avatar.HTTPFetcher
}

type memberResponse struct {
	ID         string `json:"id"`
	OwnerRef   string `json:"owner_ref,omitempty"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Status     string `json:"status"`
	IssuedOn   string `json:"issued_on"`
	InternalID string `json:"internal_id"`
}

func toMemberResponse(m domain.Member) memberResponse {
	return memberResponse{
		ID:         m.ID,
		OwnerRef:   m.OwnerRef,
		Name:       m.Name,
		Role:       m.Role,
		Status:     string(m.Status),
		IssuedOn:   m.IssuedOn,
		InternalID: m.InternalID,
	}
}

type listMembersResponse struct {
	Members []memberResponse `json:"members"`
}

type createMemberRequest struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	OwnerRef string `json:"owner_ref"`
}

type setStatusRequest struct {
	Status string `json:"status"`
}

type setRoleRequest struct {
	Role string `json:"role"`
}

type cardResponse struct {
	Key       string    `json:"key"`
	Size      int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

type cardHistoryResponse struct {
	Cards []cardResponse `json:"cards"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func isAdmin(c *gin.Context) bool {
	return c.GetBool(adminContextKey)
}

// Get returns one member (public).
func (h *MemberHandler) Get(c *gin.Context) {
	res := h.requests.Lookup(c.Request.Context(), requests.LookupRequest{ID: c.Param("id")})
	if !res.OK() {
		writeFailure(c, res.Err)
		return
	}
	c.JSON(http.StatusOK, toMemberResponse(*res.Member))
}

// Card renders the member's card (public). Admin callers may pass avatar_url.
// With cached=1 the newest archived card is served instead of a fresh render.
func (h *MemberHandler) Card(c *gin.Context) {
	if cached, _ := strconv.ParseBool(c.Query("cached")); cached {
		res := h.requests.LatestCard(c.Request.Context(), requests.LatestCardRequest{ID: c.Param("id")})
		if !res.OK() {
			writeFailure(c, res.Err)
			return
		}
		writeCard(c, res)
		return
	}
	req := requests.RenderCardRequest{ID: c.Param("id")}
	if url := c.Query("avatar_url"); url != "" && isAdmin(c) && h.avatars != nil {
		req.AvatarFetcher = requests.AvatarFetcher(h.avatars.URL(url))
	}
	res := h.requests.RenderCard(c.Request.Context(), req)
	if !res.OK() {
		writeFailure(c, res.Err)
		return
	}
	writeCard(c, res)
}

func writeCard(c *gin.Context, res requests.Result) {
	if res.CardURL != "" {
		c.Header("X-Card-URL", res.CardURL)
	}
	c.Data(http.StatusOK, "image/png", res.Card)
}

// Cards lists the member's archived cards (admin).
func (h *MemberHandler) Cards(c *gin.Context) {
	res := h.requests.CardHistory(c.Request.Context(), requests.CardHistoryRequest{
		RequesterIsAdmin: isAdmin(c),
		ID:               c.Param("id"),
	})
	if !res.OK() {
		writeFailure(c, res.Err)
		return
	}
	out := cardHistoryResponse{Cards: make([]cardResponse, 0, len(res.Cards))}
	for _, info := range res.Cards {
		out.Cards = append(out.Cards, cardResponse{Key: info.Key, Size: info.Size, CreatedAt: info.LastModified})
	}
	c.JSON(http.StatusOK, out)
}

// Create registers a member (admin).
func (h *MemberHandler) Create(c *gin.Context) {
	var body createMemberRequest
	if !bindJSON(c, &body) {
		return
	}
	res := h.requests.Register(c.Request.Context(), requests.RegisterRequest{
		RequesterIsAdmin: isAdmin(c),
		Name:             body.Name,
		Role:             body.Role,
		OwnerRef:         body.OwnerRef,
	})
	if !res.OK() {
		writeFailure(c, res.Err)
		return
	}
	c.JSON(http.StatusCreated, toMemberResponse(*res.Member))
}

// List returns every member (admin).
func (h *MemberHandler) List(c *gin.Context) {
	res := h.requests.List(c.Request.Context(), requests.ListRequest{RequesterIsAdmin: isAdmin(c)})
	if !res.OK() {
		writeFailure(c, res.Err)
		return
	}
	resp := listMembersResponse{Members: make([]memberResponse, len(res.Members))}
	for i, m := range res.Members {
		resp.Members[i] = toMemberResponse(m)
	}
	c.JSON(http.StatusOK, resp)
}

// SetStatus changes a member's status (admin).
func (h *MemberHandler) SetStatus(c *gin.Context) {
	var body setStatusRequest
	if !bindJSON(c, &body) {
		return
	}
	res := h.requests.UpdateStatus(c.Request.Context(), requests.UpdateStatusRequest{
		RequesterIsAdmin: isAdmin(c),
		ID:               c.Param("id"),
		Status:           body.Status,
	})
	writeMutation(c, res)
}

// SetRole changes a member's role (admin).
func (h *MemberHandler) SetRole(c *gin.Context) {
	var body setRoleRequest
	if !bindJSON(c, &body) {
		return
	}
	res := h.requests.UpdateRole(c.Request.Context(), requests.UpdateRoleRequest{
		RequesterIsAdmin: isAdmin(c),
		ID:               c.Param("id"),
		Role:             body.Role,
	})
	writeMutation(c, res)
}

// Delete removes a member (admin).
func (h *MemberHandler) Delete(c *gin.Context) {
	res := h.requests.Delete(c.Request.Context(), requests.DeleteRequest{RequesterIsAdmin: isAdmin(c), ID: c.Param("id")})
	if !res.OK() {
		writeFailure(c, res.Err)
		return
	}
	c.Status(http.StatusNoContent)
}

func writeMutation(c *gin.Context, res requests.Result) {
	if !res.OK() {
		writeFailure(c, res.Err)
		return
	}
	if res.Member == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, toMemberResponse(*res.Member))
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body", Kind: string(requests.KindValidation)})
		return false
	}
	return true
}

// StatusFor maps a failure kind to an HTTP status code.
func StatusFor(kind requests.ErrorKind) int {
	switch kind {
	case requests.KindValidation:
		return http.StatusBadRequest
	case requests.KindNotFound:
		return http.StatusNotFound
	case requests.KindAuthorization:
		return http.StatusForbidden
	case requests.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeFailure(c *gin.Context, f *requests.Failure) {
	c.JSON(StatusFor(f.Kind), errorResponse{Error: f.Message, Kind: string(f.Kind)})
}
