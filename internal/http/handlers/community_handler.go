// Community HTTP handlers.
//
//   - GET    /communities                          (list, paginated, ETag support)
//   - GET    /communities/{id}                     (permission config)
//   - PUT    /communities/{id}/relay-channel       (set relay channel)
//   - POST   /communities/{id}/admins|staff        (list a user)
//   - DELETE /communities/{id}/admins|staff/{uid}  (unlist a user)
//   - GET    /status                               (relay counters)
//
// Ticket records are never exposed here.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-relay-bot/internal/domain"
	"github.com/tbourn/go-relay-bot/internal/http/middleware"
	"github.com/tbourn/go-relay-bot/internal/repo"
	"github.com/tbourn/go-relay-bot/internal/services"
	"github.com/tbourn/go-relay-bot/internal/utils"
)

// PermissionStore is the community permission state the API reads and
// writes. Mutations are authorized against actorID.
type PermissionStore interface {
	ListPage(ctx context.Context, page, pageSize int) ([]domain.Community, int64, error)
	Get(ctx context.Context, communityID string) (domain.CommunityConfig, error)
	SetRelayChannel(ctx context.Context, actorID, communityID, channelID string) error
	AddAdmin(ctx context.Context, actorID, communityID, userID string) error
	RemoveAdmin(ctx context.Context, actorID, communityID, userID string) error
	AddStaff(ctx context.Context, actorID, communityID, userID string) error
	RemoveStaff(ctx context.Context, actorID, communityID, userID string) error
}

// RelayStatus exposes in-memory relay counters.
type RelayStatus interface {
	AnonymousSessions() int
	PendingOnboarding() int
}

// TicketStats counts ticket records on disk.
type TicketStats interface {
	Stats() (communities, open int, err error)
}

// Handlers groups the admin API endpoints. relay and tickets may be nil,
// in which case their counters read zero.
type Handlers struct {
	perms   PermissionStore
	relay   RelayStatus
	tickets TicketStats
}

// New binds the handlers to their dependencies.
func New(perms PermissionStore, relay RelayStatus, tickets TicketStats) *Handlers {
	return &Handlers{perms: perms, relay: relay, tickets: tickets}
}

// SetRelayChannelRequest is the body of PUT /communities/{id}/relay-channel.
type SetRelayChannelRequest struct {
	ChannelID string `json:"channel_id" binding:"required" example:"200000000000000001"`
}

// MemberRequest is the body of POST /communities/{id}/admins|staff.
type MemberRequest struct {
	UserID string `json:"user_id" binding:"required" example:"300000000000000001"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListCommunitiesResponse wraps a page of communities.
type ListCommunitiesResponse struct {
	Communities []domain.Community `json:"communities"`
	Pagination  Pagination         `json:"pagination"`
}

// StatusResponse reports relay counters.
type StatusResponse struct {
	AnonymousSessions int `json:"anonymous_sessions"`
	PendingOnboarding int `json:"pending_onboarding"`
	Communities       int `json:"ticket_communities"`
	OpenTickets       int `json:"open_tickets"`
}

// clampPagination reads page and page_size, bounded to 1..100 items per page.
func clampPagination(c *gin.Context) (page, pageSize int) {
	return utils.ClampPage(c.Query("page"), c.Query("page_size"), 20, 100)
}

// actor is the caller recorded by the auth middleware.
func actor(c *gin.Context) string {
	return middleware.Actor(c)
}

// failPermission maps permission-store errors onto the error envelope.
func failPermission(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidID):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "ids must be numeric snowflakes")
	case errors.Is(err, services.ErrNotOwner),
		errors.Is(err, services.ErrNotAdmin),
		errors.Is(err, services.ErrNotStaff):
		fail(c, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case errors.Is(err, services.ErrAlreadyListed):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, services.ErrNotListed):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
	}
}

// ListCommunities godoc
// @ID          listCommunities
// @Summary     List communities (paginated)
// @Description Returns a page of configured communities. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Communities
// @Produce     json
// @Security    BearerAuth
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                 minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"              minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListCommunitiesResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /communities [get]
func (h *Handlers) ListCommunities(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if svc, ok := h.perms.(*services.PermissionService); ok && svc.DB != nil {
		count, maxTS, err := repo.CommunitiesStats(ctx, svc.DB)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"communities:%d:%d:%d:%d"`, count, ts, page, pageSize)
			c.Header("ETag", etag)
			c.Header("Cache-Control", "private, no-cache")
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.perms.ListPage(ctx, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if items == nil {
		items = []domain.Community{}
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListCommunitiesResponse{
		Communities: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetCommunity godoc
// @ID          getCommunity
// @Summary     Get a community's permission config
// @Tags        Communities
// @Produce     json
// @Security    BearerAuth
// @Param       id   path  string  true  "Community ID"  example(100000000000000001)
// @Success     200  {object} domain.CommunityConfig
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "No config set"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /communities/{id} [get]
func (h *Handlers) GetCommunity(c *gin.Context) {
	cfg, err := h.perms.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failPermission(c, err)
		return
	}
	if cfg.IsEmpty() {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "no config set for this community")
		return
	}
	ok(c, http.StatusOK, cfg)
}

// SetRelayChannel godoc
// @ID          setRelayChannel
// @Summary     Set the relay channel
// @Description Designates the channel under which ticket threads are opened.
// @Tags        Communities
// @Accept      json
// @Security    BearerAuth
// @Param       id    path  string                           true  "Community ID"
// @Param       body  body  handlers.SetRelayChannelRequest  true  "Channel"
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /communities/{id}/relay-channel [put]
func (h *Handlers) SetRelayChannel(c *gin.Context) {
	var req SetRelayChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "channel_id required")
		return
	}
	err := h.perms.SetRelayChannel(c.Request.Context(), actor(c), c.Param("id"), strings.TrimSpace(req.ChannelID))
	if err != nil {
		failPermission(c, err)
		return
	}
	noContent(c)
}

// AddAdmin godoc
// @ID          addAdmin
// @Summary     List a relay admin
// @Tags        Communities
// @Accept      json
// @Security    BearerAuth
// @Param       id    path  string                  true  "Community ID"
// @Param       body  body  handlers.MemberRequest  true  "User"
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Failure     409  {object} handlers.ErrorResponse "Already listed"
// @Router      /communities/{id}/admins [post]
func (h *Handlers) AddAdmin(c *gin.Context) { h.addMember(c, h.perms.AddAdmin) }

// RemoveAdmin godoc
// @ID          removeAdmin
// @Summary     Unlist a relay admin
// @Tags        Communities
// @Security    BearerAuth
// @Param       id       path  string  true  "Community ID"
// @Param       user_id  path  string  true  "User ID"
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Failure     404  {object} handlers.ErrorResponse "Not listed"
// @Router      /communities/{id}/admins/{user_id} [delete]
func (h *Handlers) RemoveAdmin(c *gin.Context) { h.removeMember(c, h.perms.RemoveAdmin) }

// AddStaff godoc
// @ID          addStaff
// @Summary     List a relay staff member
// @Tags        Communities
// @Accept      json
// @Security    BearerAuth
// @Param       id    path  string                  true  "Community ID"
// @Param       body  body  handlers.MemberRequest  true  "User"
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Failure     409  {object} handlers.ErrorResponse "Already listed"
// @Router      /communities/{id}/staff [post]
func (h *Handlers) AddStaff(c *gin.Context) { h.addMember(c, h.perms.AddStaff) }

// RemoveStaff godoc
// @ID          removeStaff
// @Summary     Unlist a relay staff member
// @Tags        Communities
// @Security    BearerAuth
// @Param       id       path  string  true  "Community ID"
// @Param       user_id  path  string  true  "User ID"
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Failure     404  {object} handlers.ErrorResponse "Not listed"
// @Router      /communities/{id}/staff/{user_id} [delete]
func (h *Handlers) RemoveStaff(c *gin.Context) { h.removeMember(c, h.perms.RemoveStaff) }

type memberFunc func(ctx context.Context, actorID, communityID, userID string) error

func (h *Handlers) addMember(c *gin.Context, fn memberFunc) {
	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user_id required")
		return
	}
	if err := fn(c.Request.Context(), actor(c), c.Param("id"), strings.TrimSpace(req.UserID)); err != nil {
		failPermission(c, err)
		return
	}
	noContent(c)
}

func (h *Handlers) removeMember(c *gin.Context, fn memberFunc) {
	if err := fn(c.Request.Context(), actor(c), c.Param("id"), c.Param("user_id")); err != nil {
		failPermission(c, err)
		return
	}
	noContent(c)
}

// Status godoc
// @ID          relayStatus
// @Summary     Relay counters
// @Description Anonymous sessions held in memory, pending onboarding flows and ticket record counts.
// @Tags        Status
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object} handlers.StatusResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /status [get]
func (h *Handlers) Status(c *gin.Context) {
	var resp StatusResponse
	if h.relay != nil {
		resp.AnonymousSessions = h.relay.AnonymousSessions()
		resp.PendingOnboarding = h.relay.PendingOnboarding()
	}
	if h.tickets != nil {
		communities, open, err := h.tickets.Stats()
		if err != nil {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
			return
		}
		resp.Communities, resp.OpenTickets = communities, open
	}
	ok(c, http.StatusOK, resp)
}
