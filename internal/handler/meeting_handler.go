package handler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/meetpoint/service-meeting/internal/application"
	"github.com/meetpoint/service-meeting/internal/platform/auth"
	"github.com/meetpoint/service-meeting/internal/platform/domain"
	"github.com/meetpoint/service-meeting/internal/platform/middleware"
	"github.com/meetpoint/service-meeting/internal/platform/response"
	"github.com/meetpoint/service-meeting/pkg/geo"
)

// MeetingService is the set of use cases the meeting routes call.
type MeetingService interface {
	CreateMeeting(ctx context.Context, ownerID uuid.UUID, req application.MeetingRequest) (*application.CreateMeetingResult, error)
	UpdateMeeting(ctx context.Context, userID, meetingID uuid.UUID, req application.MeetingRequest) (*application.MeetingDTO, error)
	DeleteMeeting(ctx context.Context, userID, meetingID uuid.UUID) error
	GetMeeting(ctx context.Context, meetingID uuid.UUID) (*application.MeetingDTO, error)
	ListMyMeetings(ctx context.Context, userID uuid.UUID, page, limit int) (*domain.PaginatedResult[application.MeetingDTO], error)
	NearMeetings(ctx context.Context, point geo.Coordinate, date *time.Time) ([]application.MeetingDTO, error)
	MeetingsInBounds(ctx context.Context, bounds geo.Bounds, date *time.Time, tzOffsetMinutes int) ([]application.MeetingDTO, error)
	JoinMeeting(ctx context.Context, userID, meetingID uuid.UUID) (*application.MeetingDTO, error)
	LeaveMeeting(ctx context.Context, userID, meetingID uuid.UUID) (*application.MeetingDTO, error)
}

// MeetingHandler handles HTTP requests for meeting operations.
type MeetingHandler struct {
	service MeetingService
}

// NewMeetingHandler creates a new MeetingHandler.
func NewMeetingHandler(service MeetingService) *MeetingHandler {
	return &MeetingHandler{service: service}
}

// RegisterRoutes registers all meeting routes on the given router group.
func (h *MeetingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	meetings := r.Group("/api/v1/meetings")
	meetings.Use(authMW)
	{
		meetings.POST("", h.CreateMeeting)
		meetings.GET("", h.ListMeetings)
		meetings.GET("/near", h.NearMeetings)
		meetings.GET("/bounds", h.MeetingsInBounds)
		meetings.GET("/:id", h.GetMeeting)
		meetings.PUT("/:id", h.UpdateMeeting)
		meetings.DELETE("/:id", h.DeleteMeeting)
		meetings.POST("/:id/join", h.JoinMeeting)
		meetings.POST("/:id/leave", h.LeaveMeeting)
	}
}

// CreateMeeting handles POST /api/v1/meetings. It answers 201 with the new id,
// or 200 with the nearby meetings that prevented creation.
func (h *MeetingHandler) CreateMeeting(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req application.MeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateMeeting(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	if result.Created() {
		response.Created(c, result)
		return
	}
	response.Success(c, result)
}

// ListMeetings handles GET /api/v1/meetings: meetings the caller owns or follows.
func (h *MeetingHandler) ListMeetings(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	page, limit := parsePagination(c)
	result, err := h.service.ListMyMeetings(c.Request.Context(), userID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// NearMeetings handles GET /api/v1/meetings/near?lng=&lat=&date=.
func (h *MeetingHandler) NearMeetings(c *gin.Context) {
	point, err := parseCoordinate(c, "lng", "lat")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	date, err := parseDate(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.NearMeetings(c.Request.Context(), point, date)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// MeetingsInBounds handles
// GET /api/v1/meetings/bounds?ul_lng=&ul_lat=&lr_lng=&lr_lat=&date=&tz_offset=.
func (h *MeetingHandler) MeetingsInBounds(c *gin.Context) {
	upperLeft, err := parseCoordinate(c, "ul_lng", "ul_lat")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	lowerRight, err := parseCoordinate(c, "lr_lng", "lr_lat")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	date, err := parseDate(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	tzOffset, err := strconv.Atoi(c.DefaultQuery("tz_offset", "0"))
	if err != nil {
		response.BadRequest(c, "invalid tz_offset")
		return
	}

	bounds := geo.Bounds{UpperLeft: upperLeft, LowerRight: lowerRight}
	result, err := h.service.MeetingsInBounds(c.Request.Context(), bounds, date, tzOffset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetMeeting handles GET /api/v1/meetings/:id.
func (h *MeetingHandler) GetMeeting(c *gin.Context) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting ID")
		return
	}

	result, err := h.service.GetMeeting(c.Request.Context(), meetingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateMeeting handles PUT /api/v1/meetings/:id.
func (h *MeetingHandler) UpdateMeeting(c *gin.Context) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting ID")
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req application.MeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpdateMeeting(c.Request.Context(), userID, meetingID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// DeleteMeeting handles DELETE /api/v1/meetings/:id.
func (h *MeetingHandler) DeleteMeeting(c *gin.Context) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting ID")
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	if err := h.service.DeleteMeeting(c.Request.Context(), userID, meetingID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// JoinMeeting handles POST /api/v1/meetings/:id/join.
func (h *MeetingHandler) JoinMeeting(c *gin.Context) {
	h.follow(c, h.service.JoinMeeting)
}

// LeaveMeeting handles POST /api/v1/meetings/:id/leave.
func (h *MeetingHandler) LeaveMeeting(c *gin.Context) {
	h.follow(c, h.service.LeaveMeeting)
}

func (h *MeetingHandler) follow(c *gin.Context, op func(context.Context, uuid.UUID, uuid.UUID) (*application.MeetingDTO, error)) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting ID")
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	result, err := op(c.Request.Context(), userID, meetingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}

func parseCoordinate(c *gin.Context, lngKey, latKey string) (geo.Coordinate, error) {
	lng, err := strconv.ParseFloat(c.Query(lngKey), 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("invalid %s", lngKey)
	}
	lat, err := strconv.ParseFloat(c.Query(latKey), 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("invalid %s", latKey)
	}
	return geo.NewCoordinate(lng, lat), nil
}

// parseDate reads the optional RFC 3339 date query parameter.
func parseDate(c *gin.Context) (*time.Time, error) {
	raw := c.Query("date")
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date, expected RFC 3339")
	}
	return &t, nil
}

// Compile-time check.
var _ MeetingService = (*application.MeetingService)(nil)
