package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/meetpoint/service-meeting/internal/platform/auth"
	"github.com/meetpoint/service-meeting/internal/platform/middleware"
	"github.com/meetpoint/service-meeting/internal/platform/response"
	"github.com/meetpoint/service-meeting/pkg/geocoder"
	"go.uber.org/zap"
)

// GeocodeHandler proxies address lookups so the API key stays server side.
type GeocodeHandler struct {
	geocoder geocoder.Geocoder
	logger   *zap.Logger
}

// NewGeocodeHandler creates a new GeocodeHandler.
func NewGeocodeHandler(g geocoder.Geocoder, logger *zap.Logger) *GeocodeHandler {
	return &GeocodeHandler{geocoder: g, logger: logger}
}

// RegisterRoutes registers the geocode routes.
func (h *GeocodeHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	geocode := r.Group("/api/v1/geocode")
	geocode.Use(middleware.AuthMiddleware(jwtManager))
	{
		geocode.GET("/search", h.Search)
		geocode.GET("/reverse", h.Reverse)
	}
}

// Search handles GET /api/v1/geocode/search?q=.
func (h *GeocodeHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		response.BadRequest(c, "q is required")
		return
	}

	candidates, err := h.geocoder.Search(c.Request.Context(), query)
	if err != nil {
		h.upstreamError(c, err)
		return
	}

	response.Success(c, nonNil(candidates))
}

// Reverse handles GET /api/v1/geocode/reverse?lng=&lat=.
func (h *GeocodeHandler) Reverse(c *gin.Context) {
	point, err := parseCoordinate(c, "lng", "lat")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if !point.Valid() {
		response.BadRequest(c, "coordinate out of range")
		return
	}

	candidates, err := h.geocoder.Reverse(c.Request.Context(), point)
	if err != nil {
		h.upstreamError(c, err)
		return
	}

	response.Success(c, nonNil(candidates))
}

func (h *GeocodeHandler) upstreamError(c *gin.Context, err error) {
	if errors.Is(err, geocoder.ErrEmptyQuery) {
		response.BadRequest(c, err.Error())
		return
	}
	h.logger.Warn("geocoder lookup failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadGateway, response.Envelope{Error: "geocoder unavailable"})
}

func nonNil(candidates []geocoder.AddressCandidate) []geocoder.AddressCandidate {
	if candidates == nil {
		return []geocoder.AddressCandidate{}
	}
	return candidates
}
