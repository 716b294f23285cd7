package api

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/skyhop/skyhop_core/internal/cache"
	"github.com/skyhop/skyhop_core/internal/db"
	"github.com/skyhop/skyhop_core/internal/models"
	"github.com/skyhop/skyhop_core/internal/schedule"
	"github.com/skyhop/skyhop_core/internal/search"
)

// Handlers owns the HTTP surface over the search engine
type Handlers struct {
	Engine *search.Engine
	Store  *schedule.MemoryStore
	Cfg    search.Config
}

// SearchRequest is the wire-level search request
type SearchRequest struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Date        string `json:"date"` // ISO 8601 date
	MaxHops     *int   `json:"max_hops"`
	MaxResults  int    `json:"max_results"`
	Sort        string `json:"sort"`
}

// SearchMeta reports result metadata; Returned is distinct from the
// candidate count found before truncation
type SearchMeta struct {
	Returned   int    `json:"returned"`
	TotalFound int    `json:"total_found"`
	MaxResults int    `json:"max_results"`
	Truncated  bool   `json:"truncated"`
	Note       string `json:"note,omitempty"`
}

// SearchResponse is the wire-level search response
type SearchResponse struct {
	SearchID    string             `json:"search_id"`
	Origin      string             `json:"origin"`
	Destination string             `json:"destination"`
	Itineraries []models.Itinerary `json:"itineraries"`
	Meta        SearchMeta         `json:"meta"`
}

// Search handles POST /v1/search
func (h *Handlers) Search(c *fiber.Ctx) error {
	var req SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   string(search.CodeInvalidRequest),
			"message": "malformed request body",
		})
	}

	date, err := time.ParseInLocation("2006-01-02", req.Date, time.UTC)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   string(search.CodeInvalidRequest),
			"message": "date must be an ISO 8601 date (YYYY-MM-DD)",
		})
	}

	maxHops := h.Cfg.DefaultMaxHops
	if req.MaxHops != nil {
		maxHops = *req.MaxHops
	}
	sortKey, ok := search.ParseSortKey(req.Sort)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   string(search.CodeInvalidRequest),
			"message": "sort must be one of price, duration, departure_time",
		})
	}

	res, err := h.Engine.Search(c.Context(), search.Request{
		Origin:      req.Origin,
		Destination: req.Destination,
		Date:        date,
		MaxHops:     maxHops,
		MaxResults:  req.MaxResults,
		Sort:        sortKey,
	})
	if err != nil {
		return searchErrorResponse(c, err)
	}

	itins := res.Itineraries
	if itins == nil {
		itins = []models.Itinerary{}
	}

	return c.JSON(SearchResponse{
		SearchID:    res.SearchID,
		Origin:      req.Origin,
		Destination: req.Destination,
		Itineraries: itins,
		Meta: SearchMeta{
			Returned:   res.Returned,
			TotalFound: res.TotalFound,
			MaxResults: res.MaxResults,
			Truncated:  res.Truncated,
			Note:       res.Note,
		},
	})
}

// searchErrorResponse maps the engine error taxonomy onto HTTP statuses
func searchErrorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch search.CodeOf(err) {
	case search.CodeInvalidRequest:
		status = fiber.StatusBadRequest
	case search.CodeSourceUnavailable:
		status = fiber.StatusServiceUnavailable
	case search.CodeDeadlineExceeded:
		status = fiber.StatusGatewayTimeout
	}

	var se *search.Error
	message := "internal server error"
	if errors.As(err, &se) {
		message = se.Message
	}
	if status == fiber.StatusInternalServerError {
		log.Printf("search failed: %v", err)
	}

	return c.Status(status).JSON(fiber.Map{
		"error":   string(search.CodeOf(err)),
		"message": message,
	})
}

// DeparturesResponse lists scheduled departures from one airport
type DeparturesResponse struct {
	Airport    string       `json:"airport"`
	Date       string       `json:"date"`
	Departures []models.Leg `json:"departures"`
	Total      int          `json:"total"`
}

// Departures handles GET /v1/airports/:code/departures
func (h *Handlers) Departures(c *fiber.Ctx) error {
	code := strings.ToUpper(c.Params("code"))
	if len(code) != 3 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   string(search.CodeInvalidRequest),
			"message": "airport must be a 3-letter IATA code",
		})
	}

	dateStr := c.Query("date", time.Now().UTC().Format("2006-01-02"))
	date, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   string(search.CodeInvalidRequest),
			"message": "date must be an ISO 8601 date (YYYY-MM-DD)",
		})
	}

	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}

	window := models.TimeWindow{Start: date, End: date.Add(24 * time.Hour)}
	legs, err := h.Store.LegsFrom(c.Context(), code, window, limit)
	if err != nil {
		return searchErrorResponse(c, err)
	}
	if legs == nil {
		legs = []models.Leg{}
	}

	return c.JSON(DeparturesResponse{
		Airport:    code,
		Date:       dateStr,
		Departures: legs,
		Total:      len(legs),
	})
}

// Health handles the /health endpoint
func (h *Handlers) Health(c *fiber.Ctx) error {
	ctx := c.Context()

	dbStatus := "ok"
	dbErr := db.HealthCheck(ctx)
	if dbErr != nil {
		dbStatus = dbErr.Error()
	}

	redisStatus := "ok"
	redisErr := cache.HealthCheck(ctx)
	if redisErr != nil {
		redisStatus = redisErr.Error()
	}

	scheduleStatus := "ok"
	if h.Store == nil || !h.Store.IsLoaded() {
		scheduleStatus = "schedule index not loaded"
	}

	status := "healthy"
	httpStatus := fiber.StatusOK
	if dbErr != nil || redisErr != nil || scheduleStatus != "ok" {
		status = "unhealthy"
		httpStatus = fiber.StatusServiceUnavailable
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
			"schedule": scheduleStatus,
		},
	})
}
