package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/ksrnb/reunion-ticketing/internal/config"
	"github.com/ksrnb/reunion-ticketing/internal/middleware"
	"github.com/ksrnb/reunion-ticketing/internal/model"
	"github.com/ksrnb/reunion-ticketing/internal/repository"
)

// EventHandler serves the single configurable event. The public
// GET sits behind the Redis response cache; the admin PUT busts it
// after every change.
type EventHandler struct {
	Events   *repository.EventRepo
	CacheCfg config.CacheConfig
	RDB      *redis.Client
}

func NewEventHandler(e *repository.EventRepo, cacheCfg config.CacheConfig, rdb *redis.Client) *EventHandler {
	return &EventHandler{Events: e, CacheCfg: cacheCfg, RDB: rdb}
}

type eventReq struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"` // RFC 3339
	Venue       string `json:"venue"`
	Price       int64  `json:"price"`
	BannerURL   string `json:"banner_url"`
}

type eventPart struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Venue       string    `json:"venue"`
	Price       int64     `json:"price"`
	BannerURL   string    `json:"banner_url"`
	Version     uint64    `json:"version"`
}

func toEventPart(e *model.Event) eventPart {
	return eventPart{
		Title:       e.Title,
		Description: e.Description,
		Date:        e.Date,
		Venue:       e.Venue,
		Price:       e.Price,
		BannerURL:   e.BannerURL,
		Version:     e.Version,
	}
}

// Get returns the current event configuration. Public; no token
// required so the landing page can render before login.
func (h *EventHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	e, err := h.Events.Get(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"event": toEventPart(e)})
}

// Upsert creates or merges the event configuration. Omitted fields
// keep their stored values; every write bumps the version and
// invalidates the response cache.
func (h *EventHandler) Upsert(c echo.Context) error {
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Price < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must not be negative"})
	}

	var date time.Time
	if req.Date != "" {
		var err error
		date, err = time.Parse(time.RFC3339, req.Date)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be RFC 3339"})
		}
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	e := model.Event{
		Title:       req.Title,
		Description: req.Description,
		Date:        date,
		Venue:       req.Venue,
		Price:       req.Price,
		BannerURL:   req.BannerURL,
	}
	if err := h.Events.Upsert(ctx, &e); err != nil {
		return fail(c, err)
	}
	middleware.BustCache(ctx, h.CacheCfg, h.RDB)

	return c.JSON(http.StatusOK, echo.Map{"event": toEventPart(&e)})
}
