package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/peerpress/peerpress-api/internal/dto"
	"github.com/peerpress/peerpress-api/internal/models"
	appErrors "github.com/peerpress/peerpress-api/pkg/errors"
	"github.com/peerpress/peerpress-api/pkg/export"
	"github.com/peerpress/peerpress-api/pkg/response"
)

type eventService interface {
	Create(ctx context.Context, actor *models.JWTClaims, paperID string, req dto.CreateEventRequest) (*models.PaperEvent, error)
	GetVisible(ctx context.Context, eventID, viewerID string) (*models.PaperEvent, error)
	VisibleEventIDs(ctx context.Context, viewerID string) ([]string, error)
	CanEdit(ctx context.Context, user *models.JWTClaims, eventID string) (bool, error)
	Update(ctx context.Context, user *models.JWTClaims, eventID string, req dto.UpdateEventRequest) (*models.PaperEvent, error)
	PaperTimeline(ctx context.Context, viewerID, paperID string) (*models.Paper, []models.PaperEvent, error)
}

type timelineExporter interface {
	Render(title string, rows []export.TimelineRow) ([]byte, error)
}

// EventHandler exposes the paper-event endpoints.
type EventHandler struct {
	service  eventService
	exporter timelineExporter
}

// NewEventHandler builds a new handler. The exporter is optional; without it
// the timeline PDF endpoint reports exports disabled.
func NewEventHandler(service eventService, exporter timelineExporter) *EventHandler {
	return &EventHandler{service: service, exporter: exporter}
}

// Create godoc
// @Summary Record an event on a paper
// @Tags Events
// @Accept json
// @Produce json
// @Param paperId path string true "Paper ID"
// @Param payload body dto.CreateEventRequest true "Event payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /papers/{paperId}/events [post]
func (h *EventHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid event payload"))
		return
	}

	event, err := h.service.Create(c.Request.Context(), claims, c.Param("paperId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// Feed godoc
// @Summary List event ids visible to the caller
// @Tags Events
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /events/feed [get]
func (h *EventHandler) Feed(c *gin.Context) {
	ids, err := h.service.VisibleEventIDs(c.Request.Context(), viewerIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	response.JSON(c, http.StatusOK, dto.EventFeed{EventIDs: ids}, nil)
}

// Get godoc
// @Summary Fetch a single event
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/{id} [get]
func (h *EventHandler) Get(c *gin.Context) {
	event, err := h.service.GetVisible(c.Request.Context(), c.Param("id"), viewerIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Update godoc
// @Summary Patch an event's visibility or status
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body dto.UpdateEventRequest true "Patch payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/{id} [patch]
func (h *EventHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid patch payload"))
		return
	}

	event, err := h.service.Update(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Editable godoc
// @Summary Check whether the caller may edit an event
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/editable [get]
func (h *EventHandler) Editable(c *gin.Context) {
	claims := claimsFromContext(c)
	editable, err := h.service.CanEdit(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.EditableResponse{Editable: editable}, nil)
}

// TimelinePDF godoc
// @Summary Export a paper's visible timeline as PDF
// @Tags Events
// @Produce application/pdf
// @Param paperId path string true "Paper ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /papers/{paperId}/timeline.pdf [get]
func (h *EventHandler) TimelinePDF(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotImplemented, "exports are disabled"))
		return
	}

	paper, events, err := h.service.PaperTimeline(c.Request.Context(), viewerIDFromContext(c), c.Param("paperId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	rows := make([]export.TimelineRow, 0, len(events))
	for _, event := range events {
		rows = append(rows, export.TimelineRow{
			Date:       event.EventDate.Format("2006-01-02"),
			Type:       string(event.Type),
			Actor:      event.ActorID,
			Visibility: strings.Join(event.Visibility, ", "),
		})
	}

	data, err := h.exporter.Render(paper.Title, rows)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timeline"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=timeline-%s.pdf", paper.ID))
	c.Data(http.StatusOK, "application/pdf", data)
}
