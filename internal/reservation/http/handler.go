package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/reservation-service/internal/pkg/apperror"
	"github.com/nekogravitycat/reservation-service/internal/pkg/request"
	"github.com/nekogravitycat/reservation-service/internal/pkg/response"
	"github.com/nekogravitycat/reservation-service/internal/reservation"
)

const ndjsonContentType = "application/x-ndjson"

type Handler struct {
	manager reservation.Manager
}

func NewHandler(manager reservation.Manager) *Handler {
	return &Handler{manager: manager}
}

func (h *Handler) Reserve(c *gin.Context) {
	var body CreateReservationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	rsvp, err := body.ToReservation()
	if err != nil {
		renderError(c, err)
		return
	}

	created, err := h.manager.Reserve(c.Request.Context(), rsvp)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewReservationResponse(created))
}

func (h *Handler) Confirm(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}

	rsvp, err := h.manager.ChangeStatus(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewReservationResponse(rsvp))
}

func (h *Handler) UpdateNote(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}

	var body UpdateNoteRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	rsvp, err := h.manager.UpdateNote(c.Request.Context(), id, *body.Note)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewReservationResponse(rsvp))
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}

	if err := h.manager.Delete(c.Request.Context(), id); err != nil {
		renderError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}

	rsvp, err := h.manager.Get(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewReservationResponse(rsvp))
}

// Query streams matching reservations as newline-delimited JSON. An error
// before the first row becomes a regular error response; an error after
// streaming has started is written as a final {"error": ...} line.
func (h *Handler) Query(c *gin.Context) {
	var req QueryReservationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	q, err := req.ToQuery()
	if err != nil {
		renderError(c, err)
		return
	}

	results := h.manager.Query(c.Request.Context(), q)

	first, ok := <-results
	if ok && first.Err != nil {
		renderError(c, first.Err)
		return
	}

	c.Header("Content-Type", ndjsonContentType)
	c.Status(http.StatusOK)
	if !ok {
		c.Writer.WriteHeaderNow()
		return
	}

	enc := json.NewEncoder(c.Writer)
	if err := enc.Encode(NewReservationResponse(first.Reservation)); err != nil {
		return
	}
	c.Writer.Flush()

	for res := range results {
		if res.Err != nil {
			_ = c.Error(res.Err)
			_ = enc.Encode(response.ErrorResponse{Error: errorMessage(res.Err)})
			return
		}
		if err := enc.Encode(NewReservationResponse(res.Reservation)); err != nil {
			return
		}
		c.Writer.Flush()
	}
}

func (h *Handler) Filter(c *gin.Context) {
	var req FilterReservationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	pager, rows, err := h.manager.Filter(c.Request.Context(), req.ToFilter())
	if err != nil {
		renderError(c, err)
		return
	}

	items := make([]ReservationResponse, len(rows))
	for i, r := range rows {
		items[i] = NewReservationResponse(r)
	}

	c.JSON(http.StatusOK, response.NewKeysetResponse(items, pager.Prev, pager.Next))
}

// bindID reads the :id path parameter. A malformed id is reported the same
// way the manager reports a non-positive one.
func bindID(c *gin.Context) (int64, bool) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.Error(c, reservation.ErrInvalidReservationID)
		return 0, false
	}
	return req.ID, true
}

func renderError(c *gin.Context, err error) {
	var conflict *reservation.ConflictError
	if errors.As(err, &conflict) {
		c.JSON(http.StatusConflict, NewConflictErrorResponse(conflict.Info))
		return
	}
	response.Error(c, err)
}

func errorMessage(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}
