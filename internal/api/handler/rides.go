package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"cabshare/backend/internal/rides"

	"github.com/gin-gonic/gin"
)

type createRideRequest struct {
	Destination   string    `json:"destination" binding:"required"`
	DepartureTime time.Time `json:"departureTime" binding:"required"`
}

func (h *Handler) CreateRide(c *gin.Context) {
	var req createRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "destination and departureTime are required"})
		return
	}

	ride, err := h.Rides.Create(currentUserID(c), req.Destination, req.DepartureTime)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Ride created successfully", "ride": ride})
}

func (h *Handler) ListRides(c *gin.Context) {
	list, err := h.Rides.ListOpen()
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rides": list})
}

func (h *Handler) GetRide(c *gin.Context) {
	ride, err := h.Rides.Get(c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ride": ride})
}

func (h *Handler) JoinRide(c *gin.Context) {
	ride, err := h.Rides.Join(currentUserID(c), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ride": ride})
}

func (h *Handler) LeaveRide(c *gin.Context) {
	ride, err := h.Rides.Leave(currentUserID(c), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ride": ride})
}

type kickRequest struct {
	UserID string `json:"userId" binding:"required"`
}

func (h *Handler) KickParticipant(c *gin.Context) {
	var req kickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	ride, err := h.Rides.Kick(currentUserID(c), c.Param("id"), req.UserID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ride": ride})
}

func (h *Handler) LockRide(c *gin.Context) {
	ride, err := h.Rides.Lock(currentUserID(c), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ride": ride})
}

func (h *Handler) UnlockRide(c *gin.Context) {
	ride, err := h.Rides.Unlock(currentUserID(c), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ride": ride})
}

func (h *Handler) DeleteRide(c *gin.Context) {
	if err := h.Rides.Delete(currentUserID(c), c.Param("id")); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Ride deleted"})
}

// Suggestions handles GET /rides/suggestions?destination=&time=&window=.
func (h *Handler) Suggestions(c *gin.Context) {
	destination := c.Query("destination")

	target, err := time.Parse(time.RFC3339, c.Query("time"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "time must be RFC3339"})
		return
	}

	window := 0
	if raw := c.Query("window"); raw != "" {
		window, err = strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "window must be a number of minutes"})
			return
		}
	}

	result, err := h.Rides.Suggest(currentUserID(c), destination, target, window)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetMessages(c *gin.Context) {
	messages, err := h.Rides.MessagesFor(currentUserID(c), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

type postMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *Handler) PostMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	msg, err := h.Rides.PostMessage(currentUserID(c), c.Param("id"), req.Text)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

func (h *Handler) ListNotifications(c *gin.Context) {
	notifications, err := h.Rides.NotificationsFor(currentUserID(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	if err := h.Rides.MarkNotificationRead(c.Param("id"), currentUserID(c)); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked read"})
}

// renderError maps engine errors onto HTTP statuses. Advisory-layer
// failures never reach here; only store, input, conflict and authorization
// errors surface to callers.
func (h *Handler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, rides.ErrRideNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, rides.ErrInvalidDestination),
		errors.Is(err, rides.ErrPastDeparture),
		errors.Is(err, rides.ErrHorizonExceeded),
		errors.Is(err, rides.ErrEmptyMessage),
		errors.Is(err, rides.ErrMessageTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, rides.ErrForbidden),
		errors.Is(err, rides.ErrSelfKick),
		errors.Is(err, rides.ErrBanned):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, rides.ErrRideEnded):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	case errors.Is(err, rides.ErrUnjoinable),
		errors.Is(err, rides.ErrConflictingRide),
		errors.Is(err, rides.ErrActiveCreatedRideExists),
		errors.Is(err, rides.ErrTooManyActiveRides),
		errors.Is(err, rides.ErrCreatorCannotLeave),
		errors.Is(err, rides.ErrNotParticipant),
		errors.Is(err, rides.ErrNotInRide),
		errors.Is(err, rides.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
	}
}
