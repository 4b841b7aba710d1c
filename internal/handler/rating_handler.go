package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"reelist.io/reelist/internal/model"
	"reelist.io/reelist/internal/repository"
	"reelist.io/reelist/internal/service"
	"reelist.io/reelist/pkg/apperror"
	"reelist.io/reelist/pkg/dto"
	"reelist.io/reelist/pkg/response"
	"reelist.io/reelist/pkg/validator"
)

type RateRequest struct {
	Category int      `json:"category" binding:"min=0,max=2"`
	Score    int      `json:"score" binding:"min=0,max=10"`
	Comment  *string  `json:"comment" binding:"omitempty,max=2000"`
	Tags     []string `json:"tags" binding:"omitempty,max=10,dive,max=30"`
}

type RatingHandler struct {
	ratings   service.RatingService
	userRepo  repository.UserRepository
	limiter   *service.RateLimiter
	rateEvery time.Duration
}

func NewRatingHandler(ratings service.RatingService, userRepo repository.UserRepository, rdb *redis.Client, rateEvery time.Duration) *RatingHandler {
	if rateEvery <= 0 {
		rateEvery = 3 * time.Second
	}

	return &RatingHandler{
		ratings:   ratings,
		userRepo:  userRepo,
		limiter:   service.NewRateLimiter(rdb),
		rateEvery: rateEvery,
	}
}

func (h *RatingHandler) Rate(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	movieID, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	if err := h.limiter.Acquire(c.Request.Context(), userID, "rate", h.rateEvery); err != nil {
		response.Error(c, err)
		return
	}

	rating, err := h.ratings.Rate(c.Request.Context(), userID, movieID,
		model.RatingCategory(req.Category), req.Score, req.Comment, req.Tags)
	if err != nil {
		// Give the slot back so a rejected request can be corrected right away.
		_ = h.limiter.Release(c.Request.Context(), userID, "rate")
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, rating)
}

func (h *RatingHandler) DeleteMine(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	movieID, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	deleted, err := h.ratings.DeleteRating(c.Request.Context(), userID, movieID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !deleted {
		response.Error(c, apperror.ErrNotFound)
		return
	}
	response.Message(c, http.StatusOK, "rating deleted")
}

// Delete removes a rating by id. The owner may always delete their own; other
// callers need the moderation permission.
func (h *RatingHandler) Delete(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	ratingID, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	rating, err := h.ratings.Get(c.Request.Context(), ratingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	if rating.UserID != userID {
		user, err := h.userRepo.FindByID(c.Request.Context(), userID)
		if err != nil {
			response.Error(c, err)
			return
		}
		if !user.Role.HasPermission(model.PermModerate) {
			response.Error(c, apperror.ErrForbidden)
			return
		}
	}

	deleted, err := h.ratings.DeleteRatingByID(c.Request.Context(), ratingID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !deleted {
		response.Error(c, apperror.ErrNotFound)
		return
	}
	response.Message(c, http.StatusOK, "rating deleted")
}

func (h *RatingHandler) Like(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	ratingID, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	liked, err := h.ratings.LikeRating(c.Request.Context(), userID, ratingID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"liked": liked})
}

func (h *RatingHandler) Unlike(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	ratingID, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	unliked, err := h.ratings.UnlikeRating(c.Request.Context(), userID, ratingID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"unliked": unliked})
}

func (h *RatingHandler) Report(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	ratingID, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	reported, err := h.ratings.ReportRating(c.Request.Context(), userID, ratingID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"reported": reported})
}

func (h *RatingHandler) ListReported(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	ratings, total, err := h.ratings.ListReported(c.Request.Context(), page.Page, page.PerPage)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, dto.NewPaginated(ratings, page.Page, page.PerPage, total))
}
