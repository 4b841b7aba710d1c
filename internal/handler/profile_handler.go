package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"reelist.io/reelist/internal/model"
	"reelist.io/reelist/internal/service"
	"reelist.io/reelist/pkg/apperror"
	"reelist.io/reelist/pkg/dto"
	"reelist.io/reelist/pkg/response"
	"reelist.io/reelist/pkg/validator"
)

type ProfileHandler struct {
	profiles service.ProfileService
	follows  service.FollowService
	ratings  service.RatingService
}

func NewProfileHandler(profiles service.ProfileService, follows service.FollowService, ratings service.RatingService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, follows: follows, ratings: ratings}
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperror.ErrBadRequest
	}
	return id, nil
}

func bindPage(c *gin.Context) (dto.PageQuery, error) {
	var page dto.PageQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		return page, apperror.ErrBadRequest
	}
	return page, nil
}

func (h *ProfileHandler) Me(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	user, err := h.profiles.Get(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, user)
}

func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var input service.UpdateProfileInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	var avatar *service.AvatarFile
	if fileHeader, err := c.FormFile("avatar"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			response.Error(c, apperror.ErrBadRequest)
			return
		}
		defer file.Close()
		avatar = &service.AvatarFile{Reader: file, FileName: fileHeader.Filename}
	}

	user, err := h.profiles.Update(c.Request.Context(), userID, input, avatar)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, user)
}

func (h *ProfileHandler) GetUser(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	user, err := h.profiles.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, user)
}

func (h *ProfileHandler) GetUserRatings(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	page, err := bindPage(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	category, err := parseCategoryQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	ratings, total, err := h.ratings.ListUserRatings(c.Request.Context(), id, category, page.Page, page.PerPage)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, dto.NewPaginated(ratings, page.Page, page.PerPage, total))
}

// Follow endpoints

func (h *ProfileHandler) Follow(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	targetID, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	followed, err := h.follows.Follow(c.Request.Context(), userID, targetID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"followed": followed})
}

func (h *ProfileHandler) Unfollow(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	targetID, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	unfollowed, err := h.follows.Unfollow(c.Request.Context(), userID, targetID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"unfollowed": unfollowed})
}

func (h *ProfileHandler) IsFollowing(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	targetID, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	following, err := h.follows.IsFollowing(c.Request.Context(), userID, targetID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"following": following})
}

func (h *ProfileHandler) Followers(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	page, err := bindPage(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	users, total, err := h.follows.ListFollowers(c.Request.Context(), id, page.Page, page.PerPage)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, dto.NewPaginated(users, page.Page, page.PerPage, total))
}

func (h *ProfileHandler) Followings(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	page, err := bindPage(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	users, total, err := h.follows.ListFollowings(c.Request.Context(), id, page.Page, page.PerPage)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, dto.NewPaginated(users, page.Page, page.PerPage, total))
}

// Moderation endpoints

func (h *ProfileHandler) LockUser(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.profiles.Lock(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "user locked")
}

func (h *ProfileHandler) UnlockUser(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.profiles.Unlock(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "user unlocked")
}

// parseCategoryQuery reads the optional ?category= filter (0 wish, 1 do,
// 2 collect).
func parseCategoryQuery(c *gin.Context) (*model.RatingCategory, error) {
	raw, exists := c.GetQuery("category")
	if !exists || raw == "" {
		return nil, nil
	}

	var category model.RatingCategory
	switch raw {
	case "0", "wish":
		category = model.CategoryWish
	case "1", "do":
		category = model.CategoryDo
	case "2", "collect":
		category = model.CategoryCollect
	default:
		return nil, apperror.ErrInvalidCategory
	}
	return &category, nil
}
