package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"reelist.io/reelist/internal/service"
	"reelist.io/reelist/pkg/apperror"
	"reelist.io/reelist/pkg/dto"
	"reelist.io/reelist/pkg/response"
	"reelist.io/reelist/pkg/validator"
)

type CelebrityHandler struct {
	celebrities service.CelebrityService
}

func NewCelebrityHandler(celebrities service.CelebrityService) *CelebrityHandler {
	return &CelebrityHandler{celebrities: celebrities}
}

func (h *CelebrityHandler) Create(c *gin.Context) {
	var input service.CelebrityInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	celebrity, err := h.celebrities.Create(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusCreated, celebrity)
}

func (h *CelebrityHandler) Update(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var input service.CelebrityInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	celebrity, err := h.celebrities.Update(c.Request.Context(), id, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, celebrity)
}

func (h *CelebrityHandler) Get(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	celebrity, err := h.celebrities.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, celebrity)
}

func (h *CelebrityHandler) List(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	celebrities, total, err := h.celebrities.List(c.Request.Context(), page.Page, page.PerPage)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, dto.NewPaginated(celebrities, page.Page, page.PerPage, total))
}

func (h *CelebrityHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		response.Error(c, apperror.ErrBadRequest)
		return
	}
	page, err := bindPage(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	celebrities, total, err := h.celebrities.Search(c.Request.Context(), query, page.Page, page.PerPage)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, dto.NewPaginated(celebrities, page.Page, page.PerPage, total))
}

func (h *CelebrityHandler) Delete(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.celebrities.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "celebrity deleted")
}

func (h *CelebrityHandler) UploadAvatar(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		response.Error(c, apperror.ErrBadRequest)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, apperror.ErrBadRequest)
		return
	}
	defer file.Close()

	celebrity, err := h.celebrities.UploadAvatar(c.Request.Context(), id, file, fileHeader.Filename)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, celebrity)
}
