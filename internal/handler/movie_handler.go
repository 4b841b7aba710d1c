package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"reelist.io/reelist/internal/service"
	"reelist.io/reelist/pkg/apperror"
	"reelist.io/reelist/pkg/dto"
	"reelist.io/reelist/pkg/response"
	"reelist.io/reelist/pkg/validator"
)

type MovieHandler struct {
	movies  service.MovieService
	ratings service.RatingService
}

func NewMovieHandler(movies service.MovieService, ratings service.RatingService) *MovieHandler {
	return &MovieHandler{movies: movies, ratings: ratings}
}

func (h *MovieHandler) Create(c *gin.Context) {
	var input service.MovieInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	movie, err := h.movies.Create(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusCreated, movie)
}

func (h *MovieHandler) Update(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var input service.MovieInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	movie, err := h.movies.Update(c.Request.Context(), id, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, movie)
}

func (h *MovieHandler) Get(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	movie, err := h.movies.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, movie)
}

func (h *MovieHandler) List(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	movies, total, err := h.movies.List(c.Request.Context(), page.Page, page.PerPage)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, dto.NewPaginated(movies, page.Page, page.PerPage, total))
}

func (h *MovieHandler) Coming(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	movies, total, err := h.movies.Coming(c.Request.Context(), page.Page, page.PerPage)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, dto.NewPaginated(movies, page.Page, page.PerPage, total))
}

func (h *MovieHandler) Showing(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	movies, total, err := h.movies.Showing(c.Request.Context(), page.Page, page.PerPage)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, dto.NewPaginated(movies, page.Page, page.PerPage, total))
}

func (h *MovieHandler) Recommend(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 50 {
			limit = parsed
		}
	}

	movies, err := h.movies.Recommend(c.Request.Context(), userID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, movies)
}

func rankRange(c *gin.Context) string {
	if c.Query("range") == service.RankRangeMonth {
		return service.RankRangeMonth
	}
	return service.RankRangeWeek
}

func (h *MovieHandler) Trending(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	movies, total, err := h.movies.Trending(c.Request.Context(), rankRange(c), page.Page, page.PerPage)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, dto.NewPaginated(movies, page.Page, page.PerPage, total))
}

func (h *MovieHandler) TopRated(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	movies, total, err := h.movies.TopRated(c.Request.Context(), rankRange(c), page.Page, page.PerPage)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, dto.NewPaginated(movies, page.Page, page.PerPage, total))
}

func (h *MovieHandler) Search(c *gin.Context) {
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

	movies, total, err := h.movies.Search(c.Request.Context(), query, page.Page, page.PerPage)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, dto.NewPaginated(movies, page.Page, page.PerPage, total))
}

func (h *MovieHandler) Delete(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.movies.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "movie deleted")
}

func (h *MovieHandler) UploadPoster(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	fileHeader, err := c.FormFile("poster")
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

	movie, err := h.movies.UploadPoster(c.Request.Context(), id, service.PosterFile{
		Reader:   file,
		FileName: fileHeader.Filename,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, movie)
}

func (h *MovieHandler) GetMovieRatings(c *gin.Context) {
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

	ratings, total, err := h.ratings.ListMovieRatings(c.Request.Context(), id, category, page.Page, page.PerPage)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, dto.NewPaginated(ratings, page.Page, page.PerPage, total))
}
