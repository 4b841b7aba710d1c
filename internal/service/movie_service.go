package service

import (
	"context"
	"io"
	"log"

	"github.com/google/uuid"

	"reelist.io/reelist/internal/model"
	"reelist.io/reelist/internal/repository"
	"reelist.io/reelist/pkg/apperror"
	"reelist.io/reelist/pkg/storage"
)

type MovieInput struct {
	Title         string   `json:"title" binding:"required,max=128"`
	OriginalTitle *string  `json:"original_title" binding:"omitempty,max=128"`
	Subtype       string   `json:"subtype" binding:"required,oneof=movie tv"`
	Year          *int     `json:"year" binding:"omitempty,min=1888"`
	Summary       *string  `json:"summary"`
	SeasonsCount  *int     `json:"seasons_count" binding:"omitempty,min=0"`
	EpisodesCount *int     `json:"episodes_count" binding:"omitempty,min=0"`
	CurrentSeason *int     `json:"current_season" binding:"omitempty,min=0"`
	CinemaStatus  int      `json:"cinema_status" binding:"min=0,max=2"`
	Genres        []string `json:"genres"`
	Countries     []string `json:"countries"`
	DirectorIDs   []string `json:"director_ids"`
	CastIDs       []string `json:"cast_ids"`
}

type PosterFile struct {
	Reader   io.Reader
	FileName string
}

type MovieService interface {
	Create(ctx context.Context, input MovieInput) (*model.Movie, error)
	Update(ctx context.Context, id uuid.UUID, input MovieInput) (*model.Movie, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Movie, error)
	List(ctx context.Context, page, perPage int) ([]model.Movie, int64, error)
	Coming(ctx context.Context, page, perPage int) ([]model.Movie, int64, error)
	Showing(ctx context.Context, page, perPage int) ([]model.Movie, int64, error)

	// Recommend serves the user's collaborative-filtering picks, padded with
	// random movies when the similarity matrix has nothing (new user, cold
	// start, too little data).
	Recommend(ctx context.Context, userID uuid.UUID, limit int) ([]model.Movie, error)
	Trending(ctx context.Context, timeRange string, page, perPage int) ([]model.Movie, int64, error)
	TopRated(ctx context.Context, timeRange string, page, perPage int) ([]model.Movie, int64, error)
	Search(ctx context.Context, query string, page, perPage int) ([]model.Movie, int64, error)

	// Delete soft-deletes the movie and every active rating on it, reversing
	// each rater's category counter so user counters stay consistent.
	Delete(ctx context.Context, id uuid.UUID) error

	UploadPoster(ctx context.Context, id uuid.UUID, poster PosterFile) (*model.Movie, error)
}

type movieService struct {
	tx           repository.TxManager
	repos        *repository.Registry
	search       SearchService
	rank         RankCache
	recommender  Recommender
	imageStorage storage.ImageStorage
}

func NewMovieService(tx repository.TxManager, repos *repository.Registry, search SearchService, rank RankCache, recommender Recommender, imageStorage storage.ImageStorage) MovieService {
	return &movieService{
		tx:           tx,
		repos:        repos,
		search:       search,
		rank:         rank,
		recommender:  recommender,
		imageStorage: imageStorage,
	}
}

func (s *movieService) Create(ctx context.Context, input MovieInput) (*model.Movie, error) {
	movie := &model.Movie{}
	if err := s.applyInput(ctx, movie, input); err != nil {
		return nil, err
	}
	if err := s.repos.Movies.Create(ctx, movie); err != nil {
		return nil, err
	}

	if err := s.search.IndexMovie(movie); err != nil {
		log.Printf("failed to index movie %s: %v", movie.ID, err)
	}
	return movie, nil
}

func (s *movieService) Update(ctx context.Context, id uuid.UUID, input MovieInput) (*model.Movie, error) {
	movie, err := s.repos.Movies.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.applyInput(ctx, movie, input); err != nil {
		return nil, err
	}
	if err := s.repos.Movies.Save(ctx, movie); err != nil {
		return nil, err
	}

	if err := s.search.IndexMovie(movie); err != nil {
		log.Printf("failed to index movie %s: %v", movie.ID, err)
	}
	return movie, nil
}

func (s *movieService) applyInput(ctx context.Context, movie *model.Movie, input MovieInput) error {
	genres, err := s.repos.Movies.GetOrCreateGenres(ctx, input.Genres)
	if err != nil {
		return err
	}
	countries, err := s.repos.Movies.GetOrCreateCountries(ctx, input.Countries)
	if err != nil {
		return err
	}
	directors, err := s.resolveCelebrities(ctx, input.DirectorIDs)
	if err != nil {
		return err
	}
	casts, err := s.resolveCelebrities(ctx, input.CastIDs)
	if err != nil {
		return err
	}

	movie.Title = input.Title
	movie.OriginalTitle = input.OriginalTitle
	movie.Subtype = input.Subtype
	movie.Year = input.Year
	movie.Summary = input.Summary
	movie.SeasonsCount = input.SeasonsCount
	movie.EpisodesCount = input.EpisodesCount
	movie.CurrentSeason = input.CurrentSeason
	movie.CinemaStatus = input.CinemaStatus
	movie.Genres = genres
	movie.Countries = countries
	movie.Directors = directors
	movie.Casts = casts
	return nil
}

func (s *movieService) resolveCelebrities(ctx context.Context, rawIDs []string) ([]model.Celebrity, error) {
	if len(rawIDs) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(rawIDs))
	for _, raw := range rawIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, apperror.ErrInvalidInput
		}
		ids = append(ids, id)
	}

	celebrities, err := s.repos.Celebrities.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(celebrities) != len(ids) {
		return nil, apperror.ErrNotFound
	}
	return celebrities, nil
}

func (s *movieService) Get(ctx context.Context, id uuid.UUID) (*model.Movie, error) {
	return s.repos.Movies.FindByID(ctx, id)
}

func (s *movieService) List(ctx context.Context, page, perPage int) ([]model.Movie, int64, error) {
	return s.repos.Movies.List(ctx, (page-1)*perPage, perPage)
}

func (s *movieService) Coming(ctx context.Context, page, perPage int) ([]model.Movie, int64, error) {
	return s.repos.Movies.ListByCinemaStatus(ctx, model.CinemaComing, (page-1)*perPage, perPage)
}

func (s *movieService) Showing(ctx context.Context, page, perPage int) ([]model.Movie, int64, error) {
	return s.repos.Movies.ListByCinemaStatus(ctx, model.CinemaShowing, (page-1)*perPage, perPage)
}

func (s *movieService) Recommend(ctx context.Context, userID uuid.UUID, limit int) ([]model.Movie, error) {
	ids, err := s.recommender.ForUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}

	movies, _, err := s.resolveRanked(ctx, ids, int64(len(ids)))
	if err != nil {
		return nil, err
	}
	if len(movies) >= limit {
		return movies, nil
	}

	// Pad with random picks so sparse users still get a full page.
	seen := make(map[uuid.UUID]bool, len(movies))
	for _, m := range movies {
		seen[m.ID] = true
	}
	random, err := s.repos.Movies.Random(ctx, limit)
	if err != nil {
		return nil, err
	}
	for _, m := range random {
		if len(movies) >= limit {
			break
		}
		if seen[m.ID] {
			continue
		}
		movies = append(movies, m)
	}
	return movies, nil
}

// resolveRanked turns an ordered id page from the rank cache into movie rows,
// preserving the cache order.
func (s *movieService) resolveRanked(ctx context.Context, ids []uuid.UUID, total int64) ([]model.Movie, int64, error) {
	if len(ids) == 0 {
		return nil, total, nil
	}

	movies, err := s.repos.Movies.FindByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	byID := make(map[uuid.UUID]model.Movie, len(movies))
	for _, m := range movies {
		byID[m.ID] = m
	}

	ordered := make([]model.Movie, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			ordered = append(ordered, m)
		}
	}
	return ordered, total, nil
}

func (s *movieService) Trending(ctx context.Context, timeRange string, page, perPage int) ([]model.Movie, int64, error) {
	ids, total, err := s.rank.Trending(ctx, timeRange, page, perPage)
	if err != nil {
		return nil, 0, err
	}
	return s.resolveRanked(ctx, ids, total)
}

func (s *movieService) TopRated(ctx context.Context, timeRange string, page, perPage int) ([]model.Movie, int64, error) {
	ids, total, err := s.rank.TopRated(ctx, timeRange, page, perPage)
	if err != nil {
		return nil, 0, err
	}
	return s.resolveRanked(ctx, ids, total)
}

func (s *movieService) Search(ctx context.Context, query string, page, perPage int) ([]model.Movie, int64, error) {
	rawIDs, total, err := s.search.SearchMovies(query, page, perPage)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]uuid.UUID, 0, len(rawIDs))
	for _, raw := range rawIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return s.resolveRanked(ctx, ids, total)
}

func (s *movieService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.tx.Do(ctx, func(r *repository.Registry) error {
		if _, err := r.Movies.LockForUpdate(ctx, id); err != nil {
			return err
		}

		ratings, err := r.Ratings.ListActiveByMovie(ctx, id)
		if err != nil {
			return err
		}
		for _, rating := range ratings {
			if err := r.Users.AddCategoryCount(ctx, rating.UserID, rating.Category, -1); err != nil {
				return err
			}
			if err := r.Ratings.SoftDelete(ctx, rating.ID); err != nil {
				return err
			}
		}

		if err := r.Movies.ResetCounters(ctx, id); err != nil {
			return err
		}
		return r.Movies.SoftDelete(ctx, id)
	})
	if err != nil {
		return err
	}

	if err := s.search.DeleteMovie(id.String()); err != nil {
		log.Printf("failed to remove movie %s from search index: %v", id, err)
	}
	s.rank.Remove(ctx, id)
	return nil
}

func (s *movieService) UploadPoster(ctx context.Context, id uuid.UUID, poster PosterFile) (*model.Movie, error) {
	movie, err := s.repos.Movies.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if poster.Reader == nil || s.imageStorage == nil {
		return nil, apperror.ErrInvalidInput
	}

	url, err := s.imageStorage.UploadImage(ctx, poster.Reader, "posters", poster.FileName)
	if err != nil {
		return nil, err
	}

	if movie.PosterURL != nil {
		if err := s.imageStorage.DeleteImage(ctx, *movie.PosterURL); err != nil {
			log.Printf("failed to delete old poster for movie %s: %v", id, err)
		}
	}

	movie.PosterURL = &url
	if err := s.repos.Movies.Save(ctx, movie); err != nil {
		return nil, err
	}
	return movie, nil
}
