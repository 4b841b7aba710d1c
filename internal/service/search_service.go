package service

import (
	"encoding/json"
	"html"
	"log"
	"strings"

	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"

	"reelist.io/reelist/internal/model"
)

// SearchService mirrors the movie and celebrity catalogs into meilisearch.
// Index writes are best-effort, called after the database commit; a search
// outage never fails a catalog operation.
type SearchService interface {
	IndexMovie(movie *model.Movie) error
	IndexCelebrity(celebrity *model.Celebrity) error
	DeleteMovie(id string) error
	DeleteCelebrity(id string) error

	SearchMovies(query string, page, perPage int) ([]string, int64, error)
	SearchCelebrities(query string, page, perPage int) ([]string, int64, error)
}

type searchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewSearchService(client meilisearch.ServiceManager) SearchService {
	s := &searchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	if client != nil {
		s.initIndexes()
	}
	return s
}

func (s *searchService) initIndexes() {
	movieFilterable := []string{"subtype", "year", "cinema_status", "genres"}
	movieFilterableInterface := make([]any, len(movieFilterable))
	for i, v := range movieFilterable {
		movieFilterableInterface[i] = v
	}
	if _, err := s.client.Index("movies").UpdateFilterableAttributes(&movieFilterableInterface); err != nil {
		log.Printf("Failed to update movies filterable attributes: %v", err)
	}

	movieSortable := []string{"score", "rating_count", "year", "created_at"}
	if _, err := s.client.Index("movies").UpdateSortableAttributes(&movieSortable); err != nil {
		log.Printf("Failed to update movies sortable attributes: %v", err)
	}

	celebritySortable := []string{"created_at"}
	if _, err := s.client.Index("celebrities").UpdateSortableAttributes(&celebritySortable); err != nil {
		log.Printf("Failed to update celebrities sortable attributes: %v", err)
	}

	log.Println("Meilisearch indexes initialized")
}

type meiliMovieDoc struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	OriginalTitle string   `json:"original_title"`
	Subtype       string   `json:"subtype"`
	Year          int      `json:"year"`
	Summary       string   `json:"summary"`
	CinemaStatus  int      `json:"cinema_status"`
	Genres        []string `json:"genres"`
	Directors     []string `json:"directors"`
	Casts         []string `json:"casts"`
	Score         float64  `json:"score"`
	RatingCount   int      `json:"rating_count"`
	CreatedAt     int64    `json:"created_at"`
}

type meiliCelebrityDoc struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	NameEN    string `json:"name_en"`
	Aka       string `json:"aka"`
	BornPlace string `json:"born_place"`
	CreatedAt int64  `json:"created_at"`
}

func (s *searchService) cleanForIndex(content string) string {
	sanitized := s.sanitizer.Sanitize(content)
	clean := html.UnescapeString(sanitized)
	return strings.Join(strings.Fields(clean), " ")
}

func (s *searchService) IndexMovie(movie *model.Movie) error {
	if s.client == nil {
		return nil
	}

	genres := make([]string, 0, len(movie.Genres))
	for _, g := range movie.Genres {
		genres = append(genres, g.Name)
	}
	directors := make([]string, 0, len(movie.Directors))
	for _, d := range movie.Directors {
		directors = append(directors, d.Name)
	}
	casts := make([]string, 0, len(movie.Casts))
	for _, c := range movie.Casts {
		casts = append(casts, c.Name)
	}

	doc := meiliMovieDoc{
		ID:            movie.ID.String(),
		Title:         s.cleanForIndex(movie.Title),
		OriginalTitle: s.cleanForIndex(getStringOrEmpty(movie.OriginalTitle)),
		Subtype:       movie.Subtype,
		Summary:       s.cleanForIndex(getStringOrEmpty(movie.Summary)),
		CinemaStatus:  movie.CinemaStatus,
		Genres:        genres,
		Directors:     directors,
		Casts:         casts,
		Score:         movie.Score,
		RatingCount:   movie.RatingCount,
		CreatedAt:     movie.CreatedAt.Unix(),
	}
	if movie.Year != nil {
		doc.Year = *movie.Year
	}

	task, err := s.client.Index("movies").AddDocuments([]meiliMovieDoc{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	log.Printf("Indexed movie %s, task id: %d", movie.ID, task.TaskUID)
	return nil
}

func (s *searchService) IndexCelebrity(celebrity *model.Celebrity) error {
	if s.client == nil {
		return nil
	}

	doc := meiliCelebrityDoc{
		ID:        celebrity.ID.String(),
		Name:      s.cleanForIndex(celebrity.Name),
		NameEN:    s.cleanForIndex(getStringOrEmpty(celebrity.NameEN)),
		Aka:       s.cleanForIndex(getStringOrEmpty(celebrity.Aka)),
		BornPlace: getStringOrEmpty(celebrity.BornPlace),
		CreatedAt: celebrity.CreatedAt.Unix(),
	}

	task, err := s.client.Index("celebrities").AddDocuments([]meiliCelebrityDoc{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	log.Printf("Indexed celebrity %s, task id: %d", celebrity.ID, task.TaskUID)
	return nil
}

func (s *searchService) DeleteMovie(id string) error {
	if s.client == nil {
		return nil
	}
	_, err := s.client.Index("movies").DeleteDocument(id)
	return err
}

func (s *searchService) DeleteCelebrity(id string) error {
	if s.client == nil {
		return nil
	}
	_, err := s.client.Index("celebrities").DeleteDocument(id)
	return err
}

func (s *searchService) searchIndex(index, query string, page, perPage int) ([]string, int64, error) {
	res, err := s.client.Index(index).Search(query, &meilisearch.SearchRequest{
		Offset: int64((page - 1) * perPage),
		Limit:  int64(perPage),
	})
	if err != nil {
		return nil, 0, err
	}

	return hitIDs(res.Hits), res.EstimatedTotalHits, nil
}

// hitIDs pulls the document ids out of a search result. Hit values are raw
// JSON, so the id has to be unmarshaled; malformed hits are skipped.
func hitIDs(hits []meilisearch.Hit) []string {
	ids := make([]string, 0, len(hits))
	for _, hit := range hits {
		raw, ok := hit["id"]
		if !ok {
			continue
		}
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (s *searchService) SearchMovies(query string, page, perPage int) ([]string, int64, error) {
	if s.client == nil {
		return nil, 0, nil
	}
	return s.searchIndex("movies", query, page, perPage)
}

func (s *searchService) SearchCelebrities(query string, page, perPage int) ([]string, int64, error) {
	if s.client == nil {
		return nil, 0, nil
	}
	return s.searchIndex("celebrities", query, page, perPage)
}

func getStringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strPtr(s string) *string {
	return &s
}
