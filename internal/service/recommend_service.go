package service

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"reelist.io/reelist/internal/model"
	"reelist.io/reelist/internal/repository"
)

const (
	similarityKey = "recommend:similarity"
	similarityTTL = 24 * time.Hour

	// Below these thresholds the co-rating signal is noise and the matrix is
	// not built; callers fall back to a random pick.
	minRatersForSimilarity  = 5
	minRatingsForSimilarity = 25
)

// Recommender serves item-based collaborative filtering: movies co-rated by
// the same users are similar, and a user is recommended the nearest
// neighbors of what they already rated. The similarity matrix is rebuilt
// periodically from cron; reads between rebuilds see the last snapshot.
type Recommender interface {
	// Rebuild recomputes the item similarity matrix from all active ratings.
	Rebuild(ctx context.Context) error
	// ForUser returns movie ids the user has not rated, ordered by
	// accumulated similarity weight. Returns nil when no matrix is available.
	ForUser(ctx context.Context, userID uuid.UUID, k int) ([]uuid.UUID, error)
}

type itemRecommender struct {
	repos *repository.Registry
	rdb   *redis.Client

	mu     sync.RWMutex
	matrix map[uuid.UUID]map[uuid.UUID]float64
}

func NewItemRecommender(repos *repository.Registry, rdb *redis.Client) Recommender {
	return &itemRecommender{repos: repos, rdb: rdb}
}

func (s *itemRecommender) Rebuild(ctx context.Context) error {
	ratings, err := s.repos.Ratings.ListAllActive(ctx)
	if err != nil {
		return err
	}

	byUser := make(map[uuid.UUID][]model.Rating)
	for _, rating := range ratings {
		byUser[rating.UserID] = append(byUser[rating.UserID], rating)
	}

	if len(byUser) < minRatersForSimilarity || len(ratings) < minRatingsForSimilarity {
		s.setMatrix(nil)
		return nil
	}

	// Cosine-style similarity over the co-rating counts:
	// w(i,j) = |raters of both| / sqrt(|raters of i| * |raters of j|).
	raters := make(map[uuid.UUID]int)
	coRated := make(map[uuid.UUID]map[uuid.UUID]int)
	for _, userRatings := range byUser {
		for _, ri := range userRatings {
			raters[ri.MovieID]++
			for _, rj := range userRatings {
				if ri.MovieID == rj.MovieID {
					continue
				}
				if coRated[ri.MovieID] == nil {
					coRated[ri.MovieID] = make(map[uuid.UUID]int)
				}
				coRated[ri.MovieID][rj.MovieID]++
			}
		}
	}

	matrix := make(map[uuid.UUID]map[uuid.UUID]float64, len(coRated))
	for i, related := range coRated {
		row := make(map[uuid.UUID]float64, len(related))
		for j, cij := range related {
			row[j] = float64(cij) / math.Sqrt(float64(raters[i])*float64(raters[j]))
		}
		matrix[i] = row
	}

	s.setMatrix(matrix)
	s.persist(ctx, matrix)
	return nil
}

func (s *itemRecommender) ForUser(ctx context.Context, userID uuid.UUID, k int) ([]uuid.UUID, error) {
	matrix := s.getMatrix(ctx)
	if len(matrix) == 0 {
		return nil, nil
	}

	userRatings, err := s.repos.Ratings.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	rated := make(map[uuid.UUID]bool, len(userRatings))
	for _, rating := range userRatings {
		rated[rating.MovieID] = true
	}

	weights := make(map[uuid.UUID]float64)
	for _, rating := range userRatings {
		row, ok := matrix[rating.MovieID]
		if !ok {
			continue
		}
		for _, neighbor := range topNeighbors(row, k) {
			if rated[neighbor.id] {
				continue
			}
			weights[neighbor.id] += neighbor.w * float64(rating.Score)
		}
	}

	ids := make([]uuid.UUID, 0, len(weights))
	for id := range weights {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool {
		if weights[ids[a]] != weights[ids[b]] {
			return weights[ids[a]] > weights[ids[b]]
		}
		return ids[a].String() < ids[b].String()
	})
	return ids, nil
}

type neighbor struct {
	id uuid.UUID
	w  float64
}

func topNeighbors(row map[uuid.UUID]float64, k int) []neighbor {
	neighbors := make([]neighbor, 0, len(row))
	for id, w := range row {
		neighbors = append(neighbors, neighbor{id: id, w: w})
	}
	sort.Slice(neighbors, func(a, b int) bool {
		if neighbors[a].w != neighbors[b].w {
			return neighbors[a].w > neighbors[b].w
		}
		return neighbors[a].id.String() < neighbors[b].id.String()
	})
	if k > 0 && len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors
}

func (s *itemRecommender) setMatrix(matrix map[uuid.UUID]map[uuid.UUID]float64) {
	s.mu.Lock()
	s.matrix = matrix
	s.mu.Unlock()
}

// getMatrix returns the in-memory snapshot, falling back to the persisted
// copy when this process has not rebuilt yet (fresh start before the first
// cron tick).
func (s *itemRecommender) getMatrix(ctx context.Context) map[uuid.UUID]map[uuid.UUID]float64 {
	s.mu.RLock()
	matrix := s.matrix
	s.mu.RUnlock()
	if matrix != nil || s.rdb == nil {
		return matrix
	}

	raw, err := s.rdb.Get(ctx, similarityKey).Bytes()
	if err != nil {
		return nil
	}
	var decoded map[uuid.UUID]map[uuid.UUID]float64
	if err := json.Unmarshal(raw, &decoded); err != nil {
		log.Printf("recommender: failed to decode persisted similarity matrix: %v", err)
		return nil
	}
	s.setMatrix(decoded)
	return decoded
}

func (s *itemRecommender) persist(ctx context.Context, matrix map[uuid.UUID]map[uuid.UUID]float64) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(matrix)
	if err != nil {
		log.Printf("recommender: failed to encode similarity matrix: %v", err)
		return
	}
	if err := s.rdb.Set(ctx, similarityKey, raw, similarityTTL).Err(); err != nil {
		log.Printf("recommender: failed to persist similarity matrix: %v", err)
	}
}
