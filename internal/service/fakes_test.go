package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"reelist.io/reelist/internal/model"
	"reelist.io/reelist/internal/repository"
	"reelist.io/reelist/pkg/apperror"
)

// memDB backs the in-memory repositories used by the service tests. Lookup
// methods return copies, matching how gorm loads rows, so a counter update is
// only visible through a fresh read.
type memDB struct {
	users         map[uuid.UUID]*model.User
	roles         map[string]*model.Role
	movies        map[uuid.UUID]*model.Movie
	ratings       map[uuid.UUID]*model.Rating
	likes         []model.RatingLike
	reports       []model.RatingReport
	follows       map[uuid.UUID]*model.Follow
	notifications map[uuid.UUID]*model.Notification
	tags          map[string]*model.Tag
	celebrities   map[uuid.UUID]*model.Celebrity
	tagSeq        uint
	roleSeq       uint
}

func newMemDB() *memDB {
	return &memDB{
		users:         make(map[uuid.UUID]*model.User),
		roles:         make(map[string]*model.Role),
		movies:        make(map[uuid.UUID]*model.Movie),
		ratings:       make(map[uuid.UUID]*model.Rating),
		follows:       make(map[uuid.UUID]*model.Follow),
		notifications: make(map[uuid.UUID]*model.Notification),
		tags:          make(map[string]*model.Tag),
		celebrities:   make(map[uuid.UUID]*model.Celebrity),
	}
}

func newTestRegistry(db *memDB) *repository.Registry {
	return &repository.Registry{
		Users:         &memUserRepo{db: db},
		Movies:        &memMovieRepo{db: db},
		Ratings:       &memRatingRepo{db: db},
		Follows:       &memFollowRepo{db: db},
		Notifications: &memNotificationRepo{db: db},
		Tags:          &memTagRepo{db: db},
		Celebrities:   &memCelebrityRepo{db: db},
	}
}

// memTx runs the function against the shared registry. The tests exercise
// operation logic, not transactionality.
type memTx struct {
	repos *repository.Registry
}

func (m *memTx) Do(ctx context.Context, fn func(r *repository.Registry) error) error {
	return fn(m.repos)
}

func (db *memDB) addRole(name string, permissions string) *model.Role {
	db.roleSeq++
	role := &model.Role{ID: db.roleSeq, Name: name, Permissions: permissions}
	db.roles[name] = role
	return role
}

func (db *memDB) addUser(username string) *model.User {
	id, _ := uuid.NewV7()
	user := &model.User{ID: id, Username: username, Email: username + "@example.com"}
	db.users[id] = user
	return user
}

func (db *memDB) addMovie(title, subtype string) *model.Movie {
	id, _ := uuid.NewV7()
	movie := &model.Movie{ID: id, Title: title, Subtype: subtype}
	db.movies[id] = movie
	return movie
}

// user repo

type memUserRepo struct {
	db *memDB
}

func (r *memUserRepo) Create(ctx context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID, _ = uuid.NewV7()
	}
	copied := *user
	r.db.users[user.ID] = &copied
	return nil
}

func (r *memUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, ok := r.db.users[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	copied := *user
	if copied.RoleID != nil {
		for _, role := range r.db.roles {
			if role.ID == *copied.RoleID {
				copied.Role = *role
			}
		}
	}
	return &copied, nil
}

func (r *memUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, user := range r.db.users {
		if user.Username == username {
			return r.FindByID(ctx, user.ID)
		}
	}
	return nil, apperror.ErrNotFound
}

func (r *memUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, user := range r.db.users {
		if user.Email == email {
			return r.FindByID(ctx, user.ID)
		}
	}
	return nil, apperror.ErrNotFound
}

func (r *memUserRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	for _, user := range r.db.users {
		if user.Username == username || user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *memUserRepo) Save(ctx context.Context, user *model.User) error {
	copied := *user
	r.db.users[user.ID] = &copied
	return nil
}

func (r *memUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if user, ok := r.db.users[id]; ok {
		user.LastLoginAt = &at
	}
	return nil
}

func (r *memUserRepo) SetRole(ctx context.Context, id uuid.UUID, roleID uint) error {
	if user, ok := r.db.users[id]; ok {
		user.RoleID = &roleID
	}
	return nil
}

func (r *memUserRepo) SetAvatarURL(ctx context.Context, id uuid.UUID, url string) error {
	if user, ok := r.db.users[id]; ok {
		user.AvatarURL = &url
	}
	return nil
}

func (r *memUserRepo) SetEmailConfirmed(ctx context.Context, id uuid.UUID) error {
	if user, ok := r.db.users[id]; ok {
		user.EmailConfirmed = true
	}
	return nil
}

func (r *memUserRepo) FindRoleByName(ctx context.Context, name string) (*model.Role, error) {
	role, ok := r.db.roles[name]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	copied := *role
	return &copied, nil
}

func (r *memUserRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.FindByID(ctx, id)
}

func (r *memUserRepo) AddCategoryCount(ctx context.Context, id uuid.UUID, category model.RatingCategory, delta int) error {
	user, ok := r.db.users[id]
	if !ok {
		return apperror.ErrNotFound
	}
	switch category {
	case model.CategoryWish:
		user.WishCount += delta
	case model.CategoryDo:
		user.DoCount += delta
	default:
		user.CollectCount += delta
	}
	return nil
}

func (r *memUserRepo) AddFollowersCount(ctx context.Context, id uuid.UUID, delta int) error {
	if user, ok := r.db.users[id]; ok {
		user.FollowersCount += delta
	}
	return nil
}

func (r *memUserRepo) AddFollowingsCount(ctx context.Context, id uuid.UUID, delta int) error {
	if user, ok := r.db.users[id]; ok {
		user.FollowingsCount += delta
	}
	return nil
}

// movie repo

type memMovieRepo struct {
	db *memDB
}

func (r *memMovieRepo) Create(ctx context.Context, movie *model.Movie) error {
	if movie.ID == uuid.Nil {
		movie.ID, _ = uuid.NewV7()
	}
	copied := *movie
	r.db.movies[movie.ID] = &copied
	return nil
}

func (r *memMovieRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Movie, error) {
	movie, ok := r.db.movies[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	copied := *movie
	return &copied, nil
}

func (r *memMovieRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Movie, error) {
	var movies []model.Movie
	for _, id := range ids {
		if movie, ok := r.db.movies[id]; ok {
			movies = append(movies, *movie)
		}
	}
	return movies, nil
}

func (r *memMovieRepo) Save(ctx context.Context, movie *model.Movie) error {
	copied := *movie
	r.db.movies[movie.ID] = &copied
	return nil
}

func (r *memMovieRepo) List(ctx context.Context, offset, limit int) ([]model.Movie, int64, error) {
	var movies []model.Movie
	for _, movie := range r.db.movies {
		movies = append(movies, *movie)
	}
	sort.Slice(movies, func(i, j int) bool { return movies[i].CreatedAt.After(movies[j].CreatedAt) })
	return pageSlice(movies, offset, limit), int64(len(r.db.movies)), nil
}

func (r *memMovieRepo) ListByCinemaStatus(ctx context.Context, status, offset, limit int) ([]model.Movie, int64, error) {
	var movies []model.Movie
	for _, movie := range r.db.movies {
		if movie.CinemaStatus == status {
			movies = append(movies, *movie)
		}
	}
	return pageSlice(movies, offset, limit), int64(len(movies)), nil
}

func (r *memMovieRepo) Random(ctx context.Context, limit int) ([]model.Movie, error) {
	var movies []model.Movie
	for _, movie := range r.db.movies {
		if len(movies) >= limit {
			break
		}
		movies = append(movies, *movie)
	}
	return movies, nil
}

func (r *memMovieRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	delete(r.db.movies, id)
	return nil
}

func (r *memMovieRepo) GetOrCreateGenres(ctx context.Context, names []string) ([]model.Genre, error) {
	genres := make([]model.Genre, 0, len(names))
	for i, name := range names {
		genres = append(genres, model.Genre{ID: uint(i + 1), Name: name})
	}
	return genres, nil
}

func (r *memMovieRepo) GetOrCreateCountries(ctx context.Context, names []string) ([]model.Country, error) {
	countries := make([]model.Country, 0, len(names))
	for i, name := range names {
		countries = append(countries, model.Country{ID: uint(i + 1), Name: name})
	}
	return countries, nil
}

func (r *memMovieRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*model.Movie, error) {
	return r.FindByID(ctx, id)
}

func (r *memMovieRepo) AddCategoryByCount(ctx context.Context, id uuid.UUID, category model.RatingCategory, delta int) error {
	movie, ok := r.db.movies[id]
	if !ok {
		return apperror.ErrNotFound
	}
	switch category {
	case model.CategoryWish:
		movie.WishByCount += delta
	case model.CategoryDo:
		movie.DoByCount += delta
	default:
		movie.CollectByCount += delta
	}
	return nil
}

func (r *memMovieRepo) AddRatingCount(ctx context.Context, id uuid.UUID, delta int) error {
	if movie, ok := r.db.movies[id]; ok {
		movie.RatingCount += delta
	}
	return nil
}

func (r *memMovieRepo) SetScore(ctx context.Context, id uuid.UUID, score float64) error {
	if movie, ok := r.db.movies[id]; ok {
		movie.Score = score
	}
	return nil
}

func (r *memMovieRepo) ResetCounters(ctx context.Context, id uuid.UUID) error {
	if movie, ok := r.db.movies[id]; ok {
		movie.WishByCount = 0
		movie.DoByCount = 0
		movie.CollectByCount = 0
		movie.RatingCount = 0
		movie.Score = 0
	}
	return nil
}

// rating repo

type memRatingRepo struct {
	db *memDB
}

func (r *memRatingRepo) FindActiveByUserAndMovie(ctx context.Context, userID, movieID uuid.UUID) (*model.Rating, error) {
	for _, rating := range r.db.ratings {
		if rating.UserID == userID && rating.MovieID == movieID {
			copied := *rating
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memRatingRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Rating, error) {
	rating, ok := r.db.ratings[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	copied := *rating
	return &copied, nil
}

func (r *memRatingRepo) Create(ctx context.Context, rating *model.Rating) error {
	if rating.ID == uuid.Nil {
		rating.ID, _ = uuid.NewV7()
	}
	copied := *rating
	r.db.ratings[rating.ID] = &copied
	return nil
}

func (r *memRatingRepo) Save(ctx context.Context, rating *model.Rating) error {
	copied := *rating
	if existing, ok := r.db.ratings[rating.ID]; ok {
		copied.LikeCount = existing.LikeCount
		copied.ReportCount = existing.ReportCount
	}
	r.db.ratings[rating.ID] = &copied
	return nil
}

func (r *memRatingRepo) ReplaceTags(ctx context.Context, rating *model.Rating, tags []model.Tag) error {
	if stored, ok := r.db.ratings[rating.ID]; ok {
		stored.Tags = tags
	}
	return nil
}

func (r *memRatingRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	delete(r.db.ratings, id)
	return nil
}

func (r *memRatingRepo) SumActiveScores(ctx context.Context, movieID uuid.UUID) (int64, error) {
	var sum int64
	for _, rating := range r.db.ratings {
		if rating.MovieID == movieID && rating.Score > 0 {
			sum += int64(rating.Score)
		}
	}
	return sum, nil
}

func (r *memRatingRepo) ListActiveByMovie(ctx context.Context, movieID uuid.UUID) ([]model.Rating, error) {
	var ratings []model.Rating
	for _, rating := range r.db.ratings {
		if rating.MovieID == movieID {
			ratings = append(ratings, *rating)
		}
	}
	return ratings, nil
}

func (r *memRatingRepo) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]model.Rating, error) {
	var ratings []model.Rating
	for _, rating := range r.db.ratings {
		if rating.UserID == userID {
			ratings = append(ratings, *rating)
		}
	}
	return ratings, nil
}

func (r *memRatingRepo) ListAllActive(ctx context.Context) ([]model.Rating, error) {
	var ratings []model.Rating
	for _, rating := range r.db.ratings {
		ratings = append(ratings, *rating)
	}
	return ratings, nil
}

func (r *memRatingRepo) ListByMovie(ctx context.Context, movieID uuid.UUID, category *model.RatingCategory, offset, limit int) ([]model.Rating, int64, error) {
	var ratings []model.Rating
	for _, rating := range r.db.ratings {
		if rating.MovieID != movieID {
			continue
		}
		if category != nil && rating.Category != *category {
			continue
		}
		ratings = append(ratings, *rating)
	}
	return pageSlice(ratings, offset, limit), int64(len(ratings)), nil
}

func (r *memRatingRepo) ListByUser(ctx context.Context, userID uuid.UUID, category *model.RatingCategory, offset, limit int) ([]model.Rating, int64, error) {
	var ratings []model.Rating
	for _, rating := range r.db.ratings {
		if rating.UserID != userID {
			continue
		}
		if category != nil && rating.Category != *category {
			continue
		}
		ratings = append(ratings, *rating)
	}
	return pageSlice(ratings, offset, limit), int64(len(ratings)), nil
}

func (r *memRatingRepo) FindLike(ctx context.Context, userID, ratingID uuid.UUID) (*model.RatingLike, error) {
	for i := range r.db.likes {
		if r.db.likes[i].UserID == userID && r.db.likes[i].RatingID == ratingID {
			copied := r.db.likes[i]
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memRatingRepo) CreateLike(ctx context.Context, like *model.RatingLike) error {
	if like.ID == uuid.Nil {
		like.ID, _ = uuid.NewV7()
	}
	r.db.likes = append(r.db.likes, *like)
	return nil
}

func (r *memRatingRepo) DeleteLike(ctx context.Context, userID, ratingID uuid.UUID) error {
	for i := range r.db.likes {
		if r.db.likes[i].UserID == userID && r.db.likes[i].RatingID == ratingID {
			r.db.likes = append(r.db.likes[:i], r.db.likes[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *memRatingRepo) AddLikeCount(ctx context.Context, ratingID uuid.UUID, delta int) error {
	if rating, ok := r.db.ratings[ratingID]; ok {
		rating.LikeCount += delta
	}
	return nil
}

func (r *memRatingRepo) HasReport(ctx context.Context, userID, ratingID uuid.UUID) (bool, error) {
	for i := range r.db.reports {
		if r.db.reports[i].UserID == userID && r.db.reports[i].RatingID == ratingID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRatingRepo) CreateReport(ctx context.Context, report *model.RatingReport) error {
	if report.ID == uuid.Nil {
		report.ID, _ = uuid.NewV7()
	}
	r.db.reports = append(r.db.reports, *report)
	return nil
}

func (r *memRatingRepo) AddReportCount(ctx context.Context, ratingID uuid.UUID, delta int) error {
	if rating, ok := r.db.ratings[ratingID]; ok {
		rating.ReportCount += delta
	}
	return nil
}

func (r *memRatingRepo) ListReported(ctx context.Context, offset, limit int) ([]model.Rating, int64, error) {
	var ratings []model.Rating
	for _, rating := range r.db.ratings {
		if rating.ReportCount > 0 {
			ratings = append(ratings, *rating)
		}
	}
	sort.Slice(ratings, func(i, j int) bool { return ratings[i].ReportCount > ratings[j].ReportCount })
	return pageSlice(ratings, offset, limit), int64(len(ratings)), nil
}

// follow repo

type memFollowRepo struct {
	db *memDB
}

func (r *memFollowRepo) FindActive(ctx context.Context, followerID, followedID uuid.UUID) (*model.Follow, error) {
	for _, follow := range r.db.follows {
		if follow.FollowerID == followerID && follow.FollowedID == followedID {
			copied := *follow
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memFollowRepo) Create(ctx context.Context, follow *model.Follow) error {
	if follow.ID == uuid.Nil {
		follow.ID, _ = uuid.NewV7()
	}
	copied := *follow
	r.db.follows[follow.ID] = &copied
	return nil
}

func (r *memFollowRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	delete(r.db.follows, id)
	return nil
}

func (r *memFollowRepo) ListFollowers(ctx context.Context, userID uuid.UUID, offset, limit int) ([]model.Follow, int64, error) {
	var follows []model.Follow
	for _, follow := range r.db.follows {
		if follow.FollowedID == userID {
			copied := *follow
			if user, ok := r.db.users[follow.FollowerID]; ok {
				u := *user
				copied.Follower = &u
			}
			follows = append(follows, copied)
		}
	}
	return pageSlice(follows, offset, limit), int64(len(follows)), nil
}

func (r *memFollowRepo) ListFollowings(ctx context.Context, userID uuid.UUID, offset, limit int) ([]model.Follow, int64, error) {
	var follows []model.Follow
	for _, follow := range r.db.follows {
		if follow.FollowerID == userID {
			copied := *follow
			if user, ok := r.db.users[follow.FollowedID]; ok {
				u := *user
				copied.Followed = &u
			}
			follows = append(follows, copied)
		}
	}
	return pageSlice(follows, offset, limit), int64(len(follows)), nil
}

// notification repo

type memNotificationRepo struct {
	db *memDB
}

func matchTuple(n *model.Notification, receiverID, actorID uuid.UUID, category model.NotificationCategory, ratingID *uuid.UUID) bool {
	if n.ReceiverID != receiverID || n.ActorID != actorID || n.Category != category {
		return false
	}
	if ratingID == nil {
		return n.RatingID == nil
	}
	return n.RatingID != nil && *n.RatingID == *ratingID
}

func (r *memNotificationRepo) FindByTuple(ctx context.Context, receiverID, actorID uuid.UUID, category model.NotificationCategory, ratingID *uuid.UUID) (*model.Notification, error) {
	for _, n := range r.db.notifications {
		if matchTuple(n, receiverID, actorID, category, ratingID) {
			copied := *n
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memNotificationRepo) Create(ctx context.Context, notification *model.Notification) error {
	if notification.ID == uuid.Nil {
		notification.ID, _ = uuid.NewV7()
	}
	copied := *notification
	r.db.notifications[notification.ID] = &copied
	return nil
}

func (r *memNotificationRepo) DeleteByTuple(ctx context.Context, receiverID, actorID uuid.UUID, category model.NotificationCategory, ratingID *uuid.UUID) (bool, error) {
	for id, n := range r.db.notifications {
		if matchTuple(n, receiverID, actorID, category, ratingID) {
			delete(r.db.notifications, id)
			return true, nil
		}
	}
	return false, nil
}

func (r *memNotificationRepo) ListByReceiver(ctx context.Context, receiverID uuid.UUID, category *model.NotificationCategory, offset, limit int) ([]model.Notification, int64, error) {
	var notifications []model.Notification
	for _, n := range r.db.notifications {
		if n.ReceiverID != receiverID {
			continue
		}
		if category != nil && n.Category != *category {
			continue
		}
		notifications = append(notifications, *n)
	}
	return pageSlice(notifications, offset, limit), int64(len(notifications)), nil
}

func (r *memNotificationRepo) MarkRead(ctx context.Context, id, receiverID uuid.UUID) error {
	if n, ok := r.db.notifications[id]; ok && n.ReceiverID == receiverID {
		n.IsRead = true
	}
	return nil
}

func (r *memNotificationRepo) MarkAllRead(ctx context.Context, receiverID uuid.UUID) error {
	for _, n := range r.db.notifications {
		if n.ReceiverID == receiverID {
			n.IsRead = true
		}
	}
	return nil
}

func (r *memNotificationRepo) CountUnread(ctx context.Context, receiverID uuid.UUID) (int64, error) {
	var count int64
	for _, n := range r.db.notifications {
		if n.ReceiverID == receiverID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

// tag repo

type memTagRepo struct {
	db *memDB
}

func (r *memTagRepo) GetOrCreate(ctx context.Context, name string) (*model.Tag, error) {
	if tag, ok := r.db.tags[name]; ok {
		copied := *tag
		return &copied, nil
	}
	r.db.tagSeq++
	tag := &model.Tag{ID: r.db.tagSeq, Name: name}
	r.db.tags[name] = tag
	copied := *tag
	return &copied, nil
}

func (r *memTagRepo) GetOrCreateAll(ctx context.Context, names []string) ([]model.Tag, error) {
	tags := make([]model.Tag, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		tag, err := r.GetOrCreate(ctx, name)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *tag)
	}
	return tags, nil
}

// celebrity repo

type memCelebrityRepo struct {
	db *memDB
}

func (r *memCelebrityRepo) Create(ctx context.Context, celebrity *model.Celebrity) error {
	if celebrity.ID == uuid.Nil {
		celebrity.ID, _ = uuid.NewV7()
	}
	copied := *celebrity
	r.db.celebrities[celebrity.ID] = &copied
	return nil
}

func (r *memCelebrityRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Celebrity, error) {
	celebrity, ok := r.db.celebrities[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	copied := *celebrity
	return &copied, nil
}

func (r *memCelebrityRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Celebrity, error) {
	var celebrities []model.Celebrity
	for _, id := range ids {
		if celebrity, ok := r.db.celebrities[id]; ok {
			celebrities = append(celebrities, *celebrity)
		}
	}
	return celebrities, nil
}

func (r *memCelebrityRepo) Save(ctx context.Context, celebrity *model.Celebrity) error {
	copied := *celebrity
	r.db.celebrities[celebrity.ID] = &copied
	return nil
}

func (r *memCelebrityRepo) List(ctx context.Context, offset, limit int) ([]model.Celebrity, int64, error) {
	var celebrities []model.Celebrity
	for _, celebrity := range r.db.celebrities {
		celebrities = append(celebrities, *celebrity)
	}
	return pageSlice(celebrities, offset, limit), int64(len(r.db.celebrities)), nil
}

func (r *memCelebrityRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	delete(r.db.celebrities, id)
	return nil
}

func pageSlice[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
