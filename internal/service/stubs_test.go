package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"yatube/internal/models"
	"yatube/internal/repository"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn  func(context.Context, *models.Post) error
	getByIDFn func(context.Context, uint) (*models.Post, error)
	listFn    func(context.Context, repository.PostFilter, int, int) ([]*models.Post, error)
	countFn   func(context.Context, repository.PostFilter) (int64, error)
	updateFn  func(context.Context, *models.Post) error
	deleteFn  func(context.Context, uint) error
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, f repository.PostFilter, limit, offset int) ([]*models.Post, error) {
	return s.listFn(ctx, f, limit, offset)
}
func (s *postRepoStub) Count(ctx context.Context, f repository.PostFilter) (int64, error) {
	return s.countFn(ctx, f)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:  func(context.Context, *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) { return nil, models.NewNotFoundError("Post", id) },
		listFn:    func(context.Context, repository.PostFilter, int, int) ([]*models.Post, error) { return nil, nil },
		countFn:   func(context.Context, repository.PostFilter) (int64, error) { return 0, nil },
		updateFn:  func(context.Context, *models.Post) error { return nil },
		deleteFn:  func(context.Context, uint) error { return nil },
	}
}

// groupRepoStub is a stub for repository.GroupRepository.
type groupRepoStub struct {
	bySlug map[string]*models.Group
}

func (s *groupRepoStub) Create(_ context.Context, g *models.Group) error {
	s.bySlug[g.Slug] = g
	return nil
}
func (s *groupRepoStub) GetByID(_ context.Context, id uint) (*models.Group, error) {
	for _, g := range s.bySlug {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, models.NewNotFoundError("Group", id)
}
func (s *groupRepoStub) GetBySlug(_ context.Context, slug string) (*models.Group, error) {
	if g, ok := s.bySlug[slug]; ok {
		return g, nil
	}
	return nil, models.NewNotFoundError("Group", slug)
}
func (s *groupRepoStub) List(context.Context) ([]*models.Group, error) {
	out := make([]*models.Group, 0, len(s.bySlug))
	for _, g := range s.bySlug {
		out = append(out, g)
	}
	return out, nil
}

// memUserRepo is an in-memory repository.UserRepository.
type memUserRepo struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*models.User
}

func newMemUserRepo(users ...*models.User) *memUserRepo {
	r := &memUserRepo{users: map[uint]*models.User{}}
	for _, u := range users {
		_ = r.Create(context.Background(), u)
	}
	return r
}

func (r *memUserRepo) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == u.Username {
			return models.NewValidationError("A user with that username already exists.")
		}
	}
	r.nextID++
	u.ID = r.nextID
	cp := *u
	r.users[u.ID] = &cp
	return nil
}
func (r *memUserRepo) GetByID(_ context.Context, id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, models.NewNotFoundError("User", id)
}
func (r *memUserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}
func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email != "" && u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}
func (r *memUserRepo) UpdatePassword(_ context.Context, id uint, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return models.NewNotFoundError("User", id)
	}
	u.Password = hash
	return nil
}
func (r *memUserRepo) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

// followRepoStub is an in-memory repository.FollowRepository.
type followRepoStub struct {
	edges     map[[2]uint]bool
	createErr error
}

func newFollowRepoStub() *followRepoStub {
	return &followRepoStub{edges: map[[2]uint]bool{}}
}

func (s *followRepoStub) Create(_ context.Context, userID, authorID uint) error {
	if s.createErr != nil {
		return s.createErr
	}
	key := [2]uint{userID, authorID}
	if s.edges[key] {
		return repository.ErrAlreadyFollowing
	}
	s.edges[key] = true
	return nil
}
func (s *followRepoStub) Delete(_ context.Context, userID, authorID uint) (bool, error) {
	key := [2]uint{userID, authorID}
	existed := s.edges[key]
	delete(s.edges, key)
	return existed, nil
}
func (s *followRepoStub) IsFollowing(_ context.Context, userID, authorID uint) (bool, error) {
	return s.edges[[2]uint{userID, authorID}], nil
}
func (s *followRepoStub) CountFollowers(_ context.Context, authorID uint) (int64, error) {
	var n int64
	for k := range s.edges {
		if k[1] == authorID {
			n++
		}
	}
	return n, nil
}
func (s *followRepoStub) CountFollowing(_ context.Context, userID uint) (int64, error) {
	var n int64
	for k := range s.edges {
		if k[0] == userID {
			n++
		}
	}
	return n, nil
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	created []*models.Comment
}

func (s *commentRepoStub) Create(_ context.Context, c *models.Comment) error {
	c.ID = uint(len(s.created) + 1)
	s.created = append(s.created, c)
	return nil
}
func (s *commentRepoStub) ListByPost(_ context.Context, postID uint) ([]*models.Comment, error) {
	var out []*models.Comment
	for _, c := range s.created {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	return out, nil
}
func (s *commentRepoStub) CountByPost(ctx context.Context, postID uint) (int64, error) {
	list, _ := s.ListByPost(ctx, postID)
	return int64(len(list)), nil
}

// memStorage is an in-memory media.Storage.
type memStorage struct {
	files map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{files: map[string][]byte{}}
}

func (s *memStorage) Write(_ context.Context, key string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if _, taken := s.files[key]; taken {
		key += "_1"
	}
	s.files[key] = b
	return key, nil
}
func (s *memStorage) Read(_ context.Context, key string) (io.ReadCloser, error) {
	b, ok := s.files[key]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", key)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}
func (s *memStorage) Delete(_ context.Context, key string) error {
	delete(s.files, key)
	return nil
}
func (s *memStorage) Exists(_ context.Context, key string) (bool, error) {
	_, ok := s.files[key]
	return ok, nil
}
func (s *memStorage) BasePath() string {
	return ""
}
