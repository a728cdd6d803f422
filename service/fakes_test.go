package service

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"go-marketplace-api/config"
	"go-marketplace-api/ids"
	"go-marketplace-api/model"
	"go-marketplace-api/repository"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

var testJWT = config.JWTConfig{
	AccessSecret:  "test-access-secret",
	RefreshSecret: "test-refresh-secret",
	AccessTTL:     15 * time.Minute,
	RefreshTTL:    24 * time.Hour,
	Issuer:        "backend-dashboard",
	Audience:      "dashboard-users",
	Algorithm:     "HS256",
}

func testHasher() PasswordHasher {
	return NewPasswordHasher(config.PasswordConfig{Algorithm: "bcrypt", BcryptCost: bcrypt.MinCost})
}

// testClock is a settable time source shared by the services under test.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// memUserRepo is an in-memory IUserRepository with the same compare-and-set
// semantics as the SQL implementation.
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*model.User)}
}

func cloneUser(u *model.User) *model.User {
	c := *u
	c.Roles = append([]model.Role(nil), u.Roles...)
	if u.RefreshTokenHash != nil {
		h := *u.RefreshTokenHash
		c.RefreshTokenHash = &h
	}
	return &c
}

func (r *memUserRepo) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicateEmail
		}
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	u.IsActive = true
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	r.users[u.ID] = cloneUser(u)
	return nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.IsActive && strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || !u.IsActive {
		return nil, sql.ErrNoRows
	}
	return cloneUser(u), nil
}

func (r *memUserRepo) GetAllUsers(context.Context) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, cloneUser(u))
	}
	return out, nil
}

func (r *memUserRepo) UpdateRoles(_ context.Context, id string, roles []model.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || !u.IsActive {
		return sql.ErrNoRows
	}
	u.Roles = append([]model.Role(nil), roles...)
	return nil
}

func (r *memUserRepo) UpdateRefreshTokenHash(_ context.Context, id string, hash *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil
	}
	if hash == nil {
		u.RefreshTokenHash = nil
		return nil
	}
	h := *hash
	u.RefreshTokenHash = &h
	now := time.Now()
	u.LastLoginAt = &now
	return nil
}

func (r *memUserRepo) SwapRefreshTokenHash(_ context.Context, id, expected, next string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || !u.IsActive || u.RefreshTokenHash == nil || *u.RefreshTokenHash != expected {
		return false, nil
	}
	u.RefreshTokenHash = &next
	now := time.Now()
	u.LastLoginAt = &now
	return true, nil
}

func (r *memUserRepo) clearLastLogin(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[id].LastLoginAt = nil
}

// barrierUserRepo holds every GetByID until n callers have read the user, so
// all of them see the same stored refresh hash.
type barrierUserRepo struct {
	*memUserRepo
	n       int
	mu      sync.Mutex
	arrived int
	release chan struct{}
}

func newBarrierUserRepo(inner *memUserRepo, n int) *barrierUserRepo {
	return &barrierUserRepo{memUserRepo: inner, n: n, release: make(chan struct{})}
}

func (r *barrierUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := r.memUserRepo.GetByID(ctx, id)
	r.mu.Lock()
	r.arrived++
	if r.arrived == r.n {
		close(r.release)
	}
	r.mu.Unlock()
	<-r.release
	return u, err
}

// forgetfulRevocationRepo accepts inserts but never finds them, leaving the
// stored hash as the only replay guard.
type forgetfulRevocationRepo struct{}

func (forgetfulRevocationRepo) Insert(context.Context, *model.RevokedToken) error { return nil }

func (forgetfulRevocationRepo) FindActive(context.Context, string, time.Time) (*model.RevokedToken, error) {
	return nil, sql.ErrNoRows
}

func (forgetfulRevocationRepo) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (r *memUserRepo) deactivate(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[id].IsActive = false
}

func (r *memUserRepo) storedHash(id string) *string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id].RefreshTokenHash
}

// memRevocationRepo is an in-memory IRevocationRepository.
type memRevocationRepo struct {
	mu      sync.Mutex
	records []model.RevokedToken
}

func (r *memRevocationRepo) Insert(_ context.Context, t *model.RevokedToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = int64(len(r.records) + 1)
	r.records = append(r.records, *t)
	return nil
}

func (r *memRevocationRepo) FindActive(_ context.Context, hash string, now time.Time) (*model.RevokedToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.TokenHash == hash && !now.After(rec.ExpiresAt) {
			found := rec
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *memRevocationRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.records[:0]
	var n int64
	for _, rec := range r.records {
		if rec.ExpiresAt.Before(now) {
			n++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return n, nil
}

func (r *memRevocationRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// mockUserRepo is a testify mock for IUserRepository.
type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) Create(ctx context.Context, u *model.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) GetAllUsers(ctx context.Context) ([]*model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

func (m *mockUserRepo) UpdateRoles(ctx context.Context, id string, roles []model.Role) error {
	args := m.Called(ctx, id, roles)
	return args.Error(0)
}

func (m *mockUserRepo) UpdateRefreshTokenHash(ctx context.Context, id string, hash *string) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}

func (m *mockUserRepo) SwapRefreshTokenHash(ctx context.Context, id, expected, next string) (bool, error) {
	args := m.Called(ctx, id, expected, next)
	return args.Bool(0), args.Error(1)
}

// mockRevocationRepo is a testify mock for IRevocationRepository.
type mockRevocationRepo struct{ mock.Mock }

func (m *mockRevocationRepo) Insert(ctx context.Context, t *model.RevokedToken) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockRevocationRepo) FindActive(ctx context.Context, hash string, now time.Time) (*model.RevokedToken, error) {
	args := m.Called(ctx, hash, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RevokedToken), args.Error(1)
}

func (m *mockRevocationRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// mockCache is a testify mock for ICacheClient.
type mockCache struct{ mock.Mock }

func (m *mockCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	args := m.Called(ctx, key, value, expiration)
	return args.Get(0).(*redis.StatusCmd)
}

func (m *mockCache) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	args := m.Called(ctx, keys)
	return args.Get(0).(*redis.IntCmd)
}
