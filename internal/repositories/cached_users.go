package repositories

import (
	"context"
	"time"

	"github.com/c-pro/geche"

	"dm-service/internal/models"
)

// CachedUserRepo memoises GetUser lookups for a short TTL. Profiles are
// looked up on every send, listing always goes to the backing store.
type CachedUserRepo struct {
	next  UserRepository
	cache geche.Geche[string, models.User]
}

// NewCachedUserRepo wraps next. The cache's cleanup goroutine stops with ctx.
func NewCachedUserRepo(ctx context.Context, next UserRepository, ttl time.Duration) *CachedUserRepo {
	return &CachedUserRepo{
		next:  next,
		cache: geche.NewMapTTLCache[string, models.User](ctx, ttl, time.Minute),
	}
}

func (r *CachedUserRepo) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	created, err := r.next.CreateUser(ctx, user)
	if err != nil {
		return models.User{}, err
	}
	r.cache.Set(created.ID, created)
	return created, nil
}

func (r *CachedUserRepo) GetUser(ctx context.Context, userID string) (models.User, error) {
	if user, err := r.cache.Get(userID); err == nil {
		return user, nil
	}
	user, err := r.next.GetUser(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	r.cache.Set(userID, user)
	return user, nil
}

func (r *CachedUserRepo) ListUsersExcept(ctx context.Context, userID string) ([]models.User, error) {
	return r.next.ListUsersExcept(ctx, userID)
}
