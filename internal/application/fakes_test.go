package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wavlang/backend/internal/domain/entity"
	"github.com/wavlang/backend/internal/domain/repository"
	"github.com/wavlang/backend/pkg/googleauth"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*entity.User // by id
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]*entity.User{}}
}

func (r *memUserRepo) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) SetVerified(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Verified = true
	u.UpdatedAt = time.Now()
	return nil
}

func (r *memUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Password = hash
	u.UpdatedAt = time.Now()
	return nil
}

func (r *memUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

// setCreatedAt backdates a user for verification-window tests.
func (r *memUserRepo) setCreatedAt(id string, t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.CreatedAt = t
	}
}

type memTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*entity.Token // by (ownerID|kind)
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: map[string]*entity.Token{}}
}

func tokenKey(ownerID string, kind entity.TokenKind) string {
	return ownerID + "|" + string(kind)
}

func (r *memTokenRepo) Replace(_ context.Context, t *entity.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	cp := *t
	r.tokens[tokenKey(t.OwnerID, t.Kind)] = &cp
	return nil
}

func (r *memTokenRepo) GetActive(_ context.Context, ownerID string, kind entity.TokenKind) (*entity.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[tokenKey(ownerID, kind)]
	if !ok || t.Expired(time.Now()) {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *memTokenRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, t := range r.tokens {
		if t.ID == id {
			delete(r.tokens, k)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *memTokenRepo) DeleteByOwner(_ context.Context, ownerID string, kind entity.TokenKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, tokenKey(ownerID, kind))
	return nil
}

func (r *memTokenRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	now := time.Now()
	for k, t := range r.tokens {
		if t.Expired(now) {
			delete(r.tokens, k)
			n++
		}
	}
	return n, nil
}

// backdate shifts the stored token's timestamps for rate-limit and expiry tests.
func (r *memTokenRepo) backdate(ownerID string, kind entity.TokenKind, by time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tokens[tokenKey(ownerID, kind)]; ok {
		t.CreatedAt = t.CreatedAt.Add(-by)
		t.ExpiresAt = t.ExpiresAt.Add(-by)
	}
}

type memPublisher struct {
	mu   sync.Mutex
	jobs []any
	err  error
}

func (p *memPublisher) PublishJSON(_ context.Context, body any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, body)
	return nil
}

func (p *memPublisher) published() []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]any, len(p.jobs))
	copy(out, p.jobs)
	return out
}

type fakeGoogle struct {
	info *googleauth.UserInfo
	err  error
}

func (g *fakeGoogle) UserInfo(context.Context, string) (*googleauth.UserInfo, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.info, nil
}
