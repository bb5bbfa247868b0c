package infra

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"driveon/internal/modules/auth/domain"
)

type memAccountRepo struct {
	mu         sync.RWMutex
	accounts   map[string]*domain.Account // id -> account
	byEmail    map[string]string
	byPhone    map[string]string
	byReferral map[string]string
}

func NewMemAccountRepo() domain.AccountRepo {
	return &memAccountRepo{
		accounts:   make(map[string]*domain.Account),
		byEmail:    make(map[string]string),
		byPhone:    make(map[string]string),
		byReferral: make(map[string]string),
	}
}

func (r *memAccountRepo) Create(_ context.Context, p domain.CreateAccountParams) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[p.Email]; ok {
		return nil, domain.ErrEmailTaken
	}
	if _, ok := r.byPhone[p.Phone]; ok {
		return nil, domain.ErrPhoneTaken
	}
	now := time.Now().UTC()
	role := p.Role
	if role == "" {
		role = domain.RoleStandard
	}
	email, phone := p.Email, p.Phone
	a := &domain.Account{
		ID:           uuid.New().String(),
		Email:        &email,
		Phone:        &phone,
		Name:         p.Name,
		Role:         role,
		Active:       true,
		ReferralCode: p.ReferralCode,
		ReferredBy:   p.ReferredBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.accounts[a.ID] = a
	r.byEmail[email] = a.ID
	r.byPhone[phone] = a.ID
	if a.ReferralCode != "" {
		r.byReferral[a.ReferralCode] = a.ID
	}
	return copyAccount(a), nil
}

func (r *memAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyAccount(a), nil
}

func (r *memAccountRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyAccount(r.accounts[id]), nil
}

func (r *memAccountRepo) GetByPhone(_ context.Context, phone string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPhone[phone]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyAccount(r.accounts[id]), nil
}

func (r *memAccountRepo) GetByReferralCode(_ context.Context, code string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byReferral[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyAccount(r.accounts[id]), nil
}

func (r *memAccountRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byEmail[email]
	return ok, nil
}

func (r *memAccountRepo) ExistsByPhone(_ context.Context, phone string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byPhone[phone]
	return ok, nil
}

func (r *memAccountRepo) MarkEmailVerified(_ context.Context, id string) error {
	return r.update(id, func(a *domain.Account) { a.EmailVerified = true })
}

func (r *memAccountRepo) MarkPhoneVerified(_ context.Context, id string) error {
	return r.update(id, func(a *domain.Account) { a.PhoneVerified = true })
}

func (r *memAccountRepo) Deactivate(_ context.Context, id string) error {
	return r.update(id, func(a *domain.Account) { a.Active = false })
}

func (r *memAccountRepo) update(id string, fn func(*domain.Account)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(a)
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func copyAccount(a *domain.Account) *domain.Account {
	cp := *a
	if a.Email != nil {
		e := *a.Email
		cp.Email = &e
	}
	if a.Phone != nil {
		p := *a.Phone
		cp.Phone = &p
	}
	if a.ReferredBy != nil {
		rb := *a.ReferredBy
		cp.ReferredBy = &rb
	}
	return &cp
}

type memOTPRepo struct {
	mu    sync.Mutex
	codes []domain.OneTimeCode
}

func NewMemOTPRepo() domain.OTPRepo {
	return &memOTPRepo{}
}

func (r *memOTPRepo) Issue(_ context.Context, c domain.OneTimeCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	r.codes = append(r.codes, c)
	return nil
}

func (r *memOTPRepo) Consume(_ context.Context, identifier, code string) (*domain.OneTimeCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	// newest first: records are appended in creation order
	for i := len(r.codes) - 1; i >= 0; i-- {
		c := &r.codes[i]
		if c.Identifier != identifier || c.Code != code || c.ConsumedAt != nil {
			continue
		}
		if now.After(c.ExpiresAt) {
			return nil, domain.ErrCodeExpired
		}
		c.ConsumedAt = &now
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrCodeInvalid
}

func (r *memOTPRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	kept := r.codes[:0]
	var removed int64
	for _, c := range r.codes {
		if now.After(c.ExpiresAt) {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	r.codes = kept
	return removed, nil
}
