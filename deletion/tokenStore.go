package deletion

import (
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/config"
	"bitbucket.org/mmdatafocus/garage_backend/models"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
	"github.com/google/uuid"
)

// PreviewToken proves a user saw the deletion summary before confirming.
// Single use, time limited, and bound to the exact actor/tenant/record
// scope the preview was issued for.
type PreviewToken struct {
	Token string `json:"token"`

	UserId     int    `json:"user_id"`
	BusinessId string `json:"business_id"`
	BranchId   int    `json:"branch_id"`

	Entity    models.EntityType `json:"entity"`
	RecordId  int               `json:"record_id"`
	Operation models.Operation  `json:"operation"`

	Summary CompactSummary `json:"summary"`

	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (t *PreviewToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// TokenStore issues and redeems preview tokens. Redis is the shared store
// when connected; the local map is used ONLY without a Redis client
// (single-instance deployments, tests). Mixing the two would let each
// instance redeem its own copy and break single-use redemption.
// A service instance, constructed once and passed around - never a
// package-level singleton.
type TokenStore struct {
	ttl time.Duration

	mu    sync.Mutex
	local map[string]*PreviewToken

	now func() time.Time
}

func NewTokenStore() *TokenStore {
	return &TokenStore{
		ttl:   config.PreviewTokenTTL(),
		local: make(map[string]*PreviewToken),
		now:   time.Now,
	}
}

const tokenKeyPrefix = "deletion_preview:"

// Issue mints a token for a fresh summary. A summary that does not name
// an entity and record is not confirmable and is rejected outright.
func (s *TokenStore) Issue(userId int, scope Scope, summary CompactSummary) (*PreviewToken, error) {
	if summary.Entity == "" || summary.RecordId <= 0 {
		return nil, utils.ErrorInvalidSummary
	}

	now := s.now()
	token := &PreviewToken{
		Token:      uuid.NewString(),
		UserId:     userId,
		BusinessId: scope.BusinessId,
		BranchId:   scope.BranchId,
		Entity:     summary.Entity,
		RecordId:   summary.RecordId,
		Operation:  summary.Operation,
		Summary:    summary,
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.ttl),
	}

	if s.shared() {
		if err := config.SetRedisObject(tokenKeyPrefix+token.Token, token, s.ttl); err != nil {
			return nil, err
		}
		return token, nil
	}

	s.mu.Lock()
	s.evictExpiredLocked(now)
	s.local[token.Token] = token
	s.mu.Unlock()

	return token, nil
}

// Get returns the token without consuming it, or nil when unknown.
func (s *TokenStore) Get(token string) (*PreviewToken, error) {
	if s.shared() {
		var stored PreviewToken
		found, err := config.GetRedisObject(tokenKeyPrefix+token, &stored)
		if err != nil || !found {
			return nil, err
		}
		return &stored, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.local[token]; ok {
		copy := *t
		return &copy, nil
	}
	return nil, nil
}

// Consume redeems the token. A token redeems exactly once across all
// instances; the second caller gets nil. On the shared path GETDEL does
// the read and the delete in one round trip, so two racing confirms can
// never both win.
func (s *TokenStore) Consume(token string) (*PreviewToken, error) {
	if s.shared() {
		var stored PreviewToken
		found, err := config.GetDelRedisObject(tokenKeyPrefix+token, &stored)
		if err != nil || !found {
			return nil, err
		}
		return &stored, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.local[token]
	if !ok {
		return nil, nil
	}
	delete(s.local, token)
	return stored, nil
}

// Restore puts a consumed token back, for confirm paths that consume before
// committing and must undo on rollback.
func (s *TokenStore) Restore(token *PreviewToken) error {
	if token == nil {
		return nil
	}
	remaining := token.ExpiresAt.Sub(s.now())
	if remaining <= 0 {
		return nil
	}
	if s.shared() {
		return config.SetRedisObject(tokenKeyPrefix+token.Token, token, remaining)
	}
	s.mu.Lock()
	s.local[token.Token] = token
	s.mu.Unlock()
	return nil
}

func (s *TokenStore) shared() bool {
	return config.GetRedisDB() != nil
}

func (s *TokenStore) evictExpiredLocked(now time.Time) {
	for k, t := range s.local {
		if t.Expired(now) {
			delete(s.local, k)
		}
	}
}
