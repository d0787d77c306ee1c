package deletion

import (
	"errors"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/config"
	"bitbucket.org/mmdatafocus/garage_backend/models"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
)

// NOTE: These tests run without Redis. The config redis helpers degrade to
// no-ops when no client is connected, so the store exercises its local map,
// which is also the single-instance production path.

func newTestStore(ttl time.Duration) *TokenStore {
	return &TokenStore{
		ttl:   ttl,
		local: make(map[string]*PreviewToken),
		now:   time.Now,
	}
}

func testSummary() CompactSummary {
	return CompactSummary{
		Entity:        models.EntityInvoicePayment,
		RecordId:      7,
		Operation:     models.OperationReverse,
		CanProceed:    true,
		ExecutionMode: models.ExecutionModeFinancialReversal,
	}
}

func TestTokenStore_IssueAndGet(t *testing.T) {
	store := newTestStore(time.Minute)
	scope := Scope{BusinessId: "biz-1", BranchId: 2}

	token, err := store.Issue(11, scope, testSummary())
	if err != nil {
		t.Fatal(err)
	}
	if token.Token == "" {
		t.Fatal("issued token has empty id")
	}
	if token.UserId != 11 || token.BusinessId != "biz-1" || token.BranchId != 2 {
		t.Fatalf("scope binding wrong: %+v", token)
	}
	if token.Entity != models.EntityInvoicePayment || token.RecordId != 7 {
		t.Fatalf("entity binding wrong: %+v", token)
	}
	if !token.ExpiresAt.After(token.IssuedAt) {
		t.Fatal("ExpiresAt not after IssuedAt")
	}

	got, err := store.Get(token.Token)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Token != token.Token {
		t.Fatalf("Get returned %+v", got)
	}

	// Get must not consume.
	again, err := store.Get(token.Token)
	if err != nil || again == nil {
		t.Fatalf("second Get = %+v, %v", again, err)
	}
}

func TestTokenStore_ConsumeIsSingleUse(t *testing.T) {
	store := newTestStore(time.Minute)

	token, err := store.Issue(1, Scope{BusinessId: "biz-1"}, testSummary())
	if err != nil {
		t.Fatal(err)
	}

	first, err := store.Consume(token.Token)
	if err != nil {
		t.Fatal(err)
	}
	if first == nil {
		t.Fatal("first Consume returned nil")
	}

	second, err := store.Consume(token.Token)
	if err != nil {
		t.Fatal(err)
	}
	if second != nil {
		t.Fatal("second Consume returned the token again")
	}

	if got, _ := store.Get(token.Token); got != nil {
		t.Fatal("Get still finds a consumed token")
	}
}

func TestTokenStore_LocalMapOnlyWithoutRedis(t *testing.T) {
	if config.GetRedisDB() != nil {
		t.Skip("redis connected; local-map mode not in effect")
	}
	store := newTestStore(time.Minute)

	token, err := store.Issue(11, Scope{BusinessId: "biz-1", BranchId: 2}, testSummary())
	if err != nil {
		t.Fatal(err)
	}

	store.mu.Lock()
	_, ok := store.local[token.Token]
	store.mu.Unlock()
	if !ok {
		t.Fatal("token not held in the local map without redis")
	}
}

func TestTokenStore_RejectsInvalidSummary(t *testing.T) {
	store := newTestStore(time.Minute)
	scope := Scope{BusinessId: "biz-1", BranchId: 2}

	noEntity := testSummary()
	noEntity.Entity = ""
	if _, err := store.Issue(11, scope, noEntity); !errors.Is(err, utils.ErrorInvalidSummary) {
		t.Fatalf("missing entity err = %v, want invalid summary", err)
	}

	noRecord := testSummary()
	noRecord.RecordId = 0
	if _, err := store.Issue(11, scope, noRecord); !errors.Is(err, utils.ErrorInvalidSummary) {
		t.Fatalf("missing record err = %v, want invalid summary", err)
	}
}

func TestTokenStore_UnknownToken(t *testing.T) {
	store := newTestStore(time.Minute)

	if got, err := store.Get("no-such-token"); err != nil || got != nil {
		t.Fatalf("Get unknown = %+v, %v", got, err)
	}
	if got, err := store.Consume("no-such-token"); err != nil || got != nil {
		t.Fatalf("Consume unknown = %+v, %v", got, err)
	}
}

func TestTokenStore_Expiry(t *testing.T) {
	current := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := newTestStore(15 * time.Minute)
	store.now = func() time.Time { return current }

	token, err := store.Issue(1, Scope{BusinessId: "biz-1"}, testSummary())
	if err != nil {
		t.Fatal(err)
	}

	if token.Expired(current.Add(14 * time.Minute)) {
		t.Fatal("token expired before TTL")
	}
	if !token.Expired(current.Add(16 * time.Minute)) {
		t.Fatal("token still valid past TTL")
	}

	// Issuing later evicts the stale entry from the local map.
	current = current.Add(time.Hour)
	if _, err := store.Issue(2, Scope{BusinessId: "biz-1"}, testSummary()); err != nil {
		t.Fatal(err)
	}
	store.mu.Lock()
	_, stale := store.local[token.Token]
	store.mu.Unlock()
	if stale {
		t.Fatal("expired token not evicted on next Issue")
	}
}

func TestTokenStore_RestoreAfterFailedExecution(t *testing.T) {
	store := newTestStore(time.Minute)

	token, err := store.Issue(1, Scope{BusinessId: "biz-1"}, testSummary())
	if err != nil {
		t.Fatal(err)
	}
	consumed, err := store.Consume(token.Token)
	if err != nil || consumed == nil {
		t.Fatalf("Consume = %+v, %v", consumed, err)
	}

	if err := store.Restore(consumed); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(token.Token)
	if err != nil || got == nil {
		t.Fatalf("restored token not findable: %+v, %v", got, err)
	}

	// An expired token must not come back.
	expired := *consumed
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	if _, err := store.Consume(token.Token); err != nil {
		t.Fatal(err)
	}
	if err := store.Restore(&expired); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.Get(token.Token); got != nil {
		t.Fatal("expired token restored")
	}
}
