package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/apperr"
	"fintrack/internal/models"
	"fintrack/internal/repository"
	"fintrack/internal/schema"
)

var (
	alice = models.Principal{ID: "u1", Role: models.RoleUser}
	bob   = models.Principal{ID: "u2", Role: models.RoleUser}
	root  = models.Principal{ID: "a1", Role: models.RoleAdmin}
)

// newTestService returns a transactions service over a fresh in-memory
// store with a deterministic clock and id sequence.
func newTestService(t *testing.T) (*ResourceService, *repository.MemoryRecordStore) {
	t.Helper()
	store := repository.NewMemoryRecordStore()
	svc := NewResourceService(schema.Transactions(), store, 100)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	seq := 0
	svc.newID = func() string {
		seq++
		return fmt.Sprintf("rec-%03d", seq)
	}
	return svc, store
}

func validPayload() map[string]any {
	return map[string]any{
		"description": "groceries",
		"amount":      42.5,
		"kind":        "expense",
		"category":    "food",
		"occurredAt":  "2024-03-01T10:00:00Z",
	}
}

func TestCreateReadRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, alice, validPayload())
	require.NoError(t, err)
	assert.Equal(t, "u1", created.OwnerID)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, int64(1), created.Version)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	got, err := svc.Read(ctx, alice, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
	assert.Equal(t, validPayload(), got.Fields)
}

func TestCreateValidationListsEveryViolation(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, alice, map[string]any{
		"amount": -3,
		"kind":   "teleport",
		"bogus":  true,
	})
	require.Error(t, err)
	require.True(t, apperr.IsKind(err, apperr.KindValidation))

	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	fields := make([]string, 0, len(e.Fields))
	for _, v := range e.Fields {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{"description", "occurredAt", "amount", "kind", "bogus"}, fields)

	// Nothing was persisted.
	_, total, err := store.FindMany(ctx, "transactions", repository.RecordQuery{Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestReadNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Read(context.Background(), alice, "missing")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestOwnershipForbidden(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, alice, validPayload())
	require.NoError(t, err)

	_, err = svc.Read(ctx, bob, created.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden), "read: %v", err)

	_, err = svc.Update(ctx, bob, created.ID, map[string]any{"category": "travel"})
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden), "update: %v", err)

	err = svc.Delete(ctx, bob, created.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden), "delete: %v", err)

	// Admin passes all three gates.
	_, err = svc.Read(ctx, root, created.ID)
	assert.NoError(t, err)
}

func TestUpdateMergesAndBumpsVersion(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, alice, validPayload())
	require.NoError(t, err)

	updated, err := svc.Update(ctx, alice, created.ID, map[string]any{"category": "travel"})
	require.NoError(t, err)
	assert.Equal(t, "travel", updated.Fields["category"])
	assert.Equal(t, "groceries", updated.Fields["description"], "untouched fields survive the merge")
	assert.Equal(t, int64(2), updated.Version)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
}

func TestUpdateOwnerAndIDImmutable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, alice, validPayload())
	require.NoError(t, err)

	// Attempts to change id/ownerId are ignored, not rejected.
	updated, err := svc.Update(ctx, alice, created.ID, map[string]any{
		"ownerId":  "u2",
		"id":       "other",
		"category": "travel",
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", updated.OwnerID)
	assert.Equal(t, created.ID, updated.ID)

	stored, err := svc.Read(ctx, alice, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1", stored.OwnerID)
}

func TestUpdateValidatesOnlyPresentFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, alice, validPayload())
	require.NoError(t, err)

	// Partial update omitting required fields is fine.
	_, err = svc.Update(ctx, alice, created.ID, map[string]any{"category": "travel"})
	assert.NoError(t, err)

	// A present field still gets fully checked.
	_, err = svc.Update(ctx, alice, created.ID, map[string]any{"kind": "teleport"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestUpdateMissingRecord(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Update(context.Background(), alice, "missing", map[string]any{"category": "x"})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestUpdateConflictPropagates(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, alice, validPayload())
	require.NoError(t, err)

	// Simulate a concurrent writer bumping the version between the
	// service's read and its replace.
	raced := created.Clone()
	raced.Version = 2
	require.NoError(t, store.Replace(ctx, "transactions", raced, 1))

	_, err = svc.Update(ctx, alice, created.ID, map[string]any{"category": "travel"})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict), "got %v", err)
}

func TestDeleteStrictNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, alice, validPayload())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, alice, created.ID))

	// Deleting again fails; delete is deliberately not idempotent.
	err = svc.Delete(ctx, alice, created.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	_, err = svc.Read(ctx, alice, created.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestListPaginationScenario(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Three records with strictly increasing createdAt (ticking clock).
	var ids []string
	for i := 0; i < 3; i++ {
		rec, err := svc.Create(ctx, alice, validPayload())
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	page0, err := svc.List(ctx, alice, ListFilter{}, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page0.TotalCount)
	require.Len(t, page0.Items, 2)
	assert.Equal(t, ids[0], page0.Items[0].ID)
	assert.Equal(t, ids[1], page0.Items[1].ID)

	page1, err := svc.List(ctx, alice, ListFilter{}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page1.TotalCount)
	require.Len(t, page1.Items, 1)
	assert.Equal(t, ids[2], page1.Items[0].ID)

	// Identical arguments, identical page.
	again, err := svc.List(ctx, alice, ListFilter{}, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, page0, again)
}

func TestListCoversWholeSetExactlyOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	const n, pageSize = 7, 3
	for i := 0; i < n; i++ {
		_, err := svc.Create(ctx, alice, validPayload())
		require.NoError(t, err)
	}

	seen := make(map[string]bool)
	for idx := 0; idx*pageSize < n; idx++ {
		page, err := svc.List(ctx, alice, ListFilter{}, idx, pageSize)
		require.NoError(t, err)
		assert.Equal(t, n, page.TotalCount)
		for _, rec := range page.Items {
			assert.False(t, seen[rec.ID], "record %s seen twice", rec.ID)
			seen[rec.ID] = true
		}
	}
	assert.Len(t, seen, n)
}

func TestListScopeForcedForNonAdmins(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, alice, validPayload())
	require.NoError(t, err)
	other, err := svc.Create(ctx, bob, validPayload())
	require.NoError(t, err)

	// Alice cannot widen scope by naming another owner.
	page, err := svc.List(ctx, alice, ListFilter{OwnerID: "u2"}, 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "u1", page.Items[0].OwnerID)

	// Admins see everything and may filter by owner.
	page, err = svc.List(ctx, root, ListFilter{}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalCount)

	page, err = svc.List(ctx, root, ListFilter{OwnerID: "u2"}, 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, other.ID, page.Items[0].ID)
}

func TestListFieldFilter(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, alice, validPayload())
	require.NoError(t, err)
	income := validPayload()
	income["kind"] = "income"
	wanted, err := svc.Create(ctx, alice, income)
	require.NoError(t, err)

	page, err := svc.List(ctx, alice, ListFilter{Fields: map[string]any{"kind": "income"}}, 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, wanted.ID, page.Items[0].ID)
}

func TestListPageSizeBounds(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name      string
		pageIndex int
		pageSize  int
	}{
		{"zero page size", 0, 0},
		{"negative page size", 0, -1},
		{"over maximum", 0, 101},
		{"negative page index", -1, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.List(ctx, alice, ListFilter{}, tc.pageIndex, tc.pageSize)
			assert.True(t, apperr.IsKind(err, apperr.KindValidation), "got %v", err)
		})
	}
}

func TestStoreFailurePropagatesUnmodified(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, alice, validPayload())
	require.NoError(t, err)

	store.Fail(fmt.Errorf("connection refused"))
	defer store.Fail(nil)

	_, err = svc.Read(ctx, alice, created.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindStoreUnavailable))

	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	assert.True(t, e.Retryable())
}
