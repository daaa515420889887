package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerome00253/RIB-Factory/internal/domain"
)

func sourceFile(name string) domain.SourceFile {
	return domain.SourceFile{Name: name, Size: 4, ContentType: "application/pdf", Data: []byte("data")}
}

func validResult(iban string, page int) domain.ExtractionResult {
	return domain.ExtractionResult{
		Status:          domain.ExtractionStatusValid,
		ConfidenceScore: 90,
		ChecksumValid:   true,
		PageNumber:      page,
		Data:            domain.RibData{IBAN: iban},
	}
}

func claim(t *testing.T, store *ResultStore, id string) {
	t.Helper()
	_, err := store.Claim(id)
	require.NoError(t, err)
}

func TestResultStore_AppendAndGet(t *testing.T) {
	store := NewResultStore()

	id := store.Append(sourceFile("a.pdf"))
	require.NotEmpty(t, id)

	item, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", item.File.Name)
	assert.Equal(t, domain.ItemStatusPending, item.Status)
	assert.Nil(t, item.Result)
	assert.False(t, item.CreatedAt.IsZero())
}

func TestResultStore_Get_NotFound(t *testing.T) {
	store := NewResultStore()

	_, err := store.Get("nonexistent")
	assert.ErrorIs(t, err, domain.ErrScanNotFound)
}

func TestResultStore_ListPreservesInsertionOrder(t *testing.T) {
	store := NewResultStore()

	names := []string{"a.pdf", "b.png", "c.jpg"}
	for _, name := range names {
		store.Append(sourceFile(name))
	}

	rows := store.List()
	require.Len(t, rows, 3)
	for i, name := range names {
		assert.Equal(t, name, rows[i].File.Name)
	}
}

func TestResultStore_Lifecycle(t *testing.T) {
	store := NewResultStore()
	id := store.Append(sourceFile("a.pdf"))

	item, err := store.Claim(id)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusProcessing, item.Status)
	assert.Equal(t, "a.pdf", item.File.Name)

	item, err = store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusProcessing, item.Status)

	require.NoError(t, store.Complete(id, validResult("FR76", 1)))

	item, err = store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusDone, item.Status)
	require.NotNil(t, item.Result)
	assert.Equal(t, "FR76", item.Result.Data.IBAN)
}

func TestResultStore_InvalidTransitions(t *testing.T) {
	store := NewResultStore()
	id := store.Append(sourceFile("a.pdf"))

	// Completing a pending row skips the processing state.
	assert.ErrorIs(t, store.Complete(id, validResult("FR76", 1)), domain.ErrInvalidTransition)
	assert.ErrorIs(t, store.Fail(id, "boom"), domain.ErrInvalidTransition)

	claim(t, store, id)
	require.NoError(t, store.Fail(id, "boom"))

	// A terminal row never transitions again.
	_, err := store.Claim(id)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.ErrorIs(t, store.Complete(id, validResult("FR76", 1)), domain.ErrInvalidTransition)
	assert.ErrorIs(t, store.CompleteEmpty(id), domain.ErrInvalidTransition)

	item, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusError, item.Status)
	assert.Equal(t, "boom", item.ErrorMessage)
}

func TestResultStore_ClaimRemovedRow(t *testing.T) {
	store := NewResultStore()
	id := store.Append(sourceFile("a.pdf"))

	// A row deleted while waiting its turn must not be claimable.
	store.Remove(id)

	_, err := store.Claim(id)
	assert.ErrorIs(t, err, domain.ErrScanNotFound)
}

func TestResultStore_CompleteEmpty(t *testing.T) {
	store := NewResultStore()
	id := store.Append(sourceFile("a.pdf"))
	claim(t, store, id)

	require.NoError(t, store.CompleteEmpty(id))

	item, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusDone, item.Status)
	assert.Nil(t, item.Result)
	assert.Empty(t, item.ErrorMessage)
}

func TestResultStore_AppendDerived(t *testing.T) {
	store := NewResultStore()
	store.Append(sourceFile("a.pdf"))

	derivedID := store.AppendDerived(sourceFile("a.pdf"), validResult("FR76", 2))

	rows := store.List()
	require.Len(t, rows, 2)
	assert.Equal(t, derivedID, rows[1].ID)
	assert.Equal(t, domain.ItemStatusDone, rows[1].Status)
	require.NotNil(t, rows[1].Result)
	assert.Equal(t, 2, rows[1].Result.PageNumber)
}

func TestResultStore_RemovePreservesOthers(t *testing.T) {
	store := NewResultStore()

	var ids []string
	for _, name := range []string{"a.pdf", "b.png", "c.jpg", "d.pdf"} {
		ids = append(ids, store.Append(sourceFile(name)))
	}

	store.Remove(ids[1])

	rows := store.List()
	require.Len(t, rows, 3)
	assert.Equal(t, ids[0], rows[0].ID)
	assert.Equal(t, ids[2], rows[1].ID)
	assert.Equal(t, ids[3], rows[2].ID)
}

func TestResultStore_RemoveAbsentIsNoop(t *testing.T) {
	store := NewResultStore()
	store.Append(sourceFile("a.pdf"))

	store.Remove("nonexistent")

	assert.Equal(t, 1, store.Len())
}

func TestResultStore_FilterDoesNotMutate(t *testing.T) {
	store := NewResultStore()

	idA := store.Append(sourceFile("a.pdf"))
	claim(t, store, idA)
	require.NoError(t, store.Complete(idA, validResult("FR7630001007941234567890185", 1)))

	idB := store.Append(sourceFile("b.png"))
	claim(t, store, idB)
	require.NoError(t, store.CompleteEmpty(idB))

	before := store.List()

	for i := 0; i < 3; i++ {
		detected := store.Filter(domain.FilterDetected.Matches)
		require.Len(t, detected, 1)
		assert.Equal(t, idA, detected[0].ID)

		missing := store.Filter(domain.FilterNotDetected.Matches)
		require.Len(t, missing, 1)
		assert.Equal(t, idB, missing[0].ID)
	}

	assert.Equal(t, before, store.List())
}

func TestResultStore_RemoveMatching(t *testing.T) {
	store := NewResultStore()

	idA := store.Append(sourceFile("a.pdf"))
	claim(t, store, idA)
	require.NoError(t, store.Complete(idA, validResult("FR76", 1)))

	idB := store.Append(sourceFile("b.png"))
	claim(t, store, idB)
	require.NoError(t, store.CompleteEmpty(idB))

	// Pending rows must survive a "remove not detected" sweep.
	idC := store.Append(sourceFile("c.jpg"))

	removed := store.RemoveMatching(domain.FilterNotDetected.Matches)
	assert.Equal(t, 1, removed)

	rows := store.List()
	require.Len(t, rows, 2)
	assert.Equal(t, idA, rows[0].ID)
	assert.Equal(t, idC, rows[1].ID)
}

func TestResultStore_Clear(t *testing.T) {
	store := NewResultStore()
	store.Append(sourceFile("a.pdf"))
	store.Append(sourceFile("b.png"))

	store.Clear()

	assert.Equal(t, 0, store.Len())
	assert.Empty(t, store.List())
}
