package repository

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testUser struct {
	ID     int64  `db:"id" pk:"true"`
	Active bool   `db:"active"`
	Age    int    `db:"age"`
	Name   string `db:"name"`
}

type testUserRepository struct {
	Base[testUser, int64]

	FindByActiveAndAgeGreaterThanOrderByNameAsc func(ctx context.Context, active bool, age int) ([]*testUser, error)
}

func newWiredUserRepo(t *testing.T) (*testUserRepository, *fakeAdapter) {
	t.Helper()
	adapter := newFakeAdapter()
	synth := NewSynthesizer(adapter)
	repo := &testUserRepository{}
	require.NoError(t, synth.Wire(repo, reflect.TypeOf(testUser{}), nil))
	return repo, adapter
}

func TestRepositoryQueryParsingScenario(t *testing.T) {
	repo, _ := newWiredUserRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &testUser{ID: 1, Active: true, Age: 25, Name: "Bea"}))
	require.NoError(t, repo.Save(ctx, &testUser{ID: 2, Active: true, Age: 35, Name: "Amy"}))
	require.NoError(t, repo.Save(ctx, &testUser{ID: 3, Active: false, Age: 40, Name: "Cid"}))
	require.NoError(t, repo.Save(ctx, &testUser{ID: 4, Active: true, Age: 31, Name: "Dee"}))

	results, err := repo.FindByActiveAndAgeGreaterThanOrderByNameAsc(ctx, true, 30)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "Amy", results[0].Name)
	assert.Equal(t, "Dee", results[1].Name)
}

func TestRepositoryEquivalenceInvariant(t *testing.T) {
	repo, _ := newWiredUserRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &testUser{ID: 1, Active: true, Age: 20, Name: "A"}))
	require.NoError(t, repo.Save(ctx, &testUser{ID: 2, Active: true, Age: 21, Name: "B"}))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, len(all), count)

	exists, err := repo.ExistsByID(ctx, int64(1))
	require.NoError(t, err)
	found, err := repo.FindByID(ctx, int64(1))
	require.NoError(t, err)
	assert.Equal(t, found != nil, exists)

	missingExists, err := repo.ExistsByID(ctx, int64(999))
	require.NoError(t, err)
	missingFound, err := repo.FindByID(ctx, int64(999))
	require.NoError(t, err)
	assert.Equal(t, missingFound != nil, missingExists)
	assert.False(t, missingExists)
}

func TestBaseSaveUpdatesExistingRow(t *testing.T) {
	repo, _ := newWiredUserRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &testUser{ID: 1, Active: true, Age: 20, Name: "Original"}))
	require.NoError(t, repo.Save(ctx, &testUser{ID: 1, Active: false, Age: 21, Name: "Renamed"}))

	got, err := repo.FindByID(ctx, int64(1))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, 21, got.Age)
	assert.False(t, got.Active)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestBaseDeleteByID(t *testing.T) {
	repo, _ := newWiredUserRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &testUser{ID: 1, Active: true, Age: 20, Name: "A"}))
	require.NoError(t, repo.DeleteByID(ctx, int64(1)))

	got, err := repo.FindByID(ctx, int64(1))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestWireIsIdempotent(t *testing.T) {
	adapter := newFakeAdapter()
	synth := NewSynthesizer(adapter)
	repo := &testUserRepository{}
	require.NoError(t, synth.Wire(repo, reflect.TypeOf(testUser{}), nil))
	require.NoError(t, synth.Wire(repo, reflect.TypeOf(testUser{}), nil))
}

func TestUnbindableMethodFailsWire(t *testing.T) {
	type badRepo struct {
		Base[testUser, int64]
		TotallyCustomLogic func(ctx context.Context) error
	}
	adapter := newFakeAdapter()
	synth := NewSynthesizer(adapter)
	repo := &badRepo{}
	err := synth.Wire(repo, reflect.TypeOf(testUser{}), nil)
	assert.Error(t, err)
}
