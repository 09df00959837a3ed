package scan

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aras-services/goframe/internal/orm/ormtest"
	"github.com/aras-services/goframe/internal/repository"
)

type widget struct {
	ID   int64 `db:"id" pk:"true"`
	Name string `db:"name"`
}

type widgetRepository struct {
	repository.Base[widget, int64]
}

type notARepository struct {
	Name string
}

func TestRegistryComponentsEntitiesAreIdempotent(t *testing.T) {
	r := NewRegistry()
	typ := reflect.TypeOf(widget{})

	r.RegisterComponent(typ, ComponentOptions{Name: "widget"})
	r.RegisterComponent(typ, ComponentOptions{Name: "widget-again"})
	assert.Len(t, r.Components(), 1)
	assert.Equal(t, "widget", r.Components()[0].Options.Name)

	r.RegisterEntity(typ)
	r.RegisterEntity(typ)
	assert.Len(t, r.Entities(), 1)
}

func TestRegistryRepositoryAcceptsBaseEmbedder(t *testing.T) {
	r := NewRegistry()
	entityType := reflect.TypeOf(widget{})

	r.RegisterRepository(func() any { return &widgetRepository{} }, entityType)
	r.RegisterRepository(func() any { return &widgetRepository{} }, entityType)

	repos := r.Repositories()
	require.Len(t, repos, 1)
	assert.Empty(t, r.Warnings())

	instance := repos[0].New()
	_, ok := instance.(*widgetRepository)
	require.True(t, ok)
	assert.Equal(t, entityType, repos[0].EntityType)
}

func TestRegistryRepositorySkipsNonEmbedderWithWarning(t *testing.T) {
	r := NewRegistry()
	r.RegisterRepository(func() any { return &notARepository{} }, reflect.TypeOf(widget{}))

	assert.Empty(t, r.Repositories())
	require.Len(t, r.Warnings(), 1)
	assert.Contains(t, r.Warnings()[0], "does not embed repository.Base")
}

func TestRegistrySkipsNonPointerRepository(t *testing.T) {
	r := NewRegistry()
	r.RegisterRepository(func() any { return notARepository{} }, reflect.TypeOf(widget{}))

	assert.Empty(t, r.Repositories())
	require.Len(t, r.Warnings(), 1)
	assert.Contains(t, r.Warnings()[0], "is not a pointer to a struct")
}

func TestDefaultRootsReturnsACopy(t *testing.T) {
	roots := DefaultRoots()
	require.NotEmpty(t, roots)
	roots[0] = "mutated"
	assert.NotEqual(t, roots[0], DefaultRoots()[0])
}

func TestDetectRootFallsBackWhenStackExhausted(t *testing.T) {
	got := DetectRoot(1000)
	assert.Equal(t, defaultRoots[0], got)
}

func TestRegisteredRepositoryIsWireable(t *testing.T) {
	r := NewRegistry()
	entityType := reflect.TypeOf(widget{})
	r.RegisterRepository(func() any { return &widgetRepository{} }, entityType)

	adapter := ormtest.New()
	synth := repository.NewSynthesizer(adapter)
	for _, re := range r.Repositories() {
		require.NoError(t, synth.Wire(re.New(), re.EntityType, nil))
	}
}
