package projects

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskd/internal/model"
	"github.com/nhle/taskd/internal/store"
	"github.com/nhle/taskd/tests/testutil"
)

func TestCreateValidates(t *testing.T) {
	s := testutil.NewTestStore(t)
	owner := testutil.SeedUser(t, s, "Ana", "ana@example.com")
	svc := NewService(s, zerolog.Nop())
	ctx := context.Background()

	cases := map[string]model.Project{
		"blank name":      {Name: "  ", OwnerID: owner.ID},
		"no owner":        {Name: "Apollo"},
		"unknown owner":   {Name: "Apollo", OwnerID: 999},
		"negative budget": {Name: "Apollo", OwnerID: owner.ID, Budget: -1},
	}
	for name, p := range cases {
		_, err := svc.Create(ctx, p)
		assert.ErrorIs(t, err, model.ErrInvalidInput, name)
	}

	got, err := svc.Create(ctx, model.Project{Name: " Apollo ", OwnerID: owner.ID, Budget: 900})
	require.NoError(t, err)
	assert.Equal(t, "Apollo", got.Name)
	assert.Equal(t, 900.0, got.Budget)
	assert.NotZero(t, got.ID)
}

func TestListUpdateDelete(t *testing.T) {
	s := testutil.NewTestStore(t)
	ana := testutil.SeedUser(t, s, "Ana", "ana@example.com")
	ben := testutil.SeedUser(t, s, "Ben", "ben@example.com")
	svc := NewService(s, zerolog.Nop())
	ctx := context.Background()

	apollo, err := svc.Create(ctx, model.Project{Name: "Apollo", OwnerID: ana.ID})
	require.NoError(t, err)
	_, err = svc.Create(ctx, model.Project{Name: "Gemini", OwnerID: ben.ID})
	require.NoError(t, err)

	all, err := svc.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	bens, err := svc.List(ctx, ben.ID)
	require.NoError(t, err)
	require.Len(t, bens, 1)
	assert.Equal(t, "Gemini", bens[0].Name)

	updated, err := svc.Update(ctx, model.Project{ID: apollo.ID, Name: "Apollo 11", Budget: 10})
	require.NoError(t, err)
	assert.Equal(t, "Apollo 11", updated.Name)
	assert.Equal(t, ana.ID, updated.OwnerID)

	_, err = svc.Update(ctx, model.Project{ID: 0, Name: "x"})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = svc.Get(ctx, -1)
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	assert.ErrorIs(t, svc.Delete(ctx, 0), model.ErrInvalidInput)
	require.NoError(t, svc.Delete(ctx, apollo.ID))
	_, err = svc.Get(ctx, apollo.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
