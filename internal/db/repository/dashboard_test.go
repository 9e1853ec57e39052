package repository

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "tabula/internal/db"
	"tabula/internal/domain"
)

func setupDashboardRepos(t *testing.T) (*DashboardRepo, *PanelRepo) {
	t.Helper()
	writeDB, _ := internaldb.OpenTestSQLite(t)
	return NewDashboardRepo(writeDB), NewPanelRepo(writeDB)
}

func TestDashboardRepo_CRUD(t *testing.T) {
	dashboards, _ := setupDashboardRepos(t)
	ctx := context.Background()

	created, err := dashboards.Create(ctx, &domain.Dashboard{ID: domain.NewID(), OwnerID: "alice", Name: "Sales"})
	require.NoError(t, err)
	assert.Nil(t, created.RefreshSchedule)

	got, err := dashboards.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sales", got.Name)

	t.Run("update name and schedule", func(t *testing.T) {
		name, sched := "Revenue", "*/5 * * * *"
		upd, err := dashboards.Update(ctx, created.ID, domain.UpdateDashboardRequest{Name: &name, RefreshSchedule: &sched})
		require.NoError(t, err)
		assert.Equal(t, "Revenue", upd.Name)
		require.NotNil(t, upd.RefreshSchedule)
		assert.Equal(t, sched, *upd.RefreshSchedule)

		scheduled, err := dashboards.ListScheduled(ctx)
		require.NoError(t, err)
		require.Len(t, scheduled, 1)
	})

	t.Run("empty schedule clears", func(t *testing.T) {
		empty := ""
		upd, err := dashboards.Update(ctx, created.ID, domain.UpdateDashboardRequest{RefreshSchedule: &empty})
		require.NoError(t, err)
		assert.Nil(t, upd.RefreshSchedule)

		scheduled, err := dashboards.ListScheduled(ctx)
		require.NoError(t, err)
		assert.Empty(t, scheduled)
	})

	t.Run("list", func(t *testing.T) {
		list, total, err := dashboards.List(ctx, "alice", domain.PageRequest{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Len(t, list, 1)
	})

	t.Run("update missing", func(t *testing.T) {
		name := "x"
		_, err := dashboards.Update(ctx, "missing", domain.UpdateDashboardRequest{Name: &name})
		var nf *domain.NotFoundError
		require.ErrorAs(t, err, &nf)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, dashboards.Delete(ctx, created.ID))
		_, err := dashboards.GetByID(ctx, created.ID)
		var nf *domain.NotFoundError
		require.ErrorAs(t, err, &nf)
		require.ErrorAs(t, dashboards.Delete(ctx, created.ID), &nf)
	})
}

func TestPanelRepo_CRUD(t *testing.T) {
	dashboards, panels := setupDashboardRepos(t)
	ctx := context.Background()

	d, err := dashboards.Create(ctx, &domain.Dashboard{ID: domain.NewID(), OwnerID: "alice", Name: "Sales"})
	require.NoError(t, err)

	next, err := panels.NextSortOrder(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, next)

	mk := func(title string, order int) *domain.Panel {
		p, err := panels.Create(ctx, &domain.Panel{
			ID: domain.NewID(), DashboardID: d.ID, OwnerID: "alice", Title: title,
			Kind: domain.PanelKindTable, SQL: "SELECT 1", SortOrder: order,
		})
		require.NoError(t, err)
		return p
	}
	second := mk("second", 5)
	first := mk("first", 1)
	assert.JSONEq(t, `{}`, string(first.Options))

	next, err = panels.NextSortOrder(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, next)

	list, err := panels.ListByDashboard(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	t.Run("update", func(t *testing.T) {
		kind := domain.PanelKindLine
		x := "month"
		order := 0
		upd, err := panels.Update(ctx, second.ID, domain.UpdatePanelRequest{
			Kind: &kind, XField: &x, SortOrder: &order, Options: json.RawMessage(`{"color":"red"}`),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.PanelKindLine, upd.Kind)
		require.NotNil(t, upd.XField)
		assert.Equal(t, "month", *upd.XField)
		assert.JSONEq(t, `{"color":"red"}`, string(upd.Options))

		list, err := panels.ListByDashboard(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, second.ID, list[0].ID)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, panels.Delete(ctx, first.ID))
		var nf *domain.NotFoundError
		require.ErrorAs(t, panels.Delete(ctx, first.ID), &nf)
	})

	t.Run("cascade on dashboard delete", func(t *testing.T) {
		require.NoError(t, dashboards.Delete(ctx, d.ID))
		list, err := panels.ListByDashboard(ctx, d.ID)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestPanelRepo_UnknownDashboard(t *testing.T) {
	_, panels := setupDashboardRepos(t)

	_, err := panels.Create(context.Background(), &domain.Panel{
		ID: domain.NewID(), DashboardID: "missing", OwnerID: "alice", Title: "t",
		Kind: domain.PanelKindTable, SQL: "SELECT 1",
	})
	require.Error(t, err)
}
