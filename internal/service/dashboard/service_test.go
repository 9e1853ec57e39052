package dashboard

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "tabula/internal/db"
	"tabula/internal/db/repository"
	"tabula/internal/domain"
	"tabula/internal/engine"
	"tabula/internal/testutil"
)

type reloadCounter struct{ n int }

func (r *reloadCounter) Reload(context.Context) error {
	r.n++
	return nil
}

func setupService(t *testing.T) (*Service, *reloadCounter) {
	t.Helper()
	writeDB, readDB := internaldb.OpenTestSQLite(t)
	svc := NewService(
		repository.NewDashboardRepo(writeDB),
		repository.NewPanelRepo(writeDB),
		NewRunner(engine.NewExecutor(readDB, nil), 2, nil),
		nil,
	)
	rc := &reloadCounter{}
	svc.SetScheduleReloader(rc)
	return svc, rc
}

func strPtr(s string) *string { return &s }

func TestService_DashboardLifecycle(t *testing.T) {
	svc, rc := setupService(t)
	ctx := testutil.WithUser(context.Background(), "alice")

	d, err := svc.CreateDashboard(ctx, domain.CreateDashboardRequest{Name: "  Ops  "})
	require.NoError(t, err)
	assert.Equal(t, "Ops", d.Name)
	assert.Equal(t, "alice", d.OwnerID)
	assert.Zero(t, rc.n)

	p1, err := svc.CreatePanel(ctx, d.ID, domain.CreatePanelRequest{Title: "Total", SQL: "SELECT 1 AS x"})
	require.NoError(t, err)
	assert.Equal(t, domain.PanelKindTable, p1.Kind)
	assert.Equal(t, 0, p1.SortOrder)

	p2, err := svc.CreatePanel(ctx, d.ID, domain.CreatePanelRequest{
		Title:   "Trend",
		Kind:    domain.PanelKindLine,
		SQL:     "SELECT 2 AS y",
		XField:  strPtr("day"),
		Options: json.RawMessage(`{"color":"red"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, p2.SortOrder)

	_, panels, err := svc.GetDashboard(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, panels, 2)
	assert.Equal(t, p1.ID, panels[0].ID)

	newTitle := "Grand total"
	updated, err := svc.UpdatePanel(ctx, d.ID, p1.ID, domain.UpdatePanelRequest{Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, newTitle, updated.Title)

	list, total, err := svc.ListDashboards(ctx, domain.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, int64(1), total)

	require.NoError(t, svc.DeletePanel(ctx, d.ID, p2.ID))
	remaining, err := svc.ListPanels(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)

	require.NoError(t, svc.DeleteDashboard(ctx, d.ID))
	_, _, err = svc.GetDashboard(ctx, d.ID)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestService_Schedule(t *testing.T) {
	svc, rc := setupService(t)
	ctx := testutil.WithUser(context.Background(), "alice")

	_, err := svc.CreateDashboard(ctx, domain.CreateDashboardRequest{Name: "x", RefreshSchedule: strPtr("every day")})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)

	d, err := svc.CreateDashboard(ctx, domain.CreateDashboardRequest{Name: "x", RefreshSchedule: strPtr("*/5 * * * *")})
	require.NoError(t, err)
	assert.Equal(t, 1, rc.n)

	_, err = svc.UpdateDashboard(ctx, d.ID, domain.UpdateDashboardRequest{RefreshSchedule: strPtr("61 * * * *")})
	require.ErrorAs(t, err, &ve)

	cleared, err := svc.UpdateDashboard(ctx, d.ID, domain.UpdateDashboardRequest{RefreshSchedule: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, cleared.RefreshSchedule)
	assert.Equal(t, 2, rc.n)

	_, err = svc.UpdateDashboard(ctx, d.ID, domain.UpdateDashboardRequest{Name: strPtr(" ")})
	require.ErrorAs(t, err, &ve)
}

func TestService_OwnerScoping(t *testing.T) {
	svc, _ := setupService(t)
	alice := testutil.WithUser(context.Background(), "alice")
	bob := testutil.WithUser(context.Background(), "bob")

	d, err := svc.CreateDashboard(alice, domain.CreateDashboardRequest{Name: "mine"})
	require.NoError(t, err)
	p, err := svc.CreatePanel(alice, d.ID, domain.CreatePanelRequest{Title: "t", SQL: "SELECT 1"})
	require.NoError(t, err)

	var nf *domain.NotFoundError
	_, _, err = svc.GetDashboard(bob, d.ID)
	require.ErrorAs(t, err, &nf)
	_, err = svc.Run(bob, d.ID)
	require.ErrorAs(t, err, &nf)
	_, err = svc.CreatePanel(bob, d.ID, domain.CreatePanelRequest{Title: "t", SQL: "SELECT 1"})
	require.ErrorAs(t, err, &nf)
	require.ErrorAs(t, svc.DeletePanel(bob, d.ID, p.ID), &nf)
	require.ErrorAs(t, svc.DeleteDashboard(bob, d.ID), &nf)

	other, err := svc.CreateDashboard(alice, domain.CreateDashboardRequest{Name: "other"})
	require.NoError(t, err)
	_, err = svc.UpdatePanel(alice, other.ID, p.ID, domain.UpdatePanelRequest{})
	require.ErrorAs(t, err, &nf)

	_, _, err = svc.ListDashboards(context.Background(), domain.PageRequest{})
	var ad *domain.AccessDeniedError
	require.ErrorAs(t, err, &ad)
}

func TestService_RunAndLastRun(t *testing.T) {
	svc, _ := setupService(t)
	ctx := testutil.WithUser(context.Background(), "alice")

	d, err := svc.CreateDashboard(ctx, domain.CreateDashboardRequest{Name: "mixed"})
	require.NoError(t, err)
	for _, req := range []domain.CreatePanelRequest{
		{Title: "ok1", SQL: "SELECT 1 AS x"},
		{Title: "bad", SQL: "NOTASQL"},
		{Title: "ok2", SQL: "SELECT 2 AS y"},
	} {
		_, err := svc.CreatePanel(ctx, d.ID, req)
		require.NoError(t, err)
	}

	_, err = svc.LastRun(ctx, d.ID)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)

	run, err := svc.Run(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, run.Panels, 3)
	assert.Equal(t, "ok1", run.Panels[0].Title)
	assert.Nil(t, run.Panels[0].Error)
	assert.NotNil(t, run.Panels[1].Error)
	assert.Equal(t, [][]any{{int64(2)}}, run.Panels[2].Result.Rows)

	last, err := svc.LastRun(ctx, d.ID)
	require.NoError(t, err)
	assert.Same(t, run, last)
}

func TestService_PanelValidation(t *testing.T) {
	svc, _ := setupService(t)
	ctx := testutil.WithUser(context.Background(), "alice")
	d, err := svc.CreateDashboard(ctx, domain.CreateDashboardRequest{Name: "v"})
	require.NoError(t, err)

	tests := []struct {
		name string
		req  domain.CreatePanelRequest
	}{
		{"no title", domain.CreatePanelRequest{SQL: "SELECT 1"}},
		{"no sql", domain.CreatePanelRequest{Title: "t"}},
		{"bad kind", domain.CreatePanelRequest{Title: "t", SQL: "SELECT 1", Kind: "pie"}},
		{"bad options", domain.CreatePanelRequest{Title: "t", SQL: "SELECT 1", Options: json.RawMessage(`{`)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreatePanel(ctx, d.ID, tc.req)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
		})
	}
}
