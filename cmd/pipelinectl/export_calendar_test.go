package main

import (
	"context"
	"html/template"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PodcastStudio-admin/internal/app"
	"PodcastStudio-admin/internal/models"
	"PodcastStudio-admin/internal/storage/memory"
)

func TestExportFilter(t *testing.T) {
	exportFrom, exportTo, exportEpisode = "2026-03-01", "2026-03-07", "ep-1"
	t.Cleanup(func() { exportFrom, exportTo, exportEpisode = "", "", "" })

	filter, err := exportFilter()
	require.NoError(t, err)
	assert.Equal(t, "ep-1", filter.EpisodeID)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), filter.From)
	assert.Equal(t, time.Date(2026, 3, 7, 23, 59, 59, 999999999, time.UTC), filter.To)

	exportTo = "07/03/2026"
	_, err = exportFilter()
	assert.Error(t, err)
}

func TestBuildCalendarPage(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	piece := models.NewGeneratedPiece("ep-1", "job-1", models.ContentBlog)
	piece.Title = "Treating <your> room"
	require.NoError(t, store.CreatePiece(ctx, piece))

	day1 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	posts := []*models.ScheduledPost{
		{ID: "p1", ContentPieceID: piece.ID, Platform: "website", ScheduledAt: day1, Status: models.PostScheduled},
		{ID: "p2", ContentPieceID: "gone", Platform: "x", ScheduledAt: day1.Add(5 * time.Hour), Status: models.PostScheduled},
		{ID: "p3", ContentPieceID: "gone", Platform: "tiktok", ScheduledAt: day1.Add(33 * time.Hour), Status: models.PostScheduled, NeedsVideoEdit: true},
	}
	page := buildCalendarPage(ctx, &app.App{Store: store}, models.PostFilter{}, posts)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Days, 2)
	require.Len(t, page.Days[0].Posts, 2)
	assert.Equal(t, "10:00", page.Days[0].Posts[0].Time)
	assert.Equal(t, "blog", page.Days[0].Posts[0].Type)
	assert.Equal(t, "Treating <your> room", page.Days[0].Posts[0].Title)
	assert.True(t, page.Days[1].Posts[0].NeedsVideoEdit)

	tpl, err := template.New("calendar").Parse(calendarTemplate)
	require.NoError(t, err)
	var out strings.Builder
	require.NoError(t, tpl.Execute(&out, page))
	assert.Contains(t, out.String(), "Treating &lt;your&gt; room")
	assert.NotContains(t, out.String(), "<your>")
}
