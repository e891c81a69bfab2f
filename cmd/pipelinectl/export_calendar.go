package main

import (
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"PodcastStudio-admin/internal/app"
	"PodcastStudio-admin/internal/models"
)

//go:embed calendar.html.tmpl
var calendarTemplate string

var (
	exportFrom    string
	exportTo      string
	exportEpisode string
	exportOut     string
)

// CalendarDay groups the posts of one UTC day.
type CalendarDay struct {
	Date  time.Time
	Posts []CalendarPost
}

// CalendarPost is one row of the exported calendar.
type CalendarPost struct {
	Time           string
	Platform       string
	Type           string
	Title          string
	Status         string
	NeedsVideoEdit bool
	Reason         string
}

// CalendarPage is the template data.
type CalendarPage struct {
	GeneratedAt time.Time
	From        time.Time
	To          time.Time
	Total       int
	Days        []CalendarDay
}

var exportCalendarCmd = &cobra.Command{
	Use:   "export-calendar",
	Short: "Render scheduled posts as a static HTML calendar",
	RunE: func(cmd *cobra.Command, _ []string) error {
		filter, err := exportFilter()
		if err != nil {
			return err
		}
		tpl, err := template.New("calendar").Parse(calendarTemplate)
		if err != nil {
			return fmt.Errorf("parsing calendar template: %w", err)
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			posts, err := a.Schedule.Calendar(ctx, filter)
			if err != nil {
				return err
			}
			page := buildCalendarPage(ctx, a, filter, posts)

			if dir := filepath.Dir(exportOut); dir != "" && dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("creating output directory: %w", err)
				}
			}
			file, err := os.Create(exportOut)
			if err != nil {
				return fmt.Errorf("creating %s: %w", exportOut, err)
			}
			defer file.Close()
			if err := tpl.Execute(file, page); err != nil {
				return fmt.Errorf("rendering calendar: %w", err)
			}
			log.Printf("INFO: [pipelinectl] calendar with %d post(s) written to %s\n", page.Total, exportOut)
			return nil
		})
	},
}

func exportFilter() (models.PostFilter, error) {
	filter := models.PostFilter{EpisodeID: exportEpisode}
	if exportFrom != "" {
		t, err := time.ParseInLocation("2006-01-02", exportFrom, time.UTC)
		if err != nil {
			return filter, fmt.Errorf("--from must be YYYY-MM-DD")
		}
		filter.From = t
	}
	if exportTo != "" {
		t, err := time.ParseInLocation("2006-01-02", exportTo, time.UTC)
		if err != nil {
			return filter, fmt.Errorf("--to must be YYYY-MM-DD")
		}
		filter.To = t.Add(24*time.Hour - time.Nanosecond)
	}
	return filter, nil
}

// buildCalendarPage groups posts by day; posts arrive ordered by scheduled time.
func buildCalendarPage(ctx context.Context, a *app.App, filter models.PostFilter, posts []*models.ScheduledPost) CalendarPage {
	page := CalendarPage{GeneratedAt: time.Now().UTC(), From: filter.From, To: filter.To, Total: len(posts)}
	for _, post := range posts {
		at := post.ScheduledAt.UTC()
		day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
		if n := len(page.Days); n == 0 || !page.Days[n-1].Date.Equal(day) {
			page.Days = append(page.Days, CalendarDay{Date: day})
		}
		row := CalendarPost{
			Time:           at.Format("15:04"),
			Platform:       post.Platform,
			Status:         string(post.Status),
			NeedsVideoEdit: post.NeedsVideoEdit,
			Reason:         post.AIReason,
		}
		if piece, err := a.Store.GetPiece(ctx, post.ContentPieceID); err == nil {
			row.Type = string(piece.Type)
			row.Title = piece.Title
		}
		page.Days[len(page.Days)-1].Posts = append(page.Days[len(page.Days)-1].Posts, row)
	}
	return page
}

func init() {
	exportCalendarCmd.Flags().StringVar(&exportFrom, "from", "", "First day (YYYY-MM-DD)")
	exportCalendarCmd.Flags().StringVar(&exportTo, "to", "", "Last day (YYYY-MM-DD)")
	exportCalendarCmd.Flags().StringVar(&exportEpisode, "episode", "", "Only posts of this episode")
	exportCalendarCmd.Flags().StringVarP(&exportOut, "out", "o", "dist/calendar.html", "Output HTML file")
	rootCmd.AddCommand(exportCalendarCmd)
}
