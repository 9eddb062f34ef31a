package web

import (
	"bytes"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pverell/spotify-liked-cleaner/internal/db"
	webfs "github.com/pverell/spotify-liked-cleaner/web"
)

func loadRealTemplates(t *testing.T) *Templates {
	t.Helper()

	sub, err := fs.Sub(webfs.TemplatesFS, "templates")
	if err != nil {
		t.Fatalf("sub filesystem: %v", err)
	}
	templates, err := NewTemplates(sub)
	if err != nil {
		t.Fatalf("loading templates: %v", err)
	}
	return templates
}

func TestRenderHome(t *testing.T) {
	templates := loadRealTemplates(t)

	var buf bytes.Buffer
	data := HomePageData{
		PageData:      PageData{Title: "Home", CurrentPath: "/"},
		Authenticated: false,
	}
	if err := templates.Render(&buf, "home", data); err != nil {
		t.Fatalf("rendering home: %v", err)
	}
	if !strings.Contains(buf.String(), "Log in with Spotify") {
		t.Error("expected login link on home page")
	}
}

func TestRenderDashboard(t *testing.T) {
	templates := loadRealTemplates(t)

	completed := time.Now()
	data := DashboardPageData{
		PageData: PageData{
			Title:       "Dashboard",
			User:        &UserData{ID: "user1", Name: "Alice"},
			CurrentPath: "/dashboard",
		},
		Stats: &db.UserStats{CompletedRuns: 2, TotalRemoved: 57},
		Runs: []db.CleanupSession{
			{
				ID:              uuid.New(),
				UserID:          "user1",
				Status:          "completed",
				TimeframeMonths: 6,
				TotalLiked:      300,
				Removed:         40,
				Kept:            260,
				StartedAt:       completed.Add(-time.Minute),
				CompletedAt:     &completed,
			},
		},
		TimeframeMonths: 6,
		Timeframes:      []int{3, 6, 9, 12},
	}

	var buf bytes.Buffer
	if err := templates.Render(&buf, "dashboard", data); err != nil {
		t.Fatalf("rendering dashboard: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "57") {
		t.Error("expected total removed count in dashboard")
	}
	if !strings.Contains(out, "Completed") {
		t.Error("expected status label in dashboard")
	}
}

func TestRenderDashboardEmpty(t *testing.T) {
	templates := loadRealTemplates(t)

	data := DashboardPageData{
		PageData: PageData{
			Title: "Dashboard",
			User:  &UserData{ID: "user1", Name: "Alice"},
		},
		Stats:           &db.UserStats{},
		TimeframeMonths: 6,
		Timeframes:      []int{3, 6, 9, 12},
	}

	var buf bytes.Buffer
	if err := templates.Render(&buf, "dashboard", data); err != nil {
		t.Fatalf("rendering empty dashboard: %v", err)
	}
	if !strings.Contains(buf.String(), "No cleanups yet") {
		t.Error("expected empty state message")
	}
}

func TestRenderSettings(t *testing.T) {
	templates := loadRealTemplates(t)

	data := SettingsPageData{
		PageData: PageData{
			Title: "Settings",
			User:  &UserData{ID: "user1", Name: "Alice"},
		},
		TimeframeMonths: 9,
		Timeframes:      []int{3, 6, 9, 12},
	}

	var buf bytes.Buffer
	if err := templates.Render(&buf, "settings", data); err != nil {
		t.Fatalf("rendering settings: %v", err)
	}
	if !strings.Contains(buf.String(), `value="9" selected`) {
		t.Error("expected saved timeframe to be selected")
	}
}

func TestRenderUnknownPage(t *testing.T) {
	templates := loadRealTemplates(t)
	if err := templates.Render(&bytes.Buffer{}, "nope", nil); err == nil {
		t.Error("expected error for unknown template")
	}
}
