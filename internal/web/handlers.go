package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	spotifyapi "github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/pverell/spotify-liked-cleaner/internal/auth"
	"github.com/pverell/spotify-liked-cleaner/internal/cleaner"
	"github.com/pverell/spotify-liked-cleaner/internal/config"
	"github.com/pverell/spotify-liked-cleaner/internal/db"
	"github.com/pverell/spotify-liked-cleaner/internal/spotify"
)

const (
	dashboardRunLimit = 20
	previewSampleSize = 10
)

var timeframeChoices = []int{3, 6, 9, 12}

// Handlers contains HTTP handlers for the web application.
type Handlers struct {
	oauth     *oauth2.Config
	sessions  SessionManager
	templates *Templates
	database  *db.DB
	cleaner   *cleaner.Service
	cfg       *config.Config
	logger    *log.Logger
}

// NewHandlers creates a Handlers instance.
func NewHandlers(oauthCfg *oauth2.Config, sessions SessionManager, templates *Templates, database *db.DB, svc *cleaner.Service, cfg *config.Config, logger *log.Logger) *Handlers {
	return &Handlers{
		oauth:     oauthCfg,
		sessions:  sessions,
		templates: templates,
		database:  database,
		cleaner:   svc,
		cfg:       cfg,
		logger:    logger,
	}
}

// Home handles the landing page (GET /).
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)

	data := HomePageData{
		PageData: PageData{
			Title:       "Liked Songs Cleaner",
			CurrentPath: r.URL.Path,
		},
		Authenticated: session != nil,
	}

	if session != nil {
		data.User = &UserData{ID: session.UserID, Name: session.UserName}
	}

	h.render(w, "home", data)
}

// Login initiates the Spotify OAuth flow (GET /auth/login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	state, err := generateOAuthState()
	if err != nil {
		http.Error(w, "Failed to generate state", http.StatusInternalServerError)
		return
	}

	// State round-trips through a short-lived cookie for CSRF protection.
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300,
	})

	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// Callback handles the OAuth callback from Spotify (GET /callback).
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil {
		http.Error(w, "Missing state cookie", http.StatusBadRequest)
		return
	}

	if state := r.URL.Query().Get("state"); state != stateCookie.Value {
		http.Error(w, "State mismatch", http.StatusBadRequest)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		http.Error(w, fmt.Sprintf("Spotify auth error: %s", errMsg), http.StatusBadRequest)
		return
	}

	token, err := h.oauth.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		h.logger.Error("oauth code exchange failed", "err", err)
		http.Error(w, "Failed to get token", http.StatusInternalServerError)
		return
	}

	client := spotifyapi.New(h.oauth.Client(r.Context(), token))
	profile, err := client.CurrentUser(r.Context())
	if err != nil {
		h.logger.Error("fetching user profile failed", "err", err)
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}

	user := &db.User{
		ID:              string(profile.ID),
		DisplayName:     profile.DisplayName,
		Email:           profile.Email,
		TimeframeMonths: h.cfg.Cleanup.DefaultTimeframeMonths,
	}
	if len(profile.Images) > 0 {
		user.ProfileImageURL = &profile.Images[0].URL
	}
	if err := h.database.Users().Upsert(r.Context(), user); err != nil {
		h.logger.Error("upserting user failed", "user", user.ID, "err", err)
		http.Error(w, "Failed to store user", http.StatusInternalServerError)
		return
	}

	session, err := h.sessions.Create(r.Context(), token, user.ID, user.DisplayName)
	if err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}
	h.sessions.SetCookie(w, session)

	h.logger.Info("user logged in", "user", user.ID)
	http.Redirect(w, r, "/dashboard", http.StatusTemporaryRedirect)
}

// Logout clears the session and redirects to home (POST /auth/logout).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if session := h.sessions.GetFromRequest(r); session != nil {
		h.sessions.Delete(r.Context(), session.ID)
	}

	h.sessions.ClearCookie(w)
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// Dashboard shows the user's cleanup history and totals (GET /dashboard).
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}

	stats, err := h.database.Cleanups().StatsForUser(r.Context(), session.UserID)
	if err != nil {
		h.logger.Error("loading cleanup stats failed", "user", session.UserID, "err", err)
		http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
		return
	}

	runs, err := h.database.Cleanups().ListForUser(r.Context(), session.UserID, dashboardRunLimit)
	if err != nil {
		h.logger.Error("loading cleanup history failed", "user", session.UserID, "err", err)
		http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
		return
	}

	data := DashboardPageData{
		PageData: PageData{
			Title:       "Dashboard",
			User:        &UserData{ID: session.UserID, Name: session.UserName},
			CurrentPath: r.URL.Path,
		},
		Stats:           stats,
		Runs:            runs,
		TimeframeMonths: h.userTimeframe(r.Context(), session.UserID),
		Timeframes:      timeframeChoices,
	}

	h.render(w, "dashboard", data)
}

// previewResponse is the JSON body returned by PreviewCleanup. The sample is
// rendered once and discarded; candidate tracks are never persisted.
type previewResponse struct {
	TimeframeMonths int           `json:"timeframe_months"`
	TotalLiked      int           `json:"total_liked"`
	SignalCount     int           `json:"signal_count"`
	CandidateCount  int           `json:"candidate_count"`
	Sample          []sampleTrack `json:"sample"`
	GeneratedAt     time.Time     `json:"generated_at"`
}

type sampleTrack struct {
	Name    string   `json:"name"`
	Artist  string   `json:"artist"`
	Reasons []string `json:"reasons"`
}

// PreviewCleanup computes the candidate set without removing anything
// (POST /cleanup/preview).
func (h *Handlers) PreviewCleanup(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}

	tf, err := h.requestTimeframe(r, session.UserID)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	preview, err := h.cleaner.Preview(r.Context(), h.libraryClient(session), tf)
	if err != nil {
		h.writeCleanupError(w, session, err)
		return
	}

	resp := previewResponse{
		TimeframeMonths: preview.Timeframe.Months(),
		TotalLiked:      preview.TotalLiked,
		SignalCount:     preview.SignalCount,
		CandidateCount:  len(preview.Candidates),
		Sample:          sampleCandidates(preview.Candidates),
		GeneratedAt:     preview.GeneratedAt,
	}
	writeJSON(w, http.StatusOK, resp)
}

// runResponse is the JSON body returned by RunCleanup.
type runResponse struct {
	ID              string    `json:"id"`
	Status          string    `json:"status"`
	TimeframeMonths int       `json:"timeframe_months"`
	TotalLiked      int       `json:"total_liked"`
	CandidateCount  int       `json:"candidate_count"`
	Removed         int       `json:"removed"`
	Kept            int       `json:"kept"`
	FailedRemovals  int       `json:"failed_removals"`
	SignalCount     int       `json:"signal_count"`
	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
}

// RunCleanup performs a full cleanup with removal and records the session
// (POST /cleanup/run).
func (h *Handlers) RunCleanup(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}

	tf, err := h.requestTimeframe(r, session.UserID)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	record, err := h.database.Cleanups().Start(r.Context(), session.UserID, tf.Months())
	if err != nil {
		h.logger.Error("recording cleanup start failed", "user", session.UserID, "err", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to record cleanup")
		return
	}

	result, runErr := h.cleaner.Execute(r.Context(), h.libraryClient(session), tf, nil)
	if runErr != nil {
		if failErr := h.database.Cleanups().Fail(r.Context(), record.ID, runErr.Error()); failErr != nil {
			h.logger.Error("recording cleanup failure failed", "id", record.ID, "err", failErr)
		}
		h.writeCleanupError(w, session, runErr)
		return
	}

	record.Status = string(result.Status)
	record.TotalLiked = result.TotalLiked
	record.Scanned = result.Scanned
	record.Removed = result.Removed
	record.Kept = result.Kept
	record.FailedRemovals = result.FailedRemovals
	record.SignalCount = result.SignalCount
	if err := h.database.Cleanups().Complete(r.Context(), record); err != nil {
		h.logger.Error("recording cleanup result failed", "id", record.ID, "err", err)
	}

	h.logger.Info("cleanup run finished",
		"user", session.UserID, "status", result.Status,
		"removed", result.Removed, "failed", result.FailedRemovals)

	writeJSON(w, http.StatusOK, runResponse{
		ID:              record.ID.String(),
		Status:          string(result.Status),
		TimeframeMonths: result.Timeframe.Months(),
		TotalLiked:      result.TotalLiked,
		CandidateCount:  result.CandidateCount,
		Removed:         result.Removed,
		Kept:            result.Kept,
		FailedRemovals:  result.FailedRemovals,
		SignalCount:     result.SignalCount,
		StartedAt:       result.StartedAt,
		CompletedAt:     result.CompletedAt,
	})
}

// Settings renders the timeframe preference form (GET /settings).
func (h *Handlers) Settings(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}

	data := SettingsPageData{
		PageData: PageData{
			Title:       "Settings",
			User:        &UserData{ID: session.UserID, Name: session.UserName},
			CurrentPath: r.URL.Path,
		},
		TimeframeMonths: h.userTimeframe(r.Context(), session.UserID),
		Timeframes:      timeframeChoices,
	}

	h.render(w, "settings", data)
}

// SaveSettings persists the timeframe preference (POST /settings).
func (h *Handlers) SaveSettings(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}

	months, err := strconv.Atoi(r.FormValue("timeframe_months"))
	if err != nil {
		http.Error(w, "Invalid timeframe", http.StatusBadRequest)
		return
	}
	tf, err := cleaner.ParseTimeframe(months)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.database.Users().UpdateTimeframe(r.Context(), session.UserID, tf.Months()); err != nil {
		h.logger.Error("saving timeframe failed", "user", session.UserID, "err", err)
		http.Error(w, "Failed to save settings", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/settings", http.StatusSeeOther)
}

// libraryClient builds a Spotify client bound to the session's token pair.
// Rotated tokens are written back to the session store so refresh tokens
// survive across requests.
func (h *Handlers) libraryClient(session *Session) *spotify.Client {
	manager := auth.NewManager(h.oauth, session.Token, auth.WithOnRefresh(func(token *oauth2.Token) {
		h.sessions.UpdateToken(context.Background(), session.ID, token)
	}))

	sp := h.cfg.Spotify
	return spotify.New(manager,
		spotify.WithLogger(h.logger),
		spotify.WithPageSize(sp.PageSize),
		spotify.WithDeleteBatchSize(sp.DeleteBatchSize),
		spotify.WithRetryPolicy(spotify.RetryPolicy{
			MaxAttempts: sp.MaxAttempts,
			Backoff:     time.Duration(sp.BackoffBaseMS) * time.Millisecond,
		}),
		spotify.WithRequestsPerSecond(sp.RequestsPerSecond),
		spotify.WithHTTPClient(&http.Client{
			Timeout: time.Duration(sp.RequestTimeoutSec) * time.Second,
		}),
	)
}

// requireSession returns the request's session, redirecting browser requests
// to the login page when there is none.
func (h *Handlers) requireSession(w http.ResponseWriter, r *http.Request) *Session {
	session := h.sessions.GetFromRequest(r)
	if session == nil {
		if wantsJSON(r) {
			writeJSONError(w, http.StatusUnauthorized, "not authenticated")
		} else {
			http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		}
		return nil
	}
	return session
}

// requestTimeframe reads the timeframe from the form, falling back to the
// user's saved preference.
func (h *Handlers) requestTimeframe(r *http.Request, userID string) (cleaner.Timeframe, error) {
	raw := r.FormValue("timeframe_months")
	if raw == "" {
		return cleaner.ParseTimeframe(h.userTimeframe(r.Context(), userID))
	}
	months, err := strconv.Atoi(raw)
	if err != nil {
		return 0, cleaner.ErrInvalidTimeframe
	}
	return cleaner.ParseTimeframe(months)
}

// userTimeframe returns the user's saved timeframe preference, or the
// configured default when the user cannot be loaded.
func (h *Handlers) userTimeframe(ctx context.Context, userID string) int {
	user, err := h.database.Users().Get(ctx, userID)
	if err != nil {
		return h.cfg.Cleanup.DefaultTimeframeMonths
	}
	return user.TimeframeMonths
}

// writeCleanupError maps run errors to JSON responses. A rejected refresh
// token invalidates the session so the next page load starts a fresh login.
func (h *Handlers) writeCleanupError(w http.ResponseWriter, session *Session, err error) {
	switch {
	case errors.Is(err, auth.ErrReauthRequired):
		h.sessions.Delete(context.Background(), session.ID)
		writeJSONError(w, http.StatusUnauthorized, "Spotify authorization expired, please log in again")
	case errors.Is(err, spotify.ErrRateLimited):
		writeJSONError(w, http.StatusServiceUnavailable, "Spotify rate limit reached, try again later")
	default:
		h.logger.Error("cleanup request failed", "user", session.UserID, "err", err)
		writeJSONError(w, http.StatusBadGateway, "Spotify request failed")
	}
}

func (h *Handlers) render(w http.ResponseWriter, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.Render(w, page, data); err != nil {
		h.logger.Error("rendering template failed", "page", page, "err", err)
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
	}
}

func sampleCandidates(candidates []cleaner.Candidate) []sampleTrack {
	n := len(candidates)
	if n > previewSampleSize {
		n = previewSampleSize
	}
	sample := make([]sampleTrack, 0, n)
	for _, c := range candidates[:n] {
		reasons := make([]string, len(c.Reasons))
		for i, reason := range c.Reasons {
			reasons[i] = string(reason)
		}
		sample = append(sample, sampleTrack{
			Name:    c.Track.Name,
			Artist:  c.Track.Artist,
			Reasons: reasons,
		})
	}
	return sample
}

// wantsJSON reports whether the endpoint speaks JSON. The cleanup endpoints
// are called from script; everything else is browser navigation that should
// redirect to login when the session is gone.
func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/cleanup/")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// generateOAuthState creates a random state string for OAuth.
func generateOAuthState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
