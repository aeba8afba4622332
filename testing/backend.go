package testing

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/amirphl/pick-intro/models"
	"github.com/amirphl/pick-intro/utils"
)

// RecordedRequest is one call received by FakeBackend
type RecordedRequest struct {
	Method        string
	Path          string
	Query         url.Values
	Authorization string
	UserID        string
	RequestID     string
	Body          []byte
}

// FakeBackend is an httptest server implementing the Pick API contracts in memory
type FakeBackend struct {
	Server *httptest.Server

	mu          sync.Mutex
	requests    []RecordedRequest
	profile     *models.StoredProfile
	catalog     []models.InterestOption
	matches     []models.MatchRecommendation
	introCount  int
	eligibility models.FeedbackEligibility

	// Per-route failure overrides: a status >= 400 is returned with the message body
	FailStatus  map[string]int
	FailMessage map[string]string
	// introRetryAfter, when set, makes /matches/intro answer 429 with this Retry-After header
	introRetryAfter string
}

// NewFakeBackend starts a fake backend. Close it with Close.
func NewFakeBackend() *FakeBackend {
	fb := &FakeBackend{
		FailStatus:  make(map[string]int),
		FailMessage: make(map[string]string),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /profiles/me", fb.handleLoadProfile)
	mux.HandleFunc("PUT /profiles", fb.handleSaveProfile)
	mux.HandleFunc("GET /interests/search", fb.handleSearch)
	mux.HandleFunc("POST /interests/resolve", fb.handleResolve)
	mux.HandleFunc("GET /matches", fb.handleMatches)
	mux.HandleFunc("GET /matches/dashboard", fb.handleDashboard)
	mux.HandleFunc("POST /matches/intro", fb.handleIntro)
	mux.HandleFunc("POST /reports", fb.handleReport)
	mux.HandleFunc("GET /feedback/eligibility", fb.handleFeedbackEligibility)
	mux.HandleFunc("POST /feedback/submit", fb.handleFeedbackSubmit)
	fb.Server = httptest.NewServer(fb.record(mux))
	return fb
}

// URL returns the server's base URL
func (fb *FakeBackend) URL() string {
	return fb.Server.URL
}

// Close shuts the server down
func (fb *FakeBackend) Close() {
	fb.Server.Close()
}

// SetProfile sets the stored profile returned by GET /profiles/me
func (fb *FakeBackend) SetProfile(profile *models.StoredProfile) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.profile = profile
}

// Profile returns the last stored profile
func (fb *FakeBackend) Profile() *models.StoredProfile {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.profile
}

// SetCatalog sets the interests served by search
func (fb *FakeBackend) SetCatalog(catalog []models.InterestOption) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.catalog = catalog
}

// SetMatches sets the recommendations served by /matches
func (fb *FakeBackend) SetMatches(matches []models.MatchRecommendation) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.matches = matches
}

// SetFeedbackEligibility sets the answer of GET /feedback/eligibility
func (fb *FakeBackend) SetFeedbackEligibility(eligibility models.FeedbackEligibility) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.eligibility = eligibility
}

// Fail makes every request to "METHOD /path" answer status with message
func (fb *FakeBackend) Fail(route string, status int, message string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.FailStatus[route] = status
	fb.FailMessage[route] = message
}

// SetIntroRetryAfter makes /matches/intro answer 429 with the given Retry-After header. "" clears it.
func (fb *FakeBackend) SetIntroRetryAfter(value string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.introRetryAfter = value
}

// Requests returns every recorded request
func (fb *FakeBackend) Requests() []RecordedRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]RecordedRequest(nil), fb.requests...)
}

// RequestsTo returns the recorded requests for "METHOD /path"
func (fb *FakeBackend) RequestsTo(route string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range fb.Requests() {
		if r.Method+" "+r.Path == route {
			out = append(out, r)
		}
	}
	return out
}

func (fb *FakeBackend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		route := r.Method + " " + r.URL.Path
		fb.mu.Lock()
		fb.requests = append(fb.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.Query(),
			Authorization: r.Header.Get("Authorization"),
			UserID:        r.Header.Get(utils.UserIDHeader),
			RequestID:     r.Header.Get("X-Request-ID"),
			Body:          body,
		})
		status, failing := fb.FailStatus[route]
		message := fb.FailMessage[route]
		fb.mu.Unlock()

		if failing && status >= 400 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (fb *FakeBackend) handleLoadProfile(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	profile := fb.profile
	fb.mu.Unlock()
	if profile == nil {
		http.Error(w, "profile not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profile": profile})
}

func (fb *FakeBackend) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Profile struct {
			DisplayName      string  `json:"displayName"`
			Bio              string  `json:"bio"`
			WhatsAppNumber   string  `json:"whatsappNumber"`
			LinkedInURL      *string `json:"linkedinUrl"`
			InstagramURL     *string `json:"instagramUrl"`
			PhotoDataURL     string  `json:"photoDataUrl"`
			ExistingPhotoURL string  `json:"existingPhotoUrl"`
		} `json:"profile"`
		Cities    []string `json:"cities"`
		Interests []string `json:"interests"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	photoURL := payload.Profile.ExistingPhotoURL
	if payload.Profile.PhotoDataURL != "" {
		photoURL = "https://cdn.pick.test/photos/" + strconv.Itoa(len(payload.Profile.PhotoDataURL)) + ".jpg"
	}
	updatedAt := utils.UTCNowPtr()

	fb.mu.Lock()
	fb.profile = &models.StoredProfile{
		DisplayName:    payload.Profile.DisplayName,
		Bio:            payload.Profile.Bio,
		WhatsAppNumber: utils.ToPtr(payload.Profile.WhatsAppNumber),
		LinkedInURL:    payload.Profile.LinkedInURL,
		InstagramURL:   payload.Profile.InstagramURL,
		Cities:         payload.Cities,
		Interests:      payload.Interests,
		PhotoURL:       photoURL,
		UpdatedAt:      updatedAt,
	}
	fb.mu.Unlock()

	writeJSON(w, http.StatusOK, models.SavedProfile{UpdatedAt: updatedAt, PhotoURL: photoURL})
}

func (fb *FakeBackend) handleSearch(w http.ResponseWriter, r *http.Request) {
	needle := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	fb.mu.Lock()
	out := []models.InterestOption{}
	for _, opt := range fb.catalog {
		if needle == "" || strings.Contains(strings.ToLower(opt.Label), needle) {
			out = append(out, opt)
		}
	}
	fb.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"interests": out})
}

func (fb *FakeBackend) handleResolve(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Label string `json:"label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Label) == "" {
		http.Error(w, "label is required", http.StatusBadRequest)
		return
	}
	label := strings.TrimSpace(body.Label)

	fb.mu.Lock()
	defer fb.mu.Unlock()
	for _, opt := range fb.catalog {
		if strings.EqualFold(opt.Label, label) {
			writeJSON(w, http.StatusOK, models.InterestResolution{InterestID: opt.ID, Label: opt.Label, Matched: true})
			return
		}
	}
	id := strings.ReplaceAll(strings.ToLower(label), " ", "_")
	writeJSON(w, http.StatusOK, models.InterestResolution{InterestID: id, Label: label, Created: true})
}

func (fb *FakeBackend) handleMatches(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"matches": fb.limitedMatches(r)})
}

// handleDashboard serves the matches with an intro preview attached to each
func (fb *FakeBackend) handleDashboard(w http.ResponseWriter, r *http.Request) {
	matches := fb.limitedMatches(r)
	for i := range matches {
		code := fmt.Sprintf("PICK-D%03d", i+1)
		message := fmt.Sprintf("Hi! Pick matched us (%s).", code)
		matches[i].IntroPreview = &models.MatchIntroPayload{
			MatchCode:   code,
			Message:     message,
			DeepLinkURL: "https://wa.me/15551234567?text=" + url.QueryEscape(message),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

func (fb *FakeBackend) limitedMatches(r *http.Request) []models.MatchRecommendation {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	fb.mu.Lock()
	defer fb.mu.Unlock()
	matches := fb.matches
	if limit > 0 && limit < len(matches) {
		matches = matches[:limit]
	}
	out := make([]models.MatchRecommendation, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Clone())
	}
	return out
}

func (fb *FakeBackend) handleIntro(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MatchUserID string `json:"matchUserId"`
		MatchCode   string `json:"matchCode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	fb.mu.Lock()
	retryAfter := fb.introRetryAfter
	fb.introCount++
	n := fb.introCount
	fb.mu.Unlock()

	if retryAfter != "" {
		w.Header().Set("Retry-After", retryAfter)
		http.Error(w, "Too many intro requests.", http.StatusTooManyRequests)
		return
	}

	code := body.MatchCode
	if code == "" {
		code = fmt.Sprintf("PICK-%04d", n)
	}
	message := fmt.Sprintf("Hi! Pick matched us (%s). Coffee? #%d", code, n)
	writeJSON(w, http.StatusOK, models.MatchIntroPayload{
		MatchCode:   code,
		Message:     message,
		DeepLinkURL: "https://wa.me/15551234567?text=" + url.QueryEscape(message),
	})
}

func (fb *FakeBackend) handleReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, models.ReportReceipt{ReportedAt: utils.UTCNowPtr()})
}

func (fb *FakeBackend) handleFeedbackEligibility(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	eligibility := fb.eligibility
	fb.mu.Unlock()
	writeJSON(w, http.StatusOK, eligibility)
}

func (fb *FakeBackend) handleFeedbackSubmit(w http.ResponseWriter, r *http.Request) {
	var body models.FeedbackSubmission
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.AIMessageQuality == 0 {
		http.Error(w, "aiMessageQuality is required", http.StatusBadRequest)
		return
	}
	submittedAt := utils.UTCNowPtr()
	fb.mu.Lock()
	fb.eligibility = models.FeedbackEligibility{LastSubmittedAt: submittedAt}
	fb.mu.Unlock()
	writeJSON(w, http.StatusCreated, models.FeedbackReceipt{Message: "Feedback saved.", SubmittedAt: submittedAt})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
