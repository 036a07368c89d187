package site

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeRepository struct {
	sites map[string]*Site
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{sites: make(map[string]*Site)}
}

func (f *fakeRepository) Create(_ context.Context, s *Site) error {
	if _, ok := f.sites[s.SiteURL]; ok {
		return ErrSiteExists
	}
	f.sites[s.SiteURL] = s
	return nil
}

func (f *fakeRepository) GetByURL(_ context.Context, siteURL string) (*Site, error) {
	s, ok := f.sites[siteURL]
	if !ok {
		return nil, ErrSiteNotFound
	}
	return s, nil
}

func (f *fakeRepository) ListActiveURLs(context.Context) ([]string, error) {
	var urls []string
	for u, s := range f.sites {
		if s.IsActive {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

func (f *fakeRepository) EnsureSchema(context.Context) error { return nil }

func newTestHandler() (*Handler, *Registry) {
	repo := newFakeRepository()
	registry := NewRegistry(repo, time.Minute, zap.NewNop())
	return NewHandler(repo, registry, zap.NewNop()), registry
}

func TestRegisterSite(t *testing.T) {
	h, registry := newTestHandler()

	body := `{"site_url": "https://example.com", "category": "shop"}`
	rec := httptest.NewRecorder()
	h.Register(rec, httptest.NewRequest(http.MethodPost, "/v1/register", strings.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var resp RegisterResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SiteURL != "https://example.com" {
		t.Errorf("site_url = %q", resp.SiteURL)
	}
	if !strings.HasPrefix(resp.APIKey, "key_") {
		t.Errorf("api_key = %q, want key_ prefix", resp.APIKey)
	}

	// Registration must take effect without waiting for the ticker.
	if !registry.IsActive("https://example.com") {
		t.Error("freshly registered site not active in the allow-list")
	}
}

func TestRegisterDuplicateSite(t *testing.T) {
	h, _ := newTestHandler()
	body := `{"site_url": "https://example.com"}`

	rec := httptest.NewRecorder()
	h.Register(rec, httptest.NewRequest(http.MethodPost, "/v1/register", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("first registration failed: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Register(rec, httptest.NewRequest(http.MethodPost, "/v1/register", strings.NewReader(body)))
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate registration status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestRegisterRejectsEmptyURL(t *testing.T) {
	h, _ := newTestHandler()

	rec := httptest.NewRecorder()
	h.Register(rec, httptest.NewRequest(http.MethodPost, "/v1/register", strings.NewReader(`{"site_url": "  "}`)))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
