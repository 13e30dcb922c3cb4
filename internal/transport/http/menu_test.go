package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brewhouse/cafe-orders/internal/app"
	"github.com/brewhouse/cafe-orders/internal/domain"
)

func sampleMenuItem(available bool) domain.MenuItem {
	now := time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)
	return domain.MenuItem{
		ID:        "menu-1",
		Name:      "Flat White",
		Price:     decimal.RequireFromString("3.50"),
		Category:  "Coffee",
		Available: available,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestHandleMenu(t *testing.T) {
	t.Parallel()

	svc := &stubMenuService{
		items:      []domain.MenuItem{sampleMenuItem(true)},
		categories: []string{"Coffee", "Food"},
	}
	req := httptest.NewRequest(http.MethodGet, "/menu?category=Coffee", nil)
	rec := httptest.NewRecorder()

	HandleMenu(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !svc.listFilter.AvailableOnly {
		t.Fatalf("expected public menu to filter to available items")
	}
	if svc.listFilter.Category != "Coffee" {
		t.Fatalf("expected category filter, got %q", svc.listFilter.Category)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"price":"3.50"`) {
		t.Fatalf("expected price in body, got %s", body)
	}
	if !strings.Contains(body, `"categories":["Coffee","Food"]`) {
		t.Fatalf("expected categories in body, got %s", body)
	}
}

func TestHandleMenuItem(t *testing.T) {
	t.Parallel()

	t.Run("returns available item", func(t *testing.T) {
		svc := &stubMenuService{item: sampleMenuItem(true)}
		req := httptest.NewRequest(http.MethodGet, "/menu/menu-1", nil)
		rec := httptest.NewRecorder()

		HandleMenuItem(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
	})

	t.Run("hides unavailable item", func(t *testing.T) {
		svc := &stubMenuService{item: sampleMenuItem(false)}
		req := httptest.NewRequest(http.MethodGet, "/menu/menu-1", nil)
		rec := httptest.NewRecorder()

		HandleMenuItem(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("missing item", func(t *testing.T) {
		svc := &stubMenuService{err: domain.ErrMenuItemNotFound}
		req := httptest.NewRequest(http.MethodGet, "/menu/missing", nil)
		rec := httptest.NewRecorder()

		HandleMenuItem(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rec.Code)
		}
	})
}

func TestHandleAdminMenu(t *testing.T) {
	t.Parallel()

	t.Run("creates item", func(t *testing.T) {
		svc := &stubMenuService{item: sampleMenuItem(true)}
		body := `{"name":"Flat White","price":"3.50","category":"Coffee","available":true}`
		req := httptest.NewRequest(http.MethodPost, "/admin/menu", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		HandleAdminMenu(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d (%s)", rec.Code, rec.Body.String())
		}
	})

	t.Run("rejects malformed price", func(t *testing.T) {
		svc := &stubMenuService{}
		body := `{"name":"Flat White","price":"three fifty"}`
		req := httptest.NewRequest(http.MethodPost, "/admin/menu", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		HandleAdminMenu(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("updates item availability", func(t *testing.T) {
		svc := &stubMenuService{item: sampleMenuItem(false)}
		body := `{"available":false}`
		req := httptest.NewRequest(http.MethodPatch, "/admin/menu/menu-1", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		HandleAdminMenu(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d (%s)", rec.Code, rec.Body.String())
		}
		if svc.updateInput.ID != "menu-1" {
			t.Fatalf("expected update for menu-1, got %q", svc.updateInput.ID)
		}
		if svc.updateInput.Available == nil || *svc.updateInput.Available {
			t.Fatalf("expected availability update passed through")
		}
	})

	t.Run("update of unknown item", func(t *testing.T) {
		svc := &stubMenuService{err: domain.ErrMenuItemNotFound}
		req := httptest.NewRequest(http.MethodPatch, "/admin/menu/missing", bytes.NewBufferString(`{}`))
		rec := httptest.NewRecorder()

		HandleAdminMenu(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rec.Code)
		}
	})
}

type stubMenuService struct {
	items       []domain.MenuItem
	item        domain.MenuItem
	categories  []string
	err         error
	listFilter  app.MenuFilter
	updateInput app.UpdateMenuItemInput
}

func (s *stubMenuService) ListMenuItems(_ context.Context, filter app.MenuFilter) ([]domain.MenuItem, error) {
	s.listFilter = filter
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

func (s *stubMenuService) ListCategories(_ context.Context) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.categories, nil
}

func (s *stubMenuService) GetMenuItem(_ context.Context, _ string) (domain.MenuItem, error) {
	if s.err != nil {
		return domain.MenuItem{}, s.err
	}
	return s.item, nil
}

func (s *stubMenuService) CreateMenuItem(_ context.Context, _ app.CreateMenuItemInput) (domain.MenuItem, error) {
	if s.err != nil {
		return domain.MenuItem{}, s.err
	}
	return s.item, nil
}

func (s *stubMenuService) UpdateMenuItem(_ context.Context, in app.UpdateMenuItemInput) (domain.MenuItem, error) {
	s.updateInput = in
	if s.err != nil {
		return domain.MenuItem{}, s.err
	}
	return s.item, nil
}
