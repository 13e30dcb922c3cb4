package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brewhouse/cafe-orders/internal/app"
	"github.com/brewhouse/cafe-orders/internal/domain"
)

// MenuBrowser is the minimal interface needed by the public menu
// endpoints.
type MenuBrowser interface {
	ListMenuItems(ctx context.Context, filter app.MenuFilter) ([]domain.MenuItem, error)
	ListCategories(ctx context.Context) ([]string, error)
	GetMenuItem(ctx context.Context, id string) (domain.MenuItem, error)
}

// MenuManager is the minimal interface needed by the staff menu
// endpoints.
type MenuManager interface {
	CreateMenuItem(ctx context.Context, in app.CreateMenuItemInput) (domain.MenuItem, error)
	UpdateMenuItem(ctx context.Context, in app.UpdateMenuItemInput) (domain.MenuItem, error)
}

// HandleMenu serves GET /menu, listing available items grouped by the
// query filters.
func HandleMenu(svc MenuBrowser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		items, err := svc.ListMenuItems(r.Context(), app.MenuFilter{
			Category:      r.URL.Query().Get("category"),
			FeaturedOnly:  r.URL.Query().Get("featured") == "true",
			AvailableOnly: true,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		categories, err := svc.ListCategories(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := menuResponse{Categories: categories, Items: make([]menuItemResponse, 0, len(items))}
		for _, item := range items {
			resp.Items = append(resp.Items, toMenuItemResponse(item))
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// HandleMenuItem serves GET /menu/{id}.
func HandleMenuItem(svc MenuBrowser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		id, ok := parseMenuItemPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		item, err := svc.GetMenuItem(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		// Unavailable items stay browsable by staff but are hidden from the
		// public detail endpoint.
		if !item.Available {
			writeError(w, http.StatusNotFound, codeMenuItemNotFound, domain.ErrMenuItemNotFound.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(toMenuItemResponse(item))
	}
}

// HandleAdminMenu serves POST /admin/menu (create) and PATCH
// /admin/menu/{id} (price/availability updates).
func HandleAdminMenu(svc MenuManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.Trim(r.URL.Path, "/") == "admin/menu":
			createMenuItem(svc, w, r)
		case r.Method == http.MethodPatch:
			id, ok := parseAdminMenuPath(r.URL.Path)
			if !ok {
				writeError(w, http.StatusNotFound, codeNotFound, "not found")
				return
			}
			updateMenuItem(svc, w, r, id)
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

func createMenuItem(svc MenuManager, w http.ResponseWriter, r *http.Request) {
	var req createMenuItemRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "invalid price")
		return
	}

	item, err := svc.CreateMenuItem(r.Context(), app.CreateMenuItemInput{
		Name:         req.Name,
		Description:  req.Description,
		Price:        price,
		Category:     req.Category,
		Available:    req.Available,
		Featured:     req.Featured,
		Vegetarian:   req.Vegetarian,
		Vegan:        req.Vegan,
		GlutenFree:   req.GlutenFree,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toMenuItemResponse(item))
}

func updateMenuItem(svc MenuManager, w http.ResponseWriter, r *http.Request, id string) {
	var req updateMenuItemRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	in := app.UpdateMenuItemInput{
		ID:        id,
		Available: req.Available,
		Featured:  req.Featured,
	}
	if req.Price != nil {
		price, err := decimal.NewFromString(*req.Price)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "invalid price")
			return
		}
		in.Price = &price
	}

	item, err := svc.UpdateMenuItem(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toMenuItemResponse(item))
}

func parseMenuItemPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] != "menu" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func parseAdminMenuPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "admin" || parts[1] != "menu" || parts[2] == "" {
		return "", false
	}
	return parts[2], true
}

type createMenuItemRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Price        string `json:"price"`
	Category     string `json:"category,omitempty"`
	Available    bool   `json:"available"`
	Featured     bool   `json:"featured"`
	Vegetarian   bool   `json:"vegetarian"`
	Vegan        bool   `json:"vegan"`
	GlutenFree   bool   `json:"gluten_free"`
	DisplayOrder int    `json:"display_order"`
}

type updateMenuItemRequest struct {
	Price     *string `json:"price,omitempty"`
	Available *bool   `json:"available,omitempty"`
	Featured  *bool   `json:"featured,omitempty"`
}

type menuResponse struct {
	Categories []string           `json:"categories"`
	Items      []menuItemResponse `json:"items"`
}

type menuItemResponse struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	Price        string         `json:"price"`
	Category     string         `json:"category,omitempty"`
	Available    bool           `json:"available"`
	Featured     bool           `json:"featured"`
	DietaryInfo  map[string]bool `json:"dietary_info"`
	DisplayOrder int            `json:"display_order"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func toMenuItemResponse(item domain.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Price:       item.Price.StringFixed(2),
		Category:    item.Category,
		Available:   item.Available,
		Featured:    item.Featured,
		DietaryInfo: map[string]bool{
			"vegetarian":  item.Vegetarian,
			"vegan":       item.Vegan,
			"gluten_free": item.GlutenFree,
		},
		DisplayOrder: item.DisplayOrder,
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
}
