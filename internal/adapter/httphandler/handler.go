package httphandler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"
	"github.com/niksmo/product-explorer/internal/core/domain"
	"github.com/niksmo/product-explorer/internal/core/port"
)

var queryDecoder = newQueryDecoder()

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// A Handler serves the explorer API of one browsing session per request.
type Handler struct {
	svc port.Explorer
}

func NewHandler(svc port.Explorer) Handler {
	if svc == nil {
		panic("httphandler.NewHandler: service is nil") // develop mistake
	}
	return Handler{svc}
}

// Register mounts the API routes. Session must run before them.
func (h Handler) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/catalog", h.GetCatalog)
		r.Post("/catalog/reload", h.ReloadCatalog)
		r.Get("/categories", h.GetCategories)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.GetProducts)
			r.Get("/search", h.SearchProducts)
			r.With(h.requireAdmin).Post("/", h.PostProducts)
			r.Get("/{id}", h.GetProduct)
		})

		r.Route("/filter", func(r chi.Router) {
			r.Get("/", h.GetFilter)
			r.Delete("/", h.ResetFilter)
			r.Put("/search", h.PutSearchTerm)
			r.Put("/category", h.PutCategory)
			r.Put("/price", h.PutPriceRange)
			r.Put("/sort", h.PutSort)
		})

		r.Route("/favourites", func(r chi.Router) {
			r.Get("/", h.GetFavourites)
			r.Delete("/", h.ClearFavourites)
			r.Put("/{id}", h.PutFavourite)
			r.Delete("/{id}", h.DeleteFavourite)
			r.Post("/{id}/toggle", h.ToggleFavourite)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Put("/{id}", h.PutCartItem)
			r.Delete("/{id}", h.DeleteCartItem)
			r.Post("/{id}/toggle", h.ToggleCartItem)
		})

		r.Route("/theme", func(r chi.Router) {
			r.Get("/", h.GetTheme)
			r.Put("/", h.PutTheme)
			r.Post("/toggle", h.ToggleTheme)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/", h.GetAdmin)
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.Post("/toggle", h.ToggleAdmin)
			r.Get("/stats", h.GetStats)
		})
	})
}

func (h Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.svc.IsAdmin(r.Context(), sessionID(r.Context())) {
			respondError(w, r, domain.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Catalog

func (h Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, fromDomainStatus(h.svc.Status()))
}

func (h Handler) ReloadCatalog(w http.ResponseWriter, r *http.Request) {
	const op = "Handler.ReloadCatalog"

	gen := h.svc.Retry(r.Context())
	slog.With("op", op).Info("catalog reload requested", "generation", gen)
	writeJSON(w, http.StatusAccepted, map[string]uint64{"generation": gen})
}

func (h Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories := h.svc.Categories()
	if categories == nil {
		categories = []string{}
	}
	writeJSON(w, http.StatusOK, categories)
}

// Products

func (h Handler) GetProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeJSON(w, http.StatusOK, productList(h.svc.View(ctx, sessionID(ctx))))
}

func (h Handler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	var q searchQuery
	if err := queryDecoder.Decode(&q, r.URL.Query()); err != nil {
		respondError(w, r, fmt.Errorf("%w: %w", errValidation, err))
		return
	}
	if err := validateStruct(q); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, productList(h.svc.Search(q.toDomain())))
}

func (h Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	p, err := h.svc.ProductByID(id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ProductDetails{
		Product:     fromDomainProduct(p),
		IsFavourite: h.svc.IsFavourite(ctx, sessionID(ctx), id),
	})
}

func (h Handler) PostProducts(w http.ResponseWriter, r *http.Request) {
	const op = "Handler.PostProducts"
	log := slog.With("op", op)

	var ps []Product
	if err := decodeBody(w, r, &ps); err != nil {
		log.Warn("failed to parse products", "err", err)
		respondError(w, r, err)
		return
	}

	dps := make([]domain.Product, 0, len(ps))
	for _, p := range ps {
		if err := validateStruct(p); err != nil {
			respondError(w, r, err)
			return
		}
		dps = append(dps, p.toDomain())
	}

	if err := h.svc.SendProducts(r.Context(), dps); err != nil {
		respondError(w, r, err)
		return
	}

	log.Info("accepted", "nProducts", len(dps))
	w.WriteHeader(http.StatusAccepted)
}

// Filter

func (h Handler) GetFilter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeJSON(w, http.StatusOK, fromDomainFilter(h.svc.Filter(ctx, sessionID(ctx))))
}

func (h Handler) ResetFilter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeJSON(w, http.StatusOK, fromDomainFilter(h.svc.ResetFilter(ctx, sessionID(ctx))))
}

func (h Handler) PutSearchTerm(w http.ResponseWriter, r *http.Request) {
	var b searchTermBody
	if err := decodeBody(w, r, &b); err != nil {
		respondError(w, r, err)
		return
	}
	ctx := r.Context()
	spec := h.svc.SetSearchTerm(ctx, sessionID(ctx), b.Term)
	writeJSON(w, http.StatusOK, fromDomainFilter(spec))
}

func (h Handler) PutCategory(w http.ResponseWriter, r *http.Request) {
	var b categoryBody
	if err := decodeBody(w, r, &b); err != nil {
		respondError(w, r, err)
		return
	}
	ctx := r.Context()
	spec := h.svc.SetCategory(ctx, sessionID(ctx), b.Category)
	writeJSON(w, http.StatusOK, fromDomainFilter(spec))
}

func (h Handler) PutPriceRange(w http.ResponseWriter, r *http.Request) {
	var b priceRangeBody
	if err := decodeBody(w, r, &b); err != nil {
		respondError(w, r, err)
		return
	}
	ctx := r.Context()
	lo, hi := b.bounds()
	spec := h.svc.SetPriceRange(ctx, sessionID(ctx), lo, hi)
	writeJSON(w, http.StatusOK, fromDomainFilter(spec))
}

func (h Handler) PutSort(w http.ResponseWriter, r *http.Request) {
	var b sortBody
	if err := decodeBody(w, r, &b); err != nil {
		respondError(w, r, err)
		return
	}
	ctx := r.Context()
	spec := h.svc.SetSort(ctx, sessionID(ctx),
		domain.SortField(b.SortBy), domain.SortOrder(b.SortOrder))
	writeJSON(w, http.StatusOK, fromDomainFilter(spec))
}

// Favourites

func (h Handler) GetFavourites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeJSON(w, http.StatusOK, favourites(h.svc.Favourites(ctx, sessionID(ctx))))
}

func (h Handler) ClearFavourites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(ctx)
	h.svc.ClearFavourites(ctx, sid)
	writeJSON(w, http.StatusOK, favourites(h.svc.Favourites(ctx, sid)))
}

func (h Handler) PutFavourite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(ctx)
	h.svc.AddFavourite(ctx, sid, chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, favourites(h.svc.Favourites(ctx, sid)))
}

func (h Handler) DeleteFavourite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(ctx)
	h.svc.RemoveFavourite(ctx, sid, chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, favourites(h.svc.Favourites(ctx, sid)))
}

func (h Handler) ToggleFavourite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	isFav := h.svc.ToggleFavourite(ctx, sessionID(ctx), chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, map[string]bool{"isFavourite": isFav})
}

// Cart

func (h Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeJSON(w, http.StatusOK, fromDomainCart(h.svc.Cart(ctx, sessionID(ctx))))
}

func (h Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(ctx)
	h.svc.ClearCart(ctx, sid)
	writeJSON(w, http.StatusOK, fromDomainCart(h.svc.Cart(ctx, sid)))
}

func (h Handler) PutCartItem(w http.ResponseWriter, r *http.Request) {
	var b quantityBody
	if err := decodeBody(w, r, &b); err != nil {
		respondError(w, r, err)
		return
	}

	ctx := r.Context()
	sid := sessionID(ctx)
	err := h.svc.SetQuantity(ctx, sid, chi.URLParam(r, "id"), *b.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fromDomainCart(h.svc.Cart(ctx, sid)))
}

func (h Handler) DeleteCartItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(ctx)
	h.svc.RemoveFromCart(ctx, sid, chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, fromDomainCart(h.svc.Cart(ctx, sid)))
}

func (h Handler) ToggleCartItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	inCart := h.svc.ToggleCart(ctx, sessionID(ctx), chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, map[string]bool{"inCart": inCart})
}

// Theme

func (h Handler) GetTheme(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeTheme(w, h.svc.Theme(ctx, sessionID(ctx)))
}

func (h Handler) PutTheme(w http.ResponseWriter, r *http.Request) {
	var b themeBody
	if err := decodeBody(w, r, &b); err != nil {
		respondError(w, r, err)
		return
	}

	ctx := r.Context()
	sid := sessionID(ctx)
	if err := h.svc.SetTheme(ctx, sid, domain.Theme(b.Theme)); err != nil {
		respondError(w, r, err)
		return
	}
	writeTheme(w, h.svc.Theme(ctx, sid))
}

func (h Handler) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeTheme(w, h.svc.ToggleTheme(ctx, sessionID(ctx)))
}

func writeTheme(w http.ResponseWriter, t domain.Theme) {
	writeJSON(w, http.StatusOK, map[string]string{"theme": string(t)})
}

// Admin

func (h Handler) GetAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeAdmin(w, h.svc.IsAdmin(ctx, sessionID(ctx)))
}

func (h Handler) Login(w http.ResponseWriter, r *http.Request) {
	h.setAdmin(w, r, true)
}

func (h Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.setAdmin(w, r, false)
}

func (h Handler) setAdmin(w http.ResponseWriter, r *http.Request, admin bool) {
	ctx := r.Context()
	sid := sessionID(ctx)
	h.svc.SetAdmin(ctx, sid, admin)
	writeAdmin(w, h.svc.IsAdmin(ctx, sid))
}

func (h Handler) ToggleAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeAdmin(w, h.svc.ToggleAdmin(ctx, sessionID(ctx)))
}

func (h Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.svc.Dashboard(ctx, sessionID(ctx))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fromDomainStats(stats))
}

func writeAdmin(w http.ResponseWriter, admin bool) {
	writeJSON(w, http.StatusOK, map[string]bool{"admin": admin})
}
