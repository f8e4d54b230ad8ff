package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"sabor_menu/internal/domain"
	"sabor_menu/internal/storage/jsonfile"
)

// Cache keys for the list views. Per-dish responses are served straight
// from the stores so a bulk rewrite can never leave a stale entry behind.
const (
	keyAll   = "catalog:all"
	keyWines = "catalog:wines"
	keyBar   = "catalog:bar"
	keyMenus = "catalog:menus"
)

// Category detection is a substring heuristic over menu and section,
// because upstream data is inconsistent about which field carries the
// category. The keyword lists are locale-specific and fragile; they are
// kept as-is for compatibility with the existing catalog.
var (
	wineKeywords = []string{"вино", "wine"}
	barKeywords  = []string{"бар", "bar", "cocktail", "коктейл"}
)

// Catalog reconciles the record store and the document store into one
// caller-facing view, and keeps them moving together on writes.
type Catalog struct {
	repo     domain.DishRepository
	docs     *jsonfile.Store
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewCatalog(repo domain.DishRepository, docs *jsonfile.Store, cache domain.Cache, ttl time.Duration) *Catalog {
	return &Catalog{repo: repo, docs: docs, cache: cache, cacheTTL: ttl}
}

// mergeRead produces the response object for an id present in both
// stores: record-store core fields win, the document fills gaps and
// contributes its extra keys.
func mergeRead(doc, rec domain.Dish) domain.Dish {
	out := rec
	out.Extra = doc.Extra
	if out.Menu == "" {
		out.Menu = doc.Menu
	}
	if out.Section == "" {
		out.Section = doc.Section
	}
	if out.Title == "" {
		out.Title = doc.Title
	}
	if out.Description == "" {
		out.Description = doc.Description
	}
	if out.Contains == "" {
		out.Contains = doc.Contains
	}
	if out.Allergens == nil {
		out.Allergens = doc.Allergens
	}
	if out.Tags == nil {
		out.Tags = doc.Tags
	}
	if out.Pairings == nil {
		out.Pairings = doc.Pairings
	}
	if out.Image == nil {
		out.Image = doc.Image
	}
	if out.I18n == nil {
		out.I18n = doc.I18n
	}
	return out
}

// All returns the whole catalog: document order first (that order is
// the display order), each entry merged with its record-store row when
// one exists, then any record-store rows the document never mentions.
func (c *Catalog) All(ctx context.Context) ([]domain.Dish, error) {
	var cached []domain.Dish
	if ok, _ := c.cache.Get(ctx, keyAll, &cached); ok {
		return cached, nil
	}

	rows, err := c.repo.ListDishes(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Dish, len(rows))
	for _, r := range rows {
		byID[strings.TrimSpace(r.ID)] = r
	}

	seen := map[string]bool{}
	var out []domain.Dish
	for _, doc := range c.docs.LoadAll() {
		id := strings.TrimSpace(doc.ID)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if rec, ok := byID[id]; ok {
			out = append(out, mergeRead(doc, rec))
		} else {
			out = append(out, doc)
		}
	}
	// Record-store rows the document never exported come last, in the
	// store's native order, so admin-added dishes are not lost.
	for _, r := range rows {
		if id := strings.TrimSpace(r.ID); !seen[id] {
			seen[id] = true
			out = append(out, r)
		}
	}

	_ = c.cache.Set(ctx, keyAll, out, int(c.cacheTTL.Seconds()))
	return out, nil
}

// Get tries the record store first, merging document extras in; a miss
// falls back to the document index.
func (c *Catalog) Get(ctx context.Context, id string) (domain.Dish, error) {
	id = strings.TrimSpace(id)
	idx := c.docs.ByID()
	rec, err := c.repo.GetDish(ctx, id)
	switch {
	case err == nil:
		return mergeRead(idx[id], rec), nil
	case err == domain.ErrNotFound:
		if doc, ok := idx[id]; ok {
			return doc, nil
		}
		return domain.Dish{}, domain.ErrNotFound
	default:
		return domain.Dish{}, err
	}
}

func matchAny(d domain.Dish, keywords []string) bool {
	hay := strings.ToLower(d.Menu + " " + d.Section)
	for _, k := range keywords {
		if strings.Contains(hay, k) {
			return true
		}
	}
	return false
}

func (c *Catalog) filtered(ctx context.Context, key string, keywords []string) ([]domain.Dish, error) {
	var cached []domain.Dish
	if ok, _ := c.cache.Get(ctx, key, &cached); ok {
		return cached, nil
	}
	all, err := c.All(ctx)
	if err != nil {
		return nil, err
	}
	out := []domain.Dish{}
	for _, d := range all {
		if matchAny(d, keywords) {
			out = append(out, d)
		}
	}
	_ = c.cache.Set(ctx, key, out, int(c.cacheTTL.Seconds()))
	return out, nil
}

func (c *Catalog) Wines(ctx context.Context) ([]domain.Dish, error) {
	return c.filtered(ctx, keyWines, wineKeywords)
}

func (c *Catalog) BarItems(ctx context.Context) ([]domain.Dish, error) {
	return c.filtered(ctx, keyBar, barKeywords)
}

func (c *Catalog) WineByID(ctx context.Context, id string) (domain.Dish, error) {
	d, err := c.Get(ctx, id)
	if err != nil {
		return domain.Dish{}, err
	}
	if !matchAny(d, wineKeywords) {
		return domain.Dish{}, domain.ErrNotFound
	}
	return d, nil
}

// WinesByCategory filters the wine list on its category key (by-glass,
// coravin, half-bottles, ...), an extra field the record store never
// models.
func (c *Catalog) WinesByCategory(ctx context.Context, category string) ([]domain.Dish, error) {
	wines, err := c.Wines(ctx)
	if err != nil {
		return nil, err
	}
	want := strings.TrimSpace(category)
	out := []domain.Dish{}
	for _, w := range wines {
		if v, ok := w.ExtraValue("category"); ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) == want {
				out = append(out, w)
			}
		}
	}
	return out, nil
}

// Menus lists the distinct menu names, sorted, empties dropped. The
// record store answers when populated; otherwise the merged view does.
func (c *Catalog) Menus(ctx context.Context) ([]string, error) {
	var cached []string
	if ok, _ := c.cache.Get(ctx, keyMenus, &cached); ok {
		return cached, nil
	}
	menus, err := c.repo.Menus(ctx)
	if err != nil {
		return nil, err
	}
	if len(menus) == 0 {
		menus = c.distinctFromDocs(ctx, func(d domain.Dish) string { return d.Menu })
	}
	_ = c.cache.Set(ctx, keyMenus, menus, int(c.cacheTTL.Seconds()))
	return menus, nil
}

// Sections lists distinct sections, optionally limited to one menu.
func (c *Catalog) Sections(ctx context.Context, menu string) ([]string, error) {
	sections, err := c.repo.Sections(ctx, menu)
	if err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		sections = c.distinctFromDocs(ctx, func(d domain.Dish) string {
			if menu != "" && d.Menu != menu {
				return ""
			}
			return d.Section
		})
	}
	return sections, nil
}

func (c *Catalog) distinctFromDocs(ctx context.Context, pick func(domain.Dish) string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, d := range c.docs.LoadAll() {
		if v := pick(d); v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// ReplaceAll is the full re-import: the payload becomes the new
// document store content and the record store is rebuilt from it.
// Per-item insert failures do not abort the batch.
func (c *Catalog) ReplaceAll(ctx context.Context, items []domain.Dish) (kept, dropped int, err error) {
	for i, it := range items {
		if strings.TrimSpace(it.ID) == "" {
			return 0, 0, domain.Validationf("dish at index %d has no id", i)
		}
	}
	deduped, dropped := jsonfile.Dedupe(items)
	if err := c.docs.SaveAll(deduped); err != nil {
		return 0, 0, err
	}
	if err := c.repo.DeleteAllDishes(ctx); err != nil {
		return 0, 0, err
	}
	for _, it := range deduped {
		if err := c.repo.UpsertDish(ctx, it.Core()); err != nil {
			log.Error().Err(err).Str("id", it.ID).Msg("record store insert failed, continuing")
		}
	}
	c.invalidate(ctx)
	return len(deduped), dropped, nil
}

// Create adds one dish, refusing an id that exists in either store.
func (c *Catalog) Create(ctx context.Context, d domain.Dish) (domain.Dish, error) {
	id := strings.TrimSpace(d.ID)
	if id == "" {
		return domain.Dish{}, domain.Validationf("dish must have an id")
	}
	d.ID = id
	if _, err := c.Get(ctx, id); err == nil {
		return domain.Dish{}, domain.ErrConflict
	} else if err != domain.ErrNotFound {
		return domain.Dish{}, err
	}
	merged, _, err := c.docs.Upsert(d)
	if err != nil {
		return domain.Dish{}, err
	}
	if err := c.repo.UpsertDish(ctx, merged.Core()); err != nil {
		return domain.Dish{}, err
	}
	c.invalidate(ctx)
	return merged, nil
}

// UpsertOne applies a partial update under the path id; the id in the
// payload is ignored so the URL stays authoritative. The document store
// merges first, then the record store is overwritten from the merged
// entry, which keeps fields the payload omitted.
func (c *Catalog) UpsertOne(ctx context.Context, id string, d domain.Dish) (domain.Dish, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Dish{}, domain.Validationf("dish id is required")
	}
	d.ID = id
	merged, _, err := c.docs.Upsert(d)
	if err != nil {
		return domain.Dish{}, err
	}
	if err := c.repo.UpsertDish(ctx, merged.Core()); err != nil {
		return domain.Dish{}, err
	}
	c.invalidate(ctx)
	return merged, nil
}

// DeleteOne removes the id from both stores; not-found only when
// neither store had it.
func (c *Catalog) DeleteOne(ctx context.Context, id string) error {
	inDocs, err := c.docs.Delete(id)
	if err != nil {
		return err
	}
	inRepo, err := c.repo.DeleteDish(ctx, id)
	if err != nil {
		return err
	}
	if !inDocs && !inRepo {
		return domain.ErrNotFound
	}
	c.invalidate(ctx)
	return nil
}

// Bootstrap seeds an empty record store from the document store. A
// populated record store is never touched, so live admin edits cannot
// be clobbered by stale seed data.
func (c *Catalog) Bootstrap(ctx context.Context) error {
	n, err := c.repo.CountDishes(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	items := c.docs.LoadAll()
	if len(items) == 0 {
		return nil
	}
	deduped, dropped := jsonfile.Dedupe(items)
	for _, it := range deduped {
		if err := c.repo.UpsertDish(ctx, it.Core()); err != nil {
			return fmt.Errorf("seed record store: %w", err)
		}
	}
	log.Info().Int("dishes", len(deduped)).Int("dropped", dropped).Msg("record store seeded from menu file")
	return nil
}

// Health reports how many items each store holds.
func (c *Catalog) Health(ctx context.Context) (dbCount, docCount int) {
	n, err := c.repo.CountDishes(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("record store count failed")
		n = 0
	}
	return n, len(c.docs.LoadAll())
}

func (c *Catalog) invalidate(ctx context.Context) {
	for _, k := range []string{keyAll, keyWines, keyBar, keyMenus} {
		_ = c.cache.Del(ctx, k)
	}
}
