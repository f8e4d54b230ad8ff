package app_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"sabor_menu/internal/app"
	"sabor_menu/internal/domain"
	"sabor_menu/internal/storage/jsonfile"
)

// ---- fakes ----

// fakeDishRepo is an in-memory record store preserving insertion order.
type fakeDishRepo struct {
	order   []string
	dishes  map[string]domain.Dish
	failIDs map[string]bool // ids whose upsert fails
}

func newFakeDishRepo() *fakeDishRepo {
	return &fakeDishRepo{dishes: map[string]domain.Dish{}}
}

func (f *fakeDishRepo) ListDishes(ctx context.Context) ([]domain.Dish, error) {
	out := make([]domain.Dish, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.dishes[id])
	}
	return out, nil
}

func (f *fakeDishRepo) GetDish(ctx context.Context, id string) (domain.Dish, error) {
	d, ok := f.dishes[id]
	if !ok {
		return domain.Dish{}, domain.ErrNotFound
	}
	return d, nil
}

func (f *fakeDishRepo) UpsertDish(ctx context.Context, d domain.Dish) error {
	if f.failIDs[d.ID] {
		return domain.ErrReadOnly
	}
	if _, ok := f.dishes[d.ID]; !ok {
		f.order = append(f.order, d.ID)
	}
	f.dishes[d.ID] = d
	return nil
}

func (f *fakeDishRepo) DeleteDish(ctx context.Context, id string) (bool, error) {
	if _, ok := f.dishes[id]; !ok {
		return false, nil
	}
	delete(f.dishes, id)
	for i, v := range f.order {
		if v == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (f *fakeDishRepo) DeleteAllDishes(ctx context.Context) error {
	f.order = nil
	f.dishes = map[string]domain.Dish{}
	return nil
}

func (f *fakeDishRepo) CountDishes(ctx context.Context) (int, error) { return len(f.dishes), nil }

func (f *fakeDishRepo) Menus(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, d := range f.dishes {
		if d.Menu != "" && !seen[d.Menu] {
			seen[d.Menu] = true
			out = append(out, d.Menu)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeDishRepo) Sections(ctx context.Context, menu string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, d := range f.dishes {
		if menu != "" && d.Menu != menu {
			continue
		}
		if d.Section != "" && !seen[d.Section] {
			seen[d.Section] = true
			out = append(out, d.Section)
		}
	}
	sort.Strings(out)
	return out, nil
}

type fakeCache struct {
	store map[string][]byte
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, _ := json.Marshal(v)
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	c.dels = append(c.dels, key)
	return nil
}

// ---- helpers ----

func newTestCatalog(t *testing.T) (*app.Catalog, *fakeDishRepo, *jsonfile.Store, *fakeCache) {
	t.Helper()
	dir := t.TempDir()
	docs := jsonfile.New(filepath.Join(dir, "menu.json"), "")
	repo := newFakeDishRepo()
	cache := &fakeCache{}
	return app.NewCatalog(repo, docs, cache, 5*time.Minute), repo, docs, cache
}

func ids(ds []domain.Dish) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.ID
	}
	return out
}

// ---- tests ----

func TestAllMergesAndOrders(t *testing.T) {
	c, repo, docs, _ := newTestCatalog(t)
	ctx := context.Background()

	// Document order fixes display order; id 7 exists in both stores
	// with a disagreeing title.
	if err := docs.SaveAll([]domain.Dish{
		{ID: "7", Menu: "Вино", Title: "doc title", Extra: map[string]any{"origin": "Риоха"}},
		{ID: "8", Menu: "Бар", Title: "doc only"},
	}); err != nil {
		t.Fatal(err)
	}
	_ = repo.UpsertDish(ctx, domain.Dish{ID: "7", Menu: "Вино", Title: "db title"})
	_ = repo.UpsertDish(ctx, domain.Dish{ID: "9", Menu: "Основное меню", Title: "db only"})

	all, err := c.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"7", "8", "9"}; strings.Join(ids(all), ",") != strings.Join(want, ",") {
		t.Fatalf("order: %v", ids(all))
	}
	// record store wins on overlap
	if all[0].Title != "db title" {
		t.Fatalf("record store did not win: %q", all[0].Title)
	}
	// document extras are merged in
	if all[0].Extra["origin"] != "Риоха" {
		t.Fatalf("extras lost: %+v", all[0].Extra)
	}
	// doc-only and db-only entries both survive
	if all[1].Title != "doc only" || all[2].Title != "db only" {
		t.Fatalf("merge lost entries: %+v", all)
	}
}

func TestGetFallsBackToDocumentStore(t *testing.T) {
	c, _, docs, _ := newTestCatalog(t)
	ctx := context.Background()

	if err := docs.SaveAll([]domain.Dish{{ID: "42", Menu: "Вино", Title: "Malbec"}}); err != nil {
		t.Fatal(err)
	}

	d, err := c.Get(ctx, "42")
	if err != nil {
		t.Fatal(err)
	}
	if d.Title != "Malbec" || d.Menu != "Вино" {
		t.Fatalf("fallback: %+v", d)
	}

	if _, err := c.Get(ctx, "nope"); err != domain.ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpsertOnePreservesUnsentFields(t *testing.T) {
	c, repo, docs, _ := newTestCatalog(t)
	ctx := context.Background()

	if err := docs.SaveAll([]domain.Dish{{ID: "42", Menu: "Вино", Title: "Malbec"}}); err != nil {
		t.Fatal(err)
	}

	// Path id is authoritative; body id is ignored.
	if _, err := c.UpsertOne(ctx, "42", domain.Dish{ID: "evil", Title: "Malbec Reserva"}); err != nil {
		t.Fatal(err)
	}

	wines, err := c.Wines(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(wines) != 1 || wines[0].ID != "42" {
		t.Fatalf("wines: %+v", wines)
	}
	if wines[0].Title != "Malbec Reserva" || wines[0].Menu != "Вино" {
		t.Fatalf("partial update broke fields: %+v", wines[0])
	}
	// the record store now holds the merged row too
	rec, err := repo.GetDish(ctx, "42")
	if err != nil || rec.Menu != "Вино" {
		t.Fatalf("record store row: %+v %v", rec, err)
	}
}

func TestUpsertOneIsIdempotent(t *testing.T) {
	c, _, _, _ := newTestCatalog(t)
	ctx := context.Background()

	payload := domain.Dish{Menu: "Вино", Title: "Рислинг", Extra: map[string]any{"region": "Мозель"}}
	first, err := c.UpsertOne(ctx, "9", payload)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.UpsertOne(ctx, "9", payload)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("not idempotent:\n%s\n%s", a, b)
	}
}

func TestReplaceAllDedupesAndRebuilds(t *testing.T) {
	c, repo, _, _ := newTestCatalog(t)
	ctx := context.Background()

	_ = repo.UpsertDish(ctx, domain.Dish{ID: "stale", Title: "gone after import"})

	kept, dropped, err := c.ReplaceAll(ctx, []domain.Dish{
		{ID: "1", Title: "first"},
		{ID: " 1 ", Title: "second"}, // same id after trim, last wins
		{ID: "2", Title: "two"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if kept != 2 || dropped != 0 {
		t.Fatalf("kept=%d dropped=%d", kept, dropped)
	}

	all, err := c.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(ids(all), ",") != "1,2" {
		t.Fatalf("catalog after import: %v", ids(all))
	}
	if all[0].Title != "second" {
		t.Fatalf("last occurrence did not win: %+v", all[0])
	}
	if _, err := repo.GetDish(ctx, "stale"); err != domain.ErrNotFound {
		t.Fatal("record store was not rebuilt")
	}
}

func TestReplaceAllRejectsMissingID(t *testing.T) {
	c, _, _, _ := newTestCatalog(t)
	_, _, err := c.ReplaceAll(context.Background(), []domain.Dish{{Title: "no id"}})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReplaceAllContinuesPastInsertFailures(t *testing.T) {
	c, repo, _, _ := newTestCatalog(t)
	repo.failIDs = map[string]bool{"2": true}
	ctx := context.Background()

	kept, _, err := c.ReplaceAll(ctx, []domain.Dish{
		{ID: "1"}, {ID: "2"}, {ID: "3"},
	})
	if err != nil {
		t.Fatalf("batch should not abort: %v", err)
	}
	if kept != 3 {
		t.Fatalf("kept=%d", kept)
	}
	// 1 and 3 made it into the record store despite 2 failing
	if _, err := repo.GetDish(ctx, "1"); err != nil {
		t.Fatal("1 missing")
	}
	if _, err := repo.GetDish(ctx, "3"); err != nil {
		t.Fatal("3 missing")
	}
	if _, err := repo.GetDish(ctx, "2"); err != domain.ErrNotFound {
		t.Fatal("2 should have failed")
	}
}

func TestDeleteOneDocOnly(t *testing.T) {
	c, _, docs, _ := newTestCatalog(t)
	ctx := context.Background()

	if err := docs.SaveAll([]domain.Dish{{ID: "5", Menu: "Бар", Title: "Негрони"}}); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteOne(ctx, "5"); err != nil {
		t.Fatalf("delete doc-only: %v", err)
	}
	all, _ := c.All(ctx)
	if len(all) != 0 {
		t.Fatalf("still present: %+v", all)
	}
	if err := c.DeleteOne(ctx, "5"); err != domain.ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateRefusesDuplicate(t *testing.T) {
	c, _, _, _ := newTestCatalog(t)
	ctx := context.Background()

	if _, err := c.Create(ctx, domain.Dish{ID: "1", Title: "a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Create(ctx, domain.Dish{ID: "1", Title: "b"}); err != domain.ErrConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestWinesAndBarHeuristic(t *testing.T) {
	c, _, docs, _ := newTestCatalog(t)
	ctx := context.Background()

	// category sometimes lives in section rather than menu
	if err := docs.SaveAll([]domain.Dish{
		{ID: "1", Menu: "Вино", Title: "Мальбек", Extra: map[string]any{"category": "by-glass"}},
		{ID: "2", Menu: "Напитки", Section: "Wine list", Title: "Рислинг", Extra: map[string]any{"category": "coravin"}},
		{ID: "3", Menu: "Барное меню", Title: "Негрони"},
		{ID: "4", Menu: "Основное меню", Title: "Суп"},
	}); err != nil {
		t.Fatal(err)
	}

	wines, err := c.Wines(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(ids(wines), ",") != "1,2" {
		t.Fatalf("wines: %v", ids(wines))
	}

	bar, err := c.BarItems(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(ids(bar), ",") != "3" {
		t.Fatalf("bar: %v", ids(bar))
	}

	byGlass, err := c.WinesByCategory(ctx, "by-glass")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(ids(byGlass), ",") != "1" {
		t.Fatalf("by-glass: %v", ids(byGlass))
	}

	if _, err := c.WineByID(ctx, "4"); err != domain.ErrNotFound {
		t.Fatalf("soup is not a wine: %v", err)
	}
}

func TestCyrillicWineScenario(t *testing.T) {
	c, _, docs, _ := newTestCatalog(t)
	ctx := context.Background()

	if err := docs.SaveAll([]domain.Dish{{ID: "42", Menu: "Вино", Title: "Malbec"}}); err != nil {
		t.Fatal(err)
	}

	got, err := c.Get(ctx, "42")
	if err != nil || got.Title != "Malbec" {
		t.Fatalf("initial read: %+v %v", got, err)
	}

	if _, err := c.UpsertOne(ctx, "42", domain.Dish{Title: "Malbec Reserva"}); err != nil {
		t.Fatal(err)
	}

	wines, err := c.Wines(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(wines) != 1 || wines[0].ID != "42" || wines[0].Title != "Malbec Reserva" || wines[0].Menu != "Вино" {
		t.Fatalf("scenario failed: %+v", wines)
	}
}

func TestBootstrapSeedsOnlyEmptyStore(t *testing.T) {
	c, repo, docs, _ := newTestCatalog(t)
	ctx := context.Background()

	if err := docs.SaveAll([]domain.Dish{{ID: "1", Title: "seed"}}); err != nil {
		t.Fatal(err)
	}
	if err := c.Bootstrap(ctx); err != nil {
		t.Fatal(err)
	}
	if n, _ := repo.CountDishes(ctx); n != 1 {
		t.Fatalf("not seeded: %d", n)
	}

	// live edit, then a second bootstrap must not clobber it
	_ = repo.UpsertDish(ctx, domain.Dish{ID: "1", Title: "edited"})
	if err := c.Bootstrap(ctx); err != nil {
		t.Fatal(err)
	}
	d, _ := repo.GetDish(ctx, "1")
	if d.Title != "edited" {
		t.Fatalf("bootstrap clobbered a live edit: %+v", d)
	}
}

func TestWritesInvalidateCache(t *testing.T) {
	c, _, docs, cache := newTestCatalog(t)
	ctx := context.Background()

	if err := docs.SaveAll([]domain.Dish{{ID: "1", Menu: "Вино", Title: "old"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.All(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok := cache.store["catalog:all"]; !ok {
		t.Fatal("list not cached")
	}

	if _, err := c.UpsertOne(ctx, "1", domain.Dish{Title: "new"}); err != nil {
		t.Fatal(err)
	}
	if _, ok := cache.store["catalog:all"]; ok {
		t.Fatal("cache not invalidated by write")
	}

	all, err := c.All(ctx)
	if err != nil || all[0].Title != "new" {
		t.Fatalf("stale read: %+v %v", all, err)
	}
}
