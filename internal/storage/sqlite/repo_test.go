package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"sabor_menu/internal/domain"
	sqliterepo "sabor_menu/internal/storage/sqlite"
)

func newTestRepo(t *testing.T) *sqliterepo.Repo {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	r := sqliterepo.New(db, path)
	if err := r.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return r
}

func TestDishUpsertGetDelete(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	d := domain.Dish{
		ID:        "42",
		Menu:      "Вино",
		Title:     "Malbec",
		Allergens: []string{"сульфиты"},
		Pairings:  map[string]string{"main": "стейк"},
		I18n:      map[string]map[string]string{"en": {"title": "Malbec"}},
	}
	if err := r.UpsertDish(ctx, d); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := r.GetDish(ctx, " 42 ")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Malbec" || got.Menu != "Вино" {
		t.Fatalf("got %+v", got)
	}
	if got.Allergens[0] != "сульфиты" || got.Pairings["main"] != "стейк" {
		t.Fatalf("json columns lost: %+v", got)
	}
	if got.I18n["en"]["title"] != "Malbec" {
		t.Fatalf("i18n lost: %+v", got.I18n)
	}

	// update in place
	d.Title = "Malbec Reserva"
	if err := r.UpsertDish(ctx, d); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	got, _ = r.GetDish(ctx, "42")
	if got.Title != "Malbec Reserva" {
		t.Fatalf("update lost: %+v", got)
	}

	ok, err := r.DeleteDish(ctx, "42")
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	if _, err := r.GetDish(ctx, "42"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDishListOrderAndCount(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	for _, id := range []string{"b", "a", "c"} {
		if err := r.UpsertDish(ctx, domain.Dish{ID: id, Menu: "Основное меню"}); err != nil {
			t.Fatal(err)
		}
	}
	list, err := r.ListDishes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// native store order is insertion order
	if len(list) != 3 || list[0].ID != "b" || list[1].ID != "a" || list[2].ID != "c" {
		t.Fatalf("order: %+v", list)
	}
	n, err := r.CountDishes(ctx)
	if err != nil || n != 3 {
		t.Fatalf("count=%d err=%v", n, err)
	}
	if err := r.DeleteAllDishes(ctx); err != nil {
		t.Fatal(err)
	}
	if n, _ := r.CountDishes(ctx); n != 0 {
		t.Fatalf("count after delete-all: %d", n)
	}
}

func TestMenusAndSections(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	seed := []domain.Dish{
		{ID: "1", Menu: "Вино", Section: "Красное"},
		{ID: "2", Menu: "Вино", Section: "Белое"},
		{ID: "3", Menu: "Основное меню", Section: "Супы"},
		{ID: "4", Menu: "", Section: ""},
	}
	for _, d := range seed {
		if err := r.UpsertDish(ctx, d); err != nil {
			t.Fatal(err)
		}
	}

	menus, err := r.Menus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(menus) != 2 || menus[0] != "Вино" || menus[1] != "Основное меню" {
		t.Fatalf("menus: %v", menus)
	}

	sections, err := r.Sections(ctx, "Вино")
	if err != nil {
		t.Fatal(err)
	}
	if len(sections) != 2 || sections[0] != "Белое" || sections[1] != "Красное" {
		t.Fatalf("sections: %v", sections)
	}
}

func TestUserLifecycle(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	u, err := r.CreateUser(ctx, domain.User{Name: "Анна", Username: "anna", PasswordHash: "x", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID == 0 {
		t.Fatal("no id assigned")
	}

	if _, err := r.CreateUser(ctx, domain.User{Name: "Other", Username: "anna", PasswordHash: "y", Role: "официант"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate username: %v", err)
	}

	byName, err := r.GetUserByUsername(ctx, "anna")
	if err != nil || byName.ID != u.ID {
		t.Fatalf("by username: %+v %v", byName, err)
	}

	u.Role = "хостес"
	if err := r.UpdateUser(ctx, u); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := r.GetUser(ctx, u.ID)
	if got.Role != "хостес" {
		t.Fatalf("role not updated: %+v", got)
	}

	ok, err := r.DeleteUser(ctx, u.ID)
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	if n, _ := r.CountUsers(ctx); n != 0 {
		t.Fatalf("count: %d", n)
	}
}

func TestFeedbackLifecycle(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	m, err := r.CreateFeedback(ctx, domain.FeedbackMessage{Name: "Гость", Type: "suggestion", Message: "больше вина"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.ID == 0 || m.Read {
		t.Fatalf("bad created message: %+v", m)
	}

	read, err := r.MarkFeedbackRead(ctx, m.ID)
	if err != nil || !read.Read {
		t.Fatalf("mark read: %+v %v", read, err)
	}

	if _, err := r.MarkFeedbackRead(ctx, 9999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing id: %v", err)
	}

	list, err := r.ListFeedback(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %+v %v", list, err)
	}

	ok, err := r.DeleteFeedback(ctx, m.ID)
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
}
