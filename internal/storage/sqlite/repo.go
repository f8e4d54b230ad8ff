// Package sqlite is the record store: the relational copy of the
// catalog's core fields, plus the user and feedback tables. Slice and
// map fields are stored as JSON text columns, the schema the service
// inherited.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"sabor_menu/internal/domain"
)

type Repo struct {
	db   *sql.DB
	path string
}

func New(db *sql.DB, path string) *Repo { return &Repo{db: db, path: path} }

// Init creates the schema. Safe to run on every startup.
func (r *Repo) Init(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schemaSQL)
	return r.wrap(err)
}

// wrap converts the driver's read-only failure into the distinguished
// error so write paths can tell the operator which file to relocate.
// Detection is by error text, the only signal the driver gives.
func (r *Repo) wrap(err error) error {
	if err == nil {
		return nil
	}
	low := strings.ToLower(err.Error())
	if strings.Contains(low, "readonly database") || strings.Contains(low, "read-only") {
		return fmt.Errorf("%w (path %s): %s", domain.ErrReadOnly, r.path, err)
	}
	return err
}

// ---- dishes ----

func encJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func (r *Repo) UpsertDish(ctx context.Context, d domain.Dish) error {
	_, err := r.db.ExecContext(ctx, upsertDishSQL,
		strings.TrimSpace(d.ID),
		d.Menu,
		d.Section,
		d.Title,
		d.Description,
		d.Contains,
		encJSON(d.Allergens),
		encJSON(d.Tags),
		encJSON(d.Pairings),
		encJSON(d.Image),
		encJSON(d.I18n),
	)
	return r.wrap(err)
}

func scanDish(sc interface{ Scan(...any) error }) (domain.Dish, error) {
	var d domain.Dish
	var menu, section, title, desc, contains sql.NullString
	var allergens, tags, pairings, image, i18n sql.NullString
	if err := sc.Scan(&d.ID, &menu, &section, &title, &desc, &contains,
		&allergens, &tags, &pairings, &image, &i18n); err != nil {
		return domain.Dish{}, err
	}
	d.Menu = menu.String
	d.Section = section.String
	d.Title = title.String
	d.Description = desc.String
	d.Contains = contains.String
	if allergens.Valid {
		_ = json.Unmarshal([]byte(allergens.String), &d.Allergens)
	}
	if tags.Valid {
		_ = json.Unmarshal([]byte(tags.String), &d.Tags)
	}
	if pairings.Valid {
		_ = json.Unmarshal([]byte(pairings.String), &d.Pairings)
	}
	if image.Valid {
		_ = json.Unmarshal([]byte(image.String), &d.Image)
	}
	if i18n.Valid {
		_ = json.Unmarshal([]byte(i18n.String), &d.I18n)
	}
	return d, nil
}

func (r *Repo) ListDishes(ctx context.Context) ([]domain.Dish, error) {
	rows, err := r.db.QueryContext(ctx, selectDishSQL+" ORDER BY rowid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Dish
	for rows.Next() {
		d, err := scanDish(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repo) GetDish(ctx context.Context, id string) (domain.Dish, error) {
	row := r.db.QueryRowContext(ctx, selectDishSQL+" WHERE id = ?", strings.TrimSpace(id))
	d, err := scanDish(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Dish{}, domain.ErrNotFound
	}
	return d, err
}

func (r *Repo) DeleteDish(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM dishes WHERE id = ?`, strings.TrimSpace(id))
	if err != nil {
		return false, r.wrap(err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) DeleteAllDishes(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM dishes`)
	return r.wrap(err)
}

func (r *Repo) CountDishes(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dishes`).Scan(&n)
	return n, err
}

func (r *Repo) Menus(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, `SELECT DISTINCT menu FROM dishes`)
}

func (r *Repo) Sections(ctx context.Context, menu string) ([]string, error) {
	if menu != "" {
		return r.distinct(ctx, `SELECT DISTINCT section FROM dishes WHERE menu = ?`, menu)
	}
	return r.distinct(ctx, `SELECT DISTINCT section FROM dishes`)
}

// distinct returns non-empty values, sorted.
func (r *Repo) distinct(ctx context.Context, q string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		if v.Valid && v.String != "" {
			out = append(out, v.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// ---- users ----

func scanUser(sc interface{ Scan(...any) error }) (domain.User, error) {
	var u domain.User
	var created, updated sql.NullTime
	if err := sc.Scan(&u.ID, &u.Name, &u.Username, &u.PasswordHash, &u.Role, &created, &updated); err != nil {
		return domain.User{}, err
	}
	u.CreatedAt = created.Time
	u.UpdatedAt = updated.Time
	return u, nil
}

func (r *Repo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, selectUserSQL+" ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *Repo) GetUser(ctx context.Context, id int64) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, selectUserSQL+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	return u, err
}

func (r *Repo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, selectUserSQL+" WHERE username = ?", username))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	return u, err
}

func (r *Repo) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	res, err := r.db.ExecContext(ctx, insertUserSQL, u.Name, u.Username, u.PasswordHash, u.Role)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return domain.User{}, domain.ErrConflict
		}
		return domain.User{}, r.wrap(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.User{}, err
	}
	u.ID = id
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	return u, nil
}

func (r *Repo) UpdateUser(ctx context.Context, u domain.User) error {
	res, err := r.db.ExecContext(ctx, updateUserSQL, u.Name, u.Username, u.PasswordHash, u.Role, u.ID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return domain.ErrConflict
		}
		return r.wrap(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) DeleteUser(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return false, r.wrap(err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// ---- feedback ----

func scanFeedback(sc interface{ Scan(...any) error }) (domain.FeedbackMessage, error) {
	var m domain.FeedbackMessage
	var name, typ sql.NullString
	var created sql.NullTime
	if err := sc.Scan(&m.ID, &name, &typ, &m.Message, &m.Read, &created); err != nil {
		return domain.FeedbackMessage{}, err
	}
	m.Name = name.String
	m.Type = typ.String
	m.CreatedAt = created.Time
	return m, nil
}

func (r *Repo) ListFeedback(ctx context.Context) ([]domain.FeedbackMessage, error) {
	rows, err := r.db.QueryContext(ctx, selectFeedbackSQL+" ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.FeedbackMessage
	for rows.Next() {
		m, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repo) CreateFeedback(ctx context.Context, m domain.FeedbackMessage) (domain.FeedbackMessage, error) {
	res, err := r.db.ExecContext(ctx, insertFeedbackSQL, m.Name, m.Type, m.Message)
	if err != nil {
		return domain.FeedbackMessage{}, r.wrap(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.FeedbackMessage{}, err
	}
	m.ID = id
	m.Read = false
	m.CreatedAt = time.Now().UTC()
	return m, nil
}

func (r *Repo) MarkFeedbackRead(ctx context.Context, id int64) (domain.FeedbackMessage, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE feedback_messages SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return domain.FeedbackMessage{}, r.wrap(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.FeedbackMessage{}, domain.ErrNotFound
	}
	m, err := scanFeedback(r.db.QueryRowContext(ctx, selectFeedbackSQL+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.FeedbackMessage{}, domain.ErrNotFound
	}
	return m, err
}

func (r *Repo) DeleteFeedback(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM feedback_messages WHERE id = ?`, id)
	if err != nil {
		return false, r.wrap(err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
