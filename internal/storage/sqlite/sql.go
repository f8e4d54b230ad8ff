package sqlite

const schemaSQL = `
CREATE TABLE IF NOT EXISTS dishes (
  id          TEXT PRIMARY KEY,
  menu        TEXT,
  section     TEXT,
  title       TEXT,
  description TEXT,
  contains    TEXT,
  allergens   TEXT,
  tags        TEXT,
  pairings    TEXT,
  image       TEXT,
  i18n        TEXT,
  created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
  updated_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS users (
  id            INTEGER PRIMARY KEY AUTOINCREMENT,
  name          TEXT NOT NULL,
  username      TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role          TEXT NOT NULL DEFAULT 'официант',
  created_at    TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
  updated_at    TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS feedback_messages (
  id         INTEGER PRIMARY KEY AUTOINCREMENT,
  name       TEXT,
  type       TEXT DEFAULT 'question',
  message    TEXT NOT NULL,
  read       INTEGER NOT NULL DEFAULT 0,
  created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const upsertDishSQL = `
INSERT INTO dishes
  (id, menu, section, title, description, contains, allergens, tags, pairings, image, i18n)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  menu        = excluded.menu,
  section     = excluded.section,
  title       = excluded.title,
  description = excluded.description,
  contains    = excluded.contains,
  allergens   = excluded.allergens,
  tags        = excluded.tags,
  pairings    = excluded.pairings,
  image       = excluded.image,
  i18n        = excluded.i18n,
  updated_at  = CURRENT_TIMESTAMP
`

const selectDishSQL = `
SELECT id, menu, section, title, description, contains, allergens, tags, pairings, image, i18n
FROM dishes
`

const insertUserSQL = `
INSERT INTO users (name, username, password_hash, role)
VALUES (?, ?, ?, ?)
`

const updateUserSQL = `
UPDATE users
SET name = ?, username = ?, password_hash = ?, role = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

const selectUserSQL = `
SELECT id, name, username, password_hash, role, created_at, updated_at
FROM users
`

const insertFeedbackSQL = `
INSERT INTO feedback_messages (name, type, message, read)
VALUES (?, ?, ?, 0)
`

const selectFeedbackSQL = `
SELECT id, name, type, message, read, created_at
FROM feedback_messages
`
