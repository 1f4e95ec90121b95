package repos

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"agromart/internal/domain"
	applog "agromart/internal/log"
	"agromart/internal/seed"
)

// OpenDB opens the sqlite database, creates the schema and seeds demo data
// when the catalog is empty.
func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection: sqlite serializes writers anyway, and ":memory:"
	// databases are per connection.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Products (price kept as TEXT to stay exact)
CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL DEFAULT '',
  price TEXT NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  is_active INTEGER NOT NULL DEFAULT 1,
  vendor_id TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);
CREATE INDEX IF NOT EXISTS idx_products_vendor   ON products(vendor_id);

-- Users & Sessions
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('user','admin','vendor','distributor','employee')),
  employee_role TEXT NOT NULL DEFAULT '',
  permissions_json TEXT NOT NULL DEFAULT '[]',
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

-- subject is a user id, or a synthetic id for identities that have no row
CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,
  subject TEXT,
  created_at TEXT NOT NULL,
  last_seen TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_subject ON sessions(subject);

-- Carts (one per user)
CREATE TABLE IF NOT EXISTS carts(
  user_id TEXT PRIMARY KEY,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cart_items(
  user_id TEXT NOT NULL REFERENCES carts(user_id) ON DELETE CASCADE,
  product_id TEXT NOT NULL,
  qty INTEGER NOT NULL CHECK (qty >= 1),
  position INTEGER NOT NULL,
  PRIMARY KEY (user_id, product_id)
);

-- Orders
CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  total_amount TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  payment_status TEXT NOT NULL CHECK (payment_status IN ('pending','paid','failed')),
  order_status TEXT NOT NULL CHECK (order_status IN ('pending','processing','shipped','delivered','cancelled')),
  shipping_json TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_user       ON orders(user_id);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);

CREATE TABLE IF NOT EXISTS order_items(
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  line INTEGER NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  price TEXT NOT NULL,
  qty INTEGER NOT NULL,
  PRIMARY KEY (order_id, line)
);

-- Vendor / distributor applications
CREATE TABLE IF NOT EXISTS applications(
  id TEXT PRIMARY KEY,
  kind TEXT NOT NULL CHECK (kind IN ('vendor','distributor')),
  user_id TEXT NOT NULL REFERENCES users(id),
  business_name TEXT NOT NULL,
  phone TEXT NOT NULL,
  region TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL CHECK (status IN ('pending','approved','rejected')),
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_applications_user_kind ON applications(user_id, kind);

-- News
CREATE TABLE IF NOT EXISTS news_posts(
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  summary TEXT NOT NULL DEFAULT '',
  body TEXT NOT NULL DEFAULT '',
  published INTEGER NOT NULL DEFAULT 0,
  author_id TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_news_created_at ON news_posts(created_at);
`
	_, err := db.Exec(schema)
	return err
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM products`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	applog.L().Info("seed.demo", zap.String("store", "sqlite"))

	now := stamp(time.Now())
	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, p := range seed.Products() {
		tx.MustExec(`INSERT INTO products(id,name,description,category,price,stock,is_active,created_at,updated_at)
		  VALUES(?,?,?,?,?,?,?,?,?)`,
			p.ID, p.Name, p.Description, p.Category, p.Price.StringFixed(2), p.Stock, boolInt(p.IsActive), now, now)
	}
	for _, u := range seed.Users() {
		tx.MustExec(`INSERT INTO users(id,email,name,password_hash,role,employee_role,permissions_json,is_active,created_at,updated_at)
		  VALUES(?,?,?,?,?,?,?,1,?,?) ON CONFLICT DO NOTHING`,
			u.ID, u.Email, u.Name, u.Hash, u.Role, u.EmployeeRole, encodeStrings(u.Permissions), now, now)
	}
	for _, p := range seed.News() {
		tx.MustExec(`INSERT INTO news_posts(id,title,slug,summary,body,published,author_id,created_at,updated_at)
		  VALUES(?,?,?,?,?,?,?,?,?)`,
			p.ID, p.Title, p.Slug, p.Summary, p.Body, boolInt(p.Published), p.AuthorID, now, now)
	}

	return tx.Commit()
}

// DemoPassword is the password of every seeded account.
const DemoPassword = seed.Password

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
