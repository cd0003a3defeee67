package repos

import (
	"log"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// A single connection keeps :memory: databases coherent and serializes
	// writers, which is all sqlite supports anyway.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Seed demo data if DB is empty (users/categories/products)
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}

	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Users & Sessions
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('USER','VENDOR','ADMIN')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- same value as the 'sid' cookie
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

-- Categories
CREATE TABLE IF NOT EXISTS categories(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_name_nocase ON categories(LOWER(name));

-- Products (quantity is the live stock, decremented at checkout and
-- restored on cancellation)
CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE RESTRICT,
  owner_id TEXT REFERENCES users(id) ON DELETE SET NULL,
  title TEXT NOT NULL,
  description TEXT,
  price NUMERIC NOT NULL CHECK (price >= 0),
  quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
  image TEXT,
  active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category_id);
CREATE INDEX IF NOT EXISTS idx_products_owner    ON products(owner_id);
CREATE INDEX IF NOT EXISTS idx_products_title    ON products(LOWER(title));

-- Orders (never deleted; status transitions only)
CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  total NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending'
    CHECK (status IN ('pending','paid','shipped','cancelled')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_orders_user       ON orders(user_id);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);

-- Order items: no FK on product_id on purpose; products may be deleted
-- while their sold line items live on for audit and stock reconciliation.
CREATE TABLE IF NOT EXISTS order_items(
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  price NUMERIC NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);
`
	_, err := db.Exec(schema)
	return err
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM users`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo users/categories/products")

	type u struct {
		ID, Email, Name, Role, Hash string
	}
	mk := func(id, email, name, role, raw string) u {
		h, _ := bcrypt.GenerateFromPassword([]byte(raw), 12)
		return u{ID: id, Email: email, Name: name, Role: role, Hash: string(h)}
	}
	users := []u{
		mk("u-alice", "alice@mercadito.test", "Alice", "USER", "Passw0rd!"),
		mk("u-bruno", "bruno@mercadito.test", "Bruno", "USER", "Passw0rd!"),
		mk("u-vera", "vera@mercadito.test", "Vera", "VENDOR", "Passw0rd!"),
		mk("u-victor", "victor@mercadito.test", "Victor", "VENDOR", "Passw0rd!"),
		mk("u-admin", "admin@mercadito.test", "Admin", "ADMIN", "Passw0rd!"),
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,name,password_hash,role)
			VALUES(?,?,?,?,?)
		`, x.ID, x.Email, x.Name, x.Hash, x.Role); err != nil {
			return err
		}
	}

	tx.MustExec(`INSERT INTO categories(id,name) VALUES
	  ('ceramics','Handmade Ceramics'),
	  ('textiles','Woven Textiles'),
	  ('woodwork','Woodwork'),
	  ('pantry','Pantry & Preserves')`)

	tx.MustExec(`INSERT INTO products(id,category_id,owner_id,title,description,price,quantity,image) VALUES
	  ('mug-azul','ceramics','u-vera','Glazed Mug (Azul)','Hand-thrown stoneware mug, cobalt glaze.',18.50,12,'products/mug-azul/main.jpg'),
	  ('bowl-terra','ceramics','u-vera','Serving Bowl (Terracotta)','Large terracotta serving bowl.',42.00,4,'products/bowl-terra/main.jpg'),
	  ('rug-rayas','textiles','u-victor','Striped Wool Rug','Handwoven wool rug, natural dyes.',139.00,2,'products/rug-rayas/main.jpg'),
	  ('board-olivo','woodwork','u-victor','Olive Wood Board','Cutting board from reclaimed olive wood.',35.00,7,'products/board-olivo/main.jpg'),
	  ('miel-flor','pantry','u-vera','Wildflower Honey 500g','Raw wildflower honey, single apiary.',9.75,20,'products/miel-flor/main.jpg')`)

	return tx.Commit()
}
