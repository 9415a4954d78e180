package database

import "context"

const seedSchema = `
CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  email TEXT UNIQUE,
  region TEXT,
  signup_date TEXT
);
CREATE TABLE IF NOT EXISTS products (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  price REAL
);
CREATE TABLE IF NOT EXISTS orders (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER,
  product_id INTEGER,
  quantity INTEGER,
  order_date TEXT,
  FOREIGN KEY(user_id) REFERENCES users(id),
  FOREIGN KEY(product_id) REFERENCES products(id)
);
`

// Seed creates the sample tables and repopulates them with deterministic
// rows. Existing sample rows are cleared first so reseeding is idempotent.
func (d *Database) Seed(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, seedSchema); err != nil {
		return err
	}

	for _, table := range []string{"orders", "products", "users"} {
		if _, err := d.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}

	users := []struct {
		name, email, region, signupDate string
	}{
		{"Alice", "alice@example.com", "NA", "2025-12-01"},
		{"Bob", "bob@example.com", "EU", "2025-12-15"},
		{"Carol", "carol@example.com", "APAC", "2026-01-10"},
	}
	for _, u := range users {
		_, err := d.db.ExecContext(ctx,
			"INSERT INTO users (name, email, region, signup_date) VALUES (?,?,?,?)",
			u.name, u.email, u.region, u.signupDate)
		if err != nil {
			return err
		}
	}

	products := []struct {
		name  string
		price float64
	}{
		{"Widget", 9.99},
		{"Gadget", 19.99},
		{"Doodad", 4.99},
	}
	for _, p := range products {
		_, err := d.db.ExecContext(ctx, "INSERT INTO products (name, price) VALUES (?, ?)", p.name, p.price)
		if err != nil {
			return err
		}
	}

	orders := [][4]any{
		{1, 1, 2, "2026-01-05"},
		{2, 2, 1, "2026-01-15"},
		{1, 3, 5, "2026-01-20"},
	}
	for _, o := range orders {
		_, err := d.db.ExecContext(ctx,
			"INSERT INTO orders (user_id, product_id, quantity, order_date) VALUES (?,?,?,?)",
			o[0], o[1], o[2], o[3])
		if err != nil {
			return err
		}
	}

	return nil
}
