package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pavelanni/quizexam/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across queries.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS quiz_banks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS quiz_questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		quiz_bank_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		options TEXT NOT NULL DEFAULT '{}',
		answer TEXT NOT NULL,
		analysis TEXT NOT NULL DEFAULT '',
		difficulty TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (quiz_bank_id) REFERENCES quiz_banks(id)
	);

	CREATE INDEX IF NOT EXISTS idx_quiz_questions_bank ON quiz_questions(quiz_bank_id);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		imported_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

const bankColumns = `id, name, description, created_at, updated_at`

func scanBank(row interface{ Scan(...any) error }) (model.QuizBank, error) {
	var b model.QuizBank
	err := row.Scan(&b.ID, &b.Name, &b.Description, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// CreateBank stores a new bank and returns it with its ID.
func (s *Store) CreateBank(in model.QuizBankCreate) (model.QuizBank, error) {
	now := time.Now().UTC()
	res, err := s.db.Exec(
		`INSERT INTO quiz_banks (name, description, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		in.Name, in.Description, now, now,
	)
	if err != nil {
		return model.QuizBank{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.QuizBank{}, err
	}
	return s.GetBank(id)
}

// GetBank returns a bank by ID, or sql.ErrNoRows.
func (s *Store) GetBank(id int64) (model.QuizBank, error) {
	return scanBank(s.db.QueryRow(`SELECT `+bankColumns+` FROM quiz_banks WHERE id = ?`, id))
}

// UpdateBank replaces a bank's name and description.
func (s *Store) UpdateBank(id int64, in model.QuizBankUpdate) (model.QuizBank, error) {
	res, err := s.db.Exec(
		`UPDATE quiz_banks SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		in.Name, in.Description, time.Now().UTC(), id,
	)
	if err != nil {
		return model.QuizBank{}, err
	}
	if err := requireRow(res); err != nil {
		return model.QuizBank{}, err
	}
	return s.GetBank(id)
}

// DeleteBank removes a bank together with its questions.
func (s *Store) DeleteBank(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM quiz_questions WHERE quiz_bank_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM quiz_banks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

// ListBanks returns all banks ordered by ID.
func (s *Store) ListBanks() ([]model.QuizBank, error) {
	return s.queryBanks(`SELECT ` + bankColumns + ` FROM quiz_banks ORDER BY id`)
}

// SearchBanks returns banks whose name contains the keyword.
// An empty keyword matches every bank.
func (s *Store) SearchBanks(search model.QuizBankSearch) ([]model.QuizBank, error) {
	if search.Name == "" {
		return s.ListBanks()
	}
	return s.queryBanks(
		`SELECT `+bankColumns+` FROM quiz_banks WHERE name LIKE ? ESCAPE '\' ORDER BY id`,
		"%"+escapeLike(search.Name)+"%",
	)
}

// FindBankByName returns the first bank with exactly the given name, or sql.ErrNoRows.
func (s *Store) FindBankByName(name string) (model.QuizBank, error) {
	return scanBank(s.db.QueryRow(`SELECT `+bankColumns+` FROM quiz_banks WHERE name = ? ORDER BY id LIMIT 1`, name))
}

func (s *Store) queryBanks(query string, args ...any) ([]model.QuizBank, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	banks := []model.QuizBank{}
	for rows.Next() {
		b, err := scanBank(rows)
		if err != nil {
			return nil, err
		}
		banks = append(banks, b)
	}
	return banks, rows.Err()
}

// BankCount returns the number of banks in the database.
func (s *Store) BankCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM quiz_banks`).Scan(&count)
	return count, err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
