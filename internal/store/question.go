package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pavelanni/quizexam/internal/model"
)

const questionColumns = `id, quiz_bank_id, title, content, type, options, answer, analysis, difficulty, created_at, updated_at`

func scanQuestion(row interface{ Scan(...any) error }) (model.Question, error) {
	var (
		q       model.Question
		options string
		answer  string
	)
	err := row.Scan(&q.ID, &q.QuizBankID, &q.Title, &q.Content, &q.Type, &options, &answer,
		&q.Analysis, &q.Difficulty, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return q, err
	}
	if options != "" && options != "{}" {
		if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
			return q, fmt.Errorf("decode options of question %d: %w", q.ID, err)
		}
	}
	if err := json.Unmarshal([]byte(answer), &q.Answer); err != nil {
		return q, fmt.Errorf("decode answer of question %d: %w", q.ID, err)
	}
	return q, nil
}

func encodeQuestion(options map[string]string, answer model.AnswerKey) (string, string, error) {
	opts := "{}"
	if len(options) > 0 {
		b, err := json.Marshal(options)
		if err != nil {
			return "", "", fmt.Errorf("encode options: %w", err)
		}
		opts = string(b)
	}
	ans, err := json.Marshal(answer)
	if err != nil {
		return "", "", fmt.Errorf("encode answer: %w", err)
	}
	return opts, string(ans), nil
}

// CreateQuestion stores a question. The bank must exist.
func (s *Store) CreateQuestion(in model.QuestionCreate) (model.Question, error) {
	if _, err := s.GetBank(in.QuizBankID); err != nil {
		return model.Question{}, err
	}
	opts, ans, err := encodeQuestion(in.Options, in.Answer)
	if err != nil {
		return model.Question{}, err
	}
	now := time.Now().UTC()
	res, err := s.db.Exec(
		`INSERT INTO quiz_questions (quiz_bank_id, title, content, type, options, answer, analysis, difficulty, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.QuizBankID, in.Title, in.Content, in.Type, opts, ans, in.Analysis, in.Difficulty, now, now,
	)
	if err != nil {
		return model.Question{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Question{}, err
	}
	return s.GetQuestion(id)
}

// GetQuestion returns a question by ID, or sql.ErrNoRows.
func (s *Store) GetQuestion(id int64) (model.Question, error) {
	return scanQuestion(s.db.QueryRow(`SELECT `+questionColumns+` FROM quiz_questions WHERE id = ?`, id))
}

// UpdateQuestion replaces every editable field of a question.
func (s *Store) UpdateQuestion(id int64, in model.QuestionUpdate) (model.Question, error) {
	opts, ans, err := encodeQuestion(in.Options, in.Answer)
	if err != nil {
		return model.Question{}, err
	}
	res, err := s.db.Exec(
		`UPDATE quiz_questions
		 SET title = ?, content = ?, type = ?, options = ?, answer = ?, analysis = ?, difficulty = ?, updated_at = ?
		 WHERE id = ?`,
		in.Title, in.Content, in.Type, opts, ans, in.Analysis, in.Difficulty, time.Now().UTC(), id,
	)
	if err != nil {
		return model.Question{}, err
	}
	if err := requireRow(res); err != nil {
		return model.Question{}, err
	}
	return s.GetQuestion(id)
}

// DeleteQuestion removes a question.
func (s *Store) DeleteQuestion(id int64) error {
	res, err := s.db.Exec(`DELETE FROM quiz_questions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// QuestionsForBank returns a bank's questions in insertion order.
func (s *Store) QuestionsForBank(bankID int64) ([]model.Question, error) {
	return s.queryQuestions(`SELECT `+questionColumns+` FROM quiz_questions WHERE quiz_bank_id = ? ORDER BY id`, bankID)
}

// SearchQuestions returns questions matching the given filters.
// Zero-valued filters are ignored.
func (s *Store) SearchQuestions(search model.QuestionSearch) ([]model.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM quiz_questions WHERE 1=1`
	var args []any
	if search.QuizBankID > 0 {
		query += ` AND quiz_bank_id = ?`
		args = append(args, search.QuizBankID)
	}
	if search.Title != "" {
		query += ` AND title LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(search.Title)+"%")
	}
	if search.Type != "" {
		query += ` AND type = ?`
		args = append(args, search.Type)
	}
	query += ` ORDER BY id`
	return s.queryQuestions(query, args...)
}

func (s *Store) queryQuestions(query string, args ...any) ([]model.Question, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	questions := []model.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// QuestionCount returns the number of questions in a bank.
func (s *Store) QuestionCount(bankID int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM quiz_questions WHERE quiz_bank_id = ?`, bankID).Scan(&count)
	return count, err
}

// InsertQuestions stores a batch of imported questions in one transaction.
func (s *Store) InsertQuestions(bankID int64, questions []model.QuestionImport) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM quiz_banks WHERE id = ?`, bankID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return sql.ErrNoRows
	}

	now := time.Now().UTC()
	for i, qi := range questions {
		opts, ans, err := encodeQuestion(qi.Options, qi.Answer)
		if err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
		_, err = tx.Exec(
			`INSERT INTO quiz_questions (quiz_bank_id, title, content, type, options, answer, analysis, difficulty, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			bankID, qi.Title, qi.Content, qi.Type, opts, ans, qi.Analysis, qi.Difficulty, now, now,
		)
		if err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return tx.Commit()
}
