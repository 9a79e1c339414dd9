// Package importer loads question files into the bank store.
package importer

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pavelanni/quizexam/internal/model"
	"github.com/pavelanni/quizexam/internal/store"
)

// Result reports what happened to one file.
type Result struct {
	Path     string
	Bank     model.QuizBank
	Imported int
	Skipped  bool
}

// Importer writes parsed question files into a store.
type Importer struct {
	store  *store.Store
	logger *slog.Logger
}

// New creates an importer. A nil logger means slog.Default().
func New(s *store.Store, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{store: s, logger: logger}
}

// ImportFiles imports every path into a bank named after the file.
func (im *Importer) ImportFiles(paths []string) ([]Result, error) {
	results := make([]Result, 0, len(paths))
	for _, p := range paths {
		res, err := im.ImportFile(p, "")
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// ImportFile parses path by extension (.json or .xlsx) and stores its
// questions in the bank called bankName, creating it when missing. An empty
// bankName uses the file name without extension. A file already imported is
// skipped; so is a file that changed since, with a warning.
func (im *Importer) ImportFile(path, bankName string) (Result, error) {
	res := Result{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		return res, fmt.Errorf("read %s: %w", path, err)
	}

	hash := sha256sum(data)
	storedHash, err := im.store.GetImportedFileHash(path)
	if err != nil {
		return res, fmt.Errorf("check import status for %s: %w", path, err)
	}
	if storedHash == hash {
		im.logger.Info("questions file unchanged, skipping", "path", path)
		res.Skipped = true
		return res, nil
	}
	if storedHash != "" {
		im.logger.Warn("questions file changed since last import, skipping to avoid duplicating questions",
			"path", path)
		res.Skipped = true
		return res, nil
	}

	var questions []model.QuestionImport
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		questions, err = ParseJSON(data)
	case ".xlsx":
		questions, err = ParseXLSX(data)
	default:
		err = fmt.Errorf("unsupported file type %q", ext)
	}
	if err != nil {
		return res, fmt.Errorf("parse %s: %w", path, err)
	}

	if bankName == "" {
		bankName = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	bank, err := im.bank(bankName)
	if err != nil {
		return res, err
	}
	res.Bank = bank

	if err := im.store.InsertQuestions(bank.ID, questions); err != nil {
		return res, fmt.Errorf("insert questions from %s: %w", path, err)
	}
	if err := im.store.SetImportedFileHash(path, hash); err != nil {
		return res, fmt.Errorf("record import for %s: %w", path, err)
	}
	res.Imported = len(questions)
	im.logger.Info("imported questions", "path", path, "bank", bank.Name, "bank_id", bank.ID, "count", len(questions))
	return res, nil
}

func (im *Importer) bank(name string) (model.QuizBank, error) {
	b, err := im.store.FindBankByName(name)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.QuizBank{}, fmt.Errorf("find bank %q: %w", name, err)
	}
	b, err = im.store.CreateBank(model.QuizBankCreate{Name: name})
	if err != nil {
		return model.QuizBank{}, fmt.Errorf("create bank %q: %w", name, err)
	}
	im.logger.Info("created quiz bank", "id", b.ID, "name", name)
	return b, nil
}

// ParseJSON decodes an array of questions and checks each one. A
// multiple-choice answer given as one comma-separated string is split into
// its labels.
func ParseJSON(data []byte) ([]model.QuestionImport, error) {
	var questions []model.QuestionImport
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, err
	}
	for i := range questions {
		q := &questions[i]
		q.Answer = q.Answer.ForType(q.Type)
		if err := check(*q); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return questions, nil
}

func check(q model.QuestionImport) error {
	switch {
	case strings.TrimSpace(q.Title) == "":
		return errors.New("missing title")
	case !q.Type.Valid():
		return fmt.Errorf("unknown question type %q", q.Type)
	case q.Answer.IsEmpty():
		return errors.New("missing answer")
	}
	switch q.Difficulty {
	case "", model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
		return nil
	}
	return fmt.Errorf("unknown difficulty %q", q.Difficulty)
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
