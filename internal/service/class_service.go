package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/examforge/examforge-backend/internal/model"
	"github.com/examforge/examforge-backend/internal/repository"
)

var (
	ErrCorrectAnswerNotInOptions = errors.New("correct answer must be one of the options")
	ErrDuplicateOptions          = errors.New("options must be unique")
	ErrImportHeader              = errors.New("question import needs question, options and correctAnswer columns")
	ErrImportEmpty               = errors.New("no valid questions to import")
)

// ImportRowError describes a CSV row that was skipped.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportReport summarizes a question import.
type ImportReport struct {
	Imported int              `json:"imported"`
	Skipped  []ImportRowError `json:"skipped,omitempty"`
}

// ClassService handles class administration: definitions, question banks,
// rosters and attempts.
type ClassService struct {
	classRepo    *repository.ClassRepository
	questionRepo *repository.QuestionRepository
	studentRepo  *repository.StudentRepository
	attemptRepo  *repository.AttemptRepository
}

// NewClassService creates a new ClassService.
func NewClassService(
	classRepo *repository.ClassRepository,
	questionRepo *repository.QuestionRepository,
	studentRepo *repository.StudentRepository,
	attemptRepo *repository.AttemptRepository,
) *ClassService {
	return &ClassService{
		classRepo:    classRepo,
		questionRepo: questionRepo,
		studentRepo:  studentRepo,
		attemptRepo:  attemptRepo,
	}
}

// GetByID retrieves a class by its ID.
func (s *ClassService) GetByID(ctx context.Context, id string) (*model.ExamDefinition, error) {
	def, err := s.classRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrClassNotFound
	}
	return def, err
}

// List retrieves all classes.
func (s *ClassService) List(ctx context.Context) ([]model.ExamDefinition, error) {
	return s.classRepo.List(ctx)
}

// Create creates a new class.
func (s *ClassService) Create(ctx context.Context, req *model.CreateClassRequest) (*model.ExamDefinition, error) {
	def := &model.ExamDefinition{
		Name:            strings.TrimSpace(req.Name),
		Description:     strings.TrimSpace(req.Description),
		CreatorID:       req.CreatorID,
		AccessKey:       req.AccessKey,
		DurationMinutes: req.DurationMinutes,
		QuestionCount:   req.QuestionCount,
		ExpiryDate:      req.ExpiryDate,
	}
	if err := s.classRepo.Create(ctx, def); err != nil {
		return nil, fmt.Errorf("create class: %w", err)
	}
	return def, nil
}

// AddQuestion appends one question to a class bank, stored with JSON options.
func (s *ClassService) AddQuestion(ctx context.Context, classID string, req *model.AddQuestionRequest) (*model.Question, error) {
	if _, err := s.GetByID(ctx, classID); err != nil {
		return nil, err
	}
	q, err := buildQuestion(classID, req.Question, model.NewJSONOptions(trimAll(req.Options)...), req.CorrectAnswer)
	if err != nil {
		return nil, err
	}
	if err := s.questionRepo.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

// ListQuestions returns the bank of a class, answers included.
func (s *ClassService) ListQuestions(ctx context.Context, classID string) ([]model.Question, error) {
	if _, err := s.GetByID(ctx, classID); err != nil {
		return nil, err
	}
	return s.questionRepo.ListByClass(ctx, classID)
}

// ImportQuestions reads questions from CSV with the columns question,
// options and correctAnswer (correct_answer is accepted too). Options are
// either pipe-delimited or a JSON option array and keep the encoding they
// were given in. Invalid rows are skipped and reported; valid rows are
// appended in one write.
func (s *ClassService) ImportQuestions(ctx context.Context, classID string, r io.Reader) (*ImportReport, error) {
	if _, err := s.GetByID(ctx, classID); err != nil {
		return nil, err
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrImportHeader
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := importColumns(header)
	if cols.question < 0 || cols.options < 0 || cols.correct < 0 {
		return nil, ErrImportHeader
	}

	report := &ImportReport{}
	var questions []model.Question
	for row := 2; ; row++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			report.Skipped = append(report.Skipped, ImportRowError{Row: row, Message: err.Error()})
			continue
		}

		text, rawOpts, correct := cols.get(fields)
		if text == "" && rawOpts == "" && correct == "" {
			continue
		}
		opts, err := model.ParseOptionSet(rawOpts)
		if err != nil {
			report.Skipped = append(report.Skipped, ImportRowError{Row: row, Message: err.Error()})
			continue
		}
		q, err := buildQuestion(classID, text, opts, correct)
		if err != nil {
			report.Skipped = append(report.Skipped, ImportRowError{Row: row, Message: err.Error()})
			continue
		}
		questions = append(questions, *q)
	}

	if len(questions) == 0 {
		return report, ErrImportEmpty
	}
	if err := s.questionRepo.AppendMany(ctx, classID, questions); err != nil {
		return nil, fmt.Errorf("append questions: %w", err)
	}
	report.Imported = len(questions)
	return report, nil
}

// Roster returns the students registered on a class.
func (s *ClassService) Roster(ctx context.Context, classID string) ([]model.RosterEntry, error) {
	if _, err := s.GetByID(ctx, classID); err != nil {
		return nil, err
	}
	return s.studentRepo.ListByClass(ctx, classID)
}

// Attempts returns the attempt log of a class.
func (s *ClassService) Attempts(ctx context.Context, classID string) ([]model.Attempt, error) {
	if _, err := s.GetByID(ctx, classID); err != nil {
		return nil, err
	}
	return s.attemptRepo.ListByClass(ctx, classID)
}

func buildQuestion(classID, text string, opts model.OptionSet, correct string) (*model.Question, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("question text is required")
	}
	texts := opts.Texts()
	if len(texts) < 2 {
		return nil, errors.New("at least two options are required")
	}
	seen := make(map[string]bool, len(texts))
	for _, t := range texts {
		if t == "" {
			return nil, errors.New("options must not be empty")
		}
		if seen[t] {
			return nil, ErrDuplicateOptions
		}
		seen[t] = true
	}
	if !slices.Contains(texts, correct) {
		return nil, ErrCorrectAnswerNotInOptions
	}
	return &model.Question{
		ClassID:       classID,
		Text:          text,
		Options:       opts,
		CorrectAnswer: correct,
	}, nil
}

type importColumnIndex struct {
	question, options, correct int
}

func importColumns(header []string) importColumnIndex {
	idx := importColumnIndex{question: -1, options: -1, correct: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "question":
			idx.question = i
		case "options":
			idx.options = i
		case "correctanswer", "correct_answer":
			idx.correct = i
		}
	}
	return idx
}

func (c importColumnIndex) get(fields []string) (text, options, correct string) {
	at := func(i int) string {
		if i < len(fields) {
			return strings.TrimSpace(fields[i])
		}
		return ""
	}
	return at(c.question), at(c.options), at(c.correct)
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}
