package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/examforge/examforge-backend/internal/model"
	"github.com/examforge/examforge-backend/internal/repository"
	"github.com/xuri/excelize/v2"
)

var ErrResultNotFound = errors.New("result not found")

var resultExportHeader = []string{
	"Result ID", "Name", "Email", "Matric Number", "Department",
	"Score", "Total Questions", "Percentage", "Grade", "Passed",
	"Duration Used (s)", "Integrity Warnings", "Submit Reason", "Submitted At",
}

// ResultService exposes recorded results to students and administrators.
type ResultService struct {
	resultRepo *repository.ResultRepository
	classRepo  *repository.ClassRepository
}

// NewResultService creates a new ResultService.
func NewResultService(resultRepo *repository.ResultRepository, classRepo *repository.ClassRepository) *ResultService {
	return &ResultService{resultRepo: resultRepo, classRepo: classRepo}
}

// GetByID returns a single result.
func (s *ResultService) GetByID(ctx context.Context, id string) (*model.ExamResult, error) {
	res, err := s.resultRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	return res, nil
}

// ListByClass returns the results of a class, in submission order.
func (s *ResultService) ListByClass(ctx context.Context, classID string) ([]model.ExamResult, error) {
	if _, err := s.classRepo.GetByID(ctx, classID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrClassNotFound
		}
		return nil, fmt.Errorf("get class: %w", err)
	}
	results, err := s.resultRepo.ListByClass(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return results, nil
}

// ExportCSV writes the results of a class as CSV.
func (s *ResultService) ExportCSV(ctx context.Context, classID string, w io.Writer) error {
	results, err := s.ListByClass(ctx, classID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(resultExportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range results {
		if err := cw.Write(exportRow(&results[i])); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportXLSX writes the results of a class as a spreadsheet.
func (s *ResultService) ExportXLSX(ctx context.Context, classID string, w io.Writer) error {
	results, err := s.ListByClass(ctx, classID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Results"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("create stream writer: %w", err)
	}

	header := make([]interface{}, len(resultExportHeader))
	for i, h := range resultExportHeader {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i := range results {
		r := &results[i]
		row := []interface{}{
			r.ID, r.Student.Name, r.Student.Email, r.Student.MatricNumber, r.Student.Department,
			r.Score, r.TotalQuestions, r.Percentage, r.Grade, yesNo(r.Passed),
			r.DurationUsedSeconds, r.IntegrityWarnings, string(r.SubmitReason),
			r.SubmittedAt.UTC().Format(time.RFC3339),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	return f.Write(w)
}

func exportRow(r *model.ExamResult) []string {
	return []string{
		r.ID, r.Student.Name, r.Student.Email, r.Student.MatricNumber, r.Student.Department,
		strconv.Itoa(r.Score), strconv.Itoa(r.TotalQuestions), strconv.Itoa(r.Percentage),
		r.Grade, yesNo(r.Passed),
		strconv.Itoa(r.DurationUsedSeconds), strconv.Itoa(r.IntegrityWarnings),
		string(r.SubmitReason), r.SubmittedAt.UTC().Format(time.RFC3339),
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
