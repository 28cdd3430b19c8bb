package questionbank

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/mind-engage/assessment-engine/internal/session"
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
)

var ErrUnknownFormat = errors.New("unsupported question file format")

// FormatFromName picks the format from a file name extension.
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(name))
}

// Column headers expected in spreadsheet imports.
var columns = []string{"id", "section", "question", "option_a", "option_b", "option_c", "option_d", "correct_option"}

// ImportResult summarises one import run. Row errors do not abort the run.
type ImportResult struct {
	Processed int      `json:"processed"`
	Created   int      `json:"created"`
	Updated   int      `json:"updated"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors"`
}

// Importer loads question files into a Repository.
type Importer struct {
	repo  *Repository
	Sheet string // xlsx sheet; empty means the first sheet
}

func NewImporter(repo *Repository) *Importer { return &Importer{repo: repo} }

func (im *Importer) ImportFile(ctx context.Context, path string) (*ImportResult, error) {
	format, err := FormatFromName(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open question file: %w", err)
	}
	defer f.Close()
	return im.Import(ctx, f, format)
}

func (im *Importer) Import(ctx context.Context, r io.Reader, format Format) (*ImportResult, error) {
	qs, res, err := Parse(r, format, im.Sheet)
	if err != nil {
		return nil, err
	}
	if len(qs) == 0 {
		return res, nil
	}
	created, updated, err := im.repo.Upsert(ctx, qs)
	if err != nil {
		return nil, fmt.Errorf("store questions: %w", err)
	}
	res.Created, res.Updated = created, updated
	return res, nil
}

// Parse decodes questions from r. Invalid rows are reported in the result
// and skipped; the returned questions are all valid with unique ids.
func Parse(r io.Reader, format Format, sheet string) ([]session.Question, *ImportResult, error) {
	var (
		rows [][]string
		err  error
	)
	switch format {
	case FormatXLSX:
		rows, err = readXLSX(r, sheet)
	case FormatCSV:
		rows, err = readCSV(r)
	case FormatYAML:
		return parseYAML(r)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, nil, err
	}
	return parseRows(rows)
}

func readXLSX(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading CSV: %w", err)
	}
	return rows, nil
}

func parseRows(rows [][]string) ([]session.Question, *ImportResult, error) {
	res := &ImportResult{Errors: []string{}}
	if len(rows) == 0 {
		return nil, res, errors.New("file is empty")
	}
	idx := map[string]int{}
	for i, h := range rows[0] {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range columns {
		if _, ok := idx[c]; !ok {
			return nil, nil, fmt.Errorf("missing column %q", c)
		}
	}
	cell := func(row []string, name string) string {
		if i := idx[name]; i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	var out []session.Question
	seen := map[string]bool{}
	for n, row := range rows[1:] {
		line := n + 2
		if blank(row) {
			continue
		}
		res.Processed++
		q := build(cell(row, "id"), cell(row, "section"), cell(row, "question"),
			[4]string{cell(row, "option_a"), cell(row, "option_b"), cell(row, "option_c"), cell(row, "option_d")},
			cell(row, "correct_option"))
		if err := accept(q, seen); err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: %v", line, err))
			continue
		}
		out = append(out, q)
	}
	return out, res, nil
}

type yamlFile struct {
	Questions []yamlQuestion `yaml:"questions"`
}

type yamlQuestion struct {
	ID      string `yaml:"id"`
	Section string `yaml:"section"`
	Text    string `yaml:"question"`
	OptionA string `yaml:"option_a"`
	OptionB string `yaml:"option_b"`
	OptionC string `yaml:"option_c"`
	OptionD string `yaml:"option_d"`
	Correct string `yaml:"correct_option"`
}

func parseYAML(r io.Reader) ([]session.Question, *ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	var doc yamlFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("parse yaml: %w", err)
	}
	res := &ImportResult{Errors: []string{}}
	var out []session.Question
	seen := map[string]bool{}
	for i, y := range doc.Questions {
		res.Processed++
		q := build(y.ID, y.Section, y.Text, [4]string{y.OptionA, y.OptionB, y.OptionC, y.OptionD}, y.Correct)
		if err := accept(q, seen); err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("Question %d: %v", i+1, err))
			continue
		}
		out = append(out, q)
	}
	return out, res, nil
}

func build(id, section, text string, opts [4]string, correct string) session.Question {
	q := session.Question{
		ID:      strings.TrimSpace(id),
		Section: NormalizeSection(section),
		Prompt:  strings.TrimSpace(text),
		Correct: session.Option(strings.ToUpper(strings.TrimSpace(correct))),
	}
	for i, o := range session.Options {
		q.Choices = append(q.Choices, session.Choice{Label: o, Text: strings.TrimSpace(opts[i])})
	}
	return q
}

func accept(q session.Question, seen map[string]bool) error {
	if err := Validate(q); err != nil {
		return err
	}
	if seen[q.ID] {
		return fmt.Errorf("duplicate id %s", q.ID)
	}
	seen[q.ID] = true
	return nil
}

// NormalizeSection accepts either the stored key or the display name,
// so "Product Knowledge" and "product_knowledge" are equivalent.
func NormalizeSection(s string) session.Section {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return session.Section(s)
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
