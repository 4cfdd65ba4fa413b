package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/noah-isme/globalpath-api/internal/models"
)

//go:embed schema/catalog.schema.json
var catalogSchemaText string

// ErrInvalidDocument indicates a catalog document failed schema validation.
var ErrInvalidDocument = errors.New("invalid catalog document")

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

// Document is the JSON interchange format for bulk catalog loads.
type Document struct {
	Institutions []models.Institution `json:"institutions"`
	Programs     []models.Program     `json:"programs"`
	Postings     []models.Posting     `json:"postings"`
}

// ParseDocument validates raw against the catalog schema and decodes it.
func ParseDocument(raw []byte) (Document, error) {
	schema, err := catalogSchema()
	if err != nil {
		return Document{}, err
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var generic interface{}
	if err := decoder.Decode(&generic); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := schema.Validate(generic); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return doc, nil
}

func catalogSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = jsonschema.CompileString("catalog.schema.json", catalogSchemaText)
	})
	return compiledSchema, schemaErr
}

// FileSource serves collections from a JSON document on disk. The file is re-read on every fetch
// so edits are picked up by the next refresh.
type FileSource struct {
	path string
}

// NewFileSource constructs a source reading path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load reads and validates the whole document.
func (f *FileSource) Load(ctx context.Context) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return Document{}, fmt.Errorf("read catalog file: %w", err)
	}
	return ParseDocument(raw)
}

// FetchInstitutions implements Source.
func (f *FileSource) FetchInstitutions(ctx context.Context) ([]models.Institution, error) {
	doc, err := f.Load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Institutions, nil
}

// FetchPrograms implements Source.
func (f *FileSource) FetchPrograms(ctx context.Context) ([]models.Program, error) {
	doc, err := f.Load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Programs, nil
}

// FetchPostings implements Source.
func (f *FileSource) FetchPostings(ctx context.Context) ([]models.Posting, error) {
	doc, err := f.Load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Postings, nil
}
