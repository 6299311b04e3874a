package store

import (
	"context"
	"encoding/json"
	"os"
	"slices"

	"github.com/tidwall/jsonc"

	apperrors "github.com/allisson/restgate/internal/errors"
)

// Document is the on-disk shape of a whole store: collection name to records,
// the same layout json-server uses for db.json.
type Document map[string][]Record

// Collections returns the document's collection names, sorted.
func (d Document) Collections() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ParseDocument decodes a document. Comments and trailing commas are accepted.
func ParseDocument(data []byte) (Document, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid document: "+err.Error())
	}

	doc := make(Document, len(raw))
	for name, value := range raw {
		var records []Record
		if err := json.Unmarshal(value, &records); err != nil {
			return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "collection %q must be an array of objects", name)
		}
		doc[name] = records
	}
	return doc, nil
}

// LoadDocumentFile reads and parses a document from disk.
func LoadDocumentFile(path string) (Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator supplied seed path
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to read seed file")
	}
	return ParseDocument(data)
}

// Seed creates every collection in doc and fills the ones that are empty.
// Collections that already hold records are left untouched. It returns the
// number of records created.
func Seed(ctx context.Context, s Store, doc Document) (int, error) {
	created := 0

	for _, name := range doc.Collections() {
		if err := s.EnsureCollection(ctx, name); err != nil {
			return created, apperrors.Wrapf(err, "failed to create collection %q", name)
		}

		existing, err := s.List(ctx, name)
		if err != nil {
			return created, err
		}
		if len(existing) > 0 {
			continue
		}

		for _, record := range doc[name] {
			if _, err := s.Create(ctx, name, record); err != nil {
				if apperrors.Is(err, ErrRecordExists) {
					continue
				}
				return created, apperrors.Wrapf(err, "failed to seed collection %q", name)
			}
			created++
		}
	}

	return created, nil
}
