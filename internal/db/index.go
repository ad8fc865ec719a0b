package db

import (
	"errors"
	"fmt"
)

// StorageType defines the document storage backend for FT indexes.
type StorageType string

// StorageHash stores documents as Redis hashes.
const StorageHash StorageType = "HASH"

// DistanceMetric used by KNN queries over a vector field.
type DistanceMetric string

const (
	// DistanceL2 is Euclidean distance. Geo vectors are ranked by it.
	DistanceL2 DistanceMetric = "L2"
	// DistanceCosine is cosine distance.
	DistanceCosine DistanceMetric = "COSINE"
)

// IndexFieldType enumerates supported FT index field types.
type IndexFieldType int

// Field types; the vector type is always indexed FLAT since catalog
// location sets are small enough for exact search.
const (
	IndexFieldNumeric IndexFieldType = iota
	IndexFieldTag
	IndexFieldText
	IndexFieldVector
)

// IndexField describes a single field in an FT index schema.
type IndexField struct {
	Name  string
	Alias string // AS alias; queries address the field by it
	Type  IndexFieldType

	Sortable     bool   // NUMERIC, TAG and TEXT only
	TagSeparator string // TAG only

	VectorDim      int
	VectorDistance DistanceMetric
}

// key is the name queries use for the field.
func (f *IndexField) key() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// IndexDefinition is a complete FT index definition used by FT.CREATE.
type IndexDefinition struct {
	Name        string
	StorageType StorageType
	Prefixes    []string
	Fields      []IndexField
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return errors.New("index name contains invalid characters")
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]struct{}, len(idx.Fields))
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("field %d: name is required", i)
		}
		if _, dup := seen[f.key()]; dup {
			return fmt.Errorf("duplicate field name: %s", f.key())
		}
		seen[f.key()] = struct{}{}

		if f.Type == IndexFieldVector {
			if f.VectorDim <= 0 {
				return fmt.Errorf("field %s: vector field requires positive DIM", f.Name)
			}
			if f.Sortable {
				return fmt.Errorf("field %s: vector field cannot be sortable", f.Name)
			}
		}
	}
	return nil
}

// IsValidIdentifier reports whether s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == ':' || r == '-':
		default:
			return false
		}
	}
	return true
}
