package service

import (
	"fmt"
	"strings"

	"github.com/jmespath-community/go-jmespath"
)

// MetadataReader extracts the display name and role from identity metadata with
// JMESPath expressions, so provider-specific shapes (e.g. realm_access.roles[0])
// need no code changes.
type MetadataReader struct {
	nameExpr string
	roleExpr string
}

// NewMetadataReader validates both expressions.
func NewMetadataReader(nameExpr, roleExpr string) (*MetadataReader, error) {
	if _, err := jmespath.Compile(nameExpr); err != nil {
		return nil, fmt.Errorf("compile name expression %q: %w", nameExpr, err)
	}
	if _, err := jmespath.Compile(roleExpr); err != nil {
		return nil, fmt.Errorf("compile role expression %q: %w", roleExpr, err)
	}
	return &MetadataReader{nameExpr: nameExpr, roleExpr: roleExpr}, nil
}

// DefaultMetadataReader reads the top-level "name" and "role" keys.
func DefaultMetadataReader() *MetadataReader {
	return &MetadataReader{nameExpr: "name", roleExpr: "role"}
}

// Name returns the metadata name, or "".
func (m *MetadataReader) Name(md map[string]any) string { return search(m.nameExpr, md) }

// Role returns the raw metadata role, or "". It is not normalized.
func (m *MetadataReader) Role(md map[string]any) string { return search(m.roleExpr, md) }

// search evaluates expr and returns a trimmed string, taking the first string of a list.
func search(expr string, md map[string]any) string {
	if len(md) == 0 || expr == "" {
		return ""
	}
	v, err := jmespath.Search(expr, md)
	if err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}
