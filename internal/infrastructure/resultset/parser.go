package resultset

import (
	"encoding/json"

	"github.com/felixgeelhaar/resultcov/internal/domain"
)

// ParseError describes a cache that could not be decoded.
type ParseError struct {
	Cause error
}

func (e *ParseError) Error() string {
	return "loading " + Filename + ": " + e.Cause.Error()
}

func (e *ParseError) Unwrap() error { return e.Cause }

// Parse decodes cache content. Absent content yields an empty resultset.
// Malformed content also yields an empty resultset, together with a
// *ParseError; the returned resultset is never nil.
func Parse(data []byte) (domain.Resultset, error) {
	if len(data) == 0 {
		return domain.Resultset{}, nil
	}

	var rs domain.Resultset
	if err := json.Unmarshal(data, &rs); err != nil {
		return domain.Resultset{}, &ParseError{Cause: err}
	}
	if rs == nil {
		rs = domain.Resultset{}
	}
	return rs, nil
}
