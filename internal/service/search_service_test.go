package service

import (
	"encoding/json"
	"testing"

	"github.com/meilisearch/meilisearch-go"
	"github.com/stretchr/testify/assert"
)

func TestHitIDsExtractsStringIDs(t *testing.T) {
	hits := []meilisearch.Hit{
		{"id": json.RawMessage(`"0198f6a2-0000-7000-8000-000000000001"`), "title": json.RawMessage(`"Heat"`)},
		{"id": json.RawMessage(`"0198f6a2-0000-7000-8000-000000000002"`)},
	}

	assert.Equal(t, []string{
		"0198f6a2-0000-7000-8000-000000000001",
		"0198f6a2-0000-7000-8000-000000000002",
	}, hitIDs(hits))
}

func TestHitIDsSkipsMalformedHits(t *testing.T) {
	hits := []meilisearch.Hit{
		{"title": json.RawMessage(`"no id field"`)},
		{"id": json.RawMessage(`42`)},
		{"id": json.RawMessage(`{not json`)},
		{"id": json.RawMessage(`"kept"`)},
	}

	assert.Equal(t, []string{"kept"}, hitIDs(hits))
}

func TestHitIDsEmpty(t *testing.T) {
	assert.Empty(t, hitIDs(nil))
}
