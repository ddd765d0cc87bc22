package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashContent_Deterministic(t *testing.T) {
	h1 := HashContent("Budget", "Q2 budget review")
	h2 := HashContent("Budget", "Q2 budget review")
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestHashContent_ChangesWithTitleOrContent(t *testing.T) {
	base := HashContent("Budget", "Q2 budget review")
	assert.NotEqual(t, base, HashContent("Budget!", "Q2 budget review"))
	assert.NotEqual(t, base, HashContent("Budget", "Q3 budget review"))
}

func TestHashContent_FieldBoundary(t *testing.T) {
	// "ab" + "c" must not collide with "a" + "bc".
	assert.NotEqual(t, HashContent("ab", "c"), HashContent("a", "bc"))
}

func TestIngestRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		record  IngestRecord
		wantErr bool
	}{
		{
			name:   "valid identity",
			record: IngestRecord{SourceSystem: "mail", SourceID: "msg-1"},
		},
		{
			name:    "missing source system",
			record:  IngestRecord{SourceID: "msg-1"},
			wantErr: true,
		},
		{
			name:    "missing source id",
			record:  IngestRecord{SourceSystem: "mail"},
			wantErr: true,
		},
		{
			name:    "whitespace identity",
			record:  IngestRecord{SourceSystem: "  ", SourceID: "msg-1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHealth_Degraded(t *testing.T) {
	assert.False(t, Health{State: StateHealthy}.Degraded())
	assert.True(t, Health{State: StateDegraded, Reason: "migration 2 failed"}.Degraded())
}
