package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func decodeSegments(t *testing.T, doc string) []any {
	t.Helper()
	var parsed struct {
		Segments []any `yaml:"segments"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(doc), &parsed))
	return parsed.Segments
}

func TestParseDescriptors_SequenceShorthand(t *testing.T) {
	raw := decodeSegments(t, `
segments:
  - [0x0, header, header]
  - [0x40, asm, entry, 0x80000400]
  - [0x1000]
`)

	descs, err := ParseDescriptors(raw)
	require.NoError(t, err)
	require.Len(t, descs, 3)

	assert.Equal(t, uint32(0x0), descs[0].Start)
	assert.Equal(t, "header", descs[0].Type)
	assert.Equal(t, "header", descs[0].Name)
	assert.False(t, descs[0].IsMarker())

	assert.Equal(t, "asm", descs[1].Type)
	assert.True(t, descs[1].HasVRAM)
	assert.Equal(t, uint32(0x80000400), descs[1].VRAM)

	assert.True(t, descs[2].IsMarker(), "one-element sequence is a boundary marker")
	assert.Equal(t, uint32(0x1000), descs[2].Start)
}

func TestParseDescriptors_MappingForm(t *testing.T) {
	raw := decodeSegments(t, `
segments:
  - start: 0x1000
    type: group
    name: main
    vram: 0x80000400
    subsegments:
      - [0x1000, asm, main_code, 0x80000400]
      - [0x1800, bin]
  - start: 0x2000
`)

	descs, err := ParseDescriptors(raw)
	require.NoError(t, err)
	require.Len(t, descs, 2)

	main := descs[0]
	assert.False(t, main.IsMarker())
	assert.Equal(t, "group", main.Type)
	require.Len(t, main.Subsegments, 2)
	assert.Equal(t, "main_code", main.Subsegments[0].Name)
	assert.Equal(t, "bin", main.Subsegments[1].Type)

	assert.True(t, descs[1].IsMarker(), "mapping with only start is a boundary marker")
}

func TestParseDescriptors_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"scalar entry", "segments:\n  - 12\n"},
		{"empty sequence", "segments:\n  - []\n"},
		{"bad start", "segments:\n  - [nope, bin]\n"},
		{"negative start", "segments:\n  - [-4, bin]\n"},
		{"bad type tag", "segments:\n  - [0x0, 7]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDescriptors(decodeSegments(t, tt.doc))
			require.Error(t, err)
			var buildErr *BuildError
			require.ErrorAs(t, err, &buildErr)
			assert.Equal(t, ErrCodeBadDescriptor, buildErr.Code)
		})
	}
}

func TestStatus_Transitions(t *testing.T) {
	assert.True(t, StatusPending.CanAdvance(StatusScanned))
	assert.True(t, StatusPending.CanAdvance(StatusSkippedScan))
	assert.True(t, StatusPending.CanAdvance(StatusSplit), "scan predicate may be false")
	assert.True(t, StatusScanned.CanAdvance(StatusSplit))
	assert.True(t, StatusSkippedScan.CanAdvance(StatusSkippedSplit))

	assert.False(t, StatusScanned.CanAdvance(StatusScanned))
	assert.False(t, StatusSplit.CanAdvance(StatusScanned))
	assert.False(t, StatusSplit.CanAdvance(StatusSplit))
	assert.False(t, StatusSkippedSplit.CanAdvance(StatusSplit))
}
