package codeset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncoqa/validata/internal/model"
)

func TestRegistryLookup(t *testing.T) {
	t.Parallel()

	reg, err := New("test-v1", map[model.Standard][]model.CodeSetEntry{
		model.StandardICD10: {
			{Code: "C15", Description: "Malignant neoplasm of esophagus", Status: model.CodeActive},
			{Code: "C97", Description: "Multiple sites", Status: model.CodeDeprecated},
		},
	})
	require.NoError(t, err)

	t.Run("active code found", func(t *testing.T) {
		t.Parallel()
		e, ok := reg.Lookup(model.StandardICD10, "C15")
		require.True(t, ok)
		assert.Equal(t, "Malignant neoplasm of esophagus", e.Description)
		assert.False(t, e.Deprecated())
	})

	t.Run("deprecated code is still valid", func(t *testing.T) {
		t.Parallel()
		e, ok := reg.Lookup(model.StandardICD10, "C97")
		require.True(t, ok)
		assert.True(t, e.Deprecated())
		assert.True(t, reg.IsValid(model.StandardICD10, "C97"))
	})

	t.Run("unknown code not found", func(t *testing.T) {
		t.Parallel()
		_, ok := reg.Lookup(model.StandardICD10, "Z99")
		assert.False(t, ok)
		assert.False(t, reg.IsValid(model.StandardICD10, "Z99"))
	})

	t.Run("unknown standard not found", func(t *testing.T) {
		t.Parallel()
		assert.False(t, reg.Has(model.StandardICDO))
		_, ok := reg.Lookup(model.StandardICDO, "8140/3")
		assert.False(t, ok)
	})

	t.Run("version exposed", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "test-v1", reg.Version())
	})
}

func TestRegistryDuplicateCode(t *testing.T) {
	t.Parallel()

	_, err := New("v1", map[model.Standard][]model.CodeSetEntry{
		model.StandardICD10: {
			{Code: "C15"},
			{Code: "C15"},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate code")
}

func TestLoadEmbedded(t *testing.T) {
	t.Parallel()

	reg, err := LoadEmbedded()
	require.NoError(t, err)

	assert.Equal(t, EmbeddedVersion, reg.Version())
	assert.Equal(t, []model.Standard{model.StandardICD10, model.StandardICDO}, reg.Standards())
	assert.True(t, reg.Count(model.StandardICD10) > 20)
	assert.True(t, reg.Count(model.StandardICDO) > 15)

	e, ok := reg.Lookup(model.StandardICD10, "C15")
	require.True(t, ok)
	assert.Contains(t, e.Description, "esophagus")

	e, ok = reg.Lookup(model.StandardICDO, "8140/3")
	require.True(t, ok)
	assert.Contains(t, e.Description, "Adenocarcinoma")

	// Embedded sets carry at least one deprecated code for warning checks.
	e, ok = reg.Lookup(model.StandardICD10, "C97")
	require.True(t, ok)
	assert.True(t, e.Deprecated())

	t.Run("entries sorted by code", func(t *testing.T) {
		t.Parallel()
		entries := reg.Entries(model.StandardICD10)
		for i := 1; i < len(entries); i++ {
			assert.True(t, entries[i-1].Code < entries[i].Code)
		}
	})
}

func TestLoadFromDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	icd10 := strings.Join([]string{
		"code,description,status",
		"C15,Esophagus,active",
		"C76.0,Head and neck,deprecated",
	}, "\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "icd10.csv"), []byte(icd10), 0o644))

	reg, err := Load(dir, "2025b")
	require.NoError(t, err)
	assert.Equal(t, "2025b", reg.Version())
	assert.True(t, reg.Has(model.StandardICD10))
	assert.False(t, reg.Has(model.StandardICDO))

	e, ok := reg.Lookup(model.StandardICD10, "C76.0")
	require.True(t, ok)
	assert.True(t, e.Deprecated())
}

func TestLoadRaggedRows(t *testing.T) {
	t.Parallel()

	// Code column last, so short rows omit it entirely.
	dir := t.TempDir()
	ragged := strings.Join([]string{
		"description,status,code",
		"Esophagus,active,C15",
		"Orphan description",
		"Prostate,active,C61",
	}, "\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "icd10.csv"), []byte(ragged), 0o644))

	reg, err := Load(dir, "v")
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Count(model.StandardICD10))
	assert.True(t, reg.IsValid(model.StandardICD10, "C15"))
	assert.True(t, reg.IsValid(model.StandardICD10, "C61"))
}

func TestLoadRejectsBadStatus(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bad := "code,description,status\nC15,Esophagus,retired\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "icd10.csv"), []byte(bad), 0o644))

	_, err := Load(dir, "v")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown status")
}
