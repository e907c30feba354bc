package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelpulse/internal/shared/testutil"
)

func newValidator(t *testing.T, maxSize int64) *FileValidator {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return NewFileValidator(logger, maxSize)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestFileValidator_ValidateFile(t *testing.T) {
	v := newValidator(t, 16)

	tests := []struct {
		name    string
		path    func(t *testing.T) string
		wantErr error
	}{
		{
			name: "readable file",
			path: func(t *testing.T) string { return writeFile(t, "prices.csv", "product,price\n") },
		},
		{
			name:    "missing file",
			path:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.csv") },
			wantErr: ErrFileNotFound,
		},
		{
			name:    "directory",
			path:    func(t *testing.T) string { return t.TempDir() },
			wantErr: ErrNotRegularFile,
		},
		{
			name:    "over the size limit",
			path:    func(t *testing.T) string { return writeFile(t, "big.csv", "product,distributor,price\n") },
			wantErr: ErrFileTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateFile(tt.path(t))
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFileValidator_ValidateCSVFile(t *testing.T) {
	v := newValidator(t, 0)

	assert.NoError(t, v.ValidateCSVFile(writeFile(t, "PRICES.CSV", "a,b\n")))

	err := v.ValidateCSVFile(writeFile(t, "prices.xlsx", "a,b\n"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	err = v.ValidateCSVFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestFileValidator_ValidateOutputFile(t *testing.T) {
	v := newValidator(t, 0)
	dir := filepath.Join(t.TempDir(), "exports", "2025")

	format, err := v.ValidateOutputFile(filepath.Join(dir, "comparison.XLSX"), ".csv", ".xlsx")
	require.NoError(t, err)
	assert.Equal(t, "xlsx", format)
	assert.DirExists(t, dir)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "write probe is removed")

	_, err = v.ValidateOutputFile(filepath.Join(dir, "comparison.pdf"), ".csv", ".xlsx")
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.ErrorContains(t, err, ".csv or .xlsx")
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	v := newValidator(t, 0)

	blocker := writeFile(t, "not-a-dir", "x")
	err := v.ValidateOutputDirectory(filepath.Join(blocker, "sub"))
	assert.ErrorIs(t, err, ErrDirectoryNotWritable)
}

func TestNewFileValidator_Defaults(t *testing.T) {
	v := NewFileValidator(nil, -1)
	assert.Equal(t, DefaultMaxFileSize, v.maxSize)
	assert.NotNil(t, v.logger)
}
