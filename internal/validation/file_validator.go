package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultMaxFileSize caps the size of price files read by the CLI
const DefaultMaxFileSize int64 = 64 << 20

// File validation errors
var (
	ErrFileNotFound         = errors.New("file does not exist")
	ErrNotRegularFile       = errors.New("not a regular file")
	ErrFileTooLarge         = errors.New("file too large")
	ErrUnsupportedType      = errors.New("unsupported file type")
	ErrDirectoryNotWritable = errors.New("directory not writable")
)

// FileValidator checks price files before they are parsed and export targets
// before they are written
type FileValidator struct {
	logger  *slog.Logger
	maxSize int64
}

// NewFileValidator creates a new file validator. maxSize <= 0 selects
// DefaultMaxFileSize.
func NewFileValidator(logger *slog.Logger, maxSize int64) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	return &FileValidator{
		logger:  logger,
		maxSize: maxSize,
	}
}

// ValidateFile checks that path is an existing, readable regular file within
// the size limit
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		v.logger.Error("File does not exist", slog.String("file", path))
		return fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		v.logger.Error("Path is not a regular file", slog.String("path", path))
		return fmt.Errorf("%w: %s", ErrNotRegularFile, path)
	}
	if info.Size() > v.maxSize {
		v.logger.Error("File exceeds size limit",
			slog.String("file", path),
			slog.Int64("size", info.Size()),
			slog.Int64("limit", v.maxSize))
		return fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, path, info.Size(), v.maxSize)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateCSVFile is ValidateFile plus a .csv extension check
func (v *FileValidator) ValidateCSVFile(path string) error {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".csv" {
		return fmt.Errorf("%w: %s is not a CSV file (extension %q)", ErrUnsupportedType, path, ext)
	}
	return v.ValidateFile(path)
}

// ValidateOutputFile checks the extension of an export target against
// allowed (".csv", ".xlsx", ...) and makes sure its directory can be written.
// It returns the extension without the dot.
func (v *FileValidator) ValidateOutputFile(path string, allowed ...string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !slices.Contains(allowed, ext) {
		return "", fmt.Errorf("%w %q: use %s", ErrUnsupportedType, ext, strings.Join(allowed, " or "))
	}
	if err := v.ValidateOutputDirectory(filepath.Dir(path)); err != nil {
		return "", err
	}
	return strings.TrimPrefix(ext, "."), nil
}

// ValidateOutputDirectory ensures dir exists or can be created, and is writable
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %s: %v", ErrDirectoryNotWritable, dir, err)
	}

	probe, err := os.CreateTemp(dir, ".write_test_*")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %s: %v", ErrDirectoryNotWritable, dir, err)
	}
	probe.Close()
	os.Remove(probe.Name())
	return nil
}
