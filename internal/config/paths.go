package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the directories the service reads from and writes to.
// All of them hang off the executable directory so the binary behaves the
// same whatever the working directory is.
type Paths struct {
	ExecutableDir string
	DataDir       string
	ExportsDir    string
	LogsDir       string
}

// GetPaths returns the application paths relative to the executable location
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	return NewPaths(filepath.Dir(exe)), nil
}

// NewPaths lays out the standard directories under base
func NewPaths(base string) *Paths {
	return &Paths{
		ExecutableDir: base,
		DataDir:       filepath.Join(base, DefaultDataDir),
		ExportsDir:    filepath.Join(base, filepath.FromSlash(DefaultExportsDir)),
		LogsDir:       filepath.Join(base, DefaultLogsDir),
	}
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.ExportsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// Resolve returns path unchanged when absolute, otherwise joined to the
// executable directory
func (p *Paths) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.ExecutableDir, filepath.FromSlash(path))
}

// GetExportPath returns the path for an export file
func (p *Paths) GetExportPath(filename string) string {
	return filepath.Join(p.ExportsDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// ResolvePaths rewrites the relative file locations in c against paths
func (c *Config) ResolvePaths(paths *Paths) {
	if c.Source.Driver != DriverPostgres {
		c.Source.Path = paths.Resolve(c.Source.Path)
	}
	c.Logging.FilePath = paths.Resolve(c.Logging.FilePath)
	c.Export.Dir = paths.Resolve(c.Export.Dir)
}
