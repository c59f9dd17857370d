package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Loader defines methods to load credentials and to load or persist the token cache.
type Loader interface {
	LoadCredentials() ([]byte, error)
	LoadToken() ([]byte, error)
	SaveToken(token []byte) error
}

// FileLoader implements Loader by reading from the filesystem.
type FileLoader struct {
	configDir string
}

// NewFileLoader initializes a FileLoader rooted at configDir.
func NewFileLoader(configDir string) *FileLoader {
	return &FileLoader{configDir: configDir}
}

// LoadCredentials reads the credentials.json file.
func (f *FileLoader) LoadCredentials() ([]byte, error) {
	credentialsPath := filepath.Join(f.configDir, "credentials.json")
	bytes, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile(%s): %w", credentialsPath, err)
	}
	return bytes, nil
}

// LoadToken reads the token.json file.
func (f *FileLoader) LoadToken() ([]byte, error) {
	tokenPath := filepath.Join(f.configDir, "token.json")
	bytes, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}

// SaveToken writes the token.json file through a temp file and a rename so an
// interrupted write never leaves a truncated token behind.
func (f *FileLoader) SaveToken(token []byte) error {
	if err := os.MkdirAll(f.configDir, 0o700); err != nil {
		return fmt.Errorf("unable to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(f.configDir, ".token-*.tmp")
	if err != nil {
		return fmt.Errorf("unable to create temp token file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(token); err != nil {
		tmp.Close()
		return fmt.Errorf("unable to write token: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("unable to sync token: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to close token file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("unable to chmod token file: %w", err)
	}

	tokenPath := filepath.Join(f.configDir, "token.json")
	if err := os.Rename(tmpName, tokenPath); err != nil {
		return fmt.Errorf("unable to save token: %w", err)
	}
	return nil
}
