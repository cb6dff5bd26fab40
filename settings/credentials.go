// Package settings stores lehrer user settings: the API keys of translation
// providers that need one (deepl, openai).
//
// Keys are stored in the XDG data directory:
//
//	$XDG_DATA_HOME/lehrer/auth.json  (default: ~/.local/share/lehrer/auth.json)
//
// The file is a JSON object keyed by provider ID. File permissions are 0600
// (owner read/write only).
//
// Lookup order for API keys (see ResolveAPIKey):
//  1. --api-key flag (highest priority)
//  2. LEHRER_API_KEY environment variable
//  3. This credential store
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const (
	dataDirName = "lehrer"
	fileName    = "auth.json"

	// EnvAPIKey overrides the stored key for the active provider.
	EnvAPIKey = "LEHRER_API_KEY"
)

// Info is the entry stored per provider in auth.json.
type Info struct {
	// Key is the API key.
	Key string `json:"key"`
	// BaseURL is an optional endpoint override (OpenAI-compatible servers).
	BaseURL string `json:"baseUrl,omitempty"`
}

// Store holds all provider credentials, keyed by provider ID.
type Store map[string]*Info

// ---------------------------------------------------------------------------
// File path
// ---------------------------------------------------------------------------

// dataDir returns the XDG data directory for lehrer.
// Respects $XDG_DATA_HOME (falls back to ~/.local/share).
func dataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

// FilePath returns the auth.json file path for display purposes.
func FilePath() string {
	dir, err := dataDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, fileName)
}

// ---------------------------------------------------------------------------
// Load / Save
// ---------------------------------------------------------------------------

// Load reads the credential store from disk.
// Returns an empty store if the file doesn't exist or is invalid.
func Load() Store {
	path := FilePath()
	if path == "" {
		return make(Store)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return make(Store)
	}

	var store Store
	if err := json.Unmarshal(data, &store); err != nil || store == nil {
		return make(Store)
	}
	return store
}

// Save writes the credential store to disk with 0600 permissions.
func Save(store Store) error {
	path := FilePath()
	if path == "" {
		return fmt.Errorf("cannot determine data directory")
	}

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing auth file: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Get / Set / Remove
// ---------------------------------------------------------------------------

// Get returns the entry for a provider, or nil if not found.
func Get(providerID string) *Info {
	return Load()[providerID]
}

// SetAPIKey stores an API key (and optional base URL) for a provider.
func SetAPIKey(providerID, key, baseURL string) error {
	store := Load()
	store[providerID] = &Info{Key: key, BaseURL: baseURL}
	return Save(store)
}

// Remove deletes credentials for a provider.
func Remove(providerID string) error {
	store := Load()
	if _, ok := store[providerID]; !ok {
		return nil
	}
	delete(store, providerID)
	return Save(store)
}

// Providers returns the provider IDs with stored credentials, sorted.
func Providers() []string {
	store := Load()
	ids := make([]string, 0, len(store))
	for id := range store {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ResolveAPIKey applies the lookup order: flag, environment, store.
func ResolveAPIKey(flagValue, providerID string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(EnvAPIKey); env != "" {
		return env
	}
	if info := Get(providerID); info != nil {
		return info.Key
	}
	return ""
}

// MaskKey returns a masked version of a key for display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
