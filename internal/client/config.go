package client

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/existflow/taskboard/internal/config"
)

// DefaultServerURL is used until the user points the client elsewhere
const DefaultServerURL = "http://localhost:3000"

// Settings is the client state persisted between runs
type Settings struct {
	ServerURL string `json:"server_url"`
	Token     string `json:"token,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	UserName  string `json:"user_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Context   string `json:"context,omitempty"` // default project for new tasks
}

// DefaultPath returns ~/.taskboard/client.json
func DefaultPath() string {
	return filepath.Join(config.Dir(), "client.json")
}

// LoadSettings reads the settings at path. A missing file yields defaults.
func LoadSettings(path string) (*Settings, error) {
	s := &Settings{ServerURL: DefaultServerURL}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read client settings")
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, errors.Wrapf(err, "invalid client settings in %s", path)
	}
	if s.ServerURL == "" {
		s.ServerURL = DefaultServerURL
	}
	return s, nil
}

// Save writes the settings to path, readable only by the user
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create settings directory")
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return errors.Wrap(os.WriteFile(path, data, 0o600), "failed to write client settings")
}
