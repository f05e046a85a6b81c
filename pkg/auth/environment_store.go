package auth

import (
	"os"
	"strings"
	"time"
)

// Environment variables checked for a token, in order
var tokenEnvVars = []string{"REELSCRAPER_ACTOR_TOKEN", "APIFY_TOKEN"}

// EnvironmentStore is a read-only CredentialStore over environment variables
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(cred *Credential) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment token under name, or "env" when name
// is empty
func (e *EnvironmentStore) Retrieve(name string) (*Credential, error) {
	token := envToken()
	if token == "" {
		return nil, ErrCredentialsNotFound
	}
	if name == "" {
		name = "env"
	}
	return &Credential{Name: name, Token: token, LastModified: time.Now()}, nil
}

// List returns the environment credential if one is set
func (e *EnvironmentStore) List() ([]*Credential, error) {
	cred, err := e.Retrieve("")
	if err != nil {
		return []*Credential{}, nil
	}
	return []*Credential{cred}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if an environment token is set
func (e *EnvironmentStore) Exists(name string) bool {
	return envToken() != ""
}

func envToken() string {
	for _, key := range tokenEnvVars {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}
