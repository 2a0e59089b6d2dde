package oauth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"taskctl/pkg/logging"
	pkgoauth "taskctl/pkg/oauth"
)

// RegistryFileName is the name of the client registration file in the state directory.
const RegistryFileName = "clients.yaml"

// RegistryStore persists one client registration per domain in clients.yaml.
type RegistryStore struct {
	mu   sync.Mutex
	path string
}

// registryFile is the on-disk layout of clients.yaml.
type registryFile struct {
	Clients map[string]*pkgoauth.ClientRegistrationResponse `yaml:"clients"`
}

// NewRegistryStore returns a store persisting to stateDir/clients.yaml.
func NewRegistryStore(stateDir string) *RegistryStore {
	return &RegistryStore{path: filepath.Join(stateDir, RegistryFileName)}
}

// Path returns the registry file location.
func (s *RegistryStore) Path() string {
	return s.path
}

// Get returns the registration saved for domain, or nil.
func (s *RegistryStore) Get(domain string) *pkgoauth.ClientRegistrationResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg := s.loadLocked().Clients[pkgoauth.NormalizeDomain(domain)]
	if reg == nil || reg.ClientID == "" {
		return nil
	}
	copied := *reg
	return &copied
}

// Put saves the registration for domain, replacing any previous one.
func (s *RegistryStore) Put(domain string, reg *pkgoauth.ClientRegistrationResponse) error {
	if reg == nil || reg.ClientID == "" {
		return errors.New("registration must have a client_id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file := s.loadLocked()
	copied := *reg
	file.Clients[pkgoauth.NormalizeDomain(domain)] = &copied
	return s.saveLocked(file)
}

// Delete removes the registration for domain.
func (s *RegistryStore) Delete(domain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file := s.loadLocked()
	key := pkgoauth.NormalizeDomain(domain)
	if _, ok := file.Clients[key]; !ok {
		return nil
	}
	delete(file.Clients, key)
	return s.saveLocked(file)
}

// loadLocked reads the registry. A missing, unreadable or corrupt file is
// treated as empty.
func (s *RegistryStore) loadLocked() *registryFile {
	file := &registryFile{}

	// #nosec G304 -- path is derived from the configured state directory
	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		logging.WarnErr("Provisioner", err, "Ignoring unreadable client registry %s", s.path)
	default:
		if err := yaml.Unmarshal(data, file); err != nil {
			logging.WarnErr("Provisioner", err, "Ignoring corrupt client registry %s", s.path)
			file = &registryFile{}
		}
	}

	if file.Clients == nil {
		file.Clients = make(map[string]*pkgoauth.ClientRegistrationResponse)
	}
	return file
}

func (s *RegistryStore) saveLocked(file *registryFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to marshal client registry: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write client registry: %w", err)
	}
	return nil
}
