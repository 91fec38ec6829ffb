package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/cloo-solutions/orderdesk/internal/bridge"
	"github.com/cloo-solutions/orderdesk/internal/domain"
)

// TokenPublisher accepts a token obtained by logging in.
type TokenPublisher interface {
	Publish(token string)
}

// CRMStore persists the CRM id between runs.
type CRMStore interface {
	LoadCRMID() (string, error)
	SaveCRMID(id string) error
}

// UserService tracks the signed-in user's profile and CRM id.
type UserService struct {
	api    API
	tokens TokenPublisher
	store  CRMStore

	mu      sync.Mutex
	info    map[string]any
	changed chan struct{}
	crmID   string
}

func NewUserService(api API, tokens TokenPublisher, store CRMStore) *UserService {
	return &UserService{
		api:     api,
		tokens:  tokens,
		store:   store,
		changed: make(chan struct{}),
	}
}

// Login exchanges credentials for a token, publishes it and keeps the
// returned user info.
func (s *UserService) Login(ctx context.Context, username, password string) error {
	path := fmt.Sprintf("user/token?username=%s&password=%s", url.QueryEscape(username), url.QueryEscape(password))

	var bundle domain.TokenBundle
	if err := s.api.GetNoAuth(ctx, path, &bundle); err != nil {
		return err
	}
	if bundle.Token == "" {
		return domain.ErrTokenUnavailable
	}

	s.setInfo(bundle.UserInfo)
	s.tokens.Publish(bundle.Token)
	return nil
}

// WatchInfo keeps the user info in step with user:info messages from the
// host until ctx is done.
func (s *UserService) WatchInfo(ctx context.Context, b *bridge.Bridge) {
	infos := b.Receive(ctx, bridge.KindUserInfo)
	go func() {
		for data := range infos {
			var info map[string]any
			if err := json.Unmarshal(data, &info); err != nil {
				log.Printf("user: ignoring malformed user:info payload: %v", err)
				continue
			}
			s.setInfo(info)
		}
	}()
}

func (s *UserService) setInfo(info map[string]any) {
	s.mu.Lock()
	s.info = info
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()
}

// Info returns the current user info, or nil before any is known.
func (s *UserService) Info() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// WaitForInfo returns the user info, waiting for it if none is known yet.
func (s *UserService) WaitForInfo(ctx context.Context) (map[string]any, error) {
	for {
		s.mu.Lock()
		if len(s.info) > 0 {
			info := s.info
			s.mu.Unlock()
			return info, nil
		}
		changed := s.changed
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-changed:
		}
	}
}

// Prop returns one field of the user info.
func (s *UserService) Prop(name string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.info == nil {
		return nil
	}
	return s.info[name]
}

// SetCRMID stores a CRM id and reports it to the API.
func (s *UserService) SetCRMID(ctx context.Context, id string) error {
	if !domain.ValidCRMID(id) {
		log.Printf("user: invalid CRM ID %q", id)
		return domain.ErrInvalidCRMID
	}

	s.mu.Lock()
	s.crmID = id
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.SaveCRMID(id); err != nil {
			log.Printf("user: failed to persist CRM ID: %v", err)
		}
	}
	return s.api.Get(ctx, "startup/save_crm/"+url.PathEscape(id), nil)
}

// CRMID returns the CRM id set in this process, falling back to the stored one.
func (s *UserService) CRMID() string {
	s.mu.Lock()
	id := s.crmID
	s.mu.Unlock()
	if id != "" || s.store == nil {
		return id
	}

	stored, err := s.store.LoadCRMID()
	if err != nil {
		log.Printf("user: failed to load CRM ID: %v", err)
		return ""
	}
	return stored
}

// FileCRMStore keeps the CRM id in a small JSON file.
type FileCRMStore struct {
	path string
}

func NewFileCRMStore(path string) *FileCRMStore {
	return &FileCRMStore{path: path}
}

type crmFile struct {
	CRMID string `json:"crm_id"`
}

func (f *FileCRMStore) LoadCRMID() (string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var c crmFile
	if err := json.Unmarshal(data, &c); err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", f.path, err)
	}
	return c.CRMID, nil
}

func (f *FileCRMStore) SaveCRMID(id string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(crmFile{CRMID: id}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o600)
}
