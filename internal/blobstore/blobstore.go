// Package blobstore implements the key-value blob interface of
// SPEC_FULL.md §4.1: save/read/list/exists/delete/ensure-dir/archive,
// scoped to {gateway}/ prefixes, with a path-safety contract enforced
// before any filesystem call is made.
package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"reconciliation-engine/pkg/logger"
	"reconciliation-engine/pkg/rerrors"
)

var pathComponentPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// supportedExtensions are the only file extensions List returns.
var supportedExtensions = map[string]bool{
	".xlsx": true,
	".xls":  true,
	".csv":  true,
}

// Store is the abstract blob interface the core depends on. Backends are
// interchangeable; the core never reaches past this contract.
type Store interface {
	Save(ctx context.Context, gateway, filename string, data []byte) (path string, err error)
	Read(ctx context.Context, gateway, filename string) ([]byte, error)
	List(ctx context.Context, gateway string) ([]string, error)
	Exists(ctx context.Context, gateway, filename string) (bool, error)
	Delete(ctx context.Context, gateway, filename string) (bool, error)
	EnsureGatewayDir(ctx context.Context, gateway string) error
	Archive(ctx context.Context, gateway, filename string, data []byte)
}

// validateComponent enforces the path-safety contract: every path
// component must match the safety regex and must not contain "..", "/",
// or "\".
func validateComponent(component string) error {
	if component == "" {
		return rerrors.InvalidPath("", component, "component is empty")
	}
	if strings.Contains(component, "..") || strings.ContainsAny(component, `/\`) {
		return rerrors.InvalidPath("", component, "contains '..', '/', or '\\'")
	}
	if !pathComponentPattern.MatchString(component) {
		return rerrors.InvalidPath("", component, "does not match ^[A-Za-z0-9][A-Za-z0-9._-]*$")
	}
	return nil
}

// FilesystemStore is the local-filesystem blob backend. All paths are
// resolved relative to, and verified to remain inside, root.
type FilesystemStore struct {
	root   string
	logger logger.Logger
}

// NewFilesystemStore creates a filesystem-backed Store rooted at root. The
// root directory is created if it does not already exist.
func NewFilesystemStore(root string, log logger.Logger) (*FilesystemStore, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, rerrors.Wrap(err, rerrors.KindInvalidPath, "resolving blob store root")
	}
	if err := os.MkdirAll(absRoot, 0o755); err != nil {
		return nil, rerrors.Wrap(err, rerrors.KindDbOperationError, "creating blob store root")
	}
	return &FilesystemStore{root: absRoot, logger: log.WithComponent("blobstore")}, nil
}

// resolve validates gateway and filename, then returns the absolute path,
// verifying it remains inside the configured root.
func (s *FilesystemStore) resolve(gateway, filename string) (string, error) {
	if err := validateComponent(gateway); err != nil {
		return "", err
	}
	if err := validateComponent(filename); err != nil {
		return "", err
	}
	path := filepath.Join(s.root, gateway, filename)
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", rerrors.Wrap(err, rerrors.KindInvalidPath, "resolving blob path")
	}
	if !strings.HasPrefix(absPath, s.root+string(os.PathSeparator)) && absPath != s.root {
		return "", rerrors.InvalidPath(gateway, filename, "resolved path escapes the blob store root")
	}
	return absPath, nil
}

func (s *FilesystemStore) EnsureGatewayDir(ctx context.Context, gateway string) error {
	if err := validateComponent(gateway); err != nil {
		return err
	}
	dir := filepath.Join(s.root, gateway)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return rerrors.Wrap(err, rerrors.KindDbOperationError, "creating gateway directory").WithContext("gateway", gateway)
	}
	return nil
}

func (s *FilesystemStore) Save(ctx context.Context, gateway, filename string, data []byte) (string, error) {
	path, err := s.resolve(gateway, filename)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", rerrors.Wrap(err, rerrors.KindDbOperationError, "creating gateway directory")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", rerrors.Wrap(err, rerrors.KindDbOperationError, "writing blob").WithContext("path", path)
	}
	return path, nil
}

func (s *FilesystemStore) Read(ctx context.Context, gateway, filename string) ([]byte, error) {
	path, err := s.resolve(gateway, filename)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, rerrors.NotFound("blob", gateway+"/"+filename)
		}
		return nil, rerrors.Wrap(err, rerrors.KindDbOperationError, "reading blob").WithContext("path", path)
	}
	return data, nil
}

func (s *FilesystemStore) List(ctx context.Context, gateway string) ([]string, error) {
	if err := validateComponent(gateway); err != nil {
		return nil, err
	}
	dir := filepath.Join(s.root, gateway)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, rerrors.Wrap(err, rerrors.KindDbOperationError, "listing gateway directory").WithContext("gateway", gateway)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if supportedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *FilesystemStore) Exists(ctx context.Context, gateway, filename string) (bool, error) {
	path, err := s.resolve(gateway, filename)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, rerrors.Wrap(err, rerrors.KindDbOperationError, "checking blob existence")
}

func (s *FilesystemStore) Delete(ctx context.Context, gateway, filename string) (bool, error) {
	path, err := s.resolve(gateway, filename)
	if err != nil {
		return false, err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, rerrors.Wrap(err, rerrors.KindDbOperationError, "deleting blob")
	}
	return true, nil
}

// Archive writes a timestamped immutable copy under
// {gateway}/archive/{timestamp}-{filename}. Best-effort: failures are
// logged, never returned or propagated, per SPEC_FULL.md §4.1.
func (s *FilesystemStore) Archive(ctx context.Context, gateway, filename string, data []byte) {
	if err := validateComponent(gateway); err != nil {
		s.logger.WithError(err).Warn("archive skipped: invalid gateway")
		return
	}
	if err := validateComponent(filename); err != nil {
		s.logger.WithError(err).Warn("archive skipped: invalid filename")
		return
	}
	stamped := time.Now().UTC().Format("20060102T150405Z") + "-" + filename
	dir := filepath.Join(s.root, gateway, "archive")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.logger.WithError(err).WithField("gateway", gateway).Warn("archive copy failed, continuing without it")
		return
	}
	if err := os.WriteFile(filepath.Join(dir, stamped), data, 0o644); err != nil {
		s.logger.WithError(err).WithField("gateway", gateway).WithField("filename", filename).
			Warn("archive copy failed, continuing without it")
	}
}
