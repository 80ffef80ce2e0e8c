package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Schema directory layout:
//
//	<dir>/config.yml          project name, principals, errors
//	<dir>/services/*.yml      one service per document
const (
	ServicesDir = "services"
)

var configNames = []string{"config.yml", "config.yaml"}

// Load reads a schema directory, orders services by id and validates the
// result. Read and parse failures are SchemaIOError; rule violations are
// SchemaValidationError.
func Load(dir string) (*Schema, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, ioError("", "schema: input directory is empty", nil)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, ioError(dir, fmt.Sprintf("resolve path: %v", err), err)
	}

	cfgPath, err := findConfig(abs)
	if err != nil {
		return nil, err
	}
	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}

	paths, err := ServiceFiles(abs)
	if err != nil {
		return nil, err
	}
	s := &Schema{Config: *cfg}
	for _, p := range paths {
		svc, err := LoadService(p)
		if err != nil {
			return nil, err
		}
		s.Services = append(s.Services, *svc)
	}
	s.SortServices()

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func findConfig(dir string) (string, error) {
	for _, name := range configNames {
		p := filepath.Join(dir, name)
		if st, err := os.Stat(p); err == nil && st.Mode().IsRegular() {
			return p, nil
		}
	}
	return "", ioError(dir, fmt.Sprintf("schema: no %s found in %s", strings.Join(configNames, " or "), dir), nil)
}

// ServiceFiles lists the service documents under dir/services, sorted by path.
func ServiceFiles(dir string) ([]string, error) {
	svcDir := filepath.Join(dir, ServicesDir)
	entries, err := os.ReadDir(svcDir)
	if err != nil {
		return nil, ioError(svcDir, fmt.Sprintf("read services directory %s: %v", svcDir, err), err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !IsSchemaDocument(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(svcDir, e.Name()))
	}
	return paths, nil
}

// IsSchemaDocument reports whether a file name looks like a schema document.
func IsSchemaDocument(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	return ext == ".yml" || ext == ".yaml"
}

// LoadConfig reads and decodes the global configuration document.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ioError(path, fmt.Sprintf("read file %s: %v", path, err), err)
	}
	return ParseConfig(data, path)
}

// LoadService reads and decodes one service document.
func LoadService(path string) (*Service, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ioError(path, fmt.Sprintf("read file %s: %v", path, err), err)
	}
	return ParseService(data, path)
}

// ParseConfig decodes a configuration document. location is only used in
// error reports.
func ParseConfig(data []byte, location string) (*Config, error) {
	var cfg Config
	if err := decodeStrict(data, &cfg); err != nil {
		return nil, ioError(location, fmt.Sprintf("parse config %s: %v", location, err), err)
	}
	return &cfg, nil
}

// ParseService decodes a service document.
func ParseService(data []byte, location string) (*Service, error) {
	var svc Service
	if err := decodeStrict(data, &svc); err != nil {
		return nil, ioError(location, fmt.Sprintf("parse service %s: %v", location, err), err)
	}
	return &svc, nil
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("document is empty")
		}
		return err
	}
	return nil
}
