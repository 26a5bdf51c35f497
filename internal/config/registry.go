package config

import (
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

const registryFileName = ".everdex.conf"

// IndexEntry is one previously-used index directory, recorded so a later
// invocation from an unrelated working directory can still find it
// without a .pyeverything marker nearby. A flat list of index
// directories, since everdex has no project-name concept of its own.
type IndexEntry struct {
	IndexDir string `yaml:"index_dir"`
}

type registryFile struct {
	Indexes []IndexEntry `yaml:"indexes"`
}

// RegistryPath returns ~/.everdex.conf.
func RegistryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, registryFileName)
}

// RememberIndexDir records indexDir in the registry if it isn't already
// present.
func RememberIndexDir(indexDir string) error {
	regPath := RegistryPath()
	if regPath == "" {
		return nil
	}
	entries := KnownIndexDirs()
	for _, e := range entries {
		if e == indexDir {
			return nil
		}
	}
	entries = append(entries, indexDir)

	reg := registryFile{}
	for _, e := range entries {
		reg.Indexes = append(reg.Indexes, IndexEntry{IndexDir: e})
	}
	data, err := yaml.Marshal(&reg)
	if err != nil {
		return err
	}
	return os.WriteFile(regPath, data, 0644)
}

// KnownIndexDirs returns every index directory recorded in the registry.
func KnownIndexDirs() []string {
	regPath := RegistryPath()
	if regPath == "" {
		return nil
	}
	data, err := os.ReadFile(regPath)
	if err != nil {
		return nil
	}
	var reg registryFile
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil
	}
	out := make([]string, 0, len(reg.Indexes))
	for _, e := range reg.Indexes {
		out = append(out, e.IndexDir)
	}
	return out
}
