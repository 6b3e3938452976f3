package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
)

// Snapshot computes a stable hash of the build-affecting options. Formats and
// apt packages are order-insensitive. SourceFile and BasePath are excluded so
// moving a checkout does not change the snapshot.
func (s *Specification) Snapshot() string {
	if s == nil {
		return ""
	}
	m := s.AsMap()
	m["formats"] = sortedCopy(s.Formats)
	if s.Build != nil {
		build := s.Build.asMap()
		build["apt_packages"] = sortedCopy(s.Build.Packages())
		m["build"] = build
	}
	// json.Marshal sorts map keys, which keeps the encoding canonical.
	data, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func sortedCopy(in []string) []string {
	out := append([]string{}, in...)
	slices.Sort(out)
	return out
}
