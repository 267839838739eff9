package envelope

import (
	"crypto/sha256"
	"sort"
	"strings"

	"ethernity.dev/core/errs"
)

// BuildManifestAndPayload concatenates every part's bytes in order and
// builds the Manifest describing them. Duplicate relative paths are
// rejected. signingSeed is stored verbatim (nil or 32 bytes); callers
// decide whether it belongs in the manifest per spec §4.10 step 2.
func BuildManifestAndPayload(parts []PayloadPart, sealed bool, signingSeed []byte, createdAt float64) (Manifest, []byte, error) {
	if len(parts) == 0 {
		return Manifest{}, nil, errs.New(errs.InvalidInput, "envelope: at least one payload part is required")
	}
	seen := make(map[string]struct{}, len(parts))
	files := make([]ManifestFile, 0, len(parts))
	var payload []byte
	for _, part := range parts {
		if err := validatePath(part.Path); err != nil {
			return Manifest{}, nil, err
		}
		if _, dup := seen[part.Path]; dup {
			return Manifest{}, nil, errs.Newf(errs.DuplicateKey, "envelope: duplicate path %q", part.Path)
		}
		seen[part.Path] = struct{}{}
		sum := sha256.Sum256(part.Data)
		files = append(files, ManifestFile{
			Path:   part.Path,
			Size:   uint64(len(part.Data)),
			SHA256: sum,
			Mtime:  part.Mtime,
		})
		payload = append(payload, part.Data...)
	}
	return Manifest{
		FormatVersion: FormatVersion,
		CreatedAt:     createdAt,
		Sealed:        sealed,
		SigningSeed:   signingSeed,
		Files:         files,
	}, payload, nil
}

// buildPrefixTable returns the canonical prefix list: "" first, followed
// by every directory prefix used by >=2 paths, sorted by (length, prefix).
func buildPrefixTable(paths []string) []string {
	counts := make(map[string]int)
	for _, path := range paths {
		segs := splitPath(path)
		var prefix string
		for i := 0; i < len(segs)-1; i++ {
			if i == 0 {
				prefix = segs[0]
			} else {
				prefix = prefix + "/" + segs[i]
			}
			counts[prefix]++
		}
	}
	var shared []string
	for p, c := range counts {
		if c > 1 {
			shared = append(shared, p)
		}
	}
	sort.Slice(shared, func(i, j int) bool {
		if len(shared[i]) != len(shared[j]) {
			return len(shared[i]) < len(shared[j])
		}
		return shared[i] < shared[j]
	})
	return append([]string{""}, shared...)
}

// selectionOrder reorders prefixes[1:] by descending length, stably (ties
// keep their ascending-length-then-lexicographic order), the greedy
// longest-prefix-first order used to assign each path its prefix.
func selectionOrder(prefixes []string) []string {
	order := append([]string{}, prefixes[1:]...)
	sort.SliceStable(order, func(i, j int) bool {
		return len(order[i]) > len(order[j])
	})
	return order
}

func selectPrefix(path string, order []string) string {
	for _, prefix := range order {
		if strings.HasPrefix(path, prefix+"/") {
			return prefix
		}
	}
	return ""
}

func stripPrefix(path, prefix string) string {
	if prefix == "" {
		return path
	}
	return path[len(prefix)+1:]
}
