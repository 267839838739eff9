package envelope

import "ethernity.dev/core/errs"

// FormatVersion is the only manifest format this port understands.
const FormatVersion = 5

// ManifestFile describes one packaged file's place in the concatenated
// payload.
type ManifestFile struct {
	Path   string
	Size   uint64
	SHA256 [32]byte
	Mtime  *int64 // nil when the source has no mtime
}

// Manifest is the ordered file list plus the bookkeeping (signing seed,
// directory-prefix table) carried alongside it. SigningSeed is nil iff the
// backup is sealed, or iff the signing seed was sharded instead of
// embedded (spec §3).
type Manifest struct {
	FormatVersion uint64
	CreatedAt     float64
	Sealed        bool
	SigningSeed   []byte // nil or exactly 32 bytes
	Files         []ManifestFile
}

// PayloadPart is one input to BuildManifestAndPayload: a relative path,
// its bytes, and an optional mtime.
type PayloadPart struct {
	Path  string
	Data  []byte
	Mtime *int64
}

func validatePath(path string) error {
	if path == "" {
		return errs.New(errs.InvalidInput, "envelope: path cannot be empty")
	}
	if path[0] == '/' {
		return errs.New(errs.InvalidInput, "envelope: path must be relative")
	}
	for _, seg := range splitPath(path) {
		if seg == ".." {
			return errs.New(errs.InvalidInput, "envelope: path cannot contain ..")
		}
	}
	return nil
}

func splitPath(path string) []string {
	var segs []string
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '/' {
			segs = append(segs, path[start:i])
			start = i + 1
		}
	}
	return segs
}
