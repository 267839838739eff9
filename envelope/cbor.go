package envelope

import (
	"github.com/fxamacker/cbor/v2"

	"ethernity.dev/core/errs"
)

// Manifest is serialised as a fixed-shape CBOR array rather than a map so
// the wire size stays minimal and field order is unambiguous:
//
//	[ format_version, created_at, sealed, signing_seed_or_nil,
//	  prefixes, files ]
//
// each file as:
//
//	[ prefix_index, suffix, size, sha256, mtime_or_nil ]
func ToCBOR(m Manifest) ([]byte, error) {
	paths := make([]string, len(m.Files))
	for i, f := range m.Files {
		paths[i] = f.Path
	}
	prefixes := buildPrefixTable(paths)
	order := selectionOrder(prefixes)
	prefixIndex := make(map[string]int, len(prefixes))
	for i, p := range prefixes {
		prefixIndex[p] = i
	}

	fileRows := make([]interface{}, len(m.Files))
	for i, f := range m.Files {
		prefix := selectPrefix(f.Path, order)
		var mtime interface{}
		if f.Mtime != nil {
			mtime = *f.Mtime
		}
		fileRows[i] = []interface{}{
			uint64(prefixIndex[prefix]),
			stripPrefix(f.Path, prefix),
			f.Size,
			f.SHA256[:],
			mtime,
		}
	}

	prefixRows := make([]interface{}, len(prefixes))
	for i, p := range prefixes {
		prefixRows[i] = p
	}

	var signingSeed interface{}
	if m.SigningSeed != nil {
		signingSeed = m.SigningSeed
	}

	row := []interface{}{
		m.FormatVersion,
		m.CreatedAt,
		m.Sealed,
		signingSeed,
		prefixRows,
		fileRows,
	}
	return cbor.Marshal(row)
}

// FromCBOR is the inverse of ToCBOR. It rejects anything but FormatVersion
// and any structural mismatch (wrong arity, wrong element types).
func FromCBOR(data []byte) (Manifest, error) {
	var row []interface{}
	if err := cbor.Unmarshal(data, &row); err != nil {
		return Manifest{}, errs.Newf(errs.InvalidInput, "envelope: malformed manifest cbor: %v", err)
	}
	if len(row) != 6 {
		return Manifest{}, errs.Newf(errs.InvalidInput, "envelope: manifest row has %d fields, want 6", len(row))
	}

	formatVersion, err := asUint64(row[0])
	if err != nil {
		return Manifest{}, err
	}
	if formatVersion != FormatVersion {
		return Manifest{}, errs.Newf(errs.UnsupportedVersion, "envelope: manifest format %d unsupported", formatVersion)
	}

	createdAt, ok := row[1].(float64)
	if !ok {
		return Manifest{}, errs.New(errs.InvalidInput, "envelope: created_at not a float")
	}

	sealed, ok := row[2].(bool)
	if !ok {
		return Manifest{}, errs.New(errs.InvalidInput, "envelope: sealed not a bool")
	}

	var signingSeed []byte
	if row[3] != nil {
		signingSeed, ok = row[3].([]byte)
		if !ok {
			return Manifest{}, errs.New(errs.InvalidInput, "envelope: signing_seed not bytes")
		}
	}

	rawPrefixes, ok := row[4].([]interface{})
	if !ok {
		return Manifest{}, errs.New(errs.InvalidInput, "envelope: prefixes not an array")
	}
	prefixes := make([]string, len(rawPrefixes))
	for i, p := range rawPrefixes {
		s, ok := p.(string)
		if !ok {
			return Manifest{}, errs.New(errs.InvalidInput, "envelope: prefix not a string")
		}
		prefixes[i] = s
	}

	rawFiles, ok := row[5].([]interface{})
	if !ok {
		return Manifest{}, errs.New(errs.InvalidInput, "envelope: files not an array")
	}
	files := make([]ManifestFile, len(rawFiles))
	for i, rf := range rawFiles {
		cols, ok := rf.([]interface{})
		if !ok || len(cols) != 5 {
			return Manifest{}, errs.New(errs.InvalidInput, "envelope: malformed file row")
		}
		prefixIdx, err := asUint64(cols[0])
		if err != nil {
			return Manifest{}, err
		}
		if int(prefixIdx) >= len(prefixes) {
			return Manifest{}, errs.New(errs.InvalidInput, "envelope: prefix index out of range")
		}
		suffix, ok := cols[1].(string)
		if !ok {
			return Manifest{}, errs.New(errs.InvalidInput, "envelope: suffix not a string")
		}
		size, err := asUint64(cols[2])
		if err != nil {
			return Manifest{}, err
		}
		shaBytes, ok := cols[3].([]byte)
		if !ok || len(shaBytes) != 32 {
			return Manifest{}, errs.New(errs.InvalidInput, "envelope: sha256 malformed")
		}
		var sha [32]byte
		copy(sha[:], shaBytes)

		var mtime *int64
		if cols[4] != nil {
			v, err := asInt64(cols[4])
			if err != nil {
				return Manifest{}, err
			}
			mtime = &v
		}

		prefix := prefixes[prefixIdx]
		path := suffix
		if prefix != "" {
			path = prefix + "/" + suffix
		}
		files[i] = ManifestFile{Path: path, Size: size, SHA256: sha, Mtime: mtime}
	}

	return Manifest{
		FormatVersion: formatVersion,
		CreatedAt:     createdAt,
		Sealed:        sealed,
		SigningSeed:   signingSeed,
		Files:         files,
	}, nil
}

func asUint64(v interface{}) (uint64, error) {
	switch n := v.(type) {
	case uint64:
		return n, nil
	case int64:
		if n < 0 {
			return 0, errs.New(errs.InvalidInput, "envelope: expected non-negative integer")
		}
		return uint64(n), nil
	default:
		return 0, errs.New(errs.InvalidInput, "envelope: expected integer")
	}
}

func asInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	default:
		return 0, errs.New(errs.InvalidInput, "envelope: expected integer")
	}
}
