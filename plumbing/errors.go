package plumbing

import "errors"

// Sentinel errors shared by every backend. Lower-level packages return
// these wrapped with context (fmt.Errorf("...: %w", err)); callers use
// errors.Is against the sentinel regardless of which backend raised it.
var (
	// ErrNotFound means no object matches the requested id or prefix.
	ErrNotFound = errors.New("plumbing: object not found")
	// ErrAmbiguous means a hex prefix matched more than one object id.
	ErrAmbiguous = errors.New("plumbing: ambiguous object id prefix")
	// ErrCorruptCompression means a zlib stream was truncated or invalid.
	ErrCorruptCompression = errors.New("plumbing: corrupt compressed stream")
	// ErrMalformedHeader means a loose object header or packed-object TLV
	// header did not conform to its expected shape.
	ErrMalformedHeader = errors.New("plumbing: malformed object header")
	// ErrParse means an object body did not match its declared shape.
	ErrParse = errors.New("plumbing: object parse error")
	// ErrUnsupportedFormat means a pack index version, or a packed-object
	// type, that this store does not implement.
	ErrUnsupportedFormat = errors.New("plumbing: unsupported format")
	// ErrDeltaMismatch means a delta's base-size or result-size contract
	// was violated during reconstruction.
	ErrDeltaMismatch = errors.New("plumbing: delta size mismatch")
)
