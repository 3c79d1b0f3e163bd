package plumbing

// ObjectType is the kind of a git object. Integer values mirror the ones
// used on the wire (the packed-object header's 3-bit type field), so this
// type doubles as the packed-object type tag.
type ObjectType int8

const (
	// InvalidObject marks a zero-value or otherwise unrecognized type.
	InvalidObject ObjectType = 0
	// CommitObject is a commit.
	CommitObject ObjectType = 1
	// TreeObject is a tree.
	TreeObject ObjectType = 2
	// BlobObject is a blob.
	BlobObject ObjectType = 3
	// TagObject is an annotated tag.
	TagObject ObjectType = 4
	// OFSDeltaObject is a packed object deltified against a base found by a
	// negative offset from its own position in the pack.
	OFSDeltaObject ObjectType = 6
	// REFDeltaObject is a packed object deltified against a base identified
	// by ObjectID. Unsupported by this store; see plumbing/format/packfile.
	REFDeltaObject ObjectType = 7
)

// String renders the canonical lowercase type label, as used by the
// rendering component and by the loose-object header.
func (t ObjectType) String() string {
	switch t {
	case CommitObject:
		return "commit"
	case TreeObject:
		return "tree"
	case BlobObject:
		return "blob"
	case TagObject:
		return "tag"
	case OFSDeltaObject:
		return "ofs-delta"
	case REFDeltaObject:
		return "ref-delta"
	default:
		return "invalid"
	}
}

// IsDelta reports whether t names one of the two deltified packed-object
// representations.
func (t ObjectType) IsDelta() bool {
	return t == OFSDeltaObject || t == REFDeltaObject
}

// ParseObjectType maps a loose-object header type label to an ObjectType.
// Only the four storable kinds are accepted.
func ParseObjectType(s string) (ObjectType, bool) {
	switch s {
	case "commit":
		return CommitObject, true
	case "tree":
		return TreeObject, true
	case "blob":
		return BlobObject, true
	case "tag":
		return TagObject, true
	default:
		return InvalidObject, false
	}
}
