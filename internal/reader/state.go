package reader

// State is the reader's lifecycle position.
type State int

const (
	Uninitialized State = iota
	MetadataRead
	Decoding
	Seeking
	Draining
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case MetadataRead:
		return "metadata read"
	case Decoding:
		return "decoding"
	case Seeking:
		return "seeking"
	case Draining:
		return "draining"
	case Closed:
		return "closed"
	}
	return "unknown"
}
