package domain

// Root identifies which filesystem tree an asset lives in.
type Root int

const (
	RootNone Root = iota
	RootBundled
	RootUser
)

func (r Root) String() string {
	switch r {
	case RootBundled:
		return "bundled"
	case RootUser:
		return "user"
	default:
		return "none"
	}
}

// ResolvedAsset pairs a root-relative path with its location on disk and
// its public URL. Built per request, never cached.
type ResolvedAsset struct {
	Root     Root
	Relative string // slash separated, relative to the root
	FilePath string // absolute filesystem path
	URL      string
}
