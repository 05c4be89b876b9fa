package domain

// Kind tags a catalog entry as a movie or a series. It is fixed by the
// catalog section the entry was read from.
type Kind string

const (
	KindMovie  Kind = "movie"
	KindSeries Kind = "series"
)

func (k Kind) Valid() bool {
	return k == KindMovie || k == KindSeries
}
