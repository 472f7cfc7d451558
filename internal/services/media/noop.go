package media

import "context"

// Noop never finds media. It is used when no API key is configured.
type Noop struct{}

// NewNoop creates a fetcher that always comes back empty
func NewNoop() *Noop {
	return &Noop{}
}

func (Noop) Fetch(ctx context.Context, input *FetchInput) (*FetchOutput, error) {
	return &FetchOutput{}, nil
}
