package media

import "context"

// Fetcher finds decorative media for a round outcome
type Fetcher interface {
	// Fetch returns a media URL, or an empty URL when nothing was found
	Fetch(ctx context.Context, input *FetchInput) (*FetchOutput, error)
}

// FetchInput names the outcome to decorate: win, tie, success or failure
type FetchInput struct {
	Outcome string
}

// FetchOutput contains the media location
type FetchOutput struct {
	URL string
}
