package server

import (
	"github.com/Digital-Shane/title-scout/internal/media"
	"github.com/Digital-Shane/title-scout/internal/probe"
	"github.com/Digital-Shane/title-scout/internal/resolve"
)

// CandidateView is the JSON form of a search candidate.
type CandidateView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	OriginalName string `json:"original_name,omitempty"`
	Year         int    `json:"year,omitempty"`
	Thumbnail    string `json:"thumbnail,omitempty"`
}

// ImageView is the JSON form of an image record.
type ImageView struct {
	ID          int    `json:"id,omitempty"`
	Category    string `json:"category"`
	Language    string `json:"language,omitempty"`
	Description string `json:"description,omitempty"`
	Small       string `json:"small,omitempty"`
	Medium      string `json:"medium,omitempty"`
	Big         string `json:"big,omitempty"`
}

// CastView is the JSON form of a credit.
type CastView struct {
	PersonID  string `json:"person_id,omitempty"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Character string `json:"character,omitempty"`
	Portrait  string `json:"portrait,omitempty"`
}

// ResultView is the JSON form of a resolution.
type ResultView struct {
	ID         string            `json:"id,omitempty"`
	State      string            `json:"state"`
	Canceled   bool              `json:"canceled,omitempty"`
	Details    map[string]any    `json:"details,omitempty"`
	Cast       []CastView        `json:"cast,omitempty"`
	Images     []ImageView       `json:"images,omitempty"`
	Candidates []CandidateView   `json:"candidates,omitempty"`
	Tags       *probe.Tags       `json:"tags,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// NewCandidateViews converts candidates, keeping order. The result is never
// nil so empty searches encode as [].
func NewCandidateViews(cs []media.SearchCandidate) []CandidateView {
	out := make([]CandidateView, 0, len(cs))
	for _, c := range cs {
		v := CandidateView{ID: c.ID.String(), Name: c.Name, OriginalName: c.OriginalName, Thumbnail: c.Thumbnail}
		if c.HasYear() {
			v.Year = c.Year
		}
		out = append(out, v)
	}
	return out
}

// NewImageView converts one image. Missing sizes fall back per URL.
func NewImageView(img media.ImageRecord) ImageView {
	return ImageView{
		ID:          img.ID,
		Category:    string(img.Category),
		Language:    img.Language,
		Description: img.Description,
		Small:       img.URL(media.SizeSmall),
		Medium:      img.URL(media.SizeMedium),
		Big:         img.URL(media.SizeBig),
	}
}

// NewResultView converts res and the error that came with it. Either may be
// nil.
func NewResultView(res *resolve.Result, err error) ResultView {
	var v ResultView
	if err != nil {
		v.Error = err.Error()
	}
	if res == nil {
		v.State = string(resolve.StateFailed)
		return v
	}
	if !res.ID.IsZero() {
		v.ID = res.ID.String()
	}
	v.State = string(res.State)
	v.Canceled = res.Canceled
	if res.Details != nil {
		v.Details = res.Details.Map()
		if v.ID == "" {
			v.ID = res.Details.ID().String()
		}
	}
	for _, c := range res.Cast {
		v.Cast = append(v.Cast, CastView{PersonID: c.PersonID, Name: c.Name, Role: string(c.Role), Character: c.Character, Portrait: c.Portrait})
	}
	for _, img := range res.Images {
		v.Images = append(v.Images, NewImageView(img))
	}
	if len(res.Candidates) > 0 {
		v.Candidates = NewCandidateViews(res.Candidates)
	}
	v.Tags = res.Tags
	return v
}
