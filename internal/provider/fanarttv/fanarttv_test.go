package fanarttv

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Digital-Shane/title-scout/internal/fetch"
	"github.com/Digital-Shane/title-scout/internal/media"
	"github.com/Digital-Shane/title-scout/internal/provider"
)

const avatarImages = `{
  "name": "Avatar",
  "tmdb_id": "19995",
  "imdb_id": "tt0499549",
  "hdmovielogo": [
    {"id": "11220", "url": "http://assets.fanart.tv/fanart/movies/19995/hdmovielogo/avatar-5097c7e7ee0fe.png", "lang": "en", "likes": "6"},
    {"id": "2213", "url": "http://assets.fanart.tv/fanart/movies/19995/hdmovielogo/avatar-509cc262042a4.png", "lang": "en", "likes": "3"}
  ],
  "moviebackground": [
    {"id": "2211", "url": "http://assets.fanart.tv/fanart/movies/19995/moviebackground/avatar-4f8b1f6c8aaa1.jpg", "lang": "", "likes": "2"}
  ],
  "moviedisc": [
    {"id": "7453", "url": "http://assets.fanart.tv/fanart/movies/19995/moviedisc/avatar-5052dd4f0e3f4.png", "lang": "de", "likes": "1", "disc": "1", "disc_type": "bluray"}
  ],
  "movieposter": [
    {"id": "51500", "url": "http://assets.fanart.tv/fanart/movies/19995/movieposter/avatar-52a0bd0a9c3b4.jpg", "lang": "00", "likes": "1"}
  ],
  "moviethumb": "not a list"
}`

type stub struct {
	body string
	req  fetch.Request
}

func (s *stub) Fetch(_ context.Context, req fetch.Request) (*fetch.Response, error) {
	s.req = req
	if s.body == "" {
		return nil, &fetch.Error{Kind: fetch.KindStatus, StatusCode: 404, URL: req.URL}
	}
	return &fetch.Response{URL: req.URL, StatusCode: 200, ContentType: "application/json", Body: []byte(s.body)}, nil
}

func newTestProvider(t *testing.T, body string) (*Provider, *stub) {
	t.Helper()
	s := &stub{body: body}
	p, err := New(s, provider.MapSettings{"fanarttv.apikey": "key"}, WithRateLimiter(provider.NewRateLimiter(1000, 1)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p, s
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(&stub{}, nil)
	if got := provider.CodeOf(err); got != provider.CodeConfiguration {
		t.Fatalf("New() code = %q, want %q", got, provider.CodeConfiguration)
	}
}

func TestImages(t *testing.T) {
	p, s := newTestProvider(t, avatarImages)

	images, err := p.Images(context.Background(), media.Identifier{ID: "19995", Source: media.SourceTMDB})
	if err != nil {
		t.Fatalf("Images() error = %v", err)
	}
	if s.req.URL != "https://webservice.fanart.tv/v3/movies/19995?api_key=key" {
		t.Errorf("URL = %q", s.req.URL)
	}
	if images[0].Category != media.CategoryLogo {
		t.Errorf("images[0].Category = %q, want logo", images[0].Category)
	}
	if got := images[1].URL(media.SizeBig); got != "http://assets.fanart.tv/fanart/movies/19995/hdmovielogo/avatar-509cc262042a4.png" {
		t.Errorf("images[1] big = %q", got)
	}

	var cats []media.ImageCategory
	var langs []string
	for _, img := range images {
		cats = append(cats, img.Category)
		langs = append(langs, img.Language)
	}
	wantCats := []media.ImageCategory{media.CategoryLogo, media.CategoryLogo, media.CategoryThumb, media.CategoryFanart, media.CategoryCDArt}
	if diff := cmp.Diff(wantCats, cats); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"en", "en", "", "", "de"}, langs); diff != "" {
		t.Errorf("languages mismatch (-want +got):\n%s", diff)
	}
	if got := images[3].URL(media.SizeSmall); got != "http://assets.fanart.tv/preview/movies/19995/moviebackground/avatar-4f8b1f6c8aaa1.jpg" {
		t.Errorf("fanart small = %q", got)
	}
}

func TestImagesByIMDbID(t *testing.T) {
	p, s := newTestProvider(t, `{"name": "Avatar"}`)
	images, err := p.Images(context.Background(), media.Identifier{ID: "499549", Source: media.SourceIMDB})
	if err != nil {
		t.Fatalf("Images() error = %v", err)
	}
	if len(images) != 0 {
		t.Errorf("Images() = %d, want 0", len(images))
	}
	if s.req.URL != "https://webservice.fanart.tv/v3/movies/tt0499549?api_key=key" {
		t.Errorf("URL = %q", s.req.URL)
	}
}

func TestImagesErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		id   media.Identifier
		want provider.ErrorCode
	}{
		{"missing", "", media.Identifier{ID: "1", Source: media.SourceTMDB}, provider.CodeNotFound},
		{"api error", `{"status": "error", "error message": "Not found"}`, media.Identifier{ID: "1", Source: media.SourceTMDB}, provider.CodeNotFound},
		{"malformed", `[{`, media.Identifier{ID: "1", Source: media.SourceTMDB}, provider.CodeSchema},
		{"foreign source", avatarImages, media.Identifier{ID: "1", Source: media.SourceTVDB}, provider.CodeIdentifierParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestProvider(t, tt.body)
			_, err := p.Images(context.Background(), tt.id)
			if got := provider.CodeOf(err); got != tt.want {
				t.Errorf("code = %q, want %q (err %v)", got, tt.want, err)
			}
		})
	}
}
