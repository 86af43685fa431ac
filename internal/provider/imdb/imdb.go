// Package imdb scrapes movie metadata from IMDb HTML pages.
package imdb

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Digital-Shane/title-scout/internal/feed"
	"github.com/Digital-Shane/title-scout/internal/fetch"
	"github.com/Digital-Shane/title-scout/internal/media"
	"github.com/Digital-Shane/title-scout/internal/provider"
	"github.com/Digital-Shane/title-scout/internal/selector"
)

const (
	providerName = "imdb"
	defaultHost  = "www.imdb.com"
)

var (
	titleIDPattern  = regexp.MustCompile(`tt(\d{7})`)
	personIDPattern = regexp.MustCompile(`nm(\d{7})`)
	yearPattern     = regexp.MustCompile(`\((\d{4}).*\)`)
	digits4         = regexp.MustCompile(`\d{4}`)
	runtimePattern  = regexp.MustCompile(`(\d{2,3}) min`)
	mpaaPattern     = regexp.MustCompile(`Rated ([RPGN][GC]?(?:-\d{2})?)`)
	thumbSize       = regexp.MustCompile(`S[XY]\d+(.)+\.jpg`)
	cropSize        = regexp.MustCompile(`CR[\d,]+_SS\d+`)
	bracketed       = regexp.MustCompile(`\[.*?\]|\(.*?\)`)
)

// Provider implements search, details, cast and images against IMDb.
type Provider struct {
	host    string
	fetcher fetch.Fetcher
	limiter *provider.RateLimiter
	log     logrus.FieldLogger
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the provider logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Provider) { p.log = l }
}

// WithRateLimiter replaces the default limiter.
func WithRateLimiter(rl *provider.RateLimiter) Option {
	return func(p *Provider) { p.limiter = rl }
}

// New creates an IMDb provider. The host may be overridden with the
// "imdb.host" setting.
func New(f fetch.Fetcher, settings provider.Settings, opts ...Option) *Provider {
	p := &Provider{
		host:    defaultHost,
		fetcher: f,
		limiter: provider.NewRateLimiter(20, time.Second),
		log:     logrus.StandardLogger(),
	}
	if settings != nil {
		if h, ok := settings.Lookup("imdb.host"); ok {
			p.host = strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(h, "https://"), "http://"), "/")
		}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string                { return providerName }
func (p *Provider) Kinds() []media.Kind         { return []media.Kind{media.KindMovie} }
func (p *Provider) DefaultLocale() media.Locale { return media.DefaultLocale }

func (p *Provider) url(format string, args ...any) string {
	return "https://" + p.host + fmt.Sprintf(format, args...)
}

func (p *Provider) document(ctx context.Context, op, u string, locale media.Locale) (*selector.Document, *fetch.Response, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}
	resp, err := provider.Get(ctx, p.fetcher, provider.NewRequest(providerName, op, u, locale))
	if err != nil {
		return nil, nil, err
	}
	doc, err := resp.Document()
	if err != nil {
		return nil, nil, provider.FromFetch(providerName, err)
	}
	return doc, resp, nil
}

// thumbnail rewrites an IMDb image URL to its small variant.
func thumbnail(src string) string {
	return thumbSize.ReplaceAllString(src, "SY70_SX100.jpg")
}

// Search looks query up on the title search page.
func (p *Provider) Search(ctx context.Context, query string, locale media.Locale) ([]media.SearchCandidate, error) {
	return p.SearchURL(ctx, p.url("/find?s=tt&ref_=fn_tt&q=%s", url.QueryEscape(query)), locale)
}

var (
	findRows    = selector.MustCompile("table.findList tr")
	resultLink  = selector.MustCompile("td.result_text a")
	resultText  = selector.MustCompile("td.result_text")
	resultThumb = selector.MustCompile("td.primary_photo a img/@src")
	canonical   = selector.MustCompile("link[rel=canonical]/@href")
)

// SearchURL parses a search result page. A page without result rows is
// treated as a redirect to a title page and yields that single title.
func (p *Provider) SearchURL(ctx context.Context, searchURL string, locale media.Locale) ([]media.SearchCandidate, error) {
	doc, _, err := p.document(ctx, "search", searchURL, locale)
	if err != nil {
		return nil, err
	}

	rows := selector.SelectNodes(findRows, doc)
	results := make([]media.SearchCandidate, 0, len(rows))
	for _, row := range rows {
		link, ok := selector.SelectNode(resultLink, row)
		if !ok {
			continue
		}
		id, ok := provider.ExtractID(titleIDPattern, selector.Attribute("href", link))
		if !ok {
			p.log.WithField("provider", providerName).Debugf("skipping result without title id: %q", link.Text())
			continue
		}
		c := media.NewCandidate(media.NewID(id, media.SourceIMDB), link.Text())
		if m := yearPattern.FindStringSubmatch(selector.SelectString(resultText, row)); m != nil {
			c.Year, _ = strconv.Atoi(m[1])
		}
		if src := selector.SelectString(resultThumb, row); src != "" && !strings.Contains(src, "nopicture") {
			c.Thumbnail = thumbnail(src)
		}
		results = append(results, c)
	}
	if len(results) > 0 {
		return results, nil
	}

	id, ok := provider.ExtractID(titleIDPattern, selector.SelectString(canonical, doc))
	if !ok {
		return results, nil
	}
	ident := media.NewID(id, media.SourceIMDB)
	info, err := p.Details(ctx, ident, locale)
	if err != nil {
		if provider.IsNotFound(err) {
			return results, nil
		}
		return nil, err
	}
	c := media.NewCandidate(ident, info.Title())
	if y, err := strconv.Atoi(info.Value(media.PropYear)); err == nil {
		c.Year = y
	}
	c.Thumbnail = info.Value(media.PropThumbnail)
	return append(results, c), nil
}

var (
	heading       = selector.MustCompile("h1")
	headingYear   = selector.MustCompile(`h1 span a[href*="year"]`)
	originalTitle = selector.MustCompile(`h1 span.title-extra:has(i:contains("(original title)"))/text()`)
	ratingBar     = selector.MustCompile("div.starbar-meta b")
	votesLink     = selector.MustCompile(`div.starbar-meta a[href="ratings"]`)
	genreLinks    = selector.MustCompile(`div.info a[href*="Genres"]`)
	countryLinks  = selector.MustCompile(`div.info a[href*="country"]`)
	keywordLinks  = selector.MustCompile(`div.info a[href*="/keyword/"]`)
	studioItems   = selector.MustCompile(`div#tn15content b.blackcatheader:contains("Production Companies") + ul li`)
	posterImage   = selector.MustCompile(`div.photo a[name="poster"] img/@src`)
	certLinks     = selector.MustCompile(`div.info:has(h5:contains("Certification")) div a`)
	plotParagraph = selector.MustCompile("p.plotpar")
)

// infoBlock selects the content of the info section headed by label.
func infoBlock(label, step string) *selector.Expr {
	return selector.MustCompile(fmt.Sprintf(`div.info:has(h5:contains(%q)) div%s`, label, step))
}

var (
	runtimeInfo = infoBlock("Runtime", "")
	mpaaInfo    = infoBlock("MPAA", "")
	taglineInfo = infoBlock("Tagline", "/text()")
	plotInfo    = infoBlock("Plot", "/text()")
)

// Details fetches the combined title page, falling back to English when the
// localized page carries no title.
func (p *Provider) Details(ctx context.Context, id media.Identifier, locale media.Locale) (*media.DetailRecord, error) {
	n, err := provider.NumericID(providerName, id, media.SourceIMDB)
	if err != nil {
		return nil, err
	}
	return provider.WithLocaleFallback(ctx, p, locale, func(ctx context.Context, l media.Locale) (*media.DetailRecord, error) {
		return p.details(ctx, n, id, l)
	}, provider.HasTitle)
}

func (p *Provider) details(ctx context.Context, n int, id media.Identifier, locale media.Locale) (*media.DetailRecord, error) {
	doc, _, err := p.document(ctx, "details", p.url("/title/tt%07d/combined", n), locale)
	if err != nil {
		return nil, err
	}
	h1, ok := selector.SelectNode(heading, doc)
	if !ok {
		return nil, provider.Schema(providerName, "title page tt%07d has no heading", n)
	}

	b := media.NewDetailBuilder(id, media.KindMovie)
	b.Set(media.PropTitle, h1.OwnText())
	if m := digits4.FindString(selector.SelectString(headingYear, doc)); m != "" {
		b.Set(media.PropYear, m)
	}
	b.Set(media.PropOriginalTitle, strings.Trim(selector.SelectString(originalTitle, doc), `" `))

	if rating := selector.SelectString(ratingBar, doc); strings.Contains(rating, "/") {
		if r, err := strconv.ParseFloat(strings.TrimSpace(strings.SplitN(rating, "/", 2)[0]), 64); err == nil {
			b.Set(media.PropRating, strconv.FormatFloat(r/2, 'f', -1, 64))
		}
	}
	if votes := selector.SelectString(votesLink, doc); strings.Contains(votes, " votes") {
		b.Set(media.PropVotes, feed.Digits(strings.SplitN(votes, " ", 2)[0]))
	}
	if m := runtimePattern.FindStringSubmatch(selector.SelectString(runtimeInfo, doc)); m != nil {
		b.Set(media.PropRuntime, m[1])
	}

	if mpaa := selector.SelectString(mpaaInfo, doc); mpaa != "" {
		b.Set(media.PropCertification, mpaa)
		if m := mpaaPattern.FindStringSubmatch(mpaa); m != nil {
			b.Set(media.PropCertCode, m[1])
		}
	} else {
		for _, cert := range selector.SelectStrings(certLinks, doc) {
			if country, code, ok := strings.Cut(cert, ":"); ok && strings.Contains(country, "USA") {
				b.Set(media.PropCertCode, code)
				break
			}
		}
	}

	b.Set(media.PropTagline, selector.SelectString(taglineInfo, doc))
	overview := selector.SelectString(plotInfo, doc)
	b.Set(media.PropOverview, strings.TrimSpace(strings.TrimSuffix(overview, "|")))

	b.Add(media.MultiGenres, selector.SelectStrings(genreLinks, doc)...)
	b.Add(media.MultiCountries, selector.SelectStrings(countryLinks, doc)...)
	b.Add(media.MultiTags, selector.SelectStrings(keywordLinks, doc)...)
	for _, studio := range selector.SelectStrings(studioItems, doc) {
		b.Add(media.MultiStudios, strings.TrimSpace(bracketed.ReplaceAllString(studio, "")))
	}
	if poster := selector.SelectString(posterImage, doc); poster != "" {
		b.Set(media.PropThumbnail, thumbnail(poster))
	}
	b.Add(media.MultiIdentifiers, id.String())

	summaryLink := selector.MustCompile(fmt.Sprintf(`a[href="/title/tt%07d/plotsummary"]`, n))
	if _, ok := selector.SelectNode(summaryLink, doc); ok {
		summary, err := p.plotSummary(ctx, n, locale)
		if err != nil {
			p.log.WithError(err).WithField("provider", providerName).Warn("plot summary unavailable")
		} else {
			b.Set(media.PropOverview, summary)
		}
	}
	return b.Build(), nil
}

func (p *Provider) plotSummary(ctx context.Context, n int, locale media.Locale) (string, error) {
	doc, _, err := p.document(ctx, "plot", p.url("/title/tt%07d/plotsummary", n), locale)
	if err != nil {
		return "", err
	}
	par, ok := selector.SelectNode(plotParagraph, doc)
	if !ok {
		return "", nil
	}
	// Author credits live in <i>; the clone keeps the document untouched.
	text := par.Selection().Clone().Find("i").Remove().End().Text()
	return strings.TrimSpace(text), nil
}

var (
	castRows      = selector.MustCompile("table.cast tr")
	castName      = selector.MustCompile("td.nm")
	castPicture   = selector.MustCompile("td.hs img/@src")
	castCharacter = selector.MustCompile("td.char")
	directorRows  = selector.MustCompile(`table:has(a[name="directors"]) tr`)
	writerRows    = selector.MustCompile(`table:has(a[name="writers"]) tr`)
	anyLink       = selector.MustCompile("a")
)

// Cast reads the full credits page: actors, then directors, then writers.
func (p *Provider) Cast(ctx context.Context, id media.Identifier, locale media.Locale) ([]media.CastEntry, error) {
	n, err := provider.NumericID(providerName, id, media.SourceIMDB)
	if err != nil {
		return nil, err
	}
	doc, _, err := p.document(ctx, "cast", p.url("/title/tt%07d/fullcredits", n), locale)
	if err != nil {
		return nil, err
	}

	var cast []media.CastEntry
	for _, row := range selector.SelectNodes(castRows, doc) {
		nameCell, ok := selector.SelectNode(castName, row)
		if !ok {
			continue
		}
		entry, ok := person(nameCell, media.RoleActor)
		if !ok {
			continue
		}
		if pic := selector.SelectString(castPicture, row); pic != "" && !strings.Contains(pic, "no_photo") {
			entry.Portrait = thumbnail(pic)
		}
		entry.Character = selector.SelectString(castCharacter, row)
		cast = append(cast, entry)
	}
	for _, row := range selector.SelectNodes(directorRows, doc) {
		if entry, ok := person(row, media.RoleDirector); ok {
			cast = append(cast, entry)
		}
	}
	for _, row := range selector.SelectNodes(writerRows, doc) {
		if entry, ok := person(row, media.RoleWriter); ok {
			cast = append(cast, entry)
		}
	}
	return cast, nil
}

// person reads the first link under n as a credited person.
func person(n selector.Node, role media.Role) (media.CastEntry, bool) {
	link, ok := selector.SelectNode(anyLink, n)
	if !ok {
		return media.CastEntry{}, false
	}
	name := link.Text()
	if len(name) <= 1 {
		return media.CastEntry{}, false
	}
	id, ok := provider.ExtractID(personIDPattern, selector.Attribute("href", link))
	if !ok {
		return media.CastEntry{}, false
	}
	return media.CastEntry{PersonID: strconv.Itoa(id), Name: name, Role: role}, true
}

var (
	posterRefine = selector.MustCompile(`a[href="?refine=poster"]`)
	stillRefine  = selector.MustCompile(`a[href="?refine=still_frame"]`)
	thumbList    = selector.MustCompile("div.thumb_list img/@src")
)

// Images lists posters and stills from the media index. Image pages are
// always requested in English.
func (p *Provider) Images(ctx context.Context, id media.Identifier) ([]media.ImageRecord, error) {
	n, err := provider.NumericID(providerName, id, media.SourceIMDB)
	if err != nil {
		return nil, err
	}
	locale := p.DefaultLocale()
	doc, _, err := p.document(ctx, "images", p.url("/title/tt%07d/mediaindex", n), locale)
	if err != nil {
		return nil, err
	}

	var images []media.ImageRecord
	refinements := []struct {
		link     *selector.Expr
		refine   string
		category media.ImageCategory
	}{
		{posterRefine, "poster", media.CategoryThumb},
		{stillRefine, "still_frame", media.CategoryFanart},
	}
	for _, r := range refinements {
		if _, ok := selector.SelectNode(r.link, doc); !ok {
			continue
		}
		page, _, err := p.document(ctx, "images", p.url("/title/tt%07d/mediaindex?refine=%s", n, r.refine), locale)
		if err != nil {
			return images, err
		}
		for _, src := range selector.SelectStrings(thumbList, page) {
			mid := cropSize.ReplaceAllString(src, "SY214_SX314")
			images = append(images, media.NewImage(len(images), r.category, media.ImageURLs{
				Small:  thumbnail(mid),
				Medium: mid,
				Big:    thumbSize.ReplaceAllString(mid, "SY_SX.jpg"),
			}))
		}
	}
	return images, nil
}
