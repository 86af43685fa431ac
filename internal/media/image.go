package media

import (
	"net/url"
	"strings"
)

// ImageCategory classifies artwork.
type ImageCategory string

const (
	CategoryThumb    ImageCategory = "thumb"
	CategoryFanart   ImageCategory = "fanart"
	CategoryLogo     ImageCategory = "logo"
	CategoryBanner   ImageCategory = "banner"
	CategoryCDArt    ImageCategory = "cdart"
	CategoryClearArt ImageCategory = "clearart"
	CategoryActor    ImageCategory = "actor"
	CategoryUnknown  ImageCategory = "unknown"
)

// ParseCategory maps a category name onto a known category; anything else is
// CategoryUnknown. "poster" is an alias of thumb.
func ParseCategory(s string) ImageCategory {
	switch c := ImageCategory(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryThumb, CategoryFanart, CategoryLogo, CategoryBanner, CategoryCDArt, CategoryClearArt, CategoryActor:
		return c
	case "poster":
		return CategoryThumb
	}
	return CategoryUnknown
}

// ImageSize selects one URL of an image record.
type ImageSize int

const (
	SizeSmall ImageSize = iota
	SizeMedium
	SizeBig
	sizeCount
)

func (s ImageSize) String() string {
	switch s {
	case SizeSmall:
		return "small"
	case SizeMedium:
		return "medium"
	case SizeBig:
		return "big"
	}
	return "unknown"
}

// ImageRecord describes one artwork with up to three size variants.
type ImageRecord struct {
	ID          int
	Category    ImageCategory
	Language    string
	Description string
	Width       int
	Height      int
	urls        [sizeCount]string
}

// ImageURLs holds the raw size variants handed to NewImage.
type ImageURLs struct {
	Small, Medium, Big string
}

// NewImage builds an image record. URLs that are not absolute http(s) URLs
// are dropped.
func NewImage(id int, category ImageCategory, urls ImageURLs) ImageRecord {
	if category == "" {
		category = CategoryUnknown
	}
	img := ImageRecord{ID: id, Category: category}
	img.urls[SizeSmall] = cleanURL(urls.Small)
	img.urls[SizeMedium] = cleanURL(urls.Medium)
	img.urls[SizeBig] = cleanURL(urls.Big)
	return img
}

// URL returns the variant for size. A missing variant falls back to the next
// larger one, then to smaller ones.
func (i ImageRecord) URL(size ImageSize) string {
	if size < SizeSmall || size >= sizeCount {
		size = SizeMedium
	}
	for s := size; s < sizeCount; s++ {
		if i.urls[s] != "" {
			return i.urls[s]
		}
	}
	for s := size - 1; s >= SizeSmall; s-- {
		if i.urls[s] != "" {
			return i.urls[s]
		}
	}
	return ""
}

// Has reports whether the exact size variant is present.
func (i ImageRecord) Has(size ImageSize) bool {
	return size >= SizeSmall && size < sizeCount && i.urls[size] != ""
}

// Empty reports whether the record carries no usable URL.
func (i ImageRecord) Empty() bool { return i.URL(SizeSmall) == "" }

func cleanURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
