package stores

import (
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// SectionType identifies how a content section is rendered.
type SectionType string

const (
	SectionHero     SectionType = "hero"
	SectionText     SectionType = "text"
	SectionStats    SectionType = "stats"
	SectionServices SectionType = "services"
	SectionImage    SectionType = "image"
	SectionCTA      SectionType = "cta"
	SectionGallery  SectionType = "gallery"
	SectionCustom   SectionType = "custom"
)

// SectionStyles holds presentation overrides for a section. Empty fields mean the theme default.
type SectionStyles struct {
	BackgroundColor string `json:"backgroundColor"`
	TextColor       string `json:"textColor"`
	Alignment       string `json:"alignment"`
	Padding         string `json:"padding"`
}

// StatItem is one figure in a stats section.
type StatItem struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ServiceItem is one entry in a services section.
type ServiceItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// ContentSection is one block of a content page. Sections are rendered in the order they appear in
// ContentPage.Sections.
type ContentSection struct {
	ID       string        `json:"id"`
	Type     SectionType   `json:"type"`
	Title    string        `json:"title"`
	Content  string        `json:"content"`
	ImageURL string        `json:"imageUrl"`
	Styles   SectionStyles `json:"styles"`
	Stats    []StatItem    `json:"stats"`
	Services []ServiceItem `json:"services"`
	// Items carries type-specific data of gallery and custom sections as arbitrary JSON.
	Items ldvalue.Value `json:"items"`
}

// SectionPatch describes a partial update to a ContentSection. Nil fields are left unchanged.
type SectionPatch struct {
	Type     *SectionType
	Title    *string
	Content  *string
	ImageURL *string
	Styles   *SectionStyles
	Stats    *[]StatItem
	Services *[]ServiceItem
	Items    *ldvalue.Value
}

func (p SectionPatch) applyTo(s *ContentSection) {
	setIfPresent(&s.Type, p.Type)
	setIfPresent(&s.Title, p.Title)
	setIfPresent(&s.Content, p.Content)
	setIfPresent(&s.ImageURL, p.ImageURL)
	setIfPresent(&s.Styles, p.Styles)
	setIfPresent(&s.Stats, p.Stats)
	setIfPresent(&s.Services, p.Services)
	setIfPresent(&s.Items, p.Items)
}

// ContentPage is an ordered list of sections making up one page of the site.
type ContentPage struct {
	PageID   string           `json:"pageId"`
	PageName string           `json:"pageName"`
	Sections []ContentSection `json:"sections"`
}

// EmptyContentPage returns a page with no sections, named after its ID.
func EmptyContentPage(pageID string) ContentPage {
	return ContentPage{PageID: pageID, PageName: pageID, Sections: []ContentSection{}}
}

// Section returns the section with the given ID, if any.
func (p ContentPage) Section(id string) (ContentSection, bool) {
	for _, s := range p.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return ContentSection{}, false
}
