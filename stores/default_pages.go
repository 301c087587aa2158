package stores

import "github.com/launchdarkly/go-sdk-common/v3/ldvalue"

// DefaultContentPages returns the compiled-in defaults for the site's standard pages.
func DefaultContentPages() []ContentPage {
	return []ContentPage{
		{
			PageID:   "home",
			PageName: "Home",
			Sections: []ContentSection{
				{
					ID:       "home-hero",
					Type:     SectionHero,
					Title:    "Welcome to My Company",
					Content:  "Building better solutions for tomorrow.",
					ImageURL: "/images/hero.jpg",
					Styles:   SectionStyles{Alignment: "center"},
					Stats:    []StatItem{},
					Services: []ServiceItem{},
					Items:    ldvalue.Null(),
				},
				{
					ID:       "home-stats",
					Type:     SectionStats,
					Title:    "By the numbers",
					Stats:    []StatItem{{Label: "Clients", Value: "500+"}, {Label: "Projects", Value: "1200+"}, {Label: "Years", Value: "15"}},
					Services: []ServiceItem{},
					Items:    ldvalue.Null(),
				},
				{
					ID:    "home-services",
					Type:  SectionServices,
					Title: "What we do",
					Stats: []StatItem{},
					Services: []ServiceItem{
						{Title: "Consulting", Description: "Expert advice for your business.", Icon: "briefcase"},
						{Title: "Development", Description: "Custom software, built to last.", Icon: "code"},
						{Title: "Support", Description: "Help whenever you need it.", Icon: "life-buoy"},
					},
					Items: ldvalue.Null(),
				},
			},
		},
		{
			PageID:   "about",
			PageName: "About Us",
			Sections: []ContentSection{
				{
					ID:       "about-text",
					Type:     SectionText,
					Title:    "Our story",
					Content:  "We started with a simple idea.",
					Stats:    []StatItem{},
					Services: []ServiceItem{},
					Items:    ldvalue.Null(),
				},
			},
		},
	}
}
