package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category groups content types the way the graph is coloured.
type Category string

const (
	CategoryHTML       Category = "html"
	CategoryImage      Category = "image"
	CategoryJavaScript Category = "javascript"
	CategoryCSS        Category = "css"
	CategoryDocument   Category = "document"
	CategoryOther      Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryHTML,
	CategoryImage,
	CategoryJavaScript,
	CategoryCSS,
	CategoryDocument,
	CategoryOther,
}

// categoryColors is the node colour of each category.
var categoryColors = map[Category]string{
	CategoryHTML:       "#4285f4",
	CategoryImage:      "#34a853",
	CategoryJavaScript: "#fbbc05",
	CategoryCSS:        "#a142f4",
	CategoryDocument:   "#ea4335",
	CategoryOther:      "#888888",
}

// acronyms are labels that title casing would get wrong.
var acronyms = map[Category]string{
	CategoryHTML:       "HTML",
	CategoryCSS:        "CSS",
	CategoryJavaScript: "JavaScript",
}

// ClassifyContentType maps a Content-Type header to a Category.
// The checks run in order, so "text/html" wins over anything else.
func ClassifyContentType(contentType string) Category {
	ct := strings.ToLower(contentType)
	switch {
	case ct == "":
		return CategoryOther
	case strings.Contains(ct, "text/html"):
		return CategoryHTML
	case strings.Contains(ct, "image"):
		return CategoryImage
	case strings.Contains(ct, "javascript"):
		return CategoryJavaScript
	case strings.Contains(ct, "css"):
		return CategoryCSS
	case strings.Contains(ct, "pdf"), strings.Contains(ct, "document"):
		return CategoryDocument
	default:
		return CategoryOther
	}
}

// Category returns the category of the node.
func (n Node) Category() Category {
	return ClassifyContentType(n.ContentType)
}

// Color returns the hex colour of the category.
func (c Category) Color() string {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	return categoryColors[CategoryOther]
}

// Label returns a display name for the category.
func (c Category) Label() string {
	if label, ok := acronyms[c]; ok {
		return label
	}
	return cases.Title(language.English).String(string(c))
}
