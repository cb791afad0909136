package processor

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
)

// Processor turns HTML (email bodies, clipped web pages) into readable text.
type Processor struct{}

// New creates a new HTML processor.
func New() *Processor {
	return &Processor{}
}

var blankLines = regexp.MustCompile(`\n{3,}`)

// Convert transforms HTML into Markdown text.
func (p *Processor) Convert(htmlContent string) (string, error) {
	if strings.TrimSpace(htmlContent) == "" {
		return "", nil
	}

	text, err := htmltomarkdown.ConvertString(htmlContent)
	if err != nil {
		return "", err
	}

	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text), nil
}

// ExtractTitle returns the <title> of an HTML document, or "".
func (p *Processor) ExtractTitle(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	var title string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil {
				title = n.FirstChild.Data
			}
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)

	return strings.TrimSpace(title)
}

// Document converts an HTML page into its title and text.
func (p *Processor) Document(htmlContent string) (title, text string, err error) {
	text, err = p.Convert(htmlContent)
	if err != nil {
		return "", "", err
	}
	return p.ExtractTitle(htmlContent), text, nil
}
