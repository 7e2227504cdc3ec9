package scraper

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/codebuildervaibhav/audio-quiz/internal/types"
)

const hostsByline = "Hosts"

// Skipped describes a rundown article that yielded no story.
type Skipped struct {
	Title  string
	Reason string
}

// ParseStories extracts the story records from a rendered program rundown.
// Articles without a byline are ignored; articles without an mp3 link are reported in skipped.
func ParseStories(r io.Reader) (stories []types.Story, skipped []Skipped, err error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, nil, fmt.Errorf("parse html: %w", err)
	}

	for _, article := range findAll(doc, "article", "rundown-segment") {
		byline := findFirst(article, "p", "byline-container--inline")
		if byline == nil {
			continue
		}
		spans := findAll(byline, "span", "byline", "byline--inline")
		names := make([]string, 0, len(spans))
		for _, s := range spans {
			names = append(names, textContent(s))
		}

		var story types.Story
		switch {
		case len(names) == 1 && names[0] != hostsByline:
			story.CorrespondentName = names[0]
		case len(names) > 1:
			story.Correspondents = names
		default:
			continue
		}

		url := audioURL(article)
		if url == "" {
			title := ""
			if h := findFirst(article, "h4", "audio-module-title"); h != nil {
				title = textContent(h)
			}
			skipped = append(skipped, Skipped{Title: title, Reason: "no mp3 link"})
			continue
		}
		story.AudioURL = url
		stories = append(stories, story)
	}
	return stories, skipped, nil
}

func audioURL(article *html.Node) string {
	for _, a := range findAll(article, "a", "audio-module-listen") {
		href := attr(a, "href")
		if strings.Contains(href, ".mp3") {
			if i := strings.IndexByte(href, '?'); i >= 0 {
				href = href[:i]
			}
			return href
		}
	}
	return ""
}

func findFirst(n *html.Node, tag string, classes ...string) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) bool {
		if matches(c, tag, classes) {
			found = c
			return false
		}
		return true
	})
	return found
}

func findAll(n *html.Node, tag string, classes ...string) []*html.Node {
	var out []*html.Node
	walk(n, func(c *html.Node) bool {
		if matches(c, tag, classes) {
			out = append(out, c)
		}
		return true
	})
	return out
}

// walk visits n's descendants depth-first until visit returns false.
func walk(n *html.Node, visit func(*html.Node) bool) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !visit(c) || !walk(c, visit) {
			return false
		}
	}
	return true
}

func matches(n *html.Node, tag string, classes []string) bool {
	if n.Type != html.ElementNode || n.Data != tag {
		return false
	}
	have := strings.Fields(attr(n, "class"))
	for _, want := range classes {
		found := false
		for _, c := range have {
			if c == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
