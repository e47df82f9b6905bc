package bigfinish

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/alanbriolat/audio-archiver/catalog"
)

// Download buttons on the library page, matched by the image they display.
var buttonImages = []struct {
	suffix string
	format catalog.FormatTag
}{
	{"button-account-downloadmp3.png", catalog.FormatMP3},
	{"button-account-downloadaudiobook.png", catalog.FormatAudiobook},
}

// ParseLibrary extracts one item per download button from the account library page. Each button image sits inside
// the download link; three levels up is the product entry, whose cover image alt text is the title. Relative links
// are resolved against base.
func ParseLibrary(r io.Reader, base *url.URL) ([]catalog.Item, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse library page: %w", err)
	}
	if isLoginPage(doc) {
		return nil, ErrNotLoggedIn
	}

	var items []catalog.Item
	var parseErr error
	for _, button := range buttonImages {
		doc.Find(fmt.Sprintf(`img[src$=%q]`, button.suffix)).EachWithBreak(func(_ int, img *goquery.Selection) bool {
			item, err := parseButton(img, button.format, base)
			if err != nil {
				parseErr = err
				return false
			}
			items = append(items, item)
			return true
		})
		if parseErr != nil {
			return nil, parseErr
		}
	}
	return items, nil
}

// ParseLibraryHTML is ParseLibrary for an in-memory page.
func ParseLibraryHTML(html []byte, base *url.URL) ([]catalog.Item, error) {
	return ParseLibrary(bytes.NewReader(html), base)
}

func parseButton(img *goquery.Selection, format catalog.FormatTag, base *url.URL) (catalog.Item, error) {
	link := img.Parent()
	href, ok := link.Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return catalog.Item{}, fmt.Errorf("%s download button without a link", format)
	}
	target, err := base.Parse(href)
	if err != nil {
		return catalog.Item{}, fmt.Errorf("bad %s download link %q: %w", format, href, err)
	}

	product := link.Parent().Parent()
	title, ok := product.Find("a.largePopOut > img").First().Attr("alt")
	title = strings.TrimSpace(title)
	if !ok || title == "" {
		return catalog.Item{}, fmt.Errorf("%s download link %q has no product title", format, href)
	}
	return catalog.Item{Title: title, Format: format, URL: target.String()}, nil
}

// isLoginPage spots the page served instead of the library when the session is not authenticated.
func isLoginPage(doc *goquery.Document) bool {
	return doc.Find(`input[name="data[Customer][password]"]`).Length() > 0
}
