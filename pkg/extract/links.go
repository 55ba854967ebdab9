// Package extract pulls candidate hrefs out of rendered listing HTML.
package extract

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	errs "wallharvest/pkg/errors"
)

// Spec selects which anchors on a page are wallpaper links
type Spec struct {
	// Selector matches anchor elements, or containers whose anchors are used
	Selector string
	// LinkText keeps only anchors whose trimmed text equals it. Empty keeps all.
	LinkText string
	// Base resolves relative hrefs when set, as a browser's anchor.href would
	Base string
}

// Links returns the hrefs matching spec in document order.
// Without a Base, hrefs are returned as written.
func Links(r io.Reader, spec Spec) ([]string, error) {
	if strings.TrimSpace(spec.Selector) == "" {
		return nil, errs.New(errs.ErrorTypeExtraction, "empty link selector")
	}

	var base *url.URL
	if spec.Base != "" {
		u, err := url.Parse(spec.Base)
		if err != nil {
			return nil, errs.Wrap(errs.ErrorTypeExtraction, "invalid base URL", err)
		}
		base = u
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeExtraction, "failed to parse HTML", err)
	}

	var hrefs []string
	var selErr error
	func() {
		// cascadia panics on some malformed selectors in older releases
		defer func() {
			if p := recover(); p != nil {
				selErr = errs.New(errs.ErrorTypeExtraction, fmt.Sprintf("invalid selector %q: %v", spec.Selector, p))
			}
		}()
		doc.Find(spec.Selector).Each(func(_ int, sel *goquery.Selection) {
			anchors := sel
			if goquery.NodeName(sel) != "a" {
				anchors = sel.Find("a[href]")
			}
			anchors.Each(func(_ int, a *goquery.Selection) {
				href, ok := a.Attr("href")
				if !ok || strings.TrimSpace(href) == "" {
					return
				}
				if spec.LinkText != "" && strings.TrimSpace(a.Text()) != spec.LinkText {
					return
				}
				href = strings.TrimSpace(href)
				if base != nil {
					// Unparseable hrefs are kept verbatim and rejected during normalization
					if linkURL, err := base.Parse(href); err == nil {
						href = linkURL.String()
					}
				}
				hrefs = append(hrefs, href)
			})
		})
	}()
	if selErr != nil {
		return nil, selErr
	}

	return hrefs, nil
}

// LinksFromHTML is Links over an HTML string
func LinksFromHTML(html string, spec Spec) ([]string, error) {
	return Links(strings.NewReader(html), spec)
}
