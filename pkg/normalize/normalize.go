// Package normalize maps hrefs found on listing pages to a download URL and a
// filesystem-safe local filename.
package normalize

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"wallharvest/pkg/config"
	errs "wallharvest/pkg/errors"
)

// Normalizer is immutable and safe for reuse across collections
type Normalizer struct {
	base          *url.URL
	stripPrefixes []string
	joinChar      string
	extension     string
	assetPath     string
	mode          string
}

// New builds a Normalizer for hrefs discovered under baseURL
func New(baseURL string, cfg config.NormalizeConfig) (*Normalizer, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}

	mode := cfg.Mode
	if mode == "" {
		mode = config.ModeAuto
	}
	joinChar := cfg.JoinChar
	if joinChar == "" {
		joinChar = "_"
	}

	return &Normalizer{
		base:          base,
		stripPrefixes: cfg.StripPrefixes,
		joinChar:      joinChar,
		extension:     cfg.Extension,
		assetPath:     strings.Trim(cfg.AssetPath, "/"),
		mode:          mode,
	}, nil
}

// Normalize returns the download URL and local filename for href.
// The result depends only on href and the Normalizer's settings.
func (n *Normalizer) Normalize(href string) (downloadURL, filename string, err error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", "", invalid(href, "empty href")
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", "", errs.Wrap(errs.ErrorTypeInvalidLink, fmt.Sprintf("%q", href), err)
	}

	switch n.mode {
	case config.ModeSlug:
		return n.slug(href, u)
	case config.ModeDirect:
		return n.direct(href, u)
	default:
		if n.marker(u.Path) != "" {
			return n.slug(href, u)
		}
		return n.direct(href, u)
	}
}

// marker returns the first strip prefix contained in p
func (n *Normalizer) marker(p string) string {
	for _, m := range n.stripPrefixes {
		if m != "" && strings.Contains(p, m) {
			return m
		}
	}
	return ""
}

// slug joins the path segments after the prefix marker into a flat filename
// served from the site's asset path.
func (n *Normalizer) slug(href string, u *url.URL) (string, string, error) {
	p := u.Path
	if m := n.marker(p); m != "" {
		p = p[strings.Index(p, m)+len(m):]
	}

	var segments []string
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	if len(segments) == 0 {
		return "", "", invalid(href, "no path segment")
	}

	name, err := n.filename(href, strings.Join(segments, n.joinChar))
	if err != nil {
		return "", "", err
	}

	assetPath := "/" + name
	if n.assetPath != "" {
		assetPath = "/" + n.assetPath + assetPath
	}
	target := url.URL{Scheme: n.base.Scheme, Host: n.base.Host, Path: assetPath}
	return target.String(), name, nil
}

// direct keeps the resolved URL and names the file after its last segment
func (n *Normalizer) direct(href string, u *url.URL) (string, string, error) {
	resolved := n.base.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", "", invalid(href, "unsupported scheme "+resolved.Scheme)
	}
	resolved.Fragment = ""

	if resolved.Path == "" || strings.HasSuffix(resolved.Path, "/") {
		return "", "", invalid(href, "no path segment")
	}

	name, err := n.filename(href, path.Base(resolved.Path))
	if err != nil {
		return "", "", err
	}
	return resolved.String(), name, nil
}

func (n *Normalizer) filename(href, raw string) (string, error) {
	name := strings.TrimSpace(sanitize(raw, n.joinChar))
	if name == "" || name == "." || name == ".." {
		return "", invalid(href, "no usable filename")
	}
	if n.extension != "" && !hasExtension(name) {
		name += n.extension
	}
	return name, nil
}

// sanitize replaces characters that are unsafe in filenames
func sanitize(s, joinChar string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r < 0x20 || r == 0x7f:
			b.WriteString(joinChar)
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteString(joinChar)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".bmp": true, ".avif": true, ".heic": true, ".tif": true, ".tiff": true,
}

// hasExtension reports whether name already ends in an image extension
func hasExtension(name string) bool {
	return imageExtensions[strings.ToLower(path.Ext(name))]
}

func invalid(href, reason string) error {
	return errs.New(errs.ErrorTypeInvalidLink, fmt.Sprintf("%q: %s", href, reason))
}
