package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "wallharvest/pkg/errors"
)

const ratingsPage = `<html><body>
<div class="wallpapers">
  <ul>
    <li><a href="/download/lake_sunrise/1920x1080"><img src="/t/1.jpg"></a></li>
    <li><a href="/download/forest_path/1920x1080"><img src="/t/2.jpg"></a></li>
    <li><a href=""><img src="/t/3.jpg"></a></li>
    <li><span>no link</span></li>
  </ul>
</div>
<div class="sidebar"><ul><li><a href="/about">About</a></li></ul></div>
</body></html>`

const collectionPage = `<html><body>
<p class="title type"><a href="https://4kwallpapers.com/images/wallpapers/ocean-1.jpg">Download</a></p>
<p class="title type"><a href="/nature/ocean-1.html">Ocean</a></p>
<p class="title type"><a href="https://4kwallpapers.com/images/wallpapers/peak-2.jpg"> Download </a></p>
<p class="title"><a href="https://4kwallpapers.com/images/wallpapers/not-typed.jpg">Download</a></p>
<button id="load-more-button" style="display:block">Load more</button>
</body></html>`

func TestLinksBySelector(t *testing.T) {
	hrefs, err := LinksFromHTML(ratingsPage, Spec{Selector: "div.wallpapers > ul > li > a"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/download/lake_sunrise/1920x1080",
		"/download/forest_path/1920x1080",
	}, hrefs)
}

func TestLinksByContainer(t *testing.T) {
	hrefs, err := LinksFromHTML(ratingsPage, Spec{Selector: "div.wallpapers"})
	require.NoError(t, err)
	assert.Len(t, hrefs, 2)
}

func TestLinksWithTextFilter(t *testing.T) {
	hrefs, err := LinksFromHTML(collectionPage, Spec{Selector: ".title.type>a", LinkText: "Download"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://4kwallpapers.com/images/wallpapers/ocean-1.jpg",
		"https://4kwallpapers.com/images/wallpapers/peak-2.jpg",
	}, hrefs)
}

func TestLinksNoMatchesIsNotAnError(t *testing.T) {
	hrefs, err := LinksFromHTML("<html><body><p>empty</p></body></html>", Spec{Selector: "a.wallpaper"})
	require.NoError(t, err)
	assert.Empty(t, hrefs)
}

func TestLinksKeepsDuplicates(t *testing.T) {
	html := `<a class="w" href="/download/a/b">x</a><a class="w" href="/download/a/b">y</a>`
	hrefs, err := LinksFromHTML(html, Spec{Selector: "a.w"})
	require.NoError(t, err)
	assert.Len(t, hrefs, 2)
}

func TestLinksEmptySelector(t *testing.T) {
	_, err := LinksFromHTML(ratingsPage, Spec{})
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeExtraction))
}

func TestLinksResolvedAgainstBase(t *testing.T) {
	hrefs, err := LinksFromHTML(ratingsPage, Spec{
		Selector: "div.wallpapers > ul > li > a",
		Base:     "https://wallpaperscraft.com/catalog/nature/ratings/page2",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://wallpaperscraft.com/download/lake_sunrise/1920x1080",
		"https://wallpaperscraft.com/download/forest_path/1920x1080",
	}, hrefs)
}
