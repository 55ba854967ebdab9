package browser

import (
	"encoding/json"
	"fmt"

	"github.com/chromedp/chromedp"

	"wallharvest/pkg/config"
)

const (
	windowWidth  = 1366
	windowHeight = 900
)

// AllocatorOptions builds the Chrome launch flags for cfg on top of chromedp's defaults
func AllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(windowWidth, windowHeight),
	)
	if cfg.ExecutablePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecutablePath))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	return opts
}

// visibleScript reports whether the element matched by selector is displayed as a block,
// the state a "load more" control is in while more content can be fetched.
func visibleScript(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	return !!el && window.getComputedStyle(el).display === 'block';
})()`, jsString(selector))
}

// clickScript clicks the element matched by selector and reports whether it existed
func clickScript(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	el.click();
	return true;
})()`, jsString(selector))
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
