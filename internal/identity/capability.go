package identity

import (
	"regexp"
	"strings"
)

var (
	inAppBrowserPattern = regexp.MustCompile(`(?i)KAKAOTALK|FBAN|FBAV|Instagram|NAVER|Line/|DaumApps`)
	androidPattern      = regexp.MustCompile(`(?i)Android`)
	iosPattern          = regexp.MustCompile(`(?i)iPhone|iPad|iPod`)
)

// Platform is the coarse device family used to build the external browser hint.
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
	PlatformOther   Platform = "other"
)

// ExternalBrowser tells the client how to reopen the page outside an in-app browser.
type ExternalBrowser struct {
	Platform Platform `json:"platform"`
	URL      string   `json:"url"`
	Message  string   `json:"message"`
}

// Capabilities is the result of the in-app browser check for one user agent.
type Capabilities struct {
	InAppBrowser   bool             `json:"in_app_browser"`
	PopupSupported bool             `json:"popup_supported"`
	External       *ExternalBrowser `json:"external,omitempty"`
}

// IsInAppBrowser is a best-effort user agent check for embedded browsers
// (KakaoTalk, Facebook, Instagram, Naver, Line, Daum) that cannot host the
// Google consent screen.
func IsInAppBrowser(userAgent string) bool {
	return inAppBrowserPattern.MatchString(userAgent)
}

// DetectCapabilities reports what sign-in paths pageURL can offer to userAgent.
func DetectCapabilities(userAgent, pageURL string) Capabilities {
	if !IsInAppBrowser(userAgent) {
		return Capabilities{PopupSupported: true}
	}
	hint := ExternalBrowserHint(userAgent, pageURL)
	return Capabilities{InAppBrowser: true, External: &hint}
}

// ExternalBrowserHint builds the URL that reopens pageURL in the platform browser.
func ExternalBrowserHint(userAgent, pageURL string) ExternalBrowser {
	switch {
	case androidPattern.MatchString(userAgent):
		noScheme := strings.TrimPrefix(strings.TrimPrefix(pageURL, "https://"), "http://")
		return ExternalBrowser{
			Platform: PlatformAndroid,
			URL:      "intent://" + noScheme + "#Intent;scheme=https;package=com.android.chrome;end",
			Message:  "잠시 후 Chrome으로 이동합니다. 이동되지 않으면 버튼을 눌러주세요.",
		}
	case iosPattern.MatchString(userAgent):
		return ExternalBrowser{
			Platform: PlatformIOS,
			URL:      pageURL,
			Message:  "카카오톡 브라우저에서는 로그인할 수 없습니다. Safari에서 열어주세요.",
		}
	default:
		return ExternalBrowser{
			Platform: PlatformOther,
			URL:      pageURL,
			Message:  "Chrome/Safari 등 기본 브라우저에서 다시 열어주세요.",
		}
	}
}
