package identity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsInAppBrowser(t *testing.T) {
	cases := []struct {
		ua    string
		inApp bool
	}{
		{chromeUA, false},
		{kakaoUA, true},
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/15E148 [FBAN/FBIOS;FBAV/470.0]", true},
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 Instagram 330.0", true},
		{"Mozilla/5.0 (Linux; Android 13) AppleWebKit/537.36 Chrome/125.0 Mobile Safari/537.36 NAVER(inapp; search; 1000; 12.3.1)", true},
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 Version/17.5 Mobile/15E148 Safari/604.1", false},
		{"", false},
	}

	for _, tc := range cases {
		require.Equal(t, tc.inApp, IsInAppBrowser(tc.ua), tc.ua)
	}
}

func TestExternalBrowserHintAndroidUsesChromeIntent(t *testing.T) {
	hint := ExternalBrowserHint(kakaoUA, "https://survey.example.com/?from=kakao")
	require.Equal(t, PlatformAndroid, hint.Platform)
	require.Equal(t, "intent://survey.example.com/?from=kakao#Intent;scheme=https;package=com.android.chrome;end", hint.URL)
}

func TestExternalBrowserHintIOSKeepsURL(t *testing.T) {
	ua := "Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 KAKAOTALK 10.7.5"
	hint := ExternalBrowserHint(ua, "https://survey.example.com/")
	require.Equal(t, PlatformIOS, hint.Platform)
	require.Equal(t, "https://survey.example.com/", hint.URL)
	require.NotEmpty(t, hint.Message)
}

func TestDetectCapabilities(t *testing.T) {
	caps := DetectCapabilities(chromeUA, "https://survey.example.com/")
	require.False(t, caps.InAppBrowser)
	require.True(t, caps.PopupSupported)
	require.Nil(t, caps.External)

	caps = DetectCapabilities(kakaoUA, "https://survey.example.com/")
	require.True(t, caps.InAppBrowser)
	require.False(t, caps.PopupSupported)
	require.NotNil(t, caps.External)
}

func TestProviderErrorClassification(t *testing.T) {
	require.True(t, IsBenignCancellation(CodePopupClosedByUser))
	require.False(t, IsBenignCancellation(CodePopupBlocked))

	for _, code := range []string{CodePopupBlocked, CodePopupClosedByUser, CodeCancelledPopup} {
		require.True(t, ShouldFallbackToRedirect(code), code)
	}
	require.False(t, ShouldFallbackToRedirect(CodeExchangeFailed))

	err := providerError(CodeExchangeFailed, "boom", nil)
	require.Equal(t, "[auth/code-exchange-failed] boom", err.Error())
	require.Equal(t, CodeExchangeFailed, ErrorCode(err))
	require.Equal(t, "", ErrorCode(ErrInvalidToken))
}
