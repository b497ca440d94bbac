package analytics

import (
	"fmt"

	"github.com/mssola/useragent"
)

// ClientHints are the values a browser reports about itself at session start.
type ClientHints struct {
	Language       string `json:"language"`
	Timezone       string `json:"timezone"`
	ScreenWidth    int    `json:"screenWidth"`
	ScreenHeight   int    `json:"screenHeight"`
	ViewportWidth  int    `json:"viewportWidth"`
	ViewportHeight int    `json:"viewportHeight"`
}

// DeriveDeviceInfo builds DeviceInfo from a user agent string and hints.
func DeriveDeviceInfo(userAgent string, hints ClientHints) DeviceInfo {
	ua := useragent.New(userAgent)
	browser, version := ua.Browser()
	if version != "" {
		browser = browser + " " + version
	}

	deviceType := "desktop"
	switch {
	case ua.Bot():
		deviceType = "bot"
	case ua.Mobile():
		deviceType = "mobile"
		if hints.ScreenWidth >= 768 {
			deviceType = "tablet"
		}
	}

	info := DeviceInfo{
		UserAgent:  userAgent,
		Browser:    browser,
		OS:         ua.OS(),
		DeviceType: deviceType,
		Language:   hints.Language,
		Timezone:   hints.Timezone,
	}
	if hints.ScreenWidth > 0 && hints.ScreenHeight > 0 {
		info.ScreenSize = fmt.Sprintf("%dx%d", hints.ScreenWidth, hints.ScreenHeight)
	}
	if hints.ViewportWidth > 0 && hints.ViewportHeight > 0 {
		info.Viewport = fmt.Sprintf("%dx%d", hints.ViewportWidth, hints.ViewportHeight)
	}
	return info
}
