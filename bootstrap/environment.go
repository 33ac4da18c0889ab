package bootstrap

import (
	"strings"

	"github.com/milodocs/pagekit/dom"
)

// DeviceClass buckets clients by form factor, derived from the user agent.
type DeviceClass string

const (
	DeviceDesktop DeviceClass = "desktop"
	DeviceTablet  DeviceClass = "tablet"
	DeviceMobile  DeviceClass = "mobile"
)

// Environment describes what a page offers before any component runs:
// feature probes over the document plus the client's device class.
type Environment struct {
	Device    DeviceClass
	Lang      string
	HasChat   bool
	HasSearch bool
	HasTOC    bool
	Markers   int // elements carrying the discovery marker
}

// DetectDevice classifies a user agent string. Unknown agents count as
// desktop.
func DetectDevice(userAgent string) DeviceClass {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		return DeviceTablet
	case strings.Contains(ua, "mobi") || strings.Contains(ua, "android") || strings.Contains(ua, "iphone"):
		return DeviceMobile
	default:
		return DeviceDesktop
	}
}

// DetectEnvironment probes a document for the features components depend on.
func DetectEnvironment(doc *dom.Document, userAgent, markerAttr string) Environment {
	env := Environment{
		Device:  DetectDevice(userAgent),
		Markers: len(doc.ElementsWithAttr(markerAttr)),
	}

	if root := doc.Root(); root != nil {
		env.Lang = root.Attr("lang")
	}
	if el, err := doc.QuerySelector("#chat"); err == nil && el != nil {
		env.HasChat = true
	}
	if el, err := doc.QuerySelector("#search"); err == nil && el != nil {
		env.HasSearch = true
	}
	if el, err := doc.QuerySelector("[data-toc]"); err == nil && el != nil {
		env.HasTOC = true
	}
	return env
}
