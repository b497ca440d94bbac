package install

import "strings"

// Instructions are the manual install steps shown when the browser never
// offered an install prompt.
type Instructions struct {
	Browser string   `json:"browser"`
	Steps   []string `json:"steps"`
}

// InstructionsFor picks the steps for a browser name as reported by the
// user agent parser.
func InstructionsFor(browser string) Instructions {
	b := strings.ToLower(browser)
	switch {
	case strings.Contains(b, "safari") && !strings.Contains(b, "chrome"):
		return Instructions{Browser: "Safari", Steps: []string{
			"Tap the Share button in the toolbar",
			"Scroll down and tap \"Add to Home Screen\"",
			"Tap \"Add\" to confirm",
		}}
	case strings.Contains(b, "firefox"):
		return Instructions{Browser: "Firefox", Steps: []string{
			"Open the browser menu",
			"Tap \"Install\" or \"Add to Home screen\"",
			"Confirm to add the app",
		}}
	case strings.Contains(b, "samsung"):
		return Instructions{Browser: "Samsung Internet", Steps: []string{
			"Open the menu",
			"Tap \"Add page to\" then \"Home screen\"",
			"Tap \"Add\" to confirm",
		}}
	case strings.Contains(b, "edge"):
		return Instructions{Browser: "Edge", Steps: []string{
			"Open the Settings and more menu",
			"Choose Apps then \"Install this site as an app\"",
			"Click \"Install\"",
		}}
	default:
		return Instructions{Browser: "Chrome", Steps: []string{
			"Open the browser menu",
			"Choose \"Install app\" or \"Add to Home screen\"",
			"Confirm the installation",
		}}
	}
}
