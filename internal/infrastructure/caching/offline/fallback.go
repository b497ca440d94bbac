package offline

import (
	"io"
	"net/http"
	"strings"
)

const placeholderSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="400" height="300" viewBox="0 0 400 300">` +
	`<rect width="400" height="300" fill="#f3f4f6"/>` +
	`<text x="200" y="150" text-anchor="middle" dominant-baseline="middle" font-family="sans-serif" font-size="18" fill="#9ca3af">Image unavailable offline</text>` +
	`</svg>`

// OfflineMessage is the body of the synthetic 503.
const OfflineMessage = "Content not available offline"

func placeholderImage(req *http.Request) *http.Response {
	return syntheticResponse(req, http.StatusOK, "image/svg+xml", placeholderSVG)
}

func serviceUnavailable(req *http.Request) *http.Response {
	return syntheticResponse(req, http.StatusServiceUnavailable, "text/plain; charset=utf-8", OfflineMessage)
}

func syntheticResponse(req *http.Request, status int, contentType, body string) *http.Response {
	h := http.Header{}
	h.Set("Content-Type", contentType)
	h.Set("Cache-Control", "no-store")
	return &http.Response{
		Status:        http.StatusText(status),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        h,
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
