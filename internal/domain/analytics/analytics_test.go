package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLeadScore(t *testing.T) {
	s := Session{ConversionEvents: []ConversionEvent{
		{EventType: "quote_request", Value: ValueQuoteRequest},
		{EventType: "external_chat", Value: ValueExternalChat},
	}}
	assert.Equal(t, 110, s.LeadScore())
}

func TestCloneDetachesSlices(t *testing.T) {
	end := time.Now()
	s := Session{QuickActionsUsed: []string{"pricing"}, EndTime: &end}
	c := s.Clone()
	c.QuickActionsUsed[0] = "changed"
	*c.EndTime = end.Add(time.Hour)

	assert.Equal(t, "pricing", s.QuickActionsUsed[0])
	assert.Equal(t, end, *s.EndTime)
}

func TestDeriveDeviceInfo(t *testing.T) {
	const iphone = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1"
	info := DeriveDeviceInfo(iphone, ClientHints{ScreenWidth: 390, ScreenHeight: 844, Language: "en-US"})
	assert.Equal(t, "mobile", info.DeviceType)
	assert.Equal(t, "390x844", info.ScreenSize)
	assert.Equal(t, "en-US", info.Language)
	assert.Contains(t, info.Browser, "Safari")

	const desktop = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	info = DeriveDeviceInfo(desktop, ClientHints{})
	assert.Equal(t, "desktop", info.DeviceType)
	assert.Contains(t, info.Browser, "Chrome")
	assert.Empty(t, info.ScreenSize)
}
