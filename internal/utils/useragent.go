package utils

import (
	"strings"

	"github.com/gin-gonic/gin"
	ua "github.com/mssola/user_agent"
	"github.com/seinetours/booking-backend/internal/models"
)

// Device types recorded on admin sessions
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	DeviceBot     = "bot"
	DeviceUnknown = "unknown"
)

var tabletIndicators = []string{"ipad", "tablet", "kindle", "playbook", "nexus 7", "nexus 9", "nexus 10", "xoom", "sm-t"}

// DeviceType classifies a User-Agent string
func DeviceType(userAgent string) string {
	if userAgent == "" || userAgent == "Unknown" {
		return DeviceUnknown
	}

	parser := ua.New(userAgent)
	if parser.Bot() {
		return DeviceBot
	}

	lower := strings.ToLower(userAgent)
	for _, indicator := range tabletIndicators {
		if strings.Contains(lower, indicator) {
			return DeviceTablet
		}
	}
	if parser.Mobile() {
		return DeviceMobile
	}
	return DeviceDesktop
}

// ClientInfoFromRequest collects the request origin for login auditing
func ClientInfoFromRequest(c *gin.Context) models.ClientInfo {
	userAgent := GetUserAgent(c)
	return models.ClientInfo{
		IPAddress:  GetRealIP(c),
		UserAgent:  userAgent,
		DeviceType: DeviceType(userAgent),
	}
}
