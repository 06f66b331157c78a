package iclock

import (
	"fmt"
	"strings"
	"time"
)

// Handshake builds the option block a terminal expects on its
// connection probe. TimeSync is an explicit opt-in: broadcasting a
// TimeZone line silently rewrites the clock of every unattended device,
// so it stays off unless an operator turns it on.
type Handshake struct {
	TimeSync        bool
	TZOffsetMinutes int
	Now             func() time.Time
}

// Body renders the plain-text option block for a device serial.
func (h Handshake) Body(sn string) string {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}

	lines := []string{
		fmt.Sprintf("GET OPTION FROM: %s", sn),
		"Stamp=9999",
		fmt.Sprintf("OpStamp=%d", now().Unix()),
		"ErrorDelay=60",
		"Delay=30",
		"ResLogDay=18250",
		"ResLogDelCount=10000",
		"ResLogCount=50000",
		"TransTimes=00:00;14:05",
		"TransInterval=1",
		"TransFlag=1111000000",
		"Realtime=1",
		"Encrypt=0",
	}
	if h.TimeSync {
		lines = append(lines, fmt.Sprintf("TimeZone=%d", h.TZOffsetMinutes))
	}
	return strings.Join(lines, "\r\n")
}
