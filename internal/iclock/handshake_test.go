package iclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedClock() time.Time {
	return time.Unix(1730275200, 0)
}

func TestHandshakeBody(t *testing.T) {
	hs := Handshake{Now: fixedClock}
	body := hs.Body("DEV001")

	want := "GET OPTION FROM: DEV001\r\n" +
		"Stamp=9999\r\n" +
		"OpStamp=1730275200\r\n" +
		"ErrorDelay=60\r\n" +
		"Delay=30\r\n" +
		"ResLogDay=18250\r\n" +
		"ResLogDelCount=10000\r\n" +
		"ResLogCount=50000\r\n" +
		"TransTimes=00:00;14:05\r\n" +
		"TransInterval=1\r\n" +
		"TransFlag=1111000000\r\n" +
		"Realtime=1\r\n" +
		"Encrypt=0"
	assert.Equal(t, want, body)
}

func TestHandshakeTimeSyncOptIn(t *testing.T) {
	off := Handshake{Now: fixedClock}
	assert.NotContains(t, off.Body("DEV001"), "TimeZone=")

	on := Handshake{Now: fixedClock, TimeSync: true, TZOffsetMinutes: 330}
	assert.Contains(t, on.Body("DEV001"), "Encrypt=0\r\nTimeZone=330")
}
