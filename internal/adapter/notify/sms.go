// Package notify holds outbound notification adapters.
package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSMSSender implements ports.OTPSender against the log stream. It
// stands in for the SMS gateway in development and test environments;
// production deployments swap in a real gateway client behind the same
// interface.
type LogSMSSender struct {
	log zerolog.Logger
}

// NewLogSMSSender creates a new LogSMSSender.
func NewLogSMSSender(log zerolog.Logger) *LogSMSSender {
	return &LogSMSSender{log: log}
}

// Send writes the delivery to the log. The code appears here and
// nowhere else.
func (s *LogSMSSender) Send(_ context.Context, phone string, cardLast4 string, code string) error {
	s.log.Info().
		Str("phone", maskPhone(phone)).
		Str("card", "****"+cardLast4).
		Str("code", code).
		Msg("sms: withdrawal verification code")
	return nil
}

// maskPhone hides the middle digits of an 11-digit phone number.
func maskPhone(phone string) string {
	if len(phone) < 7 {
		return "***"
	}
	return phone[:4] + "***" + phone[len(phone)-3:]
}
