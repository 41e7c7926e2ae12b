package auth

import (
	"fmt"
	"time"
)

const (
	subjectVerify = "Verify your Email"
	subjectReset  = "Reset your Password"
)

const codeEmailTemplate = `<h2>%s</h2>
<p>Use the following 6-digit code to %s:</p>
<h3>%s</h3>
<p>This code will expire in %d minutes.</p>
`

func verificationEmail(code string, ttl time.Duration) string {
	return fmt.Sprintf(codeEmailTemplate, subjectVerify, "verify your email address", code, int(ttl.Minutes()))
}

func resetEmail(code string, ttl time.Duration) string {
	return fmt.Sprintf(codeEmailTemplate, subjectReset, "reset your password", code, int(ttl.Minutes()))
}
