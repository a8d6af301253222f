package services

import (
	"fmt"
	"time"
)

const emailHeader = `<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; margin: 0; padding: 0;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<div style="text-align: center; margin-bottom: 30px; background-color: #f9f9f9; padding: 20px;">
			<h2 style="color: #1F4E79; margin: 0;">Railway Parcel Service</h2>
		</div>
`

const emailFooter = `
		<div style="text-align: center; margin-top: 20px; font-size: 12px; color: #666; border-top: 1px solid #eee; padding-top: 20px;">
			<p>This is an automated message, please do not reply to this email.</p>
		</div>
	</div>
</body>
</html>
`

func renderOTPEmail(code string, expiresAt time.Time) (subject, text, html string) {
	subject = "Your station login code"
	minutes := int(time.Until(expiresAt).Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}

	text = fmt.Sprintf("Your login code is %s. It expires in %d minutes (at %s UTC).",
		code, minutes, expiresAt.UTC().Format("15:04"))

	html = emailHeader + fmt.Sprintf(`
		<div style="background-color: #ffffff; padding: 20px; border-radius: 5px;">
			<p>Use the code below to sign in to your station dashboard:</p>
			<div style="text-align: center; margin: 30px 0;">
				<span style="font-size: 32px; letter-spacing: 6px; font-weight: bold;">%s</span>
			</div>
			<p>The code expires in %d minutes. If you did not request it, you can ignore this email.</p>
		</div>
`, code, minutes) + emailFooter
	return subject, text, html
}
