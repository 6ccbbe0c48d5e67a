package classify

import (
	"fmt"
	"strings"
)

const promptTemplate = `You are processing a forwarded school email for a family calendar app.

Email metadata:
Subject: %s
From: %s
Date: %s
Attachments: %s

Email body:
---
%s
---

Step 1 - privacy check: decide whether this email may be stored. Fail the
check if the body contains student identifiers, grades, medical details,
SSNs, or anything else a family would not want retained.

Step 2 - item extraction (only if the privacy check passes): extract each
discrete calendar event or action the email asks for. One item per
real-world event. Dates in YYYY-MM-DD.

Respond with a single JSON object, no other commentary:
{
  "privacy_check_passed": true or false,
  "reason": "only when the check failed",
  "items": [
    {
      "content": "one-sentence description of the event or action",
      "date_start": "YYYY-MM-DD or omit when undated",
      "date_end": "YYYY-MM-DD, only for multi-day ranges",
      "external_urls": ["actionable links mentioned for this item"],
      "attachment_filenames": ["attachments that belong to this item"]
    }
  ]
}`

func buildPrompt(in Input) string {
	attachments := "None"
	if len(in.AttachmentNames) > 0 {
		attachments = strings.Join(in.AttachmentNames, ", ")
	}
	return fmt.Sprintf(promptTemplate, in.Subject, in.Sender, in.Date, attachments, in.Body)
}
