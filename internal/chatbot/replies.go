package chatbot

import "time"

// fallbackPool is used when the completion collaborator is unavailable.
// Generic enough to be safe in any thread of a maternity community chat.
var fallbackPool = []string{
	"That's a really good question — other mums here may have experienced the same. If it's worrying you, your midwife is the best person to ask.",
	"Thanks for sharing! Every pregnancy is a little different, so it's always worth mentioning this at your next check-up.",
	"Hang in there — lots of members have been through something similar. Hopefully someone shares their experience soon.",
	"That sounds manageable, but if symptoms get stronger or you feel unsure, don't hesitate to contact your care provider.",
	"Great topic! While you wait for replies, the weekly development section may have some helpful background.",
}

// fallbackReply rotates deterministically by time so consecutive
// fallbacks in one conversation tend to differ.
func fallbackReply(now time.Time) string {
	return fallbackPool[int(now.Unix())%len(fallbackPool)]
}
