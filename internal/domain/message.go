package domain

// Message is one entry of the append-only chat log (user or assistant).
// Messages are never deleted; window queries filter by recency instead.
type Message struct {
	ID        MessageID
	ChatID    ChatID
	Text      string
	Origin    Origin
	Timestamp Timestamp

	// Processed flips to true only when the message contributed to a
	// successfully extracted reminder. Clarification turns leave it false
	// so the message stays eligible for the next window.
	Processed bool
}
