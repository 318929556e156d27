package sync

// Message types exchanged with stream clients.
const (
	MessageWelcome    = "welcome"
	MessageSubscribe  = "subscribe"
	MessageSubscribed = "subscribed"
)

// WelcomeMessage is the first line sent to every client.
type WelcomeMessage struct {
	Type      string `json:"type"`
	Transport string `json:"transport"`
	Clients   int    `json:"clients"`
}

// SubscribeMessage narrows a TCP client to one publication's events.
// An empty Publication subscribes to everything.
type SubscribeMessage struct {
	Type        string `json:"type"`
	Publication string `json:"publication"`
}
