package domain

// Session is the server-side record of a single live connection: its
// self-declared username and the rooms it currently occupies. A session
// is created on first registration and torn down on disconnect.
type Session struct {
	ConnectionID string   `json:"connectionId"`
	Username     string   `json:"username"`
	Rooms        []string `json:"rooms"`
}
