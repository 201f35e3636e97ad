package entity

const DefaultDisplayName = "Player"

type Player struct {
	ConnectionID string `json:"connectionId"`
	DisplayName  string `json:"displayName"`
	Symbol       Mark   `json:"symbol"`
}

func NewPlayer(connectionID, displayName string) *Player {
	return &Player{
		ConnectionID: connectionID,
		DisplayName:  NormalizeDisplayName(displayName),
	}
}

// NormalizeDisplayName falls back to DefaultDisplayName for blank names.
func NormalizeDisplayName(name string) string {
	if name == "" {
		return DefaultDisplayName
	}

	return name
}

// Session binds a live connection to the room it sits in.
type Session struct {
	ConnectionID string
	RoomID       string
	DisplayName  string
}
