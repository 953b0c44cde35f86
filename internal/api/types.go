package api

import (
	"slipclip/internal/clip"
)

// HealthResponse reports liveness.
type HealthResponse struct {
	Status        string `json:"status"`
	Backend       string `json:"backend"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
}

// CountResponse carries a clip count.
type CountResponse struct {
	Count int `json:"count"`
}

// ClipSummary describes a stored clip without its input stream.
type ClipSummary struct {
	GameID        string `json:"gameId"`
	ClipID        int    `json:"clipId"`
	Character     string `json:"character"`
	CharacterName string `json:"characterName"`
	Name          string `json:"name,omitempty"`
	Code          string `json:"code,omitempty"`
	Frames        int    `json:"frames"`
}

// ClipsResponse lists clip summaries.
type ClipsResponse struct {
	Clips []ClipSummary `json:"clips"`
	Count int           `json:"count"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// FromClip converts a clip to its transport summary.
func FromClip(c clip.Clip) ClipSummary {
	return ClipSummary{
		GameID:        c.GameID,
		ClipID:        c.ClipID,
		Character:     c.Character.String(),
		CharacterName: c.Character.DisplayName(),
		Name:          c.Name,
		Code:          c.Code,
		Frames:        c.Frames(),
	}
}
