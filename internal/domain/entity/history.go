package entity

import "time"

// TranscriptionRecord is one completed transcription kept for the user's
// history. AudioURL is set only when the source audio was archived.
type TranscriptionRecord struct {
	ID         string
	UserID     string
	Provider   string // "assemblyai" or "whisper"
	FileName   string
	Transcript string
	AudioURL   string
	CreatedAt  time.Time
}
