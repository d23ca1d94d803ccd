package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Song describes a catalog entry.
type Song struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Artist          string `json:"artist"`
	Album           string `json:"album"`
	Genre           string `json:"genre"`
	DisplayName     string `json:"displayName"`
	FileRef         string `json:"fileRef"`
	DurationSeconds int64  `json:"durationSeconds,omitempty"`
	CreatedAt       string `json:"createdAt,omitempty"`
}

// SongRequest describes a queued or played request.
type SongRequest struct {
	ID          int64        `json:"id"`
	SongID      int64        `json:"songId"`
	Song        Song         `json:"song"`
	Requester   string       `json:"requester"`
	Filler      bool         `json:"filler"`
	RequestedAt string       `json:"requestedAt,omitempty"`
	PlayedAt    string       `json:"playedAt,omitempty"`
	Failure     *PlayFailure `json:"failure,omitempty"`
}

// PlayFailure explains why a played request did not finish.
type PlayFailure struct {
	FailedAt string `json:"failedAt,omitempty"`
	Kind     string `json:"kind"`
	Reason   string `json:"reason"`
}

// QueueView is the main page payload.
type QueueView struct {
	ProgramName       string        `json:"programName"`
	NowPlaying        *SongRequest  `json:"nowPlaying"`
	RecentlyPlayed    []SongRequest `json:"recentlyPlayed"`
	UpcomingRequested []SongRequest `json:"upcomingRequested"`
	UpcomingRandom    []SongRequest `json:"upcomingRandom"`
}

// SearchResponse wraps search results. Random is set when no keyword was
// given and the songs are a random selection.
type SearchResponse struct {
	Keyword string `json:"keyword"`
	Random  bool   `json:"random"`
	Songs   []Song `json:"songs"`
}

// SongResponse wraps a single song.
type SongResponse struct {
	Song Song `json:"song"`
}

// SongListResponse wraps a page of catalog songs.
type SongListResponse struct {
	Songs []Song `json:"songs"`
}

// HistoryResponse wraps played requests, newest first.
type HistoryResponse struct {
	Items []SongRequest `json:"items"`
}

// Message is the user-facing result of a submission.
type Message struct {
	Message string `json:"message"`
	IsError bool   `json:"is_error"`
}

// SubmitResult pairs the user message with the created request, if any.
type SubmitResult struct {
	Message
	Request *SongRequest `json:"request,omitempty"`
}

// QueueStats mirrors queue.Stats.
type QueueStats struct {
	Songs             int `json:"songs"`
	UpcomingRequested int `json:"upcomingRequested"`
	UpcomingFillers   int `json:"upcomingFillers"`
	Played            int `json:"played"`
	Failures          int `json:"failures"`
}

// PlaybackStatus summarizes the play loop.
type PlaybackStatus struct {
	Running    bool         `json:"running"`
	NowPlaying *SongRequest `json:"nowPlaying,omitempty"`
	LastPlayed *SongRequest `json:"lastPlayed,omitempty"`
	LastError  string       `json:"lastError,omitempty"`
	Played     int          `json:"played"`
	Failed     int          `json:"failed"`
	Stats      QueueStats   `json:"stats"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running        bool               `json:"running"`
	PID            int                `json:"pid"`
	ProgramName    string             `json:"programName"`
	StorageBackend string             `json:"storageBackend"`
	DatabasePath   string             `json:"databasePath"`
	LockFilePath   string             `json:"lockFilePath"`
	Playback       PlaybackStatus     `json:"playback"`
	Dependencies   []DependencyStatus `json:"dependencies"`
}

// ErrorResponse is the body of every non-2xx response without a Message.
type ErrorResponse struct {
	Error string `json:"error"`
}

// LogTailResponse carries daemon log lines and the offset to resume from.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}
