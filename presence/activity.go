package presence

// Activity is the snapshot the presence service displays.
type Activity struct {
	AppID    uint64 `json:"app_id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Icon     string `json:"icon"`
}

// Config seeds a presence actor. AppID is fixed for the lifetime of the actor.
type Config struct {
	AppID    uint64
	Title    string
	Subtitle string
	Icon     string
}

// Activity returns the initial activity described by the config.
func (c Config) Activity() Activity {
	return Activity{
		AppID:    c.AppID,
		Title:    c.Title,
		Subtitle: c.Subtitle,
		Icon:     c.Icon,
	}
}

// Client is the presence protocol connection driven by the worker.
//
// Implementations are only ever called from the worker goroutine and need not
// be safe for concurrent use. An error wrapping ErrDisconnected tells the
// worker the connection was lost.
type Client interface {
	// Connect opens the connection and completes the protocol handshake.
	Connect() error
	// SetActivity publishes the activity.
	SetActivity(activity Activity) error
	// ClearActivity removes the published activity.
	ClearActivity() error
	// Close terminates the connection.
	Close() error
}
