package presence

// Command is an instruction for the presence worker.
//
// The set of commands is closed: Connect, Disconnect, UpdateActivity and
// ClearActivity.
type Command interface {
	isCommand()
	String() string
}

// Connect establishes the presence connection and publishes the current
// activity.
type Connect struct{}

// Disconnect closes the presence connection.
type Disconnect struct{}

// UpdateActivity replaces the displayed title, subtitle and icon.
type UpdateActivity struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Icon     string `json:"icon"`
}

// ClearActivity removes the displayed activity while keeping the connection.
type ClearActivity struct{}

func (Connect) isCommand()        {}
func (Disconnect) isCommand()     {}
func (UpdateActivity) isCommand() {}
func (ClearActivity) isCommand()  {}

func (Connect) String() string        { return "connect" }
func (Disconnect) String() string     { return "disconnect" }
func (UpdateActivity) String() string { return "update_activity" }
func (ClearActivity) String() string  { return "clear_activity" }
