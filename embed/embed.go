package embed

// UIOptions are display options forwarded to the UI in the configure event.
type UIOptions struct {
	Transparent bool   `json:"transparent,omitempty"`
	Width       string `json:"width,omitempty"`
	MaxWidth    string `json:"maxWidth,omitempty"`
	Height      string `json:"height,omitempty"`
}

// DefaultUIOptions mirrors the hosted UI's standard frame.
func DefaultUIOptions() UIOptions {
	return UIOptions{
		Width:    "100%",
		MaxWidth: "760px",
		Height:   "640px",
	}
}

// Embed is a mount point: the channel to the UI and the host displaying it.
type Embed struct {
	Channel Channel
	Host    Host
	UI      UIOptions
}

// New creates an Embed. A nil host is replaced by NopHost.
func New(ch Channel, host Host, ui UIOptions) *Embed {
	if host == nil {
		host = NopHost{}
	}
	return &Embed{Channel: ch, Host: host, UI: ui}
}
