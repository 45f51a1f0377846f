package domain

// Action tells the surface whether to continue the navigation.
type Action string

const (
	ActionAllow  Action = "allow"
	ActionCancel Action = "cancel"
)

// CommandKind tags a side-effect command.
type CommandKind string

const (
	CmdPresentAccountFlow     CommandKind = "present_account_flow"
	CmdPresentPDFViewer       CommandKind = "present_pdf_viewer"
	CmdPresentNewNativeScreen CommandKind = "present_new_native_screen"
	CmdOpenInternalOverlay    CommandKind = "open_internal_overlay"
	CmdOpenExternal           CommandKind = "open_external"
	CmdOpenExternalApp        CommandKind = "open_external_app"
	CmdLoadInSurface          CommandKind = "load_in_surface"
	CmdSelectHomeTab          CommandKind = "select_home_tab"
	CmdPresentMenu            CommandKind = "present_menu"
)

// Command is a side effect returned by the decision pipeline. Only the fields
// relevant to Kind are set.
type Command struct {
	Kind        CommandKind       `json:"kind"`
	URL         string            `json:"url,omitempty"`
	Title       string            `json:"title,omitempty"`
	FallbackURL string            `json:"fallbackUrl,omitempty"`
	Account     AccountFlowKind   `json:"account,omitempty"`
	Surface     SurfaceID         `json:"surface,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
}

// Decision is the outcome for one navigation event.
type Decision struct {
	ID             string         `json:"id"`
	Action         Action         `json:"action"`
	Classification Classification `json:"classification"`
	Target         BrowserTarget  `json:"target,omitempty"`
	Commands       []Command      `json:"commands,omitempty"`
	// Reason is a short machine-readable note on why the pipeline stopped where it did.
	Reason string `json:"reason"`
}

// Allowed reports whether the surface should proceed.
func (d Decision) Allowed() bool {
	return d.Action == ActionAllow
}
