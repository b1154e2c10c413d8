package dialog

// Choice is one selectable button.
type Choice struct {
	Label  string
	Intent Intent
}

// Change describes a settings mutation, for auditing.
type Change struct {
	Field string
	Value string
}

// Reply is what the front-end renders. Title and Lines are plain text;
// escaping and layout belong to the front-end.
type Reply struct {
	Title   string
	Lines   []string
	Choices [][]Choice
	// Err is the usage error that produced this reply, if any.
	Err error
	// Changes lists the mutations this event applied.
	Changes []Change
}

func row(cs ...Choice) []Choice { return cs }

func choice(label string, k IntentKind, arg ...string) Choice {
	c := Choice{Label: label, Intent: Intent{Kind: k}}
	if len(arg) > 0 {
		c.Intent.Arg = arg[0]
	}
	return c
}
