package app

// Notice is a user-facing message produced by a workspace operation.
type Notice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Destructive bool   `json:"destructive,omitempty"`
}

func info(title, description string) Notice {
	return Notice{Title: title, Description: description}
}

func alert(title, description string) Notice {
	return Notice{Title: title, Description: description, Destructive: true}
}

// HasDestructive reports whether any notice describes a failure.
func HasDestructive(notices []Notice) bool {
	for _, n := range notices {
		if n.Destructive {
			return true
		}
	}
	return false
}
