package tools

import "github.com/chatwire/chatwire/chat"

// All returns every built-in tool.
func All() []chat.Tool {
	return []chat.Tool{
		ReadFile(),
		FindFiles(),
		SearchFiles(),
		FetchURL(),
	}
}

// FileTools returns the filesystem tools only.
func FileTools() []chat.Tool {
	return []chat.Tool{
		ReadFile(),
		FindFiles(),
		SearchFiles(),
	}
}
