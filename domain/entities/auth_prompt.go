package entities

// AuthPrompt represents a prompt-response pair during authentication
type AuthPrompt struct {
	WaitFor string // regular expression matched against the device prompt
	SendCmd string // line to send once matched (empty means just wait)
}
